package api

import (
	"fmt"

	"github.com/go-resty/resty/v2"

	"git.sr.ht/~mariusor/hestia/prefs"
)

const alphaVantageBase = "https://www.alphavantage.co/query"

// RateLimitNote is the exact informational payload Alpha Vantage
// returns instead of data once the daily quota is exhausted.
const RateLimitNote = "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day. " +
	"Please subscribe to any of the premium plans at https://www.alphavantage.co/premium/ to instantly remove all daily rate limits."

func (m TopMovers) RateLimited() bool {
	return m.Information == RateLimitNote
}

type financeClient struct {
	http  *resty.Client
	prefs *prefs.Store
}

func newFinanceClient(http *resty.Client, p *prefs.Store) *financeClient {
	return &financeClient{http: http, prefs: p}
}

func (c *financeClient) TopMovers() (TopMovers, error) {
	var out TopMovers
	res, err := c.http.R().
		SetQueryParams(map[string]string{
			"function": "TOP_GAINERS_LOSERS",
			"apikey":   c.prefs.Get(prefs.KeyFinanceAPIKey),
		}).
		SetResult(&out).
		Get(alphaVantageBase)
	if err != nil {
		return out, err
	}
	if res.IsError() {
		return out, fmt.Errorf("movers request failed: %s", res.Status())
	}
	return out, nil
}

func (c *financeClient) CompanyOverview(symbol string) (Overview, error) {
	var out Overview
	res, err := c.http.R().
		SetQueryParams(map[string]string{
			"function": "OVERVIEW",
			"symbol":   symbol,
			"apikey":   c.prefs.Get(prefs.KeyFinanceAPIKey),
		}).
		SetResult(&out).
		Get(alphaVantageBase)
	if err != nil {
		return out, err
	}
	if res.IsError() {
		return out, fmt.Errorf("overview request failed: %s", res.Status())
	}
	return out, nil
}
