package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"git.sr.ht/~mariusor/hestia/prefs"
)

const fitbitBase = "https://api.fitbit.com"

type fitbitClient struct {
	http  *resty.Client
	prefs *prefs.Store
	conf  *oauth2.Config

	mu    sync.Mutex
	token *oauth2.Token
}

func newFitbitClient(http *resty.Client, p *prefs.Store) *fitbitClient {
	return &fitbitClient{
		http:  http,
		prefs: p,
		conf: &oauth2.Config{
			ClientID:     p.Get(prefs.KeyFitbitClientID),
			ClientSecret: p.Get(prefs.KeyFitbitClientSecret),
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://www.fitbit.com/oauth2/authorize",
				TokenURL: fitbitBase + "/oauth2/token",
			},
			Scopes: []string{"heartrate", "activity", "sleep"},
		},
	}
}

// accessToken returns the stored token, refreshing it through the
// OAuth2 config when expired. This is an expiry check, not a full
// authorization flow; the initial grant lives in the preferences file.
func (c *fitbitClient) accessToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		c.token = &oauth2.Token{
			AccessToken:  c.prefs.Get(prefs.KeyFitbitAccessToken),
			RefreshToken: c.prefs.Get(prefs.KeyFitbitRefreshToken),
		}
		if exp := c.prefs.Get(prefs.KeyFitbitTokenExpiry); exp != "" {
			if t, err := time.Parse(time.RFC3339, exp); err == nil {
				c.token.Expiry = t
			}
		}
	}
	if c.token.AccessToken == "" && c.token.RefreshToken == "" {
		return "", fmt.Errorf("no fitbit token configured")
	}
	if c.token.Valid() {
		return c.token.AccessToken, nil
	}
	tok, err := c.conf.TokenSource(context.Background(), c.token).Token()
	if err != nil {
		return "", fmt.Errorf("unable to refresh fitbit token: %w", err)
	}
	c.token = tok
	c.prefs.Set(prefs.KeyFitbitAccessToken, tok.AccessToken)
	c.prefs.Set(prefs.KeyFitbitRefreshToken, tok.RefreshToken)
	c.prefs.Set(prefs.KeyFitbitTokenExpiry, tok.Expiry.Format(time.RFC3339))
	return tok.AccessToken, nil
}

func (c *fitbitClient) get(path string, out interface{}) error {
	tok, err := c.accessToken()
	if err != nil {
		return err
	}
	res, err := c.http.R().
		SetAuthToken(tok).
		SetResult(out).
		Get(fitbitBase + path)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("fitbit request %s failed: %s", path, res.Status())
	}
	return nil
}

func (c *fitbitClient) HeartDay(date time.Time) (HeartDay, error) {
	var out struct {
		Summary []struct {
			Value struct {
				RestingHeartRate float64 `json:"restingHeartRate"`
			} `json:"value"`
		} `json:"activities-heart"`
		Intraday struct {
			Dataset []Sample `json:"dataset"`
		} `json:"activities-heart-intraday"`
	}
	day := HeartDay{}
	path := fmt.Sprintf("/1/user/-/activities/heart/date/%s/1d/1min.json", date.Format("2006-01-02"))
	if err := c.get(path, &out); err != nil {
		return day, err
	}
	if len(out.Summary) > 0 {
		day.RestingRate = out.Summary[0].Value.RestingHeartRate
	}
	day.Intraday = out.Intraday.Dataset
	return day, nil
}

func (c *fitbitClient) StepsDay(date time.Time) (StepsDay, error) {
	var out struct {
		Intraday struct {
			Dataset []Sample `json:"dataset"`
		} `json:"activities-steps-intraday"`
	}
	day := StepsDay{}
	path := fmt.Sprintf("/1/user/-/activities/steps/date/%s/1d/1min.json", date.Format("2006-01-02"))
	if err := c.get(path, &out); err != nil {
		return day, err
	}
	day.Intraday = out.Intraday.Dataset
	return day, nil
}

func (c *fitbitClient) SleepSessions(date time.Time) ([]SleepSession, error) {
	var out struct {
		Sleep []struct {
			StartTime string `json:"startTime"`
		} `json:"sleep"`
	}
	path := fmt.Sprintf("/1.2/user/-/sleep/date/%s.json", date.Format("2006-01-02"))
	if err := c.get(path, &out); err != nil {
		return nil, err
	}
	sessions := make([]SleepSession, 0, len(out.Sleep))
	for _, s := range out.Sleep {
		start, err := time.ParseInLocation("2006-01-02T15:04:05.000", s.StartTime, time.Local)
		if err != nil {
			continue
		}
		sessions = append(sessions, SleepSession{Start: start})
	}
	return sessions, nil
}
