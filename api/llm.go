package api

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"git.sr.ht/~mariusor/hestia/prefs"
)

type llmClient struct {
	http  *resty.Client
	prefs *prefs.Store
}

func newLLMClient(http *resty.Client, p *prefs.Store) *llmClient {
	return &llmClient{http: http, prefs: p}
}

const summarizePrompt = "Fasse den folgenden Artikel in höchstens drei Sätzen zusammen:\n\n"

func (c *llmClient) Summarize(ctx context.Context, text string) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"model":  c.prefs.Get(prefs.KeyLLMModel),
			"prompt": summarizePrompt + text,
			"stream": false,
		}).
		SetResult(&out).
		Post(c.prefs.Get(prefs.KeyLLMURL) + "/api/generate")
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("summarize request failed: %s", res.Status())
	}
	return out.Response, nil
}
