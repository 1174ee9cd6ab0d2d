package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"git.sr.ht/~mariusor/hestia/prefs"
)

const newsAPIBase = "https://newsapi.org/v2"

type newsClient struct {
	http  *resty.Client
	prefs *prefs.Store
}

func newNewsClient(http *resty.Client, p *prefs.Store) *newsClient {
	return &newsClient{http: http, prefs: p}
}

func (c *newsClient) TopHeadlines() ([]Headline, error) {
	var out struct {
		Status   string     `json:"status"`
		Articles []Headline `json:"articles"`
	}
	res, err := c.http.R().
		SetHeader("X-Api-Key", c.prefs.Get(prefs.KeyNewsAPIKey)).
		SetQueryParams(map[string]string{
			"country":  c.prefs.Get(prefs.KeyNewsCountry),
			"pageSize": "5",
		}).
		SetResult(&out).
		Get(newsAPIBase + "/top-headlines")
	if err != nil {
		return nil, err
	}
	if res.IsError() || out.Status != "ok" {
		return nil, fmt.Errorf("headlines request failed: %s", res.Status())
	}
	return out.Articles, nil
}

// Article fetches the page behind url and returns its paragraph text.
// The empty string signals that nothing readable was found.
func (c *newsClient) Article(ctx context.Context, url string) (string, error) {
	res, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("article request failed: %s", res.Status())
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body())))
	if err != nil {
		return "", err
	}
	paragraphs := make([]string, 0)
	doc.Find("article p, main p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		doc.Find("p").Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
	}
	return strings.Join(paragraphs, "\n"), nil
}
