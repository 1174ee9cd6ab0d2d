package api

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"git.sr.ht/~mariusor/hestia/prefs"
)

const openWeatherBase = "https://api.openweathermap.org/data/2.5"

type weatherClient struct {
	http  *resty.Client
	prefs *prefs.Store
}

func newWeatherClient(http *resty.Client, p *prefs.Store) *weatherClient {
	return &weatherClient{http: http, prefs: p}
}

type owMain struct {
	Temp    float64 `json:"temp"`
	TempMin float64 `json:"temp_min"`
	TempMax float64 `json:"temp_max"`
}

type owCondition struct {
	Main string `json:"main"`
}

type owEntry struct {
	Dt      int64         `json:"dt"`
	Main    owMain        `json:"main"`
	Weather []owCondition `json:"weather"`
}

func (c *weatherClient) Current(city string) (Conditions, error) {
	var out struct {
		Main owMain `json:"main"`
	}
	res, err := c.http.R().
		SetQueryParams(map[string]string{
			"q":     city,
			"units": "metric",
			"appid": c.prefs.Get(prefs.KeyWeatherAPIKey),
		}).
		SetResult(&out).
		Get(openWeatherBase + "/weather")
	if err != nil {
		return Conditions{}, err
	}
	if res.IsError() {
		return Conditions{}, fmt.Errorf("weather request failed: %s", res.Status())
	}
	return Conditions{Temp: out.Main.Temp}, nil
}

// DailyForecast aggregates the provider's three-hour entries of the
// given day into min/max temperatures and the most frequent condition.
func (c *weatherClient) DailyForecast(city string, date time.Time) (Forecast, error) {
	var out struct {
		List []owEntry `json:"list"`
	}
	res, err := c.http.R().
		SetQueryParams(map[string]string{
			"q":     city,
			"units": "metric",
			"appid": c.prefs.Get(prefs.KeyWeatherAPIKey),
		}).
		SetResult(&out).
		Get(openWeatherBase + "/forecast")
	if err != nil {
		return Forecast{}, err
	}
	if res.IsError() {
		return Forecast{}, fmt.Errorf("forecast request failed: %s", res.Status())
	}

	f := Forecast{}
	counts := make(map[string]int)
	found := false
	y, m, d := date.Date()
	for _, e := range out.List {
		ey, em, ed := time.Unix(e.Dt, 0).Local().Date()
		if ey != y || em != m || ed != d {
			continue
		}
		if !found || e.Main.TempMin < f.MinTemp {
			f.MinTemp = e.Main.TempMin
		}
		if !found || e.Main.TempMax > f.MaxTemp {
			f.MaxTemp = e.Main.TempMax
		}
		found = true
		for _, w := range e.Weather {
			counts[w.Main]++
		}
	}
	if !found {
		return f, fmt.Errorf("no forecast entries for %s", date.Format("2006-01-02"))
	}
	best := 0
	for cond, n := range counts {
		if n > best {
			best = n
			f.Condition = cond
		}
	}
	return f, nil
}
