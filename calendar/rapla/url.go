package rapla

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const DefaultBaseURI = "https://rapla.dhbw-stuttgart.de/rapla"

// GetCalendarURL builds the page URL for the week containing date.
// An empty base falls back to DefaultBaseURI.
func GetCalendarURL(base, key string, date time.Time) (*url.URL, error) {
	if key == "" {
		return nil, fmt.Errorf("empty timetable key")
	}
	if base == "" {
		base = DefaultBaseURI
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid timetable base URI %s: %w", base, err)
	}
	q := url.Values{}
	q.Set("key", key)
	q.Set("day", strconv.Itoa(date.Day()))
	q.Set("month", strconv.Itoa(int(date.Month())))
	q.Set("year", strconv.Itoa(date.Year()))
	u.RawQuery = q.Encode()
	return u, nil
}
