package rapla

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"git.sr.ht/~mariusor/hestia/calendar"
)

type LogFn func(string, ...interface{})

var (
	timeRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
	dateRe = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
)

// A block anchor starts with the time span "HH:MM -HH:MM ", the title
// follows after this fixed prefix.
const (
	titlePrefixLen = 13
	startTokenEnd  = 5
	endTokenStart  = 7
	endTokenEnd    = 12
)

type Parser struct {
	Year int
	Log  LogFn
	Err  LogFn
}

func NewParser(year int, logFn, errFn LogFn) Parser {
	if logFn == nil {
		logFn = func(string, ...interface{}) {}
	}
	if errFn == nil {
		errFn = func(string, ...interface{}) {}
	}
	return Parser{Year: year, Log: logFn, Err: errFn}
}

// LoadCalendar fetches the timetable page behind u and parses it. A
// failed fetch returns a nil calendar, which callers must treat as
// distinct from an empty one.
func LoadCalendar(u *url.URL, year int, logFn, errFn LogFn) (*calendar.Calendar, error) {
	if u == nil {
		return nil, fmt.Errorf("nil URL received")
	}
	res, err := http.Get(u.String())
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code error: %d %s", res.StatusCode, res.Status)
	}
	return NewParser(year, logFn, errFn).Parse(res.Body)
}

func (p Parser) Parse(r io.Reader) (*calendar.Calendar, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	cal := calendar.New()
	doc.Find("table.week_table").Each(func(_ int, tbl *goquery.Selection) {
		p.parseWeek(tbl, cal)
	})
	return cal, nil
}

func (p Parser) parseWeek(tbl *goquery.Selection, cal *calendar.Calendar) {
	rows := tbl.Find("tr")
	if rows.Length() < 2 {
		return
	}
	days := p.headerDates(rows.First())
	if len(days) == 0 {
		p.Err("week table without usable day headers")
		return
	}
	rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		p.parseRow(row, days, cal)
	})
}

func (p Parser) headerDates(row *goquery.Selection) []time.Time {
	days := make([]time.Time, 0, 5)
	row.Find("td.week_header").Each(func(_ int, s *goquery.Selection) {
		day, err := p.headerDate(s.Text())
		if err != nil {
			p.Err("unusable day header %q: %s", strings.TrimSpace(s.Text()), err)
			// a zero entry keeps the remaining weekdays aligned
			day = time.Time{}
		}
		days = append(days, day)
	})
	return days
}

// headerDate composes "Mo 14.10." and the target year into a full date.
func (p Parser) headerDate(text string) (time.Time, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) < 2 {
		return time.Time{}, fmt.Errorf("missing date token")
	}
	composed := fmt.Sprintf("%s%d", fields[1], p.Year)
	if !dateRe.MatchString(composed) {
		return time.Time{}, fmt.Errorf("invalid date %q", composed)
	}
	return time.ParseInLocation("02.01.2006", composed, time.Local)
}

// parseRow walks the row in groups of three cells per weekday slot. A
// block tail shares its last cell with the next day's group, so it
// advances only two cells; getting this wrong misaligns every
// following day in the row.
func (p Parser) parseRow(row *goquery.Selection, days []time.Time, cal *calendar.Calendar) {
	cells := row.Find("td")
	n := cells.Length()
	i, day := 0, 0
	for i+1 < n && day < len(days) {
		mid := cells.Eq(i + 1)
		switch {
		case mid.HasClass("week_block"):
			if days[day].IsZero() {
				i += 3
				break
			}
			lec, err := p.parseBlock(mid, days[day])
			if err != nil {
				p.Err("skipping block on %s: %s", days[day].Format("02.01.2006"), err)
			} else {
				cal.Add(lec)
				p.Log("added lecture %s", lec)
			}
			i += 3
		case mid.HasClass("week_blocktail"):
			i += 2
		default:
			i += 3
		}
		day++
	}
}

func (p Parser) parseBlock(cell *goquery.Selection, day time.Time) (calendar.Lecture, error) {
	var lec calendar.Lecture

	anchor := cell.Find("a").First()
	if anchor.Length() == 0 {
		return lec, fmt.Errorf("block without anchor element")
	}
	raw := strings.TrimSpace(anchor.Text())
	if len(raw) <= titlePrefixLen {
		return lec, fmt.Errorf("block text too short: %q", raw)
	}
	startTok := raw[:startTokenEnd]
	endTok := raw[endTokenStart:endTokenEnd]
	if !timeRe.MatchString(startTok) {
		return lec, fmt.Errorf("invalid start time %q", startTok)
	}
	if !timeRe.MatchString(endTok) {
		return lec, fmt.Errorf("invalid end time %q", endTok)
	}
	color, err := blockColor(cell)
	if err != nil {
		return lec, err
	}
	room := strings.TrimSpace(cell.Find("span.resource").Last().Text())
	lecturer := strings.TrimSpace(cell.Find("span.person").First().Text())
	if lecturer == "" {
		lecturer = "-"
	}
	lec = calendar.Lecture{
		Appointment: calendar.Appointment{
			Title: strings.TrimSpace(raw[titlePrefixLen:]),
			Start: composeTime(day, startTok),
			End:   composeTime(day, endTok),
			Color: color,
		},
		Room:     room,
		Lecturer: lecturer,
	}
	if !lec.IsValid() {
		return lec, fmt.Errorf("invalid block %s", lec)
	}
	return lec, nil
}

// blockColor extracts the trailing color token of the cell's style
// attribute.
func blockColor(cell *goquery.Selection) (string, error) {
	style, ok := cell.Attr("style")
	if !ok {
		return "", fmt.Errorf("block without style attribute")
	}
	idx := strings.LastIndex(style, "#")
	if idx < 0 || len(style) < idx+7 {
		return "", fmt.Errorf("no color token in style %q", style)
	}
	color := style[idx : idx+7]
	if !calendar.ColorRe.MatchString(color) {
		return "", fmt.Errorf("invalid color %q", color)
	}
	return color, nil
}

func composeTime(day time.Time, token string) time.Time {
	t, _ := time.Parse("15:04", token)
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
}
