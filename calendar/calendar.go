package calendar

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"
)

// TimeLayout is the fixed timestamp format used in exported records.
const TimeLayout = "2006-01-02_15:04:05"

var ColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Entry is the common surface of everything a Calendar can hold.
type Entry interface {
	StartTime() time.Time
	EndTime() time.Time
	Record() map[string]string
	fmt.Stringer
}

type Appointment struct {
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Color string    `json:"color"`
}

func (a Appointment) StartTime() time.Time { return a.Start }

func (a Appointment) EndTime() time.Time { return a.End }

func (a Appointment) IsValid() bool {
	return a.Start.Before(a.End) && ColorRe.MatchString(a.Color)
}

func (a Appointment) Record() map[string]string {
	return map[string]string{
		"title": a.Title,
		"start": a.Start.Format(TimeLayout),
		"end":   a.End.Format(TimeLayout),
		"color": a.Color,
	}
}

func (a Appointment) String() string {
	return fmt.Sprintf("<%s @ %s - %s>", a.Title, a.Start.Format(TimeLayout), a.End.Format(TimeLayout))
}

// Lecture is an Appointment carrying the room it is held in and the
// person holding it.
type Lecture struct {
	Appointment
	Room     string `json:"room"`
	Lecturer string `json:"lecturer"`
}

func (l Lecture) Record() map[string]string {
	r := l.Appointment.Record()
	r["room"] = l.Room
	r["lecturer"] = l.Lecturer
	return r
}

func (l Lecture) String() string {
	return fmt.Sprintf("<%s [%s, %s] @ %s - %s>", l.Title, l.Room, l.Lecturer,
		l.Start.Format(TimeLayout), l.End.Format(TimeLayout))
}

// Calendar keeps its entries sorted ascending by start time after every
// mutation. Entries are owned by the calendar and never mutated in
// place; a rebuild replaces the whole list.
type Calendar struct {
	entries []Entry
}

func New(entries ...Entry) *Calendar {
	c := &Calendar{}
	c.Add(entries...)
	return c
}

// Add extends the calendar and restores the start-time order.
func (c *Calendar) Add(entries ...Entry) {
	c.entries = append(c.entries, entries...)
	sort.SliceStable(c.entries, func(i, j int) bool {
		return c.entries[i].StartTime().In(time.Local).Before(c.entries[j].StartTime().In(time.Local))
	})
}

func (c *Calendar) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

func (c *Calendar) Entries() []Entry {
	if c == nil {
		return nil
	}
	all := make([]Entry, len(c.entries))
	copy(all, c.entries)
	return all
}

// Next returns the first entry starting strictly after t, relying on
// the sorted order. The boolean is false when no such entry exists.
func (c *Calendar) Next(t time.Time) (Entry, bool) {
	if c == nil {
		return nil, false
	}
	for _, e := range c.entries {
		if e.StartTime().After(t) {
			return e, true
		}
	}
	return nil, false
}

// JSON serializes the entries. A nil calendar serializes the same as
// an empty one.
func (c *Calendar) JSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	records := make([]map[string]string, 0, len(c.entries))
	for _, e := range c.entries {
		records = append(records, e.Record())
	}
	return json.Marshal(records)
}

func (c *Calendar) Save(path string) error {
	raw, err := c.JSON()
	if err != nil {
		return fmt.Errorf("unable to serialize calendar: %w", err)
	}
	if err = os.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("unable to save calendar to %s: %w", path, err)
	}
	return nil
}
