package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"git.sr.ht/~mariusor/hestia/calendar"
	"git.sr.ht/~mariusor/hestia/prefs"
	"git.sr.ht/~mariusor/hestia/storage/boltdb"
)

const weekPage = `<html><body><table class="week_table">
<tr><td class="week_number">42</td><td class="week_header"><nobr>Mo 14.10.</nobr></td><td class="week_header"><nobr>Di 15.10.</nobr></td></tr>
<tr><td></td><td class="week_block" style="background-color: #ff0000;"><a href="#">08:15 -09:45 Mathematik</a><span class="person">Dr. Gauss</span><span class="resource">B1.01</span></td><td></td>
<td></td><td class="week_block" style="background-color: #00ff00;"><a href="#">10:00 -11:30 Physik</a></td><td></td></tr>
</table></body></html>`

var testDay = time.Date(2026, 10, 14, 6, 30, 0, 0, time.Local)

func testClient(t *testing.T, p *prefs.Store) *timetableClient {
	t.Helper()
	noop := func(string, ...interface{}) {}
	c := newTimetableClient(p, filepath.Join(t.TempDir(), boltdb.DefaultFile), noop, noop)
	c.clock = func() time.Time { return testDay }
	return c
}

func timetablePrefs(t *testing.T) *prefs.Store {
	t.Helper()
	p, err := prefs.Load(filepath.Join(t.TempDir(), prefs.DefaultFile))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestTodaysAppointmentsServedFromCache(t *testing.T) {
	c := testClient(t, timetablePrefs(t))

	st := boltdb.New(boltdb.Config{Path: c.storePath})
	cached := calendar.Lecture{
		Appointment: calendar.Appointment{
			Title: "Datenbanken",
			Start: time.Date(2026, 10, 14, 9, 0, 0, 0, time.Local),
			End:   time.Date(2026, 10, 14, 10, 30, 0, 0, time.Local),
			Color: "#00ff00",
		},
		Lecturer: "-",
	}
	if err := st.SaveLectures(cached); err != nil {
		t.Fatal(err)
	}

	// no rapla key configured, a scrape attempt would fail loudly
	cal, err := c.TodaysAppointments()
	if err != nil {
		t.Fatal(err)
	}
	if cal.Len() != 1 {
		t.Fatalf("got %d entries", cal.Len())
	}
	if cal.Entries()[0].(calendar.Lecture).Title != "Datenbanken" {
		t.Errorf("unexpected entry %s", cal.Entries()[0])
	}
}

func TestTodaysAppointmentsScrapesAndCaches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(weekPage))
	}))
	defer srv.Close()

	p := timetablePrefs(t)
	if err := p.Set(prefs.KeyRaplaURL, srv.URL); err != nil {
		t.Fatal(err)
	}
	if err := p.Set(prefs.KeyRaplaKey, "abc"); err != nil {
		t.Fatal(err)
	}
	c := testClient(t, p)

	cal, err := c.TodaysAppointments()
	if err != nil {
		t.Fatal(err)
	}
	// only the Monday lecture belongs to today
	if cal.Len() != 1 {
		t.Fatalf("got %d entries", cal.Len())
	}
	if cal.Entries()[0].(calendar.Lecture).Title != "Mathematik" {
		t.Errorf("unexpected entry %s", cal.Entries()[0])
	}

	// the whole scraped week is cached, so the next call skips the network
	srv.Close()
	again, err := c.TodaysAppointments()
	if err != nil {
		t.Fatal(err)
	}
	if again.Len() != 1 {
		t.Errorf("got %d entries from cache", again.Len())
	}
}

func TestTodaysAppointmentsFailedScrapeIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := timetablePrefs(t)
	if err := p.Set(prefs.KeyRaplaURL, srv.URL); err != nil {
		t.Fatal(err)
	}
	if err := p.Set(prefs.KeyRaplaKey, "abc"); err != nil {
		t.Fatal(err)
	}
	c := testClient(t, p)

	cal, err := c.TodaysAppointments()
	if err == nil {
		t.Fatal("expected an error")
	}
	if cal != nil {
		t.Errorf("expected a nil calendar, got %d entries", cal.Len())
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 10, 14, 0, 0, 1, 0, time.Local)
	b := time.Date(2026, 10, 14, 23, 59, 0, 0, time.Local)
	if !sameDay(a, b) {
		t.Error("same day not recognized")
	}
	if sameDay(a, b.Add(time.Minute)) {
		t.Error("different days matched")
	}
}
