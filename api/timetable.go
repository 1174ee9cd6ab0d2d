package api

import (
	"time"

	"git.sr.ht/~mariusor/hestia/calendar"
	"git.sr.ht/~mariusor/hestia/calendar/rapla"
	"git.sr.ht/~mariusor/hestia/prefs"
	"git.sr.ht/~mariusor/hestia/storage"
	"git.sr.ht/~mariusor/hestia/storage/boltdb"
)

type timetableClient struct {
	prefs     *prefs.Store
	storePath string
	log       LogFn
	err       LogFn
	clock     func() time.Time
}

func newTimetableClient(p *prefs.Store, storePath string, logFn, errFn LogFn) *timetableClient {
	return &timetableClient{
		prefs:     p,
		storePath: storePath,
		log:       logFn,
		err:       errFn,
		clock:     time.Now,
	}
}

// TodaysAppointments serves today's lectures from the local store when
// present, scraping the timetable page otherwise. A failed scrape
// yields a nil calendar.
func (c *timetableClient) TodaysAppointments() (*calendar.Calendar, error) {
	now := c.clock()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	st := boltdb.New(boltdb.Config{
		Path:  c.storePath,
		LogFn: boltdb.LoggerFn(c.log),
		ErrFn: boltdb.LoggerFn(c.err),
	})
	if cached, err := st.LoadLectures(storage.Cursor(dayStart, 24*time.Hour-time.Second)); err == nil && len(cached) > 0 {
		cal := calendar.New()
		for _, lec := range cached {
			cal.Add(lec)
		}
		return cal, nil
	}

	u, err := rapla.GetCalendarURL(c.prefs.Get(prefs.KeyRaplaURL), c.prefs.Get(prefs.KeyRaplaKey), now)
	if err != nil {
		return nil, err
	}
	scraped, err := rapla.LoadCalendar(u, now.Year(), rapla.LogFn(c.log), rapla.LogFn(c.err))
	if err != nil {
		c.err("unable to fetch timetable: %s", err)
		return nil, err
	}

	today := calendar.New()
	lectures := make([]calendar.Lecture, 0)
	for _, e := range scraped.Entries() {
		lec, ok := e.(calendar.Lecture)
		if !ok {
			continue
		}
		lectures = append(lectures, lec)
		if sameDay(lec.Start, now) {
			today.Add(lec)
		}
	}
	if len(lectures) > 0 {
		if err = st.SaveLectures(lectures...); err != nil {
			c.err("unable to cache timetable: %s", err)
		}
	}
	return today, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
