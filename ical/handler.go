// Package ical publishes the cached timetable as an iCalendar feed so
// phone and desktop calendars can subscribe to it.
package ical

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"git.sr.ht/~mariusor/hestia/storage"
	"git.sr.ht/~mariusor/hestia/storage/boltdb"
	"github.com/go-chi/chi/v5"
	"github.com/soh335/ical"
)

type handler struct {
	Version string
	path    string
}

func NewHandler(version, path string) handler {
	return handler{Version: version, path: path}
}

func (h handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	year := now.Year()
	if y := chi.URLParam(r, "year"); y != "" {
		yy, err := strconv.Atoi(y)
		if err != nil || yy < 2000 || yy > 9999 {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, "Invalid year %s", y)
			return
		}
		year = yy
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
	duration := start.AddDate(1, 0, 0).Sub(start) - time.Second

	st := boltdb.New(boltdb.Config{Path: h.path})
	lectures, err := st.LoadLectures(storage.DateCursor{T: start, D: duration})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "%s", err)
		return
	}

	cal := ical.NewBasicVCalendar()
	cal.PRODID = fmt.Sprintf("-//hestia//TIMETABLE//DE/%s", h.Version)
	cal.VERSION = "2.0"

	name := "Stundenplan"
	cal.NAME = name
	cal.X_WR_CALNAME = name
	description := fmt.Sprintf("Stundenplan %d", year)
	cal.DESCRIPTION = description
	cal.X_WR_CALDESC = description

	tz := start.Location().String()
	cal.TIMEZONE_ID = tz
	cal.X_WR_TIMEZONE = tz

	cal.REFRESH_INTERVAL = "PT1H"
	cal.X_PUBLISHED_TTL = "PT1H"
	cal.CALSCALE = "GREGORIAN"
	cal.METHOD = "PUBLISH"

	for _, lec := range lectures {
		details := lec.Lecturer
		if lec.Room != "" {
			details = fmt.Sprintf("%s, Raum %s", lec.Lecturer, lec.Room)
		}
		e := &ical.VEvent{
			UID:         fmt.Sprintf("%s-%s", lec.Start.Format("20060102-1504"), lec.Title),
			DTSTAMP:     now,
			DTSTART:     lec.Start,
			DTEND:       lec.End,
			SUMMARY:     lec.Title,
			DESCRIPTION: details,
			TZID:        tz,
		}
		cal.VComponent = append(cal.VComponent, e)
	}

	b := &bytes.Buffer{}
	if err = cal.Encode(b); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "%s", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Write(b.Bytes())
}
