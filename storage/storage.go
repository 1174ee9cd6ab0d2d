package storage

import (
	"time"

	"git.sr.ht/~mariusor/hestia/calendar"
)

type DateCursor struct {
	T time.Time
	D time.Duration
}

func Cursor(st time.Time, d time.Duration) DateCursor {
	return DateCursor{
		T: st,
		D: d,
	}
}

type Saver interface {
	SaveLectures(...calendar.Lecture) error
}

type Loader interface {
	LoadLectures(DateCursor) ([]calendar.Lecture, error)
}
