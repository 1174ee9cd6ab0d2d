package cmd

import (
	"fmt"
	"path"
	"time"

	"github.com/urfave/cli"

	"git.sr.ht/~mariusor/hestia/calendar"
	"git.sr.ht/~mariusor/hestia/calendar/rapla"
	"git.sr.ht/~mariusor/hestia/prefs"
	"git.sr.ht/~mariusor/hestia/storage/boltdb"
)

var FetchCmd = cli.Command{
	Name:  "fetch",
	Usage: "Fetches timetable weeks and caches them locally",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "Base URL of the timetable server",
		},
		&cli.StringFlag{
			Name:  "key",
			Usage: "Timetable access key",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Output debug messages",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Don't persist lectures",
		},
		&cli.StringFlag{
			Name:  "start",
			Usage: "Date at which to start",
			Value: defaultStartTime.Format("2006-01-02"),
		},
		&cli.DurationFlag{
			Name:  "end",
			Usage: "Date interval to fetch",
			Value: defaultDuration,
		},
	},
	Action: fetchTimetable,
}

const durationStep = 7 * 24 * time.Hour

func fetchTimetable(c *cli.Context) error {
	debug := c.Bool("debug") || c.GlobalBool("debug")
	dryRun := c.Bool("dry-run")

	base, key, err := timetableSource(c)
	if err != nil {
		return err
	}

	start := defaultStartTime
	if sf := c.String("start"); len(sf) > 0 {
		if sfp, err := time.Parse("2006-01-02", sf); err == nil {
			start = sfp
		}
	}
	duration := c.Duration("end")

	st := boltdb.New(boltdb.Config{
		Path:  path.Join(c.GlobalString("path"), boltdb.DefaultFile),
		LogFn: boltdb.LoggerFn(info),
		ErrFn: boltdb.LoggerFn(errFn),
	})

	logFn := rapla.LogFn(func(string, ...interface{}) {})
	if debug {
		logFn = rapla.LogFn(info)
	}

	date := start
	endDate := start.Add(duration)
	for date.Before(endDate) {
		u, err := rapla.GetCalendarURL(base, key, date)
		if err != nil {
			return fmt.Errorf("unable to build timetable URL: %w", err)
		}
		if debug {
			info("Loading week %s: %s", date.Format("2006-01-02"), u)
		}
		cal, err := rapla.LoadCalendar(u, date.Year(), logFn, rapla.LogFn(errFn))
		if err != nil {
			errFn("Unable to load week %s: %s", date.Format("2006-01-02"), err)
			date = date.Add(durationStep)
			continue
		}
		lectures := make([]calendar.Lecture, 0, cal.Len())
		for _, entry := range cal.Entries() {
			lec, ok := entry.(calendar.Lecture)
			if !ok {
				continue
			}
			if debug {
				info("%s", lec)
			}
			lectures = append(lectures, lec)
		}
		if !dryRun && len(lectures) > 0 {
			if err = st.SaveLectures(lectures...); err != nil {
				errFn("Error saving week %s: %s", date.Format("2006-01-02"), err)
			}
		}
		date = date.Add(durationStep)
	}
	return nil
}

// timetableSource resolves the scrape target from flags first and the
// preferences file second.
func timetableSource(c *cli.Context) (string, string, error) {
	base := c.String("url")
	key := c.String("key")
	if base != "" && key != "" {
		return base, key, nil
	}
	p, err := prefs.Load(path.Join(c.GlobalString("path"), prefs.DefaultFile))
	if err != nil {
		return "", "", fmt.Errorf("unable to load preferences: %w", err)
	}
	if base == "" {
		base = p.Get(prefs.KeyRaplaURL)
	}
	if key == "" {
		key = p.Get(prefs.KeyRaplaKey)
	}
	if base == "" {
		base = rapla.DefaultBaseURI
	}
	if key == "" {
		return "", "", fmt.Errorf("no timetable key configured, pass --key or set %s", prefs.KeyRaplaKey)
	}
	return base, key, nil
}
