package cmd

import (
	"fmt"
	"path"
	"time"

	"github.com/urfave/cli"

	"git.sr.ht/~mariusor/hestia/calendar"
	"git.sr.ht/~mariusor/hestia/storage"
	"git.sr.ht/~mariusor/hestia/storage/boltdb"
)

var ListCmd = cli.Command{
	Name:  "list",
	Usage: "Lists already cached lectures",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "start",
			Usage: "Date at which to start",
			Value: now.Format("2006-01-02"),
		},
		&cli.DurationFlag{
			Name:  "end",
			Usage: "Date interval to check",
			Value: defaultDuration,
		},
		&cli.StringFlag{
			Name:  "export",
			Usage: "Write the lectures as JSON to the given file",
		},
	},
	Action: listLectures,
}

func listLectures(c *cli.Context) error {
	start := defaultStartTime
	if sf := c.String("start"); len(sf) > 0 {
		if sfp, err := time.Parse("2006-01-02", sf); err == nil {
			start = sfp
		}
	}
	duration := c.Duration("end")

	st := boltdb.New(boltdb.Config{
		Path: path.Join(c.GlobalString("path"), boltdb.DefaultFile),
	})

	info("Loading lectures for period: %s - %s", start.Format("2006-01-02 Mon, 15:04"), start.Add(duration).Format("2006-01-02 Mon, 15:04"))
	lectures, err := st.LoadLectures(storage.DateCursor{T: start, D: duration})
	if err != nil {
		return fmt.Errorf("unable to load lectures: %w", err)
	}
	if len(lectures) == 0 {
		info("nothing found")
		return nil
	}
	cal := calendar.New()
	for _, lec := range lectures {
		cal.Add(lec)
	}
	for _, entry := range cal.Entries() {
		info("%s", entry)
	}
	if out := c.String("export"); out != "" {
		if err = cal.Save(out); err != nil {
			return fmt.Errorf("unable to export lectures: %w", err)
		}
		info("Wrote %d lectures to %s", cal.Len(), out)
	}
	return nil
}
