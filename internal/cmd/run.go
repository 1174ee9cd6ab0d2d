package cmd

import (
	"context"
	"path"
	"syscall"

	"git.sr.ht/~mariusor/lw"
	w "git.sr.ht/~mariusor/wrapper"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"git.sr.ht/~mariusor/hestia/api"
	"git.sr.ht/~mariusor/hestia/assistant"
	"git.sr.ht/~mariusor/hestia/machine"
	"git.sr.ht/~mariusor/hestia/prefs"
)

var RunCmd = cli.Command{
	Name:  "run",
	Usage: "Runs the voice assistant",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Output debug messages",
		},
	},
	Action: runAssistant,
}

func runAssistant(c *cli.Context) error {
	logger := lw.Prod()
	if c.Bool("debug") || c.GlobalBool("debug") {
		logger = lw.Dev()
	}

	dataPath := c.GlobalString("path")
	p, err := prefs.Load(path.Join(dataPath, prefs.DefaultFile))
	if err != nil {
		return err
	}

	m := machine.New(machine.LogFn(logger.Debugf), machine.LogFn(logger.Errorf))
	factory := api.NewFactory(api.Config{
		Prefs:    p,
		DataPath: dataPath,
		LogFn:    api.LogFn(logger.Debugf),
		ErrFn:    api.LogFn(logger.Errorf),
	})
	a, err := assistant.New(m, factory, p, assistant.LogFn(logger.Infof), assistant.LogFn(logger.Errorf))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New()
	if _, err = scheduler.AddFunc("* * * * *", a.SleepCheck); err != nil {
		return err
	}

	w.RegisterSignalHandlers(w.SignalHandlers{
		syscall.SIGHUP: func(_ chan int) {
			logger.Infof("SIGHUP received, reloading configuration")
			if err := p.Reload(); err != nil {
				logger.Errorf("unable to reload preferences: %s", err)
			}
		},
		syscall.SIGINT: func(exit chan int) {
			logger.Infof("SIGINT received, stopping")
			exit <- 0
		},
		syscall.SIGTERM: func(exit chan int) {
			logger.Infof("SIGTERM received, force stopping")
			exit <- 0
		},
	}).Exec(func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return a.Run(gctx)
		})
		g.Go(func() error {
			scheduler.Start()
			<-gctx.Done()
			<-scheduler.Stop().Done()
			return nil
		})
		return g.Wait()
	})
	return nil
}
