// Package assistant owns the per-state behavior of the interaction
// controller. Handlers are built once, acquire their external clients
// through the api factory, and are reused across state visits.
package assistant

import (
	"context"
	"fmt"
	"time"

	"git.sr.ht/~mariusor/hestia/api"
	"git.sr.ht/~mariusor/hestia/machine"
	"git.sr.ht/~mariusor/hestia/prefs"
)

type LogFn func(string, ...interface{})

const (
	startupDelay  = 5 * time.Second
	listenTimeout = 15 * time.Second
)

type Assistant struct {
	m     *machine.Machine
	prefs *prefs.Store
	music api.Music
	log   LogFn
	err   LogFn
	clock func() time.Time
}

// New resolves every capability the handlers need from the factory and
// registers one handler per state on m.
func New(m *machine.Machine, factory *api.Factory, p *prefs.Store, logFn, errFn LogFn) (*Assistant, error) {
	if logFn == nil {
		logFn = func(string, ...interface{}) {}
	}
	if errFn == nil {
		errFn = func(string, ...interface{}) {}
	}
	voice, err := factory.Voice()
	if err != nil {
		return nil, fmt.Errorf("unable to build voice client: %w", err)
	}
	weather, err := factory.Weather()
	if err != nil {
		return nil, fmt.Errorf("unable to build weather client: %w", err)
	}
	timetable, err := factory.Timetable()
	if err != nil {
		return nil, fmt.Errorf("unable to build timetable client: %w", err)
	}
	finance, err := factory.Finance()
	if err != nil {
		return nil, fmt.Errorf("unable to build finance client: %w", err)
	}
	fitness, err := factory.Fitness()
	if err != nil {
		return nil, fmt.Errorf("unable to build fitness client: %w", err)
	}
	music, err := factory.Music()
	if err != nil {
		return nil, fmt.Errorf("unable to build music client: %w", err)
	}
	news, err := factory.News()
	if err != nil {
		return nil, fmt.Errorf("unable to build news client: %w", err)
	}
	llm, err := factory.LLM()
	if err != nil {
		return nil, fmt.Errorf("unable to build llm client: %w", err)
	}
	notifier, err := factory.Notifier()
	if err != nil {
		return nil, fmt.Errorf("unable to build notifier: %w", err)
	}

	a := &Assistant{
		m:     m,
		prefs: p,
		music: music,
		log:   logFn,
		err:   errFn,
		clock: time.Now,
	}

	m.Register(machine.StateIdle, &idleHandler{m: m, log: logFn})
	m.Register(machine.StateWelcome, &welcomeHandler{
		m: m, prefs: p, voice: voice, weather: weather, timetable: timetable,
		notify: notifier, log: logFn, err: errFn, clock: time.Now,
	})
	m.Register(machine.StateSpeech, &speechHandler{
		m: m, voice: voice, log: logFn, err: errFn, listenTimeout: listenTimeout,
	})
	m.Register(machine.StateNews, &newsHandler{
		m: m, voice: voice, news: news, llm: llm, log: logFn, err: errFn,
	})
	m.Register(machine.StateFinance, &financeHandler{
		m: m, voice: voice, finance: finance, snapshotPath: factory.SnapshotPath(),
		log: logFn, err: errFn,
	})
	m.Register(machine.StateActivity, &activityHandler{
		m: m, voice: voice, fitness: fitness, music: music, prefs: p,
		log: logFn, err: errFn, clock: time.Now,
	})
	return a, nil
}

func (a *Assistant) Run(ctx context.Context) error {
	return a.m.Run(ctx)
}

// SleepCheck runs once a minute. At the configured sleep time it hands
// the activity trigger to the machine's queue; one hour later it
// pauses whatever playback the activity state may have started.
func (a *Assistant) SleepCheck() {
	now := a.clock()
	sleepAt, err := timeOfDayOn(a.prefs.Get(prefs.KeySleepTime), now)
	if err != nil {
		a.err("unusable sleep time preference: %s", err)
		return
	}
	switch {
	case sameMinute(now, sleepAt):
		a.m.Enqueue(machine.TriggerStartActivity)
	case sameMinute(now, sleepAt.Add(time.Hour)):
		if err = a.music.PausePlayback(); err != nil {
			a.err("unable to pause playback: %s", err)
		}
	}
}

// idleHandler arms the one-shot start latch on the very first
// activation; every later return to idle is just rest.
type idleHandler struct {
	m       *machine.Machine
	log     LogFn
	started bool
}

func (h *idleHandler) OnEnter(ctx context.Context) {
	if !h.started {
		h.started = true
		h.log("arming startup trigger")
		go func() {
			select {
			case <-ctx.Done():
			case <-time.After(startupDelay):
				h.m.Enqueue(machine.TriggerStart)
			}
		}()
		return
	}
	h.log("resting")
}

func fire(m *machine.Machine, errFn LogFn, ctx context.Context, t machine.Trigger) {
	if err := m.Fire(ctx, t); err != nil {
		errFn("unable to fire %s: %s", t, err)
	}
}

// timeOfDayOn places an "HH:MM" preference value on day's date.
func timeOfDayOn(hhmm string, day time.Time) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

func sameMinute(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay() &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute()
}
