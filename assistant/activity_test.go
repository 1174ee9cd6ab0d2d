package assistant

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"git.sr.ht/~mariusor/hestia/api"
	"git.sr.ht/~mariusor/hestia/machine"
	"git.sr.ht/~mariusor/hestia/prefs"
)

type fakeFitness struct {
	heart    api.HeartDay
	heartErr error
	steps    api.StepsDay
	stepsErr error
	sleep    map[string][]api.SleepSession
	sleepErr error
}

func (f *fakeFitness) HeartDay(time.Time) (api.HeartDay, error) {
	return f.heart, f.heartErr
}

func (f *fakeFitness) StepsDay(time.Time) (api.StepsDay, error) {
	return f.steps, f.stepsErr
}

func (f *fakeFitness) SleepSessions(date time.Time) ([]api.SleepSession, error) {
	if f.sleepErr != nil {
		return nil, f.sleepErr
	}
	return f.sleep[date.Format("2006-01-02")], nil
}

type fakeMusic struct {
	started []string
	paused  int
	err     error
}

func (f *fakeMusic) StartPlayback(id string) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, id)
	return nil
}

func (f *fakeMusic) PausePlayback() error {
	f.paused++
	return f.err
}

func testPrefs(t *testing.T) *prefs.Store {
	t.Helper()
	p, err := prefs.Load(filepath.Join(t.TempDir(), prefs.DefaultFile))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func activityMachine(t *testing.T, voice *fakeVoice, fitness api.Fitness, music api.Music, p *prefs.Store) *machine.Machine {
	t.Helper()
	m := machine.New(nil, nil)
	noop := func(string, ...interface{}) {}
	m.Register(machine.StateActivity, &activityHandler{
		m: m, voice: voice, fitness: fitness, music: music, prefs: p,
		clock: func() time.Time { return time.Date(2026, 10, 14, 22, 0, 0, 0, time.Local) },
		log:   noop, err: noop,
	})
	return m
}

func TestStressOf(t *testing.T) {
	tests := []struct {
		resting, avg float64
		want         string
	}{
		{70, 45, "sehr entspannt"},
		{70, 59, "sehr entspannt"},
		{70, 60, "entspannt"},
		{70, 70, "entspannt"},
		{70, 80, "entspannt"},
		{70, 81, "gestresst"},
		{70, 85, "gestresst"},
	}
	for _, tc := range tests {
		if got := stressOf(tc.resting, tc.avg); got != tc.want {
			t.Errorf("stressOf(%.0f, %.0f) = %q, wanted %q", tc.resting, tc.avg, got, tc.want)
		}
	}
}

func TestInactiveAverage(t *testing.T) {
	heart := []api.Sample{
		{Time: "08:00", Value: 90}, // walking
		{Time: "09:00", Value: 60},
		{Time: "10:00", Value: 70},
		{Time: "11:00", Value: 62}, // no steps sample at all
	}
	steps := []api.Sample{
		{Time: "08:00", Value: 120},
		{Time: "09:00", Value: 0},
		{Time: "10:00", Value: 0},
	}
	avg, ok := inactiveAverage(heart, steps)
	if !ok {
		t.Fatal("no average computed")
	}
	if want := 64.0; avg != want {
		t.Errorf("avg is %.2f, wanted %.2f", avg, want)
	}
}

func TestInactiveAverageAllMoving(t *testing.T) {
	heart := []api.Sample{{Time: "08:00", Value: 90}}
	steps := []api.Sample{{Time: "08:00", Value: 200}}
	if _, ok := inactiveAverage(heart, steps); ok {
		t.Error("expected no average when every minute has steps")
	}
}

func TestActivityHappyPath(t *testing.T) {
	p := testPrefs(t)
	if err := p.Set(prefs.KeyPlaylistRelaxed, "relaxed-list"); err != nil {
		t.Fatal(err)
	}

	fitness := &fakeFitness{
		heart: api.HeartDay{RestingRate: 70, Intraday: []api.Sample{{Time: "09:00", Value: 68}}},
		steps: api.StepsDay{Intraday: []api.Sample{{Time: "09:00", Value: 0}}},
		sleep: map[string][]api.SleepSession{
			"2026-10-13": {{Start: time.Date(2026, 10, 13, 23, 30, 0, 0, time.Local)}},
			"2026-10-12": {{Start: time.Date(2026, 10, 13, 0, 30, 0, 0, time.Local)}},
		},
	}
	voice := &fakeVoice{}
	music := &fakeMusic{}
	m := activityMachine(t, voice, fitness, music, p)

	if err := m.Fire(context.Background(), machine.TriggerStartActivity); err != nil {
		t.Fatal(err)
	}

	if got := m.State(); got != machine.StateIdle {
		t.Errorf("state is %s, wanted idle", got)
	}
	if voice.count("Dein Ruhepuls liegt bei 70 und dein Puls in Ruhephasen bei 68. Du wirkst heute entspannt.") != 1 {
		t.Errorf("missing stress line in %v", voice.spoken)
	}
	// 23:30 and 00:30 average out to midnight
	if voice.count("In den letzten Tagen bist du im Schnitt um 00:00 eingeschlafen.") != 1 {
		t.Errorf("missing sleep line in %v", voice.spoken)
	}
	if len(music.started) != 1 || music.started[0] != "relaxed-list" {
		t.Errorf("playback started with %v", music.started)
	}
}

func TestActivityPlaylistMatchesStressLevel(t *testing.T) {
	p := testPrefs(t)
	if err := p.Set(prefs.KeyPlaylistStressed, "calm-down-list"); err != nil {
		t.Fatal(err)
	}

	fitness := &fakeFitness{
		heart: api.HeartDay{RestingRate: 60, Intraday: []api.Sample{{Time: "09:00", Value: 95}}},
		steps: api.StepsDay{},
	}
	voice := &fakeVoice{}
	music := &fakeMusic{}
	m := activityMachine(t, voice, fitness, music, p)

	if err := m.Fire(context.Background(), machine.TriggerStartActivity); err != nil {
		t.Fatal(err)
	}
	if len(music.started) != 1 || music.started[0] != "calm-down-list" {
		t.Errorf("playback started with %v", music.started)
	}
}

func TestActivityMissingHeartData(t *testing.T) {
	fitness := &fakeFitness{heartErr: errors.New("api down")}
	voice := &fakeVoice{}
	m := activityMachine(t, voice, fitness, &fakeMusic{}, testPrefs(t))

	if err := m.Fire(context.Background(), machine.TriggerStartActivity); err != nil {
		t.Fatal(err)
	}
	if voice.count("Ich konnte deine Herzdaten leider nicht abrufen.") != 1 {
		t.Errorf("missing apology in %v", voice.spoken)
	}
	if got := m.State(); got != machine.StateIdle {
		t.Errorf("state is %s", got)
	}
}

func TestActivityNoSleepData(t *testing.T) {
	fitness := &fakeFitness{
		heart:    api.HeartDay{RestingRate: 70, Intraday: []api.Sample{{Time: "09:00", Value: 68}}},
		sleepErr: errors.New("api down"),
	}
	voice := &fakeVoice{}
	m := activityMachine(t, voice, fitness, &fakeMusic{}, testPrefs(t))

	if err := m.Fire(context.Background(), machine.TriggerStartActivity); err != nil {
		t.Fatal(err)
	}
	if voice.count("Zu deinem Schlaf habe ich leider keine Daten gefunden.") != 1 {
		t.Errorf("missing sleep apology in %v", voice.spoken)
	}
}

func TestAverageSleepStartWrapsMidnight(t *testing.T) {
	fitness := &fakeFitness{
		sleep: map[string][]api.SleepSession{
			"2026-10-13": {{Start: time.Date(2026, 10, 13, 23, 0, 0, 0, time.Local)}},
			"2026-10-12": {{Start: time.Date(2026, 10, 13, 1, 0, 0, 0, time.Local)}},
		},
	}
	h := &activityHandler{
		fitness: fitness,
		err:     func(string, ...interface{}) {},
	}
	avg, ok := h.averageSleepStart(time.Date(2026, 10, 14, 22, 0, 0, 0, time.Local))
	if !ok {
		t.Fatal("no average")
	}
	if got := avg.Format("15:04"); got != "00:00" {
		t.Errorf("average is %s, wanted 00:00", got)
	}
}
