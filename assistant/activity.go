package assistant

import (
	"context"
	"fmt"
	"time"

	"git.sr.ht/~mariusor/hestia/api"
	"git.sr.ht/~mariusor/hestia/machine"
	"git.sr.ht/~mariusor/hestia/prefs"
)

const sleepHistoryDays = 7

type activityHandler struct {
	m       *machine.Machine
	voice   api.Voice
	fitness api.Fitness
	music   api.Music
	prefs   *prefs.Store
	clock   func() time.Time
	log     LogFn
	err     LogFn
}

func (h *activityHandler) OnEnter(ctx context.Context) {
	now := h.clock()

	heart, err := h.fitness.HeartDay(now)
	if err != nil {
		h.err("unable to load heart data: %s", err)
		h.speak("Ich konnte deine Herzdaten leider nicht abrufen.")
		fire(h.m, h.err, ctx, machine.TriggerActivityIdle)
		return
	}
	steps, err := h.fitness.StepsDay(now)
	if err != nil {
		h.err("unable to load step data: %s", err)
		steps = api.StepsDay{}
	}

	avgInactive, ok := inactiveAverage(heart.Intraday, steps.Intraday)
	if !ok || heart.RestingRate <= 0 {
		h.speak("Ich habe heute zu wenig Daten, um dein Stresslevel zu bestimmen.")
		fire(h.m, h.err, ctx, machine.TriggerActivityIdle)
		return
	}

	level := stressOf(heart.RestingRate, avgInactive)
	h.speak(fmt.Sprintf("Dein Ruhepuls liegt bei %.0f und dein Puls in Ruhephasen bei %.0f. Du wirkst heute %s.",
		heart.RestingRate, avgInactive, level))

	if avg, ok := h.averageSleepStart(now); ok {
		h.speak(fmt.Sprintf("In den letzten Tagen bist du im Schnitt um %s eingeschlafen.", avg.Format("15:04")))
	} else {
		h.speak("Zu deinem Schlaf habe ich leider keine Daten gefunden.")
	}

	if id := h.prefs.Get(playlistKey(level)); id != "" {
		if err = h.music.StartPlayback(id); err != nil {
			h.err("unable to start playback: %s", err)
			h.speak("Die Musik konnte ich leider nicht starten.")
		} else {
			h.speak("Ich habe eine passende Playlist für dich gestartet.")
		}
	}
	fire(h.m, h.err, ctx, machine.TriggerActivityIdle)
}

func (h *activityHandler) speak(text string) {
	if err := h.voice.Speak(text); err != nil {
		h.err("unable to speak: %s", err)
	}
}

// inactiveAverage averages heart samples taken while no steps were
// recorded. A minute with no matching steps sample counts as inactive.
func inactiveAverage(heart, steps []api.Sample) (float64, bool) {
	moving := make(map[string]bool, len(steps))
	for _, s := range steps {
		if s.Value > 0 {
			moving[s.Time] = true
		}
	}
	sum, n := 0.0, 0
	for _, s := range heart {
		if moving[s.Time] {
			continue
		}
		sum += s.Value
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func stressOf(resting, avgInactive float64) string {
	diff := avgInactive - resting
	switch {
	case diff < -10:
		return "sehr entspannt"
	case diff > 10:
		return "gestresst"
	}
	return "entspannt"
}

func playlistKey(level string) string {
	switch level {
	case "sehr entspannt":
		return prefs.KeyPlaylistVeryRelaxed
	case "gestresst":
		return prefs.KeyPlaylistStressed
	}
	return prefs.KeyPlaylistRelaxed
}

// averageSleepStart averages the fall-asleep time over the last week.
// Times are folded onto minutes since noon so sessions on either side
// of midnight average sensibly.
func (h *activityHandler) averageSleepStart(now time.Time) (time.Time, bool) {
	sum, n := 0, 0
	for i := 1; i <= sleepHistoryDays; i++ {
		day := now.AddDate(0, 0, -i)
		sessions, err := h.fitness.SleepSessions(day)
		if err != nil {
			h.err("unable to load sleep data for %s: %s", day.Format("2006-01-02"), err)
			continue
		}
		for _, s := range sessions {
			min := s.Start.Hour()*60 + s.Start.Minute()
			// fold onto a noon-to-noon axis
			min = (min + 12*60) % (24 * 60)
			sum += min
			n++
		}
	}
	if n == 0 {
		return time.Time{}, false
	}
	avg := (sum/n + 12*60) % (24 * 60)
	return time.Date(now.Year(), now.Month(), now.Day(), avg/60, avg%60, 0, 0, now.Location()), true
}
