package assistant

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"git.sr.ht/~mariusor/hestia/api"
	"git.sr.ht/~mariusor/hestia/calendar"
	"git.sr.ht/~mariusor/hestia/machine"
	"git.sr.ht/~mariusor/hestia/prefs"
)

const defaultTransitMinutes = 30

type welcomeHandler struct {
	m         *machine.Machine
	prefs     *prefs.Store
	voice     api.Voice
	weather   api.Weather
	timetable api.Timetable
	notify    api.Notifier
	log       LogFn
	err       LogFn
	clock     func() time.Time
}

func (h *welcomeHandler) OnEnter(ctx context.Context) {
	now := h.clock()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	cal, err := h.timetable.TodaysAppointments()
	if err != nil {
		h.err("unable to load timetable: %s", err)
	}

	var first calendar.Entry
	if cal != nil {
		first, _ = cal.Next(dayStart)
	}

	wake := h.wakeTime(now, first)
	h.speak(fmt.Sprintf("Guten Morgen! Dein Wecker ist auf %s gestellt.", wake.Format("15:04")))
	if err = h.notify.Notify(fmt.Sprintf("Wecker gestellt auf %s", wake.Format("15:04"))); err != nil {
		h.err("unable to send wake notification: %s", err)
	}

	h.speakWeather(now)

	switch {
	case cal == nil:
		h.speak("Deinen Stundenplan konnte ich leider nicht laden.")
	case first == nil:
		h.speak("Du hast heute keine Termine.")
	default:
		line := fmt.Sprintf("Dein erster Termin %q beginnt um %s.", titleOf(first), first.StartTime().Format("15:04"))
		if lec, ok := first.(calendar.Lecture); ok && lec.Room != "" {
			line = fmt.Sprintf("Dein erster Termin %q beginnt um %s in Raum %s.", lec.Title, lec.Start.Format("15:04"), lec.Room)
		}
		h.speak(line)
	}

	yes, err := h.voice.AskYesNo("Möchtest du die Nachrichten hören?")
	if err != nil {
		h.err("unable to get an answer: %s", err)
		fire(h.m, h.err, ctx, machine.TriggerExit)
		return
	}
	if yes {
		fire(h.m, h.err, ctx, machine.TriggerMorningNews)
		return
	}
	fire(h.m, h.err, ctx, machine.TriggerInteraction)
}

// wakeTime subtracts the estimated transit duration from the first
// appointment, clipped so it is never later than the configured
// default wake time.
func (h *welcomeHandler) wakeTime(now time.Time, first calendar.Entry) time.Time {
	def, err := timeOfDayOn(h.prefs.Get(prefs.KeyDefaultAlarmTime), now)
	if err != nil {
		h.err("unusable default alarm time: %s", err)
		def = time.Date(now.Year(), now.Month(), now.Day(), 7, 0, 0, 0, now.Location())
	}
	if first == nil {
		return def
	}
	transit := defaultTransitMinutes
	if m, err := strconv.Atoi(h.prefs.Get(prefs.KeyTransitMinutes)); err == nil && m >= 0 {
		transit = m
	}
	wake := first.StartTime().Add(-time.Duration(transit) * time.Minute)
	if wake.After(def) {
		return def
	}
	return wake
}

func (h *welcomeHandler) speakWeather(now time.Time) {
	city := h.prefs.Get(prefs.KeyHomeLocation)
	forecast, err := h.weather.DailyForecast(city, now)
	if err != nil {
		h.err("unable to load forecast: %s", err)
		h.speak("Die Wettervorhersage ist gerade nicht verfügbar.")
		return
	}
	line := fmt.Sprintf("Heute werden es %.0f bis %.0f Grad, überwiegend %s.",
		forecast.MinTemp, forecast.MaxTemp, forecast.Condition)
	if current, err := h.weather.Current(city); err == nil {
		line = fmt.Sprintf("%s Aktuell sind es %.0f Grad.", line, current.Temp)
	}
	h.speak(line)
}

func (h *welcomeHandler) speak(text string) {
	if err := h.voice.Speak(text); err != nil {
		h.err("unable to speak: %s", err)
	}
}

func titleOf(e calendar.Entry) string {
	if lec, ok := e.(calendar.Lecture); ok {
		return lec.Title
	}
	if app, ok := e.(calendar.Appointment); ok {
		return app.Title
	}
	return e.String()
}
