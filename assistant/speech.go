package assistant

import (
	"context"
	"strings"
	"time"

	"git.sr.ht/~mariusor/hestia/api"
	"git.sr.ht/~mariusor/hestia/machine"
)

const maxRetries = 3

// command words are substring-matched case-insensitively against the
// recognized text.
var commands = []struct {
	word    string
	trigger machine.Trigger
	reply   string
}{
	{"beenden", machine.TriggerGotoIdle, "Bis bald."},
	{"willkommen", machine.TriggerGotoWelcome, "Starte die Begrüßung."},
	{"finanzen", machine.TriggerGotoFinance, "Hier die Börsenkurse."},
	{"nachrichten", machine.TriggerGotoNews, "Hier die Nachrichten."},
	{"aktivität", machine.TriggerGotoActivity, "Schauen wir auf deinen Tag."},
}

type speechHandler struct {
	m             *machine.Machine
	voice         api.Voice
	log           LogFn
	err           LogFn
	listenTimeout time.Duration
}

func (h *speechHandler) OnEnter(ctx context.Context) {
	h.speak("Was kann ich für dich tun?")

	// Empty input and recognized-but-unmapped input count against the
	// same retry budget.
	retries := 0
	err := h.voice.ListenContinuous(ctx, h.listenTimeout, func(text string) bool {
		if h.dispatch(ctx, text) {
			return true
		}
		retries++
		if retries >= maxRetries {
			h.speak("Ich beende die Spracherkennung.")
			fire(h.m, h.err, ctx, machine.TriggerGotoIdle)
			return true
		}
		h.speak("Das habe ich leider nicht verstanden.")
		return false
	})
	if err != nil && h.m.State() == machine.StateSpeech {
		h.err("listening ended: %s", err)
		fire(h.m, h.err, ctx, machine.TriggerGotoIdle)
	}
}

// dispatch runs one recognition cycle and reports whether a command
// was matched and fired.
func (h *speechHandler) dispatch(ctx context.Context, text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return false
	}
	for _, c := range commands {
		if strings.Contains(lowered, c.word) {
			h.log("recognized command %q", c.word)
			h.speak(c.reply)
			fire(h.m, h.err, ctx, c.trigger)
			return true
		}
	}
	return false
}

func (h *speechHandler) speak(text string) {
	if err := h.voice.Speak(text); err != nil {
		h.err("unable to speak: %s", err)
	}
}
