package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"git.sr.ht/~mariusor/hestia/api"
	"git.sr.ht/~mariusor/hestia/machine"
)

const (
	maxHeadlines   = 3
	followUpWindow = 10 * time.Second
)

var ordinals = []string{"eins", "zwei", "drei"}

type newsHandler struct {
	m     *machine.Machine
	voice api.Voice
	news  api.News
	llm   api.LLM
	log   LogFn
	err   LogFn
}

func (h *newsHandler) OnEnter(ctx context.Context) {
	headlines, err := h.news.TopHeadlines()
	if err != nil || len(headlines) == 0 {
		if err != nil {
			h.err("unable to load headlines: %s", err)
		}
		h.speak("Die Nachrichten sind gerade nicht verfügbar, tut mir leid.")
		fire(h.m, h.err, ctx, machine.TriggerNewsIdle)
		return
	}
	if len(headlines) > maxHeadlines {
		headlines = headlines[:maxHeadlines]
	}
	for i, hl := range headlines {
		h.speak(fmt.Sprintf("Schlagzeile %s: %s", ordinals[i], hl.Title))
	}
	h.speak("Soll ich eine davon zusammenfassen? Nenne die Nummer, oder sage Assistent für eine Frage.")

	// The whole follow-up is bounded by one wall-clock window:
	// listening, the article fetch and the summary all share it.
	wctx, cancel := context.WithTimeout(ctx, followUpWindow)
	defer cancel()

	reply, err := h.voice.Listen(wctx, followUpWindow)
	if err != nil {
		h.err("unable to listen for a follow-up: %s", err)
		fire(h.m, h.err, ctx, machine.TriggerNewsIdle)
		return
	}
	lowered := strings.ToLower(reply)
	if strings.Contains(lowered, "assistent") {
		fire(h.m, h.err, ctx, machine.TriggerNewsInteract)
		return
	}
	if idx, ok := pickHeadline(lowered, len(headlines)); ok {
		h.summarize(wctx, headlines[idx])
	}
	fire(h.m, h.err, ctx, machine.TriggerNewsIdle)
}

func (h *newsHandler) summarize(ctx context.Context, hl api.Headline) {
	article, err := h.news.Article(ctx, hl.URL)
	if err != nil || article == "" {
		if err != nil {
			h.err("unable to load article %s: %s", hl.URL, err)
		}
		h.speak("Den Artikel konnte ich leider nicht laden.")
		return
	}
	summary, err := h.llm.Summarize(ctx, article)
	if err != nil {
		h.err("unable to summarize article: %s", err)
		h.speak("Die Zusammenfassung hat leider nicht geklappt.")
		return
	}
	h.speak(summary)
}

func pickHeadline(text string, count int) (int, bool) {
	for i := 0; i < count && i < len(ordinals); i++ {
		if strings.Contains(text, ordinals[i]) || strings.Contains(text, fmt.Sprintf("%d", i+1)) {
			return i, true
		}
	}
	return 0, false
}

func (h *newsHandler) speak(text string) {
	if err := h.voice.Speak(text); err != nil {
		h.err("unable to speak: %s", err)
	}
}
