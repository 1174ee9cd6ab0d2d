package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"git.sr.ht/~mariusor/hestia/api"
	"git.sr.ht/~mariusor/hestia/machine"
)

const topCount = 3

type financeHandler struct {
	m            *machine.Machine
	voice        api.Voice
	finance      api.Finance
	snapshotPath string
	log          LogFn
	err          LogFn
}

func (h *financeHandler) OnEnter(ctx context.Context) {
	quotes, fresh := h.loadQuotes()
	if len(quotes) == 0 {
		h.speak("Die Börsendaten sind gerade nicht verfügbar, tut mir leid.")
		fire(h.m, h.err, ctx, machine.TriggerExitFinance)
		return
	}
	if len(quotes) > topCount {
		quotes = quotes[:topCount]
	}
	if fresh {
		h.resolveNames(quotes)
		h.saveSnapshot(quotes)
	}

	names := make([]string, len(quotes))
	for i, q := range quotes {
		names[i] = q.Name
		if names[i] == "" {
			names[i] = q.Ticker
		}
	}
	h.speak(fmt.Sprintf("Die drei meistgehandelten Aktien sind %s.", joinNames(names)))

	for i, q := range quotes {
		h.speak(fmt.Sprintf("%s: %s Dollar, Veränderung %s Prozent, Volumen %s.",
			names[i], formatAmount(q.Price), formatPercent(q.ChangePercentage), formatVolume(q.Volume)))
	}
	fire(h.m, h.err, ctx, machine.TriggerExitFinance)
}

// loadQuotes asks the upstream API first and falls back to the cached
// snapshot when it errors, reports its rate limit exhausted, or comes
// back empty. The boolean reports whether the data is fresh.
func (h *financeHandler) loadQuotes() ([]api.TickerQuote, bool) {
	movers, err := h.finance.TopMovers()
	if err != nil {
		h.err("unable to load top movers: %s", err)
	} else if movers.RateLimited() {
		h.err("finance api rate limit exhausted")
	} else if len(movers.MostActivelyTraded) > 0 {
		return movers.MostActivelyTraded, true
	}

	cached, err := h.loadSnapshot()
	if err != nil {
		h.err("unable to load cached stocks: %s", err)
		return nil, false
	}
	return cached, false
}

func (h *financeHandler) resolveNames(quotes []api.TickerQuote) {
	for i, q := range quotes {
		ov, err := h.finance.CompanyOverview(q.Ticker)
		if err != nil || ov.Name == "" {
			if err != nil {
				h.err("unable to resolve %s: %s", q.Ticker, err)
			}
			quotes[i].Name = q.Ticker
			continue
		}
		quotes[i].Name = ov.Name
	}
}

func (h *financeHandler) loadSnapshot() ([]api.TickerQuote, error) {
	raw, err := os.ReadFile(h.snapshotPath)
	if err != nil {
		return nil, err
	}
	quotes := make([]api.TickerQuote, 0)
	if err = json.Unmarshal(raw, &quotes); err != nil {
		return nil, fmt.Errorf("unable to parse snapshot %s: %w", h.snapshotPath, err)
	}
	return quotes, nil
}

func (h *financeHandler) saveSnapshot(quotes []api.TickerQuote) {
	raw, err := json.Marshal(quotes)
	if err != nil {
		h.err("unable to serialize snapshot: %s", err)
		return
	}
	if err = os.WriteFile(h.snapshotPath, raw, 0600); err != nil {
		h.err("unable to save snapshot: %s", err)
	}
}

func (h *financeHandler) speak(text string) {
	if err := h.voice.Speak(text); err != nil {
		h.err("unable to speak: %s", err)
	}
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return ""
	}
	if len(names) == 1 {
		return names[0]
	}
	return fmt.Sprintf("%s und %s", strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
}

func formatAmount(s string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%.2f", v)
}

func formatPercent(s string) string {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return strings.TrimSuffix(s, "%")
	}
	return fmt.Sprintf("%.1f", v)
}

// formatVolume abbreviates large share volumes for speech; below a
// thousand the literal integer string is kept.
func formatVolume(s string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return s
	}
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1f Milliarden", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1f Millionen", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1f Tausend", v/1e3)
	}
	return strconv.FormatInt(int64(v), 10)
}
