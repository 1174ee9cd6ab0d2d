package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.sr.ht/~mariusor/hestia/api"
	"git.sr.ht/~mariusor/hestia/machine"
)

type fakeFinance struct {
	movers    api.TopMovers
	moversErr error
	overviews map[string]string
}

func (f *fakeFinance) TopMovers() (api.TopMovers, error) {
	return f.movers, f.moversErr
}

func (f *fakeFinance) CompanyOverview(symbol string) (api.Overview, error) {
	name, ok := f.overviews[symbol]
	if !ok {
		return api.Overview{}, errors.New("unknown symbol")
	}
	return api.Overview{Symbol: symbol, Name: name}, nil
}

type enterCounter struct{ n int }

func (c *enterCounter) OnEnter(context.Context) { c.n++ }

func financeMachine(voice *fakeVoice, finance api.Finance, snapshot string) (*machine.Machine, *enterCounter) {
	m := machine.New(nil, nil)
	idle := &enterCounter{}
	m.Register(machine.StateIdle, idle)
	m.Register(machine.StateFinance, &financeHandler{
		m: m, voice: voice, finance: finance, snapshotPath: snapshot,
		log: func(string, ...interface{}) {}, err: func(string, ...interface{}) {},
	})
	return m, idle
}

func quote(ticker, price, change, volume string) api.TickerQuote {
	return api.TickerQuote{Ticker: ticker, Price: price, ChangePercentage: change, Volume: volume}
}

func TestFinanceLiveQuotes(t *testing.T) {
	finance := &fakeFinance{
		movers: api.TopMovers{MostActivelyTraded: []api.TickerQuote{
			quote("AAPL", "190.5", "1.26%", "2500000000"),
			quote("TSLA", "240.123", "-3.04%", "81000000"),
			quote("NVDA", "880", "0.5%", "4500"),
			quote("AMD", "170", "2%", "900"),
		}},
		overviews: map[string]string{"AAPL": "Apple", "TSLA": "Tesla", "NVDA": "Nvidia"},
	}
	voice := &fakeVoice{}
	snapshot := filepath.Join(t.TempDir(), "stocks.json")
	m, idle := financeMachine(voice, finance, snapshot)

	if err := m.Fire(context.Background(), machine.TriggerStart); err != nil {
		t.Fatal(err)
	}

	if got := m.State(); got != machine.StateIdle {
		t.Errorf("state is %s, wanted idle", got)
	}
	if idle.n != 1 {
		t.Errorf("idle entered %d times", idle.n)
	}
	if voice.count("Die drei meistgehandelten Aktien sind Apple, Tesla und Nvidia.") != 1 {
		t.Errorf("missing top three line in %v", voice.spoken)
	}
	joined := strings.Join(voice.spoken, "\n")
	if !strings.Contains(joined, "Apple: 190.50 Dollar, Veränderung 1.3 Prozent, Volumen 2.5 Milliarden.") {
		t.Errorf("missing Apple line in %v", voice.spoken)
	}
	if !strings.Contains(joined, "Tesla: 240.12 Dollar, Veränderung -3.0 Prozent, Volumen 81.0 Millionen.") {
		t.Errorf("missing Tesla line in %v", voice.spoken)
	}
	if strings.Contains(joined, "AMD") {
		t.Errorf("spoke more than three stocks: %v", voice.spoken)
	}

	// fresh data got cached for the next rate limited day
	raw, err := os.ReadFile(snapshot)
	if err != nil {
		t.Fatal(err)
	}
	cached := make([]api.TickerQuote, 0)
	if err = json.Unmarshal(raw, &cached); err != nil {
		t.Fatal(err)
	}
	if len(cached) != 3 || cached[0].Name != "Apple" {
		t.Errorf("unexpected snapshot %+v", cached)
	}
}

func TestFinanceRateLimitFallsBackToSnapshot(t *testing.T) {
	snapshot := filepath.Join(t.TempDir(), "stocks.json")
	cached := []api.TickerQuote{
		{Ticker: "AAPL", Name: "Apple", Price: "190", ChangePercentage: "1%", Volume: "1000000"},
		{Ticker: "TSLA", Name: "Tesla", Price: "240", ChangePercentage: "2%", Volume: "1000000"},
		{Ticker: "NVDA", Name: "Nvidia", Price: "880", ChangePercentage: "3%", Volume: "1000000"},
	}
	raw, _ := json.Marshal(cached)
	if err := os.WriteFile(snapshot, raw, 0600); err != nil {
		t.Fatal(err)
	}

	finance := &fakeFinance{movers: api.TopMovers{Information: api.RateLimitNote}}
	voice := &fakeVoice{}
	m, idle := financeMachine(voice, finance, snapshot)

	if err := m.Fire(context.Background(), machine.TriggerStart); err != nil {
		t.Fatal(err)
	}

	// snapshot order is file order
	if voice.count("Die drei meistgehandelten Aktien sind Apple, Tesla und Nvidia.") != 1 {
		t.Errorf("missing top three line in %v", voice.spoken)
	}
	if idle.n != 1 {
		t.Errorf("idle entered %d times", idle.n)
	}
}

func TestFinanceNoDataAtAll(t *testing.T) {
	finance := &fakeFinance{moversErr: errors.New("timeout")}
	voice := &fakeVoice{}
	m, idle := financeMachine(voice, finance, filepath.Join(t.TempDir(), "missing.json"))

	if err := m.Fire(context.Background(), machine.TriggerStart); err != nil {
		t.Fatal(err)
	}

	if voice.count("Die Börsendaten sind gerade nicht verfügbar, tut mir leid.") != 1 {
		t.Errorf("missing apology in %v", voice.spoken)
	}
	if got := m.State(); got != machine.StateIdle {
		t.Errorf("state is %s", got)
	}
	if idle.n != 1 {
		t.Errorf("idle entered %d times", idle.n)
	}
}

func TestFinanceUnresolvedNameFallsBackToTicker(t *testing.T) {
	finance := &fakeFinance{
		movers: api.TopMovers{MostActivelyTraded: []api.TickerQuote{
			quote("XYZ", "10", "1%", "500"),
		}},
		overviews: map[string]string{},
	}
	voice := &fakeVoice{}
	m, _ := financeMachine(voice, finance, filepath.Join(t.TempDir(), "stocks.json"))

	if err := m.Fire(context.Background(), machine.TriggerStart); err != nil {
		t.Fatal(err)
	}
	if voice.count("Die drei meistgehandelten Aktien sind XYZ.") != 1 {
		t.Errorf("missing line in %v", voice.spoken)
	}
}

func TestFormatVolume(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2500000000", "2.5 Milliarden"},
		{"81000000", "81.0 Millionen"},
		{"4500", "4.5 Tausend"},
		{"900", "900"},
		{"1000", "1.0 Tausend"},
		{"not-a-number", "not-a-number"},
	}
	for _, tc := range tests {
		if got := formatVolume(tc.in); got != tc.want {
			t.Errorf("formatVolume(%q) = %q, wanted %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.26%", "1.3"},
		{"-3.04%", "-3.0"},
		{"0.5", "0.5"},
	}
	for _, tc := range tests {
		if got := formatPercent(tc.in); got != tc.want {
			t.Errorf("formatPercent(%q) = %q, wanted %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := formatAmount("190.5"); got != "190.50" {
		t.Errorf("got %q", got)
	}
	if got := formatAmount("oops"); got != "oops" {
		t.Errorf("got %q", got)
	}
}
