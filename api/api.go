// Package api holds the capability surfaces the state handlers depend
// on, and the factory through which they acquire client handles by
// kind. Handlers never construct concrete clients themselves.
package api

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"git.sr.ht/~mariusor/hestia/calendar"
	"git.sr.ht/~mariusor/hestia/prefs"
)

type LogFn func(string, ...interface{})

type Kind string

const (
	KindWeather      Kind = "weather"
	KindFinance      Kind = "finance"
	KindTTS          Kind = "tts"
	KindFitbit       Kind = "fitbit"
	KindSpotify      Kind = "spotify"
	KindNews         Kind = "news"
	KindTimetable    Kind = "rapla"
	KindNotification Kind = "notification"
	KindLLM          Kind = "llm"
)

type UnsupportedKindError struct {
	Kind Kind
}

func (e UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported api kind %q", e.Kind)
}

type Forecast struct {
	MinTemp   float64
	MaxTemp   float64
	Condition string
}

type Conditions struct {
	Temp float64
}

type Weather interface {
	DailyForecast(city string, date time.Time) (Forecast, error)
	Current(city string) (Conditions, error)
}

type TickerQuote struct {
	Ticker           string `json:"ticker"`
	Name             string `json:"name,omitempty"`
	Price            string `json:"price"`
	ChangeAmount     string `json:"change_amount"`
	ChangePercentage string `json:"change_percentage"`
	Volume           string `json:"volume"`
}

type TopMovers struct {
	Information        string        `json:"Information"`
	MostActivelyTraded []TickerQuote `json:"most_actively_traded"`
}

type Overview struct {
	Symbol string `json:"Symbol"`
	Name   string `json:"Name"`
}

type Finance interface {
	TopMovers() (TopMovers, error)
	CompanyOverview(symbol string) (Overview, error)
}

type Voice interface {
	Speak(text string) error
	// Listen returns the recognized text of one listen cycle, or the
	// empty string when nothing intelligible arrived before timeout
	// or ctx ended.
	Listen(ctx context.Context, timeout time.Duration) (string, error)
	// ListenContinuous runs one recognition cycle per callback
	// invocation until fn reports it is done or ctx ends.
	ListenContinuous(ctx context.Context, timeout time.Duration, fn func(text string) bool) error
	AskYesNo(prompt string) (bool, error)
}

type Sample struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

type HeartDay struct {
	RestingRate float64
	Intraday    []Sample
}

type StepsDay struct {
	Intraday []Sample
}

type SleepSession struct {
	Start time.Time
}

type Fitness interface {
	HeartDay(date time.Time) (HeartDay, error)
	StepsDay(date time.Time) (StepsDay, error)
	SleepSessions(date time.Time) ([]SleepSession, error)
}

type Music interface {
	StartPlayback(playlistID string) error
	PausePlayback() error
}

type Headline struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type News interface {
	TopHeadlines() ([]Headline, error)
	Article(ctx context.Context, url string) (string, error)
}

type LLM interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type Notifier interface {
	Notify(message string) error
}

type Timetable interface {
	// TodaysAppointments returns a nil calendar on fetch failure,
	// which is distinct from an empty one.
	TodaysAppointments() (*calendar.Calendar, error)
}

type Config struct {
	Prefs    *prefs.Store
	DataPath string
	LogFn    LogFn
	ErrFn    LogFn
}

// Factory hands out one long-lived client per kind; repeated Create
// calls return the same handle.
type Factory struct {
	prefs *prefs.Store
	path  string
	log   LogFn
	err   LogFn
	http  *resty.Client

	mu    sync.Mutex
	cache map[Kind]interface{}
}

func NewFactory(c Config) *Factory {
	f := &Factory{
		prefs: c.Prefs,
		path:  c.DataPath,
		log:   c.LogFn,
		err:   c.ErrFn,
		http:  resty.New().SetTimeout(15 * time.Second),
		cache: make(map[Kind]interface{}),
	}
	if f.log == nil {
		f.log = func(string, ...interface{}) {}
	}
	if f.err == nil {
		f.err = func(string, ...interface{}) {}
	}
	return f
}

// Create returns the client handle for kind, building it on first use.
// An unknown kind is a configuration error.
func (f *Factory) Create(kind Kind) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cl, ok := f.cache[kind]; ok {
		return cl, nil
	}
	var cl interface{}
	switch kind {
	case KindWeather:
		cl = newWeatherClient(f.http, f.prefs)
	case KindFinance:
		cl = newFinanceClient(f.http, f.prefs)
	case KindTTS:
		cl = newConsoleVoice(f.log)
	case KindFitbit:
		cl = newFitbitClient(f.http, f.prefs)
	case KindSpotify:
		cl = newSpotifyClient(f.http, f.prefs)
	case KindNews:
		cl = newNewsClient(f.http, f.prefs)
	case KindTimetable:
		cl = newTimetableClient(f.prefs, filepath.Join(f.path, "timetable.bdb"), f.log, f.err)
	case KindNotification:
		cl = newNotifier(f.path, f.prefs, f.log, f.err)
	case KindLLM:
		cl = newLLMClient(f.http, f.prefs)
	default:
		return nil, UnsupportedKindError{Kind: kind}
	}
	f.cache[kind] = cl
	return cl, nil
}

func (f *Factory) Weather() (Weather, error) {
	cl, err := f.Create(KindWeather)
	if err != nil {
		return nil, err
	}
	return cl.(Weather), nil
}

func (f *Factory) Finance() (Finance, error) {
	cl, err := f.Create(KindFinance)
	if err != nil {
		return nil, err
	}
	return cl.(Finance), nil
}

func (f *Factory) Voice() (Voice, error) {
	cl, err := f.Create(KindTTS)
	if err != nil {
		return nil, err
	}
	return cl.(Voice), nil
}

func (f *Factory) Fitness() (Fitness, error) {
	cl, err := f.Create(KindFitbit)
	if err != nil {
		return nil, err
	}
	return cl.(Fitness), nil
}

func (f *Factory) Music() (Music, error) {
	cl, err := f.Create(KindSpotify)
	if err != nil {
		return nil, err
	}
	return cl.(Music), nil
}

func (f *Factory) News() (News, error) {
	cl, err := f.Create(KindNews)
	if err != nil {
		return nil, err
	}
	return cl.(News), nil
}

func (f *Factory) LLM() (LLM, error) {
	cl, err := f.Create(KindLLM)
	if err != nil {
		return nil, err
	}
	return cl.(LLM), nil
}

func (f *Factory) Notifier() (Notifier, error) {
	cl, err := f.Create(KindNotification)
	if err != nil {
		return nil, err
	}
	return cl.(Notifier), nil
}

func (f *Factory) Timetable() (Timetable, error) {
	cl, err := f.Create(KindTimetable)
	if err != nil {
		return nil, err
	}
	return cl.(Timetable), nil
}

// SnapshotPath is where the finance fallback snapshot lives.
func (f *Factory) SnapshotPath() string {
	return filepath.Join(f.path, "stocks.json")
}
