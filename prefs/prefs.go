package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

const DefaultFile = "prefs.yml"

// Keys the assistant reads. The settings surface is the only writer of
// the user-facing ones.
const (
	KeyDefaultAlarmTime   = "default_alarm_time"
	KeySleepTime          = "sleep_time"
	KeyMicID              = "mic_id"
	KeyHomeLocation       = "home_location"
	KeyDefaultDestination = "default_destination"
	KeyTransitMinutes     = "transit_minutes"
	KeyFuelType           = "fuel_type"
	KeyFuelRadius         = "fuel_radius"

	KeyRaplaURL = "rapla_url"
	KeyRaplaKey = "rapla_key"

	KeyWeatherAPIKey = "weather_api_key"
	KeyFinanceAPIKey = "finance_api_key"
	KeyNewsAPIKey    = "news_api_key"
	KeyNewsCountry   = "news_country"

	KeyLLMURL   = "llm_url"
	KeyLLMModel = "llm_model"

	KeyFitbitClientID     = "fitbit_client_id"
	KeyFitbitClientSecret = "fitbit_client_secret"
	KeyFitbitAccessToken  = "fitbit_access_token"
	KeyFitbitRefreshToken = "fitbit_refresh_token"
	KeyFitbitTokenExpiry  = "fitbit_token_expiry"

	KeySpotifyClientID     = "spotify_client_id"
	KeySpotifySecret       = "spotify_client_secret"
	KeySpotifyAccessToken  = "spotify_access_token"
	KeySpotifyRefreshToken = "spotify_refresh_token"
	KeySpotifyTokenExpiry  = "spotify_token_expiry"

	KeyMastodonInstance = "mastodon_instance"

	KeyPlaylistVeryRelaxed = "playlist_very_relaxed"
	KeyPlaylistRelaxed     = "playlist_relaxed"
	KeyPlaylistStressed    = "playlist_stressed"
)

func defaults() map[string]string {
	return map[string]string{
		KeyDefaultAlarmTime:   "07:00",
		KeySleepTime:          "22:00",
		KeyMicID:              "0",
		KeyHomeLocation:       "Stuttgart",
		KeyDefaultDestination: "Stuttgart",
		KeyTransitMinutes:     "30",
		KeyFuelType:           "e10",
		KeyFuelRadius:         "5",
		KeyNewsCountry:        "de",
		KeyLLMURL:             "http://localhost:11434",
		KeyLLMModel:           "llama3",
	}
}

// Store owns the preference mapping. All access goes through Get/Set
// under a lock; the settings surface and the state handlers never
// share the map by reference.
type Store struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
	subs   map[string][]func(string)
}

// Load reads the YAML preferences file, creating it with defaults on
// first run.
func Load(path string) (*Store, error) {
	s := &Store{
		path:   path,
		values: defaults(),
		subs:   make(map[string][]func(string)),
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, s.save()
		}
		return nil, fmt.Errorf("unable to load preferences %s: %w", path, err)
	}
	stored := make(map[string]string)
	if err = yaml.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("unable to parse preferences %s: %w", path, err)
	}
	for k, v := range stored {
		s.values[k] = v
	}
	return s, nil
}

func (s *Store) Get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

// Set persists the new value and notifies subscribers of the key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	subs := append([]func(string){}, s.subs[key]...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
	return s.save()
}

// Reload re-reads the preferences file into the live store and
// notifies subscribers of every key whose value changed on disk.
func (s *Store) Reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("unable to reload preferences %s: %w", s.path, err)
	}
	stored := make(map[string]string)
	if err = yaml.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("unable to parse preferences %s: %w", s.path, err)
	}
	values := defaults()
	for k, v := range stored {
		values[k] = v
	}

	type change struct {
		value string
		subs  []func(string)
	}
	s.mu.Lock()
	changed := make([]change, 0)
	for k, v := range values {
		if s.values[k] != v {
			changed = append(changed, change{value: v, subs: s.subs[k]})
		}
	}
	s.values = values
	s.mu.Unlock()

	for _, c := range changed {
		for _, fn := range c.subs {
			fn(c.value)
		}
	}
	return nil
}

// Subscribe registers fn to run after every Set of key.
func (s *Store) Subscribe(key string, fn func(value string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[key] = append(s.subs[key], fn)
}

func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) save() error {
	s.mu.RLock()
	raw, err := yaml.Marshal(s.values)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("unable to serialize preferences: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
