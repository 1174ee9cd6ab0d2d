package api

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/McKael/madon"

	"git.sr.ht/~mariusor/hestia/prefs"
)

const unlisted = "unlisted"

// newNotifier returns a Mastodon-backed notifier when credentials for
// the configured instance exist, and a log-only one otherwise.
func newNotifier(path string, p *prefs.Store, logFn, errFn LogFn) Notifier {
	instance := p.Get(prefs.KeyMastodonInstance)
	if instance == "" {
		return logNotifier{log: logFn}
	}
	app := new(madon.Client)
	if err := loadMastodonCredentials(app, filepath.Join(path, instance)); err != nil {
		errFn("unable to load mastodon credentials for %s: %s", instance, err)
		return logNotifier{log: logFn}
	}
	return &mastodonNotifier{client: app, log: logFn}
}

type mastodonNotifier struct {
	client *madon.Client
	log    LogFn
}

func (n *mastodonNotifier) Notify(message string) error {
	s, err := n.client.PostStatus(message, 0, nil, false, "", unlisted)
	if err != nil {
		return fmt.Errorf("%s: %w", n.client.InstanceURL, err)
	}
	n.log("Post at: %s", s.URI)
	return nil
}

type logNotifier struct {
	log LogFn
}

func (n logNotifier) Notify(message string) error {
	n.log("notification: %s", message)
	return nil
}

func loadMastodonCredentials(c *madon.Client, path string) error {
	f, err := os.OpenFile(path, os.O_RDONLY, 0600)
	if err != nil {
		return fmt.Errorf("unable to load credentials file %s: %w", path, err)
	}
	defer f.Close()
	d := gob.NewDecoder(f)
	return d.Decode(c)
}
