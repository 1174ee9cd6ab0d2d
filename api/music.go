package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"git.sr.ht/~mariusor/hestia/prefs"
)

const spotifyBase = "https://api.spotify.com/v1"

type spotifyClient struct {
	http  *resty.Client
	prefs *prefs.Store
	conf  *oauth2.Config

	mu    sync.Mutex
	token *oauth2.Token
}

func newSpotifyClient(http *resty.Client, p *prefs.Store) *spotifyClient {
	return &spotifyClient{
		http:  http,
		prefs: p,
		conf: &oauth2.Config{
			ClientID:     p.Get(prefs.KeySpotifyClientID),
			ClientSecret: p.Get(prefs.KeySpotifySecret),
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.spotify.com/authorize",
				TokenURL: "https://accounts.spotify.com/api/token",
			},
			Scopes: []string{"user-modify-playback-state"},
		},
	}
}

func (c *spotifyClient) accessToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		c.token = &oauth2.Token{
			AccessToken:  c.prefs.Get(prefs.KeySpotifyAccessToken),
			RefreshToken: c.prefs.Get(prefs.KeySpotifyRefreshToken),
		}
		if exp := c.prefs.Get(prefs.KeySpotifyTokenExpiry); exp != "" {
			if t, err := time.Parse(time.RFC3339, exp); err == nil {
				c.token.Expiry = t
			}
		}
	}
	if c.token.AccessToken == "" && c.token.RefreshToken == "" {
		return "", fmt.Errorf("no spotify token configured")
	}
	if c.token.Valid() {
		return c.token.AccessToken, nil
	}
	tok, err := c.conf.TokenSource(context.Background(), c.token).Token()
	if err != nil {
		return "", fmt.Errorf("unable to refresh spotify token: %w", err)
	}
	c.token = tok
	c.prefs.Set(prefs.KeySpotifyAccessToken, tok.AccessToken)
	c.prefs.Set(prefs.KeySpotifyRefreshToken, tok.RefreshToken)
	c.prefs.Set(prefs.KeySpotifyTokenExpiry, tok.Expiry.Format(time.RFC3339))
	return tok.AccessToken, nil
}

func (c *spotifyClient) StartPlayback(playlistID string) error {
	if playlistID == "" {
		return fmt.Errorf("empty playlist id")
	}
	tok, err := c.accessToken()
	if err != nil {
		return err
	}
	res, err := c.http.R().
		SetAuthToken(tok).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"context_uri": "spotify:playlist:" + playlistID}).
		Put(spotifyBase + "/me/player/play")
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("unable to start playback: %s", res.Status())
	}
	return nil
}

func (c *spotifyClient) PausePlayback() error {
	tok, err := c.accessToken()
	if err != nil {
		return err
	}
	res, err := c.http.R().
		SetAuthToken(tok).
		Put(spotifyBase + "/me/player/pause")
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("unable to pause playback: %s", res.Status())
	}
	return nil
}
