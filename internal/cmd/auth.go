package cmd

import (
	"encoding/gob"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"time"

	"github.com/McKael/madon"
	"github.com/urfave/cli"

	"git.sr.ht/~mariusor/hestia/prefs"
)

const ExecOpenCmd = "xdg-open"

var (
	AppWebsite = "https://git.sr.ht/~mariusor/hestia"
	AppScopes  = []string{"read+write"}
)

var AuthorizeCmd = cli.Command{
	Name:    "auth",
	Aliases: []string{"authorize"},
	Usage:   "Authorizes the assistant against a Mastodon instance",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "key",
			Usage: "Client application key",
		},
		&cli.StringFlag{
			Name:  "secret",
			Usage: "Client application secret",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "Personal access token",
		},
		&cli.StringFlag{
			Name:  "instance",
			Usage: "The instance to authenticate against",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Don't start the browser based authorization flow",
		},
	},
	Action: authorize,
}

func authorize(c *cli.Context) error {
	instance := c.String("instance")
	if instance == "" {
		p, err := prefs.Load(path.Join(c.GlobalString("path"), prefs.DefaultFile))
		if err != nil {
			return err
		}
		instance = p.Get(prefs.KeyMastodonInstance)
	}
	if instance == "" {
		return fmt.Errorf("no instance given, pass --instance or set %s", prefs.KeyMastodonInstance)
	}

	getTok := func() (string, error) {
		return promptValue("Paste authorization code:", true)
	}
	client, err := CheckMastodonCredentialsFile(c.GlobalString("path"), c.String("key"), c.String("secret"),
		c.String("token"), instance, c.Bool("dry-run"), getTok)
	if err != nil {
		return err
	}
	info("Success, authorized client for: %s", client.InstanceURL)
	return nil
}

func CheckMastodonCredentialsFile(path, key, secret, token, instance string, dryRun bool, getAccessTokenFn func() (string, error)) (*madon.Client, error) {
	app := new(madon.Client)
	credFile := filepath.Join(path, instance)
	if err := loadMastodonCredentials(app, credFile); err != nil {
		if len(key) > 0 && len(secret) > 0 {
			app.ID = key
			app.Secret = secret
			app.Name = AppName
			app.InstanceURL = "https://" + instance
			app.APIBase = app.InstanceURL + "/api/v1"
			app.UserToken = new(madon.UserToken)
			if len(token) > 0 {
				app.UserToken.AccessToken = token
			}
		} else {
			if app, err = madon.NewApp(AppName, AppWebsite, AppScopes, "", instance); err != nil {
				return nil, fmt.Errorf("unable to initialize mastodon application: %w", err)
			}
		}
	}
	if ValidMastodonAuth(app) {
		return app, saveMastodonCredentials(app, credFile)
	}
	if !dryRun {
		userAuthUri, err := app.LoginOAuth2("", nil)
		if err != nil {
			return nil, fmt.Errorf("unable to login to %s: %w", app.InstanceURL, err)
		}
		if err = exec.Command(ExecOpenCmd, userAuthUri).Run(); err != nil {
			fmt.Printf("Go to this URL in your browser: %s\n", userAuthUri)
		}
		if app.UserToken == nil {
			app.UserToken = new(madon.UserToken)
		}
		tok, err := getAccessTokenFn()
		if err != nil {
			return nil, fmt.Errorf("unable to login to %s: %w", app.InstanceURL, err)
		}
		if tok == "" {
			return nil, fmt.Errorf("empty authentication token")
		}
		app.UserToken.AccessToken = tok
		app.UserToken.CreatedAt = time.Now().UnixMilli()
		if !ValidMastodonAuth(app) {
			return nil, fmt.Errorf("unable to get user authorization")
		}
		if err := saveMastodonCredentials(app, credFile); err != nil {
			errFn("unable to save credentials: %s", err)
		}
	}
	return app, nil
}

func InstanceName(inst string) string {
	u, err := url.ParseRequestURI(inst)
	if err == nil {
		inst = u.Host
	}
	return url.PathEscape(filepath.Clean(filepath.Base(inst)))
}

func ValidMastodonAuth(c *madon.Client) bool {
	return ValidMastodonApp(c) && c.UserToken != nil && c.UserToken.AccessToken != ""
}

func ValidMastodonApp(c *madon.Client) bool {
	return c != nil && c.Name != "" && c.ID != "" && c.Secret != "" && c.APIBase != "" && c.InstanceURL != ""
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

func saveMastodonCredentials(c *madon.Client, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to open file %w", err)
	}
	defer f.Close()

	d := gob.NewEncoder(f)
	return d.Encode(c)
}
