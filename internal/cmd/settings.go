package cmd

import (
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli"

	"git.sr.ht/~mariusor/hestia/prefs"
)

var SettingsCmd = cli.Command{
	Name:  "settings",
	Usage: "Shows and edits assistant preferences",
	Subcommands: []cli.Command{
		{
			Name:   "list",
			Usage:  "Lists all preferences",
			Action: listSettings,
		},
		{
			Name:      "set",
			Usage:     "Sets a preference, prompting for the value when not given",
			ArgsUsage: "<key> [value]",
			Action:    setSetting,
		},
	},
	Action: listSettings,
}

func loadPrefs(c *cli.Context) (*prefs.Store, error) {
	return prefs.Load(path.Join(c.GlobalString("path"), prefs.DefaultFile))
}

func listSettings(c *cli.Context) error {
	p, err := loadPrefs(c)
	if err != nil {
		return err
	}
	for _, k := range p.Keys() {
		v := p.Get(k)
		if v != "" && sensitiveKey(k) {
			v = "********"
		}
		info("%s = %s", k, v)
	}
	return nil
}

func setSetting(c *cli.Context) error {
	key := c.Args().First()
	if key == "" {
		return fmt.Errorf("missing preference key")
	}
	p, err := loadPrefs(c)
	if err != nil {
		return err
	}
	value := c.Args().Get(1)
	if value == "" {
		value, err = promptValue(fmt.Sprintf("Value for %s:", key), sensitiveKey(key))
		if err != nil {
			return err
		}
	}
	if err = p.Set(key, value); err != nil {
		return err
	}
	info("Saved %s", key)
	return nil
}

func sensitiveKey(key string) bool {
	return strings.Contains(key, "secret") || strings.Contains(key, "token") || strings.HasSuffix(key, "_key")
}

type settingsModel struct {
	prompt    string
	textInput *textinput.Model
	err       error
}

func initialSettingsModel(prompt string, hidden bool) settingsModel {
	ti := textinput.New()
	ti.Placeholder = "..."
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 45
	if hidden {
		ti.EchoMode = textinput.EchoPassword
	}

	return settingsModel{
		prompt:    prompt,
		textInput: &ti,
	}
}

func (m settingsModel) Init() tea.Cmd {
	return textinput.Blink
}

type errMsg error

func (m settingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter, tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		}

	// We handle errors just like any other message
	case errMsg:
		m.err = msg
		return m, nil
	}

	*m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m settingsModel) View() string {
	return fmt.Sprintf(
		"%s\n\n%s",
		m.prompt,
		m.textInput.View(),
	) + "\n"
}

func promptValue(prompt string, hidden bool) (string, error) {
	m := initialSettingsModel(prompt, hidden)
	err := tea.NewProgram(m).Start()
	return m.textInput.Value(), err
}
