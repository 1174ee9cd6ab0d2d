package api

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultListenTimeout = 15 * time.Second

// consoleVoice is the terminal-backed voice surface: spoken output
// goes to stdout, recognition reads typed lines from stdin.
type consoleVoice struct {
	log  LogFn
	out  io.Writer
	in   io.Reader
	once sync.Once
	ch   chan string
}

func newConsoleVoice(log LogFn) *consoleVoice {
	return &consoleVoice{
		log: log,
		out: os.Stdout,
		in:  os.Stdin,
		ch:  make(chan string),
	}
}

func (v *consoleVoice) start() {
	v.once.Do(func() {
		go func() {
			sc := bufio.NewScanner(v.in)
			for sc.Scan() {
				v.ch <- strings.TrimSpace(sc.Text())
			}
			close(v.ch)
		}()
	})
}

func (v *consoleVoice) Speak(text string) error {
	v.log("speaking: %s", text)
	_, err := fmt.Fprintln(v.out, text)
	return err
}

func (v *consoleVoice) Listen(ctx context.Context, timeout time.Duration) (string, error) {
	v.start()
	if timeout <= 0 {
		timeout = defaultListenTimeout
	}
	select {
	case text, ok := <-v.ch:
		if !ok {
			return "", io.EOF
		}
		return text, nil
	case <-ctx.Done():
		return "", nil
	case <-time.After(timeout):
		return "", nil
	}
}

func (v *consoleVoice) ListenContinuous(ctx context.Context, timeout time.Duration, fn func(text string) bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := v.Listen(ctx, timeout)
		if err != nil {
			return err
		}
		if fn(text) {
			return nil
		}
	}
}

func (v *consoleVoice) AskYesNo(prompt string) (bool, error) {
	if err := v.Speak(prompt); err != nil {
		return false, err
	}
	text, err := v.Listen(context.Background(), defaultListenTimeout)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(text) {
	case "ja", "j", "yes", "y":
		return true, nil
	}
	return false, nil
}
