package machine

import (
	"context"
	"fmt"
	"sync"
)

type LogFn func(string, ...interface{})

type State string

const (
	StateIdle     State = "idle"
	StateWelcome  State = "welcome"
	StateSpeech   State = "speech"
	StateNews     State = "news"
	StateFinance  State = "finance"
	StateActivity State = "activity"
)

type Trigger string

const (
	TriggerStart         Trigger = "start"
	TriggerExit          Trigger = "exit"
	TriggerInteract      Trigger = "interact"
	TriggerInteraction   Trigger = "interaction"
	TriggerMorningNews   Trigger = "morning_news"
	TriggerNewsInteract  Trigger = "news_interact"
	TriggerNewsIdle      Trigger = "news_idle"
	TriggerGotoIdle      Trigger = "goto_idle"
	TriggerGotoWelcome   Trigger = "goto_welcome"
	TriggerGotoFinance   Trigger = "goto_finance"
	TriggerGotoActivity  Trigger = "goto_activity"
	TriggerGotoNews      Trigger = "goto_news"
	TriggerExitFinance   Trigger = "exit_finance"
	TriggerActivityIdle  Trigger = "activity_idle"
	TriggerStartActivity Trigger = "start_activity"
)

// transitions maps a trigger to its legal source states and their
// destinations. Anything not listed here is an illegal transition.
var transitions = map[Trigger]map[State]State{
	TriggerStart:         {StateIdle: StateFinance},
	TriggerExit:          {StateWelcome: StateIdle},
	TriggerInteract:      {StateIdle: StateSpeech},
	TriggerInteraction:   {StateWelcome: StateSpeech},
	TriggerMorningNews:   {StateWelcome: StateNews},
	TriggerNewsInteract:  {StateNews: StateSpeech},
	TriggerNewsIdle:      {StateNews: StateIdle},
	TriggerGotoIdle:      {StateSpeech: StateIdle},
	TriggerGotoWelcome:   {StateSpeech: StateWelcome},
	TriggerGotoFinance:   {StateSpeech: StateFinance},
	TriggerGotoActivity:  {StateSpeech: StateActivity},
	TriggerGotoNews:      {StateSpeech: StateNews},
	TriggerExitFinance:   {StateFinance: StateIdle},
	TriggerActivityIdle:  {StateActivity: StateIdle},
	TriggerStartActivity: {StateIdle: StateActivity},
}

type IllegalTransitionError struct {
	Trigger Trigger
	State   State
}

func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("trigger %s is not legal from state %s", e.Trigger, e.State)
}

// Handler receives control when its state is entered. Handlers are
// registered once and reused across visits; they must not assume a
// fresh instance per transition.
type Handler interface {
	OnEnter(ctx context.Context)
}

type HandlerFunc func(ctx context.Context)

func (f HandlerFunc) OnEnter(ctx context.Context) { f(ctx) }

const queueSize = 16

// Machine is the single interaction controller of the process. It is
// not internally synchronized beyond the state word: all triggers are
// expected to arrive either through Run draining the queue or from a
// handler currently holding control.
type Machine struct {
	mu       sync.Mutex
	state    State
	handlers map[State]Handler
	queue    chan Trigger
	log      LogFn
	err      LogFn
}

func New(logFn, errFn LogFn) *Machine {
	if logFn == nil {
		logFn = func(string, ...interface{}) {}
	}
	if errFn == nil {
		errFn = func(string, ...interface{}) {}
	}
	return &Machine{
		state:    StateIdle,
		handlers: make(map[State]Handler),
		queue:    make(chan Trigger, queueSize),
		log:      logFn,
		err:      errFn,
	}
}

func (m *Machine) Register(s State, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[s] = h
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Fire applies t if it is legal from the current state, then invokes
// the entered state's handler exactly once. An illegal trigger leaves
// the state untouched and returns an IllegalTransitionError.
func (m *Machine) Fire(ctx context.Context, t Trigger) error {
	m.mu.Lock()
	from := m.state
	dest, ok := transitions[t][from]
	if !ok {
		m.mu.Unlock()
		return IllegalTransitionError{Trigger: t, State: from}
	}
	m.state = dest
	h := m.handlers[dest]
	m.mu.Unlock()

	m.log("%s: %s -> %s", t, from, dest)
	if h != nil {
		h.OnEnter(ctx)
	}
	return nil
}

// Enqueue hands a trigger to the idle drain loop. It never blocks; a
// full queue drops the trigger with an error log.
func (m *Machine) Enqueue(t Trigger) {
	select {
	case m.queue <- t:
	default:
		m.err("trigger queue full, dropping %s", t)
	}
}

// Run activates the initial idle state and then drains the pending
// trigger queue in FIFO order, one trigger per iteration, until ctx is
// done. Queued triggers that are illegal from the current state are
// dropped with an error log; there is no queuing for illegal triggers.
func (m *Machine) Run(ctx context.Context) error {
	if h := m.idleHandler(); h != nil {
		h.OnEnter(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-m.queue:
			if err := m.Fire(ctx, t); err != nil {
				m.err("dropping trigger: %s", err)
			}
		}
	}
}

func (m *Machine) idleHandler() Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers[StateIdle]
}
