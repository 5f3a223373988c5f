package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a breaker.
type Settings struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold uint32
	// Cooldown is how long the breaker stays open before letting one probe through.
	Cooldown time.Duration
	// IsFailure decides which errors count against the destination. Errors it rejects
	// neither trip nor reset the breaker. Every non-nil error counts when nil.
	IsFailure func(error) bool
	// OnStateChange is called whenever the state changes, with the breaker name.
	OnStateChange func(name string, from State, to State)
}

func (s Settings) withDefaults() Settings {
	if s.Threshold == 0 {
		s.Threshold = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.IsFailure == nil {
		s.IsFailure = func(err error) bool { return err != nil }
	}
	return s
}

// Breaker stops calls to one destination after repeated failures. A single probe is let
// through once the cooldown has passed; its outcome closes or reopens the breaker.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures uint32
	probing  bool
	openedAt time.Time
}

// New creates a closed breaker.
func New(name string, settings Settings) *Breaker {
	return &Breaker{name: name, settings: settings.withDefaults(), now: time.Now}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, moving an expired open breaker to half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// Do runs fn when the breaker admits it and records the outcome.
func (b *Breaker) Do(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}

	res := neutral
	defer func() {
		b.after(res)
	}()

	err := fn()
	switch {
	case err == nil:
		res = succeeded
	case b.settings.IsFailure(err):
		res = failed
	}
	return err
}

type outcome int

const (
	neutral outcome = iota
	succeeded
	failed
)

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.probing {
			return ErrTooManyRequests
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) after(res outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.current() {
	case StateClosed:
		switch res {
		case succeeded:
			b.failures = 0
		case failed:
			b.failures++
			if b.failures >= b.settings.Threshold {
				b.setState(StateOpen)
			}
		}
	case StateHalfOpen:
		switch res {
		case succeeded:
			b.setState(StateClosed)
		case failed:
			b.setState(StateOpen)
		default:
			b.probing = false
		}
	}
}

// current must be called with mu held.
func (b *Breaker) current() State {
	if b.state == StateOpen && !b.now().Before(b.openedAt.Add(b.settings.Cooldown)) {
		b.setState(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.failures = 0
	b.probing = false
	if state == StateOpen {
		b.openedAt = b.now()
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}

// Set holds one breaker per key, created on first use.
type Set struct {
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewSet creates an empty set whose breakers share settings.
func NewSet(settings Settings) *Set {
	return &Set{settings: settings.withDefaults(), now: time.Now, breakers: map[string]*Breaker{}}
}

// For returns the breaker for key.
func (s *Set) For(key string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.breakers[key]
	if !ok {
		b = New(key, s.settings)
		b.now = s.now
		s.breakers[key] = b
	}
	return b
}
