// Package session drives interactive login against the chat transport.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds code based login attempts.
const DefaultMaxAttempts = 3

var (
	// ErrInvalidCode is reported by authenticators when the one-time code (or
	// other interactive credential) was rejected. The attempt may be retried.
	ErrInvalidCode = errors.New("invalid login code")

	// ErrLoginFailed is returned once every attempt was used up.
	ErrLoginFailed = errors.New("max login attempts reached")
)

// RateLimitError asks the caller to wait before authenticating again.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.Wait)
}

// State of the login state machine.
type State int

const (
	Idle State = iota
	Authenticating
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Prompter supplies interactive credentials on demand.
type Prompter interface {
	RequestCode(ctx context.Context) (string, error)
	RequestSecondFactor(ctx context.Context) (string, error)
}

// Authenticator performs one authentication attempt and returns the session
// token on success.
type Authenticator interface {
	Authenticate(ctx context.Context, phone string, prompter Prompter) (string, error)
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string
	Connected bool
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Manager.
type Option func(*Manager)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(sleep SleepFunc) Option {
	return func(m *Manager) {
		m.sleep = sleep
	}
}

// Manager runs the Idle -> Authenticating -> Authenticated | Failed machine.
type Manager struct {
	auth        Authenticator
	phone       string
	prompter    Prompter
	maxAttempts int
	sleep       SleepFunc
	logger      *zap.Logger

	mu       sync.Mutex
	state    State
	attempts int
	session  *Session
}

func NewManager(auth Authenticator, phone string, prompter Prompter, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		auth:        auth,
		phone:       phone,
		prompter:    prompter,
		maxAttempts: DefaultMaxAttempts,
		sleep:       sleepContext,
		logger:      logger,
		state:       Idle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login authenticates, retrying rejected codes up to the attempt limit and
// waiting out rate limits without spending an attempt. Any other error is
// returned immediately.
func (m *Manager) Login(ctx context.Context) (*Session, error) {
	m.logger.Info("Starting login process")

	for {
		m.mu.Lock()
		if m.attempts >= m.maxAttempts {
			m.state = Failed
			m.mu.Unlock()
			m.logger.Error("Max login attempts reached", zap.Int("attempts", m.maxAttempts))
			return nil, ErrLoginFailed
		}
		m.state = Authenticating
		attempt := m.attempts + 1
		m.mu.Unlock()

		m.logger.Info("Login attempt",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", m.maxAttempts))

		token, err := m.auth.Authenticate(ctx, m.phone, m.prompter)
		if err == nil {
			sess := &Session{Token: token, Connected: true}
			m.mu.Lock()
			m.state = Authenticated
			m.session = sess
			m.mu.Unlock()
			m.logger.Info("Login successful")
			return sess, nil
		}

		var rateLimit *RateLimitError
		switch {
		case errors.Is(err, ErrInvalidCode):
			m.logger.Warn("Invalid login code", zap.Int("attempt", attempt))
			m.mu.Lock()
			m.attempts++
			m.mu.Unlock()
		case errors.As(err, &rateLimit):
			m.logger.Warn("Rate limited during login", zap.Duration("wait", rateLimit.Wait))
			if serr := m.sleep(ctx, rateLimit.Wait); serr != nil {
				m.fail()
				return nil, fmt.Errorf("waiting out rate limit: %w", serr)
			}
		default:
			m.fail()
			return nil, fmt.Errorf("login: %w", err)
		}
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns how many code attempts were rejected so far.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Session returns the established session, or nil before a successful login.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Manager) fail() {
	m.mu.Lock()
	m.state = Failed
	m.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
