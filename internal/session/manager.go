// Package session owns the credential pair and the renewal protocol: storage,
// the single-flight renewal gate, and the background scheduler that keeps an
// active user signed in.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"example.com/lifeplanner/internal/observability"
)

var (
	// ErrNotAuthenticated is returned when no credential pair is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionEnded is returned when the session was cleared while a renewal
	// was in flight; callers must treat it as a signed-out state, not retry.
	ErrSessionEnded = errors.New("session ended")
)

// Renewer exchanges a renewal token for a fresh credential pair.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (TokenPair, error)
}

// Option configures optional Manager behaviour.
type Option func(*Manager)

// WithLogger overrides the logger used to report storage problems.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithOnSessionEnd registers a callback fired once per session when the
// credentials transition to cleared, whether by logout or renewal failure.
func WithOnSessionEnd(fn func()) Option {
	return func(m *Manager) { m.onEnd = fn }
}

// Manager holds the process-wide credential pair. All reads and writes go
// through it, so a store or clear is immediately visible to every caller, and
// a clear during an in-flight renewal causes that renewal's result to be
// dropped rather than resurrecting the session.
type Manager struct {
	store   Store
	renewer Renewer
	logger  *log.Logger
	onEnd   func()

	group singleflight.Group

	mu      sync.Mutex
	access  string
	refresh string
	epoch   int
	done    chan struct{}
}

// NewManager builds a Manager, restoring any pair the store holds.
func NewManager(store Store, renewer Renewer, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: log.New(log.Writer(), "[session] ", log.LstdFlags),
		done:   make(chan struct{}),
	}
	m.renewer = renewer
	for _, opt := range opts {
		opt(m)
	}

	pair, err := store.Load()
	if err != nil {
		m.logger.Printf("restore credentials: %v", err)
	} else if pair.Valid() {
		m.access = pair.AccessToken
		m.refresh = pair.RefreshToken
	}
	return m
}

// AccessToken returns the current access credential, if any.
func (m *Manager) AccessToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.access != ""
}

// Authenticated reports whether a credential pair is held.
func (m *Manager) Authenticated() bool {
	_, ok := m.AccessToken()
	return ok
}

// SetTokens installs a freshly issued pair, e.g. after login.
func (m *Manager) SetTokens(pair TokenPair) error {
	m.mu.Lock()
	m.access = pair.AccessToken
	m.refresh = pair.RefreshToken
	select {
	case <-m.done:
		m.done = make(chan struct{})
	default:
	}
	m.mu.Unlock()

	if err := m.store.Save(pair); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	return nil
}

// Clear drops both credentials. It is idempotent; the first call per session
// fires the end-of-session callback and releases SessionEnded waiters.
func (m *Manager) Clear() {
	m.mu.Lock()
	wasAuthenticated := m.access != "" || m.refresh != ""
	m.access = ""
	m.refresh = ""
	m.epoch++
	select {
	case <-m.done:
	default:
		close(m.done)
	}
	onEnd := m.onEnd
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Printf("clear credentials: %v", err)
	}
	if wasAuthenticated && onEnd != nil {
		onEnd()
	}
}

// SessionEnded returns a channel closed when the current session's credentials
// are cleared. Long-lived helpers like the renewal scheduler select on it to
// tear themselves down on logout.
func (m *Manager) SessionEnded() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// ExpiresAt reports the access token's expiry claim, when the token is a JWT
// carrying one. The token is not validated here; the backend is the authority
// and 401 remains the real signal.
func (m *Manager) ExpiresAt() (time.Time, bool) {
	token, ok := m.AccessToken()
	if !ok {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Refresh renews the credential pair and returns the new access token. When a
// renewal is already in flight, callers await its result instead of issuing
// their own; at most one renewal call is ever outstanding. A failed renewal
// clears the stored credentials and surfaces ErrSessionEnded semantics to
// every waiter.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	refresh := m.refresh
	epoch := m.epoch
	m.mu.Unlock()

	if refresh == "" {
		return "", ErrNotAuthenticated
	}

	v, err, shared := m.group.Do("renew", func() (interface{}, error) {
		pair, renewErr := m.renewer.Renew(ctx, refresh)
		if renewErr != nil {
			observability.RecordRenewal(false)
			m.Clear()
			return nil, fmt.Errorf("credential renewal: %w", renewErr)
		}
		observability.RecordRenewal(true)
		return pair, nil
	})
	if shared {
		observability.RecordRenewalShared()
	}
	if err != nil {
		return "", err
	}
	pair := v.(TokenPair)

	m.mu.Lock()
	if m.epoch != epoch {
		// Logged out while the renewal was in flight; drop the result.
		m.mu.Unlock()
		return "", ErrSessionEnded
	}
	m.access = pair.AccessToken
	m.refresh = pair.RefreshToken
	m.mu.Unlock()

	if saveErr := m.store.Save(pair); saveErr != nil {
		m.logger.Printf("persist renewed credentials: %v", saveErr)
	}
	return pair.AccessToken, nil
}
