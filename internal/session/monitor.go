package session

import (
	"sync"
	"time"
)

// ActivityMonitor tracks when user input was last observed. The UI layer calls
// Touch on pointer, key, scroll and touch events; the background renewal
// scheduler consults IdleFor to decide whether a session is worth extending.
type ActivityMonitor struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewActivityMonitor builds a monitor that considers construction time the
// first activity, since it is created when the user signs in.
func NewActivityMonitor() *ActivityMonitor {
	m := &ActivityMonitor{now: time.Now}
	m.last = m.now()
	return m
}

// Touch records user input at the current instant.
func (m *ActivityMonitor) Touch() {
	m.mu.Lock()
	m.last = m.now()
	m.mu.Unlock()
}

// IdleFor returns the elapsed time since the last recorded input.
func (m *ActivityMonitor) IdleFor() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.last)
}

// LastActivity returns the instant of the last recorded input.
func (m *ActivityMonitor) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
