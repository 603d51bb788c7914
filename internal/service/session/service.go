// Package session hands out guest session ids and remembers which device
// fingerprint each one was first seen with. Sessions are process-local: losing
// them on restart only means a guest gets a fresh id, and their cart is still
// reachable through the device fingerprint.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

const defaultTTL = 24 * time.Hour

// Session is one guest browsing session.
type Session struct {
	ID                string    `json:"sessionId"`
	DeviceFingerprint string    `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

type Manager struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Manager{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Start creates a session bound to the caller's device fingerprint.
func (m *Manager) Start(deviceFingerprint string) Session {
	buf := make([]byte, 16)
	rand.Read(buf)

	now := m.now().UTC()
	s := Session{
		ID:                "sess_" + hex.EncodeToString(buf),
		DeviceFingerprint: deviceFingerprint,
		CreatedAt:         now,
		ExpiresAt:         now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Lookup returns the live session for id, pruning it if expired.
func (m *Manager) Lookup(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	if m.now().After(s.ExpiresAt) {
		delete(m.sessions, id)
		return Session{}, false
	}
	return s, true
}

// End drops a session; ending an unknown session is a no-op.
func (m *Manager) End(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
