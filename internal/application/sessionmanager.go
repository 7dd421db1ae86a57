package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
	"github.com/ericfisherdev/linkdeck/internal/domain/port/driven"
)

// IdentityHandler observes identity transitions for one session. present is
// false on sign-out; identity is the zero value in that case.
type IdentityHandler func(identity model.Identity, present bool)

// SessionManager owns authenticated identities. It drives the OAuth flow via
// the AuthProvider port, persists sessions server-side, and notifies
// registered observers on sign-in and sign-out transitions.
type SessionManager struct {
	provider driven.AuthProvider
	sessions driven.SessionStore
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	handlers    map[string]map[int]IdentityHandler // session ID -> handler set
	nextHandler int
}

// NewSessionManager creates a SessionManager. ttl bounds how long a session
// cookie stays valid without a fresh sign-in.
func NewSessionManager(provider driven.AuthProvider, sessions driven.SessionStore, ttl time.Duration, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		provider: provider,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		handlers: make(map[string]map[int]IdentityHandler),
	}
}

// BeginSignIn returns the provider's authorize URL and the anti-forgery state
// the caller must round-trip through a cookie. No local state changes until
// the provider redirects back.
func (m *SessionManager) BeginSignIn() (redirectURL, state string) {
	state = randomToken()
	return m.provider.AuthCodeURL(state), state
}

// CompleteSignIn exchanges the authorization code, persists a new session,
// and notifies observers. On any failure the session set is unchanged and an
// AuthError is returned.
func (m *SessionManager) CompleteSignIn(ctx context.Context, code string) (model.Identity, string, error) {
	identity, err := m.provider.Exchange(ctx, code)
	if err != nil {
		return model.Identity{}, "", err
	}

	now := m.now().UTC()
	session := model.Session{
		ID:        randomToken(),
		Identity:  identity,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.sessions.Put(ctx, session); err != nil {
		return model.Identity{}, "", &model.AuthError{Op: "persist session", Err: err}
	}

	m.logger.Info("signed in", "user", identity.ID, "session", session.ID)
	m.notify(session.ID, identity, true)

	return identity, session.ID, nil
}

// IdentityFor resolves the identity bound to a session ID. Returns false for
// unknown or expired sessions; an expired session row is removed eagerly.
func (m *SessionManager) IdentityFor(ctx context.Context, sessionID string) (model.Identity, bool) {
	session, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		m.logger.Error("session lookup failed", "session", sessionID, "error", err)
		return model.Identity{}, false
	}
	if session == nil {
		return model.Identity{}, false
	}

	if session.Expired(m.now().UTC()) {
		if err := m.sessions.Delete(ctx, sessionID); err != nil {
			m.logger.Error("expired session cleanup failed", "session", sessionID, "error", err)
		}
		return model.Identity{}, false
	}

	return session.Identity, true
}

// SignOut deletes the session and notifies observers with an absent identity
// before returning. Deleting an unknown session is a no-op, so repeated
// sign-outs are safe.
func (m *SessionManager) SignOut(ctx context.Context, sessionID string) error {
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		return &model.AuthError{Op: "sign out", Err: err}
	}

	m.logger.Info("signed out", "session", sessionID)
	m.notify(sessionID, model.Identity{}, false)
	return nil
}

// OnIdentityChange registers a handler for one session's transitions. The
// returned func unregisters it; handlers torn down this way are never invoked
// again.
func (m *SessionManager) OnIdentityChange(sessionID string, handler IdentityHandler) func() {
	m.mu.Lock()
	id := m.nextHandler
	m.nextHandler++
	if m.handlers[sessionID] == nil {
		m.handlers[sessionID] = make(map[int]IdentityHandler)
	}
	m.handlers[sessionID][id] = handler
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if set, ok := m.handlers[sessionID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(m.handlers, sessionID)
			}
		}
	}
}

// SweepExpired removes expired session rows. Intended for a periodic
// background loop at the composition root.
func (m *SessionManager) SweepExpired(ctx context.Context) {
	removed, err := m.sessions.DeleteExpired(ctx, m.now().UTC())
	if err != nil {
		m.logger.Error("session sweep failed", "error", err)
		return
	}
	if removed > 0 {
		m.logger.Info("expired sessions removed", "count", removed)
	}
}

// notify invokes each handler registered for the session. Handlers run under
// the lock's copy, outside the lock itself.
func (m *SessionManager) notify(sessionID string, identity model.Identity, present bool) {
	m.mu.Lock()
	var handlers []IdentityHandler
	for _, h := range m.handlers[sessionID] {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(identity, present)
	}
}

func randomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("session: failed to generate random token: " + err.Error())
	}
	return hex.EncodeToString(b)
}
