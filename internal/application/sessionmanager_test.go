package application_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/linkdeck/internal/application"
	"github.com/ericfisherdev/linkdeck/internal/domain/model"
)

type mockAuthProvider struct {
	identity model.Identity
	err      error
	codes    []string
}

func (p *mockAuthProvider) AuthCodeURL(state string) string {
	return "https://auth.example.com/authorize?state=" + state
}

func (p *mockAuthProvider) Exchange(_ context.Context, code string) (model.Identity, error) {
	p.codes = append(p.codes, code)
	if p.err != nil {
		return model.Identity{}, p.err
	}
	return p.identity, nil
}

type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.Session
	putErr   error
	delErr   error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]model.Session)}
}

func (s *mockSessionStore) Put(_ context.Context, session model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *mockSessionStore) Get(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *mockSessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return s.delErr
	}
	delete(s.sessions, id)
	return nil
}

func (s *mockSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func newTestSessions(provider *mockAuthProvider, store *mockSessionStore) *application.SessionManager {
	return application.NewSessionManager(provider, store, time.Hour, slog.Default())
}

func TestSessionManager_BeginSignIn(t *testing.T) {
	m := newTestSessions(&mockAuthProvider{identity: testIdentity}, newMockSessionStore())

	url1, state1 := m.BeginSignIn()
	url2, state2 := m.BeginSignIn()

	assert.Contains(t, url1, state1)
	assert.NotEmpty(t, state1)
	assert.NotEqual(t, state1, state2, "state must be fresh per attempt")
	assert.NotEqual(t, url1, url2)
}

func TestSessionManager_CompleteSignIn(t *testing.T) {
	provider := &mockAuthProvider{identity: testIdentity}
	store := newMockSessionStore()
	m := newTestSessions(provider, store)

	identity, sessionID, err := m.CompleteSignIn(context.Background(), "code-123")
	require.NoError(t, err)

	assert.Equal(t, testIdentity, identity)
	assert.NotEmpty(t, sessionID)
	assert.Equal(t, []string{"code-123"}, provider.codes)

	resolved, ok := m.IdentityFor(context.Background(), sessionID)
	require.True(t, ok)
	assert.Equal(t, testIdentity, resolved)
}

func TestSessionManager_CompleteSignInExchangeFailure(t *testing.T) {
	provider := &mockAuthProvider{err: &model.AuthError{Op: "exchange", Err: errors.New("bad code")}}
	store := newMockSessionStore()
	m := newTestSessions(provider, store)

	_, _, err := m.CompleteSignIn(context.Background(), "bad")
	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)

	store.mu.Lock()
	assert.Empty(t, store.sessions, "no session persisted on exchange failure")
	store.mu.Unlock()
}

func TestSessionManager_CompleteSignInPersistFailure(t *testing.T) {
	store := newMockSessionStore()
	store.putErr = errors.New("disk full")
	m := newTestSessions(&mockAuthProvider{identity: testIdentity}, store)

	_, _, err := m.CompleteSignIn(context.Background(), "code")
	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "persist session", authErr.Op)
}

func TestSessionManager_IdentityForUnknownSession(t *testing.T) {
	m := newTestSessions(&mockAuthProvider{}, newMockSessionStore())

	_, ok := m.IdentityFor(context.Background(), "nope")
	assert.False(t, ok)
}

func TestSessionManager_IdentityForExpiredSession(t *testing.T) {
	store := newMockSessionStore()
	m := newTestSessions(&mockAuthProvider{}, store)

	past := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, store.Put(context.Background(), model.Session{
		ID:        "old",
		Identity:  testIdentity,
		CreatedAt: past,
		ExpiresAt: past.Add(time.Hour),
	}))

	_, ok := m.IdentityFor(context.Background(), "old")
	assert.False(t, ok)

	store.mu.Lock()
	assert.NotContains(t, store.sessions, "old", "expired row removed eagerly")
	store.mu.Unlock()
}

func TestSessionManager_SignOut(t *testing.T) {
	m := newTestSessions(&mockAuthProvider{identity: testIdentity}, newMockSessionStore())

	_, sessionID, err := m.CompleteSignIn(context.Background(), "code")
	require.NoError(t, err)

	require.NoError(t, m.SignOut(context.Background(), sessionID))
	_, ok := m.IdentityFor(context.Background(), sessionID)
	assert.False(t, ok)

	// Repeated sign-out is a no-op.
	require.NoError(t, m.SignOut(context.Background(), sessionID))
}

func TestSessionManager_OnIdentityChange(t *testing.T) {
	m := newTestSessions(&mockAuthProvider{identity: testIdentity}, newMockSessionStore())

	_, sessionID, err := m.CompleteSignIn(context.Background(), "code")
	require.NoError(t, err)

	type transition struct {
		identity model.Identity
		present  bool
	}
	var mu sync.Mutex
	var seen []transition
	unregister := m.OnIdentityChange(sessionID, func(identity model.Identity, present bool) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, transition{identity, present})
	})

	require.NoError(t, m.SignOut(context.Background(), sessionID))

	mu.Lock()
	require.Len(t, seen, 1)
	assert.False(t, seen[0].present)
	assert.Equal(t, model.Identity{}, seen[0].identity)
	mu.Unlock()

	unregister()
	require.NoError(t, m.SignOut(context.Background(), sessionID))

	mu.Lock()
	assert.Len(t, seen, 1, "unregistered handler must not fire")
	mu.Unlock()
}

func TestSessionManager_SweepExpired(t *testing.T) {
	store := newMockSessionStore()
	m := newTestSessions(&mockAuthProvider{}, store)

	now := time.Now().UTC()
	require.NoError(t, store.Put(context.Background(), model.Session{ID: "live", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Put(context.Background(), model.Session{ID: "dead", ExpiresAt: now.Add(-time.Hour)}))

	m.SweepExpired(context.Background())

	store.mu.Lock()
	assert.Contains(t, store.sessions, "live")
	assert.NotContains(t, store.sessions, "dead")
	store.mu.Unlock()
}
