package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/sortify/internal/shared"
)

// Credentials holds the token pair for one downstream API session.
//
// AccessToken is replaced on refresh; RefreshToken only changes when the
// token endpoint issues a new one.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// RefreshFunc exchanges a refresh token for fresh credentials.
type RefreshFunc func(ctx context.Context, refreshToken string) (Credentials, error)

type session struct {
	mu    sync.Mutex
	creds Credentials
}

// CredentialStore holds credentials keyed by session ID.
//
// Reads happen on every outbound call; writes only on login and refresh. The
// refresh path is serialized per session so two callers observing the same
// expired token trigger a single exchange.
type CredentialStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewCredentialStore creates an empty CredentialStore.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{sessions: make(map[string]*session)}
}

// Get returns the current credentials for a session.
func (s *CredentialStore) Get(sessionID string) (Credentials, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Credentials{}, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.creds, true
}

// Put stores credentials for a session, creating the session if needed.
func (s *CredentialStore) Put(sessionID string, creds Credentials) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	sess.creds = creds
	sess.mu.Unlock()
}

// Delete removes a session and its credentials.
func (s *CredentialStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Refresh obtains a fresh access token for the session.
//
// staleToken is the access token the caller saw rejected. If another caller
// already refreshed while this one was waiting on the session lock, the
// stored token no longer matches staleToken and is returned without a second
// exchange. On a successful exchange the access token is replaced and the
// refresh token kept unless the endpoint returned a new one.
func (s *CredentialStore) Refresh(ctx context.Context, sessionID, staleToken string, fn RefreshFunc) (Credentials, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Credentials{}, shared.ErrNotAuthenticated
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.creds.AccessToken != staleToken {
		return sess.creds, nil
	}

	if sess.creds.RefreshToken == "" {
		return Credentials{}, shared.ErrNoRefreshToken
	}

	fresh, err := fn(ctx, sess.creds.RefreshToken)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = sess.creds.RefreshToken
	}

	sess.creds = fresh
	return fresh, nil
}
