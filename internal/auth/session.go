// Package auth keeps cookie sessions for the web layer.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/inputsheet/internal/core"
)

// CookieName is the session cookie set on login.
const CookieName = "inputsheet_session"

// Session is an authenticated login.
type Session struct {
	Token     string
	Username  string
	Role      core.Role
	ExpiresAt time.Time
}

// SessionStore keeps sessions in process memory. Sessions do not survive a
// restart; users log in again.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]Session
}

// NewSessionStore creates a store whose sessions expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

// TTL returns the session lifetime.
func (s *SessionStore) TTL() time.Duration { return s.ttl }

// Create starts a session for user.
func (s *SessionStore) Create(user core.UserInfo) (Session, error) {
	token, err := randomToken(32)
	if err != nil {
		return Session{}, err
	}

	sess := Session{
		Token:     token,
		Username:  user.Username,
		Role:      user.Role,
		ExpiresAt: s.now().Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()
	return sess, nil
}

// Lookup returns the live session for token.
func (s *SessionStore) Lookup(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, false
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, token)
		return Session{}, false
	}
	return sess, true
}

// Delete ends the session for token.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// DeleteUser ends every session belonging to username.
func (s *SessionStore) DeleteUser(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for token, sess := range s.sessions {
		if sess.Username == username {
			delete(s.sessions, token)
			n++
		}
	}
	return n
}

// PurgeExpired drops sessions that expired before now and returns how many.
func (s *SessionStore) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for token, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, token)
			n++
		}
	}
	return n
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession stores sess in ctx.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey).(Session)
	return sess, ok
}
