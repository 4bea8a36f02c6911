package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-members-gateway/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is an in-memory implementation of Repo. Sessions do not survive a restart.
type InMemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]Session // sessionID -> Session
	nowTime  func() time.Time
}

type InMemoryRepoOption func(*InMemoryRepo)

// WithRepoNowTime sets the clock used for expiry checks (primarily for testing)
func WithRepoNowTime(nowFunc func() time.Time) InMemoryRepoOption {
	return func(r *InMemoryRepo) {
		r.nowTime = nowFunc
	}
}

func NewInMemoryRepo(options ...InMemoryRepoOption) *InMemoryRepo {
	r := &InMemoryRepo{
		sessions: make(map[string]Session),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Upsert creates or updates a session
func (r *InMemoryRepo) Upsert(_ context.Context, session *Session) error {
	if session.ID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = copySession(*session)
	return nil
}

// Get retrieves a session, dropping it if it has expired
func (r *InMemoryRepo) Get(_ context.Context, sessionID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}
	if session.Expired(r.nowTime()) {
		delete(r.sessions, sessionID)
		return nil, errors.ErrSessionNotFound
	}

	s := copySession(session)
	return &s, nil
}

// Touch slides the expiry of a live session
func (r *InMemoryRepo) Touch(_ context.Context, sessionID string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok || session.Expired(r.nowTime()) {
		delete(r.sessions, sessionID)
		return errors.ErrSessionNotFound
	}
	session.ExpiresAt = expiresAt
	r.sessions[sessionID] = session
	return nil
}

// Delete removes a session
func (r *InMemoryRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

// DeleteExpired removes every expired session and reports how many were dropped
func (r *InMemoryRepo) DeleteExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowTime()
	n := 0
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Sweep calls DeleteExpired every interval until ctx is cancelled
func (r *InMemoryRepo) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.DeleteExpired()
		}
	}
}

func copySession(s Session) Session {
	if s.Principal != nil {
		p := *s.Principal
		s.Principal = &p
	}
	return s
}
