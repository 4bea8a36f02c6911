package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jrsteele09/go-members-gateway/internal/errors"
)

const (
	// DefaultIdleTimeout is how long a session survives without a request
	DefaultIdleTimeout = time.Hour

	// DefaultStoreTimeout bounds every call into the session store
	DefaultStoreTimeout = 5 * time.Second

	sessionIDBytes = 32
)

// Manager owns the session lifecycle: creation, sliding expiry, principal changes,
// id regeneration and destruction.
type Manager struct {
	repo         Repo
	idleTimeout  time.Duration
	storeTimeout time.Duration
	nowTime      func() time.Time
}

type ManagerOption func(*Manager)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func WithStoreTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.storeTimeout = d
		}
	}
}

func NewManager(repo Repo, idleTimeout time.Duration, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, fmt.Errorf("[NewManager] session repo is required")
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	m := &Manager{
		repo:         repo,
		idleTimeout:  idleTimeout,
		storeTimeout: DefaultStoreTimeout,
		nowTime:      time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

func (m *Manager) IdleTimeout() time.Duration {
	return m.idleTimeout
}

// Create starts a new anonymous session
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id, err := NewSessionID()
	if err != nil {
		return nil, errors.Wrapf(err, "[Manager Create]")
	}
	now := m.nowTime()
	session := &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(m.idleTimeout),
	}
	if err := m.upsert(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get loads a live session and slides its expiry forward
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, errors.ErrSessionNotFound
	}
	session, err := m.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	expiresAt := m.nowTime().Add(m.idleTimeout)
	if err := m.touch(ctx, sessionID, expiresAt); err != nil {
		return nil, err
	}
	session.ExpiresAt = expiresAt
	return session, nil
}

// SetPrincipal attaches principal to the session under a fresh id and discards the old id,
// so a token observed before login is useless afterwards.
func (m *Manager) SetPrincipal(ctx context.Context, sessionID string, principal Principal) (*Session, error) {
	session, err := m.Regenerate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Principal = &principal
	if err := m.upsert(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Regenerate moves a session to a new id. An unknown id yields a fresh anonymous session.
func (m *Manager) Regenerate(ctx context.Context, sessionID string) (*Session, error) {
	old, err := m.get(ctx, sessionID)
	if err != nil && !errors.Is(err, errors.ErrSessionNotFound) {
		return nil, err
	}

	id, err := NewSessionID()
	if err != nil {
		return nil, errors.Wrapf(err, "[Manager Regenerate]")
	}
	now := m.nowTime()
	session := &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(m.idleTimeout),
	}
	if old != nil {
		session.Principal = old.Principal
	}
	if err := m.upsert(ctx, session); err != nil {
		return nil, err
	}
	if old != nil {
		if err := m.delete(ctx, old.ID); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// Destroy removes the session. Destroying an unknown session succeeds.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return m.delete(ctx, sessionID)
}

func (m *Manager) get(ctx context.Context, sessionID string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	session, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, errors.ErrSessionNotFound) {
			return nil, err
		}
		return nil, errors.Unavailable(err)
	}
	return session, nil
}

func (m *Manager) upsert(ctx context.Context, session *Session) error {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	if err := m.repo.Upsert(ctx, session); err != nil {
		return errors.Unavailable(err)
	}
	return nil
}

func (m *Manager) touch(ctx context.Context, sessionID string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	if err := m.repo.Touch(ctx, sessionID, expiresAt); err != nil {
		if errors.Is(err, errors.ErrSessionNotFound) {
			return err
		}
		return errors.Unavailable(err)
	}
	return nil
}

func (m *Manager) delete(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()
	if err := m.repo.Delete(ctx, sessionID); err != nil {
		return errors.Unavailable(err)
	}
	return nil
}

// NewSessionID returns 256 bits from crypto/rand, base64url encoded without padding
func NewSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
