package sessions

import (
	"context"
	"time"
)

// Repo is the durable session storage behind the Manager.
type Repo interface {
	// Upsert creates or replaces the session stored under session.ID. Stores may
	// drop the record once session.ExpiresAt has passed.
	Upsert(ctx context.Context, session *Session) error

	// Get returns errors.ErrSessionNotFound for unknown or expired sessions
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Touch moves ExpiresAt of an existing session. It never creates a record and returns
	// errors.ErrSessionNotFound when the session is gone, so a concurrent Delete always wins.
	Touch(ctx context.Context, sessionID string, expiresAt time.Time) error

	// Delete removes a session; deleting an unknown id is not an error
	Delete(ctx context.Context, sessionID string) error
}
