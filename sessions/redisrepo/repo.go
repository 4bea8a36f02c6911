// Package redisrepo keeps sessions in Redis so they survive process restarts.
// Each session is one JSON value whose key expires together with the session.
package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-members-gateway/internal/errors"
	"github.com/jrsteele09/go-members-gateway/sessions"
	"github.com/redis/go-redis/v9"
)

var _ sessions.Repo = (*Repo)(nil)

type Repo struct {
	client    redis.UniversalClient
	keyPrefix string
	nowTime   func() time.Time
}

type Option func(*Repo)

// WithNowTime sets the clock used to derive key TTLs (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Repo) {
		r.nowTime = nowFunc
	}
}

func New(client redis.UniversalClient, keyPrefix string, options ...Option) *Repo {
	r := &Repo{
		client:    client,
		keyPrefix: keyPrefix,
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Open parses a redis:// URL and checks the connection
func Open(ctx context.Context, url, keyPrefix string) (*Repo, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("[redisrepo Open] parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[redisrepo Open] ping: %w", err)
	}
	return New(client, keyPrefix), nil
}

func (r *Repo) Close() error {
	return r.client.Close()
}

func (r *Repo) key(sessionID string) string {
	return r.keyPrefix + sessionID
}

func (r *Repo) Upsert(ctx context.Context, session *sessions.Session) error {
	if session.ID == "" {
		return fmt.Errorf("sessionID is required")
	}
	ttl := session.ExpiresAt.Sub(r.nowTime())
	if ttl <= 0 {
		return r.Delete(ctx, session.ID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("[redisrepo Upsert] marshal: %w", err)
	}
	if err := r.client.Set(ctx, r.key(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("[redisrepo Upsert] redis error: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, sessionID string) (*sessions.Session, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("[redisrepo Get] redis error: %w", err)
	}

	var session sessions.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("[redisrepo Get] unmarshal: %w", err)
	}
	if session.Expired(r.nowTime()) {
		return nil, errors.ErrSessionNotFound
	}
	return &session, nil
}

const touchRetries = 3

// Touch rewrites the expiry inside WATCH/MULTI so a Delete racing with it wins.
func (r *Repo) Touch(ctx context.Context, sessionID string, expiresAt time.Time) error {
	key := r.key(sessionID)
	touch := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return errors.ErrSessionNotFound
			}
			return fmt.Errorf("[redisrepo Touch] redis error: %w", err)
		}
		var session sessions.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("[redisrepo Touch] unmarshal: %w", err)
		}
		now := r.nowTime()
		if session.Expired(now) {
			return errors.ErrSessionNotFound
		}
		ttl := expiresAt.Sub(now)
		session.ExpiresAt = expiresAt
		if data, err = json.Marshal(&session); err != nil {
			return fmt.Errorf("[redisrepo Touch] marshal: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if ttl <= 0 {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < touchRetries; i++ {
		err := r.client.Watch(ctx, touch, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, errors.ErrSessionNotFound) {
			return fmt.Errorf("[redisrepo Touch] %w", err)
		}
		return err
	}
	return fmt.Errorf("[redisrepo Touch] %w", redis.TxFailedErr)
}

func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("[redisrepo Delete] redis error: %w", err)
	}
	return nil
}
