package config

import "time"

const (
	sessionSecretVar      = "SESSION_SECRET"
	sessionCookieNameVar  = "SESSION_COOKIE_NAME"
	sessionIdleTimeoutVar = "SESSION_IDLE_TIMEOUT"
	sessionKeyPrefixVar   = "SESSION_KEY_PREFIX"

	minSessionSecretLength = 32
)

type SessionConfig interface {
	GetSessionSecret() string
	GetSessionCookieName() string
	GetSessionIdleTimeout() time.Duration
	GetSessionKeyPrefix() string
}

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionSecret is the HMAC key used to sign the session cookie
func (Session) GetSessionSecret() string {
	return GetEnv(sessionSecretVar, "")
}

func (Session) GetSessionCookieName() string {
	return GetEnv(sessionCookieNameVar, "sid")
}

func (Session) GetSessionIdleTimeout() time.Duration {
	return GetEnvDuration(sessionIdleTimeoutVar, 1*time.Hour)
}

func (Session) GetSessionKeyPrefix() string {
	return GetEnv(sessionKeyPrefixVar, "sessions:")
}
