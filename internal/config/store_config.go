package config

import "time"

const (
	databaseURLVar  = "DATABASE_URL"
	redisURLVar     = "REDIS_URL"
	storeTimeoutVar = "STORE_TIMEOUT"
)

// StoreConfig locates the external user and session stores.
// An empty URL selects the in-memory implementation, which Validate allows only in DEV.
type StoreConfig interface {
	GetDatabaseURL() string
	GetRedisURL() string
	GetStoreTimeout() time.Duration
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetDatabaseURL() string {
	return GetEnv(databaseURLVar, "")
}

func (Store) GetRedisURL() string {
	return GetEnv(redisURLVar, "")
}

// GetStoreTimeout bounds every single call to an external store
func (Store) GetStoreTimeout() time.Duration {
	return GetEnvDuration(storeTimeoutVar, 5*time.Second)
}
