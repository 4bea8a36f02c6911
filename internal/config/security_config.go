package config

const (
	passwordHashCostVar = "PASSWORD_HASH_COST"
	maxBodyBytesVar     = "MAX_BODY_BYTES"

	defaultPasswordHashCost = 10
)

type SecurityConfig interface {
	GetPasswordHashCost() int
	GetMaxBodyBytes() int64
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetPasswordHashCost() int {
	return GetEnvInt(passwordHashCostVar, defaultPasswordHashCost)
}

// GetMaxBodyBytes limits form and JSON request bodies
func (Security) GetMaxBodyBytes() int64 {
	return int64(GetEnvInt(maxBodyBytesVar, 64*1024))
}
