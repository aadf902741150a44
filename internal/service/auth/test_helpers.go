package auth

import (
	"fmt"

	"github.com/phrazzld/taskflow-api/internal/config"
)

// DefaultJWTConfig returns an auth configuration suitable for tests.
func DefaultJWTConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   "test-jwt-secret-that-is-32-chars-long",
		BCryptCost:                  4,
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 1440,
	}
}

// MustCreateTestJWTService creates a JWT service with DefaultJWTConfig and
// panics if that fails.
func MustCreateTestJWTService() JWTService {
	svc, err := NewJWTService(DefaultJWTConfig())
	if err != nil {
		panic(fmt.Sprintf("failed to create test JWT service: %v", err))
	}
	return svc
}
