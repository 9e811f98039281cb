package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultSessionHours is how long an anonymous drafting session stays valid.
const DefaultSessionHours = 168

// JWTConfig holds configuration for session token signing and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
	Issuer          string
}

// NewJWTConfig creates a session token configuration from the process environment.
func NewJWTConfig() (*JWTConfig, error) {
	return JWTConfigFromEnv(os.Getenv)
}

// JWTConfigFromEnv reads JWT_SECRET (required), JWT_EXPIRATION_HOURS (default 168) and
// JWT_ISSUER (default "design-coach") through getenv.
func JWTConfigFromEnv(getenv func(string) string) (*JWTConfig, error) {
	secret := getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	expirationHours := DefaultSessionHours
	if raw := getenv("JWT_EXPIRATION_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
		}
		expirationHours = hours
	}

	issuer := getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "design-coach"
	}

	config := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
		Issuer:          issuer,
	}
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *JWTConfig) normalize() error {
	if len(c.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
