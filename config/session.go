package config

import (
	"fmt"
	"strings"
	"time"
)

// SessionStore selects where per-client identity and demo state is persisted.
type SessionStore string

const (
	// SessionStoreMemory keeps client state in process. State is lost on restart.
	SessionStoreMemory SessionStore = "memory"
	// SessionStoreRedis keeps client state in Redis so it survives restarts.
	SessionStoreRedis SessionStore = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionStore.
func (s *SessionStore) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch SessionStore(v) {
	case SessionStoreMemory, SessionStoreRedis:
		*s = SessionStore(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionStore: %q (valid options: memory, redis)", v)
	}
}

// SessionConfig controls client state persistence and eviction.
type SessionConfig struct {
	Store SessionStore `env:"STORE" envDefault:"memory"`

	// TTL bounds how long persisted client state lives without activity.
	TTL time.Duration `env:"TTL" envDefault:"8h"`

	// RedisPrefix namespaces client state keys.
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"portal:client:"`

	// IdleTimeout evicts in-process session machines not used for this long.
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"30m"`

	// SweepInterval is how often idle machines and expired memory state are swept.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.TTL <= 0 {
		s.TTL = 8 * time.Hour
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = 30 * time.Minute
	}
	if s.SweepInterval < time.Second {
		s.SweepInterval = time.Second
	}
	if s.RedisPrefix == "" {
		s.RedisPrefix = "portal:client:"
	}
}
