package testutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestDBConfig_Defaults(t *testing.T) {
	for _, k := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME", "DB_SSL_MODE"} {
		t.Setenv(k, "")
	}

	cfg := TestDBConfig()
	assert.Equal(t, DBConfig{
		Host:     "localhost",
		Port:     "55432",
		User:     "portal",
		Password: "portal",
		DBName:   "portal",
		SSLMode:  "disable",
	}, cfg)
}

func TestTestDBConfig_CIOverrides(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "postgres")
	t.Setenv("TEST_DB_PORT", "5432")
	t.Setenv("TEST_DB_PASSWORD", "p@ss/word")

	cfg := TestDBConfig()
	assert.Equal(t, "postgres", cfg.Host)
	assert.Equal(t, "5432", cfg.Port)

	u, err := url.Parse(cfg.DSN("t_abc"))
	require.NoError(t, err)
	assert.Equal(t, "postgres:5432", u.Host)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss/word", pw)
	assert.Equal(t, "t_abc", u.Query().Get("search_path"))

	u, err = url.Parse(cfg.DSN(""))
	require.NoError(t, err)
	assert.False(t, u.Query().Has("search_path"))
}

func TestRedisCandidates(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	assert.Equal(t, []string{"redis:6379", "localhost:6379", "localhost:56379"}, redisCandidates())

	t.Setenv("REDIS_ADDR", "cache:6380")
	assert.Equal(t, []string{"cache:6380"}, redisCandidates())
}
