package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	// Import pgx driver for database/sql compatibility in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/auy/thinkers-portal/internal/migrate"
)

// TestingTB is the subset of testing.TB the helpers need.
type TestingTB interface {
	Helper()
	Cleanup(func())
	Skip(args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
}

// DBConfig locates the test Postgres instance.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// TestDBConfig reads TEST_DB_* overrides. The default port 55432 is the docker-compose test
// profile; CI sets TEST_DB_PORT=5432.
func TestDBConfig() DBConfig {
	return DBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "55432"),
		User:     getEnvOrDefault("TEST_DB_USER", "portal"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "portal"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "portal"),
		SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
	}
}

// DSN renders cfg as a postgres URL, optionally pinned to schema.
func (cfg DBConfig) DSN(schema string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, cfg.Port),
		Path:   "/" + cfg.DBName,
	}
	q := url.Values{"sslmode": {cfg.SSLMode}}
	if schema != "" {
		q.Set("search_path", schema)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SkipIfNoTestDB skips the test when Postgres is unreachable, or fails it when
// TEST_REQUIRE_DB / TEST_REQUIRE_INFRA is set.
func SkipIfNoTestDB(t TestingTB) {
	t.Helper()
	db, err := openAndPing(TestDBConfig().DSN(""), 2*time.Second)
	if err != nil {
		if requireDB() {
			t.Fatal("Test database not available:", err)
		}
		t.Skip("Test database not available:", err)
	}
	closeAndLog(t, "probe DB", db)
}

// setupSchemaDB opens a connection scoped to a fresh schema, applies the embedded
// migrations and drops the schema when the test ends. Tests never share rows.
func setupSchemaDB(t TestingTB) *sql.DB {
	t.Helper()
	SkipIfNoTestDB(t)

	cfg := TestDBConfig()
	admin, err := openAndPing(cfg.DSN(""), 5*time.Second)
	if err != nil {
		t.Fatal("Failed to open admin DB:", err)
	}
	schema := schemaName()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		closeAndLog(t, "admin DB", admin)
		t.Fatalf("Failed to create schema %s: %v", schema, err)
	}

	db, err := openAndPing(cfg.DSN(schema), 5*time.Second)
	t.Cleanup(func() {
		if db != nil {
			closeAndLog(t, "schema DB", db)
		}
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dropCancel()
		if _, dropErr := admin.ExecContext(dropCtx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); dropErr != nil {
			t.Logf("warning: failed to drop schema %s: %v", schema, dropErr)
		}
		closeAndLog(t, "admin DB", admin)
	})
	if err != nil {
		t.Fatal("Failed to open schema-scoped DB:", err)
	}

	if err := migrate.Run(ctx, db); err != nil {
		t.Fatal("Failed to run migrations:", err)
	}
	return db
}

// WithDB runs fn against a migrated, per-test schema.
func WithDB(t TestingTB, fn func(*sql.DB)) {
	t.Helper()
	fn(setupSchemaDB(t))
}

func openAndPing(dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func schemaName() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("t_%d", time.Now().UnixNano())
	}
	return "t_" + hex.EncodeToString(b)
}

func closeAndLog(t TestingTB, name string, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		t.Logf("warning: failed to close %s: %v", name, err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }

// FixedTimeFunc returns a clock that always reports t.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TestTime is the fixed instant tests use as "now".
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// redisCandidates lists where a test Redis may live: REDIS_ADDR first, then the compose
// service name, then the default port, then the local test profile.
func redisCandidates() []string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return []string{addr}
	}
	return []string{"redis:6379", "localhost:6379", "localhost:56379"}
}

// SetupTestRedis returns a client on a reserved, flushed Redis DB. The test is skipped when
// no Redis answers, or failed when TEST_REQUIRE_REDIS / TEST_REQUIRE_INFRA is set.
// Callers close the client.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	for _, addr := range redisCandidates() {
		if err := pingRedis(addr); err != nil {
			t.Logf("Redis not available at %s: %v", addr, err)
			continue
		}
		client := redis.NewClient(&redis.Options{Addr: addr, DB: testRedisDB(t, addr)})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.FlushDB(ctx).Err()
		cancel()
		if err != nil {
			closeAndLog(t, "redis client", client)
			t.Fatalf("flush test redis db at %s: %v", addr, err)
		}
		return client
	}

	if requireRedis() {
		t.Fatal("Redis not available for testing")
	}
	t.Skip("Redis not available for testing")
	return nil
}

func pingRedis(addr string) error {
	c := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: time.Second})
	defer func() { _ = c.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Ping(ctx).Err()
}

// testRedisDB picks the DB index for a test: TEST_REDIS_DB when valid, otherwise the first of
// 1..15 whose lock key in DB 0 this test wins. Falls back to 1.
func testRedisDB(t TestingTB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("Invalid TEST_REDIS_DB=%q, falling back to auto-select", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer closeAndLog(t, "redis meta client", meta)

	owner := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
	for i := 1; i <= 15; i++ {
		key := fmt.Sprintf("portal:testutil:db_lock:%d", i)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ok, err := meta.SetNX(ctx, key, owner, 30*time.Minute).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		t.Cleanup(func() { releaseRedisLock(t, addr, key) })
		return i
	}
	return 1
}

func releaseRedisLock(t TestingTB, addr, key string) {
	c := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer closeAndLog(t, "redis cleanup client", c)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Del(ctx, key).Err(); err != nil {
		t.Logf("warning: failed to release redis db lock %s: %v", key, err)
	}
}
