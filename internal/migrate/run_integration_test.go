package migrate_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auy/thinkers-portal/internal/migrate"
	"github.com/auy/thinkers-portal/internal/testutil"
)

func TestRun_Idempotent(t *testing.T) {
	testutil.WithDB(t, func(db *sql.DB) {
		ctx := context.Background()

		// WithDB has already applied every migration once.
		require.NoError(t, migrate.Run(ctx, db))

		statuses, err := migrate.List(ctx, db)
		require.NoError(t, err)
		require.NotEmpty(t, statuses)
		for _, s := range statuses {
			assert.True(t, s.Applied, "migration %s not applied", s.Version)
		}

		var n int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT count(*) FROM allowlist_entries`).Scan(&n))
		assert.Zero(t, n)
	})
}
