package pgxutil_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auy/thinkers-portal/internal/data/pgxutil"
	"github.com/auy/thinkers-portal/internal/testutil"
)

type roleRow struct {
	Email string `db:"email"`
	Role  string `db:"role"`
}

func TestCollectAndExec(t *testing.T) {
	testutil.WithDB(t, func(db *sql.DB) {
		ctx := context.Background()

		n, err := pgxutil.Exec(ctx, db,
			`INSERT INTO allowlist_entries (email, role) VALUES ($1, 'student'), ($2, 'teacher')`,
			"b@university.edu", "a@university.edu")
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		rows, err := pgxutil.Collect[roleRow](ctx, db, `SELECT email, role FROM allowlist_entries ORDER BY email`)
		require.NoError(t, err)
		assert.Equal(t, []roleRow{
			{Email: "a@university.edu", Role: "teacher"},
			{Email: "b@university.edu", Role: "student"},
		}, rows)

		one, err := pgxutil.CollectOne[roleRow](ctx, db,
			`SELECT email, role FROM allowlist_entries WHERE email = $1`, "b@university.edu")
		require.NoError(t, err)
		assert.Equal(t, "student", one.Role)

		_, err = pgxutil.CollectOne[roleRow](ctx, db,
			`SELECT email, role FROM allowlist_entries WHERE email = $1`, "nobody@university.edu")
		assert.ErrorIs(t, err, pgx.ErrNoRows)

		n, err = pgxutil.Exec(ctx, db, `DELETE FROM allowlist_entries WHERE email = $1`, "nobody@university.edu")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
