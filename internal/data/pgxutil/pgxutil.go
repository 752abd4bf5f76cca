// Package pgxutil runs pgx-native queries over a database/sql pool opened with the pgx
// stdlib driver.
package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// WithConn acquires a *pgx.Conn via the stdlib bridge and executes fn with it.
func WithConn(ctx context.Context, db *sql.DB, fn func(*pgx.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		// returning the connection to the pool is best-effort
		_ = conn.Close()
	}()

	return conn.Raw(func(dc any) error {
		std, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		return fn(std.Conn())
	})
}

// Collect runs query and scans every row into T by column name (`db` struct tags).
func Collect[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	var out []T
	err := WithConn(ctx, db, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[T])
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CollectOne is Collect for queries keyed by a unique column. It returns pgx.ErrNoRows when
// nothing matched.
func CollectOne[T any](ctx context.Context, db *sql.DB, query string, args ...any) (T, error) {
	var zero T
	rows, err := Collect[T](ctx, db, query, args...)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, pgx.ErrNoRows
	}
	return rows[0], nil
}

// Exec runs a statement and returns the number of affected rows.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (int64, error) {
	var affected int64
	err := WithConn(ctx, db, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, err
}
