package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/auy/thinkers-portal/internal/data/pgxutil"
	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	apperrors "github.com/auy/thinkers-portal/internal/errors"
	"github.com/auy/thinkers-portal/internal/ports"
)

var _ ports.AllowlistStore = (*AllowlistRepo)(nil)

// AllowlistRepo is the Postgres-backed allowlist.
type AllowlistRepo struct {
	DB *sql.DB
}

// NewAllowlistRepo creates a new allowlist repository.
func NewAllowlistRepo(db *sql.DB) *AllowlistRepo {
	return &AllowlistRepo{DB: db}
}

const allowlistColumns = `email, uid, name, role, allowed, student_id, course, department`

type allowlistRow struct {
	Email      string `db:"email"`
	UID        string `db:"uid"`
	Name       string `db:"name"`
	Role       string `db:"role"`
	Allowed    bool   `db:"allowed"`
	StudentID  string `db:"student_id"`
	Course     string `db:"course"`
	Department string `db:"department"`
}

func (r allowlistRow) record() domainauth.AllowlistRecord {
	return domainauth.AllowlistRecord{
		Allowed:    r.Allowed,
		UID:        r.UID,
		Name:       r.Name,
		Email:      r.Email,
		Role:       r.Role,
		StudentID:  r.StudentID,
		Course:     r.Course,
		Department: r.Department,
	}
}

// Lookup returns the stored record for email, or ports.ErrNotFound.
func (r *AllowlistRepo) Lookup(ctx context.Context, email string) (domainauth.AllowlistRecord, error) {
	email = domainauth.NormalizeEmail(email)
	if email == "" {
		return domainauth.AllowlistRecord{}, ports.ErrNotFound
	}

	row, err := pgxutil.CollectOne[allowlistRow](ctx, r.DB,
		`SELECT `+allowlistColumns+` FROM allowlist_entries WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainauth.AllowlistRecord{}, ports.ErrNotFound
		}
		return domainauth.AllowlistRecord{}, apperrors.MapDBError(err)
	}
	return row.record(), nil
}

// List returns the allowed entries ordered by email. Rows that fail validation are skipped.
func (r *AllowlistRepo) List(ctx context.Context) ([]domainauth.AllowlistEntry, error) {
	rows, err := pgxutil.Collect[allowlistRow](ctx, r.DB,
		`SELECT `+allowlistColumns+` FROM allowlist_entries WHERE allowed ORDER BY email`)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}

	out := make([]domainauth.AllowlistEntry, 0, len(rows))
	for _, row := range rows {
		entry, entryErr := row.record().Entry()
		if entryErr != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// Upsert inserts or replaces the entry keyed by its email.
func (r *AllowlistRepo) Upsert(ctx context.Context, entry domainauth.AllowlistEntry) error {
	entry.Email = domainauth.NormalizeEmail(entry.Email)
	if entry.Email == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if !entry.Role.Valid() {
		return apperrors.ValidationField("role", "role must be one of admin, teacher, student")
	}

	_, err := pgxutil.Exec(ctx, r.DB, `
		INSERT INTO allowlist_entries (`+allowlistColumns+`)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7)
		ON CONFLICT (email) DO UPDATE SET
			uid = EXCLUDED.uid,
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			allowed = TRUE,
			student_id = EXCLUDED.student_id,
			course = EXCLUDED.course,
			department = EXCLUDED.department,
			updated_at = now()`,
		entry.Email,
		strings.TrimSpace(entry.UID),
		strings.TrimSpace(entry.Name),
		string(entry.Role),
		strings.TrimSpace(entry.StudentID),
		strings.TrimSpace(entry.Course),
		strings.TrimSpace(entry.Department),
	)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// Delete removes the entry for email and reports whether a row existed.
func (r *AllowlistRepo) Delete(ctx context.Context, email string) (bool, error) {
	email = domainauth.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}

	affected, err := pgxutil.Exec(ctx, r.DB, `DELETE FROM allowlist_entries WHERE email = $1`, email)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return affected > 0, nil
}
