package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField extracts field name from unique violation detail: "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError maps database errors to AppError instances.
// It handles:
// - pgx.ErrNoRows → NotFound
// - Unique constraint violations → Conflict
// - Check and NOT NULL violations → Validation
// - Context timeouts/cancellations → Timeout/Canceled
//
// If the error is not a recognized database error, it returns the original error.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{Code: ErrCodeNotFound, Message: "Resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	return err
}

// mapPgError maps PostgreSQL-specific errors to AppError instances.
func mapPgError(pgErr *pgconn.PgError) error {
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "This value already exists. Please choose a different one.",
			Field:   uniqueField(pgErr),
			Cause:   pgErr,
		}
	case pgerrcode.CheckViolation:
		return validationErr(pgErr, "This field has an invalid value.", "Invalid data. Please check your input.")
	case pgerrcode.NotNullViolation:
		return validationErr(pgErr, "This field is required.", "Required field is missing. Please check your input.")
	case pgerrcode.InvalidTextRepresentation:
		return validationErr(pgErr, "This field has an invalid value.", "Invalid data. Please check your input.")
	default:
		return &AppError{
			Code:    ErrCodeInternal,
			Message: "A database error occurred. Please try again.",
			Cause:   pgErr,
		}
	}
}

func validationErr(pgErr *pgconn.PgError, fieldMsg, genericMsg string) error {
	if pgErr.ColumnName != "" {
		return &AppError{Code: ErrCodeValidation, Message: fieldMsg, Field: pgErr.ColumnName, Cause: pgErr}
	}
	return &AppError{Code: ErrCodeValidation, Message: genericMsg, Cause: pgErr}
}

// uniqueField finds the offending column: ColumnName, then the Detail text, then the constraint name.
func uniqueField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return m[1]
	}
	return inferFieldFromConstraint(pgErr.ConstraintName)
}

// inferFieldFromConstraint attempts to infer the field name from a constraint name.
// e.g., "allowlist_entries_pkey" → "" (ambiguous), "entries_email_key" → "email".
func inferFieldFromConstraint(constraintName string) string {
	parts := strings.Split(constraintName, "_")
	if len(parts) != 3 {
		return ""
	}
	switch candidate := parts[1]; strings.ToLower(candidate) {
	case "lower", "upper", "trim", "md5":
		// expression index
		return ""
	default:
		return candidate
	}
}
