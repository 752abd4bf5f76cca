package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	apperrors "github.com/auy/thinkers-portal/internal/errors"
	"github.com/auy/thinkers-portal/internal/ports"
)

// AllowlistServiceOptions groups dependencies for AllowlistService.
type AllowlistServiceOptions struct {
	Source ports.AllowlistSource // Required: policy source
	Logger *slog.Logger          // Optional: structured logger
}

// AllowlistService decides whether an email may use the portal and with which role.
// Resolution is never cached so revocations take effect on the next sign-in.
type AllowlistService struct {
	source ports.AllowlistSource
	logger *slog.Logger
}

// NewAllowlistService constructs a new AllowlistService.
func NewAllowlistService(opts AllowlistServiceOptions) *AllowlistService {
	if opts.Source == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("AllowlistSource is required")
	}
	return &AllowlistService{source: opts.Source, logger: opts.Logger}
}

// Resolve returns the allowlist entry for email, or nil when the email must be denied.
// It fails closed: unlisted emails, allowed=false, unknown roles and lookup failures all
// yield nil. The failure reason is logged and never surfaced.
func (s *AllowlistService) Resolve(ctx context.Context, email string) *domainauth.AllowlistEntry {
	normalized := domainauth.NormalizeEmail(email)
	if normalized == "" {
		s.deny(ctx, normalized, "empty email", nil)
		return nil
	}

	rec, err := s.source.Lookup(ctx, normalized)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			s.deny(ctx, normalized, "not listed", nil)
		} else {
			s.deny(ctx, normalized, "lookup failed", err)
		}
		return nil
	}

	entry, err := rec.Entry()
	if err != nil {
		s.deny(ctx, normalized, "invalid record", err)
		return nil
	}
	if entry.Email == "" {
		entry.Email = normalized
	}
	return &entry
}

func (s *AllowlistService) deny(ctx context.Context, email, reason string, err error) {
	if s.logger == nil {
		return
	}
	attrs := []any{"email", email, "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
		s.logger.WarnContext(ctx, "allowlist denied", attrs...)
		return
	}
	s.logger.InfoContext(ctx, "allowlist denied", attrs...)
}

// Store returns the mutable store behind the source, if it is one.
func (s *AllowlistService) Store() (ports.AllowlistStore, bool) {
	st, ok := s.source.(ports.AllowlistStore)
	return st, ok
}

var errReadOnlyAllowlist = apperrors.Validation("configured allowlist backend is read-only")

// List returns every allowed entry of a mutable backend.
func (s *AllowlistService) List(ctx context.Context) ([]domainauth.AllowlistEntry, error) {
	st, ok := s.Store()
	if !ok {
		return nil, errReadOnlyAllowlist
	}
	entries, err := st.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list allowlist: %w", err)
	}
	return entries, nil
}

// AddInput is the admin payload for granting access.
type AddInput struct {
	Email      string
	Role       string
	Name       string
	UID        string
	StudentID  string
	Course     string
	Department string
}

// Add grants (or updates) access for an email.
func (s *AllowlistService) Add(ctx context.Context, in AddInput) (domainauth.AllowlistEntry, error) {
	st, ok := s.Store()
	if !ok {
		return domainauth.AllowlistEntry{}, errReadOnlyAllowlist
	}

	email := domainauth.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domainauth.AllowlistEntry{}, apperrors.ValidationField("email", "a valid email is required")
	}
	role, err := domainauth.ParseRole(in.Role)
	if err != nil {
		return domainauth.AllowlistEntry{}, apperrors.ValidationField("role", err.Error())
	}

	entry := domainauth.AllowlistEntry{
		UID:        strings.TrimSpace(in.UID),
		Name:       strings.TrimSpace(in.Name),
		Email:      email,
		Role:       role,
		StudentID:  strings.TrimSpace(in.StudentID),
		Course:     strings.TrimSpace(in.Course),
		Department: strings.TrimSpace(in.Department),
	}
	if upsertErr := st.Upsert(ctx, entry); upsertErr != nil {
		return domainauth.AllowlistEntry{}, fmt.Errorf("upsert allowlist entry: %w", upsertErr)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "allowlist entry saved", "email", email, "role", role)
	}
	return entry, nil
}

// Remove revokes access for an email. Removing an unknown email is not an error.
func (s *AllowlistService) Remove(ctx context.Context, email string) (bool, error) {
	st, ok := s.Store()
	if !ok {
		return false, errReadOnlyAllowlist
	}
	deleted, err := st.Delete(ctx, domainauth.NormalizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("delete allowlist entry: %w", err)
	}
	if deleted && s.logger != nil {
		s.logger.InfoContext(ctx, "allowlist entry removed", "email", domainauth.NormalizeEmail(email))
	}
	return deleted, nil
}
