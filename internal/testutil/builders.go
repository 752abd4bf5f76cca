// Package testutil provides testing utilities and helpers for the portal.
package testutil

import (
	"time"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
)

// IdentityBuilder provides a fluent interface for building provider identities in tests.
type IdentityBuilder struct {
	id domainauth.Identity
}

// NewIdentity creates an IdentityBuilder for email with sensible defaults.
func NewIdentity(email string) *IdentityBuilder {
	now := TestTime()
	return &IdentityBuilder{
		id: domainauth.Identity{
			UserID:        "uid-" + domainauth.NormalizeEmail(email),
			Email:         email,
			EmailVerified: true,
			Provider:      "test",
			IssuedAt:      now,
			ExpiresAt:     now.Add(time.Hour),
		},
	}
}

// WithUserID sets the subject.
func (b *IdentityBuilder) WithUserID(id string) *IdentityBuilder {
	b.id.UserID = id
	return b
}

// IssuedAt sets the sign-in time, which distinguishes repeated sign-ins.
func (b *IdentityBuilder) IssuedAt(t time.Time) *IdentityBuilder {
	b.id.IssuedAt = t
	return b
}

// ExpiresIn sets the expiry relative to now.
func (b *IdentityBuilder) ExpiresIn(d time.Duration) *IdentityBuilder {
	b.id.ExpiresAt = time.Now().Add(d)
	return b
}

// Build returns the identity.
func (b *IdentityBuilder) Build() domainauth.Identity {
	return b.id
}

// EntryBuilder builds allowlist entries.
type EntryBuilder struct {
	e domainauth.AllowlistEntry
}

// NewEntry creates an EntryBuilder for email and role.
func NewEntry(email string, role domainauth.Role) *EntryBuilder {
	return &EntryBuilder{e: domainauth.AllowlistEntry{
		UID:   role.String() + "-test",
		Email: domainauth.NormalizeEmail(email),
		Role:  role,
	}}
}

// WithName sets the display name.
func (b *EntryBuilder) WithName(name string) *EntryBuilder {
	b.e.Name = name
	return b
}

// WithStudent sets student attributes.
func (b *EntryBuilder) WithStudent(studentID, course string) *EntryBuilder {
	b.e.StudentID = studentID
	b.e.Course = course
	return b
}

// WithDepartment sets the department.
func (b *EntryBuilder) WithDepartment(dept string) *EntryBuilder {
	b.e.Department = dept
	return b
}

// Build returns the entry.
func (b *EntryBuilder) Build() domainauth.AllowlistEntry {
	return b.e
}
