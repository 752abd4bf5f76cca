package auth

// Package auth contains domain-level types for authentication, allowlisting and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and JSON. The set is closed: there is no
// wildcard and no default role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ErrUnknownRole is returned when a role string is outside the closed enumeration.
var ErrUnknownRole = errors.New("unknown role")

// Roles lists every valid role in display order.
func Roles() []Role { return []Role{RoleAdmin, RoleTeacher, RoleStudent} }

// ParseRole converts a raw string into a Role, rejecting anything unknown.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// UnmarshalText implements encoding.TextUnmarshaler so unknown roles fail at decode time.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is a set of roles. A nil RoleSet means "no role requirement".
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from the given roles. It never returns nil, so
// NewRoleSet() is an empty requirement that nobody satisfies.
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// AllRoles is a RoleSet containing every role.
func AllRoles() RoleSet { return NewRoleSet(Roles()...) }

// Has reports whether r is a member of the set.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// Slice returns the members in the canonical order of Roles().
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s))
	for _, r := range Roles() {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape. Each sign-in issues a new
// value; IssuedAt distinguishes two sign-ins of the same subject.
type Identity struct {
	UserID        string    `json:"user_id"` // opaque subject
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Provider      string    `json:"provider"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"` // absolute expiry from IdP token
}

// Same reports whether two identities describe the same sign-in.
func (i Identity) Same(o Identity) bool {
	return i.UserID == o.UserID &&
		strings.EqualFold(i.Email, o.Email) &&
		i.Provider == o.Provider &&
		i.IssuedAt.Equal(o.IssuedAt)
}

// UserProfile is the resolved, authoritative identity used by the rest of the application.
type UserProfile struct {
	UID        string `json:"uid"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	StudentID  string `json:"studentId,omitempty"`
	Course     string `json:"course,omitempty"`
	Department string `json:"department,omitempty"`
}

// AllowlistRecord is the raw record returned by a policy source.
// Role is kept as a string until Entry validates it.
type AllowlistRecord struct {
	Allowed    bool   `json:"allowed"`
	UID        string `json:"uid"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	StudentID  string `json:"studentId,omitempty"`
	Course     string `json:"course,omitempty"`
	Department string `json:"department,omitempty"`
}

// ErrNotAllowed is returned by AllowlistRecord.Entry for records with allowed=false.
var ErrNotAllowed = errors.New("email is not allowed")

// Entry validates the record and converts it into a typed AllowlistEntry.
func (r AllowlistRecord) Entry() (AllowlistEntry, error) {
	if !r.Allowed {
		return AllowlistEntry{}, ErrNotAllowed
	}
	role, err := ParseRole(r.Role)
	if err != nil {
		return AllowlistEntry{}, err
	}
	return AllowlistEntry{
		UID:        strings.TrimSpace(r.UID),
		Name:       strings.TrimSpace(r.Name),
		Email:      NormalizeEmail(r.Email),
		Role:       role,
		StudentID:  strings.TrimSpace(r.StudentID),
		Course:     strings.TrimSpace(r.Course),
		Department: strings.TrimSpace(r.Department),
	}, nil
}

// AllowlistEntry is an allowed email with its validated profile attributes.
type AllowlistEntry struct {
	UID        string `json:"uid"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	StudentID  string `json:"studentId,omitempty"`
	Course     string `json:"course,omitempty"`
	Department string `json:"department,omitempty"`
}

// Record converts the entry back into its wire form.
func (e AllowlistEntry) Record() AllowlistRecord {
	return AllowlistRecord{
		Allowed:    true,
		UID:        e.UID,
		Name:       e.Name,
		Email:      e.Email,
		Role:       string(e.Role),
		StudentID:  e.StudentID,
		Course:     e.Course,
		Department: e.Department,
	}
}

// Profile builds the UserProfile for a resolved identity.
// Entry attributes win; the identity fills the uid and email when the entry omits them.
func (e AllowlistEntry) Profile(id *Identity) UserProfile {
	p := UserProfile{
		UID:        e.UID,
		Name:       e.Name,
		Email:      e.Email,
		Role:       e.Role,
		StudentID:  e.StudentID,
		Course:     e.Course,
		Department: e.Department,
	}
	if id != nil {
		if p.UID == "" {
			p.UID = id.UserID
		}
		if p.Email == "" {
			p.Email = NormalizeEmail(id.Email)
		}
	}
	if p.Name == "" {
		p.Name = localPart(p.Email)
	}
	return p
}

// NormalizeEmail lower-cases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
