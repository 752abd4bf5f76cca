package auth

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "admin", want: RoleAdmin},
		{in: " Teacher ", want: RoleTeacher},
		{in: "STUDENT", want: RoleStudent},
		{in: "", wantErr: true},
		{in: "guest", wantErr: true},
		{in: "*", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_UnmarshalText(t *testing.T) {
	var r Role
	require.NoError(t, r.UnmarshalText([]byte("teacher")))
	assert.Equal(t, RoleTeacher, r)
	assert.Error(t, r.UnmarshalText([]byte("owner")))
	assert.Equal(t, RoleTeacher, r, "failed decode must not mutate")
}

func TestRoleSet(t *testing.T) {
	var none RoleSet
	assert.Nil(t, none)
	assert.False(t, none.Has(RoleAdmin))

	s := NewRoleSet(RoleTeacher, RoleAdmin)
	assert.True(t, s.Has(RoleAdmin))
	assert.False(t, s.Has(RoleStudent))
	assert.Equal(t, []Role{RoleAdmin, RoleTeacher}, s.Slice())
	assert.NotNil(t, NewRoleSet())
	assert.Len(t, AllRoles(), 3)
}

func TestAllowlistRecord_Entry(t *testing.T) {
	rec := AllowlistRecord{Allowed: true, UID: "u1", Name: " Dr. X ", Email: " Admin@University.EDU ", Role: "Admin"}
	e, err := rec.Entry()
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, e.Role)
	assert.Equal(t, "admin@university.edu", e.Email)
	assert.Equal(t, "Dr. X", e.Name)

	_, err = AllowlistRecord{Allowed: false, Role: "admin"}.Entry()
	assert.ErrorIs(t, err, ErrNotAllowed)

	_, err = AllowlistRecord{Allowed: true, Role: "superuser"}.Entry()
	assert.ErrorIs(t, err, ErrUnknownRole)

	assert.Equal(t, "admin", e.Record().Role)
	assert.True(t, e.Record().Allowed)
}

func TestAllowlistEntry_Profile(t *testing.T) {
	id := &Identity{UserID: "sub-1", Email: "Someone@Example.com"}

	p := AllowlistEntry{Role: RoleStudent}.Profile(id)
	assert.Equal(t, "sub-1", p.UID)
	assert.Equal(t, "someone@example.com", p.Email)
	assert.Equal(t, "someone", p.Name)
	assert.Equal(t, RoleStudent, p.Role)

	p = AllowlistEntry{UID: "student-001", Name: "Aung Myat Thu", Email: "student@university.edu", Role: RoleStudent, StudentID: "AUY-2024-0042"}.Profile(id)
	assert.Equal(t, "student-001", p.UID)
	assert.Equal(t, "AUY-2024-0042", p.StudentID)
}

func TestIdentity_Same(t *testing.T) {
	now := time.Now()
	a := Identity{UserID: "u", Email: "a@x.io", Provider: "oidc", IssuedAt: now}
	b := a
	b.Email = "A@X.io"
	assert.True(t, a.Same(b))
	b.IssuedAt = now.Add(time.Second)
	assert.False(t, a.Same(b))
}

func TestAuthError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("login: %w", NewAuthError(KindNetwork, cause))

	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrNotAuthorized)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, KindNone, KindOf(cause))
	assert.Equal(t, "This email is not authorized", KindNotAuthorized.Message())
}

func TestSessionState_CloneAndRole(t *testing.T) {
	s := Initial()
	assert.True(t, s.Loading)
	assert.Nil(t, s.Role())

	s.Phase = PhaseAuthenticated
	s.Profile = &UserProfile{Role: RoleTeacher}
	c := s.Clone()
	c.Profile.Role = RoleAdmin
	assert.Equal(t, RoleTeacher, s.Profile.Role)
	require.NotNil(t, s.Role())
	assert.Equal(t, RoleTeacher, *s.Role())

	e := SessionState{}.WithError(KindNotAuthorized)
	assert.Equal(t, KindNotAuthorized, e.ErrorKind)
	assert.Equal(t, "This email is not authorized", e.Error)
}
