package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
)

func TestDemoProfile(t *testing.T) {
	for _, r := range domainauth.Roles() {
		p, ok := DemoProfile(r)
		require.True(t, ok, r)
		assert.Equal(t, r, p.Role)
		assert.NotEmpty(t, p.UID)
		assert.NotEmpty(t, p.Name)
	}

	s, _ := DemoProfile(domainauth.RoleStudent)
	assert.Equal(t, "AUY-2024-0042", s.StudentID)
	assert.Equal(t, "B.Sc. Computer Science", s.Course)

	_, ok := DemoProfile(domainauth.Role("guest"))
	assert.False(t, ok)
}

func TestAllowlistEntries(t *testing.T) {
	entries := AllowlistEntries()
	assert.Len(t, entries, len(Users()))

	seen := map[string]bool{}
	for _, e := range entries {
		assert.False(t, seen[e.Email], "duplicate %s", e.Email)
		seen[e.Email] = true
		assert.True(t, e.Role.Valid())
	}

	// demo attributes win over the directory's short course name
	for _, e := range entries {
		if e.Email == DemoStudentEmail {
			assert.Equal(t, "B.Sc. Computer Science", e.Course)
		}
	}
}

func TestAttendanceCarriesEmail(t *testing.T) {
	for _, r := range Attendance("x@university.edu") {
		assert.Equal(t, "x@university.edu", r.StudentEmail)
	}
}
