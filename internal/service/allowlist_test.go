package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/auy/thinkers-portal/internal/domain/auth"
	apperrors "github.com/auy/thinkers-portal/internal/errors"
	"github.com/auy/thinkers-portal/internal/mocks"
	mockauth "github.com/auy/thinkers-portal/internal/mocks/auth"
	"github.com/auy/thinkers-portal/internal/ports"
)

func TestAllowlistService_Resolve(t *testing.T) {
	source := mockauth.NewStaticAllowlist(
		domainauth.AllowlistRecord{Allowed: true, Email: "admin@university.edu", Name: "Dr. Thandar Win", Role: "admin"},
		domainauth.AllowlistRecord{Allowed: false, Email: "blocked@university.edu", Role: "student"},
		domainauth.AllowlistRecord{Allowed: true, Email: "odd@university.edu", Role: "superuser"},
	)
	svc := NewAllowlistService(AllowlistServiceOptions{Source: source})
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		wantRole domainauth.Role
		wantNil  bool
	}{
		{name: "listed", email: "admin@university.edu", wantRole: domainauth.RoleAdmin},
		{name: "case and whitespace insensitive", email: "  Admin@University.EDU ", wantRole: domainauth.RoleAdmin},
		{name: "not listed", email: "stranger@example.com", wantNil: true},
		{name: "allowed false", email: "blocked@university.edu", wantNil: true},
		{name: "unknown role", email: "odd@university.edu", wantNil: true},
		{name: "empty email", email: "   ", wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Resolve(ctx, tt.email)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantRole, got.Role)
			assert.True(t, got.Role.Valid())
		})
	}
}

func TestAllowlistService_Resolve_FillsEmail(t *testing.T) {
	source := mockauth.NewStaticAllowlist()
	source.LookupFunc = func(_ context.Context, _ string) (domainauth.AllowlistRecord, error) {
		return domainauth.AllowlistRecord{Allowed: true, Role: "teacher"}, nil
	}
	svc := NewAllowlistService(AllowlistServiceOptions{Source: source})

	got := svc.Resolve(context.Background(), "Teacher@University.edu")
	require.NotNil(t, got)
	assert.Equal(t, "teacher@university.edu", got.Email)
}

func TestAllowlistService_Resolve_FailsClosedOnError(t *testing.T) {
	source := mockauth.NewStaticAllowlist()
	source.LookupFunc = func(_ context.Context, _ string) (domainauth.AllowlistRecord, error) {
		return domainauth.AllowlistRecord{}, errors.New("connection refused")
	}
	svc := NewAllowlistService(AllowlistServiceOptions{Source: source})

	assert.Nil(t, svc.Resolve(context.Background(), "admin@university.edu"))
}

func TestAllowlistService_Resolve_NotCached(t *testing.T) {
	source := mockauth.NewStaticAllowlist(
		domainauth.AllowlistRecord{Allowed: true, Email: "teacher@university.edu", Role: "teacher"},
	)
	svc := NewAllowlistService(AllowlistServiceOptions{Source: source})
	ctx := context.Background()

	require.NotNil(t, svc.Resolve(ctx, "teacher@university.edu"))
	source.Remove("teacher@university.edu")
	assert.Nil(t, svc.Resolve(ctx, "teacher@university.edu"))
	assert.Equal(t, 2, source.Calls())
}

func TestAllowlistService_ReadOnlySource(t *testing.T) {
	svc := NewAllowlistService(AllowlistServiceOptions{Source: mockauth.NewStaticAllowlist()})
	ctx := context.Background()

	_, err := svc.List(ctx)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Add(ctx, AddInput{Email: "a@b.edu", Role: "student"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Remove(ctx, "a@b.edu")
	assert.True(t, apperrors.IsValidation(err))
}

func TestAllowlistService_Add(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockAllowlistStore(ctrl)
	svc := NewAllowlistService(AllowlistServiceOptions{Source: store})
	ctx := context.Background()

	store.EXPECT().Upsert(gomock.Any(), domainauth.AllowlistEntry{
		Name:  "Prof. Min Thant",
		Email: "minthant@auy.edu.mm",
		Role:  domainauth.RoleTeacher,
	}).Return(nil)

	entry, err := svc.Add(ctx, AddInput{Email: " MinThant@auy.edu.mm ", Role: "Teacher", Name: " Prof. Min Thant "})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleTeacher, entry.Role)
	assert.Equal(t, "minthant@auy.edu.mm", entry.Email)
}

func TestAllowlistService_Add_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockAllowlistStore(ctrl)
	svc := NewAllowlistService(AllowlistServiceOptions{Source: store})
	ctx := context.Background()

	_, err := svc.Add(ctx, AddInput{Email: "not-an-email", Role: "student"})
	require.Error(t, err)
	assert.Equal(t, "email", apperrors.GetField(err))

	_, err = svc.Add(ctx, AddInput{Email: "x@auy.edu.mm", Role: "superuser"})
	require.Error(t, err)
	assert.Equal(t, "role", apperrors.GetField(err))
}

func TestAllowlistService_ListAndRemove(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockAllowlistStore(ctrl)
	svc := NewAllowlistService(AllowlistServiceOptions{Source: store})
	ctx := context.Background()

	entries := []domainauth.AllowlistEntry{{Email: "a@auy.edu.mm", Role: domainauth.RoleStudent}}
	store.EXPECT().List(gomock.Any()).Return(entries, nil)
	store.EXPECT().Delete(gomock.Any(), "a@auy.edu.mm").Return(true, nil)
	store.EXPECT().Delete(gomock.Any(), "b@auy.edu.mm").Return(false, ports.ErrNotFound)

	got, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	deleted, err := svc.Remove(ctx, "A@auy.edu.mm")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.Remove(ctx, "b@auy.edu.mm")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
