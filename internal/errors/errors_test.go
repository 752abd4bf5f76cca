package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "resource not found"},
			want: "resource not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to process",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to process: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
		msg  string
	}{
		{"NotFound", NotFound("missing"), ErrCodeNotFound, "missing"},
		{"NotFoundf", NotFoundf("entry %s not found", "a@b.io"), ErrCodeNotFound, "entry a@b.io not found"},
		{"Conflict", Conflict("dup"), ErrCodeConflict, "dup"},
		{"Validation", Validation("bad"), ErrCodeValidation, "bad"},
		{"Validationf", Validationf("bad %d", 1), ErrCodeValidation, "bad 1"},
		{"Forbidden", Forbidden("no"), ErrCodeForbidden, "no"},
		{"Internal", Internal("boom"), ErrCodeInternal, "boom"},
		{"percent without args", Validation("100% wrong"), ErrCodeValidation, "100% wrong"},
		{"verbs kept literally", Forbidden("role %s denied"), ErrCodeForbidden, "role %s denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.Message != tt.msg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.msg)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("email", "invalid email")
	if GetField(err) != "email" {
		t.Errorf("GetField() = %q, want email", GetField(err))
	}
	if !IsValidation(err) {
		t.Error("expected validation error")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Fatal("Wrap(nil) should return nil")
	}
	if Wrapf(nil, ErrCodeInternal, "x %d", 1) != nil {
		t.Fatal("Wrapf(nil) should return nil")
	}

	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("fetch exams: %w", Wrapf(cause, ErrCodeUnavailable, "data api %s failed", "getExams"))
	if !IsUnavailable(err) {
		t.Errorf("expected unavailable, got %v", GetCode(err))
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to cause")
	}
	if IsForbidden(err) || IsNotFound(err) || IsConflict(err) {
		t.Error("unexpected code match")
	}
}

func TestGetCode_NonAppError(t *testing.T) {
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode() = %q, want empty", got)
	}
	if got := GetField(errors.New("plain")); got != "" {
		t.Errorf("GetField() = %q, want empty", got)
	}
}
