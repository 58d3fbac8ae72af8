// Package errors tests for error code definitions and error handling.
package errors

import (
	"errors"
	"fmt"
	"testing"
)

// TestErrorCodeValues verifies all error codes have non-empty, distinct values.
func TestErrorCodeValues(t *testing.T) {
	codes := []ErrorCode{
		ErrInternal, ErrNotFound, ErrValidation, ErrCancelled,
		ErrDatabase, ErrMigration,
		ErrTransport, ErrRender, ErrCrypto,
		ErrExportFailed, ErrInvalidPassword, ErrCorruptedArchive,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if code == "" {
			t.Error("ErrorCode should not be empty")
		}
		if seen[code] {
			t.Errorf("duplicate ErrorCode %q", code)
		}
		seen[code] = true
	}
}

// TestAppError_Error verifies error message formatting.
func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name:     "error without underlying error",
			appError: &AppError{Code: ErrValidation, Message: "customer name is required"},
			want:     "[VALIDATION_ERROR] customer name is required",
		},
		{
			name:     "error with underlying error",
			appError: &AppError{Code: ErrDatabase, Message: "insert repair", Err: errors.New("disk I/O error")},
			want:     "[DATABASE_ERROR] insert repair: disk I/O error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appError.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestWrap verifies error wrapping and unwrapping.
func TestWrap(t *testing.T) {
	underlying := errors.New("permission denied")

	err := Wrap(ErrTransport, "send sms", underlying)
	if err.Code != ErrTransport {
		t.Errorf("Wrap() code = %q, want %q", err.Code, ErrTransport)
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is should find the wrapped error")
	}
	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}
}

func TestNewf(t *testing.T) {
	err := Newf(ErrNotFound, "repair %d not found", 42)
	if err.Message != "repair 42 not found" {
		t.Errorf("Newf() message = %q", err.Message)
	}
}

// TestIs verifies error code checking through wrapping layers.
func TestIs(t *testing.T) {
	inner := Wrap(ErrDatabase, "list repairs", errors.New("locked"))
	outer := Wrap(ErrInternal, "reload", inner)

	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching AppError", New(ErrNotFound, "missing"), ErrNotFound, true},
		{"non-matching AppError", New(ErrNotFound, "missing"), ErrInternal, false},
		{"non-AppError", errors.New("plain"), ErrInternal, false},
		{"nil error", nil, ErrInternal, false},
		{"fmt wrapped", fmt.Errorf("ctx: %w", inner), ErrDatabase, true},
		{"nested AppError", outer, ErrDatabase, true},
		{"joined second", errors.Join(New(ErrTransport, "send"), inner), ErrDatabase, true},
		{"joined none", errors.Join(errors.New("a"), errors.New("b")), ErrDatabase, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(fmt.Errorf("wrap: %w", New(ErrCancelled, "no image"))); got != ErrCancelled {
		t.Errorf("CodeOf() = %q, want %q", got, ErrCancelled)
	}
	if got := CodeOf(errors.New("plain")); got != ErrInternal {
		t.Errorf("CodeOf(plain) = %q, want %q", got, ErrInternal)
	}
}
