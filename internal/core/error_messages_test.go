package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "auth required",
			err:         ErrAuthRequired,
			wantCode:    "AUTH001",
			wantMessage: "authentication required",
		},
		{
			name:        "wrapped forbidden",
			err:         fmt.Errorf("users: %w", ErrForbidden),
			wantCode:    "AUTH002",
			wantMessage: "users: permission denied",
		},
		{
			name:        "invalid credentials",
			err:         ErrInvalidCredentials,
			wantCode:    "AUTH003",
			wantMessage: "invalid username or password",
		},
		{
			name:        "required field keeps its label",
			err:         &ValidationError{Field: "D3", Label: "Date", Message: "Date is required"},
			wantCode:    "VAL001",
			wantMessage: "Date is required",
		},
		{
			name:        "malformed input id",
			err:         &ValidationError{Field: "x", Message: "bad id"},
			wantCode:    "VAL002",
			wantMessage: "bad id",
		},
		{
			name:        "duplicate user",
			err:         &ConflictError{Kind: "user", Key: "alice"},
			wantCode:    "USR001",
			wantMessage: "username already exists: alice",
		},
		{
			name:        "unknown user",
			err:         &NotFoundError{Kind: "user", Key: "bob"},
			wantCode:    "USR002",
			wantMessage: "user not found: bob",
		},
		{
			name:        "protected user",
			err:         ErrProtectedUser,
			wantCode:    "USR003",
			wantMessage: "the main administrator can not be deleted",
		},
		{
			name:        "no record for item",
			err:         &NotFoundError{Kind: "input", Key: "A1"},
			wantCode:    "RPT001",
			wantMessage: "no input data found for item A1",
		},
		{
			name:        "import failure keeps the cause",
			err:         &ImportError{Err: errors.New("zip: not a valid zip file")},
			wantCode:    "IMP001",
			wantMessage: "failed to process file: zip: not a valid zip file",
		},
		{
			name:        "render failure",
			err:         &RenderError{Err: errors.New("disk full")},
			wantCode:    "RPT002",
			wantMessage: "failed to generate PDF: disk full",
		},
		{
			name:        "busy",
			err:         ErrTooManyJobs,
			wantCode:    "UPL002",
			wantMessage: "The system is busy",
		},
		{
			name:        "no file pattern",
			err:         errors.New("no file provided"),
			wantCode:    "IMP002",
			wantMessage: "No file was selected",
		},
		{
			name:        "rate limit pattern is case insensitive",
			err:         errors.New("Rate Limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")

	if !errors.Is(&ImportError{Err: cause}, cause) {
		t.Error("ImportError should unwrap to its cause")
	}
	if !errors.Is(&RenderError{Err: cause}, cause) {
		t.Error("RenderError should unwrap to its cause")
	}
}
