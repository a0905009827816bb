package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "missing columns",
			err:      &MissingColumnsError{Columns: []string{"PIC"}},
			wantCode: "VAL001",
		},
		{
			name:     "wrapped missing columns",
			err:      fmt.Errorf("validate upload: %w", &MissingColumnsError{Columns: []string{"url"}}),
			wantCode: "VAL001",
		},
		{
			name:     "all rows invalid",
			err:      ErrAllRowsInvalid,
			wantCode: "VAL002",
		},
		{
			name:     "incomplete row",
			err:      RowProblem{Row: Row{Line: 3}, Missing: []string{"name"}},
			wantCode: "VAL003",
		},
		{
			name:     "fetch timeout",
			err:      &FetchFailure{Reason: ReasonTimeout, Message: "deadline"},
			wantCode: "FETCH002",
		},
		{
			name:     "fetch status",
			err:      &FetchFailure{Reason: ReasonStatus, Message: "HTTP 500"},
			wantCode: "FETCH003",
		},
		{
			name:     "fetch network falls back to generic fetch code",
			err:      &FetchFailure{Reason: ReasonNetwork, Message: "connection refused"},
			wantCode: "FETCH001",
		},
		{
			name:     "empty result sentinel",
			err:      ErrEmptyResult,
			wantCode: "FETCH005",
		},
		{
			name:     "too many exports",
			err:      ErrTooManyExports,
			wantCode: "EXP001",
		},
		{
			name:     "session not found",
			err:      fmt.Errorf("%w: abc", ErrSessionNotFound),
			wantCode: "SES001",
		},
		{
			name:     "file too large",
			err:      errors.New("file too large: 30MB exceeds limit"),
			wantCode: "FILE001",
		},
		{
			name:     "rate limit",
			err:      errors.New("rate limit exceeded"),
			wantCode: "RATE001",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
		{
			name:     "case insensitive matching",
			err:      errors.New("UNSUPPORTED FILE TYPE .pdf"),
			wantCode: "FILE002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrNothingSelected)

	expected := "No rows were selected for export (Code: EXP004). Select at least one row"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrExportNotFound, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("load session: %w", ErrSessionNotFound)
		userErr := NewUserError(techErr)

		if userErr.Error() != "Upload session not found" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, ErrSessionNotFound) {
			t.Error("Unwrap() should expose the original error chain")
		}
	})
}

func TestFetchFailureIs(t *testing.T) {
	empty := &FetchFailure{Reason: ReasonEmpty}
	status := &FetchFailure{Reason: ReasonStatus, StatusCode: 500}

	if !errors.Is(empty, ErrFetchFailure) || !errors.Is(empty, ErrEmptyResult) {
		t.Error("empty failure should match ErrFetchFailure and ErrEmptyResult")
	}
	if !errors.Is(status, ErrFetchFailure) {
		t.Error("status failure should match ErrFetchFailure")
	}
	if errors.Is(status, ErrEmptyResult) {
		t.Error("status failure should not match ErrEmptyResult")
	}

	var mce *MissingColumnsError
	err := fmt.Errorf("upload: %w", &MissingColumnsError{Columns: []string{"a", "b"}})
	if !errors.As(err, &mce) || len(mce.Columns) != 2 {
		t.Errorf("errors.As(MissingColumnsError) failed for %v", err)
	}
	if !errors.Is(err, ErrMissingRequiredColumns) {
		t.Error("MissingColumnsError should match ErrMissingRequiredColumns")
	}
}
