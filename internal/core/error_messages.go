package core

// error_messages.go maps technical errors to operator-facing messages.
//
// Each message carries a code the operator can quote when reporting a
// problem. Codes are grouped by category:
//
//	FILE001-FILE099  Uploaded file problems (size, type, unreadable workbook)
//	VAL001-VAL099    Header and row validation
//	FETCH001-FETCH099 Remote resource failures surfaced for a single row
//	EXP001-EXP099    Export run lifecycle (busy, cancelled, not found)
//	SES001-SES099    Upload session lifecycle
//	RATE001          Request throttling
//	ERR000           Fallback; check the server log for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns must precede general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE006)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the row list into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "File type is not supported",
			Action:  "Upload an .xlsx or .csv file",
			Code:    "FILE002",
		},
	},
	{
		pattern: "read workbook",
		msg: UserMessage{
			Message: "The spreadsheet could not be read",
			Action:  "Re-save the file as .xlsx and upload it again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a row list to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file has no rows",
			Action:  "Upload a file with a header row and at least one data row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL006)
	// =========================================================================
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from the file",
			Action:  "Add the listed columns to the header row and re-upload",
			Code:    "VAL001",
		},
	},
	{
		pattern: "all rows invalid",
		msg: UserMessage{
			Message: "Every row is missing a required value",
			Action:  "Fill in the URL and naming columns and re-upload",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Rows with empty required fields are skipped",
			Code:    "VAL003",
		},
	},
	{
		pattern: "unknown profile",
		msg: UserMessage{
			Message: "Naming profile is not configured",
			Action:  "Choose one of the listed profiles",
			Code:    "VAL004",
		},
	},
	{
		pattern: "url column not selected",
		msg: UserMessage{
			Message: "No URL column was chosen",
			Action:  "Select the column that holds the download links",
			Code:    "VAL005",
		},
	},
	{
		pattern: "no fixed columns",
		msg: UserMessage{
			Message: "This profile has no template",
			Action:  "Upload any file and choose its URL and naming columns",
			Code:    "VAL006",
		},
	},

	// =========================================================================
	// Fetch Errors (FETCH001-FETCH006)
	// =========================================================================
	{
		pattern: "fetch failed (timeout)",
		msg: UserMessage{
			Message: "The remote server did not answer in time",
			Action:  "Try this row again later",
			Code:    "FETCH002",
		},
	},
	{
		pattern: "fetch failed (status)",
		msg: UserMessage{
			Message: "The remote server returned an error status",
			Action:  "Check that the download link is still valid",
			Code:    "FETCH003",
		},
	},
	{
		pattern: "fetch failed (decode)",
		msg: UserMessage{
			Message: "The downloaded content is neither JSON nor a spreadsheet",
			Action:  "Open the link in a browser to check what it returns",
			Code:    "FETCH004",
		},
	},
	{
		pattern: "fetch failed (empty)",
		msg: UserMessage{
			Message: "The downloaded data has no records",
			Action:  "Check that the source has published data for this row",
			Code:    "FETCH005",
		},
	},
	{
		pattern: "no records",
		msg: UserMessage{
			Message: "The downloaded data has no records",
			Action:  "Check that the source has published data for this row",
			Code:    "FETCH005",
		},
	},
	{
		pattern: "fetch failed (invalid)",
		msg: UserMessage{
			Message: "The download link is not a valid http(s) URL",
			Action:  "Correct the URL column for this row",
			Code:    "FETCH006",
		},
	},
	{
		pattern: "fetch failed",
		msg: UserMessage{
			Message: "The resource could not be downloaded",
			Action:  "Check the link and your network connection, then try again",
			Code:    "FETCH001",
		},
	},

	// =========================================================================
	// Export Errors (EXP001-EXP006)
	// =========================================================================
	{
		pattern: "too many concurrent exports",
		msg: UserMessage{
			Message: "The system is busy with other exports",
			Action:  "Please wait a moment and try again",
			Code:    "EXP001",
		},
	},
	{
		pattern: "export not found",
		msg: UserMessage{
			Message: "Export run not found",
			Action:  "The export may have expired. Start a new export",
			Code:    "EXP002",
		},
	},
	{
		pattern: "export still running",
		msg: UserMessage{
			Message: "The export has not finished yet",
			Action:  "Wait for the progress bar to complete",
			Code:    "EXP003",
		},
	},
	{
		pattern: "no rows selected",
		msg: UserMessage{
			Message: "No rows were selected for export",
			Action:  "Select at least one row",
			Code:    "EXP004",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The export was cancelled",
			Action:  "Start a new export when ready",
			Code:    "EXP005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The export took too long",
			Action:  "Export fewer rows at a time",
			Code:    "EXP006",
		},
	},

	// =========================================================================
	// Session Errors (SES001-SES002)
	// =========================================================================
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Upload session not found",
			Action:  "The session may have expired. Upload the file again",
			Code:    "SES001",
		},
	},
	{
		pattern: "row not found",
		msg: UserMessage{
			Message: "Row does not exist in this upload",
			Action:  "Reload the row list",
			Code:    "SES002",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
