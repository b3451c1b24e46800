package core

// error_messages.go maps errors to user messages with support codes.
//
// Every error returned to a client carries a code so an administrator can
// quote it when asking for help. Typed errors (ValidationError, NotFoundError,
// ...) keep their own message because it names the field or key involved;
// everything else is matched against the pattern table below.
//
// # Authentication (AUTH001-AUTH099)
//
//	AUTH001 - Authentication required: no valid session
//	AUTH002 - Permission denied: the session role may not call this endpoint
//	AUTH003 - Invalid credentials: username or password is wrong
//
// # Validation (VAL001-VAL099)
//
//	VAL001 - Required field: a required input field is empty
//	VAL002 - Invalid request: the request body or a field id is malformed
//
// # Users (USR001-USR099)
//
//	USR001 - Username exists
//	USR002 - User not found
//	USR003 - Protected user: the bootstrap administrator can not be deleted
//
// # Import (IMP001-IMP099)
//
//	IMP001 - Import failed: the uploaded file is not a readable spreadsheet
//	IMP002 - No file: the upload form carried no file
//	IMP003 - File too large
//
// # Reports (RPT001-RPT099)
//
//	RPT001 - No input data for the requested item
//	RPT002 - Report generation failed
//
// # Capacity (UPL002, RATE001)
//
//	UPL002 - System busy: all import/report slots are taken
//	RATE001 - Rate limited
//
// # Default (ERR000)
//
//	ERR000 - Unknown error; check the server log for the request id

import (
	"errors"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a spreadsheet to upload",
			Code:    "IMP002",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unused sheets or rows and try again",
			Code:    "IMP003",
		},
	},
	{
		pattern: "too many concurrent jobs",
		msg: UserMessage{
			Message: "The system is busy",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request body is not valid JSON",
			Action:  "Check the request format",
			Code:    "VAL002",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact an administrator",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errStr, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}

// mapTyped handles the domain error types, whose own message is shown as-is.
func mapTyped(err error) (UserMessage, bool) {
	var (
		valErr      *ValidationError
		notFoundErr *NotFoundError
		conflictErr *ConflictError
		importErr   *ImportError
		renderErr   *RenderError
	)

	switch {
	case errors.Is(err, ErrAuthRequired):
		return UserMessage{Message: err.Error(), Action: "Please log in", Code: "AUTH001"}, true
	case errors.Is(err, ErrForbidden):
		return UserMessage{Message: err.Error(), Action: "Ask the main administrator for access", Code: "AUTH002"}, true
	case errors.Is(err, ErrInvalidCredentials):
		return UserMessage{Message: err.Error(), Action: "Check your username and password", Code: "AUTH003"}, true
	case errors.Is(err, ErrProtectedUser):
		return UserMessage{Message: err.Error(), Code: "USR003"}, true
	case errors.Is(err, ErrTooManyJobs):
		return UserMessage{Message: "The system is busy", Action: "Please wait a moment and try again", Code: "UPL002"}, true
	case errors.As(err, &valErr):
		code := "VAL002"
		if valErr.Label != "" {
			code = "VAL001"
		}
		return UserMessage{Message: valErr.Error(), Code: code}, true
	case errors.As(err, &notFoundErr):
		code := "USR002"
		if notFoundErr.Kind == "input" {
			code = "RPT001"
		}
		return UserMessage{Message: notFoundErr.Error(), Code: code}, true
	case errors.As(err, &conflictErr):
		return UserMessage{Message: conflictErr.Error(), Action: "Choose another username", Code: "USR001"}, true
	case errors.As(err, &importErr):
		return UserMessage{Message: importErr.Error(), Action: "Upload an .xlsx, .xls or .csv file", Code: "IMP001"}, true
	case errors.As(err, &renderErr):
		return UserMessage{Message: renderErr.Error(), Action: "Please try again or contact an administrator", Code: "RPT002"}, true
	}
	return UserMessage{}, false
}
