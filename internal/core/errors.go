package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the service and the web layer.
var (
	ErrAuthRequired       = errors.New("authentication required")
	ErrForbidden          = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrProtectedUser      = errors.New("the main administrator can not be deleted")
)

// ValidationError reports a rejected request body or record.
type ValidationError struct {
	Field   string // field or items_d id, if any
	Label   string // display label of the field, if any
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports a missing user or missing input data for an item.
type NotFoundError struct {
	Kind string // "user", "input"
	Key  string
}

func (e *NotFoundError) Error() string {
	switch e.Kind {
	case "input":
		return fmt.Sprintf("no input data found for item %s", e.Key)
	case "user":
		return fmt.Sprintf("user not found: %s", e.Key)
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// ConflictError reports a duplicate key on create.
type ConflictError struct {
	Kind string
	Key  string
}

func (e *ConflictError) Error() string {
	if e.Kind == "user" {
		return fmt.Sprintf("username already exists: %s", e.Key)
	}
	return fmt.Sprintf("%s already exists: %s", e.Kind, e.Key)
}

// ImportError wraps a failure to turn an uploaded file into a schema.
type ImportError struct {
	Err error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("failed to process file: %v", e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// RenderError wraps a failure to lay out, encode or persist a report.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to generate PDF: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
