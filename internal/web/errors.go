package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error and calls respondError(w, r, err)
//  2. statusFor picks the HTTP status from the error's type
//  3. core.MapError supplies the client message and support code
//  4. The technical error is logged with the request id for correlation
//  5. The client receives {"error": ..., "code": ...}

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/inputsheet/internal/core"
	"github.com/JonMunkholm/inputsheet/internal/logging"
)

var (
	errRateLimited  = errors.New("rate limit exceeded")
	errInvalidBody  = errors.New("invalid request body")
	errNoFile       = errors.New("no file provided")
	errFileTooLarge = errors.New("file too large")
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
}

// respondError maps err to a status and writes it.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, statusFor(err))
}

// writeError logs the technical error and writes the user-facing message.
func writeError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Debug("request error", args...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:  msg.Message,
		Action: msg.Action,
		Code:   msg.Code,
	})
}

// statusFor returns the HTTP status for a domain error.
func statusFor(err error) int {
	var (
		valErr      *core.ValidationError
		notFoundErr *core.NotFoundError
		conflictErr *core.ConflictError
		maxBytesErr *http.MaxBytesError
	)

	switch {
	case errors.Is(err, core.ErrAuthRequired), errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrProtectedUser):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyJobs):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errFileTooLarge), errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errInvalidBody), errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.As(err, &valErr), errors.As(err, &conflictErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

// decodeJSON reads a JSON request body of at most maxBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return errFileTooLarge
		}
		return errInvalidBody
	}
	return nil
}
