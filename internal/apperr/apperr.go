// Package apperr normalizes client-side failures into a single tagged error
// shape and keeps a bounded history of what went wrong.
//
// Errors are classified where they are raised: the gateway builds Network and
// API errors, the operations build Validation and State errors. Classify only
// falls back to type inspection for errors that did not originate here.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Type is the coarse category of an error.
type Type string

const (
	TypeValidation Type = "validation"
	TypeNetwork    Type = "network"
	TypeAPI        Type = "api"
	TypeUI         Type = "ui"
	TypeState      Type = "state"
	TypeStorage    Type = "storage"
	TypeUnknown    Type = "unknown"
)

// Code identifies a specific failure within a Type.
type Code string

const (
	CodeRequired          Code = "validation_required"
	CodeTooLong           Code = "validation_too_long"
	CodeInvalid           Code = "validation_invalid"
	CodeUnreachable       Code = "network_unreachable"
	CodeTimeout           Code = "network_timeout"
	CodeBadRequest        Code = "api_bad_request"
	CodeNotFound          Code = "api_not_found"
	CodeConflict          Code = "api_conflict"
	CodeServer            Code = "api_server"
	CodeUnexpected        Code = "api_unexpected"
	CodeDecode            Code = "api_decode"
	CodeRender            Code = "ui_render"
	CodeMissing           Code = "ui_missing"
	CodeInvalidTransition Code = "state_invalid_transition"
	CodeInvariant         Code = "state_invariant"
	CodeStorageRead       Code = "storage_read"
	CodeStorageWrite      Code = "storage_write"
	CodeUnknown           Code = "unknown"
)

// Error is the uniform failure shape.
type Error struct {
	Message   string
	Code      Code
	Type      Type
	Status    int // HTTP status for API errors
	Context   map[string]any
	Timestamp time.Time
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// With returns a copy of e with key=value added to its context.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = value
	return &cp
}

func newError(t Type, code Code, msg string, err error) *Error {
	return &Error{
		Message:   msg,
		Code:      code,
		Type:      t,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Validation reports a missing or malformed field. field is recorded in the
// context so the UI can point at it.
func Validation(code Code, field, msg string) *Error {
	return newError(TypeValidation, code, msg, nil).With("field", field)
}

// Network wraps a transport failure.
func Network(err error) *Error {
	code := CodeUnreachable
	if isTimeout(err) {
		code = CodeTimeout
	}
	return newError(TypeNetwork, code, "request failed", err)
}

// API reports a non-2xx response.
func API(status int, msg string) *Error {
	e := newError(TypeAPI, codeForStatus(status), msg, nil)
	e.Status = status
	return e
}

// Decode reports a response body that could not be parsed.
func Decode(err error) *Error {
	return newError(TypeAPI, CodeDecode, "malformed response", err)
}

// UI reports a rendering defect. These are logged, never shown.
func UI(code Code, msg string) *Error {
	return newError(TypeUI, code, msg, nil)
}

// State reports an invalid transition or a broken invariant.
func State(code Code, msg string) *Error {
	return newError(TypeState, code, msg, nil)
}

// Storage wraps a local persistence failure.
func Storage(code Code, err error) *Error {
	return newError(TypeStorage, code, "local storage failed", err)
}

func codeForStatus(status int) Code {
	switch {
	case status == 404:
		return CodeNotFound
	case status == 400 || status == 422:
		return CodeBadRequest
	case status == 409:
		return CodeConflict
	case status >= 500:
		return CodeServer
	default:
		return CodeUnexpected
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Classify returns err as an *Error. Errors raised by this package pass
// through unchanged; transport errors become network errors; anything else is
// TypeUnknown.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &urlErr),
		errors.As(err, &netErr):
		return Network(err)
	case errors.Is(err, context.Canceled):
		return newError(TypeNetwork, CodeUnreachable, "request cancelled", err)
	}
	return newError(TypeUnknown, CodeUnknown, err.Error(), err)
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsType reports whether err belongs to the given category.
func IsType(err error, t Type) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}
