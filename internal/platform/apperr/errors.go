// Package apperr is the error taxonomy shared by the engines and the record
// store. Every error carries one kind sentinel so callers can branch with
// errors.Is and handlers can pick the HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("scheduling conflict")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

// Codes mirror the kinds in response bodies.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeConflict   = "SCHEDULING_CONFLICT"
	CodeNotFound   = "RESOURCE_NOT_FOUND"
	CodeStorage    = "STORAGE_ERROR"
)

type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(entity string) error {
	return &Error{Kind: ErrNotFound, Msg: entity + " not found"}
}

func Storage(op string, err error) error {
	return &Error{Kind: ErrStorage, Msg: op, Err: err}
}

// FromDB classifies a driver error: no rows becomes NotFound for entity,
// errors that are already classified pass through, anything else is a
// storage failure.
func FromDB(entity, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(entity)
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return Storage(op, err)
}

// Response is the JSON body of an error reply.
type Response struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// HTTPError maps err to an echo error with the matching status. Storage
// details stay in the internal error for the request log.
func HTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var status int
	var resp Response
	switch {
	case errors.Is(err, ErrValidation):
		status, resp = http.StatusBadRequest, Response{Message: message(err), Code: CodeValidation}
	case errors.Is(err, ErrConflict):
		status, resp = http.StatusConflict, Response{Message: message(err), Code: CodeConflict}
	case errors.Is(err, ErrNotFound):
		status, resp = http.StatusNotFound, Response{Message: message(err), Code: CodeNotFound}
	default:
		status, resp = http.StatusInternalServerError, Response{Message: "internal error", Code: CodeStorage}
	}
	return echo.NewHTTPError(status, resp).SetInternal(err)
}

func message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return err.Error()
}
