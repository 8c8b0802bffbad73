package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures recovered at the handler boundary.
type ErrorKind int

const (
	KindPersistence ErrorKind = iota
	KindAuthentication
	KindAuthorization
	KindValidation
	KindNotFound
	KindConflict
	KindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	default:
		return "persistence"
	}
}

// HTTPStatus maps the kind to the status code sent with the failure envelope.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindAuthentication:
		return http.StatusForbidden
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

const (
	MsgSecurityCheckFailed    = "Security check failed"
	MsgInsufficientPermission = "insufficient permission"
	MsgOperationFailed        = "The operation could not be completed"
)

// AppError is the typed error returned by managers and handlers. Message is
// safe to show to the client; Err is only ever logged.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func ErrAuthentication() *AppError {
	return &AppError{Kind: KindAuthentication, Message: MsgSecurityCheckFailed}
}

func ErrAuthorization() *AppError {
	return &AppError{Kind: KindAuthorization, Message: MsgInsufficientPermission}
}

// ErrFeatureDisabled is an authorization failure; the client sees the same
// message as for a missing capability.
func ErrFeatureDisabled(feature string) *AppError {
	return &AppError{Kind: KindAuthorization, Message: MsgInsufficientPermission, Err: fmt.Errorf("feature %s is disabled", feature)}
}

// ErrValidation reports a missing or malformed field by name.
func ErrValidation(field string) *AppError {
	return &AppError{Kind: KindValidation, Message: field}
}

func ErrValidationf(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func ErrNotFound(what string) *AppError {
	return &AppError{Kind: KindNotFound, Message: what + " not found"}
}

func ErrConflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func ErrUpstream(message string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Message: message, Err: err}
}

// ErrPersistence hides the storage cause behind a generic message.
func ErrPersistence(err error) *AppError {
	return &AppError{Kind: KindPersistence, Message: MsgOperationFailed, Err: err}
}

// ErrNoRecord is returned by repositories when a lookup matches nothing.
var ErrNoRecord = errors.New("record not found")

// AsAppError converts any error into an AppError, defaulting to persistence.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrPersistence(err)
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
