package domain

import (
	"errors"
	"net/http"
	"strings"
)

// Error codes for console and backend errors.
const (
	CodeNotFound      = 1
	CodeAlreadyExists = 2
	CodeValidation    = 3
	CodeInternal      = 4
	CodeConnectivity  = 5
	CodeBackend       = 6
	CodeUnclassified  = 7
)

// ConnectivityMessage is shown whenever the backend could not be reached at all.
const ConnectivityMessage = "Unable to reach the server. Please check your internet connection."

// UnknownStatusText is the status text carried by transport-level failures.
const UnknownStatusText = "Unknown Error"

// AppError represents a classified error with a code, message, and optional wrapped error.
type AppError struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Status     int    `json:"status,omitempty"`
	StatusText string `json:"status_text,omitempty"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined errors.
//
// To check whether an error matches one of these categories, use the
// corresponding helper function (IsNotFound, IsConnectivity, etc.)
// instead of errors.Is. The helpers compare codes via errors.As, so they
// match freshly constructed and wrapped errors as well.
var (
	ErrNotFound      = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists = &AppError{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation    = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrInternal      = &AppError{Code: CodeInternal, Message: "internal error"}
	ErrConnectivity  = &AppError{Code: CodeConnectivity, Message: ConnectivityMessage, StatusText: UnknownStatusText}
)

// NewAppError creates a new AppError with the given code, message, and wrapped error.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound reports whether err is or wraps an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsAlreadyExists reports whether err is or wraps an AppError with CodeAlreadyExists.
func IsAlreadyExists(err error) bool {
	return hasCode(err, CodeAlreadyExists)
}

// IsValidation reports whether err is or wraps an AppError with CodeValidation.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsInternal reports whether err is or wraps an AppError with CodeInternal.
func IsInternal(err error) bool {
	return hasCode(err, CodeInternal)
}

// IsConnectivity reports whether err is or wraps an AppError with CodeConnectivity.
func IsConnectivity(err error) bool {
	return hasCode(err, CodeConnectivity)
}

// IsBackend reports whether err is or wraps a server-reported AppError.
func IsBackend(err error) bool {
	return hasCode(err, CodeBackend)
}

func hasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsUnknownStatus reports whether a failure's status text denotes a transport
// failure rather than a server response.
func IsUnknownStatus(statusText string) bool {
	return strings.Contains(statusText, "Unknown")
}

// HTTPStatusCode maps an error to an HTTP status code.
// If the error is an *AppError, the code is mapped; otherwise http.StatusInternalServerError is returned.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if err != nil && errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeNotFound:
			return http.StatusNotFound
		case CodeAlreadyExists:
			return http.StatusConflict
		case CodeValidation:
			return http.StatusBadRequest
		case CodeConnectivity:
			return http.StatusBadGateway
		case CodeBackend, CodeUnclassified:
			if appErr.Status >= 400 {
				return appErr.Status
			}
			return http.StatusBadGateway
		case CodeInternal:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// AlertMessage returns the text shown to the user for a failed action.
//
// Connectivity failures always yield ConnectivityMessage. Server-reported
// errors yield the server's message verbatim, whatever their status. Anything
// else yields ConnectivityMessage for an unknown status text, then the status
// text, then the error message.
func AlertMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return err.Error()
	}
	if appErr.Code == CodeConnectivity {
		return ConnectivityMessage
	}
	switch appErr.Code {
	case CodeBackend, CodeNotFound, CodeAlreadyExists, CodeValidation:
		if appErr.Message != "" {
			return appErr.Message
		}
	}
	if IsUnknownStatus(appErr.StatusText) {
		return ConnectivityMessage
	}
	if appErr.StatusText != "" {
		return appErr.StatusText
	}
	return appErr.Message
}
