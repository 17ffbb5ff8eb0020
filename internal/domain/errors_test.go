package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "with wrapped error",
			err:  &AppError{Code: CodeNotFound, Message: "user not found", Err: errors.New("record not found")},
			want: "user not found: record not found",
		},
		{
			name: "without wrapped error",
			err:  &AppError{Code: CodeNotFound, Message: "user not found"},
			want: "user not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("Error() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("inner error")
	appErr := &AppError{Code: CodeInternal, Message: "something failed", Err: inner}

	if !errors.Is(appErr, inner) {
		t.Error("Unwrap() should allow errors.Is to find wrapped error")
	}

	appErr2 := &AppError{Code: CodeInternal, Message: "no wrap"}
	if appErr2.Unwrap() != nil {
		t.Error("Unwrap() should return nil when Err is nil")
	}
}

func TestNewAppError(t *testing.T) {
	inner := errors.New("db error")
	appErr := NewAppError(CodeInternal, "operation failed", inner)

	if appErr.Code != CodeInternal {
		t.Errorf("Code = %d; want %d", appErr.Code, CodeInternal)
	}
	if appErr.Message != "operation failed" {
		t.Errorf("Message = %q; want %q", appErr.Message, "operation failed")
	}
	if !errors.Is(appErr, inner) {
		t.Error("should wrap inner error")
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		checkFn func(error) bool
		code    int
	}{
		{"ErrNotFound", ErrNotFound, IsNotFound, CodeNotFound},
		{"ErrAlreadyExists", ErrAlreadyExists, IsAlreadyExists, CodeAlreadyExists},
		{"ErrValidation", ErrValidation, IsValidation, CodeValidation},
		{"ErrInternal", ErrInternal, IsInternal, CodeInternal},
		{"ErrConnectivity", ErrConnectivity, IsConnectivity, CodeConnectivity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var appErr *AppError
			if !errors.As(tt.err, &appErr) {
				t.Fatal("should be *AppError")
			}
			if appErr.Code != tt.code {
				t.Errorf("Code = %d; want %d", appErr.Code, tt.code)
			}
			if !tt.checkFn(tt.err) {
				t.Errorf("check function should return true for %s", tt.name)
			}
		})
	}
}

func TestIsCheckers_WithWrappedErrors(t *testing.T) {
	wrapped := NewAppError(CodeNotFound, "user not found", ErrNotFound)
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should detect wrapped ErrNotFound")
	}
	if IsAlreadyExists(wrapped) {
		t.Error("IsAlreadyExists should return false for ErrNotFound")
	}
}

func TestIsCheckers_NonAppError(t *testing.T) {
	plainErr := errors.New("some error")
	if IsNotFound(plainErr) {
		t.Error("IsNotFound should return false for non-AppError")
	}
	if IsAlreadyExists(plainErr) {
		t.Error("IsAlreadyExists should return false for non-AppError")
	}
	if IsValidation(plainErr) {
		t.Error("IsValidation should return false for non-AppError")
	}
	if IsInternal(plainErr) {
		t.Error("IsInternal should return false for non-AppError")
	}
	if IsConnectivity(plainErr) {
		t.Error("IsConnectivity should return false for non-AppError")
	}
	if IsBackend(plainErr) {
		t.Error("IsBackend should return false for non-AppError")
	}
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"already exists", ErrAlreadyExists, http.StatusConflict},
		{"validation", ErrValidation, http.StatusBadRequest},
		{"internal", ErrInternal, http.StatusInternalServerError},
		{"connectivity", ErrConnectivity, http.StatusBadGateway},
		{"backend with status", &AppError{Code: CodeBackend, Message: "Name taken", Status: 422}, 422},
		{"backend without status", &AppError{Code: CodeBackend, Message: "boom"}, http.StatusBadGateway},
		{"unclassified with status", &AppError{Code: CodeUnclassified, Status: 503}, http.StatusServiceUnavailable},
		{"custom not found", NewAppError(CodeNotFound, "custom", nil), http.StatusNotFound},
		{"unknown code", NewAppError(999, "unknown", nil), http.StatusInternalServerError},
		{"non-AppError", errors.New("plain"), http.StatusInternalServerError},
		{"nil error", nil, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HTTPStatusCode(tt.err)
			if got != tt.want {
				t.Errorf("HTTPStatusCode() = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestIsUnknownStatus(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{UnknownStatusText, true},
		{"Http failure response: 0 Unknown Error", true},
		{"Bad Request", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsUnknownStatus(tt.text); got != tt.want {
			t.Errorf("IsUnknownStatus(%q) = %v; want %v", tt.text, got, tt.want)
		}
	}
}

func TestAlertMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), "boom"},
		{"connectivity", ErrConnectivity, ConnectivityMessage},
		{
			name: "unknown status text on another code",
			err:  &AppError{Code: CodeUnclassified, Message: "x", StatusText: "0 Unknown Error"},
			want: ConnectivityMessage,
		},
		{
			name: "backend message verbatim",
			err:  &AppError{Code: CodeBackend, Message: "Designation already exists", Status: 400, StatusText: "Bad Request"},
			want: "Designation already exists",
		},
		{
			name: "backend message wins over unknown status text",
			err:  &AppError{Code: CodeBackend, Message: "Position already exists", Status: 520, StatusText: UnknownStatusText},
			want: "Position already exists",
		},
		{
			name: "already exists message wins over unknown status text",
			err:  &AppError{Code: CodeAlreadyExists, Message: "Position already exists", StatusText: UnknownStatusText},
			want: "Position already exists",
		},
		{
			name: "not found keeps server message",
			err:  &AppError{Code: CodeNotFound, Message: "No technology with id 9", Status: 404, StatusText: "Not Found"},
			want: "No technology with id 9",
		},
		{
			name: "unclassified falls back to status text",
			err:  &AppError{Code: CodeUnclassified, Message: "unexpected response", Status: 500, StatusText: "Internal Server Error"},
			want: "Internal Server Error",
		},
		{
			name: "unclassified without status text uses message",
			err:  &AppError{Code: CodeUnclassified, Message: "unexpected response"},
			want: "unexpected response",
		},
		{
			name: "wrapped backend error",
			err:  fmt.Errorf("add technology: %w", &AppError{Code: CodeBackend, Message: "Rating out of range"}),
			want: "Rating out of range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AlertMessage(tt.err); got != tt.want {
				t.Errorf("AlertMessage() = %q; want %q", got, tt.want)
			}
		})
	}
}
