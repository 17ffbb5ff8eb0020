package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tsam/console/internal/domain"
)

// errorBody covers both error shapes the TSAM backend answers with:
// {"error": {"error": "msg"}} and {"error": "msg"}.
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

// serverMessage extracts the backend's error message from a response body.
func serverMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Error) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(eb.Error, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var nested struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(eb.Error, &nested); err == nil {
		return strings.TrimSpace(nested.Error)
	}
	return ""
}

// classifyStatus turns a non-2xx response into a domain error.
func classifyStatus(status int, body []byte) *domain.AppError {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("HTTP %d", status)
	}

	msg := serverMessage(body)
	if msg == "" {
		return &domain.AppError{
			Code:       domain.CodeUnclassified,
			Message:    fmt.Sprintf("unexpected response status %d", status),
			Status:     status,
			StatusText: statusText,
		}
	}

	code := domain.CodeBackend
	switch status {
	case http.StatusNotFound:
		code = domain.CodeNotFound
	case http.StatusConflict:
		code = domain.CodeAlreadyExists
	}
	return &domain.AppError{Code: code, Message: msg, Status: status, StatusText: statusText}
}

// classifyTransport wraps a failure to reach the backend at all.
func classifyTransport(err error) *domain.AppError {
	return &domain.AppError{
		Code:       domain.CodeConnectivity,
		Message:    domain.ConnectivityMessage,
		StatusText: domain.UnknownStatusText,
		Err:        err,
	}
}
