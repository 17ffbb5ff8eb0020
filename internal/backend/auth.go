package backend

import (
	"net/http"
	"strings"
)

// AuthProvider adds credentials to outgoing backend requests.
type AuthProvider interface {
	AddAuth(req *http.Request) error
}

type authFunc func(req *http.Request) error

func (f authFunc) AddAuth(req *http.Request) error {
	return f(req)
}

// NoAuth leaves requests untouched. Used when the backend is open or
// mounted in-process.
var NoAuth AuthProvider = authFunc(func(*http.Request) error { return nil })

// BearerToken sends a static token in the Authorization header. An empty
// token yields NoAuth.
func BearerToken(token string) AuthProvider {
	token = strings.TrimSpace(token)
	if token == "" {
		return NoAuth
	}
	return authFunc(func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	})
}
