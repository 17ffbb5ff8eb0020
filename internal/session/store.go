// Package session keeps open modal sessions between HTTP requests.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tsam/console/internal/domain"
	"github.com/tsam/console/internal/listview"
)

// ErrNotFound is returned for an unknown or expired session id.
var ErrNotFound = errors.New("session: not found")

// Store persists opaque session payloads with a time to live.
type Store interface {
	Save(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Load(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a store.
type Options struct {
	Driver    string
	RedisURL  string
	KeyPrefix string
}

// Open returns the store named by opts.Driver.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		client, err := NewRedisClient(opts.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, opts.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("session: unsupported driver %q", opts.Driver)
	}
}

// Put stores a modal session under its id.
func Put[E domain.Record](ctx context.Context, st Store, s *listview.ModalSession[E], ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", s.ID, err)
	}
	return st.Save(ctx, s.ID, data, ttl)
}

// Get loads a modal session and checks that it belongs to resource. A
// session of another resource is reported as not found.
func Get[E domain.Record](ctx context.Context, st Store, id, resource string) (*listview.ModalSession[E], error) {
	data, err := st.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	var s listview.ModalSession[E]
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", id, err)
	}
	if s.Resource != resource || s.Form == nil {
		return nil, ErrNotFound
	}
	return &s, nil
}
