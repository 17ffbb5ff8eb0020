package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/tsam/console/internal/domain"
)

// Resource binds the client to one entity endpoint, e.g. "technologies".
type Resource[E domain.Record] struct {
	client   *Client
	endpoint string
}

// NewResource returns the typed endpoint for entity E.
func NewResource[E domain.Record](c *Client, endpoint string) *Resource[E] {
	return &Resource[E]{client: c, endpoint: strings.Trim(endpoint, "/")}
}

// Endpoint returns the path the resource is bound to.
func (r *Resource[E]) Endpoint() string { return r.endpoint }

func (r *Resource[E]) itemPath(id string) string {
	return path.Join(r.endpoint, url.PathEscape(id))
}

// List fetches one page. q carries limit, offset and the filter values. The
// total count is read from X-Total-Count; a missing or malformed header
// falls back to the number of records returned.
func (r *Resource[E]) List(ctx context.Context, q url.Values) (domain.Page[E], error) {
	header, body, err := r.client.doJSON(ctx, http.MethodGet, r.endpoint, q, nil)
	if err != nil {
		return domain.Page[E]{}, err
	}

	var items []E
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &items); err != nil {
			return domain.Page[E]{}, decodeError(r.endpoint, err)
		}
	}

	total := len(items)
	if n, err := strconv.Atoi(strings.TrimSpace(header.Get(TotalCountHeader))); err == nil && n >= 0 {
		total = n
	}
	return domain.Page[E]{Items: items, TotalCount: total}, nil
}

// Get fetches a single record.
func (r *Resource[E]) Get(ctx context.Context, id string) (E, error) {
	var rec E
	_, body, err := r.client.doJSON(ctx, http.MethodGet, r.itemPath(id), nil, nil)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(body, &rec); err != nil {
		return rec, decodeError(r.endpoint, err)
	}
	return rec, nil
}

// Add creates a record.
func (r *Resource[E]) Add(ctx context.Context, rec E) (domain.Result[E], error) {
	_, body, err := r.client.doJSON(ctx, http.MethodPost, r.endpoint, nil, rec)
	if err != nil {
		return domain.Result[E]{}, err
	}
	return decodeResult[E](body), nil
}

// Update replaces a record. The id travels in the body.
func (r *Resource[E]) Update(ctx context.Context, rec E) (domain.Result[E], error) {
	_, body, err := r.client.doJSON(ctx, http.MethodPut, r.endpoint, nil, rec)
	if err != nil {
		return domain.Result[E]{}, err
	}
	return decodeResult[E](body), nil
}

// Delete removes a record by id.
func (r *Resource[E]) Delete(ctx context.Context, id string) (domain.Result[E], error) {
	_, body, err := r.client.doJSON(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
	if err != nil {
		return domain.Result[E]{}, err
	}
	return decodeResult[E](body), nil
}

// decodeResult accepts the stored record as a JSON object or a plain
// message as a JSON string or text.
func decodeResult[E any](body []byte) domain.Result[E] {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return domain.Result[E]{}
	}
	if body[0] == '{' {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(body, &keys); err == nil {
			_, hasID := keys["id"]
			_, hasMsg := keys["message"]
			if hasMsg && !hasID {
				return domain.Result[E]{Message: decodeMessage(body)}
			}
		}
		var rec E
		if err := json.Unmarshal(body, &rec); err == nil {
			return domain.Result[E]{Record: &rec}
		}
	}
	return domain.Result[E]{Message: decodeMessage(body)}
}
