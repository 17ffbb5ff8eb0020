package devapi

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		query string
		want  window
	}{
		{"", window{Limit: defaultLimit}},
		{"limit=5&offset=2", window{Limit: 5, Offset: 2}},
		{"limit=500", window{Limit: maxLimit}},
		{"limit=-1&offset=-3", window{Limit: defaultLimit}},
		{"limit=abc&offset=x", window{Limit: defaultLimit}},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		assert.Equal(t, tt.want, parseWindow(q), tt.query)
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
}
