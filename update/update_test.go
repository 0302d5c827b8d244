package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.1.0", "1.0.0", 1},
		{"1.0.0", "1.1.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.0.10", "1.0.9", 1},
		{"v1.2.0", "1.2.0", 0},
		{"1.2", "1.2.0", 0},
		{"1", "1.0.1", -1},
		{"abc", "0.0.0", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CompareVersions(tc.a, tc.b), "%s vs %s", tc.a, tc.b)
	}
}

func TestCheckNewerAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/ticketera/releases/latest", r.URL.Path)
		w.Write([]byte(`{"tag_name": "v2.0.0", "name": "2.0.0", "html_url": "https://example.com"}`))
	}))
	defer srv.Close()

	c := NewChecker("acme/ticketera", "1.1.0")
	c.apiBase = srv.URL

	newer, latest, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, newer)
	assert.Equal(t, "2.0.0", latest)
}

func TestCheckUpToDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name": "v1.1.0"}`))
	}))
	defer srv.Close()

	c := NewChecker("acme/ticketera", "1.1.0")
	c.apiBase = srv.URL

	newer, latest, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, newer)
	assert.Equal(t, "1.1.0", latest)
}

func TestCheckServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewChecker("acme/ticketera", "1.1.0")
	c.apiBase = srv.URL

	_, _, err := c.Check(context.Background())
	assert.Error(t, err)
}

func TestCheckEmptyTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewChecker("acme/ticketera", "1.1.0")
	c.apiBase = srv.URL

	_, _, err := c.Check(context.Background())
	assert.Error(t, err)
}

func TestReleasesURL(t *testing.T) {
	c := NewChecker("acme/ticketera", "1.0.0")
	assert.Equal(t, "https://github.com/acme/ticketera/releases/latest", c.ReleasesURL())
}
