package maven

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/depscout/depscout/pkg/cache"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(cache.NewNullCache(), time.Minute)
	c.baseURL = srv.URL
	return c
}

func TestLatestVersion(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if !strings.Contains(q, `g:"org.slf4j"`) || !strings.Contains(q, `a:"slf4j-api"`) {
			t.Errorf("unexpected search query %q", q)
		}
		w.Write([]byte(`{"response":{"numFound":1,"docs":[{"id":"org.slf4j:slf4j-api","latestVersion":"2.0.13"}]}}`))
	}))

	got, err := c.LatestVersion(context.Background(), "org.slf4j:slf4j-api")
	if err != nil {
		t.Fatalf("LatestVersion: %v", err)
	}
	if got != "2.0.13" {
		t.Errorf("version = %q, want 2.0.13", got)
	}
}

func TestLatestVersionNoDocs(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"numFound":0,"docs":[]}}`))
	}))

	if _, err := c.LatestVersion(context.Background(), "com.example:nothing"); err == nil {
		t.Fatal("expected error for empty search result")
	}
}

func TestLatestVersionBadCoordinate(t *testing.T) {
	c := NewClient(cache.NewNullCache(), time.Minute)

	for _, coord := range []string{"", "slf4j-api", ":slf4j-api", "org.slf4j:"} {
		if _, err := c.LatestVersion(context.Background(), coord); err == nil {
			t.Errorf("coordinate %q: expected error", coord)
		}
	}
}
