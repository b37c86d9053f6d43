package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/depscout/depscout/pkg/lookup"
	"github.com/depscout/depscout/pkg/scan"
	"github.com/depscout/depscout/pkg/store"
)

func testServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	logger := log.New(io.Discard)
	memory := store.NewMemoryStore()

	acquirer := scan.NewAcquirer(logger)
	acquirer.SetGitRunner(func(ctx context.Context, env []string, args ...string) ([]byte, error) {
		dir := args[len(args)-1]
		return nil, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("requests==2.31.0\n"), 0o644)
	})

	svc := lookup.NewService(memory, nil, logger)
	scanner := scan.NewScanner(acquirer, scan.NewResolver(svc, logger), nil, memory, logger)

	srv := httptest.NewServer(New(scanner, svc, memory, logger).Router())
	t.Cleanup(srv.Close)
	return srv, memory
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCreateScan(t *testing.T) {
	srv, memory := testServer(t)

	resp, err := http.Post(srv.URL+"/api/scans", "application/json",
		strings.NewReader(`{"repository_url":"https://github.com/acme/app"}`))
	if err != nil {
		t.Fatalf("POST /api/scans: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	var report scan.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Dependencies) != 1 || report.Dependencies[0].Name != "requests" {
		t.Errorf("dependencies = %+v", report.Dependencies)
	}

	saved, err := memory.ListScans(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if len(saved) != 1 {
		t.Errorf("persisted scans = %d, want 1", len(saved))
	}
}

func TestCreateScanInvalidBody(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Post(srv.URL+"/api/scans", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateScanInvalidURL(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Post(srv.URL+"/api/scans", "application/json",
		strings.NewReader(`{"repository_url":"ftp://example.com/repo"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unsupported scheme", resp.StatusCode)
	}
}

func TestGetScanNotFound(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/scans/64b0c0ffee0000000000dead")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSearchLibraries(t *testing.T) {
	srv, memory := testServer(t)
	if _, err := memory.Upsert(context.Background(), store.LibraryRecord{
		Name: "lodash", Ecosystem: "npm",
		Versions: []store.VersionRecord{{Version: "4.17.21"}},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/libraries/search?q=lodash")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result lookup.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Source != lookup.SourceCache || len(result.Results) != 1 {
		t.Errorf("result = %+v, want one cache hit", result)
	}
}

func TestSearchLibrariesMissingQuery(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/libraries/search")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSearchScans(t *testing.T) {
	srv, _ := testServer(t)

	// Seed through the API so the scan is grouped like production data.
	resp, err := http.Post(srv.URL+"/api/scans", "application/json",
		strings.NewReader(`{"repository_url":"https://github.com/acme/app"}`))
	if err != nil {
		t.Fatalf("seed scan: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/scans/search?q=requests")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var records []store.ScanRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if len(records[0].Dependencies) != 1 || records[0].Dependencies[0].Path != "requirements.txt" {
		t.Errorf("dependencies = %+v", records[0].Dependencies)
	}
}
