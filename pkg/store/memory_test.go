package store

import (
	"context"
	"testing"
)

func TestMemoryUpsertCreatesAndMerges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.Upsert(ctx, LibraryRecord{
		Name:      "requests",
		Ecosystem: "pypi",
		Versions:  []VersionRecord{{Version: "2.31.0", LicenseName: "Apache-2.0"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if created.ID.IsZero() {
		t.Error("created record has no id")
	}

	// Same version again plus a new one: existing entry stays, new one appends.
	updated, err := s.Upsert(ctx, LibraryRecord{
		Name:      "requests",
		Ecosystem: "pypi",
		Versions: []VersionRecord{
			{Version: "2.31.0", LicenseName: "GPL-3.0"},
			{Version: "2.32.3", LicenseName: "Apache-2.0"},
		},
	})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if len(updated.Versions) != 2 {
		t.Fatalf("versions = %d, want 2", len(updated.Versions))
	}
	if updated.Versions[0].LicenseName != "Apache-2.0" {
		t.Errorf("existing version was rewritten: license = %q", updated.Versions[0].LicenseName)
	}
	if updated.ID != created.ID {
		t.Error("upsert created a duplicate record for the same name+ecosystem")
	}
}

func TestMemoryUpsertVersionMatchIsCaseInsensitive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Upsert(ctx, LibraryRecord{
		Name: "cobra", Ecosystem: "go",
		Versions: []VersionRecord{{Version: "v1.9.1"}},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	updated, err := s.Upsert(ctx, LibraryRecord{
		Name: "cobra", Ecosystem: "go",
		Versions: []VersionRecord{{Version: "V1.9.1"}},
	})
	if err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if len(updated.Versions) != 1 {
		t.Errorf("versions = %d, want 1 (case-insensitive dedupe)", len(updated.Versions))
	}
}

func TestMemorySearch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seed := []LibraryRecord{
		{Name: "lodash", Ecosystem: "npm", Versions: []VersionRecord{{Version: "4.17.21"}}},
		{Name: "requests", Ecosystem: "pypi", Versions: []VersionRecord{{Version: "2.31.0"}}},
	}
	for _, rec := range seed {
		if _, err := s.Upsert(ctx, rec); err != nil {
			t.Fatalf("seed %s: %v", rec.Name, err)
		}
	}

	tests := []struct {
		query string
		want  int
	}{
		{"lodash", 1},
		{"lodash@4.17.21", 1},
		{"requests==2.31.0", 1},
		{"nonexistent", 0},
	}
	for _, tt := range tests {
		got, err := s.Search(ctx, tt.query)
		if err != nil {
			t.Fatalf("Search(%q): %v", tt.query, err)
		}
		if len(got) != tt.want {
			t.Errorf("Search(%q) = %d results, want %d", tt.query, len(got), tt.want)
		}
	}
}

func TestMemorySaveScanUpsertsByURL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.SaveScan(ctx, ScanRecord{
		RepositoryURL: "https://github.com/acme/app",
		Platform:      "github",
		Name:          "app",
		Dependencies: []ScanManifest{
			{Path: "package.json", Libraries: []ScanLibrary{{Name: "lodash", Version: "4.17.21"}}},
		},
	})
	if err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	second, err := s.SaveScan(ctx, ScanRecord{
		RepositoryURL: "https://github.com/acme/app",
		Platform:      "github",
		Name:          "app",
		Dependencies: []ScanManifest{
			{Path: "requirements.txt", Libraries: []ScanLibrary{{Name: "requests", Version: "2.31.0"}}},
		},
	})
	if err != nil {
		t.Fatalf("second SaveScan: %v", err)
	}
	if second.ID != first.ID {
		t.Error("rescan created a second document for the same repository")
	}
	if len(second.Dependencies) != 1 || second.Dependencies[0].Path != "requirements.txt" {
		t.Errorf("dependencies = %+v, want replaced by rescan", second.Dependencies)
	}

	all, err := s.ListScans(ctx, 0)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("scans = %d, want 1", len(all))
	}
}

func TestMemorySearchScans(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.SaveScan(ctx, ScanRecord{
		RepositoryURL: "https://github.com/acme/app",
		Platform:      "github",
		Name:          "app",
		Dependencies: []ScanManifest{
			{Path: "package.json", Libraries: []ScanLibrary{
				{Name: "lodash", Version: "4.17.21"},
				{Name: "left-pad", Version: "1.3.0"},
			}},
			{Path: "requirements.txt", Libraries: []ScanLibrary{{Name: "requests", Version: "2.31.0"}}},
		},
	})
	if err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	t.Run("repo level hit keeps everything", func(t *testing.T) {
		got, err := s.SearchScans(ctx, "acme", 0)
		if err != nil {
			t.Fatalf("SearchScans: %v", err)
		}
		if len(got) != 1 || len(got[0].Dependencies) != 2 {
			t.Errorf("got %+v, want the full scan", got)
		}
	})

	t.Run("library hit narrows dependencies", func(t *testing.T) {
		got, err := s.SearchScans(ctx, "lodash 4.17.21", 0)
		if err != nil {
			t.Fatalf("SearchScans: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("scans = %d, want 1", len(got))
		}
		deps := got[0].Dependencies
		if len(deps) != 1 || deps[0].Path != "package.json" {
			t.Fatalf("dependencies = %+v, want only package.json", deps)
		}
		if len(deps[0].Libraries) != 1 || deps[0].Libraries[0].Name != "lodash" {
			t.Errorf("libraries = %+v, want only lodash", deps[0].Libraries)
		}
	})

	t.Run("no hit", func(t *testing.T) {
		got, err := s.SearchScans(ctx, "sinatra", 0)
		if err != nil {
			t.Fatalf("SearchScans: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("scans = %d, want 0", len(got))
		}
	})
}
