package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/depscout/depscout/pkg/manifest"
	"github.com/depscout/depscout/pkg/registry"
	"github.com/depscout/depscout/pkg/store"
)

type stubVersionClient struct{ version string }

func (s stubVersionClient) LatestVersion(ctx context.Context, name string) (string, error) {
	return s.version, nil
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func findDep(deps []EnrichedDependency, name string) *EnrichedDependency {
	for i := range deps {
		if deps[i].Name == name {
			return &deps[i]
		}
	}
	return nil
}

func TestScanTree(t *testing.T) {
	conf := 1.0
	libs := store.NewMemoryStore()
	if _, err := libs.Upsert(context.Background(), store.LibraryRecord{
		Name: "requests", Ecosystem: "pypi",
		Versions: []store.VersionRecord{{Version: "2.31.0", LicenseName: "Apache-2.0", Confidence: &conf}},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	root := writeTree(t, map[string]string{
		"requirements.txt":          "requests==2.31.0\nflask\n",
		"web/package.json":          `{"dependencies":{"lodash":"^4.17.21"}}`,
		"api/requirements.txt":      "requests==2.31.0\n",
		"svc/app.csproj":            `<Project><ItemGroup><PackageReference Include="Newtonsoft.Json" Version="13.0.3" /></ItemGroup></Project>`,
		"node_modules/package.json": `{"dependencies":{"ignored":"1.0.0"}}`,
	})

	reg := registry.NewResolver(map[string]registry.VersionClient{
		manifest.EcosystemPyPI: stubVersionClient{version: "3.0.2"},
	})
	scanner := NewScanner(NewAcquirer(quiet()), newResolver(libs, nil), reg, nil, quiet())

	report, err := scanner.ScanTree(context.Background(), root, "")
	if err != nil {
		t.Fatalf("ScanTree: %v", err)
	}

	if len(report.AnalyzedFiles) != 4 {
		paths := make([]string, 0, len(report.AnalyzedFiles))
		for _, f := range report.AnalyzedFiles {
			paths = append(paths, f.Path)
		}
		t.Fatalf("analyzed files = %v, want 4 (node_modules pruned)", paths)
	}

	requests := findDep(report.Dependencies, "requests")
	if requests == nil {
		t.Fatal("requests missing from report")
	}
	if len(requests.Sources) != 2 {
		t.Errorf("requests sources = %v, want both requirements files", requests.Sources)
	}
	if requests.RiskLevel != "low" || requests.RiskScore == nil || *requests.RiskScore != 10 {
		t.Errorf("requests risk = %v/%q, want 10/low for Apache-2.0", requests.RiskScore, requests.RiskLevel)
	}

	flask := findDep(report.Dependencies, "flask")
	if flask == nil {
		t.Fatal("flask missing from report")
	}
	if flask.Version != "3.0.2" || flask.VersionSource != manifest.VersionSourceRegistry {
		t.Errorf("flask version = %q (%s), want registry-resolved 3.0.2", flask.Version, flask.VersionSource)
	}

	newtonsoft := findDep(report.Dependencies, "Newtonsoft.Json")
	if newtonsoft == nil {
		t.Fatal("Newtonsoft.Json missing from report")
	}
	if newtonsoft.Version != "13.0.3" || newtonsoft.Ecosystem != manifest.EcosystemNuGet {
		t.Errorf("newtonsoft = %q/%q", newtonsoft.Version, newtonsoft.Ecosystem)
	}
	if newtonsoft.RiskScore != nil {
		t.Errorf("newtonsoft risk = %v, want null fields (unresolved)", newtonsoft.RiskScore)
	}

	lodash := findDep(report.Dependencies, "lodash")
	if lodash == nil {
		t.Fatal("lodash missing from report")
	}
	if lodash.VersionSource != manifest.VersionSourceManifest {
		t.Errorf("lodash version source = %q", lodash.VersionSource)
	}
}

func TestScanRepositoryPersistsResult(t *testing.T) {
	memory := store.NewMemoryStore()

	acquirer := NewAcquirer(quiet())
	acquirer.run = func(ctx context.Context, env []string, args ...string) ([]byte, error) {
		dir := args[len(args)-1]
		return nil, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("requests==2.31.0\n"), 0o644)
	}

	scanner := NewScanner(acquirer, newResolver(memory, nil), nil, memory, quiet())

	report, err := scanner.ScanRepository(context.Background(), "https://github.com/acme/app")
	if err != nil {
		t.Fatalf("ScanRepository: %v", err)
	}
	if report.Platform != "github" || report.Name != "app" {
		t.Errorf("metadata = %q/%q", report.Platform, report.Name)
	}
	if len(report.Dependencies) != 1 {
		t.Fatalf("dependencies = %d, want 1", len(report.Dependencies))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	saved, err := memory.SearchScans(ctx, "acme", 0)
	if err != nil {
		t.Fatalf("SearchScans: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("persisted scans = %d, want 1", len(saved))
	}
	if len(saved[0].Dependencies) != 1 || saved[0].Dependencies[0].Path != "requirements.txt" {
		t.Errorf("persisted dependencies = %+v", saved[0].Dependencies)
	}
}

func TestRepoMetadata(t *testing.T) {
	tests := []struct {
		url      string
		platform string
		name     string
	}{
		{"https://github.com/acme/app", "github", "app"},
		{"https://bitbucket.org/team/tool.git", "bitbucket", "tool"},
		{"https://gitlab.com/group/proj", "gitlab", "proj"},
		{"https://git.example.com/x/y", "git.example.com", "y"},
	}
	for _, tt := range tests {
		platform, name := repoMetadata(tt.url)
		if platform != tt.platform || name != tt.name {
			t.Errorf("repoMetadata(%q) = (%q, %q), want (%q, %q)", tt.url, platform, name, tt.platform, tt.name)
		}
	}
}
