package scan

import (
	"net/url"
	"path"
	"strings"

	"github.com/depscout/depscout/pkg/manifest"
	"github.com/depscout/depscout/pkg/store"
)

// EnrichedDependency is one unique dependency after resolution: the
// parsed identity plus whatever risk data the cache, the discovery
// service, or the heuristic could supply. Risk fields stay nil/empty
// when nothing resolved; the dependency is still listed so the report
// keeps a 1:1 mapping with what was discovered.
type EnrichedDependency struct {
	Name          string `json:"name"`
	Version       string `json:"version,omitempty"`
	Ecosystem     string `json:"ecosystem"`
	VersionSource string `json:"version_source,omitempty"`

	// Sources is the set of manifest paths that referenced this
	// dependency identity within one scan.
	Sources []string `json:"sources"`

	LibraryID     string `json:"library_id,omitempty"`
	RepositoryURL string `json:"repository_url,omitempty"`

	LicenseName          string   `json:"license_name,omitempty"`
	RiskLevel            string   `json:"risk_level,omitempty"`
	RiskScore            *int     `json:"risk_score,omitempty"`
	RiskScoreExplanation string   `json:"risk_score_explanation,omitempty"`
	Confidence           *float64 `json:"confidence,omitempty"`
}

// key is the aggregation identity: case-insensitive name plus
// normalized version.
func (d *EnrichedDependency) key() string {
	return strings.ToLower(d.Name) + "@" + strings.ToLower(manifest.NormalizeVersion(d.Version))
}

// hasSource reports whether the manifest path is already recorded.
func (d *EnrichedDependency) hasSource(source string) bool {
	for _, s := range d.Sources {
		if s == source {
			return true
		}
	}
	return false
}

// Report is the terminal artifact of one scan.
type Report struct {
	RepositoryURL string               `json:"repository_url,omitempty"`
	Platform      string               `json:"repository_platform,omitempty"`
	Name          string               `json:"repository_name,omitempty"`
	AnalyzedFiles []manifest.File      `json:"analyzed_files"`
	Dependencies  []EnrichedDependency `json:"dependencies"`
}

// Record converts the report into its persisted form, grouping
// dependencies back under the manifest files that declared them.
func (r *Report) Record() store.ScanRecord {
	rec := store.ScanRecord{
		RepositoryURL: r.RepositoryURL,
		Platform:      r.Platform,
		Name:          r.Name,
	}
	for _, f := range r.AnalyzedFiles {
		m := store.ScanManifest{Path: f.Path, Libraries: []store.ScanLibrary{}}
		for _, dep := range f.Dependencies {
			m.Libraries = append(m.Libraries, store.ScanLibrary{
				Name:    dep.Name,
				Version: dep.Version,
			})
		}
		rec.Dependencies = append(rec.Dependencies, m)
	}
	return rec
}

// repoMetadata derives the platform label and repository name from a
// clone URL. Unrecognized hosts get the bare hostname as platform.
func repoMetadata(repoURL string) (platform, name string) {
	if strings.TrimSpace(repoURL) == "" {
		return "", ""
	}
	u, err := url.Parse(repoURL)
	if err != nil || u.Host == "" {
		return "", strings.TrimSuffix(path.Base(repoURL), ".git")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "github.com":
		platform = "github"
	case "bitbucket.org":
		platform = "bitbucket"
	case "gitlab.com":
		platform = "gitlab"
	default:
		platform = host
	}
	name = strings.TrimSuffix(path.Base(u.Path), ".git")
	if name == "/" || name == "." {
		name = ""
	}
	return platform, name
}
