package store

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SummaryItem is one line of a license summary with an optional
// severity indicator supplied by the discovery service.
type SummaryItem struct {
	Text      string `bson:"text" json:"text"`
	Indicator string `bson:"indicator,omitempty" json:"indicator,omitempty"`
}

// ComponentScores breaks a version's risk down per concern. Fields are
// pointers so an absent score is distinguishable from zero.
type ComponentScores struct {
	License      *int `bson:"license,omitempty" json:"license,omitempty"`
	Security     *int `bson:"security,omitempty" json:"security,omitempty"`
	Maintenance  *int `bson:"maintenance,omitempty" json:"maintenance,omitempty"`
	UsageContext *int `bson:"usage_context,omitempty" json:"usage_context,omitempty"`
}

// VersionRecord is the per-version license and risk data attached to a
// library. Records are append-only: a version already present on a
// library is never rewritten, a missing one is appended.
type VersionRecord struct {
	Version              string          `bson:"version" json:"version"`
	LicenseName          string          `bson:"license_name,omitempty" json:"license_name,omitempty"`
	LicenseURL           string          `bson:"license_url,omitempty" json:"license_url,omitempty"`
	LicenseSummary       []SummaryItem   `bson:"license_summary,omitempty" json:"license_summary,omitempty"`
	Evidence             []string        `bson:"evidence,omitempty" json:"evidence,omitempty"`
	Confidence           *float64        `bson:"confidence,omitempty" json:"confidence,omitempty"`
	RiskLevel            string          `bson:"risk_level,omitempty" json:"risk_level,omitempty"`
	RiskScore            *int            `bson:"risk_score,omitempty" json:"risk_score,omitempty"`
	RiskScoreExplanation string          `bson:"risk_score_explanation,omitempty" json:"risk_score_explanation,omitempty"`
	Scores               ComponentScores `bson:"scores,omitempty" json:"scores,omitempty"`
	CreatedAt            time.Time       `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// LibraryRecord is the cached knowledge about one library across its
// known versions. Uniqueness key is (name, ecosystem); writes go
// through an upsert on that key.
type LibraryRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name          string             `bson:"name" json:"name"`
	Ecosystem     string             `bson:"ecosystem" json:"ecosystem"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	RepositoryURL string             `bson:"repository_url,omitempty" json:"repository_url,omitempty"`
	OfficialSite  string             `bson:"officialSite,omitempty" json:"officialSite,omitempty"`
	Versions      []VersionRecord    `bson:"versions" json:"versions"`
	CreatedAt     time.Time          `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt     time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// HasVersion reports whether the record already carries the given
// version string, compared case-insensitively.
func (r *LibraryRecord) HasVersion(version string) bool {
	for _, v := range r.Versions {
		if equalFoldTrim(v.Version, version) {
			return true
		}
	}
	return false
}

// VersionFor selects the version entry matching version, falling back
// to the first entry when none matches. Returns nil for an empty list.
func (r *LibraryRecord) VersionFor(version string) *VersionRecord {
	if len(r.Versions) == 0 {
		return nil
	}
	if version != "" {
		for i := range r.Versions {
			if equalFoldTrim(r.Versions[i].Version, version) {
				return &r.Versions[i]
			}
		}
	}
	return &r.Versions[0]
}

// ScanLibrary is one dependency occurrence inside a persisted scan.
type ScanLibrary struct {
	Name    string `bson:"library_name" json:"library_name"`
	Version string `bson:"library_version" json:"library_version"`
}

// ScanManifest groups the libraries found in one manifest file.
type ScanManifest struct {
	Path      string        `bson:"library_path" json:"library_path"`
	Libraries []ScanLibrary `bson:"libraries" json:"libraries"`
}

// ScanRecord is the persisted form of one repository scan. Repeated
// scans of the same repository URL replace the dependency list in
// place rather than accumulating documents.
type ScanRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RepositoryURL string             `bson:"repository_url" json:"repository_url"`
	Platform      string             `bson:"repository_platform,omitempty" json:"repository_platform,omitempty"`
	Name          string             `bson:"repository_name,omitempty" json:"repository_name,omitempty"`
	Dependencies  []ScanManifest     `bson:"dependencies" json:"dependencies"`
	CreatedAt     time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt     time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
