// Package lookup layers the two-tier library search: the local store
// first, the discovery protocol as fallback, with discovered records
// written back so the next lookup hits the store.
package lookup

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/depscout/depscout/pkg/discovery"
	"github.com/depscout/depscout/pkg/store"
)

// Source values for a search result.
const (
	SourceCache     = "cache"
	SourceDiscovery = "discovery"
)

// Discoverer is the discovery client surface the service needs.
type Discoverer interface {
	DiscoverLibrary(ctx context.Context, query discovery.Query) (*discovery.Report, error)
}

// Result is the outcome of one two-tier search.
type Result struct {
	Source    string                `json:"source"`
	Results   []store.LibraryRecord `json:"results"`
	Discovery *discovery.Report     `json:"discovery,omitempty"`
}

// Service wires the store and the discovery client together. A nil
// discoverer disables the fallback tier.
type Service struct {
	libraries  store.Libraries
	discoverer Discoverer
	logger     *log.Logger
}

// NewService creates a lookup service. A nil logger falls back to the
// default logger.
func NewService(libraries store.Libraries, discoverer Discoverer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{libraries: libraries, discoverer: discoverer, logger: logger}
}

// Search runs the two tiers over free-form query text, as typed into
// the HTTP search surface. The discovery-tier name is recovered from
// the text with the package-query parser.
func (s *Service) Search(ctx context.Context, query string) (*Result, error) {
	reportName := query
	if name, version := store.ParsePackageQuery(query); name != "" && version != "" {
		reportName = name + "@" + version
	} else if name != "" {
		reportName = name
	}
	return s.search(ctx, query, reportName)
}

// Lookup runs the two tiers for a structured dependency. The discovery
// tier receives the name and version untouched, so coordinates the
// text parser would misread (maven's group:artifact) pass through
// intact.
func (s *Service) Lookup(ctx context.Context, name, version string) (*Result, error) {
	query := name
	if version != "" {
		query = name + "@" + version
	}
	return s.search(ctx, query, query)
}

// search is the shared tier walk: store first, discovery on a miss.
// Discovery failures degrade to an empty cache result rather than
// propagating; a scan must not abort because the discovery service is
// down.
func (s *Service) search(ctx context.Context, query, reportName string) (*Result, error) {
	records, err := s.libraries.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		return &Result{Source: SourceCache, Results: records}, nil
	}

	if s.discoverer == nil {
		return &Result{Source: SourceCache}, nil
	}

	report, err := s.discoverer.DiscoverLibrary(ctx, discovery.Query{Name: reportName})
	if err != nil {
		s.logger.Warn("discovery lookup failed", "query", query, "err", err)
		return &Result{Source: SourceCache}, nil
	}
	if report == nil {
		return &Result{Source: SourceDiscovery}, nil
	}
	return &Result{Source: SourceDiscovery, Discovery: report}, nil
}

// Persist converts a discovery report's best match into a library
// record and upserts it so later searches hit the cache tier. The
// report's query supplies fallback name and version data.
func (s *Service) Persist(ctx context.Context, report *discovery.Report, ecosystem string) (*store.LibraryRecord, error) {
	rec := RecordFromReport(report, ecosystem)
	if rec == nil {
		return nil, nil
	}
	return s.libraries.Upsert(ctx, *rec)
}

// RecordFromReport builds the LibraryRecord a report's best match
// describes, or nil when the report has no usable match.
func RecordFromReport(report *discovery.Report, ecosystem string) *store.LibraryRecord {
	match := report.Best()
	if match == nil {
		return nil
	}

	name := match.Name
	if name == "" {
		name, _ = store.ParsePackageQuery(report.Query.Name)
		if name == "" {
			name = report.Query.Name
		}
	}
	if name == "" {
		return nil
	}
	if ecosystem == "" {
		ecosystem = report.Query.Ecosystem
	}
	if ecosystem == "" {
		ecosystem = "unknown"
	}

	version := match.Version
	if version == "" {
		version = report.Query.Version
	}
	if version == "" {
		_, version = store.ParsePackageQuery(report.Query.Name)
	}

	rec := &store.LibraryRecord{
		Name:          name,
		Ecosystem:     ecosystem,
		Description:   match.Description,
		RepositoryURL: match.Repository,
		OfficialSite:  match.OfficialSite,
	}
	if version != "" || match.License != "" {
		rec.Versions = []store.VersionRecord{{
			Version:        version,
			LicenseName:    match.License,
			LicenseURL:     match.LicenseURL,
			LicenseSummary: summaryItems(match.LicenseSummary),
			Evidence:       match.Evidence,
			Confidence:     match.Confidence,
		}}
	}
	return rec
}

func summaryItems(lines []string) []store.SummaryItem {
	if len(lines) == 0 {
		return nil
	}
	items := make([]store.SummaryItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, store.SummaryItem{Text: line})
	}
	return items
}
