package scan

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/depscout/depscout/pkg/lookup"
	"github.com/depscout/depscout/pkg/manifest"
	"github.com/depscout/depscout/pkg/risk"
	"github.com/depscout/depscout/pkg/store"
)

// Resolver turns parsed dependencies into enriched ones: cache lookup,
// discovery fallback with write-back, and the risk heuristic when a
// matched version carries no explicit risk data.
type Resolver struct {
	lookup *lookup.Service
	logger *log.Logger
}

// NewResolver creates a resolver over the given lookup service. A nil
// logger falls back to the default logger.
func NewResolver(svc *lookup.Service, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{lookup: svc, logger: logger}
}

// Resolve enriches one dependency from the manifest at source. Every
// failure path degrades to an unresolved entry rather than an error;
// a scan never aborts because one dependency could not be resolved.
func (r *Resolver) Resolve(ctx context.Context, dep manifest.Dependency, source string) EnrichedDependency {
	enriched := EnrichedDependency{
		Name:          dep.Name,
		Version:       dep.Version,
		Ecosystem:     dep.Ecosystem,
		VersionSource: dep.VersionSource,
		Sources:       []string{source},
	}

	normalized := manifest.NormalizeVersion(dep.Version)

	result, err := r.lookup.Lookup(ctx, dep.Name, normalized)
	if err != nil {
		r.logger.Warn("library lookup failed", "dependency", dep.Name, "version", normalized, "err", err)
		return enriched
	}

	rec := r.recordFrom(ctx, result, dep.Ecosystem)
	if rec == nil {
		return enriched
	}

	if !rec.ID.IsZero() {
		enriched.LibraryID = rec.ID.Hex()
	}
	if rec.RepositoryURL != "" {
		enriched.RepositoryURL = rec.RepositoryURL
	}

	version := rec.VersionFor(normalized)
	if version == nil {
		return enriched
	}
	applyVersion(&enriched, version)
	return enriched
}

// recordFrom picks the library record out of a search result. A
// discovery-sourced result is persisted so the next lookup hits the
// cache; persistence failures are logged and the discovered data is
// still used.
func (r *Resolver) recordFrom(ctx context.Context, result *lookup.Result, ecosystem string) *store.LibraryRecord {
	if result.Source == lookup.SourceCache {
		if len(result.Results) == 0 {
			return nil
		}
		return &result.Results[0]
	}

	if result.Discovery == nil {
		return nil
	}
	rec, err := r.lookup.Persist(ctx, result.Discovery, ecosystem)
	if err != nil {
		r.logger.Warn("persisting discovery result failed", "err", err)
		return lookup.RecordFromReport(result.Discovery, ecosystem)
	}
	return rec
}

// applyVersion copies the version record's risk data onto the enriched
// dependency. The heuristic runs when the record lacks a score or a
// level, and fills only the missing fields; explicit values are kept
// verbatim.
func applyVersion(enriched *EnrichedDependency, v *store.VersionRecord) {
	enriched.LicenseName = v.LicenseName
	enriched.Confidence = v.Confidence
	enriched.RiskScore = v.RiskScore
	enriched.RiskLevel = v.RiskLevel
	enriched.RiskScoreExplanation = v.RiskScoreExplanation

	if enriched.RiskScore != nil && enriched.RiskLevel != "" {
		return
	}

	assessment := risk.Assess(v.LicenseName, summaryTexts(v.LicenseSummary), v.Confidence)
	if enriched.RiskScore == nil {
		score := assessment.Score
		enriched.RiskScore = &score
	}
	if enriched.RiskLevel == "" {
		enriched.RiskLevel = assessment.Level
	}
	if enriched.RiskScoreExplanation == "" {
		enriched.RiskScoreExplanation = assessment.Explanation
	}
}

func summaryTexts(items []store.SummaryItem) []string {
	if len(items) == 0 {
		return nil
	}
	texts := make([]string, 0, len(items))
	for _, item := range items {
		texts = append(texts, item.Text)
	}
	return texts
}

// Aggregator merges enriched dependencies across manifest files by
// identity key, preserving first-seen order. Sources union; risk
// fields fill only while still unset, an already-resolved value is
// never overwritten by a later occurrence.
type Aggregator struct {
	order []string
	byKey map[string]*EnrichedDependency
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{byKey: map[string]*EnrichedDependency{}}
}

// Add merges dep into the aggregate.
func (a *Aggregator) Add(dep EnrichedDependency) {
	key := dep.key()
	existing, ok := a.byKey[key]
	if !ok {
		copied := dep
		copied.Sources = append([]string(nil), dep.Sources...)
		a.byKey[key] = &copied
		a.order = append(a.order, key)
		return
	}

	for _, source := range dep.Sources {
		if !existing.hasSource(source) {
			existing.Sources = append(existing.Sources, source)
		}
	}

	if existing.RiskScore == nil {
		existing.RiskScore = dep.RiskScore
	}
	if existing.RiskLevel == "" {
		existing.RiskLevel = dep.RiskLevel
	}
	if existing.RiskScoreExplanation == "" {
		existing.RiskScoreExplanation = dep.RiskScoreExplanation
	}
	if existing.LicenseName == "" {
		existing.LicenseName = dep.LicenseName
	}
	if existing.Confidence == nil {
		existing.Confidence = dep.Confidence
	}
	if existing.LibraryID == "" {
		existing.LibraryID = dep.LibraryID
	}
	if existing.RepositoryURL == "" {
		existing.RepositoryURL = dep.RepositoryURL
	}
}

// Dependencies returns the merged list in first-seen order.
func (a *Aggregator) Dependencies() []EnrichedDependency {
	out := make([]EnrichedDependency, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, *a.byKey[key])
	}
	return out
}
