// Package scan runs the dependency discovery pipeline: clone, walk,
// parse, resolve risk, merge, persist. Acquisition failures abort a
// scan; everything downstream degrades per unit and the report always
// lists every discovered dependency.
package scan

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/depscout/depscout/pkg/manifest"
	"github.com/depscout/depscout/pkg/registry"
	"github.com/depscout/depscout/pkg/store"
)

// Scanner orchestrates one scan end to end. Registry and scans are
// optional: without a registry resolver unpinned versions stay unset,
// without a scan store results are not persisted.
type Scanner struct {
	acquirer *Acquirer
	resolver *Resolver
	registry *registry.Resolver
	scans    store.Scans
	logger   *log.Logger
}

// NewScanner wires the pipeline. A nil logger falls back to the
// default logger.
func NewScanner(acquirer *Acquirer, resolver *Resolver, reg *registry.Resolver, scans store.Scans, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{
		acquirer: acquirer,
		resolver: resolver,
		registry: reg,
		scans:    scans,
		logger:   logger,
	}
}

// ScanRepository clones repoURL, scans the tree, and persists the
// result. The scratch directory is removed on every exit path.
func (s *Scanner) ScanRepository(ctx context.Context, repoURL string) (*Report, error) {
	root, cleanup, err := s.acquirer.Acquire(ctx, repoURL)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	report, err := s.ScanTree(ctx, root, repoURL)
	if err != nil {
		return nil, err
	}

	if s.scans != nil {
		if _, err := s.scans.SaveScan(ctx, report.Record()); err != nil {
			s.logger.Warn("persisting scan failed", "repo", repoURL, "err", err)
		}
	}
	return report, nil
}

// ScanTree scans an already-checked-out tree at root. repoURL is only
// recorded as metadata and may be empty for local scans.
func (s *Scanner) ScanTree(ctx context.Context, root, repoURL string) (*Report, error) {
	paths, err := manifest.Discover(root)
	if err != nil {
		return nil, err
	}
	s.logger.Info("discovered manifests", "count", len(paths))

	report := &Report{
		RepositoryURL: repoURL,
		AnalyzedFiles: []manifest.File{},
		Dependencies:  []EnrichedDependency{},
	}
	report.Platform, report.Name = repoMetadata(repoURL)

	agg := NewAggregator()
	for _, rel := range paths {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			s.logger.Warn("reading manifest failed", "path", rel, "err", err)
			continue
		}

		file := manifest.Analyze(rel, filepath.Base(rel), string(content))
		s.fillVersions(ctx, &file)
		report.AnalyzedFiles = append(report.AnalyzedFiles, file)

		for _, dep := range file.Dependencies {
			agg.Add(s.resolver.Resolve(ctx, dep, rel))
		}
	}

	report.Dependencies = agg.Dependencies()
	return report, nil
}

// fillVersions resolves a latest version for dependencies the manifest
// left unpinned. Lookup failures leave the version unset.
func (s *Scanner) fillVersions(ctx context.Context, file *manifest.File) {
	if s.registry == nil {
		return
	}
	for i := range file.Dependencies {
		dep := &file.Dependencies[i]
		if dep.Version != "" || !s.registry.Supports(dep.Ecosystem) {
			continue
		}

		lookupCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
		version, err := s.registry.ResolveLatest(lookupCtx, dep.Ecosystem, dep.Name)
		cancel()
		if err != nil {
			s.logger.Debug("registry lookup miss", "name", dep.Name, "ecosystem", dep.Ecosystem, "err", err)
			continue
		}
		dep.Version = version
		dep.VersionSource = manifest.VersionSourceRegistry
	}
}
