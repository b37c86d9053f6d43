// Package store persists library knowledge and scan results in a
// document store. The mongo-backed implementation is the production
// path; the in-memory one backs tests and cache-less runs.
package store

import (
	"context"
	"strings"
)

// Libraries is the library cache collaborator: text search over known
// records plus an upsert keyed by (name, ecosystem).
type Libraries interface {
	// List returns all library records, newest first.
	List(ctx context.Context) ([]LibraryRecord, error)

	// Get returns one record by id.
	Get(ctx context.Context, id string) (*LibraryRecord, error)

	// Search matches loosely-structured query text ("name:version",
	// "name==version", "name@version", or a bare name) against record
	// names and version strings.
	Search(ctx context.Context, query string) ([]LibraryRecord, error)

	// Upsert writes rec keyed by (name, ecosystem). Versions already
	// present on the stored record are left untouched; missing ones
	// are appended.
	Upsert(ctx context.Context, rec LibraryRecord) (*LibraryRecord, error)
}

// Scans persists scan results keyed by repository URL.
type Scans interface {
	SaveScan(ctx context.Context, rec ScanRecord) (*ScanRecord, error)
	GetScan(ctx context.Context, id string) (*ScanRecord, error)
	ListScans(ctx context.Context, limit int) ([]ScanRecord, error)
	SearchScans(ctx context.Context, query string, limit int) ([]ScanRecord, error)
}

// Store is the full persistence surface.
type Store interface {
	Libraries
	Scans
	Close(ctx context.Context) error
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
