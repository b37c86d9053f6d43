package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

// MemoryStore is an in-process Store used by tests and by runs that
// have no document store configured. Semantics mirror MongoStore.
type MemoryStore struct {
	mu        sync.RWMutex
	libraries map[string]*LibraryRecord // keyed by name|ecosystem
	scans     map[string]*ScanRecord    // keyed by repository url
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		libraries: map[string]*LibraryRecord{},
		scans:     map[string]*ScanRecord{},
	}
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func libraryKey(name, ecosystem string) string {
	return strings.ToLower(name) + "|" + strings.ToLower(ecosystem)
}

func (s *MemoryStore) List(ctx context.Context) ([]LibraryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]LibraryRecord, 0, len(s.libraries))
	for _, rec := range s.libraries {
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UpdatedAt.After(records[j].UpdatedAt) })
	return records, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*LibraryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.libraries {
		if rec.ID.Hex() == id {
			out := *rec
			return &out, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrCodeLibraryNotFound, "library %s not found", id)
}

func (s *MemoryStore) Search(ctx context.Context, query string) ([]LibraryRecord, error) {
	name, version := ParsePackageQuery(query)
	terms := searchTerms(query, name, version)
	if len(terms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []LibraryRecord
	for _, rec := range s.libraries {
		if recordMatches(rec, terms) {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func recordMatches(rec *LibraryRecord, terms []string) bool {
	for _, term := range terms {
		t := strings.ToLower(term)
		if strings.Contains(strings.ToLower(rec.Name), t) {
			return true
		}
		for _, v := range rec.Versions {
			if strings.Contains(strings.ToLower(v.Version), t) {
				return true
			}
		}
	}
	return false
}

func (s *MemoryStore) Upsert(ctx context.Context, rec LibraryRecord) (*LibraryRecord, error) {
	if strings.TrimSpace(rec.Name) == "" || strings.TrimSpace(rec.Ecosystem) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "library upsert requires name and ecosystem")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	key := libraryKey(rec.Name, rec.Ecosystem)

	existing, ok := s.libraries[key]
	if !ok {
		stored := rec
		stored.ID = primitive.NewObjectID()
		stored.CreatedAt = now
		stored.UpdatedAt = now
		for i := range stored.Versions {
			if stored.Versions[i].CreatedAt.IsZero() {
				stored.Versions[i].CreatedAt = now
			}
		}
		s.libraries[key] = &stored
		out := stored
		return &out, nil
	}

	if rec.Description != "" {
		existing.Description = rec.Description
	}
	if rec.RepositoryURL != "" {
		existing.RepositoryURL = rec.RepositoryURL
	}
	if rec.OfficialSite != "" {
		existing.OfficialSite = rec.OfficialSite
	}
	for _, v := range rec.Versions {
		if v.Version == "" || existing.HasVersion(v.Version) {
			continue
		}
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}
		existing.Versions = append(existing.Versions, v)
	}
	existing.UpdatedAt = now

	out := *existing
	return &out, nil
}

func (s *MemoryStore) SaveScan(ctx context.Context, rec ScanRecord) (*ScanRecord, error) {
	if strings.TrimSpace(rec.RepositoryURL) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "scan record requires a repository url")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()

	existing, ok := s.scans[rec.RepositoryURL]
	if ok {
		existing.Platform = rec.Platform
		existing.Name = rec.Name
		existing.Dependencies = rec.Dependencies
		existing.UpdatedAt = now
		out := *existing
		return &out, nil
	}

	stored := rec
	stored.ID = primitive.NewObjectID()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.scans[rec.RepositoryURL] = &stored
	out := stored
	return &out, nil
}

func (s *MemoryStore) GetScan(ctx context.Context, id string) (*ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.scans {
		if rec.ID.Hex() == id {
			out := *rec
			return &out, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrCodeScanNotFound, "scan %s not found", id)
}

func (s *MemoryStore) ListScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]ScanRecord, 0, len(s.scans))
	for _, rec := range s.scans {
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UpdatedAt.After(records[j].UpdatedAt) })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryStore) SearchScans(ctx context.Context, query string, limit int) ([]ScanRecord, error) {
	terms := strings.Fields(strings.TrimSpace(query))
	if len(terms) == 0 {
		return nil, nil
	}

	records, err := s.ListScans(ctx, 0)
	if err != nil {
		return nil, err
	}
	matched := narrowScanMatches(records, terms)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
