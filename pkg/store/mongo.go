package store

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

// MongoConfig holds the connection parameters for the document store.
type MongoConfig struct {
	URI      string
	Database string
}

// MongoStore implements Store on a MongoDB database with two
// collections: libraries and repository_scans.
type MongoStore struct {
	client    *mongo.Client
	libraries *mongo.Collection
	scans     *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection with a
// ping before returning.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "connect to document store")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.Wrap(apperrors.ErrCodeNetwork, err, "document store unreachable at %s", cfg.URI)
	}

	db := client.Database(cfg.Database)
	return &MongoStore{
		client:    client,
		libraries: db.Collection("libraries"),
		scans:     db.Collection("repository_scans"),
	}, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) List(ctx context.Context) ([]LibraryRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := s.libraries.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "list libraries")
	}
	var records []LibraryRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "decode libraries")
	}
	return records, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*LibraryRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid library id %q", id)
	}
	var rec LibraryRecord
	err = s.libraries.FindOne(ctx, bson.M{"_id": oid}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.New(apperrors.ErrCodeLibraryNotFound, "library %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "get library %s", id)
	}
	return &rec, nil
}

// Search matches the query's terms against library names and stored
// version strings, case-insensitively, treating terms as literals.
func (s *MongoStore) Search(ctx context.Context, query string) ([]LibraryRecord, error) {
	name, version := ParsePackageQuery(query)
	terms := searchTerms(query, name, version)
	if len(terms) == 0 {
		return nil, nil
	}

	var clauses []bson.M
	for _, term := range terms {
		regex := bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
		clauses = append(clauses, bson.M{"name": regex}, bson.M{"versions.version": regex})
	}

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := s.libraries.Find(ctx, bson.M{"$or": clauses}, opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "search libraries for %q", query)
	}
	var records []LibraryRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "decode library search results")
	}
	return records, nil
}

// Upsert writes rec keyed by (name, ecosystem). Metadata fields are
// refreshed, versions already stored stay untouched and only versions
// the stored record lacks are pushed.
func (s *MongoStore) Upsert(ctx context.Context, rec LibraryRecord) (*LibraryRecord, error) {
	if strings.TrimSpace(rec.Name) == "" || strings.TrimSpace(rec.Ecosystem) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "library upsert requires name and ecosystem")
	}
	filter := bson.M{"name": rec.Name, "ecosystem": rec.Ecosystem}
	now := time.Now().UTC()

	var existing LibraryRecord
	err := s.libraries.FindOne(ctx, filter).Decode(&existing)
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "upsert library %s", rec.Name)
	}

	var missing []VersionRecord
	for _, v := range rec.Versions {
		if v.Version == "" || existing.HasVersion(v.Version) {
			continue
		}
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}
		missing = append(missing, v)
	}

	set := bson.M{"updated_at": now}
	if rec.Description != "" {
		set["description"] = rec.Description
	}
	if rec.RepositoryURL != "" {
		set["repository_url"] = rec.RepositoryURL
	}
	if rec.OfficialSite != "" {
		set["officialSite"] = rec.OfficialSite
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"name": rec.Name, "ecosystem": rec.Ecosystem, "created_at": now},
	}
	if len(missing) > 0 {
		update["$push"] = bson.M{"versions": bson.M{"$each": missing}}
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var result LibraryRecord
	if err := s.libraries.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "upsert library %s", rec.Name)
	}
	return &result, nil
}

// SaveScan upserts by repository URL: a rescan replaces the dependency
// list and refreshes metadata instead of inserting a second document.
func (s *MongoStore) SaveScan(ctx context.Context, rec ScanRecord) (*ScanRecord, error) {
	if strings.TrimSpace(rec.RepositoryURL) == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "scan record requires a repository url")
	}
	now := time.Now().UTC()
	filter := bson.M{"repository_url": rec.RepositoryURL}
	update := bson.M{
		"$set": bson.M{
			"repository_url":      rec.RepositoryURL,
			"repository_platform": rec.Platform,
			"repository_name":     rec.Name,
			"dependencies":        rec.Dependencies,
			"updatedAt":           now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var result ScanRecord
	if err := s.scans.FindOneAndUpdate(ctx, filter, update, opts).Decode(&result); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "save scan for %s", rec.RepositoryURL)
	}
	return &result, nil
}

func (s *MongoStore) GetScan(ctx context.Context, id string) (*ScanRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid scan id %q", id)
	}
	var rec ScanRecord
	err = s.scans.FindOne(ctx, bson.M{"_id": oid}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.New(apperrors.ErrCodeScanNotFound, "scan %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "get scan %s", id)
	}
	return &rec, nil
}

func (s *MongoStore) ListScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := s.scans.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "list scans")
	}
	var records []ScanRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "decode scans")
	}
	return records, nil
}

// SearchScans requires every whitespace-separated term to match at
// least one searchable field. Repo-level hits return the full scan;
// otherwise the dependency list is narrowed to matching files and
// libraries.
func (s *MongoStore) SearchScans(ctx context.Context, query string, limit int) ([]ScanRecord, error) {
	terms := strings.Fields(strings.TrimSpace(query))
	if len(terms) == 0 {
		return nil, nil
	}

	termClause := func(term string) bson.M {
		regex := bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
		return bson.M{"$or": []bson.M{
			{"repository_url": regex},
			{"repository_name": regex},
			{"repository_platform": regex},
			{"dependencies.library_path": regex},
			{"dependencies.libraries.library_name": regex},
			{"dependencies.libraries.library_version": regex},
		}}
	}

	var filter bson.M
	if len(terms) == 1 {
		filter = termClause(terms[0])
	} else {
		var and []bson.M
		for _, term := range terms {
			and = append(and, termClause(term))
		}
		filter = bson.M{"$and": and}
	}

	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := s.scans.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "search scans for %q", query)
	}
	var records []ScanRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "decode scan search results")
	}

	return narrowScanMatches(records, terms), nil
}

// narrowScanMatches trims each scan's dependency list to the entries
// that matched unless the repository metadata itself matched, in which
// case the whole scan is kept.
func narrowScanMatches(records []ScanRecord, terms []string) []ScanRecord {
	matchers := make([]*regexp.Regexp, 0, len(terms))
	for _, term := range terms {
		matchers = append(matchers, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(term)))
	}
	matchesAll := func(text string) bool {
		for _, m := range matchers {
			if !m.MatchString(text) {
				return false
			}
		}
		return true
	}
	matchesAny := func(text string) bool {
		for _, m := range matchers {
			if m.MatchString(text) {
				return true
			}
		}
		return false
	}

	var out []ScanRecord
	for _, rec := range records {
		repoBlob := rec.RepositoryURL + " " + rec.Name + " " + rec.Platform
		if matchesAll(repoBlob) {
			out = append(out, rec)
			continue
		}

		var kept []ScanManifest
		for _, dep := range rec.Dependencies {
			if matchesAny(dep.Path) {
				kept = append(kept, dep)
				continue
			}
			var libs []ScanLibrary
			for _, lib := range dep.Libraries {
				if matchesAll(lib.Name + " " + lib.Version) {
					libs = append(libs, lib)
				}
			}
			if len(libs) > 0 {
				kept = append(kept, ScanManifest{Path: dep.Path, Libraries: libs})
			}
		}
		if len(kept) > 0 {
			rec.Dependencies = kept
			out = append(out, rec)
		}
	}
	return out
}
