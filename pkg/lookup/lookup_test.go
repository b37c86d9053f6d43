package lookup

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/depscout/depscout/pkg/discovery"
	"github.com/depscout/depscout/pkg/store"
)

type fakeDiscoverer struct {
	calls  int
	lastQ  discovery.Query
	report *discovery.Report
	err    error
}

func (f *fakeDiscoverer) DiscoverLibrary(ctx context.Context, q discovery.Query) (*discovery.Report, error) {
	f.calls++
	f.lastQ = q
	return f.report, f.err
}

func quiet() *log.Logger { return log.New(io.Discard) }

func TestSearchHitsCacheFirst(t *testing.T) {
	s := store.NewMemoryStore()
	if _, err := s.Upsert(context.Background(), store.LibraryRecord{
		Name: "lodash", Ecosystem: "npm",
		Versions: []store.VersionRecord{{Version: "4.17.21"}},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	disc := &fakeDiscoverer{}
	svc := NewService(s, disc, quiet())

	result, err := svc.Search(context.Background(), "lodash@4.17.21")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Source != SourceCache || len(result.Results) != 1 {
		t.Errorf("result = %+v, want one cache hit", result)
	}
	if disc.calls != 0 {
		t.Errorf("discovery calls = %d, want 0 on a cache hit", disc.calls)
	}
}

func TestSearchFallsBackToDiscovery(t *testing.T) {
	conf := 0.9
	disc := &fakeDiscoverer{report: &discovery.Report{
		Query: discovery.Query{Name: "requests@2.31.0"},
		Matches: []discovery.Match{{
			Name: "requests", Version: "2.31.0", License: "Apache-2.0", Confidence: &conf,
		}},
	}}
	svc := NewService(store.NewMemoryStore(), disc, quiet())

	result, err := svc.Search(context.Background(), "requests==2.31.0")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Source != SourceDiscovery || result.Discovery == nil {
		t.Fatalf("result = %+v, want a discovery result", result)
	}
	if disc.lastQ.Name != "requests@2.31.0" {
		t.Errorf("discovery query name = %q, want requests@2.31.0", disc.lastQ.Name)
	}
}

func TestLookupKeepsMavenCoordinates(t *testing.T) {
	disc := &fakeDiscoverer{}
	svc := NewService(store.NewMemoryStore(), disc, quiet())

	if _, err := svc.Lookup(context.Background(), "org.springframework:spring-core", "6.1.0"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	want := "org.springframework:spring-core@6.1.0"
	if disc.lastQ.Name != want {
		t.Errorf("discovery query name = %q, want %q", disc.lastQ.Name, want)
	}
}

func TestLookupWithoutVersion(t *testing.T) {
	disc := &fakeDiscoverer{}
	svc := NewService(store.NewMemoryStore(), disc, quiet())

	if _, err := svc.Lookup(context.Background(), "left-pad", ""); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if disc.lastQ.Name != "left-pad" {
		t.Errorf("discovery query name = %q, want left-pad", disc.lastQ.Name)
	}
}

func TestSearchDiscoveryFailureDegrades(t *testing.T) {
	disc := &fakeDiscoverer{err: errors.New("endpoint down")}
	svc := NewService(store.NewMemoryStore(), disc, quiet())

	result, err := svc.Search(context.Background(), "requests")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Source != SourceCache || len(result.Results) != 0 || result.Discovery != nil {
		t.Errorf("result = %+v, want empty cache result on discovery failure", result)
	}
}

func TestPersistThenSearchRoundTrip(t *testing.T) {
	conf := 1.0
	report := &discovery.Report{
		Query: discovery.Query{Name: "left-pad@1.3.0"},
		Matches: []discovery.Match{{
			Name:           "left-pad",
			Version:        "1.3.0",
			License:        "WTFPL",
			LicenseSummary: []string{"do what you want"},
			Confidence:     &conf,
		}},
	}
	s := store.NewMemoryStore()
	svc := NewService(s, &fakeDiscoverer{}, quiet())

	rec, err := svc.Persist(context.Background(), report, "npm")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if rec == nil || rec.Name != "left-pad" || rec.Ecosystem != "npm" {
		t.Fatalf("persisted record = %+v", rec)
	}
	if len(rec.Versions) != 1 || rec.Versions[0].Version != "1.3.0" {
		t.Fatalf("versions = %+v", rec.Versions)
	}
	if len(rec.Versions[0].LicenseSummary) != 1 || rec.Versions[0].LicenseSummary[0].Text != "do what you want" {
		t.Errorf("license summary = %+v", rec.Versions[0].LicenseSummary)
	}

	result, err := svc.Search(context.Background(), "left-pad@1.3.0")
	if err != nil {
		t.Fatalf("Search after persist: %v", err)
	}
	if result.Source != SourceCache || len(result.Results) != 1 {
		t.Errorf("result = %+v, want a cache hit after persisting the discovery", result)
	}
}

func TestRecordFromReportFallsBackToQueryName(t *testing.T) {
	rec := RecordFromReport(&discovery.Report{
		Query:   discovery.Query{Name: "serilog@3.1.1"},
		Matches: []discovery.Match{{License: "Apache-2.0"}},
	}, "nuget")

	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.Name != "serilog" {
		t.Errorf("name = %q, want serilog parsed from the query", rec.Name)
	}
	if len(rec.Versions) != 1 || rec.Versions[0].Version != "3.1.1" {
		t.Errorf("versions = %+v, want the query's version", rec.Versions)
	}
}

func TestRecordFromReportEmpty(t *testing.T) {
	if rec := RecordFromReport(&discovery.Report{Query: discovery.Query{Name: "x"}}, "npm"); rec != nil {
		t.Errorf("record = %+v, want nil for a report with no matches", rec)
	}
}
