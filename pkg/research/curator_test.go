package research

import (
	"reflect"
	"testing"

	"github.com/mikeboe/scholar-agent/pkg/search"
)

func TestDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Strips www and lowercases", "https://www.EXAMPLE.com/x", "example.com"},
		{"Plain host", "http://example.com/y", "example.com"},
		{"Keeps subdomain", "https://news.mit.edu/article", "news.mit.edu"},
		{"Host with port", "https://www.example.com:8080/x", "example.com:8080"},
		{"Not a URL falls back to raw", "not a url", "not a url"},
		{"Empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Domain(tt.input); got != tt.expected {
				t.Errorf("Domain(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDomainNormalizationCollapses(t *testing.T) {
	a := Domain("https://www.EXAMPLE.com/x")
	b := Domain("http://example.com/y")
	if a != b {
		t.Errorf("expected the same domain key, got %q and %q", a, b)
	}
}

func TestCurateScoring(t *testing.T) {
	hits := []search.Result{
		{Title: "quantum computing basics", URL: "https://example.com/a", Snippet: "an introduction"},
		{Title: "unrelated", URL: "https://other.com/b", Snippet: "nothing here"},
		{Title: "quantum research", URL: "https://physics.mit.edu/c", Snippet: "computing advances"},
	}

	got := Curate("quantum computing", hits, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 curated sources, got %d", len(got))
	}

	// mit.edu matches both tokens plus the authority bonus.
	if got[0].URL != "https://physics.mit.edu/c" || got[0].Score != 2.5 {
		t.Errorf("expected .edu hit first with score 2.5, got %q score %v", got[0].URL, got[0].Score)
	}
	if got[1].URL != "https://example.com/a" || got[1].Score != 2 {
		t.Errorf("expected example.com second with score 2, got %q score %v", got[1].URL, got[1].Score)
	}
	if got[2].Score != 0 {
		t.Errorf("expected unrelated hit to score 0, got %v", got[2].Score)
	}
}

func TestCurateDedupKeepsFirstPerDomain(t *testing.T) {
	hits := []search.Result{
		{Title: "weak match", URL: "https://example.com/first", Snippet: ""},
		{Title: "topic topic topic strong match", URL: "https://www.example.com/second", Snippet: "topic"},
	}

	got := Curate("topic", hits, 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 source after dedup, got %d", len(got))
	}
	if got[0].URL != "https://example.com/first" {
		t.Errorf("dedup must keep the first occurrence, got %q", got[0].URL)
	}
}

func TestCurateTruncatesToTopN(t *testing.T) {
	hits := []search.Result{
		{Title: "a", URL: "https://a.com"},
		{Title: "b", URL: "https://b.com"},
		{Title: "c", URL: "https://c.com"},
	}

	got := Curate("q", hits, 2)
	if len(got) != 2 {
		t.Errorf("expected topN=2 sources, got %d", len(got))
	}
}

func TestCurateStableTieOrder(t *testing.T) {
	// All hits score zero; relative provider order must survive the sort.
	hits := []search.Result{
		{Title: "first", URL: "https://a.com"},
		{Title: "second", URL: "https://b.com"},
		{Title: "third", URL: "https://c.com"},
	}

	got := Curate("zzz", hits, 10)
	want := []string{"https://a.com", "https://b.com", "https://c.com"}
	for i, s := range got {
		if s.URL != want[i] {
			t.Errorf("tie order broken at %d: got %q, want %q", i, s.URL, want[i])
		}
	}
}

func TestCurateIdempotent(t *testing.T) {
	hits := []search.Result{
		{Title: "go concurrency patterns", URL: "https://go.dev/blog", Snippet: "channels"},
		{Title: "concurrency", URL: "https://research.gov/paper", Snippet: "go routines"},
		{Title: "misc", URL: "https://misc.org/x", Snippet: ""},
	}

	first := Curate("go concurrency", hits, 10)

	asHits := make([]search.Result, len(first))
	for i, s := range first {
		asHits[i] = search.Result{Title: s.Title, URL: s.URL, Snippet: s.Snippet, Score: s.Score}
	}
	second := Curate("go concurrency", asHits, len(first))

	if !reflect.DeepEqual(first, second) {
		t.Errorf("curation is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestCurateBoundedByDistinctDomains(t *testing.T) {
	hits := []search.Result{
		{URL: "https://a.com/1"},
		{URL: "https://a.com/2"},
		{URL: "https://www.a.com/3"},
		{URL: "https://b.com/1"},
	}

	got := Curate("q", hits, 100)
	if len(got) > 2 {
		t.Errorf("expected at most 2 sources (distinct domains), got %d", len(got))
	}
}
