package web_retrieve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/scout/provider"
	fetchmodels "github.com/mohammad-safakhou/scout/tools/web_fetch/models"
	"github.com/mohammad-safakhou/scout/tools/web_search/models"
)

type gatewayFunc func(ctx context.Context, req provider.Request) provider.Outcome

func (f gatewayFunc) Complete(ctx context.Context, req provider.Request) provider.Outcome {
	return f(ctx, req)
}

type fakeSearcher struct {
	results []models.Result
	calls   []string
}

func (s *fakeSearcher) Discover(_ context.Context, q string, _ int) ([]models.Result, error) {
	s.calls = append(s.calls, q)
	return s.results, nil
}

type fakeFetcher struct {
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) Exec(_ context.Context, url string) (fetchmodels.Result, error) {
	f.calls = append(f.calls, url)
	text, ok := f.pages[url]
	if !ok {
		return fetchmodels.Result{URL: url}, errors.New("connection reset by peer")
	}
	return fetchmodels.Result{URL: url, Text: text, Status: 200}, nil
}

func ok(stage provider.Stage, response any) provider.Outcome {
	return provider.Succeeded(stage, "", map[string]any{"response": response}, provider.StrategyStrict)
}

// scripted answers search-query calls with query and page-selection calls
// with picks in order, repeating the last pick once exhausted.
type scripted struct {
	query     any
	picks     []string
	pickCalls []provider.Request
}

func (s *scripted) Complete(_ context.Context, req provider.Request) provider.Outcome {
	switch req.Stage {
	case provider.StageSearchQuery:
		return ok(req.Stage, s.query)
	case provider.StagePageSelection:
		s.pickCalls = append(s.pickCalls, req)
		i := len(s.pickCalls) - 1
		if i >= len(s.picks) {
			i = len(s.picks) - 1
		}
		return ok(req.Stage, s.picks[i])
	}
	return provider.Failed(req.Stage, errors.New("unexpected stage"))
}

var parisResults = []models.Result{
	{Title: "Paris - Wikipedia", URL: "https://en.wikipedia.org/wiki/Paris", Snippet: "Paris is the capital of France"},
	{Title: "Berlin - Wikipedia", URL: "https://en.wikipedia.org/wiki/Berlin", Snippet: "Berlin is the capital of Germany"},
	{Title: "Cheap flights", URL: "https://flights.example", Snippet: "Book flights"},
}

func TestUseToolSuccess(t *testing.T) {
	gw := &scripted{query: "capital of France", picks: []string{"https://en.wikipedia.org/wiki/Paris"}}
	searcher := &fakeSearcher{results: parisResults}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://en.wikipedia.org/wiki/Paris": "Paris is the capital\nof France.",
	}}
	r := New(gw, searcher, fetcher, Config{})
	failed := NewSiteSet()

	res := r.UseTool(context.Background(), "", "What is the capital of France?", nil, failed)
	if res.Source != "https://en.wikipedia.org/wiki/Paris" || res.Content != "Paris is the capital of France." {
		t.Fatalf("unexpected result: %+v", res)
	}
	if failed.Len() != 0 {
		t.Fatalf("expected no failed sites, got %v", failed.List())
	}
	if len(searcher.calls) != 1 || searcher.calls[0] != "capital of France" {
		t.Fatalf("unexpected search calls: %v", searcher.calls)
	}
	user := gw.pickCalls[0].User
	if !strings.Contains(user, "Plan: None") || !strings.Contains(user, "Failed Sites: []") || !strings.Contains(user, "Link: https://en.wikipedia.org/wiki/Paris") {
		t.Fatalf("unexpected page selection prompt: %s", user)
	}
}

func TestUseToolExhaustsAttempts(t *testing.T) {
	picks := []string{"https://a.example", "https://b.example", "https://c.example", "https://d.example", "https://e.example", "https://f.example"}
	gw := &scripted{query: "q", picks: picks}
	fetcher := &fakeFetcher{pages: map[string]string{}}
	r := New(gw, &fakeSearcher{results: parisResults}, fetcher, Config{})
	failed := NewSiteSet()

	res := r.UseTool(context.Background(), "plan", "query", []string{"https://visited.example"}, failed)
	if len(gw.pickCalls) != 5 || len(fetcher.calls) != 5 {
		t.Fatalf("expected 5 attempts, got %d picks and %d fetches", len(gw.pickCalls), len(fetcher.calls))
	}
	if res.Source != "https://e.example" {
		t.Fatalf("expected last failure record, got %+v", res)
	}
	if res.Content != "Failed to retrieve content due to an error: connection reset by peer" {
		t.Fatalf("unexpected content %q", res.Content)
	}
	if got := failed.List(); len(got) != 5 || got[0] != "https://a.example" {
		t.Fatalf("unexpected failed sites %v", got)
	}
	last := gw.pickCalls[4].User
	if !strings.Contains(last, `Failed Sites: ["https://a.example","https://b.example","https://c.example","https://d.example"]`) {
		t.Fatalf("failed sites missing from prompt: %s", last)
	}
	if !strings.Contains(last, `Visited Sites: ["https://visited.example"]`) {
		t.Fatalf("visited sites missing from prompt: %s", last)
	}
}

func TestUseToolRepeatedFailedPickTerminates(t *testing.T) {
	gw := &scripted{query: "q", picks: []string{"https://down.example"}}
	fetcher := &fakeFetcher{pages: map[string]string{}}
	r := New(gw, &fakeSearcher{results: parisResults}, fetcher, Config{})
	failed := NewSiteSet()

	res := r.UseTool(context.Background(), "plan", "query", nil, failed)
	if len(fetcher.calls) != 5 {
		t.Fatalf("expected 5 fetches, got %d", len(fetcher.calls))
	}
	if failed.Len() != 1 || res.Source != "https://down.example" {
		t.Fatalf("unexpected state: failed=%v res=%+v", failed.List(), res)
	}
}

func TestUseToolGarbledThenGood(t *testing.T) {
	gw := &scripted{query: "q", picks: []string{"https://garbled.example", "https://good.example"}}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://garbled.example": "ÃÂ¤ÃÂ¶ÃÂ¼ ok",
		"https://good.example":    "plain ascii text",
	}}
	r := New(gw, &fakeSearcher{results: parisResults}, fetcher, Config{})
	failed := NewSiteSet()

	res := r.UseTool(context.Background(), "plan", "query", nil, failed)
	if res.Source != "https://good.example" || res.Content != "plain ascii text" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !failed.Has("https://garbled.example") {
		t.Fatalf("garbled page not recorded as failed: %v", failed.List())
	}
}

func TestUseToolGarbledExhaustion(t *testing.T) {
	gw := &scripted{query: "q", picks: []string{"https://garbled.example"}}
	fetcher := &fakeFetcher{pages: map[string]string{"https://garbled.example": "日本語のテキスト"}}
	res := New(gw, &fakeSearcher{}, fetcher, Config{}).UseTool(context.Background(), "", "q", nil, nil)
	if res.Content != "Failed to retrieve content due to garbled text" {
		t.Fatalf("unexpected content %q", res.Content)
	}
}

func TestUseToolEmptySearchQuery(t *testing.T) {
	gw := &scripted{query: "", picks: []string{""}}
	searcher := &fakeSearcher{results: parisResults}
	fetcher := &fakeFetcher{}
	res := New(gw, searcher, fetcher, Config{}).UseTool(context.Background(), "", "q", nil, nil)

	if len(searcher.calls) != 0 {
		t.Fatalf("search should not run for an empty query, got %v", searcher.calls)
	}
	if !strings.Contains(gw.pickCalls[0].User, "Search Results: No search query generated") {
		t.Fatalf("diagnostic missing from prompt: %s", gw.pickCalls[0].User)
	}
	if len(gw.pickCalls) != 5 || len(fetcher.calls) != 0 {
		t.Fatalf("expected 5 selections and no fetches, got %d/%d", len(gw.pickCalls), len(fetcher.calls))
	}
	if res.Source != "" || !strings.HasPrefix(res.Content, "Failed to retrieve content due to an error") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestUseToolArrayQuery(t *testing.T) {
	gw := &scripted{query: []any{"", "paris capital", "other"}, picks: []string{"https://en.wikipedia.org/wiki/Paris"}}
	searcher := &fakeSearcher{results: parisResults}
	fetcher := &fakeFetcher{pages: map[string]string{"https://en.wikipedia.org/wiki/Paris": "text"}}
	New(gw, searcher, fetcher, Config{}).UseTool(context.Background(), "", "q", nil, nil)
	if len(searcher.calls) != 1 || searcher.calls[0] != "paris capital" {
		t.Fatalf("unexpected search calls %v", searcher.calls)
	}
}

func TestUseToolSelectionFailure(t *testing.T) {
	calls := 0
	gw := gatewayFunc(func(_ context.Context, req provider.Request) provider.Outcome {
		if req.Stage == provider.StageSearchQuery {
			return ok(req.Stage, "q")
		}
		calls++
		return provider.Failed(req.Stage, context.DeadlineExceeded)
	})
	fetcher := &fakeFetcher{}
	res := New(gw, &fakeSearcher{results: parisResults}, fetcher, Config{}).UseTool(context.Background(), "", "q", nil, nil)
	if calls != 5 || len(fetcher.calls) != 0 {
		t.Fatalf("expected 5 selection calls and no fetch, got %d/%d", calls, len(fetcher.calls))
	}
	want := "Failed to retrieve content due to an error: Error getting search page URL: context deadline exceeded"
	if res.Content != want || res.Source != "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestUseToolTruncates(t *testing.T) {
	gw := &scripted{query: "q", picks: []string{"https://long.example"}}
	fetcher := &fakeFetcher{pages: map[string]string{"https://long.example": "one two three four five"}}
	res := New(gw, &fakeSearcher{}, fetcher, Config{MaxTokens: 3}).UseTool(context.Background(), "", "q", nil, nil)
	if res.Content != "one two three" {
		t.Fatalf("unexpected content %q", res.Content)
	}
}

func TestUseToolFallbackRanking(t *testing.T) {
	// The model keeps choosing a page that is not among the results.
	gw := &scripted{query: "capital of Germany", picks: []string{"https://made-up.example"}}
	fetcher := &fakeFetcher{pages: map[string]string{"https://en.wikipedia.org/wiki/Berlin": "Berlin text"}}
	r := New(gw, &fakeSearcher{results: parisResults}, fetcher, Config{FallbackRanking: true})

	res := r.UseTool(context.Background(), "", "q", nil, nil)
	if res.Source != "https://en.wikipedia.org/wiki/Berlin" {
		t.Fatalf("expected ranked candidate, got %+v (fetches %v)", res, fetcher.calls)
	}
	if len(fetcher.calls) != 1 {
		t.Fatalf("expected a single fetch, got %v", fetcher.calls)
	}
}

func TestFallbackSkipsTried(t *testing.T) {
	r := New(&scripted{}, &fakeSearcher{}, &fakeFetcher{}, Config{FallbackRanking: true})
	failed := NewSiteSet()
	failed.Add("https://en.wikipedia.org/wiki/Berlin")
	got := r.fallback("https://en.wikipedia.org/wiki/Berlin", "capital of Germany", parisResults,
		[]string{"https://en.wikipedia.org/wiki/Paris"}, failed)
	if got != "https://flights.example" {
		t.Fatalf("expected the only untried candidate, got %q", got)
	}
	variant := NewSiteSet()
	variant.Add("https://EN.wikipedia.org/wiki/Berlin/?utm_source=feed")
	if got := r.fallback("https://made-up.example", "capital of Germany", parisResults,
		[]string{"https://en.wikipedia.org/wiki/Paris#History"}, variant); got != "https://flights.example" {
		t.Fatalf("URL variants should count as tried, got %q", got)
	}
	if keep := r.fallback("https://en.wikipedia.org/wiki/Paris", "x", parisResults, nil, NewSiteSet()); keep != "https://en.wikipedia.org/wiki/Paris" {
		t.Fatalf("valid pick replaced: %q", keep)
	}
}

func TestDescribe(t *testing.T) {
	r := New(&scripted{}, &fakeSearcher{}, &fakeFetcher{}, Config{})
	if !strings.Contains(r.Describe(), "source") {
		t.Fatalf("unexpected description %q", r.Describe())
	}
}

func TestIsGarbled(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		ratio float64
		want  bool
	}{
		{"empty", "", 0, false},
		{"plain ascii", strings.Repeat("a", 100), 0, false},
		{"whitespace controls", "a\tb\nc\rd\ve\ff", 0, false},
		{"just under", strings.Repeat("a", 81) + strings.Repeat("é", 19), 0.19, false},
		{"exactly at", strings.Repeat("a", 80) + strings.Repeat("é", 20), 0.2, true},
		{"all foreign", "日本語", 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NonPrintableRatio(tc.text); got != tc.ratio {
				t.Fatalf("NonPrintableRatio = %v, want %v", got, tc.ratio)
			}
			if got := IsGarbled(tc.text, DefaultGarbleThreshold); got != tc.want {
				t.Fatalf("IsGarbled = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTruncateTokens(t *testing.T) {
	cases := []struct {
		text string
		n    int
		want string
	}{
		{"one two three four", 2, "one two"},
		{"line one\nline two\n\nline three", 4, "line one line two"},
		{"a\tb\t\tc  d", 10, "a b c d"},
		{"  padded   text  ", 0, "padded text"},
		{"", 5, ""},
	}
	for _, tc := range cases {
		if got := TruncateTokens(tc.text, tc.n); got != tc.want {
			t.Fatalf("TruncateTokens(%q, %d) = %q, want %q", tc.text, tc.n, got, tc.want)
		}
	}
}
