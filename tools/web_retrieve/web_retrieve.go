package web_retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/scout/internal/helpers"
	"github.com/mohammad-safakhou/scout/internal/runtime"
	"github.com/mohammad-safakhou/scout/internal/schema"
	"github.com/mohammad-safakhou/scout/provider"
	"github.com/mohammad-safakhou/scout/tools/web_fetch"
	"github.com/mohammad-safakhou/scout/tools/web_search"
	"github.com/mohammad-safakhou/scout/tools/web_search/models"
	"github.com/mohammad-safakhou/scout/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts     = 5
	DefaultMaxTokens       = 4000
	DefaultGarbleThreshold = 0.2

	garbledContent = "Failed to retrieve content due to garbled text"
)

// Config tunes one Retriever.
type Config struct {
	Model           string // empty uses the gateway default
	MaxAttempts     int
	MaxTokens       int
	MaxResults      int
	GarbleThreshold float64
	FallbackRanking bool
	FetcherName     string // metrics label
}

func (c *Config) normalize() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.GarbleThreshold <= 0 {
		c.GarbleThreshold = DefaultGarbleThreshold
	}
	if c.FetcherName == "" {
		c.FetcherName = "http"
	}
}

// Retriever is the search-and-retrieve tool: one search, then up to
// MaxAttempts page selections until a page yields usable text.
type Retriever struct {
	gateway  provider.Gateway
	searcher web_search.WebSearcher
	fetcher  web_fetch.WebFetcher
	cfg      Config
	logger   *zap.Logger
	metrics  *runtime.Metrics
	tracer   trace.Tracer
}

type Option func(*Retriever)

func WithLogger(l *zap.Logger) Option       { return func(r *Retriever) { r.logger = l } }
func WithMetrics(m *runtime.Metrics) Option { return func(r *Retriever) { r.metrics = m } }
func WithTracer(t trace.Tracer) Option      { return func(r *Retriever) { r.tracer = t } }

func New(gateway provider.Gateway, searcher web_search.WebSearcher, fetcher web_fetch.WebFetcher, cfg Config, opts ...Option) *Retriever {
	cfg.normalize()
	r := &Retriever{
		gateway:  gateway,
		searcher: searcher,
		fetcher:  fetcher,
		cfg:      cfg,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("scout/tools/web_retrieve"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Describe is the capability text shown to the planner.
func (r *Retriever) Describe() string { return toolDescription }

// UseTool never fails: when every attempt fails it returns the last failure
// record. Each failed URL is added to failed; visited is only read.
func (r *Retriever) UseTool(ctx context.Context, plan, query string, visited []string, failed *SiteSet) ToolResult {
	if failed == nil {
		failed = NewSiteSet()
	}
	ctx, span := r.tracer.Start(ctx, "tool.use")
	defer span.End()

	searchQuery := r.generateSearch(ctx, plan, query)
	listing, results := web_search.Lookup(ctx, r.searcher, searchQuery, r.cfg.MaxResults)
	r.logger.Debug("search done",
		zap.String("search_query", searchQuery),
		zap.Int("results", len(results)),
		zap.String("listing", utils.Clip(listing, 300)),
	)

	var last ToolResult
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		page, ok := r.pickPage(ctx, plan, query, listing, visited, failed)
		if !ok {
			last = ToolResult{Content: "Failed to retrieve content due to an error: " + page}
			r.metrics.RetrievalAttempt(ctx, "selection_error")
			r.logger.Warn("page selection failed", zap.Int("attempt", attempt), zap.String("error", page))
			continue
		}
		if r.cfg.FallbackRanking {
			page = r.fallback(page, searchQuery, results, visited, failed)
		}

		res, result := r.retrieve(ctx, page)
		r.metrics.RetrievalAttempt(ctx, result)
		if result == "success" {
			span.SetAttributes(attribute.Int("attempts", attempt), attribute.String("source", page))
			r.logger.Info("page retrieved", zap.Int("attempt", attempt), zap.String("url", page))
			return res
		}
		if page != "" {
			failed.Add(page)
		}
		last = res
		r.logger.Info("page failed, trying a different page",
			zap.Int("attempt", attempt),
			zap.String("url", page),
			zap.String("result", result),
			zap.Strings("failed_sites", failed.List()),
		)
	}
	span.SetAttributes(attribute.Int("attempts", r.cfg.MaxAttempts), attribute.Bool("exhausted", true))
	return last
}

func (r *Retriever) generateSearch(ctx context.Context, plan, query string) string {
	out := r.gateway.Complete(ctx, provider.Request{
		Stage:  provider.StageSearchQuery,
		Model:  r.cfg.Model,
		System: generateSearchesPrompt,
		User:   fmt.Sprintf("Query: %s\n\nPlan: %s", query, orNone(plan)),
		JSON:   true,
	})
	if !out.OK() {
		// the sentinel is searched for, which mirrors how a failed call degrades
		return out.Text()
	}
	r.checkShape(out)
	v, _ := out.Value("response")
	return strings.TrimSpace(firstString(v))
}

// pickPage returns the chosen URL, or the failure text with ok=false when
// the gateway call itself failed.
func (r *Retriever) pickPage(ctx context.Context, plan, query, listing string, visited []string, failed *SiteSet) (string, bool) {
	out := r.gateway.Complete(ctx, provider.Request{
		Stage:  provider.StagePageSelection,
		Model:  r.cfg.Model,
		System: pickPagePrompt,
		User: fmt.Sprintf("Query: %s\n\nPlan: %s\n\nSearch Results: %s\n\nFailed Sites: %s\n\nVisited Sites: %s",
			query, orNone(plan), listing, formatList(failed.List()), formatList(visited)),
		JSON: true,
	})
	if !out.OK() {
		return out.Text(), false
	}
	r.checkShape(out)
	v, _ := out.Value("response")
	return strings.TrimSpace(firstString(v)), true
}

func (r *Retriever) checkShape(out provider.Outcome) {
	if err := schema.Validate(schema.ToolResponse, out.Fields); err != nil {
		r.logger.Warn("tool reply does not match the requested shape", zap.String("stage", string(out.Stage)), zap.Error(err))
	}
}

// retrieve fetches page and classifies the attempt.
func (r *Retriever) retrieve(ctx context.Context, page string) (ToolResult, string) {
	if page == "" {
		return ToolResult{Content: "Failed to retrieve content due to an error: no page selected"}, "fetch_error"
	}
	start := time.Now()
	res, err := r.fetcher.Exec(ctx, page)
	r.metrics.ObserveFetch(ctx, r.cfg.FetcherName, time.Since(start), err)
	if err != nil {
		r.logger.Warn("error retrieving content", zap.String("url", page), zap.Error(err))
		return ToolResult{Source: page, Content: fmt.Sprintf("Failed to retrieve content due to an error: %v", err)}, "fetch_error"
	}
	if IsGarbled(res.Text, r.cfg.GarbleThreshold) {
		r.logger.Warn("garbled content", zap.String("url", page), zap.Float64("ratio", NonPrintableRatio(res.Text)))
		return ToolResult{Source: page, Content: garbledContent}, "garbled"
	}
	return ToolResult{Source: page, Content: TruncateTokens(res.Text, r.cfg.MaxTokens)}, "success"
}

// fallback replaces an unusable model pick with the best ranked untried
// candidate. The pick is kept when nothing untried remains.
func (r *Retriever) fallback(page, searchQuery string, results []models.Result, visited []string, failed *SiteSet) string {
	if len(results) == 0 {
		return page
	}
	tried := make(map[string]bool, len(visited)+failed.Len())
	for _, v := range visited {
		tried[helpers.URLKey(v)] = true
	}
	for _, f := range failed.List() {
		tried[helpers.URLKey(f)] = true
	}
	listed := false
	for _, res := range results {
		if helpers.SameURL(res.URL, page) {
			listed = true
			break
		}
	}
	if page != "" && listed && !failed.Has(page) {
		return page
	}
	order, err := rankCandidates(searchQuery, results)
	if err != nil {
		r.logger.Warn("candidate ranking failed", zap.Error(err))
		return page
	}
	for _, i := range order {
		if u := results[i].URL; u != "" && !tried[helpers.URLKey(u)] {
			r.logger.Info("model pick replaced by ranked candidate", zap.String("pick", page), zap.String("url", u))
			return u
		}
	}
	return page
}

// firstString reads a decoded field: strings as is, the first non-empty
// string of an array, anything else rendered as text.
func firstString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
		return ""
	}
	return utils.Str(v)
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
