package web_search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/scout/tools/web_search/brave"
	"github.com/mohammad-safakhou/scout/tools/web_search/models"
	"github.com/mohammad-safakhou/scout/tools/web_search/serper"
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

type Error struct{ msg string }

func (e *Error) Error() string { return e.msg }

var ErrUnsupportedProvider = &Error{"unsupported provider"}

// Diagnostics returned by Lookup in place of a listing.
const (
	NoQuery   = "No search query generated"
	NoResults = "No organic results found"
)

type Options struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
}

func NewWebSearcher(provider Provider, opts Options) (WebSearcher, error) {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	switch provider {
	case SerperProvider:
		return serper.Search{ApiKey: opts.APIKey, Endpoint: opts.Endpoint, Client: client}, nil
	case BraveProvider:
		return brave.Search{ApiKey: opts.APIKey, Endpoint: opts.Endpoint, Client: client}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}

// Format renders results as the listing shown to the page-selection model.
func Format(results []models.Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		title := orDefault(r.Title, "No Title")
		link := orDefault(r.URL, "#")
		snippet := orDefault(r.Snippet, "No snippet available.")
		parts = append(parts, fmt.Sprintf("Title: %s\n\nLink: %s\n\nSnippet: %s\n---", title, link, snippet))
	}
	return strings.Join(parts, "\n")
}

// Lookup runs one search and always returns text: the formatted listing or
// a diagnostic line. The results are returned alongside for callers that
// rank candidates themselves.
func Lookup(ctx context.Context, s WebSearcher, q string, k int) (string, []models.Result) {
	if strings.TrimSpace(q) == "" {
		return NoQuery, nil
	}
	results, err := s.Discover(ctx, q, k)
	if err != nil {
		var herr *models.HTTPError
		if errors.As(err, &herr) {
			return fmt.Sprintf("HTTP error occurred: %v", herr), nil
		}
		return fmt.Sprintf("Request exception occurred: %v", err), nil
	}
	if len(results) == 0 {
		return NoResults, nil
	}
	return Format(results), results
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
