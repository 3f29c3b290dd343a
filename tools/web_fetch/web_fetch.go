package web_fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/scout/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/scout/tools/web_fetch/httpget"
	"github.com/mohammad-safakhou/scout/tools/web_fetch/models"
)

const (
	DefaultTimeout       = 20 * time.Second
	DefaultMinConfidence = 0.5
)

type WebFetcher interface {
	Exec(ctx context.Context, url string) (models.Result, error)
}

type FetcherType string

const (
	HTTPFetcherType     FetcherType = "http"
	ChromedpFetcherType FetcherType = "chromedp"
)

type Error struct{ msg string }

func (e *Error) Error() string { return e.msg }

var ErrUnsupportedFetcher = &Error{"unsupported fetcher type"}

type Options struct {
	Timeout       time.Duration
	MinConfidence float64
	MaxBodyBytes  int64
	Client        *http.Client
}

func NewWebFetcher(fetcherType FetcherType, opts Options) (WebFetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = DefaultMinConfidence
	}

	switch fetcherType {
	case HTTPFetcherType, "":
		return httpget.Fetch{
			Timeout:       opts.Timeout,
			MinConfidence: opts.MinConfidence,
			MaxBodyBytes:  opts.MaxBodyBytes,
			Client:        opts.Client,
		}, nil
	case ChromedpFetcherType:
		return chromedp.Fetch{Timeout: opts.Timeout}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFetcher, fetcherType)
	}
}
