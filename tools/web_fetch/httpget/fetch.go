package httpget

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammad-safakhou/scout/tools/web_fetch/extract"
	"github.com/mohammad-safakhou/scout/tools/web_fetch/models"
)

// browserHeaders mimic a desktop Chrome navigation from a search result.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.9",
	"Accept-Language":           "en-US,en;q=0.9",
	"Referer":                   "https://www.google.com/",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

type Fetch struct {
	Timeout       time.Duration
	MinConfidence float64
	MaxBodyBytes  int64
	Client        *http.Client
}

func (f Fetch) Exec(ctx context.Context, rawURL string) (models.Result, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return models.Result{}, errors.New("invalid url")
	}
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return models.Result{URL: rawURL}, err
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	t0 := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return models.Result{URL: rawURL}, err
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.Result{URL: rawURL}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Result{URL: rawURL, Status: resp.StatusCode}, &models.StatusError{
			StatusCode: resp.StatusCode, Status: resp.Status, URL: rawURL,
		}
	}

	var body io.Reader = resp.Body
	if f.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBodyBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return models.Result{URL: rawURL, Status: resp.StatusCode}, err
	}

	page := extract.Parse(raw, resp.Header.Get("Content-Type"), pageURL, f.MinConfidence)
	return models.Result{
		URL:      rawURL,
		Title:    page.Title,
		Byline:   page.Byline,
		Text:     page.Text,
		Charset:  page.Charset,
		HTMLHash: page.Hash,
		Status:   resp.StatusCode,
		RenderMS: int(time.Since(t0) / time.Millisecond),
	}, nil
}
