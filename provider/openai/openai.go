package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/scout/config"
	"github.com/mohammad-safakhou/scout/internal/helpers"
	"github.com/mohammad-safakhou/scout/internal/runtime"
	"github.com/mohammad-safakhou/scout/provider"
	"github.com/mohammad-safakhou/scout/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

// Client is a chat-completions gateway.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *runtime.Metrics
	tracer     trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }
func WithLogger(l *zap.Logger) Option      { return func(c *Client) { c.logger = l } }
func WithMetrics(m *runtime.Metrics) Option { return func(c *Client) { c.metrics = m } }
func WithTracer(t trace.Tracer) Option      { return func(c *Client) { c.tracer = t } }

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"` // always 0
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// StatusError is a non-2xx reply from the completions endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Code, e.Body)
}

// NewClient creates a gateway for cfg.
func NewClient(cfg config.LLMConfig, opts ...Option) *Client {
	c := &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     zap.NewNop(),
		tracer:     otel.Tracer("scout/provider/openai"),
	}
	if c.endpoint == "" {
		c.endpoint = defaultEndpoint
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends one system+user exchange. Transport, timeout and decoding
// failures come back as non-ok outcomes rather than errors.
func (c *Client) Complete(ctx context.Context, req provider.Request) provider.Outcome {
	model := req.Model
	if model == "" {
		model = c.model
	}
	ctx, span := c.tracer.Start(ctx, "gateway.complete", trace.WithAttributes(
		attribute.String("stage", string(req.Stage)),
		attribute.String("model", model),
	))
	defer span.End()

	start := time.Now()
	out := c.complete(ctx, model, req)
	took := time.Since(start)

	c.metrics.GatewayCall(ctx, string(req.Stage), string(out.Status), took)
	span.SetAttributes(attribute.String("status", string(out.Status)))
	if !out.OK() {
		span.SetStatus(codes.Error, out.Text())
		c.logger.Warn("gateway call failed",
			zap.String("stage", string(req.Stage)),
			zap.String("status", string(out.Status)),
			zap.Duration("took", took),
			zap.Error(out.Err),
		)
		return out
	}
	c.logger.Debug("gateway call",
		zap.String("stage", string(req.Stage)),
		zap.String("model", model),
		zap.String("strategy", string(out.Strategy)),
		zap.Duration("took", took),
		zap.String("content", utils.Clip(out.Content, 200)),
	)
	return out
}

func (c *Client) complete(ctx context.Context, model string, req provider.Request) provider.Outcome {
	body := request{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	content, err := c.sendRequest(ctx, body)
	if err != nil {
		if de, ok := err.(*decodeError); ok {
			return provider.DecodeFailed(req.Stage, de.raw, de.err)
		}
		return provider.Failed(req.Stage, err)
	}
	if !req.JSON {
		return provider.Succeeded(req.Stage, content, nil, "")
	}
	fields, strategy, err := provider.DecodeObject(content)
	if err != nil {
		return provider.DecodeFailed(req.Stage, content, err)
	}
	return provider.Succeeded(req.Stage, content, fields, strategy)
}

type decodeError struct {
	raw string
	err error
}

func (e *decodeError) Error() string { return e.err.Error() }

// sendRequest sends a request to the completions endpoint
func (c *Client) sendRequest(ctx context.Context, body request) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	raw, err := helpers.ReadAllAndClose(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Body: utils.Clip(string(raw), 300)}
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &decodeError{raw: string(raw), err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &decodeError{raw: string(raw), err: fmt.Errorf("no choices in response")}
	}
	return parsed.Choices[0].Message.Content, nil
}
