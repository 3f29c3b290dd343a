package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/mohammad-safakhou/scout/utils"
)

// Stage names the role a model call plays in a session.
type Stage string

const (
	StagePlanning      Stage = "planning"
	StageIntegration   Stage = "integration"
	StageAssessment    Stage = "assessment"
	StageSearchQuery   Stage = "search_query"
	StagePageSelection Stage = "page_selection"
)

// sentinel prefixes rendered by Outcome.Text when a call fails.
var failurePrefix = map[Stage]string{
	StagePlanning:      "Error generating plan",
	StageIntegration:   "Error generating response",
	StageAssessment:    "Error in assessing response quality",
	StageSearchQuery:   "Error generating search query",
	StagePageSelection: "Error getting search page URL",
}

// Request is a single system+user chat call.
type Request struct {
	Stage  Stage
	Model  string // empty uses the gateway default
	System string
	User   string
	// JSON asks for a json_object response and decodes the message content.
	JSON bool
}

// Gateway is the remote model boundary. Complete never returns a Go error;
// failures are reported through the Outcome status.
type Gateway interface {
	Complete(ctx context.Context, req Request) Outcome
}

// Status is the typed result of a gateway call.
type Status string

const (
	StatusOK             Status = "ok"
	StatusTimeout        Status = "timeout"
	StatusTransportError Status = "transport_error"
	StatusDecodeError    Status = "decode_error"
)

// Outcome carries either the model content (and decoded fields for JSON
// requests) or the failure that replaced it.
type Outcome struct {
	Stage    Stage
	Status   Status
	Content  string
	Fields   map[string]any
	Strategy Strategy
	Err      error
}

func (o Outcome) OK() bool { return o.Status == StatusOK }

// Text returns the content, or the sentinel error string callers treat as a
// valid-but-failed model output.
func (o Outcome) Text() string {
	if o.OK() {
		return o.Content
	}
	prefix, ok := failurePrefix[o.Stage]
	if !ok {
		prefix = "Error calling model"
	}
	if o.Err == nil {
		return prefix
	}
	return fmt.Sprintf("%s: %v", prefix, o.Err)
}

// Value returns a decoded field.
func (o Outcome) Value(name string) (any, bool) {
	if o.Fields == nil {
		return nil, false
	}
	v, ok := o.Fields[name]
	return v, ok
}

// Field returns a decoded field rendered as a string, "" when absent.
func (o Outcome) Field(name string) string {
	v, ok := o.Value(name)
	if !ok {
		return ""
	}
	return utils.Str(v)
}

// Succeeded builds an ok outcome.
func Succeeded(stage Stage, content string, fields map[string]any, strategy Strategy) Outcome {
	return Outcome{Stage: stage, Status: StatusOK, Content: content, Fields: fields, Strategy: strategy}
}

// Failed classifies err into a timeout or transport failure.
func Failed(stage Stage, err error) Outcome {
	status := StatusTransportError
	if isTimeout(err) {
		status = StatusTimeout
	}
	return Outcome{Stage: stage, Status: status, Err: err}
}

// DecodeFailed reports a response that could not be decoded.
func DecodeFailed(stage Stage, content string, err error) Outcome {
	return Outcome{Stage: stage, Status: StatusDecodeError, Content: content, Err: err}
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
