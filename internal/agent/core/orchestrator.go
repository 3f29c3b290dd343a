package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mohammad-safakhou/scout/feedback"
	"github.com/mohammad-safakhou/scout/internal/runtime"
	"github.com/mohammad-safakhou/scout/internal/schema"
	"github.com/mohammad-safakhou/scout/provider"
	"github.com/mohammad-safakhou/scout/tools/web_retrieve"
	"github.com/mohammad-safakhou/scout/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultMaxIterations = 10

// ErrSessionActive is returned when Run is called while another session
// holds the feedback store.
var ErrSessionActive = errors.New("a session is already running")

// Tool is the retrieval capability the planner is told about.
type Tool interface {
	Describe() string
	UseTool(ctx context.Context, plan, query string, visited []string, failed *web_retrieve.SiteSet) web_retrieve.ToolResult
}

// Config tunes the session loop.
type Config struct {
	Model            string // planning and integration
	QAModel          string // assessment
	MaxIterations    int
	FailedSitesScope FailedSitesScope
}

// Result is what a finished session hands back.
type Result struct {
	SessionID    string
	Answer       string
	Accepted     bool
	Iterations   int
	VisitedSites []string
	Assessment   QualityAssessment
}

// Orchestrator runs the plan, retrieve, integrate, assess loop. One session
// runs at a time because the feedback store is shared.
type Orchestrator struct {
	gateway  provider.Gateway
	tool     Tool
	store    feedback.Store
	cfg      Config
	logger   *zap.Logger
	metrics  *runtime.Metrics
	tracer   trace.Tracer
	now      func() time.Time
	observer Observer

	mu sync.Mutex
}

type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option       { return func(o *Orchestrator) { o.logger = l } }
func WithMetrics(m *runtime.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }
func WithTracer(t trace.Tracer) Option      { return func(o *Orchestrator) { o.tracer = t } }
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }
func WithObserver(fn Observer) Option       { return func(o *Orchestrator) { o.observer = fn } }

// NewOrchestrator wires the loop to its collaborators.
func NewOrchestrator(gateway provider.Gateway, tool Tool, store feedback.Store, cfg Config, opts ...Option) *Orchestrator {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.FailedSitesScope == "" {
		cfg.FailedSitesScope = ScopeInvocation
	}
	if cfg.QAModel == "" {
		cfg.QAModel = cfg.Model
	}
	o := &Orchestrator{
		gateway: gateway,
		tool:    tool,
		store:   store,
		cfg:     cfg,
		logger:  zap.NewNop(),
		tracer:  otel.Tracer("scout/agent/core"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run answers query. The last integration response is returned even when
// the iteration budget runs out without a pass; Accepted tells the two
// apart. A non-nil error means the feedback store failed or ctx was
// cancelled, and the session was abandoned. The store is cleared on every
// exit path.
func (o *Orchestrator) Run(ctx context.Context, query string) (res Result, err error) {
	if !o.mu.TryLock() {
		return Result{}, ErrSessionActive
	}
	defer o.mu.Unlock()

	s := newSession(query)
	ctx, span := o.tracer.Start(ctx, "session.run", trace.WithAttributes(
		attribute.String("session_id", s.ID),
		attribute.Int("max_iterations", o.cfg.MaxIterations),
	))
	log := o.logger.With(zap.String("session_id", s.ID))
	log.Info("session started", zap.String("query", utils.Clip(query, 200)))

	defer func() {
		// a cancelled caller must not leave feedback behind for the next session
		if cerr := o.store.Clear(context.WithoutCancel(ctx)); cerr != nil {
			log.Error("clearing feedback failed", zap.Error(cerr))
			if err == nil {
				err = fmt.Errorf("clear feedback: %w", cerr)
			}
		}
		outcome := "rejected"
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			outcome = "cancelled"
			span.SetStatus(codes.Error, err.Error())
		case err != nil:
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case s.Assessment.Pass:
			outcome = "accepted"
		}
		o.metrics.SessionFinished(ctx, outcome, s.Iterations)
		span.SetAttributes(attribute.Int("iterations", s.Iterations), attribute.String("outcome", outcome))
		span.End()
		o.transition(s, StateDone)
		log.Info("session finished", zap.String("outcome", outcome), zap.Int("iterations", s.Iterations))
	}()

	leftover, err := o.store.Read(ctx)
	if err != nil {
		return o.result(s), fmt.Errorf("read feedback: %w", err)
	}
	if len(leftover) > 0 {
		log.Warn("feedback left over from an earlier session", zap.Int("entries", len(leftover)))
	}

	for !s.Assessment.Pass && s.Iterations < o.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			return o.result(s), fmt.Errorf("session cancelled: %w", err)
		}
		if err := o.iterate(ctx, s, log); err != nil {
			return o.result(s), err
		}
	}
	// an answer built from cancelled calls is only sentinel text
	if err := ctx.Err(); err != nil && !s.Assessment.Pass {
		return o.result(s), fmt.Errorf("session cancelled: %w", err)
	}
	return o.result(s), nil
}

func (o *Orchestrator) iterate(ctx context.Context, s *Session, log *zap.Logger) error {
	s.Iterations++
	ctx, span := o.tracer.Start(ctx, "session.iteration", trace.WithAttributes(attribute.Int("iteration", s.Iterations)))
	defer span.End()
	log = log.With(zap.Int("iteration", s.Iterations))

	entries, err := o.store.Read(ctx)
	if err != nil {
		return fmt.Errorf("read feedback: %w", err)
	}
	previous := feedback.Serialize(entries)

	o.transition(s, StatePlanning)
	s.Plan = o.gateway.Complete(ctx, provider.Request{
		Stage:  provider.StagePlanning,
		Model:  o.cfg.Model,
		System: planningPrompt(s.Plan, previous, o.tool.Describe(), timestamp(o.now())),
		User:   s.Query,
	}).Text()
	log.Info("plan", zap.String("plan", utils.Clip(s.Plan, 500)))
	o.emit(s, Event{Plan: s.Plan})

	o.transition(s, StateRetrieving)
	out := o.tool.UseTool(ctx, s.Plan, s.Query, s.Visited(), s.failedFor(o.cfg.FailedSitesScope))
	s.visited = append(s.visited, out.Source)
	log.Info("retrieved", zap.String("source", out.Source), zap.Strings("visited_sites", s.visited))
	o.emit(s, Event{Source: out.Source})

	o.transition(s, StateIntegrating)
	s.Answer = o.gateway.Complete(ctx, provider.Request{
		Stage:  provider.StageIntegration,
		Model:  o.cfg.Model,
		System: integrationPrompt(s.Query, s.Plan, out, s.Reason, previous, timestamp(o.now())),
		User:   s.Query,
	}).Text()
	log.Info("integrated", zap.String("response", utils.Clip(s.Answer, 500)))
	o.emit(s, Event{Response: s.Answer})
	if err := o.store.Append(ctx, feedback.Entry{Feedback: s.Answer}); err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}

	o.transition(s, StateAssessing)
	verdict := o.gateway.Complete(ctx, provider.Request{
		Stage:  provider.StageAssessment,
		Model:  o.cfg.QAModel,
		System: checkResponsePrompt,
		User:   assessmentInput(s.Query, s.Answer, previous, timestamp(o.now())),
		JSON:   true,
	})
	if verdict.OK() {
		if err := schema.Validate(schema.Assessment, verdict.Fields); err != nil {
			log.Warn("assessment reply does not match the requested shape", zap.Error(err))
		}
	}
	s.Assessment = assessmentFrom(verdict)
	assessment := s.Assessment
	log.Info("assessed",
		zap.Bool("pass", assessment.Pass),
		zap.String("raw_pass", assessment.RawPass),
		zap.String("reason", utils.Clip(assessment.Reason, 300)),
	)
	span.SetAttributes(attribute.Bool("pass", assessment.Pass))
	o.emit(s, Event{Assessment: &assessment})

	if assessment.Pass {
		o.transition(s, StateAccepted)
		return nil
	}
	s.Reason = assessment.Reason
	o.transition(s, StateRetrying)
	return nil
}

func (o *Orchestrator) transition(s *Session, next State) {
	s.State = next
	switch next {
	case StateAccepted, StateRetrying, StateDone:
		o.emit(s, Event{})
	}
}

func (o *Orchestrator) emit(s *Session, ev Event) {
	if o.observer == nil {
		return
	}
	ev.SessionID = s.ID
	ev.Iteration = s.Iterations
	ev.State = s.State
	o.observer(ev)
}

func (o *Orchestrator) result(s *Session) Result {
	return Result{
		SessionID:    s.ID,
		Answer:       s.Answer,
		Accepted:     s.Assessment.Pass,
		Iterations:   s.Iterations,
		VisitedSites: s.Visited(),
		Assessment:   s.Assessment,
	}
}
