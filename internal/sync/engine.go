package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/stacklok/gitsorted/internal/issues"
	"github.com/stacklok/gitsorted/internal/notify"
	"github.com/stacklok/gitsorted/internal/sources"
	"github.com/stacklok/gitsorted/internal/sync/state"
	"github.com/stacklok/gitsorted/internal/sync/writer"
	"github.com/stacklok/gitsorted/internal/telemetry"
)

// EngineTracerName is the tracer name of tick spans
const EngineTracerName = "github.com/stacklok/gitsorted/sync"

// ErrTickInProgress is returned by Tick while another tick is running.
var ErrTickInProgress = errors.New("tick already in progress")

// State is a step of the tick state machine.
type State string

// Tick states
const (
	StateStart         State = "START"
	StateReadWatermark State = "READ_WATERMARK"
	StatePaginate      State = "PAGINATE"
	StateFilter        State = "FILTER"
	StateDispatch      State = "DISPATCH"
	StateCommit        State = "COMMIT"
	StateDone          State = "DONE"
	StateAbort         State = "ABORT"
)

// Result describes what one tick did.
type Result struct {
	TickID string
	// State is DONE or ABORT once Tick returns
	State State
	// Watermark is the W the tick compared against
	Watermark time.Time
	// TickTime is the last_processed stamp shared by the whole batch
	TickTime time.Time
	Pages    int
	Batch    issues.Batch
	// Internal holds the numbers of candidates persisted without dispatch
	Internal []int
	// Dispatched holds the numbers of external candidates, notified or not
	Dispatched     []int
	NotifyFailed   []int
	CommentFailed  []int
	Committed      bool
	// AbortedInState is the state the tick was in when it aborted
	AbortedInState State
}

// Engine runs synchronization ticks.
//
//go:generate mockgen -destination=mocks/mock_engine.go -package=mocks -source=engine.go Engine
type Engine interface {
	// Tick runs one tick. An error means the tick aborted or its commit failed;
	// the Result still describes how far it got. ErrTickInProgress comes with a nil Result.
	Tick(ctx context.Context) (*Result, error)
}

// Dependencies are the collaborators of the engine.
type Dependencies struct {
	Watermark state.WatermarkReader
	Source    sources.IssueSource
	Commenter sources.Commenter
	Notifier  notify.Notifier
	Writer    writer.IssueWriter
}

// Option configures the engine
type Option func(*engine)

// WithClock replaces the clock used for the tick time
func WithClock(now func() time.Time) Option {
	return func(e *engine) {
		e.now = now
	}
}

// WithSyncMetrics sets the sync metrics for the engine
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(e *engine) {
		e.metrics = metrics
	}
}

// WithTracer sets the tracer used for tick spans
func WithTracer(tracer trace.Tracer) Option {
	return func(e *engine) {
		e.tracer = tracer
	}
}

type engine struct {
	deps     Dependencies
	cfg      Config
	internal map[string]struct{}
	inFlight *semaphore.Weighted

	now     func() time.Time
	metrics *telemetry.SyncMetrics
	tracer  trace.Tracer
}

// NewEngine creates an Engine.
func NewEngine(deps Dependencies, cfg Config, opts ...Option) (Engine, error) {
	switch {
	case deps.Watermark == nil:
		return nil, fmt.Errorf("watermark reader is required")
	case deps.Source == nil:
		return nil, fmt.Errorf("issue source is required")
	case deps.Commenter == nil:
		return nil, fmt.Errorf("commenter is required")
	case deps.Notifier == nil:
		return nil, fmt.Errorf("notifier is required")
	case deps.Writer == nil:
		return nil, fmt.Errorf("issue writer is required")
	case cfg.NotifyTemplate == nil || cfg.CommentTemplate == nil:
		return nil, fmt.Errorf("notify and comment templates are required")
	}

	if cfg.DispatchConcurrency < 1 {
		cfg.DispatchConcurrency = 1
	}

	internal := make(map[string]struct{}, len(cfg.InternalAuthors))
	for _, a := range cfg.InternalAuthors {
		internal[strings.ToLower(a)] = struct{}{}
	}

	e := &engine{
		deps:     deps,
		cfg:      cfg,
		internal: internal,
		inFlight: semaphore.NewWeighted(1),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// isInternal reports whether author is on the internal authors allowlist.
// Handles compare case-insensitively.
func (e *engine) isInternal(author string) bool {
	_, ok := e.internal[strings.ToLower(author)]
	return ok
}

// withTimeout bounds ctx by d; a non-positive d leaves it unbounded
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
