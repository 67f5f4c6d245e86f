package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/gitsorted/internal/db"
	"github.com/stacklok/gitsorted/internal/issues"
	"github.com/stacklok/gitsorted/internal/otel"
	"github.com/stacklok/gitsorted/internal/postgrest"
)

// ServiceTracerName is the tracer name of the display service
const ServiceTracerName = "github.com/stacklok/gitsorted/service"

// lister is implemented by *db.Queries and *postgrest.Client
type lister interface {
	ListIssues(ctx context.Context) ([]issues.Record, error)
}

type options struct {
	tracer trace.Tracer
}

// Option configures the service
type Option func(*options)

// WithTracer sets the tracer for service spans
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

type storeService struct {
	store  lister
	ready  func(ctx context.Context) error
	system attribute.KeyValue
	tracer trace.Tracer
}

// NewDBService creates an IssueService over a postgres table.
func NewDBService(pool *pgxpool.Pool, table string, opts ...Option) (IssueService, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return newStoreService(db.New(pool, table), pool.Ping, semconv.DBSystemPostgreSQL, opts...), nil
}

// NewRESTService creates an IssueService over a PostgREST endpoint.
// Readiness is a one-row read of the table.
func NewRESTService(client *postgrest.Client, opts ...Option) (IssueService, error) {
	if client == nil {
		return nil, fmt.Errorf("postgrest client is required")
	}
	ready := func(ctx context.Context) error {
		_, err := client.LatestBy(ctx, db.ColumnCreatedAt, 1)
		return err
	}
	return newStoreService(client, ready, semconv.DBSystemKey.String("postgrest"), opts...), nil
}

func newStoreService(
	store lister, ready func(context.Context) error, system attribute.KeyValue, opts ...Option,
) *storeService {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return &storeService{
		store:  store,
		ready:  ready,
		system: system,
		tracer: o.tracer,
	}
}

func (s *storeService) CheckReadiness(ctx context.Context) (err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "service.CheckReadiness", trace.WithAttributes(s.system))
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	if err := s.ready(ctx); err != nil {
		return fmt.Errorf("issue store not ready: %w", err)
	}
	return nil
}

func (s *storeService) ListIssues(ctx context.Context) (records []issues.Record, err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "service.ListIssues", trace.WithAttributes(s.system))
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	records, err = s.store.ListIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(records)))
	return records, nil
}
