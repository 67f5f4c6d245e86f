package storage

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/gitsorted/internal/config"
	"github.com/stacklok/gitsorted/internal/httpclient"
	"github.com/stacklok/gitsorted/internal/postgrest"
	"github.com/stacklok/gitsorted/internal/service"
	"github.com/stacklok/gitsorted/internal/sync/state"
	"github.com/stacklok/gitsorted/internal/sync/writer"
)

// RESTFactory creates PostgREST-backed storage components.
type RESTFactory struct {
	config *config.Config
	client *postgrest.Client
	tracer trace.Tracer
}

var _ Factory = (*RESTFactory)(nil)

// NewRESTFactory creates the PostgREST client shared by every component.
func NewRESTFactory(cfg *config.Config, opts ...Option) (*RESTFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	slog.Info("Creating PostgREST-backed storage factory")
	client := postgrest.NewClient(
		httpclient.NewDefaultClient(cfg.Store.Timeout),
		cfg.Store.URL,
		cfg.Store.APIKey,
		cfg.Store.Table,
	)

	return &RESTFactory{
		config: cfg,
		client: client,
		tracer: applyOptions(opts).tracer,
	}, nil
}

// CreateWatermarkReader creates a PostgREST watermark reader.
func (f *RESTFactory) CreateWatermarkReader(_ context.Context) (state.WatermarkReader, error) {
	bootstrap, err := f.config.GetBootstrapWatermark()
	if err != nil {
		return nil, err
	}
	return state.NewRESTWatermarkReader(f.client, watermarkColumn(f.config), bootstrap)
}

// CreateIssueWriter creates a PostgREST issue writer.
func (f *RESTFactory) CreateIssueWriter(_ context.Context) (writer.IssueWriter, error) {
	return writer.NewRESTIssueWriter(f.client)
}

// CreateIssueService creates the PostgREST display service.
func (f *RESTFactory) CreateIssueService(_ context.Context) (service.IssueService, error) {
	var opts []service.Option
	if f.tracer != nil {
		opts = append(opts, service.WithTracer(f.tracer))
	}
	return service.NewRESTService(f.client, opts...)
}

// Cleanup is a no-op; the HTTP client holds no resources that need closing.
func (*RESTFactory) Cleanup() {}
