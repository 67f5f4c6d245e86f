package otel

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/gitsorted/internal/issues"
)

func recordingTracer(t *testing.T) (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, tp
}

func attrValue(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartSpan_NilTracerKeepsParent(t *testing.T) {
	t.Parallel()

	exporter, tp := recordingTracer(t)
	parentCtx, parent := tp.Tracer("test").Start(context.Background(), "sync.Tick")

	ctx, span := StartSpan(parentCtx, nil, "sync.Dispatch")
	assert.Equal(t, parentCtx, ctx)
	assert.Equal(t, parent.SpanContext(), span.SpanContext())

	parent.End()
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "sync.Tick", spans[0].Name)
}

func TestStartSpan_NoParentNoTracer(t *testing.T) {
	t.Parallel()

	_, span := StartSpan(context.Background(), nil, "sync.Tick")
	require.NotNil(t, span)
	assert.False(t, span.SpanContext().IsValid())
	assert.NotPanics(t, func() { span.End() })
}

func TestStartSpan_ChildCarriesAttributes(t *testing.T) {
	t.Parallel()

	exporter, tp := recordingTracer(t)
	tracer := tp.Tracer("test")

	rootCtx, root := tracer.Start(context.Background(), "sync.Tick")
	_, child := StartSpan(rootCtx, tracer, "sync.Notify",
		trace.WithAttributes(AttrIssueNumber.Int(12), AttrIssueAuthor.String("octocat")),
	)
	child.End()
	root.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	notify := spans[0]
	assert.Equal(t, "sync.Notify", notify.Name)
	assert.Equal(t, root.SpanContext().SpanID(), notify.Parent.SpanID())

	number, ok := attrValue(notify.Attributes, AttrIssueNumber)
	require.True(t, ok)
	assert.EqualValues(t, 12, number.AsInt64())
	author, ok := attrValue(notify.Attributes, AttrIssueAuthor)
	require.True(t, ok)
	assert.Equal(t, "octocat", author.AsString())
}

func TestRecordError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		err          error
		wantStatus   codes.Code
		wantCategory string
	}{
		{name: "nil error", err: nil, wantStatus: codes.Unset},
		{
			name:         "persistence",
			err:          fmt.Errorf("%w: upsert: %w", issues.ErrPersistence, errors.New("connection reset")),
			wantStatus:   codes.Error,
			wantCategory: "persistence",
		},
		{
			name:         "auth",
			err:          fmt.Errorf("%w: bad credentials", issues.ErrAuth),
			wantStatus:   codes.Error,
			wantCategory: "auth",
		},
		{
			name:         "unclassified",
			err:          errors.New("boom"),
			wantStatus:   codes.Error,
			wantCategory: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exporter, tp := recordingTracer(t)
			_, span := tp.Tracer("test").Start(context.Background(), "store.Upsert")
			RecordError(span, tt.err)
			span.End()

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			got := spans[0]
			assert.Equal(t, tt.wantStatus, got.Status.Code)

			category, ok := attrValue(got.Attributes, AttrErrorCategory)
			if tt.wantCategory == "" {
				assert.False(t, ok)
				assert.Empty(t, got.Events)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantCategory, category.AsString())
			assert.Equal(t, "operation failed", got.Status.Description)
			require.Len(t, got.Events, 1)
			assert.Equal(t, "exception", got.Events[0].Name)
		})
	}
}

func TestRecordError_NilSpan(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { RecordError(nil, issues.ErrParse) })
}
