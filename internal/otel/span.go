// Package otel holds span helpers and attribute keys shared by the sync engine
// and the stores.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/gitsorted/internal/issues"
)

// Attribute keys used on tick and dispatch spans.
const (
	AttrTickID        = attribute.Key("tick.id")
	AttrRepository    = attribute.Key("repository")
	AttrWatermark     = attribute.Key("tick.watermark")
	AttrIssueNumber   = attribute.Key("issue.number")
	AttrIssueAuthor   = attribute.Key("issue.author")
	AttrPageCursor    = attribute.Key("pagination.cursor")
	AttrResultCount   = attribute.Key("result.count")
	AttrTickState     = attribute.Key("tick.state")
	AttrErrorCategory = attribute.Key("error.category")
)

// StartSpan starts a span, or returns the span already in ctx when tracer is nil.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on the span with its error category.
// The status description stays generic; store errors can carry connection details.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetAttributes(AttrErrorCategory.String(issues.Category(err)))
		span.SetStatus(codes.Error, "operation failed")
	}
}
