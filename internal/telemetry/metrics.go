package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetricsMeterName is the meter scope for tick instruments
const SyncMetricsMeterName = "github.com/stacklok/gitsorted/sync"

// Tick outcomes used as the "outcome" attribute.
const (
	OutcomeDone         = "done"
	OutcomeAborted      = "aborted"
	OutcomeCommitFailed = "commit_failed"
	OutcomeSkipped      = "skipped"
)

// SyncMetrics holds the instruments recorded by the issue sync engine and its scheduler.
// A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	tickDuration  metric.Float64Histogram
	candidates    metric.Int64Counter
	notifications metric.Int64Counter
	comments      metric.Int64Counter
	upserts       metric.Int64Counter
	watermark     metric.Int64Gauge
}

// NewSyncMetrics creates the instruments. A nil provider returns nil metrics.
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	tickDuration, err := meter.Float64Histogram(
		"gitsorted_tick_duration_seconds",
		metric.WithDescription("Duration of sync ticks in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	candidates, err := meter.Int64Counter(
		"gitsorted_candidates_total",
		metric.WithDescription("Issues newer than the watermark seen by ticks"),
	)
	if err != nil {
		return nil, err
	}

	notifications, err := meter.Int64Counter(
		"gitsorted_notifications_total",
		metric.WithDescription("Chat notifications attempted, by result"),
	)
	if err != nil {
		return nil, err
	}

	comments, err := meter.Int64Counter(
		"gitsorted_comments_total",
		metric.WithDescription("Tracker comments attempted, by result"),
	)
	if err != nil {
		return nil, err
	}

	upserts, err := meter.Int64Counter(
		"gitsorted_upserted_records_total",
		metric.WithDescription("Issue records written to the store"),
	)
	if err != nil {
		return nil, err
	}

	watermark, err := meter.Int64Gauge(
		"gitsorted_watermark_timestamp_seconds",
		metric.WithDescription("Watermark read at the start of the last tick, as Unix seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		tickDuration:  tickDuration,
		candidates:    candidates,
		notifications: notifications,
		comments:      comments,
		upserts:       upserts,
		watermark:     watermark,
	}, nil
}

// RecordTick records how long a tick took and how it ended.
func (m *SyncMetrics) RecordTick(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordCandidates adds the number of candidates a tick collected.
func (m *SyncMetrics) RecordCandidates(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.candidates.Add(ctx, int64(n))
}

// RecordNotification counts one chat notification attempt.
func (m *SyncMetrics) RecordNotification(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordComment counts one tracker comment attempt.
func (m *SyncMetrics) RecordComment(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.comments.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordUpserts adds the number of records committed.
func (m *SyncMetrics) RecordUpserts(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.upserts.Add(ctx, int64(n))
}

// RecordWatermark sets the watermark gauge.
func (m *SyncMetrics) RecordWatermark(ctx context.Context, w time.Time) {
	if m == nil {
		return
	}
	m.watermark.Record(ctx, w.Unix())
}
