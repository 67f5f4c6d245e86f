package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/gitsorted/internal/issues"
	"github.com/stacklok/gitsorted/internal/otel"
	"github.com/stacklok/gitsorted/internal/sources"
	"github.com/stacklok/gitsorted/internal/telemetry"
)

// candidate is an issue newer than the watermark, stamped with the tick time
type candidate struct {
	record   issues.Record
	url      string
	internal bool
}

// dispatchOutcome is written by exactly one dispatch goroutine
type dispatchOutcome struct {
	notified  bool
	commented bool
}

// tick carries the state of one running tick
type tick struct {
	*engine
	logger *slog.Logger
	result *Result
	span   trace.Span
}

// Tick runs one tick unless another one is in flight.
func (e *engine) Tick(ctx context.Context) (*Result, error) {
	if !e.inFlight.TryAcquire(1) {
		return nil, ErrTickInProgress
	}
	defer e.inFlight.Release(1)

	tickID := uuid.NewString()
	ctx, span := otel.StartSpan(ctx, e.tracer, "sync.Tick",
		trace.WithAttributes(
			otel.AttrTickID.String(tickID),
			otel.AttrRepository.String(e.cfg.Repository),
		),
	)
	defer span.End()

	t := &tick{
		engine: e,
		logger: slog.Default().With("tick_id", tickID, "repository", e.cfg.Repository),
		result: &Result{TickID: tickID, State: StateStart},
		span:   span,
	}

	start := e.now()
	err := t.run(ctx)
	duration := e.now().Sub(start)

	outcome := telemetry.OutcomeDone
	switch {
	case t.result.State == StateAbort:
		outcome = telemetry.OutcomeAborted
	case err != nil:
		outcome = telemetry.OutcomeCommitFailed
	}
	e.metrics.RecordTick(ctx, outcome, duration)

	span.SetAttributes(otel.AttrTickState.String(string(t.result.State)))
	otel.RecordError(span, err)

	t.logger.InfoContext(ctx, "Tick finished",
		"state", t.result.State,
		"outcome", outcome,
		"candidates", len(t.result.Batch),
		"dispatched", len(t.result.Dispatched),
		"committed", t.result.Committed,
		"duration", duration,
	)
	return t.result, err
}

func (t *tick) run(ctx context.Context) error {
	t.result.State = StateReadWatermark
	watermark, err := t.readWatermark(ctx)
	if err != nil {
		return t.abort(ctx, err)
	}
	t.result.Watermark = watermark
	t.result.TickTime = t.now().UTC()
	t.metrics.RecordWatermark(ctx, watermark)
	t.span.SetAttributes(otel.AttrWatermark.String(watermark.Format(time.RFC3339Nano)))
	t.logger.InfoContext(ctx, "Starting tick", "watermark", watermark, "tick_time", t.result.TickTime)

	t.result.State = StatePaginate
	found, err := t.collect(ctx, watermark)
	if err != nil {
		return t.abort(ctx, err)
	}

	t.result.State = StateFilter
	candidates := t.filter(found)
	t.metrics.RecordCandidates(ctx, len(candidates))
	if len(candidates) == 0 {
		t.logger.InfoContext(ctx, "No new issues", "pages", t.result.Pages)
		t.result.State = StateDone
		return nil
	}

	if err := ctx.Err(); err != nil {
		return t.abort(ctx, fmt.Errorf("tick cancelled before dispatch: %w", err))
	}

	// Side effects begin here; the commit must follow them.
	detached := context.WithoutCancel(ctx)

	t.result.State = StateDispatch
	t.dispatch(detached, candidates)

	t.result.State = StateCommit
	if err := t.commit(detached); err != nil {
		t.logger.ErrorContext(ctx, "Commit failed, candidates will be reprocessed on the next tick",
			"error", err,
			"category", issues.Category(err),
			"numbers", t.result.Batch.Numbers(),
		)
		t.result.State = StateDone
		return fmt.Errorf("commit failed: %w", err)
	}

	t.result.State = StateDone
	return nil
}

func (t *tick) abort(ctx context.Context, err error) error {
	t.result.AbortedInState = t.result.State
	t.result.State = StateAbort
	t.result.Batch = nil
	t.logger.ErrorContext(ctx, "Tick aborted",
		"state", t.result.AbortedInState,
		"error", err,
		"category", issues.Category(err),
	)
	return err
}

func (t *tick) readWatermark(ctx context.Context) (time.Time, error) {
	ctx, cancel := withTimeout(ctx, t.cfg.StoreTimeout)
	defer cancel()
	return t.deps.Watermark.ReadWatermark(ctx)
}

// collect walks pages until the first issue at or before the watermark and
// returns the newer issues in page order, each number at most once.
func (t *tick) collect(ctx context.Context, watermark time.Time) ([]issues.Summary, error) {
	var (
		found  []issues.Summary
		seen   = make(map[int]struct{})
		cursor string
	)

scan:
	for {
		page, err := t.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		t.result.Pages++

		for _, s := range page.Issues {
			if !s.CreatedAt.After(watermark) {
				break scan
			}
			if s.PullRequest && t.cfg.SkipPullRequests {
				continue
			}
			if _, dup := seen[s.Number]; dup {
				continue
			}
			seen[s.Number] = struct{}{}
			found = append(found, s)
		}

		if !page.HasNext() {
			break
		}
		cursor = page.NextCursor
	}

	t.logger.DebugContext(ctx, "Collected candidates", "count", len(found), "pages", t.result.Pages)
	return found, nil
}

func (t *tick) fetchPage(ctx context.Context, cursor string) (page sources.Page, err error) {
	ctx, span := otel.StartSpan(ctx, t.tracer, "sync.FetchPage",
		trace.WithAttributes(otel.AttrPageCursor.String(cursor)))
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	ctx, cancel := withTimeout(ctx, t.cfg.SourceTimeout)
	defer cancel()

	page, err = t.deps.Source.FetchPage(ctx, cursor)
	if err != nil {
		return page, fmt.Errorf("failed to fetch page %q: %w", cursor, err)
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(page.Issues)))
	return page, nil
}

// filter stamps every candidate with the tick time and marks internal authors.
// The batch keeps all of them.
func (t *tick) filter(found []issues.Summary) []candidate {
	candidates := make([]candidate, 0, len(found))
	batch := make(issues.Batch, 0, len(found))
	for _, s := range found {
		c := candidate{
			record:   issues.NewRecord(s, t.result.TickTime),
			url:      s.URL,
			internal: t.isInternal(s.Author),
		}
		if c.internal {
			t.result.Internal = append(t.result.Internal, s.Number)
		}
		candidates = append(candidates, c)
		batch = append(batch, c.record)
	}
	t.result.Batch = batch
	return candidates
}

// dispatch notifies and comments for every external candidate
func (t *tick) dispatch(ctx context.Context, candidates []candidate) {
	outcomes := make([]dispatchOutcome, len(candidates))

	g := new(errgroup.Group)
	g.SetLimit(t.cfg.DispatchConcurrency)
	for i, c := range candidates {
		if c.internal {
			t.logger.DebugContext(ctx, "Skipping dispatch for internal author",
				"issue", c.record.Number,
				"author", c.record.Author,
			)
			continue
		}
		g.Go(func() error {
			outcomes[i] = t.dispatchOne(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	for i, c := range candidates {
		if c.internal {
			continue
		}
		n := c.record.Number
		t.result.Dispatched = append(t.result.Dispatched, n)
		if !outcomes[i].notified {
			t.result.NotifyFailed = append(t.result.NotifyFailed, n)
		}
		if !outcomes[i].commented {
			t.result.CommentFailed = append(t.result.CommentFailed, n)
		}
	}
}

// dispatchOne makes the notify and comment attempts for one candidate.
// Neither outcome affects the other.
func (t *tick) dispatchOne(ctx context.Context, c candidate) dispatchOutcome {
	ctx, span := otel.StartSpan(ctx, t.tracer, "sync.Dispatch",
		trace.WithAttributes(
			otel.AttrIssueNumber.Int(c.record.Number),
			otel.AttrIssueAuthor.String(c.record.Author),
		),
	)
	defer span.End()

	data := issues.MessageData{
		Number: c.record.Number,
		Title:  c.record.Title,
		Author: c.record.Author,
		URL:    c.url,
	}
	logger := t.logger.With("issue", c.record.Number)

	var out dispatchOutcome

	if err := t.notify(ctx, data); err != nil {
		otel.RecordError(span, err)
		logger.WarnContext(ctx, "Failed to send notification", "error", err, "category", issues.Category(err))
	} else {
		out.notified = true
	}
	t.metrics.RecordNotification(ctx, out.notified)

	if err := t.comment(ctx, data); err != nil {
		otel.RecordError(span, err)
		logger.WarnContext(ctx, "Failed to post comment", "error", err, "category", issues.Category(err))
	} else {
		out.commented = true
	}
	t.metrics.RecordComment(ctx, out.commented)

	logger.InfoContext(ctx, "Dispatched issue", "notified", out.notified, "commented", out.commented)
	return out
}

func (t *tick) notify(ctx context.Context, data issues.MessageData) error {
	text, err := t.cfg.NotifyTemplate.Render(data)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, t.cfg.NotifyTimeout)
	defer cancel()
	return t.deps.Notifier.Send(ctx, text)
}

func (t *tick) comment(ctx context.Context, data issues.MessageData) error {
	body, err := t.cfg.CommentTemplate.Render(data)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, t.cfg.CommentTimeout)
	defer cancel()
	return t.deps.Commenter.PostComment(ctx, data.Number, body)
}

func (t *tick) commit(ctx context.Context) (err error) {
	ctx, span := otel.StartSpan(ctx, t.tracer, "sync.Commit",
		trace.WithAttributes(otel.AttrResultCount.Int(len(t.result.Batch))))
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	ctx, cancel := withTimeout(ctx, t.cfg.StoreTimeout)
	defer cancel()

	if err := t.deps.Writer.Upsert(ctx, t.result.Batch); err != nil {
		return err
	}
	t.result.Committed = true
	t.metrics.RecordUpserts(ctx, len(t.result.Batch))
	t.logger.InfoContext(ctx, "Committed batch",
		"count", len(t.result.Batch),
		"internal", len(t.result.Internal),
	)
	return nil
}
