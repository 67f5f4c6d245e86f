package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stacklok/gitsorted/internal/app"
	"github.com/stacklok/gitsorted/internal/app/storage"
	"github.com/stacklok/gitsorted/internal/issues"
	pkgsync "github.com/stacklok/gitsorted/internal/sync"
)

// tickSummary is the JSON printed by `gitsorted tick`
type tickSummary struct {
	TickID         string    `json:"tick_id"`
	State          string    `json:"state"`
	AbortedInState string    `json:"aborted_in_state,omitempty"`
	Watermark      time.Time `json:"watermark"`
	TickTime       time.Time `json:"tick_time"`
	Pages          int       `json:"pages"`
	Candidates     []int     `json:"candidates"`
	Internal       []int     `json:"internal"`
	Dispatched     []int     `json:"dispatched"`
	NotifyFailed   []int     `json:"notify_failed,omitempty"`
	CommentFailed  []int     `json:"comment_failed,omitempty"`
	Committed      bool      `json:"committed"`
	Error          string    `json:"error,omitempty"`
	ErrorCategory  string    `json:"error_category,omitempty"`
}

func newTickSummary(res *pkgsync.Result, tickErr error) tickSummary {
	s := tickSummary{
		TickID:         res.TickID,
		State:          string(res.State),
		AbortedInState: string(res.AbortedInState),
		Watermark:      res.Watermark,
		TickTime:       res.TickTime,
		Pages:          res.Pages,
		Candidates:     res.Batch.Numbers(),
		Internal:       res.Internal,
		Dispatched:     res.Dispatched,
		NotifyFailed:   res.NotifyFailed,
		CommentFailed:  res.CommentFailed,
		Committed:      res.Committed,
	}
	if tickErr != nil {
		s.Error = tickErr.Error()
		s.ErrorCategory = issues.Category(tickErr)
	}
	return s
}

func newTickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run a single tick and print what it did",
		Long: `Run one synchronization tick outside the scheduler: read the watermark, list new
issues, notify and comment for external authors, and upsert the batch. The outcome
is printed as JSON. The command fails when the tick aborts or its commit fails.`,
		RunE: runTick,
	}
}

func runTick(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	factory, err := storage.NewStorageFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage factory: %w", err)
	}
	defer factory.Cleanup()

	engine, err := app.NewEngine(ctx, cfg, factory)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	res, tickErr := engine.Tick(ctx)
	if res == nil {
		if tickErr == nil {
			tickErr = errors.New("tick returned no result")
		}
		return tickErr
	}

	out, err := json.MarshalIndent(newTickSummary(res, tickErr), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tick result: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(out)); err != nil {
		return err
	}
	return tickErr
}
