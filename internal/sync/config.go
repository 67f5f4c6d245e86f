package sync

import (
	"fmt"
	"time"

	"github.com/stacklok/gitsorted/internal/config"
	"github.com/stacklok/gitsorted/internal/issues"
)

// Config holds the engine settings resolved at startup.
type Config struct {
	// Repository is "owner/name", used in logs and spans
	Repository string

	InternalAuthors     []string
	SkipPullRequests    bool
	DispatchConcurrency int

	NotifyTemplate  *issues.MessageTemplate
	CommentTemplate *issues.MessageTemplate

	SourceTimeout  time.Duration
	NotifyTimeout  time.Duration
	CommentTimeout time.Duration
	StoreTimeout   time.Duration
}

// NewConfig builds the engine settings from the service configuration.
func NewConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config cannot be nil")
	}

	notifyTmpl, err := issues.ParseMessageTemplate("notify", cfg.Notify.Template)
	if err != nil {
		return Config{}, err
	}
	commentTmpl, err := issues.ParseMessageTemplate("comment", cfg.Comment.Template)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Repository:          cfg.Repository.Owner + "/" + cfg.Repository.Name,
		InternalAuthors:     cfg.Sync.InternalAuthors,
		SkipPullRequests:    cfg.Source.SkipPullRequests,
		DispatchConcurrency: cfg.Sync.DispatchConcurrency,
		NotifyTemplate:      notifyTmpl,
		CommentTemplate:     commentTmpl,
		SourceTimeout:       cfg.Source.Timeout,
		NotifyTimeout:       cfg.Notify.Timeout,
		CommentTimeout:      cfg.Comment.Timeout,
		StoreTimeout:        cfg.Store.Timeout,
	}, nil
}
