package app

import (
	"github.com/gofrs/flock"

	"github.com/stacklok/gitsorted/internal/service"
	"github.com/stacklok/gitsorted/internal/sync/coordinator"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// SyncCoordinator drives ticks on the configured interval
	SyncCoordinator coordinator.Coordinator

	// IssueService serves the display endpoints
	IssueService service.IssueService

	// Lock is the single-scheduler lock file, when configured
	Lock *flock.Flock
}
