// Package state determines the watermark of the issue store: the timestamp
// boundary of the last synchronized issue.
package state

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_watermark_reader.go -package=mocks -source=service.go WatermarkReader

// WatermarkReader reads the watermark at the start of a tick.
type WatermarkReader interface {
	// ReadWatermark returns the greatest value of the watermark column across
	// stored records. An empty store yields the configured bootstrap watermark.
	// An answer with more than one row is an issues.ErrDataInvariant error.
	ReadWatermark(ctx context.Context) (time.Time, error)
}
