// Package gather defines the data gathering processes that fill the local
// bar store ahead of backtests.
package gather

import (
	"context"
	"time"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one gathering pass. It returns early if ctx is cancelled.
	Run(ctx context.Context) error
}

// DateRange represents a half-open time range [Start, End) of UTC days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// LastDay returns the final day included in the range.
func (r DateRange) LastDay() time.Time {
	return r.End.AddDate(0, 0, -1)
}
