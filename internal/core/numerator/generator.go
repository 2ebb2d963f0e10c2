package numerator

import (
	"context"
	"time"
)

// Generator generates sequential receipt numbers.
// Implementations live in pkg/numerator (PostgreSQL) and in this package (in-memory).
type Generator interface {
	// GetNextNumber generates the next number for cfg within period.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., RCP-2026-00001)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the current sequence value (for migration of legacy receipt books).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
