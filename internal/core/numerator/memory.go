package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryGenerator keeps sequences in process memory.
// Used by tests and by the memory storage driver; numbers restart with the process.
type InMemoryGenerator struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewInMemoryGenerator creates an empty generator.
func NewInMemoryGenerator() *InMemoryGenerator {
	return &InMemoryGenerator{values: make(map[string]int64)}
}

// GetNextNumber implements Generator.
func (g *InMemoryGenerator) GetNextNumber(_ context.Context, cfg Config, _ *Options, period time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := SequenceKey(cfg, period)
	g.values[key]++
	return Format(cfg, period, g.values[key]), nil
}

// SetNextNumber implements Generator.
func (g *InMemoryGenerator) SetNextNumber(_ context.Context, cfg Config, period time.Time, value int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[SequenceKey(cfg, period)] = value
	return nil
}

// SequenceKey builds the storage key of the sequence that cfg resets on.
func SequenceKey(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// Format renders num according to cfg.
func Format(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}
	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

var _ Generator = (*InMemoryGenerator)(nil)
