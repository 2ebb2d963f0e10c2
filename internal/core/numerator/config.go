// Package numerator provides domain contracts for receipt auto-numbering.
package numerator

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict issues every number with one UPSERT ... RETURNING.
	// Gapless; required when receipts are fiscal documents.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges of numbers in memory.
	// Faster under load, may leave gaps after a restart.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached. Default 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{
		Strategy: StrategyStrict,
	}
}

// ParseStrategy maps a configuration string to a Strategy; unknown values fall back to strict.
func ParseStrategy(s string) Strategy {
	if s == "cached" {
		return StrategyCached
	}
	return StrategyStrict
}

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g. "RCP")
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns yearly-reset receipts such as RCP-2026-00042.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}
