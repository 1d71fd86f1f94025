package epoch

import "fmt"

// DayMs is the length of a calendar day in milliseconds.
const DayMs uint64 = 86_400_000

// Config describes how wall-clock time is bucketed into yield epochs.
type Config struct {
	// LengthMs is the number of milliseconds that make up a single epoch.
	// The value must be greater than zero.
	LengthMs uint64
}

// DefaultConfig returns one-day epochs.
func DefaultConfig() Config {
	return Config{LengthMs: DayMs}
}

// Validate ensures the configuration is self-consistent.
func (c Config) Validate() error {
	if c.LengthMs == 0 {
		return fmt.Errorf("epoch length must be greater than zero")
	}
	return nil
}

// Of returns the epoch containing the supplied Unix millisecond timestamp.
// Negative timestamps map to epoch zero.
func (c Config) Of(tsMs int64) uint64 {
	if tsMs <= 0 {
		return 0
	}
	length := c.LengthMs
	if length == 0 {
		length = DayMs
	}
	return uint64(tsMs) / length
}

// Start returns the first millisecond of the supplied epoch.
func (c Config) Start(epoch uint64) int64 {
	length := c.LengthMs
	if length == 0 {
		length = DayMs
	}
	return int64(epoch * length)
}
