package lottery

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Strategy selects how PickWinner chooses among active participants.
type Strategy string

const (
	// StrategyRandom draws a uniformly random index into the active set.
	StrategyRandom Strategy = "random"
	// StrategyVotes picks the participant with the highest tally for the
	// current epoch. The earliest active participant wins ties.
	StrategyVotes Strategy = "votes"
)

// ParseStrategy normalises a configured strategy name. Empty selects random.
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StrategyRandom:
		return StrategyRandom, nil
	case StrategyVotes:
		return StrategyVotes, nil
	default:
		return "", fmt.Errorf("lottery: unknown strategy %q", raw)
	}
}

// ConfigParams are supplied once when the coordinator is created.
type ConfigParams struct {
	Strategy Strategy
	// VotingWindowMs limits how long after an epoch starts votes are accepted.
	// Zero keeps voting open for the whole epoch.
	VotingWindowMs uint64
	// DrawIntervalMs is the minimum spacing between two draws. Zero disables
	// the guard.
	DrawIntervalMs uint64
}

// Config is the coordinator singleton.
type Config struct {
	Admin                   common.Address
	Strategy                Strategy
	CurrentEpoch            uint64
	EpochStartedAt          uint64
	VotingWindowMs          uint64
	DrawIntervalMs          uint64
	LastDrawTime            uint64
	PendingWinnerID         string
	PendingEpoch            uint64
	LatestConfirmedWinnerID string
	LatestConfirmedEpoch    uint64
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// HasPending reports whether a drawn winner awaits confirmation.
func (c *Config) HasPending() bool {
	return c != nil && c.PendingWinnerID != ""
}

// Phase names the state machine position of the coordinator.
func (c *Config) Phase() string {
	if c.HasPending() {
		return "pending"
	}
	return "idle"
}

// PastWinner archives a confirmed winner.
type PastWinner struct {
	Epoch     uint64
	WinnerID  string
	Timestamp uint64
}
