package events

import (
	"adlottery/core/types"
)

const (
	// TypeLotteryWinnerPicked is emitted when a candidate becomes the pending winner.
	TypeLotteryWinnerPicked = "lottery.winnerPicked"
	// TypeLotteryEpochFinalized signals that the pending winner was confirmed
	// and the epoch counter advanced.
	TypeLotteryEpochFinalized = "lottery.epochFinalized"
)

// WinnerPicked captures the first phase of the two-phase draw.
type WinnerPicked struct {
	Epoch         uint64
	ParticipantID string
	Strategy      string
	Candidates    int
	DrawnAt       int64
}

// EventType implements the Event interface.
func (WinnerPicked) EventType() string { return TypeLotteryWinnerPicked }

// Event converts the struct into a types.Event payload.
func (e WinnerPicked) Event() *types.Event {
	return &types.Event{Type: TypeLotteryWinnerPicked, Attributes: map[string]string{
		"epoch":       formatUint(e.Epoch),
		"participant": e.ParticipantID,
		"strategy":    e.Strategy,
		"candidates":  formatInt(int64(e.Candidates)),
		"drawnAt":     formatInt(e.DrawnAt),
	}}
}

// EpochFinalized signals that an epoch boundary has been reached and the
// pending winner has been confirmed.
type EpochFinalized struct {
	Epoch         uint64
	NextEpoch     uint64
	ParticipantID string
	FinalizedAt   int64
}

// EventType implements the Event interface.
func (EpochFinalized) EventType() string { return TypeLotteryEpochFinalized }

// Event converts the struct into a types.Event payload.
func (e EpochFinalized) Event() *types.Event {
	return &types.Event{Type: TypeLotteryEpochFinalized, Attributes: map[string]string{
		"epoch":       formatUint(e.Epoch),
		"nextEpoch":   formatUint(e.NextEpoch),
		"participant": e.ParticipantID,
		"finalizedAt": formatInt(e.FinalizedAt),
	}}
}
