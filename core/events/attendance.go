package events

import (
	"math/big"

	"adlottery/core/types"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeAttendanceRegistered is emitted whenever an attendance registration is accepted.
	TypeAttendanceRegistered = "attendance.registered"
	// TypeAttendanceRewardPaid is emitted for every payout drawn during a rotation.
	TypeAttendanceRewardPaid = "attendance.rewardPaid"
	// TypeAttendanceSessionRotated is emitted when the session moves to a new generation.
	TypeAttendanceSessionRotated = "attendance.sessionRotated"
)

// AttendanceRegistered captures a processed attendance registration.
type AttendanceRegistered struct {
	Address       common.Address
	ParticipantID string
	Generation    uint64
	Index         uint64
}

// EventType implements the Event interface.
func (AttendanceRegistered) EventType() string { return TypeAttendanceRegistered }

// Event converts the registration into the generic event representation.
func (e AttendanceRegistered) Event() *types.Event {
	return &types.Event{Type: TypeAttendanceRegistered, Attributes: map[string]string{
		"address":     formatAddress(e.Address),
		"participant": e.ParticipantID,
		"generation":  formatUint(e.Generation),
		"index":       formatUint(e.Index),
	}}
}

// AttendanceRewardPaid captures one payout draw.
type AttendanceRewardPaid struct {
	Address    common.Address
	Generation uint64
	Index      uint64
	Draw       uint64
	Amount     *big.Int
}

// EventType implements the Event interface.
func (AttendanceRewardPaid) EventType() string { return TypeAttendanceRewardPaid }

// Event converts the payout into the generic event representation.
func (e AttendanceRewardPaid) Event() *types.Event {
	return &types.Event{Type: TypeAttendanceRewardPaid, Attributes: map[string]string{
		"address":    formatAddress(e.Address),
		"generation": formatUint(e.Generation),
		"index":      formatUint(e.Index),
		"draw":       formatUint(e.Draw),
		"amount":     formatAmount(e.Amount),
	}}
}

// AttendanceSessionRotated captures a generation change.
type AttendanceSessionRotated struct {
	PreviousParticipantID string
	ParticipantID         string
	Generation            uint64
	Viewers               uint64
	Payouts               uint64
	TotalPaid             *big.Int
}

// EventType implements the Event interface.
func (AttendanceSessionRotated) EventType() string { return TypeAttendanceSessionRotated }

// Event converts the rotation into the generic event representation.
func (e AttendanceSessionRotated) Event() *types.Event {
	attrs := map[string]string{
		"participant": e.ParticipantID,
		"generation":  formatUint(e.Generation),
		"viewers":     formatUint(e.Viewers),
		"payouts":     formatUint(e.Payouts),
		"totalPaid":   formatAmount(e.TotalPaid),
	}
	if e.PreviousParticipantID != "" {
		attrs["previous"] = e.PreviousParticipantID
	}
	return &types.Event{Type: TypeAttendanceSessionRotated, Attributes: attrs}
}
