package events

import (
	"math/big"

	"adlottery/core/types"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeAdSubmitted is emitted when an advertisement joins the active set.
	TypeAdSubmitted = "ad.submitted"
	// TypeAdDeactivated is emitted when an advertiser withdraws an advertisement.
	TypeAdDeactivated = "ad.deactivated"
	// TypeAdUnsealed is emitted the first time an advertisement wins.
	TypeAdUnsealed = "ad.unsealed"
)

// AdSubmitted captures a new participant entering the registry. The content
// reference is sealed at this point and only published by AdUnsealed.
type AdSubmitted struct {
	ParticipantID string
	Advertiser    common.Address
	Stake         *big.Int
	PositionID    string
	Fee           *big.Int
	Epoch         uint64
}

// EventType satisfies the Event interface.
func (AdSubmitted) EventType() string { return TypeAdSubmitted }

// Event converts the structured payload into a broadcastable event.
func (e AdSubmitted) Event() *types.Event {
	attrs := map[string]string{
		"participant": e.ParticipantID,
		"advertiser":  formatAddress(e.Advertiser),
		"stake":       formatAmount(e.Stake),
		"position":    e.PositionID,
		"epoch":       formatUint(e.Epoch),
	}
	if e.Fee != nil && e.Fee.Sign() > 0 {
		attrs["fee"] = e.Fee.String()
	}
	return &types.Event{Type: TypeAdSubmitted, Attributes: attrs}
}

// AdDeactivated captures an advertisement leaving the active set.
type AdDeactivated struct {
	ParticipantID string
	Advertiser    common.Address
	Epoch         uint64
}

// EventType satisfies the Event interface.
func (AdDeactivated) EventType() string { return TypeAdDeactivated }

// Event converts the structured payload into a broadcastable event.
func (e AdDeactivated) Event() *types.Event {
	return &types.Event{Type: TypeAdDeactivated, Attributes: map[string]string{
		"participant": e.ParticipantID,
		"advertiser":  formatAddress(e.Advertiser),
		"epoch":       formatUint(e.Epoch),
	}}
}

// AdUnsealed captures the one-way reveal of a winning advertisement.
type AdUnsealed struct {
	ParticipantID string
	Content       string
	Epoch         uint64
}

// EventType satisfies the Event interface.
func (AdUnsealed) EventType() string { return TypeAdUnsealed }

// Event converts the structured payload into a broadcastable event.
func (e AdUnsealed) Event() *types.Event {
	return &types.Event{Type: TypeAdUnsealed, Attributes: map[string]string{
		"participant": e.ParticipantID,
		"epoch":       formatUint(e.Epoch),
	}}
}
