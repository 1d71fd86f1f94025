package events

import (
	"math/big"

	"adlottery/core/types"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeStakePoolCreated is emitted once when the staking pool is initialised.
	TypeStakePoolCreated = "stake.poolCreated"
	// TypeStakeOpened captures a new stake position.
	TypeStakeOpened = "stake.opened"
	// TypeStakeClosed captures a position being unstaked and paid out.
	TypeStakeClosed = "stake.closed"
	// TypeStakeRewardsClaimed is emitted when accrued yield and credits are paid.
	TypeStakeRewardsClaimed = "stake.rewardsClaimed"
	// TypeStakeYieldCredited is emitted when a reward is credited to a position.
	TypeStakeYieldCredited = "stake.yieldCredited"
	// TypeStakeAPYUpdated is emitted when the pool admin changes the rate.
	TypeStakeAPYUpdated = "stake.apyUpdated"
)

// StakePoolCreated records the pool parameters at creation.
type StakePoolCreated struct {
	Admin      common.Address
	APYRateBps uint64
	MinStake   *big.Int
	MaxStake   *big.Int
}

// EventType satisfies the Event interface.
func (StakePoolCreated) EventType() string { return TypeStakePoolCreated }

// Event converts the structured payload into a broadcastable event.
func (e StakePoolCreated) Event() *types.Event {
	return &types.Event{Type: TypeStakePoolCreated, Attributes: map[string]string{
		"admin":    formatAddress(e.Admin),
		"apyBps":   formatUint(e.APYRateBps),
		"minStake": formatAmount(e.MinStake),
		"maxStake": formatAmount(e.MaxStake),
	}}
}

// StakeOpened captures a newly created position.
type StakeOpened struct {
	PositionID    string
	Owner         common.Address
	Amount        *big.Int
	ParticipantID string
	Epoch         uint64
	TotalStaked   *big.Int
}

// EventType satisfies the Event interface.
func (StakeOpened) EventType() string { return TypeStakeOpened }

// Event converts the structured payload into a broadcastable event.
func (e StakeOpened) Event() *types.Event {
	attrs := map[string]string{
		"position":    e.PositionID,
		"owner":       formatAddress(e.Owner),
		"amount":      formatAmount(e.Amount),
		"epoch":       formatUint(e.Epoch),
		"totalStaked": formatAmount(e.TotalStaked),
	}
	if e.ParticipantID != "" {
		attrs["participant"] = e.ParticipantID
	}
	return &types.Event{Type: TypeStakeOpened, Attributes: attrs}
}

// StakeClosed captures the payout of an unstaked position.
type StakeClosed struct {
	PositionID  string
	Owner       common.Address
	Principal   *big.Int
	Yield       *big.Int
	Credited    *big.Int
	Epoch       uint64
	TotalStaked *big.Int
}

// EventType satisfies the Event interface.
func (StakeClosed) EventType() string { return TypeStakeClosed }

// Event converts the structured payload into a broadcastable event.
func (e StakeClosed) Event() *types.Event {
	return &types.Event{Type: TypeStakeClosed, Attributes: map[string]string{
		"position":    e.PositionID,
		"owner":       formatAddress(e.Owner),
		"principal":   formatAmount(e.Principal),
		"yield":       formatAmount(e.Yield),
		"credited":    formatAmount(e.Credited),
		"epoch":       formatUint(e.Epoch),
		"totalStaked": formatAmount(e.TotalStaked),
	}}
}

// StakeRewardsClaimed captures a reward claim against a live position.
type StakeRewardsClaimed struct {
	PositionID string
	Owner      common.Address
	Yield      *big.Int
	Credited   *big.Int
	Epoch      uint64
}

// EventType satisfies the Event interface.
func (StakeRewardsClaimed) EventType() string { return TypeStakeRewardsClaimed }

// Event converts the structured payload into a broadcastable event.
func (e StakeRewardsClaimed) Event() *types.Event {
	paid := new(big.Int)
	if e.Yield != nil {
		paid.Add(paid, e.Yield)
	}
	if e.Credited != nil {
		paid.Add(paid, e.Credited)
	}
	return &types.Event{Type: TypeStakeRewardsClaimed, Attributes: map[string]string{
		"position": e.PositionID,
		"owner":    formatAddress(e.Owner),
		"yield":    formatAmount(e.Yield),
		"credited": formatAmount(e.Credited),
		"paid":     paid.String(),
		"epoch":    formatUint(e.Epoch),
	}}
}

// StakeYieldCredited captures an out-of-band credit such as a voting reward.
type StakeYieldCredited struct {
	PositionID     string
	Amount         *big.Int
	Claimable      *big.Int
	LastClaimEpoch uint64
}

// EventType satisfies the Event interface.
func (StakeYieldCredited) EventType() string { return TypeStakeYieldCredited }

// Event converts the structured payload into a broadcastable event.
func (e StakeYieldCredited) Event() *types.Event {
	return &types.Event{Type: TypeStakeYieldCredited, Attributes: map[string]string{
		"position":       e.PositionID,
		"amount":         formatAmount(e.Amount),
		"claimable":      formatAmount(e.Claimable),
		"lastClaimEpoch": formatUint(e.LastClaimEpoch),
	}}
}

// StakeAPYUpdated captures an admin rate change.
type StakeAPYUpdated struct {
	Previous uint64
	Current  uint64
}

// EventType satisfies the Event interface.
func (StakeAPYUpdated) EventType() string { return TypeStakeAPYUpdated }

// Event converts the structured payload into a broadcastable event.
func (e StakeAPYUpdated) Event() *types.Event {
	return &types.Event{Type: TypeStakeAPYUpdated, Attributes: map[string]string{
		"previousBps": formatUint(e.Previous),
		"apyBps":      formatUint(e.Current),
	}}
}
