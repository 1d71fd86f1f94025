package events

import (
	"math/big"

	"adlottery/core/types"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeVoteCast is emitted when a voter backs a participant.
	TypeVoteCast = "vote.cast"
	// TypeVoteRewardClaimed is emitted when a voting reward is credited.
	TypeVoteRewardClaimed = "vote.rewardClaimed"
	// TypeVoteRewardsDistributed is emitted when the per-vote rate is set.
	TypeVoteRewardsDistributed = "vote.rewardsDistributed"
)

// VoteCast captures a ballot and the power snapshotted for it.
type VoteCast struct {
	VoteID        string
	Voter         common.Address
	ParticipantID string
	PositionID    string
	Power         *big.Int
	Epoch         uint64
	EpochTotal    *big.Int
}

// EventType satisfies the Event interface.
func (VoteCast) EventType() string { return TypeVoteCast }

// Event converts the structured payload into a broadcastable event.
func (e VoteCast) Event() *types.Event {
	return &types.Event{Type: TypeVoteCast, Attributes: map[string]string{
		"vote":        e.VoteID,
		"voter":       formatAddress(e.Voter),
		"participant": e.ParticipantID,
		"position":    e.PositionID,
		"power":       formatAmount(e.Power),
		"epoch":       formatUint(e.Epoch),
		"epochTotal":  formatAmount(e.EpochTotal),
	}}
}

// VoteRewardClaimed captures a voting reward credited to the voter's position.
type VoteRewardClaimed struct {
	VoteID     string
	Voter      common.Address
	PositionID string
	Reward     *big.Int
	Epoch      uint64
}

// EventType satisfies the Event interface.
func (VoteRewardClaimed) EventType() string { return TypeVoteRewardClaimed }

// Event converts the structured payload into a broadcastable event.
func (e VoteRewardClaimed) Event() *types.Event {
	return &types.Event{Type: TypeVoteRewardClaimed, Attributes: map[string]string{
		"vote":     e.VoteID,
		"voter":    formatAddress(e.Voter),
		"position": e.PositionID,
		"reward":   formatAmount(e.Reward),
		"epoch":    formatUint(e.Epoch),
	}}
}

// VoteRewardsDistributed captures the reward rate assigned to an epoch.
type VoteRewardsDistributed struct {
	Epoch         uint64
	PoolAmount    *big.Int
	TotalVotes    *big.Int
	RewardPerVote *big.Int
}

// EventType satisfies the Event interface.
func (VoteRewardsDistributed) EventType() string { return TypeVoteRewardsDistributed }

// Event converts the structured payload into a broadcastable event.
func (e VoteRewardsDistributed) Event() *types.Event {
	return &types.Event{Type: TypeVoteRewardsDistributed, Attributes: map[string]string{
		"epoch":         formatUint(e.Epoch),
		"pool":          formatAmount(e.PoolAmount),
		"totalVotes":    formatAmount(e.TotalVotes),
		"rewardPerVote": formatAmount(e.RewardPerVote),
	}}
}
