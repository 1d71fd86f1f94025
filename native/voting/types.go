package voting

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RewardScale is the fixed-point scale applied to RewardPerVote.
const RewardScale = 10_000

// Vote is an immutable record of a cast vote. Only RewardClaimed changes after
// creation, and only from false to true.
type Vote struct {
	ID                    string
	Voter                 common.Address
	ParticipantID         string
	LinkedStakePositionID string
	VotingPower           *big.Int
	Epoch                 uint64
	RewardClaimed         bool
	CastAt                uint64
}

// Clone returns a deep copy of the vote.
func (v *Vote) Clone() *Vote {
	if v == nil {
		return nil
	}
	clone := *v
	clone.VotingPower = copyAmount(v.VotingPower)
	return &clone
}

// Record aggregates the votes of a single lottery epoch.
type Record struct {
	Epoch      uint64
	TotalVotes *big.Int
	Voters     []common.Address
	// RewardPerVote is scaled by RewardScale.
	RewardPerVote *big.Int
	RewardPool    *big.Int
}

// NewRecord returns an empty record for epoch.
func NewRecord(epoch uint64) *Record {
	return &Record{
		Epoch:         epoch,
		TotalVotes:    big.NewInt(0),
		Voters:        []common.Address{},
		RewardPerVote: big.NewInt(0),
		RewardPool:    big.NewInt(0),
	}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.TotalVotes = copyAmount(r.TotalVotes)
	clone.Voters = append([]common.Address(nil), r.Voters...)
	clone.RewardPerVote = copyAmount(r.RewardPerVote)
	clone.RewardPool = copyAmount(r.RewardPool)
	return &clone
}

// HasVoted reports whether addr already voted in the record.
func (r *Record) HasVoted(addr common.Address) bool {
	if r == nil {
		return false
	}
	for _, voter := range r.Voters {
		if voter == addr {
			return true
		}
	}
	return false
}

// RewardFor returns floor(power*rewardPerVote/RewardScale).
func RewardFor(power *big.Int, rewardPerVote *big.Int) *big.Int {
	if power == nil || rewardPerVote == nil || power.Sign() <= 0 || rewardPerVote.Sign() <= 0 {
		return big.NewInt(0)
	}
	reward := new(big.Int).Mul(power, rewardPerVote)
	return reward.Quo(reward, big.NewInt(RewardScale))
}

// RewardPerVoteFor returns floor(pool*RewardScale/totalVotes), or nil when no
// votes were cast.
func RewardPerVoteFor(pool *big.Int, totalVotes *big.Int) *big.Int {
	if pool == nil || totalVotes == nil || totalVotes.Sign() <= 0 {
		return nil
	}
	rpv := new(big.Int).Mul(pool, big.NewInt(RewardScale))
	return rpv.Quo(rpv, totalVotes)
}

func copyAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
