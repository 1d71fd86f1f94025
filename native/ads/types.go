package ads

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is the singleton index of active participants.
type Registry struct {
	Admin               common.Address
	ActiveIDs           []string
	LifetimeSubmissions uint64
	SubmissionFee       *big.Int
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	clone := *r
	clone.ActiveIDs = append([]string(nil), r.ActiveIDs...)
	clone.SubmissionFee = copyAmount(r.SubmissionFee)
	return &clone
}

// IsActive reports whether id is in the active set.
func (r *Registry) IsActive(id string) bool {
	if r == nil {
		return false
	}
	for _, active := range r.ActiveIDs {
		if active == id {
			return true
		}
	}
	return false
}

func (r *Registry) remove(id string) bool {
	for i, active := range r.ActiveIDs {
		if active == id {
			r.ActiveIDs = append(r.ActiveIDs[:i:i], r.ActiveIDs[i+1:]...)
			return true
		}
	}
	return false
}

// Advertisement is a participant in the draw, backed by a stake position.
type Advertisement struct {
	ID                    string
	Advertiser            common.Address
	ContentReference      string
	StakeAmount           *big.Int
	LinkedStakePositionID string
	EpochCreated          uint64
	// TotalVotesReceived accumulates voting power over the participant's lifetime.
	TotalVotesReceived *big.Int
	VoteCount          uint64
	WinsCount          uint64
	IsActive           bool
	IsUnsealed         bool
	CreatedAt          uint64
}

// Clone returns a deep copy of the advertisement.
func (a *Advertisement) Clone() *Advertisement {
	if a == nil {
		return nil
	}
	clone := *a
	clone.StakeAmount = copyAmount(a.StakeAmount)
	clone.TotalVotesReceived = copyAmount(a.TotalVotesReceived)
	return &clone
}

func copyAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
