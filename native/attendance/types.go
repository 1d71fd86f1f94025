package attendance

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultPayoutCap bounds the number of reward draws per rotation.
const DefaultPayoutCap uint64 = 50

// SessionParams configure the verification session at creation.
type SessionParams struct {
	PayoutCap       uint64
	RewardPerPayout *big.Int
	// RetainHistory keeps viewer entries of past generations instead of
	// pruning them on rotation.
	RetainHistory bool
}

// Session tracks attendance for the currently confirmed winner.
//
// Viewer indices 0..TotalViewers-1 of generation EpochCounter are always
// densely populated.
type Session struct {
	Admin               common.Address
	ActiveParticipantID string
	// ActiveWinnerEpoch is the lottery epoch the tracked participant won.
	ActiveWinnerEpoch uint64
	EpochCounter      uint64
	TotalViewers      uint64
	PayoutCap         uint64
	RewardPerPayout   *big.Int
	RetainHistory     bool
	Rotations         uint64
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.RewardPerPayout = copyAmount(s.RewardPerPayout)
	return &clone
}

// Registration locates a viewer entry in the generational log.
type Registration struct {
	Address    common.Address
	Generation uint64
	Index      uint64
}

// Payout is a single reward draw made during rotation.
type Payout struct {
	Draw       uint64
	Generation uint64
	Index      uint64
	Address    common.Address
	Amount     *big.Int
}

func copyAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
