package treasury

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Reserve names one of the balances held by the treasury.
type Reserve string

const (
	// ReserveGeneral holds submission fees and other unallocated funds.
	ReserveGeneral Reserve = "general"
	// ReserveYield funds staking yield and attendance payouts.
	ReserveYield Reserve = "yield"
	// ReserveVoting funds voting rewards.
	ReserveVoting Reserve = "voting"
)

// Module account names used by the collaborators that draw on the treasury.
const (
	ModuleStaking    = "staking"
	ModuleVoting     = "voting"
	ModuleAttendance = "attendance"
	ModuleAds        = "ads"
)

// ModuleAddress derives the deterministic account used by an internal module.
func ModuleAddress(name string) common.Address {
	return common.BytesToAddress(ethcrypto.Keccak256([]byte("module:" + name))[12:])
}

// DefaultAuthorized lists the module accounts allowed to withdraw from the
// yield and voting reserves.
func DefaultAuthorized() []common.Address {
	return []common.Address{
		ModuleAddress(ModuleStaking),
		ModuleAddress(ModuleVoting),
		ModuleAddress(ModuleAttendance),
	}
}

// Treasury holds the reserve balances consumed by the ledger.
type Treasury struct {
	Admin               common.Address
	Balance             *big.Int
	YieldReserve        *big.Int
	VotingRewardReserve *big.Int
	FeesCollected       *big.Int
	Authorized          []common.Address
}

// Clone returns a deep copy of the treasury record.
func (t *Treasury) Clone() *Treasury {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Balance = copyAmount(t.Balance)
	clone.YieldReserve = copyAmount(t.YieldReserve)
	clone.VotingRewardReserve = copyAmount(t.VotingRewardReserve)
	clone.FeesCollected = copyAmount(t.FeesCollected)
	clone.Authorized = append([]common.Address(nil), t.Authorized...)
	return &clone
}

// Reserve returns the balance held in the named reserve.
func (t *Treasury) Reserve(name Reserve) *big.Int {
	if t == nil {
		return big.NewInt(0)
	}
	switch name {
	case ReserveYield:
		return copyAmount(t.YieldReserve)
	case ReserveVoting:
		return copyAmount(t.VotingRewardReserve)
	default:
		return copyAmount(t.Balance)
	}
}

func (t *Treasury) slot(name Reserve) **big.Int {
	switch name {
	case ReserveYield:
		return &t.YieldReserve
	case ReserveVoting:
		return &t.VotingRewardReserve
	default:
		return &t.Balance
	}
}

func (t *Treasury) isAuthorized(caller common.Address) bool {
	if caller == t.Admin {
		return true
	}
	for _, addr := range t.Authorized {
		if addr == caller {
			return true
		}
	}
	return false
}

func copyAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
