package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Params configures the staking pool at creation time.
type Params struct {
	APYRateBps uint64
	MinStake   *big.Int
	// MaxStake bounds a single position. Zero or nil leaves it unbounded.
	MaxStake *big.Int
}

// Pool is the singleton aggregate over all live positions.
//
// TotalStaked and StakedBalance always equal the sum of live position amounts.
// CreditedBalance equals the sum of AdvertiserYieldClaimable across live
// positions.
type Pool struct {
	Admin           common.Address
	TotalStaked     *big.Int
	StakedBalance   *big.Int
	CreditedBalance *big.Int
	APYRateBps      uint64
	MinStake        *big.Int
	MaxStake        *big.Int
	PositionCount   uint64
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.TotalStaked = copyAmount(p.TotalStaked)
	clone.StakedBalance = copyAmount(p.StakedBalance)
	clone.CreditedBalance = copyAmount(p.CreditedBalance)
	clone.MinStake = copyAmount(p.MinStake)
	clone.MaxStake = copyAmount(p.MaxStake)
	return &clone
}

// Position is a single owner's staked principal.
type Position struct {
	ID                       string
	Owner                    common.Address
	Amount                   *big.Int
	LinkedParticipantID      string
	EpochStaked              uint64
	LastClaimEpoch           uint64
	AdvertiserYieldClaimable *big.Int
	CreatedAt                uint64
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Amount = copyAmount(p.Amount)
	clone.AdvertiserYieldClaimable = copyAmount(p.AdvertiserYieldClaimable)
	return &clone
}

// Payout itemises the funds released when a position is closed.
type Payout struct {
	Principal *big.Int
	Yield     *big.Int
	Credited  *big.Int
	Total     *big.Int
}

func copyAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
