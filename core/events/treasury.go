package events

import (
	"math/big"

	"adlottery/core/types"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeTreasuryDeposit is emitted when a reserve is funded.
	TypeTreasuryDeposit = "treasury.deposit"
	// TypeTreasuryWithdrawal is emitted when a reserve is drawn down.
	TypeTreasuryWithdrawal = "treasury.withdrawal"
	// TypeTreasuryFeeCollected is emitted when a protocol fee lands in the general balance.
	TypeTreasuryFeeCollected = "treasury.feeCollected"
)

// TreasuryDeposit captures a reserve top-up.
type TreasuryDeposit struct {
	Reserve string
	Amount  *big.Int
	Balance *big.Int
}

// EventType satisfies the Event interface.
func (TreasuryDeposit) EventType() string { return TypeTreasuryDeposit }

// Event converts the structured payload into a broadcastable event.
func (e TreasuryDeposit) Event() *types.Event {
	return &types.Event{Type: TypeTreasuryDeposit, Attributes: map[string]string{
		"reserve": e.Reserve,
		"amount":  formatAmount(e.Amount),
		"balance": formatAmount(e.Balance),
	}}
}

// TreasuryWithdrawal captures a reserve draw-down by an authorised caller.
type TreasuryWithdrawal struct {
	Reserve string
	Caller  common.Address
	Amount  *big.Int
	Balance *big.Int
}

// EventType satisfies the Event interface.
func (TreasuryWithdrawal) EventType() string { return TypeTreasuryWithdrawal }

// Event converts the structured payload into a broadcastable event.
func (e TreasuryWithdrawal) Event() *types.Event {
	return &types.Event{Type: TypeTreasuryWithdrawal, Attributes: map[string]string{
		"reserve": e.Reserve,
		"caller":  formatAddress(e.Caller),
		"amount":  formatAmount(e.Amount),
		"balance": formatAmount(e.Balance),
	}}
}

// TreasuryFeeCollected captures a protocol fee.
type TreasuryFeeCollected struct {
	Source   string
	Amount   *big.Int
	Lifetime *big.Int
}

// EventType satisfies the Event interface.
func (TreasuryFeeCollected) EventType() string { return TypeTreasuryFeeCollected }

// Event converts the structured payload into a broadcastable event.
func (e TreasuryFeeCollected) Event() *types.Event {
	attrs := map[string]string{
		"amount":   formatAmount(e.Amount),
		"lifetime": formatAmount(e.Lifetime),
	}
	if e.Source != "" {
		attrs["source"] = e.Source
	}
	return &types.Event{Type: TypeTreasuryFeeCollected, Attributes: attrs}
}
