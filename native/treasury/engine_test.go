package treasury

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	errs "adlottery/core/errors"
	"adlottery/core/events"
)

type mockState struct {
	treasury *Treasury
}

func (m *mockState) TreasuryGet() (*Treasury, bool, error) {
	if m.treasury == nil {
		return nil, false, nil
	}
	return m.treasury.Clone(), true, nil
}

func (m *mockState) TreasuryPut(t *Treasury) error {
	m.treasury = t.Clone()
	return nil
}

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func newTestEngine(t *testing.T) (*Engine, *mockState, *events.Buffer) {
	t.Helper()
	state := &mockState{}
	buf := &events.Buffer{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetEmitter(buf)
	if _, err := engine.CreateTreasury(admin, nil); err != nil {
		t.Fatalf("create treasury: %v", err)
	}
	return engine, state, buf
}

func TestModuleAddressDeterministic(t *testing.T) {
	a := ModuleAddress(ModuleAttendance)
	b := ModuleAddress(ModuleAttendance)
	if a != b {
		t.Fatalf("module address not deterministic")
	}
	if a == ModuleAddress(ModuleStaking) {
		t.Fatalf("distinct modules must not share an address")
	}
	if a == (common.Address{}) {
		t.Fatalf("module address must not be zero")
	}
}

func TestCreateTreasuryOnce(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.CreateTreasury(admin, nil); !errors.Is(err, errTreasuryExists) {
		t.Fatalf("expected already created error, got %v", err)
	}
	if !errs.IsState(errTreasuryExists) {
		t.Fatalf("duplicate creation must be a state error")
	}
}

func TestCreateTreasuryAuthorizesModules(t *testing.T) {
	state := &mockState{}
	engine := NewEngine()
	engine.SetState(state)
	extra := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	created, err := engine.CreateTreasury(admin, []common.Address{extra, ModuleAddress(ModuleStaking), {}})
	if err != nil {
		t.Fatalf("create treasury: %v", err)
	}
	if len(created.Authorized) != 4 {
		t.Fatalf("expected modules plus one extra caller, got %v", created.Authorized)
	}
	if _, err := engine.DepositYield(big.NewInt(30)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	for _, name := range []string{ModuleStaking, ModuleVoting, ModuleAttendance} {
		if _, err := engine.WithdrawYield(ModuleAddress(name), big.NewInt(5)); err != nil {
			t.Fatalf("%s withdrawal: %v", name, err)
		}
	}
	if _, err := engine.WithdrawYield(extra, big.NewInt(5)); err != nil {
		t.Fatalf("extra caller withdrawal: %v", err)
	}
	if got := state.treasury.YieldReserve.Int64(); got != 10 {
		t.Fatalf("unexpected yield reserve %d", got)
	}
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	engine, state, buf := newTestEngine(t)
	if _, err := engine.DepositYield(big.NewInt(500)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	before := state.treasury.YieldReserve.String()

	if _, err := engine.DepositYield(big.NewInt(120)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := engine.WithdrawYield(ModuleAddress(ModuleAttendance), big.NewInt(120)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := state.treasury.YieldReserve.String(); got != before {
		t.Fatalf("round trip changed reserve: got %s want %s", got, before)
	}
	if buf.Len() != 3 {
		t.Fatalf("expected 3 events, got %d", buf.Len())
	}
}

func TestWithdrawBeyondBalanceLeavesReserve(t *testing.T) {
	engine, state, buf := newTestEngine(t)
	if _, err := engine.DepositVotingRewards(big.NewInt(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	buf.Discard()
	_, err := engine.WithdrawVotingRewards(ModuleAddress(ModuleVoting), big.NewInt(11))
	if !errors.Is(err, errInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if !errs.IsResource(err) {
		t.Fatalf("expected resource error, got kind %s", errs.KindOf(err))
	}
	if state.treasury.VotingRewardReserve.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("reserve changed after failed withdrawal: %s", state.treasury.VotingRewardReserve)
	}
	if buf.Len() != 0 {
		t.Fatalf("failed withdrawal must not emit events")
	}
}

func TestWithdrawRequiresAuthorization(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.DepositYield(big.NewInt(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := engine.WithdrawYield(stranger, big.NewInt(1)); !errs.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if _, err := engine.WithdrawYield(admin, big.NewInt(1)); err != nil {
		t.Fatalf("admin withdrawal: %v", err)
	}
}

func TestCollectFeeAndWithdrawGeneral(t *testing.T) {
	engine, state, _ := newTestEngine(t)
	if err := engine.CollectFee("ads", big.NewInt(25)); err != nil {
		t.Fatalf("collect fee: %v", err)
	}
	if err := engine.CollectFee("ads", big.NewInt(0)); err != nil {
		t.Fatalf("zero fee: %v", err)
	}
	if state.treasury.Balance.Cmp(big.NewInt(25)) != 0 || state.treasury.FeesCollected.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("unexpected balances: %s / %s", state.treasury.Balance, state.treasury.FeesCollected)
	}
	if _, err := engine.WithdrawGeneral(ModuleAddress(ModuleStaking), big.NewInt(5)); !errs.IsAuthorization(err) {
		t.Fatalf("module accounts must not drain the general balance: %v", err)
	}
	if _, err := engine.WithdrawGeneral(admin, big.NewInt(5)); err != nil {
		t.Fatalf("withdraw general: %v", err)
	}
	if state.treasury.Balance.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("unexpected general balance %s", state.treasury.Balance)
	}
	if state.treasury.FeesCollected.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("lifetime fees must not decrease")
	}
}

func TestInvalidAmountsRejected(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.DepositYield(big.NewInt(0)); !errors.Is(err, errInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := engine.WithdrawYield(admin, nil); !errors.Is(err, errInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}
