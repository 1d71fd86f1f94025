package staking

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"adlottery/core/epoch"
	errs "adlottery/core/errors"
	"adlottery/core/events"
	"adlottery/native/treasury"
)

var (
	errNilState         = errs.New(errs.KindInternal, "staking: state not configured")
	errNilYieldSource   = errs.New(errs.KindInternal, "staking: yield source not configured")
	errPoolExists       = errs.State("staking: pool already created")
	errPoolMissing      = errs.State("staking: pool not created")
	errPositionNotFound = errs.State("staking: position not found")
	errNotOwner         = errs.Authorization("staking: caller does not own the position")
	errNotAdmin         = errs.Authorization("staking: caller is not the pool admin")
	errBelowMinimum     = errs.Resource("staking: amount below minimum stake")
	errAboveMaximum     = errs.Resource("staking: amount above maximum stake")
	errInvalidBounds    = errs.Resource("staking: maximum stake below minimum stake")
	errInvalidAmount    = errs.Resource("staking: amount must be positive")
	errAdminRequired    = errs.State("staking: admin address required")

	// ErrNothingAccrued is returned when a claim would pay nothing.
	ErrNothingAccrued = errs.State("staking: nothing accrued")
)

type engineState interface {
	StakingPoolGet() (*Pool, bool, error)
	StakingPoolPut(pool *Pool) error
	StakingPositionGet(id string) (*Position, bool, error)
	StakingPositionPut(position *Position) error
	StakingPositionDelete(id string) error
}

// yieldSource releases funds from the treasury yield reserve.
type yieldSource interface {
	WithdrawYield(caller common.Address, amount *big.Int) (*big.Int, error)
}

// Engine maintains the staking pool, its positions and their yield.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
	idFn    func() string
	epochs  epoch.Config
	yield   yieldSource
	account common.Address
}

// NewEngine constructs a staking engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().UnixMilli() },
		idFn:    uuid.NewString,
		epochs:  epoch.DefaultConfig(),
		account: treasury.ModuleAddress(treasury.ModuleStaking),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the millisecond clock for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().UnixMilli() }
		return
	}
	e.nowFn = now
}

// SetIDFunc overrides the position id generator.
func (e *Engine) SetIDFunc(fn func() string) {
	if fn == nil {
		e.idFn = uuid.NewString
		return
	}
	e.idFn = fn
}

// SetEpochConfig configures how timestamps map to yield epochs.
func (e *Engine) SetEpochConfig(cfg epoch.Config) { e.epochs = cfg }

// SetYieldSource configures the reserve that funds yield payments.
func (e *Engine) SetYieldSource(source yieldSource) { e.yield = source }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().UnixMilli()
	}
	return e.nowFn()
}

// CurrentEpoch returns the yield epoch containing the engine clock.
func (e *Engine) CurrentEpoch() uint64 { return e.epochs.Of(e.now()) }

func (e *Engine) loadPool() (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, ok, err := e.state.StakingPoolGet()
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, errPoolMissing
	}
	return pool, nil
}

func (e *Engine) loadPosition(id string) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	position, ok, err := e.state.StakingPositionGet(strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if !ok || position == nil {
		return nil, errPositionNotFound
	}
	return position, nil
}

// CreatePool initialises the singleton pool.
func (e *Engine) CreatePool(admin common.Address, params Params) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if admin == (common.Address{}) {
		return nil, errAdminRequired
	}
	if _, ok, err := e.state.StakingPoolGet(); err != nil {
		return nil, err
	} else if ok {
		return nil, errPoolExists
	}
	minStake := copyAmount(params.MinStake)
	maxStake := copyAmount(params.MaxStake)
	if minStake.Sign() < 0 || maxStake.Sign() < 0 {
		return nil, errInvalidAmount
	}
	if maxStake.Sign() > 0 && maxStake.Cmp(minStake) < 0 {
		return nil, errInvalidBounds
	}
	pool := &Pool{
		Admin:           admin,
		TotalStaked:     big.NewInt(0),
		StakedBalance:   big.NewInt(0),
		CreditedBalance: big.NewInt(0),
		APYRateBps:      params.APYRateBps,
		MinStake:        minStake,
		MaxStake:        maxStake,
	}
	if err := e.state.StakingPoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(events.StakePoolCreated{Admin: admin, APYRateBps: pool.APYRateBps, MinStake: copyAmount(minStake), MaxStake: copyAmount(maxStake)})
	return pool.Clone(), nil
}

// Pool returns a copy of the staking pool.
func (e *Engine) Pool() (*Pool, error) {
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// Position returns a copy of the identified position.
func (e *Engine) Position(id string) (*Position, error) {
	position, err := e.loadPosition(id)
	if err != nil {
		return nil, err
	}
	return position.Clone(), nil
}

// Stake opens an unlinked position for owner.
func (e *Engine) Stake(owner common.Address, amount *big.Int) (*Position, error) {
	return e.OpenPosition(owner, amount, "")
}

// OpenPosition creates a position, optionally linked to the participant it
// backs, and adds its amount to the pool totals.
func (e *Engine) OpenPosition(owner common.Address, amount *big.Int, participantID string) (*Position, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if pool.MinStake != nil && amount.Cmp(pool.MinStake) < 0 {
		return nil, errs.Wrap(errs.KindResource, errBelowMinimum, "minimum %s, got %s", pool.MinStake, amount)
	}
	if pool.MaxStake != nil && pool.MaxStake.Sign() > 0 && amount.Cmp(pool.MaxStake) > 0 {
		return nil, errs.Wrap(errs.KindResource, errAboveMaximum, "maximum %s, got %s", pool.MaxStake, amount)
	}
	now := e.now()
	current := e.epochs.Of(now)
	position := &Position{
		ID:                       e.idFn(),
		Owner:                    owner,
		Amount:                   new(big.Int).Set(amount),
		LinkedParticipantID:      strings.TrimSpace(participantID),
		EpochStaked:              current,
		LastClaimEpoch:           current,
		AdvertiserYieldClaimable: big.NewInt(0),
		CreatedAt:                uint64(now),
	}
	pool.TotalStaked = new(big.Int).Add(copyAmount(pool.TotalStaked), amount)
	pool.StakedBalance = new(big.Int).Add(copyAmount(pool.StakedBalance), amount)
	pool.PositionCount++
	if err := e.state.StakingPositionPut(position); err != nil {
		return nil, err
	}
	if err := e.state.StakingPoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(events.StakeOpened{
		PositionID:    position.ID,
		Owner:         owner,
		Amount:        copyAmount(amount),
		ParticipantID: position.LinkedParticipantID,
		Epoch:         current,
		TotalStaked:   copyAmount(pool.TotalStaked),
	})
	return position.Clone(), nil
}

// PendingYield returns the yield the position would receive if claimed now,
// excluding credited rewards.
func (e *Engine) PendingYield(id string) (*big.Int, error) {
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	position, err := e.loadPosition(id)
	if err != nil {
		return nil, err
	}
	return ComputeYield(position.Amount, position.LastClaimEpoch, pool.APYRateBps, e.CurrentEpoch()), nil
}

// VotingPower returns the weight a vote backed by the position carries.
func (e *Engine) VotingPower(id string) (*big.Int, error) {
	position, err := e.loadPosition(id)
	if err != nil {
		return nil, err
	}
	return copyAmount(position.Amount), nil
}

func (e *Engine) withdrawYield(amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if e.yield == nil {
		return errNilYieldSource
	}
	_, err := e.yield.WithdrawYield(e.account, amount)
	return err
}

// ClaimRewards pays accrued yield plus credited rewards to the position owner
// and restarts accrual from the current epoch.
func (e *Engine) ClaimRewards(caller common.Address, id string) (*big.Int, error) {
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	position, err := e.loadPosition(id)
	if err != nil {
		return nil, err
	}
	if position.Owner != caller {
		return nil, errNotOwner
	}
	current := e.CurrentEpoch()
	yield := ComputeYield(position.Amount, position.LastClaimEpoch, pool.APYRateBps, current)
	credited := copyAmount(position.AdvertiserYieldClaimable)
	total := new(big.Int).Add(yield, credited)
	if total.Sign() == 0 {
		return nil, ErrNothingAccrued
	}
	if err := e.withdrawYield(yield); err != nil {
		return nil, err
	}
	if current > position.LastClaimEpoch {
		position.LastClaimEpoch = current
	}
	position.AdvertiserYieldClaimable = big.NewInt(0)
	pool.CreditedBalance = subFloor(pool.CreditedBalance, credited)
	if err := e.state.StakingPositionPut(position); err != nil {
		return nil, err
	}
	if err := e.state.StakingPoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(events.StakeRewardsClaimed{PositionID: position.ID, Owner: position.Owner, Yield: yield, Credited: credited, Epoch: current})
	return total, nil
}

// Unstake closes the position and releases principal, accrued yield and
// credited rewards together. A yield shortfall aborts the whole withdrawal.
func (e *Engine) Unstake(caller common.Address, id string) (*Payout, error) {
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	position, err := e.loadPosition(id)
	if err != nil {
		return nil, err
	}
	if position.Owner != caller {
		return nil, errNotOwner
	}
	current := e.CurrentEpoch()
	payout := &Payout{
		Principal: copyAmount(position.Amount),
		Yield:     ComputeYield(position.Amount, position.LastClaimEpoch, pool.APYRateBps, current),
		Credited:  copyAmount(position.AdvertiserYieldClaimable),
	}
	payout.Total = new(big.Int).Add(payout.Principal, payout.Yield)
	payout.Total.Add(payout.Total, payout.Credited)
	if err := e.withdrawYield(payout.Yield); err != nil {
		return nil, err
	}
	pool.TotalStaked = subFloor(pool.TotalStaked, payout.Principal)
	pool.StakedBalance = subFloor(pool.StakedBalance, payout.Principal)
	pool.CreditedBalance = subFloor(pool.CreditedBalance, payout.Credited)
	if pool.PositionCount > 0 {
		pool.PositionCount--
	}
	if err := e.state.StakingPositionDelete(position.ID); err != nil {
		return nil, err
	}
	if err := e.state.StakingPoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(events.StakeClosed{
		PositionID:  position.ID,
		Owner:       position.Owner,
		Principal:   copyAmount(payout.Principal),
		Yield:       copyAmount(payout.Yield),
		Credited:    copyAmount(payout.Credited),
		Epoch:       current,
		TotalStaked: copyAmount(pool.TotalStaked),
	})
	return payout, nil
}

// CreditAdvertiserYield adds amount to the position's claimable balance and
// advances its last claim epoch by exactly one so the credited interval is not
// accrued a second time.
func (e *Engine) CreditAdvertiserYield(id string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	position, err := e.loadPosition(id)
	if err != nil {
		return err
	}
	position.AdvertiserYieldClaimable = new(big.Int).Add(copyAmount(position.AdvertiserYieldClaimable), amount)
	position.LastClaimEpoch++
	pool.CreditedBalance = new(big.Int).Add(copyAmount(pool.CreditedBalance), amount)
	if err := e.state.StakingPositionPut(position); err != nil {
		return err
	}
	if err := e.state.StakingPoolPut(pool); err != nil {
		return err
	}
	e.emit(events.StakeYieldCredited{
		PositionID:     position.ID,
		Amount:         copyAmount(amount),
		Claimable:      copyAmount(position.AdvertiserYieldClaimable),
		LastClaimEpoch: position.LastClaimEpoch,
	})
	return nil
}

// SetAPY updates the pool rate. Only the pool admin may change it.
func (e *Engine) SetAPY(caller common.Address, apyBps uint64) (*Pool, error) {
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if caller != pool.Admin {
		return nil, errNotAdmin
	}
	previous := pool.APYRateBps
	pool.APYRateBps = apyBps
	if err := e.state.StakingPoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(events.StakeAPYUpdated{Previous: previous, Current: apyBps})
	return pool.Clone(), nil
}

func subFloor(current *big.Int, delta *big.Int) *big.Int {
	out := new(big.Int).Sub(copyAmount(current), copyAmount(delta))
	if out.Sign() < 0 {
		return big.NewInt(0)
	}
	return out
}
