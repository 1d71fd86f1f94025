package treasury

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	errs "adlottery/core/errors"
	"adlottery/core/events"
)

var (
	errNilState           = errs.New(errs.KindInternal, "treasury: state not configured")
	errTreasuryExists     = errs.State("treasury: already created")
	errTreasuryMissing    = errs.State("treasury: not created")
	errUnauthorized       = errs.Authorization("treasury: caller not authorized")
	errNotAdmin           = errs.Authorization("treasury: caller is not the admin")
	errInsufficientFunds  = errs.Resource("treasury: insufficient reserve balance")
	errInvalidAmount      = errs.Resource("treasury: amount must be positive")
	errInvalidFeeAmount   = errs.Resource("treasury: fee must not be negative")
	errAdminNotConfigured = errs.State("treasury: admin address required")
)

type engineState interface {
	TreasuryGet() (*Treasury, bool, error)
	TreasuryPut(t *Treasury) error
}

// Engine applies reserve deposits and withdrawals.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

// NewEngine constructs a treasury engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
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

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) load() (*Treasury, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	t, ok, err := e.state.TreasuryGet()
	if err != nil {
		return nil, err
	}
	if !ok || t == nil {
		return nil, errTreasuryMissing
	}
	return t, nil
}

// CreateTreasury initialises the singleton with empty reserves. The module
// accounts in DefaultAuthorized are always authorized; extra lists further
// callers allowed to draw on the reserves.
func (e *Engine) CreateTreasury(admin common.Address, extra []common.Address) (*Treasury, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if admin == (common.Address{}) {
		return nil, errAdminNotConfigured
	}
	if _, ok, err := e.state.TreasuryGet(); err != nil {
		return nil, err
	} else if ok {
		return nil, errTreasuryExists
	}
	authorized := append(DefaultAuthorized(), extra...)
	seen := make(map[common.Address]struct{}, len(authorized))
	list := make([]common.Address, 0, len(authorized))
	for _, addr := range authorized {
		if addr == (common.Address{}) {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		list = append(list, addr)
	}
	t := &Treasury{
		Admin:               admin,
		Balance:             big.NewInt(0),
		YieldReserve:        big.NewInt(0),
		VotingRewardReserve: big.NewInt(0),
		FeesCollected:       big.NewInt(0),
		Authorized:          list,
	}
	if err := e.state.TreasuryPut(t); err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// Treasury returns a copy of the stored treasury.
func (e *Engine) Treasury() (*Treasury, error) {
	t, err := e.load()
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// Available returns the balance of the named reserve.
func (e *Engine) Available(reserve Reserve) (*big.Int, error) {
	t, err := e.load()
	if err != nil {
		return nil, err
	}
	return t.Reserve(reserve), nil
}

// YieldReserve returns the yield reserve balance.
func (e *Engine) YieldReserve() (*big.Int, error) { return e.Available(ReserveYield) }

// VotingRewardReserve returns the voting reward reserve balance.
func (e *Engine) VotingRewardReserve() (*big.Int, error) { return e.Available(ReserveVoting) }

// DepositYield adds funds to the yield reserve.
func (e *Engine) DepositYield(amount *big.Int) (*big.Int, error) {
	return e.deposit(ReserveYield, amount)
}

// DepositVotingRewards adds funds to the voting reward reserve.
func (e *Engine) DepositVotingRewards(amount *big.Int) (*big.Int, error) {
	return e.deposit(ReserveVoting, amount)
}

// WithdrawYield removes amount from the yield reserve on behalf of an
// authorized module account or the admin.
func (e *Engine) WithdrawYield(caller common.Address, amount *big.Int) (*big.Int, error) {
	return e.withdraw(ReserveYield, caller, amount, false)
}

// WithdrawVotingRewards removes amount from the voting reward reserve.
func (e *Engine) WithdrawVotingRewards(caller common.Address, amount *big.Int) (*big.Int, error) {
	return e.withdraw(ReserveVoting, caller, amount, false)
}

// WithdrawGeneral removes amount from the general balance. Only the admin may
// do so.
func (e *Engine) WithdrawGeneral(caller common.Address, amount *big.Int) (*big.Int, error) {
	return e.withdraw(ReserveGeneral, caller, amount, true)
}

// CollectFee adds a fee to the general balance and the lifetime fee counter.
// Zero fees are accepted and ignored.
func (e *Engine) CollectFee(source string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return errInvalidFeeAmount
	}
	t, err := e.load()
	if err != nil {
		return err
	}
	t.Balance = new(big.Int).Add(copyAmount(t.Balance), amount)
	t.FeesCollected = new(big.Int).Add(copyAmount(t.FeesCollected), amount)
	if err := e.state.TreasuryPut(t); err != nil {
		return err
	}
	e.emit(events.TreasuryFeeCollected{Source: source, Amount: new(big.Int).Set(amount), Lifetime: copyAmount(t.FeesCollected)})
	return nil
}

func (e *Engine) deposit(reserve Reserve, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	t, err := e.load()
	if err != nil {
		return nil, err
	}
	slot := t.slot(reserve)
	*slot = new(big.Int).Add(copyAmount(*slot), amount)
	if err := e.state.TreasuryPut(t); err != nil {
		return nil, err
	}
	balance := copyAmount(*slot)
	e.emit(events.TreasuryDeposit{Reserve: string(reserve), Amount: new(big.Int).Set(amount), Balance: balance})
	return balance, nil
}

func (e *Engine) withdraw(reserve Reserve, caller common.Address, amount *big.Int, adminOnly bool) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	t, err := e.load()
	if err != nil {
		return nil, err
	}
	if adminOnly {
		if caller != t.Admin {
			return nil, errNotAdmin
		}
	} else if !t.isAuthorized(caller) {
		return nil, errUnauthorized
	}
	slot := t.slot(reserve)
	current := copyAmount(*slot)
	if current.Cmp(amount) < 0 {
		return nil, errs.Wrap(errs.KindResource, errInsufficientFunds, "%s reserve holds %s, requested %s", reserve, current, amount)
	}
	*slot = current.Sub(current, amount)
	if err := e.state.TreasuryPut(t); err != nil {
		return nil, err
	}
	e.emit(events.TreasuryWithdrawal{Reserve: string(reserve), Caller: caller, Amount: new(big.Int).Set(amount), Balance: copyAmount(*slot)})
	return new(big.Int).Set(amount), nil
}
