package attendance

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	errs "adlottery/core/errors"
	"adlottery/core/events"
	"adlottery/core/random"
	"adlottery/native/treasury"
)

var (
	errNilState         = errs.New(errs.KindInternal, "attendance: state not configured")
	errNilWinners       = errs.New(errs.KindInternal, "attendance: winner source not configured")
	errNilRandomness    = errs.New(errs.KindInternal, "attendance: randomness provider not configured")
	errNilPayer         = errs.New(errs.KindInternal, "attendance: payout reserve not configured")
	errSessionExists    = errs.State("attendance: session already created")
	errSessionMissing   = errs.State("attendance: session not created")
	errNoActiveWinner   = errs.State("attendance: no active winner")
	errNotActiveWinner  = errs.State("attendance: participant is not the active winner")
	errNoConfirmed      = errs.State("attendance: no confirmed winner to rotate to")
	errAlreadyTracking  = errs.State("attendance: session already tracks the latest winner")
	errViewerMissing    = errs.Integrity("attendance: viewer log has a gap")
	errReserveShort     = errs.Resource("attendance: yield reserve cannot cover payouts")
	errInvalidReward    = errs.Resource("attendance: reward per payout must not be negative")
	errIndexOutOfBounds = errs.New(errs.KindInternal, "attendance: random index outside viewer range")

	// ErrAlreadyRegistered is returned when an address registers twice in one
	// generation.
	ErrAlreadyRegistered = errs.State("attendance: address already registered this generation")
)

type engineState interface {
	AttendanceSessionGet() (*Session, bool, error)
	AttendanceSessionPut(session *Session) error
	AttendanceViewerGet(generation, index uint64) (common.Address, bool, error)
	AttendanceViewerPut(generation, index uint64, addr common.Address) error
	AttendanceViewerDelete(generation, index uint64) error
	AttendanceClaimGet(addr common.Address) (uint64, bool, error)
	AttendanceClaimPut(addr common.Address, generation uint64) error
	AttendanceClaimDelete(addr common.Address) error
}

// winnerSource reports the most recently confirmed lottery winner.
type winnerSource interface {
	LatestConfirmedWinner() (string, uint64, error)
}

// payer funds attendance rewards from the yield reserve.
type payer interface {
	YieldReserve() (*big.Int, error)
	WithdrawYield(caller common.Address, amount *big.Int) (*big.Int, error)
}

// Engine runs the proof-of-participation session.
type Engine struct {
	state   engineState
	emitter events.Emitter
	winners winnerSource
	payer   payer
	rng     random.Provider
	account common.Address
}

// NewEngine constructs a session engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		account: treasury.ModuleAddress(treasury.ModuleAttendance),
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

// SetWinnerSource wires the epoch coordinator.
func (e *Engine) SetWinnerSource(src winnerSource) { e.winners = src }

// SetPayer wires the treasury that funds payouts.
func (e *Engine) SetPayer(p payer) { e.payer = p }

// SetRandomness wires the provider used for payout draws.
func (e *Engine) SetRandomness(rng random.Provider) { e.rng = rng }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) load() (*Session, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	session, ok, err := e.state.AttendanceSessionGet()
	if err != nil {
		return nil, err
	}
	if !ok || session == nil {
		return nil, errSessionMissing
	}
	return session, nil
}

// CreateSession initialises the singleton session. It tracks no participant
// until the first rotation after a confirmed win.
func (e *Engine) CreateSession(admin common.Address, params SessionParams) (*Session, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if params.RewardPerPayout != nil && params.RewardPerPayout.Sign() < 0 {
		return nil, errInvalidReward
	}
	if _, ok, err := e.state.AttendanceSessionGet(); err != nil {
		return nil, err
	} else if ok {
		return nil, errSessionExists
	}
	payoutCap := params.PayoutCap
	if payoutCap == 0 {
		payoutCap = DefaultPayoutCap
	}
	session := &Session{
		Admin:           admin,
		PayoutCap:       payoutCap,
		RewardPerPayout: copyAmount(params.RewardPerPayout),
		RetainHistory:   params.RetainHistory,
	}
	if err := e.state.AttendanceSessionPut(session); err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// Session returns a copy of the session.
func (e *Engine) Session() (*Session, error) {
	session, err := e.load()
	if err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// Viewer returns the address registered at (generation, index).
func (e *Engine) Viewer(generation, index uint64) (common.Address, bool, error) {
	if e == nil || e.state == nil {
		return common.Address{}, false, errNilState
	}
	return e.state.AttendanceViewerGet(generation, index)
}

// Registered reports whether addr registered in the current generation.
func (e *Engine) Registered(addr common.Address) (bool, error) {
	session, err := e.load()
	if err != nil {
		return false, err
	}
	generation, ok, err := e.state.AttendanceClaimGet(addr)
	if err != nil {
		return false, err
	}
	return ok && generation == session.EpochCounter, nil
}

// RegisterAttendance appends caller to the current generation's viewer log.
func (e *Engine) RegisterAttendance(caller common.Address, participantID string) (*Registration, error) {
	session, err := e.load()
	if err != nil {
		return nil, err
	}
	if session.ActiveParticipantID == "" {
		return nil, errNoActiveWinner
	}
	if strings.TrimSpace(participantID) != session.ActiveParticipantID {
		return nil, errNotActiveWinner
	}
	generation, ok, err := e.state.AttendanceClaimGet(caller)
	if err != nil {
		return nil, err
	}
	if ok && generation == session.EpochCounter {
		return nil, ErrAlreadyRegistered
	}
	reg := &Registration{Address: caller, Generation: session.EpochCounter, Index: session.TotalViewers}
	if err := e.state.AttendanceViewerPut(reg.Generation, reg.Index, caller); err != nil {
		return nil, err
	}
	if err := e.state.AttendanceClaimPut(caller, reg.Generation); err != nil {
		return nil, err
	}
	session.TotalViewers++
	if err := e.state.AttendanceSessionPut(session); err != nil {
		return nil, err
	}
	e.emit(events.AttendanceRegistered{Address: caller, ParticipantID: session.ActiveParticipantID, Generation: reg.Generation, Index: reg.Index})
	return reg, nil
}

// RotateSession pays min(TotalViewers, PayoutCap) independent draws over the
// current generation, with replacement, then advances to the latest confirmed
// winner. The same address may be paid more than once.
func (e *Engine) RotateSession() ([]Payout, error) {
	session, err := e.load()
	if err != nil {
		return nil, err
	}
	if e.winners == nil {
		return nil, errNilWinners
	}
	winnerID, winnerEpoch, err := e.winners.LatestConfirmedWinner()
	if err != nil {
		return nil, err
	}
	if winnerID == "" {
		return nil, errNoConfirmed
	}
	if session.ActiveParticipantID == winnerID && session.ActiveWinnerEpoch == winnerEpoch {
		return nil, errAlreadyTracking
	}
	n := session.TotalViewers
	draws := n
	if draws > session.PayoutCap {
		draws = session.PayoutCap
	}
	reward := copyAmount(session.RewardPerPayout)
	if draws > 0 {
		if e.rng == nil {
			return nil, errNilRandomness
		}
		if reward.Sign() > 0 {
			if e.payer == nil {
				return nil, errNilPayer
			}
			required := new(big.Int).Mul(reward, new(big.Int).SetUint64(draws))
			available, err := e.payer.YieldReserve()
			if err != nil {
				return nil, err
			}
			if available.Cmp(required) < 0 {
				return nil, errs.Wrap(errs.KindResource, errReserveShort, "need %s, reserve holds %s", required, available)
			}
		}
	}
	generation := session.EpochCounter
	payouts := make([]Payout, 0, draws)
	totalPaid := big.NewInt(0)
	for draw := uint64(0); draw < draws; draw++ {
		idx, err := e.rng.Intn(n)
		if err != nil {
			return nil, err
		}
		if idx >= n {
			return nil, errIndexOutOfBounds
		}
		addr, ok, err := e.state.AttendanceViewerGet(generation, idx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.Wrap(errs.KindIntegrity, errViewerMissing, "generation %d index %d", generation, idx)
		}
		if reward.Sign() > 0 {
			if _, err := e.payer.WithdrawYield(e.account, reward); err != nil {
				return nil, err
			}
		}
		payout := Payout{Draw: draw, Generation: generation, Index: idx, Address: addr, Amount: copyAmount(reward)}
		payouts = append(payouts, payout)
		totalPaid.Add(totalPaid, reward)
		e.emit(events.AttendanceRewardPaid{Address: addr, Generation: generation, Index: idx, Draw: draw, Amount: copyAmount(reward)})
	}
	if !session.RetainHistory {
		if err := e.prune(generation, n); err != nil {
			return nil, err
		}
	}
	previous := session.ActiveParticipantID
	session.EpochCounter++
	session.TotalViewers = 0
	session.ActiveParticipantID = winnerID
	session.ActiveWinnerEpoch = winnerEpoch
	session.Rotations++
	if err := e.state.AttendanceSessionPut(session); err != nil {
		return nil, err
	}
	e.emit(events.AttendanceSessionRotated{
		PreviousParticipantID: previous,
		ParticipantID:         winnerID,
		Generation:            session.EpochCounter,
		Viewers:               n,
		Payouts:               uint64(len(payouts)),
		TotalPaid:             totalPaid,
	})
	return payouts, nil
}

// prune drops the viewer entries and registration markers of generation.
func (e *Engine) prune(generation, viewers uint64) error {
	for idx := uint64(0); idx < viewers; idx++ {
		addr, ok, err := e.state.AttendanceViewerGet(generation, idx)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if marker, found, err := e.state.AttendanceClaimGet(addr); err != nil {
			return err
		} else if found && marker == generation {
			if err := e.state.AttendanceClaimDelete(addr); err != nil {
				return err
			}
		}
		if err := e.state.AttendanceViewerDelete(generation, idx); err != nil {
			return err
		}
	}
	return nil
}
