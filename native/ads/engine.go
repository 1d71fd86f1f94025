package ads

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"adlottery/core/epoch"
	errs "adlottery/core/errors"
	"adlottery/core/events"
	"adlottery/native/staking"
)

var (
	errNilState          = errs.New(errs.KindInternal, "ads: state not configured")
	errNilStaking        = errs.New(errs.KindInternal, "ads: staking ledger not configured")
	errNilFeeCollector   = errs.New(errs.KindInternal, "ads: fee collector not configured")
	errRegistryExists    = errs.State("ads: registry already created")
	errRegistryMissing   = errs.State("ads: registry not created")
	errParticipantAbsent = errs.State("ads: participant not found")
	errAlreadyInactive   = errs.State("ads: participant already inactive")
	errContentRequired   = errs.State("ads: content reference required")
	errNotAdvertiser     = errs.Authorization("ads: requester is not the advertiser")
	errInvalidFee        = errs.Resource("ads: submission fee must not be negative")
	errInvalidPower      = errs.Resource("ads: voting power must be positive")

	// ErrInactive is returned when an operation targets an inactive participant.
	ErrInactive = errs.State("ads: participant not active")
)

// FeeSource names the origin of submission fees in the treasury.
const FeeSource = "ads.submission"

type engineState interface {
	AdsRegistryGet() (*Registry, bool, error)
	AdsRegistryPut(registry *Registry) error
	AdsParticipantGet(id string) (*Advertisement, bool, error)
	AdsParticipantPut(ad *Advertisement) error
}

// stakeOpener opens the position that backs a submission.
type stakeOpener interface {
	OpenPosition(owner common.Address, amount *big.Int, participantID string) (*staking.Position, error)
}

// feeCollector books submission fees into the treasury.
type feeCollector interface {
	CollectFee(source string, amount *big.Int) error
}

// Engine maintains the advertisement registry.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
	idFn    func() string
	epochs  epoch.Config
	stakes  stakeOpener
	fees    feeCollector
}

// NewEngine constructs a registry engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().UnixMilli() },
		idFn:    uuid.NewString,
		epochs:  epoch.DefaultConfig(),
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

// SetIDFunc overrides the participant id generator.
func (e *Engine) SetIDFunc(fn func() string) {
	if fn == nil {
		e.idFn = uuid.NewString
		return
	}
	e.idFn = fn
}

// SetEpochConfig configures how timestamps map to epochs.
func (e *Engine) SetEpochConfig(cfg epoch.Config) { e.epochs = cfg }

// SetStakeOpener wires the ledger that opens backing positions.
func (e *Engine) SetStakeOpener(opener stakeOpener) { e.stakes = opener }

// SetFeeCollector wires the treasury that receives submission fees.
func (e *Engine) SetFeeCollector(collector feeCollector) { e.fees = collector }

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

func (e *Engine) loadRegistry() (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	registry, ok, err := e.state.AdsRegistryGet()
	if err != nil {
		return nil, err
	}
	if !ok || registry == nil {
		return nil, errRegistryMissing
	}
	return registry, nil
}

func (e *Engine) loadParticipant(id string) (*Advertisement, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ad, ok, err := e.state.AdsParticipantGet(strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if !ok || ad == nil {
		return nil, errParticipantAbsent
	}
	return ad, nil
}

// CreateRegistry initialises the singleton registry.
func (e *Engine) CreateRegistry(admin common.Address, submissionFee *big.Int) (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if submissionFee != nil && submissionFee.Sign() < 0 {
		return nil, errInvalidFee
	}
	if _, ok, err := e.state.AdsRegistryGet(); err != nil {
		return nil, err
	} else if ok {
		return nil, errRegistryExists
	}
	registry := &Registry{Admin: admin, ActiveIDs: []string{}, SubmissionFee: copyAmount(submissionFee)}
	if err := e.state.AdsRegistryPut(registry); err != nil {
		return nil, err
	}
	return registry.Clone(), nil
}

// Registry returns a copy of the registry.
func (e *Engine) Registry() (*Registry, error) {
	registry, err := e.loadRegistry()
	if err != nil {
		return nil, err
	}
	return registry.Clone(), nil
}

// Participant returns a copy of the identified advertisement.
func (e *Engine) Participant(id string) (*Advertisement, error) {
	ad, err := e.loadParticipant(id)
	if err != nil {
		return nil, err
	}
	return ad.Clone(), nil
}

// ActiveIDs returns the active participant ids in submission order.
func (e *Engine) ActiveIDs() ([]string, error) {
	registry, err := e.loadRegistry()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), registry.ActiveIDs...), nil
}

// Submit registers a new participant together with the stake position that
// backs it.
func (e *Engine) Submit(advertiser common.Address, stakeAmount *big.Int, contentRef string) (*Advertisement, error) {
	content := strings.TrimSpace(contentRef)
	if content == "" {
		return nil, errContentRequired
	}
	registry, err := e.loadRegistry()
	if err != nil {
		return nil, err
	}
	if e.stakes == nil {
		return nil, errNilStaking
	}
	fee := copyAmount(registry.SubmissionFee)
	if fee.Sign() > 0 && e.fees == nil {
		return nil, errNilFeeCollector
	}
	id := e.idFn()
	position, err := e.stakes.OpenPosition(advertiser, stakeAmount, id)
	if err != nil {
		return nil, err
	}
	if fee.Sign() > 0 {
		if err := e.fees.CollectFee(FeeSource, fee); err != nil {
			return nil, err
		}
	}
	now := e.now()
	current := e.epochs.Of(now)
	ad := &Advertisement{
		ID:                    id,
		Advertiser:            advertiser,
		ContentReference:      content,
		StakeAmount:           copyAmount(position.Amount),
		LinkedStakePositionID: position.ID,
		EpochCreated:          current,
		TotalVotesReceived:    big.NewInt(0),
		IsActive:              true,
		CreatedAt:             uint64(now),
	}
	registry.ActiveIDs = append(registry.ActiveIDs, id)
	registry.LifetimeSubmissions++
	if err := e.state.AdsParticipantPut(ad); err != nil {
		return nil, err
	}
	if err := e.state.AdsRegistryPut(registry); err != nil {
		return nil, err
	}
	e.emit(events.AdSubmitted{
		ParticipantID: id,
		Advertiser:    advertiser,
		Stake:         copyAmount(position.Amount),
		PositionID:    position.ID,
		Fee:           fee,
		Epoch:         current,
	})
	return ad.Clone(), nil
}

// Deactivate withdraws a participant from the draw. The backing stake stays in
// place until its owner unstakes it.
func (e *Engine) Deactivate(requester common.Address, id string) (*Advertisement, error) {
	registry, err := e.loadRegistry()
	if err != nil {
		return nil, err
	}
	ad, err := e.loadParticipant(id)
	if err != nil {
		return nil, err
	}
	if ad.Advertiser != requester {
		return nil, errNotAdvertiser
	}
	if !ad.IsActive {
		return nil, errAlreadyInactive
	}
	ad.IsActive = false
	registry.remove(ad.ID)
	if err := e.state.AdsParticipantPut(ad); err != nil {
		return nil, err
	}
	if err := e.state.AdsRegistryPut(registry); err != nil {
		return nil, err
	}
	e.emit(events.AdDeactivated{ParticipantID: ad.ID, Advertiser: ad.Advertiser, Epoch: e.epochs.Of(e.now())})
	return ad.Clone(), nil
}

// MarkWinner records a win for the participant and unseals it. The flag only
// ever moves to true; the win counter increments on every call.
func (e *Engine) MarkWinner(id string, lotteryEpoch uint64) (*Advertisement, error) {
	ad, err := e.loadParticipant(id)
	if err != nil {
		return nil, err
	}
	ad.WinsCount++
	firstWin := !ad.IsUnsealed
	ad.IsUnsealed = true
	if err := e.state.AdsParticipantPut(ad); err != nil {
		return nil, err
	}
	if firstWin {
		e.emit(events.AdUnsealed{ParticipantID: ad.ID, Content: ad.ContentReference, Epoch: lotteryEpoch})
	}
	return ad.Clone(), nil
}

// RecordVote adds power to the participant's lifetime tally.
func (e *Engine) RecordVote(id string, power *big.Int) error {
	if power == nil || power.Sign() <= 0 {
		return errInvalidPower
	}
	ad, err := e.loadParticipant(id)
	if err != nil {
		return err
	}
	if !ad.IsActive {
		return ErrInactive
	}
	ad.TotalVotesReceived = new(big.Int).Add(copyAmount(ad.TotalVotesReceived), power)
	ad.VoteCount++
	return e.state.AdsParticipantPut(ad)
}
