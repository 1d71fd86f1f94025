package lottery

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"adlottery/core/epoch"
	errs "adlottery/core/errors"
	"adlottery/core/events"
	"adlottery/core/random"
	"adlottery/native/ads"
)

var (
	errNilState       = errs.New(errs.KindInternal, "lottery: state not configured")
	errNilRegistry    = errs.New(errs.KindInternal, "lottery: registry not configured")
	errNilRandomness  = errs.New(errs.KindInternal, "lottery: randomness provider not configured")
	errNilTally       = errs.New(errs.KindInternal, "lottery: vote tally not configured")
	errConfigExists   = errs.State("lottery: config already created")
	errConfigMissing  = errs.State("lottery: config not created")
	errNoCandidates   = errs.State("lottery: no active participants")
	errDrawTooSoon    = errs.State("lottery: draw interval has not elapsed")
	errIndexOutOfSet  = errs.New(errs.KindInternal, "lottery: random index outside candidate set")
	errUnknownVariant = errs.State("lottery: unknown strategy")

	// ErrDrawPending is returned when a draw is requested while a winner
	// awaits confirmation.
	ErrDrawPending = errs.State("lottery: draw already pending")
	// ErrNoPending is returned when finalizing without a pending winner.
	ErrNoPending = errs.State("lottery: no pending winner")
	// ErrWinnerMismatch is returned when the finalized participant differs
	// from the pending commitment.
	ErrWinnerMismatch = errs.Integrity("lottery: participant does not match pending winner")
)

type engineState interface {
	LotteryConfigGet() (*Config, bool, error)
	LotteryConfigPut(cfg *Config) error
	LotteryWinnerAppend(winner *PastWinner) error
	LotteryWinners() ([]*PastWinner, error)
}

// registry exposes the active set and records confirmed wins.
type registry interface {
	ActiveIDs() ([]string, error)
	MarkWinner(id string, lotteryEpoch uint64) (*ads.Advertisement, error)
}

// tally reports per-epoch accumulated voting power.
type tally interface {
	EpochVotes(lotteryEpoch uint64, participantID string) (*big.Int, error)
}

// Engine drives the two-phase draw state machine.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	nowFn    func() int64
	registry registry
	tally    tally
	rng      random.Provider
}

// NewEngine constructs a coordinator with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().UnixMilli() },
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

// SetRegistry wires the advertisement registry.
func (e *Engine) SetRegistry(r registry) { e.registry = r }

// SetTally wires the vote tally used by the votes strategy.
func (e *Engine) SetTally(t tally) { e.tally = t }

// SetRandomness wires the provider used by the random strategy.
func (e *Engine) SetRandomness(rng random.Provider) { e.rng = rng }

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

func (e *Engine) load() (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok, err := e.state.LotteryConfigGet()
	if err != nil {
		return nil, err
	}
	if !ok || cfg == nil {
		return nil, errConfigMissing
	}
	return cfg, nil
}

// CreateConfig initialises the coordinator at epoch zero in the idle state.
// The strategy cannot be changed afterwards.
func (e *Engine) CreateConfig(admin common.Address, params ConfigParams) (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	strategy, err := ParseStrategy(string(params.Strategy))
	if err != nil {
		return nil, errs.Wrap(errs.KindState, errUnknownVariant, "%v", err)
	}
	if _, ok, err := e.state.LotteryConfigGet(); err != nil {
		return nil, err
	} else if ok {
		return nil, errConfigExists
	}
	cfg := &Config{
		Admin:          admin,
		Strategy:       strategy,
		EpochStartedAt: uint64(e.now()),
		VotingWindowMs: params.VotingWindowMs,
		DrawIntervalMs: params.DrawIntervalMs,
	}
	if err := e.state.LotteryConfigPut(cfg); err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

// Config returns a copy of the coordinator state.
func (e *Engine) Config() (*Config, error) {
	cfg, err := e.load()
	if err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

// Admin returns the coordinator admin.
func (e *Engine) Admin() (common.Address, error) {
	cfg, err := e.load()
	if err != nil {
		return common.Address{}, err
	}
	return cfg.Admin, nil
}

// CurrentEpoch returns the draw epoch counter.
func (e *Engine) CurrentEpoch() (uint64, error) {
	cfg, err := e.load()
	if err != nil {
		return 0, err
	}
	return cfg.CurrentEpoch, nil
}

// VotingWindow returns the vote acceptance window of the current epoch.
func (e *Engine) VotingWindow() (epoch.Window, error) {
	cfg, err := e.load()
	if err != nil {
		return epoch.Window{}, err
	}
	return epoch.NewWindow(int64(cfg.EpochStartedAt), cfg.VotingWindowMs), nil
}

// VotingOpen reports whether the current epoch accepts votes at the engine
// clock. The check is independent of the pending/idle state.
func (e *Engine) VotingOpen() (bool, error) {
	window, err := e.VotingWindow()
	if err != nil {
		return false, err
	}
	return window.Contains(e.now()), nil
}

// LatestConfirmedWinner returns the most recently finalized participant and
// the epoch it won. An empty id means no epoch has been finalized.
func (e *Engine) LatestConfirmedWinner() (string, uint64, error) {
	cfg, err := e.load()
	if err != nil {
		return "", 0, err
	}
	return cfg.LatestConfirmedWinnerID, cfg.LatestConfirmedEpoch, nil
}

// PastWinners returns the archive of confirmed winners in finalize order.
func (e *Engine) PastWinners() ([]*PastWinner, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.LotteryWinners()
}

// PickWinner selects a pending winner from the active set.
func (e *Engine) PickWinner() (string, error) {
	cfg, err := e.load()
	if err != nil {
		return "", err
	}
	if cfg.HasPending() {
		return "", ErrDrawPending
	}
	now := e.now()
	if cfg.DrawIntervalMs > 0 && cfg.LastDrawTime > 0 && uint64(now) < cfg.LastDrawTime+cfg.DrawIntervalMs {
		return "", errDrawTooSoon
	}
	if e.registry == nil {
		return "", errNilRegistry
	}
	candidates, err := e.registry.ActiveIDs()
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", errNoCandidates
	}
	var winner string
	switch cfg.Strategy {
	case StrategyVotes:
		winner, err = e.pickByVotes(cfg.CurrentEpoch, candidates)
	default:
		winner, err = e.pickRandom(candidates)
	}
	if err != nil {
		return "", err
	}
	cfg.PendingWinnerID = winner
	cfg.PendingEpoch = cfg.CurrentEpoch
	cfg.LastDrawTime = uint64(now)
	if err := e.state.LotteryConfigPut(cfg); err != nil {
		return "", err
	}
	e.emit(events.WinnerPicked{
		Epoch:         cfg.CurrentEpoch,
		ParticipantID: winner,
		Strategy:      string(cfg.Strategy),
		Candidates:    len(candidates),
		DrawnAt:       now,
	})
	return winner, nil
}

func (e *Engine) pickRandom(candidates []string) (string, error) {
	if e.rng == nil {
		return "", errNilRandomness
	}
	idx, err := e.rng.Intn(uint64(len(candidates)))
	if err != nil {
		return "", err
	}
	if idx >= uint64(len(candidates)) {
		return "", errIndexOutOfSet
	}
	return candidates[idx], nil
}

func (e *Engine) pickByVotes(lotteryEpoch uint64, candidates []string) (string, error) {
	if e.tally == nil {
		return "", errNilTally
	}
	winner := candidates[0]
	best := big.NewInt(0)
	for _, id := range candidates {
		votes, err := e.tally.EpochVotes(lotteryEpoch, id)
		if err != nil {
			return "", err
		}
		if votes != nil && votes.Cmp(best) > 0 {
			winner = id
			best = votes
		}
	}
	return winner, nil
}

// FinalizeEpoch confirms the pending winner and advances the epoch counter.
func (e *Engine) FinalizeEpoch(participantID string) (*PastWinner, error) {
	cfg, err := e.load()
	if err != nil {
		return nil, err
	}
	if !cfg.HasPending() {
		return nil, ErrNoPending
	}
	id := strings.TrimSpace(participantID)
	if id != cfg.PendingWinnerID {
		return nil, errs.Wrap(errs.KindIntegrity, ErrWinnerMismatch, "pending %s, supplied %s", cfg.PendingWinnerID, id)
	}
	if e.registry == nil {
		return nil, errNilRegistry
	}
	if _, err := e.registry.MarkWinner(id, cfg.CurrentEpoch); err != nil {
		return nil, err
	}
	now := uint64(e.now())
	winner := &PastWinner{Epoch: cfg.CurrentEpoch, WinnerID: id, Timestamp: now}
	if err := e.state.LotteryWinnerAppend(winner); err != nil {
		return nil, err
	}
	cfg.LatestConfirmedWinnerID = id
	cfg.LatestConfirmedEpoch = cfg.CurrentEpoch
	cfg.PendingWinnerID = ""
	cfg.PendingEpoch = 0
	cfg.CurrentEpoch++
	cfg.EpochStartedAt = now
	if err := e.state.LotteryConfigPut(cfg); err != nil {
		return nil, err
	}
	e.emit(events.EpochFinalized{
		Epoch:         winner.Epoch,
		NextEpoch:     cfg.CurrentEpoch,
		ParticipantID: id,
		FinalizedAt:   int64(now),
	})
	return winner, nil
}
