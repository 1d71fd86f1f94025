package voting

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	errs "adlottery/core/errors"
	"adlottery/core/events"
	"adlottery/native/ads"
	"adlottery/native/staking"
	"adlottery/native/treasury"
)

var (
	errNilState         = errs.New(errs.KindInternal, "voting: state not configured")
	errNilCollaborator  = errs.New(errs.KindInternal, "voting: collaborators not configured")
	errVoteNotFound     = errs.State("voting: vote not found")
	errNotPositionOwner = errs.Authorization("voting: caller does not own the stake position")
	errNotVoter         = errs.Authorization("voting: caller is not the voter")
	errNotAdmin         = errs.Authorization("voting: caller is not the lottery admin")
	errInvalidPool      = errs.Resource("voting: reward pool must not be negative")
	errReserveShort     = errs.Resource("voting: reward pool exceeds voting reserve")
	errPositionGone     = errs.State("voting: linked stake position no longer exists")

	// ErrWindowClosed is returned when votes are cast outside the voting window.
	ErrWindowClosed = errs.State("voting: epoch not accepting votes")
	// ErrAlreadyVoted is returned when an address votes twice in one record.
	ErrAlreadyVoted = errs.State("voting: address already voted this epoch")
	// ErrAlreadyClaimed is returned when a vote's reward has been claimed.
	ErrAlreadyClaimed = errs.State("voting: reward already claimed")
	// ErrEpochMismatch is returned when a claim names a record of another epoch.
	ErrEpochMismatch = errs.Integrity("voting: vote epoch does not match record")
)

type engineState interface {
	VotingRecordGet(epoch uint64) (*Record, bool, error)
	VotingRecordPut(record *Record) error
	VotingVoteGet(id string) (*Vote, bool, error)
	VotingVotePut(vote *Vote) error
	VotingTallyGet(epoch uint64, participantID string) (*big.Int, error)
	VotingTallyPut(epoch uint64, participantID string, total *big.Int) error
}

// positions exposes the stake ledger to the tally.
type positions interface {
	Position(id string) (*staking.Position, error)
	CreditAdvertiserYield(id string, amount *big.Int) error
}

// participants exposes the registry to the tally.
type participants interface {
	Participant(id string) (*ads.Advertisement, error)
	RecordVote(id string, power *big.Int) error
}

// epochs exposes the coordinator state the tally depends on.
type epochs interface {
	Admin() (common.Address, error)
	CurrentEpoch() (uint64, error)
	VotingOpen() (bool, error)
}

// rewardReserve funds voting rewards.
type rewardReserve interface {
	VotingRewardReserve() (*big.Int, error)
	WithdrawVotingRewards(caller common.Address, amount *big.Int) (*big.Int, error)
}

// Engine records votes and settles voting rewards.
type Engine struct {
	state        engineState
	emitter      events.Emitter
	nowFn        func() int64
	idFn         func() string
	positions    positions
	participants participants
	epochs       epochs
	reserve      rewardReserve
	account      common.Address
}

// NewEngine constructs a tally engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().UnixMilli() },
		idFn:    uuid.NewString,
		account: treasury.ModuleAddress(treasury.ModuleVoting),
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

// SetIDFunc overrides the vote id generator.
func (e *Engine) SetIDFunc(fn func() string) {
	if fn == nil {
		e.idFn = uuid.NewString
		return
	}
	e.idFn = fn
}

// SetPositions wires the stake ledger.
func (e *Engine) SetPositions(p positions) { e.positions = p }

// SetParticipants wires the advertisement registry.
func (e *Engine) SetParticipants(p participants) { e.participants = p }

// SetEpochs wires the epoch coordinator.
func (e *Engine) SetEpochs(src epochs) { e.epochs = src }

// SetRewardReserve wires the treasury reserve that funds rewards.
func (e *Engine) SetRewardReserve(r rewardReserve) { e.reserve = r }

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

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.positions == nil || e.participants == nil || e.epochs == nil {
		return errNilCollaborator
	}
	return nil
}

func (e *Engine) loadRecord(epoch uint64) (*Record, error) {
	record, ok, err := e.state.VotingRecordGet(epoch)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return NewRecord(epoch), nil
	}
	return record, nil
}

// Record returns the record for epoch. Epochs without votes yield an empty
// record.
func (e *Engine) Record(epoch uint64) (*Record, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, err := e.loadRecord(epoch)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// Vote returns a copy of the identified vote.
func (e *Engine) Vote(id string) (*Vote, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	vote, ok, err := e.state.VotingVoteGet(strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if !ok || vote == nil {
		return nil, errVoteNotFound
	}
	return vote.Clone(), nil
}

// EpochVotes returns the power accumulated by participantID during epoch.
func (e *Engine) EpochVotes(epoch uint64, participantID string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	total, err := e.state.VotingTallyGet(epoch, participantID)
	if err != nil {
		return nil, err
	}
	return copyAmount(total), nil
}

// CastVote records a vote for participantID weighted by the caller's stake
// position. The power is snapshotted from the position amount at cast time.
func (e *Engine) CastVote(voter common.Address, participantID string, positionID string) (*Vote, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	position, err := e.positions.Position(positionID)
	if err != nil {
		return nil, err
	}
	if position.Owner != voter {
		return nil, errNotPositionOwner
	}
	open, err := e.epochs.VotingOpen()
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, ErrWindowClosed
	}
	current, err := e.epochs.CurrentEpoch()
	if err != nil {
		return nil, err
	}
	record, err := e.loadRecord(current)
	if err != nil {
		return nil, err
	}
	if record.HasVoted(voter) {
		return nil, ErrAlreadyVoted
	}
	participant, err := e.participants.Participant(participantID)
	if err != nil {
		return nil, err
	}
	if !participant.IsActive {
		return nil, ads.ErrInactive
	}
	power := copyAmount(position.Amount)
	if err := e.participants.RecordVote(participant.ID, power); err != nil {
		return nil, err
	}
	tally, err := e.state.VotingTallyGet(current, participant.ID)
	if err != nil {
		return nil, err
	}
	tally = new(big.Int).Add(copyAmount(tally), power)
	if err := e.state.VotingTallyPut(current, participant.ID, tally); err != nil {
		return nil, err
	}
	record.TotalVotes = new(big.Int).Add(copyAmount(record.TotalVotes), power)
	record.Voters = append(record.Voters, voter)
	if err := e.state.VotingRecordPut(record); err != nil {
		return nil, err
	}
	vote := &Vote{
		ID:                    e.idFn(),
		Voter:                 voter,
		ParticipantID:         participant.ID,
		LinkedStakePositionID: position.ID,
		VotingPower:           power,
		Epoch:                 current,
		CastAt:                uint64(e.now()),
	}
	if err := e.state.VotingVotePut(vote); err != nil {
		return nil, err
	}
	e.emit(events.VoteCast{
		VoteID:        vote.ID,
		Voter:         voter,
		ParticipantID: participant.ID,
		PositionID:    position.ID,
		Power:         copyAmount(power),
		Epoch:         current,
		EpochTotal:    copyAmount(tally),
	})
	return vote.Clone(), nil
}

// ClaimVotingReward settles the reward of a vote into its linked stake
// position. A zero reward marks the vote claimed without moving funds.
func (e *Engine) ClaimVotingReward(caller common.Address, voteID string, epoch uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	vote, ok, err := e.state.VotingVoteGet(strings.TrimSpace(voteID))
	if err != nil {
		return nil, err
	}
	if !ok || vote == nil {
		return nil, errVoteNotFound
	}
	if vote.Voter != caller {
		return nil, errNotVoter
	}
	if vote.RewardClaimed {
		return nil, ErrAlreadyClaimed
	}
	if vote.Epoch != epoch {
		return nil, errs.Wrap(errs.KindIntegrity, ErrEpochMismatch, "vote epoch %d, record epoch %d", vote.Epoch, epoch)
	}
	record, err := e.loadRecord(epoch)
	if err != nil {
		return nil, err
	}
	reward := RewardFor(vote.VotingPower, record.RewardPerVote)
	if reward.Sign() > 0 {
		if _, err := e.positions.Position(vote.LinkedStakePositionID); err != nil {
			if errs.IsState(err) {
				return nil, errs.Wrap(errs.KindState, errPositionGone, "%s", vote.LinkedStakePositionID)
			}
			return nil, err
		}
		if e.reserve == nil {
			return nil, errNilCollaborator
		}
		if _, err := e.reserve.WithdrawVotingRewards(e.account, reward); err != nil {
			return nil, err
		}
		if err := e.positions.CreditAdvertiserYield(vote.LinkedStakePositionID, reward); err != nil {
			return nil, err
		}
	}
	vote.RewardClaimed = true
	if err := e.state.VotingVotePut(vote); err != nil {
		return nil, err
	}
	e.emit(events.VoteRewardClaimed{
		VoteID:     vote.ID,
		Voter:      vote.Voter,
		PositionID: vote.LinkedStakePositionID,
		Reward:     copyAmount(reward),
		Epoch:      vote.Epoch,
	})
	return reward, nil
}

// DistributeVotingRewards fixes the reward per vote for epoch from poolAmount.
// Records without votes keep their current rate.
func (e *Engine) DistributeVotingRewards(caller common.Address, epoch uint64, poolAmount *big.Int) (*Record, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if poolAmount == nil || poolAmount.Sign() < 0 {
		return nil, errInvalidPool
	}
	admin, err := e.epochs.Admin()
	if err != nil {
		return nil, err
	}
	if caller != admin {
		return nil, errNotAdmin
	}
	if e.reserve == nil {
		return nil, errNilCollaborator
	}
	available, err := e.reserve.VotingRewardReserve()
	if err != nil {
		return nil, err
	}
	if poolAmount.Cmp(available) > 0 {
		return nil, errs.Wrap(errs.KindResource, errReserveShort, "reserve %s, pool %s", available, poolAmount)
	}
	record, err := e.loadRecord(epoch)
	if err != nil {
		return nil, err
	}
	if rpv := RewardPerVoteFor(poolAmount, record.TotalVotes); rpv != nil {
		record.RewardPerVote = rpv
		record.RewardPool = new(big.Int).Set(poolAmount)
		if err := e.state.VotingRecordPut(record); err != nil {
			return nil, err
		}
	}
	e.emit(events.VoteRewardsDistributed{
		Epoch:         epoch,
		PoolAmount:    new(big.Int).Set(poolAmount),
		TotalVotes:    copyAmount(record.TotalVotes),
		RewardPerVote: copyAmount(record.RewardPerVote),
	})
	return record.Clone(), nil
}
