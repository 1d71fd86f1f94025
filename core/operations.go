package core

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	errs "adlottery/core/errors"
	"adlottery/native/ads"
	"adlottery/native/attendance"
	"adlottery/native/lottery"
	"adlottery/native/staking"
	"adlottery/native/treasury"
	"adlottery/native/voting"
	"adlottery/observability/logging"
)

var errStakeBacksActiveAd = errs.State("core: position backs an active advertisement")

// CreatePool initialises the staking pool singleton.
func (a *App) CreatePool(ctx context.Context, admin common.Address, params staking.Params) (*staking.Pool, error) {
	var pool *staking.Pool
	err := a.run(ctx, "create_pool", lockPool, func(l *ledger) error {
		var err error
		pool, err = l.staking.CreatePool(admin, params)
		return err
	})
	return pool, err
}

// CreateRegistry initialises the ad registry singleton.
func (a *App) CreateRegistry(ctx context.Context, admin common.Address, submissionFee *big.Int) (*ads.Registry, error) {
	var registry *ads.Registry
	err := a.run(ctx, "create_registry", lockRegistry, func(l *ledger) error {
		var err error
		registry, err = l.ads.CreateRegistry(admin, submissionFee)
		return err
	})
	return registry, err
}

// CreateConfig initialises the epoch coordinator singleton.
func (a *App) CreateConfig(ctx context.Context, admin common.Address, params lottery.ConfigParams) (*lottery.Config, error) {
	var cfg *lottery.Config
	err := a.run(ctx, "create_config", lockEpoch, func(l *ledger) error {
		var err error
		cfg, err = l.lottery.CreateConfig(admin, params)
		return err
	})
	return cfg, err
}

// CreateSession initialises the verification session singleton.
func (a *App) CreateSession(ctx context.Context, admin common.Address, params attendance.SessionParams) (*attendance.Session, error) {
	var session *attendance.Session
	err := a.run(ctx, "create_session", lockSession, func(l *ledger) error {
		var err error
		session, err = l.attendance.CreateSession(admin, params)
		return err
	})
	return session, err
}

// CreateTreasury initialises the treasury singleton. The staking, voting and
// attendance module accounts are authorized in addition to extra.
func (a *App) CreateTreasury(ctx context.Context, admin common.Address, extra []common.Address) (*treasury.Treasury, error) {
	var t *treasury.Treasury
	err := a.run(ctx, "create_treasury", lockTreasury, func(l *ledger) error {
		var err error
		t, err = l.treasury.CreateTreasury(admin, extra)
		return err
	})
	return t, err
}

// Stake opens an unlinked position for owner.
func (a *App) Stake(ctx context.Context, owner common.Address, amount *big.Int) (*staking.Position, error) {
	var position *staking.Position
	err := a.run(ctx, "stake", lockPool, func(l *ledger) error {
		var err error
		position, err = l.staking.Stake(owner, amount)
		return err
	})
	return position, err
}

// Unstake closes a position and releases principal, yield and credited
// rewards. Positions backing an active advertisement are rejected until the
// advertisement is deactivated.
func (a *App) Unstake(ctx context.Context, caller common.Address, positionID string) (*staking.Payout, error) {
	var payout *staking.Payout
	err := a.run(ctx, "unstake", lockRegistry|lockPool|lockTreasury, func(l *ledger) error {
		position, err := l.staking.Position(positionID)
		if err != nil {
			return err
		}
		if position.LinkedParticipantID != "" {
			ad, err := l.ads.Participant(position.LinkedParticipantID)
			switch {
			case err == nil && ad.IsActive:
				return errs.Wrap(errs.KindState, errStakeBacksActiveAd, "%s", ad.ID)
			case err != nil && !errs.IsState(err):
				return err
			}
		}
		payout, err = l.staking.Unstake(caller, positionID)
		return err
	})
	return payout, err
}

// ClaimRewards pays the accrued yield and credited rewards of a position.
func (a *App) ClaimRewards(ctx context.Context, caller common.Address, positionID string) (*big.Int, error) {
	var paid *big.Int
	err := a.run(ctx, "claim_rewards", lockPool|lockTreasury, func(l *ledger) error {
		var err error
		paid, err = l.staking.ClaimRewards(caller, positionID)
		return err
	})
	return paid, err
}

// SetAPY updates the pool's annual rate. Admin only.
func (a *App) SetAPY(ctx context.Context, caller common.Address, apyBps uint64) (*staking.Pool, error) {
	var pool *staking.Pool
	err := a.run(ctx, "set_apy", lockPool, func(l *ledger) error {
		var err error
		pool, err = l.staking.SetAPY(caller, apyBps)
		return err
	})
	return pool, err
}

// Submit registers an advertisement backed by a new stake position.
func (a *App) Submit(ctx context.Context, advertiser common.Address, stakeAmount *big.Int, contentRef string) (*ads.Advertisement, error) {
	var ad *ads.Advertisement
	err := a.run(ctx, "submit", lockRegistry|lockPool|lockTreasury, func(l *ledger) error {
		var err error
		ad, err = l.ads.Submit(advertiser, stakeAmount, contentRef)
		return err
	})
	if err == nil {
		a.logger.Debug("advertisement submitted",
			slog.String("participant", ad.ID),
			logging.MaskField("content", ad.ContentReference))
	}
	return ad, err
}

// Deactivate removes an advertisement from the draw.
func (a *App) Deactivate(ctx context.Context, requester common.Address, participantID string) (*ads.Advertisement, error) {
	var ad *ads.Advertisement
	err := a.run(ctx, "deactivate", lockRegistry, func(l *ledger) error {
		var err error
		ad, err = l.ads.Deactivate(requester, participantID)
		return err
	})
	return ad, err
}

// CastVote records voter's vote for participantID weighted by the stake of
// positionID.
func (a *App) CastVote(ctx context.Context, voter common.Address, participantID, positionID string) (*voting.Vote, error) {
	var vote *voting.Vote
	err := a.run(ctx, "cast_vote", lockRegistry|lockPool|lockEpoch, func(l *ledger) error {
		var err error
		vote, err = l.voting.CastVote(voter, participantID, positionID)
		return err
	})
	return vote, err
}

// ClaimVotingReward credits a vote's reward into its linked position.
func (a *App) ClaimVotingReward(ctx context.Context, caller common.Address, voteID string, epoch uint64) (*big.Int, error) {
	var reward *big.Int
	err := a.run(ctx, "claim_voting_reward", lockPool|lockEpoch|lockTreasury, func(l *ledger) error {
		var err error
		reward, err = l.voting.ClaimVotingReward(caller, voteID, epoch)
		return err
	})
	return reward, err
}

// DistributeVotingRewards fixes the reward per vote of an epoch.
func (a *App) DistributeVotingRewards(ctx context.Context, caller common.Address, epoch uint64, poolAmount *big.Int) (*voting.Record, error) {
	var record *voting.Record
	err := a.run(ctx, "distribute_voting_rewards", lockEpoch|lockTreasury, func(l *ledger) error {
		var err error
		record, err = l.voting.DistributeVotingRewards(caller, epoch, poolAmount)
		return err
	})
	return record, err
}

// PickWinner draws the pending winner of the current epoch.
func (a *App) PickWinner(ctx context.Context) (string, error) {
	var (
		winner   string
		strategy lottery.Strategy
	)
	err := a.run(ctx, "pick_winner", lockRegistry|lockEpoch, func(l *ledger) error {
		var err error
		if winner, err = l.lottery.PickWinner(); err != nil {
			return err
		}
		cfg, err := l.lottery.Config()
		if err != nil {
			return err
		}
		strategy = cfg.Strategy
		return nil
	})
	if err == nil {
		a.metrics.IncDraw(string(strategy))
	}
	return winner, err
}

// FinalizeEpoch confirms the pending winner and advances the epoch.
func (a *App) FinalizeEpoch(ctx context.Context, participantID string) (*lottery.PastWinner, error) {
	var winner *lottery.PastWinner
	err := a.run(ctx, "finalize_epoch", lockRegistry|lockEpoch, func(l *ledger) error {
		var err error
		winner, err = l.lottery.FinalizeEpoch(participantID)
		return err
	})
	return winner, err
}

// RegisterAttendance appends caller to the current viewer generation.
func (a *App) RegisterAttendance(ctx context.Context, caller common.Address, participantID string) (*attendance.Registration, error) {
	var reg *attendance.Registration
	err := a.run(ctx, "register_attendance", lockSession, func(l *ledger) error {
		var err error
		reg, err = l.attendance.RegisterAttendance(caller, participantID)
		return err
	})
	return reg, err
}

// RotateSession pays the viewer draws and moves the session to the latest
// confirmed winner.
func (a *App) RotateSession(ctx context.Context) ([]attendance.Payout, error) {
	var payouts []attendance.Payout
	err := a.run(ctx, "rotate_session", lockEpoch|lockSession|lockTreasury, func(l *ledger) error {
		var err error
		payouts, err = l.attendance.RotateSession()
		return err
	})
	if err == nil {
		a.metrics.AddPayouts(len(payouts))
	}
	return payouts, err
}

// DepositYield funds the yield reserve.
func (a *App) DepositYield(ctx context.Context, amount *big.Int) (*big.Int, error) {
	return a.treasuryOp(ctx, "deposit_yield", func(e *treasury.Engine) (*big.Int, error) {
		return e.DepositYield(amount)
	})
}

// WithdrawYield draws on the yield reserve for an authorized caller.
func (a *App) WithdrawYield(ctx context.Context, caller common.Address, amount *big.Int) (*big.Int, error) {
	return a.treasuryOp(ctx, "withdraw_yield", func(e *treasury.Engine) (*big.Int, error) {
		return e.WithdrawYield(caller, amount)
	})
}

// DepositVotingRewards funds the voting reward reserve.
func (a *App) DepositVotingRewards(ctx context.Context, amount *big.Int) (*big.Int, error) {
	return a.treasuryOp(ctx, "deposit_voting_rewards", func(e *treasury.Engine) (*big.Int, error) {
		return e.DepositVotingRewards(amount)
	})
}

// WithdrawGeneral moves funds out of the general balance. Admin only.
func (a *App) WithdrawGeneral(ctx context.Context, caller common.Address, amount *big.Int) (*big.Int, error) {
	return a.treasuryOp(ctx, "withdraw_general", func(e *treasury.Engine) (*big.Int, error) {
		return e.WithdrawGeneral(caller, amount)
	})
}

// CollectFee credits amount to the general balance.
func (a *App) CollectFee(ctx context.Context, source string, amount *big.Int) error {
	return a.run(ctx, "collect_fee", lockTreasury, func(l *ledger) error {
		return l.treasury.CollectFee(source, amount)
	})
}

func (a *App) treasuryOp(ctx context.Context, op string, fn func(*treasury.Engine) (*big.Int, error)) (*big.Int, error) {
	var balance *big.Int
	err := a.run(ctx, op, lockTreasury, func(l *ledger) error {
		var err error
		balance, err = fn(l.treasury)
		return err
	})
	return balance, err
}
