package core

import (
	"context"
	"fmt"

	"adlottery/config"
	"adlottery/native/attendance"
	"adlottery/native/lottery"
	"adlottery/native/staking"
)

// Bootstrap creates every singleton that does not exist yet from g. Reserves
// are seeded only when the treasury is created by this call, so restarting a
// node against an existing database changes nothing.
func (a *App) Bootstrap(ctx context.Context, g config.Genesis) error {
	if !g.HasAdmin() {
		return fmt.Errorf("genesis: treasury admin required")
	}
	return a.run(ctx, "bootstrap", lockAll, func(l *ledger) error {
		if _, ok, err := l.state.TreasuryGet(); err != nil {
			return err
		} else if !ok {
			if _, err := l.treasury.CreateTreasury(g.Admin, g.Authorized); err != nil {
				return err
			}
			if g.SeedYield != nil && g.SeedYield.Sign() > 0 {
				if _, err := l.treasury.DepositYield(g.SeedYield); err != nil {
					return err
				}
			}
			if g.SeedVotingRewards != nil && g.SeedVotingRewards.Sign() > 0 {
				if _, err := l.treasury.DepositVotingRewards(g.SeedVotingRewards); err != nil {
					return err
				}
			}
		}
		if _, ok, err := l.state.StakingPoolGet(); err != nil {
			return err
		} else if !ok {
			params := staking.Params{APYRateBps: g.APYRateBps, MinStake: g.MinStake, MaxStake: g.MaxStake}
			if _, err := l.staking.CreatePool(g.Admin, params); err != nil {
				return err
			}
		}
		if _, ok, err := l.state.AdsRegistryGet(); err != nil {
			return err
		} else if !ok {
			if _, err := l.ads.CreateRegistry(g.Admin, g.SubmissionFee); err != nil {
				return err
			}
		}
		if _, ok, err := l.state.LotteryConfigGet(); err != nil {
			return err
		} else if !ok {
			params := lottery.ConfigParams{
				Strategy:       g.Strategy,
				VotingWindowMs: g.VotingWindowMs,
				DrawIntervalMs: g.DrawIntervalMs,
			}
			if _, err := l.lottery.CreateConfig(g.Admin, params); err != nil {
				return err
			}
		}
		if _, ok, err := l.state.AttendanceSessionGet(); err != nil {
			return err
		} else if !ok {
			params := attendance.SessionParams{
				PayoutCap:       g.PayoutCap,
				RewardPerPayout: g.RewardPerPayout,
				RetainHistory:   g.RetainHistory,
			}
			if _, err := l.attendance.CreateSession(g.Admin, params); err != nil {
				return err
			}
		}
		return nil
	})
}
