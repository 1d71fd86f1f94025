package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"adlottery/core/events"
	"adlottery/native/ads"
	"adlottery/native/attendance"
	"adlottery/native/lottery"
	"adlottery/native/staking"
	"adlottery/native/treasury"
	"adlottery/native/voting"
)

// Pool returns the committed staking pool.
func (a *App) Pool(ctx context.Context) (*staking.Pool, error) {
	var pool *staking.Pool
	err := a.view(ctx, lockPool, func(l *ledger) error {
		var err error
		pool, err = l.staking.Pool()
		return err
	})
	return pool, err
}

// Position returns a committed stake position.
func (a *App) Position(ctx context.Context, id string) (*staking.Position, error) {
	var position *staking.Position
	err := a.view(ctx, lockPool, func(l *ledger) error {
		var err error
		position, err = l.staking.Position(id)
		return err
	})
	return position, err
}

// PendingYield reports the yield a position would receive if claimed now.
func (a *App) PendingYield(ctx context.Context, id string) (*big.Int, error) {
	var pending *big.Int
	err := a.view(ctx, lockPool, func(l *ledger) error {
		var err error
		pending, err = l.staking.PendingYield(id)
		return err
	})
	return pending, err
}

// Positions lists every live position.
func (a *App) Positions(ctx context.Context) ([]*staking.Position, error) {
	var out []*staking.Position
	err := a.view(ctx, lockPool, func(l *ledger) error {
		ids, err := l.state.StakingPositionIDs()
		if err != nil {
			return err
		}
		out = make([]*staking.Position, 0, len(ids))
		for _, id := range ids {
			position, err := l.staking.Position(id)
			if err != nil {
				return err
			}
			out = append(out, position)
		}
		return nil
	})
	return out, err
}

// Registry returns the committed ad registry.
func (a *App) Registry(ctx context.Context) (*ads.Registry, error) {
	var registry *ads.Registry
	err := a.view(ctx, lockRegistry, func(l *ledger) error {
		var err error
		registry, err = l.ads.Registry()
		return err
	})
	return registry, err
}

// Participant returns a committed advertisement.
func (a *App) Participant(ctx context.Context, id string) (*ads.Advertisement, error) {
	var ad *ads.Advertisement
	err := a.view(ctx, lockRegistry, func(l *ledger) error {
		var err error
		ad, err = l.ads.Participant(id)
		return err
	})
	return ad, err
}

// Participants lists every advertisement ever submitted, in submission order.
func (a *App) Participants(ctx context.Context) ([]*ads.Advertisement, error) {
	var out []*ads.Advertisement
	err := a.view(ctx, lockRegistry, func(l *ledger) error {
		ids, err := l.state.AdsParticipantIDs()
		if err != nil {
			return err
		}
		out = make([]*ads.Advertisement, 0, len(ids))
		for _, id := range ids {
			ad, err := l.ads.Participant(id)
			if err != nil {
				return err
			}
			out = append(out, ad)
		}
		return nil
	})
	return out, err
}

// LotteryConfig returns the committed coordinator state.
func (a *App) LotteryConfig(ctx context.Context) (*lottery.Config, error) {
	var cfg *lottery.Config
	err := a.view(ctx, lockEpoch, func(l *ledger) error {
		var err error
		cfg, err = l.lottery.Config()
		return err
	})
	return cfg, err
}

// PastWinners returns the confirmed winners in epoch order.
func (a *App) PastWinners(ctx context.Context) ([]*lottery.PastWinner, error) {
	var winners []*lottery.PastWinner
	err := a.view(ctx, lockEpoch, func(l *ledger) error {
		var err error
		winners, err = l.lottery.PastWinners()
		return err
	})
	return winners, err
}

// VotingRecord returns the vote totals of a lottery epoch.
func (a *App) VotingRecord(ctx context.Context, epoch uint64) (*voting.Record, error) {
	var record *voting.Record
	err := a.view(ctx, lockEpoch, func(l *ledger) error {
		var err error
		record, err = l.voting.Record(epoch)
		return err
	})
	return record, err
}

// Vote returns a committed vote.
func (a *App) Vote(ctx context.Context, id string) (*voting.Vote, error) {
	var vote *voting.Vote
	err := a.view(ctx, lockEpoch, func(l *ledger) error {
		var err error
		vote, err = l.voting.Vote(id)
		return err
	})
	return vote, err
}

// Session returns the committed verification session.
func (a *App) Session(ctx context.Context) (*attendance.Session, error) {
	var session *attendance.Session
	err := a.view(ctx, lockSession, func(l *ledger) error {
		var err error
		session, err = l.attendance.Session()
		return err
	})
	return session, err
}

// Registered reports whether addr is registered in the current generation.
func (a *App) Registered(ctx context.Context, addr common.Address) (bool, error) {
	var registered bool
	err := a.view(ctx, lockSession, func(l *ledger) error {
		var err error
		registered, err = l.attendance.Registered(addr)
		return err
	})
	return registered, err
}

// Treasury returns the committed treasury.
func (a *App) Treasury(ctx context.Context) (*treasury.Treasury, error) {
	var t *treasury.Treasury
	err := a.view(ctx, lockTreasury, func(l *ledger) error {
		var err error
		t, err = l.treasury.Treasury()
		return err
	})
	return t, err
}

// Events pages through the committed event log. limit defaults to 100. The
// log takes no entity lock; a page ends at the last record visible when it
// is read.
func (a *App) Events(ctx context.Context, after uint64, limit int) ([]events.Record, error) {
	var out []events.Record
	err := a.view(ctx, 0, func(l *ledger) error {
		var err error
		out, err = l.state.EventsAfter(after, limit)
		return err
	})
	return out, err
}
