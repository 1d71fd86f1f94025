package core

import (
	"adlottery/core/events"
	ledgerstate "adlottery/core/state"
	"adlottery/native/ads"
	"adlottery/native/attendance"
	"adlottery/native/lottery"
	"adlottery/native/staking"
	"adlottery/native/treasury"
	"adlottery/native/voting"
)

// ledger bundles the engines of one operation, all bound to the same staging
// overlay and event buffer.
type ledger struct {
	state      *ledgerstate.Manager
	treasury   *treasury.Engine
	staking    *staking.Engine
	ads        *ads.Engine
	voting     *voting.Engine
	lottery    *lottery.Engine
	attendance *attendance.Engine
}

func (a *App) newLedger(manager *ledgerstate.Manager, buffer *events.Buffer) *ledger {
	var emitter events.Emitter = events.NoopEmitter{}
	if buffer != nil {
		emitter = buffer
	}
	l := &ledger{
		state:      manager,
		treasury:   a.newTreasuryEngine(manager, emitter),
		staking:    staking.NewEngine(),
		ads:        ads.NewEngine(),
		voting:     voting.NewEngine(),
		lottery:    lottery.NewEngine(),
		attendance: attendance.NewEngine(),
	}

	l.staking.SetState(manager)
	l.staking.SetEmitter(emitter)
	l.staking.SetNowFunc(a.nowFn)
	l.staking.SetIDFunc(a.idFn)
	l.staking.SetEpochConfig(a.epochs)
	l.staking.SetYieldSource(l.treasury)

	l.ads.SetState(manager)
	l.ads.SetEmitter(emitter)
	l.ads.SetNowFunc(a.nowFn)
	l.ads.SetIDFunc(a.idFn)
	l.ads.SetEpochConfig(a.epochs)
	l.ads.SetStakeOpener(l.staking)
	l.ads.SetFeeCollector(l.treasury)

	l.voting.SetState(manager)
	l.voting.SetEmitter(emitter)
	l.voting.SetNowFunc(a.nowFn)
	l.voting.SetIDFunc(a.idFn)
	l.voting.SetPositions(l.staking)
	l.voting.SetParticipants(l.ads)
	l.voting.SetEpochs(l.lottery)
	l.voting.SetRewardReserve(l.treasury)

	l.lottery.SetState(manager)
	l.lottery.SetEmitter(emitter)
	l.lottery.SetNowFunc(a.nowFn)
	l.lottery.SetRegistry(l.ads)
	l.lottery.SetTally(l.voting)
	l.lottery.SetRandomness(a.rng)

	l.attendance.SetState(manager)
	l.attendance.SetEmitter(emitter)
	l.attendance.SetWinnerSource(l.lottery)
	l.attendance.SetPayer(l.treasury)
	l.attendance.SetRandomness(a.rng)
	return l
}

func (a *App) newTreasuryEngine(manager *ledgerstate.Manager, emitter events.Emitter) *treasury.Engine {
	engine := treasury.NewEngine()
	engine.SetState(manager)
	engine.SetEmitter(emitter)
	return engine
}
