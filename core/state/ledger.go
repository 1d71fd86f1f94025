package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"adlottery/native/ads"
	"adlottery/native/attendance"
	"adlottery/native/lottery"
	"adlottery/native/staking"
	"adlottery/native/treasury"
	"adlottery/native/voting"
)

// StakingPoolGet loads the staking pool singleton.
func (m *Manager) StakingPoolGet() (*staking.Pool, bool, error) {
	pool := new(staking.Pool)
	ok, err := m.KVGet(stakingPoolKey, pool)
	if err != nil || !ok {
		return nil, ok, err
	}
	return pool, true, nil
}

// StakingPoolPut stores the staking pool singleton.
func (m *Manager) StakingPoolPut(pool *staking.Pool) error {
	return m.KVPut(stakingPoolKey, pool)
}

// StakingPositionGet loads a position by id.
func (m *Manager) StakingPositionGet(id string) (*staking.Position, bool, error) {
	if id == "" {
		return nil, false, nil
	}
	position := new(staking.Position)
	ok, err := m.KVGet(formatKey(stakingPositionFormat, id), position)
	if err != nil || !ok {
		return nil, ok, err
	}
	return position, true, nil
}

// StakingPositionPut stores a position and indexes its id.
func (m *Manager) StakingPositionPut(position *staking.Position) error {
	if err := m.KVPut(formatKey(stakingPositionFormat, position.ID), position); err != nil {
		return err
	}
	return m.KVAppend(stakingPositionIndex, []byte(position.ID))
}

// StakingPositionDelete removes a position and its index entry.
func (m *Manager) StakingPositionDelete(id string) error {
	if err := m.KVDelete(formatKey(stakingPositionFormat, id)); err != nil {
		return err
	}
	return m.KVRemove(stakingPositionIndex, []byte(id))
}

// StakingPositionIDs lists live position ids in creation order.
func (m *Manager) StakingPositionIDs() ([]string, error) {
	return m.idIndex(stakingPositionIndex)
}

// AdsRegistryGet loads the registry singleton.
func (m *Manager) AdsRegistryGet() (*ads.Registry, bool, error) {
	registry := new(ads.Registry)
	ok, err := m.KVGet(adsRegistryKey, registry)
	if err != nil || !ok {
		return nil, ok, err
	}
	return registry, true, nil
}

// AdsRegistryPut stores the registry singleton.
func (m *Manager) AdsRegistryPut(registry *ads.Registry) error {
	return m.KVPut(adsRegistryKey, registry)
}

// AdsParticipantGet loads an advertisement by id.
func (m *Manager) AdsParticipantGet(id string) (*ads.Advertisement, bool, error) {
	if id == "" {
		return nil, false, nil
	}
	ad := new(ads.Advertisement)
	ok, err := m.KVGet(formatKey(adsParticipantFormat, id), ad)
	if err != nil || !ok {
		return nil, ok, err
	}
	return ad, true, nil
}

// AdsParticipantPut stores an advertisement and indexes its id.
func (m *Manager) AdsParticipantPut(ad *ads.Advertisement) error {
	if err := m.KVPut(formatKey(adsParticipantFormat, ad.ID), ad); err != nil {
		return err
	}
	return m.KVAppend(adsParticipantIndex, []byte(ad.ID))
}

// AdsParticipantIDs lists every submitted participant in submission order.
func (m *Manager) AdsParticipantIDs() ([]string, error) {
	return m.idIndex(adsParticipantIndex)
}

// LotteryConfigGet loads the coordinator singleton.
func (m *Manager) LotteryConfigGet() (*lottery.Config, bool, error) {
	cfg := new(lottery.Config)
	ok, err := m.KVGet(lotteryConfigKey, cfg)
	if err != nil || !ok {
		return nil, ok, err
	}
	return cfg, true, nil
}

// LotteryConfigPut stores the coordinator singleton.
func (m *Manager) LotteryConfigPut(cfg *lottery.Config) error {
	return m.KVPut(lotteryConfigKey, cfg)
}

// LotteryWinnerAppend archives a confirmed winner.
func (m *Manager) LotteryWinnerAppend(winner *lottery.PastWinner) error {
	var count uint64
	if _, err := m.KVGet(lotteryWinnerCountKey, &count); err != nil {
		return err
	}
	if err := m.KVPut(formatKey(lotteryWinnerFormat, count), winner); err != nil {
		return err
	}
	return m.KVPut(lotteryWinnerCountKey, count+1)
}

// LotteryWinners returns the archive in finalize order.
func (m *Manager) LotteryWinners() ([]*lottery.PastWinner, error) {
	var count uint64
	if _, err := m.KVGet(lotteryWinnerCountKey, &count); err != nil {
		return nil, err
	}
	out := make([]*lottery.PastWinner, 0, count)
	for i := uint64(0); i < count; i++ {
		winner := new(lottery.PastWinner)
		ok, err := m.KVGet(formatKey(lotteryWinnerFormat, i), winner)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, winner)
		}
	}
	return out, nil
}

// VotingRecordGet loads the record of a lottery epoch.
func (m *Manager) VotingRecordGet(epoch uint64) (*voting.Record, bool, error) {
	record := new(voting.Record)
	ok, err := m.KVGet(formatKey(votingRecordFormat, epoch), record)
	if err != nil || !ok {
		return nil, ok, err
	}
	return record, true, nil
}

// VotingRecordPut stores an epoch record.
func (m *Manager) VotingRecordPut(record *voting.Record) error {
	return m.KVPut(formatKey(votingRecordFormat, record.Epoch), record)
}

// VotingVoteGet loads a vote by id.
func (m *Manager) VotingVoteGet(id string) (*voting.Vote, bool, error) {
	if id == "" {
		return nil, false, nil
	}
	vote := new(voting.Vote)
	ok, err := m.KVGet(formatKey(votingVoteFormat, id), vote)
	if err != nil || !ok {
		return nil, ok, err
	}
	return vote, true, nil
}

// VotingVotePut stores a vote.
func (m *Manager) VotingVotePut(vote *voting.Vote) error {
	return m.KVPut(formatKey(votingVoteFormat, vote.ID), vote)
}

// VotingTallyGet returns the power accumulated by a participant in an epoch.
func (m *Manager) VotingTallyGet(epoch uint64, participantID string) (*big.Int, error) {
	total := new(big.Int)
	if _, err := m.KVGet(formatKey(votingTallyFormat, epoch, participantID), total); err != nil {
		return nil, err
	}
	return total, nil
}

// VotingTallyPut stores the power accumulated by a participant in an epoch.
func (m *Manager) VotingTallyPut(epoch uint64, participantID string, total *big.Int) error {
	return m.KVPut(formatKey(votingTallyFormat, epoch, participantID), total)
}

// AttendanceSessionGet loads the verification session singleton.
func (m *Manager) AttendanceSessionGet() (*attendance.Session, bool, error) {
	session := new(attendance.Session)
	ok, err := m.KVGet(attendanceSessionKey, session)
	if err != nil || !ok {
		return nil, ok, err
	}
	return session, true, nil
}

// AttendanceSessionPut stores the verification session singleton.
func (m *Manager) AttendanceSessionPut(session *attendance.Session) error {
	return m.KVPut(attendanceSessionKey, session)
}

// AttendanceViewerGet reads the viewer log entry at (generation, index).
func (m *Manager) AttendanceViewerGet(generation, index uint64) (common.Address, bool, error) {
	var addr common.Address
	ok, err := m.KVGet(formatKey(attendanceViewerFormat, generation, index), &addr)
	return addr, ok, err
}

// AttendanceViewerPut writes the viewer log entry at (generation, index).
func (m *Manager) AttendanceViewerPut(generation, index uint64, addr common.Address) error {
	return m.KVPut(formatKey(attendanceViewerFormat, generation, index), addr)
}

// AttendanceViewerDelete removes the viewer log entry at (generation, index).
func (m *Manager) AttendanceViewerDelete(generation, index uint64) error {
	return m.KVDelete(formatKey(attendanceViewerFormat, generation, index))
}

// AttendanceClaimGet returns the generation addr last registered in.
func (m *Manager) AttendanceClaimGet(addr common.Address) (uint64, bool, error) {
	var generation uint64
	ok, err := m.KVGet(formatKey(attendanceClaimFormat, addr.Bytes()), &generation)
	return generation, ok, err
}

// AttendanceClaimPut records the generation addr registered in.
func (m *Manager) AttendanceClaimPut(addr common.Address, generation uint64) error {
	return m.KVPut(formatKey(attendanceClaimFormat, addr.Bytes()), generation)
}

// AttendanceClaimDelete clears the registration marker of addr.
func (m *Manager) AttendanceClaimDelete(addr common.Address) error {
	return m.KVDelete(formatKey(attendanceClaimFormat, addr.Bytes()))
}

// TreasuryGet loads the treasury singleton.
func (m *Manager) TreasuryGet() (*treasury.Treasury, bool, error) {
	t := new(treasury.Treasury)
	ok, err := m.KVGet(treasuryKey, t)
	if err != nil || !ok {
		return nil, ok, err
	}
	return t, true, nil
}

// TreasuryPut stores the treasury singleton.
func (m *Manager) TreasuryPut(t *treasury.Treasury) error {
	return m.KVPut(treasuryKey, t)
}

func (m *Manager) idIndex(key []byte) ([]string, error) {
	var raw [][]byte
	if err := m.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	out := make([]string, len(raw))
	for i, id := range raw {
		out[i] = string(id)
	}
	return out, nil
}
