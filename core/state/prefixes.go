package state

import "fmt"

var (
	stakingPoolKey        = []byte("staking/pool")
	stakingPositionIndex  = []byte("staking/positions")
	stakingPositionFormat = "staking/position/%s"

	adsRegistryKey        = []byte("ads/registry")
	adsParticipantIndex   = []byte("ads/participants")
	adsParticipantFormat  = "ads/participant/%s"
	lotteryConfigKey      = []byte("lottery/config")
	lotteryWinnerCountKey = []byte("lottery/winners/count")
	lotteryWinnerFormat   = "lottery/winners/%020d"

	votingRecordFormat = "voting/record/%020d"
	votingVoteFormat   = "voting/vote/%s"
	votingTallyFormat  = "voting/tally/%020d/%s"

	attendanceSessionKey   = []byte("attendance/session")
	attendanceViewerFormat = "attendance/viewer/%020d/%020d"
	attendanceClaimFormat  = "attendance/claim/%x"

	treasuryKey = []byte("treasury")

	eventSeqKey    = []byte("events/seq")
	eventRecFormat = "events/record/%020d"
)

func formatKey(format string, args ...interface{}) []byte {
	return []byte(fmt.Sprintf(format, args...))
}
