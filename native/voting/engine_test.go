package voting

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	errs "adlottery/core/errors"
	"adlottery/core/events"
	"adlottery/native/ads"
	"adlottery/native/staking"
)

type mockState struct {
	records map[uint64]*Record
	votes   map[string]*Vote
	tallies map[string]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		records: make(map[uint64]*Record),
		votes:   make(map[string]*Vote),
		tallies: make(map[string]*big.Int),
	}
}

func (m *mockState) VotingRecordGet(epoch uint64) (*Record, bool, error) {
	record, ok := m.records[epoch]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) VotingRecordPut(record *Record) error {
	m.records[record.Epoch] = record.Clone()
	return nil
}

func (m *mockState) VotingVoteGet(id string) (*Vote, bool, error) {
	vote, ok := m.votes[id]
	if !ok {
		return nil, false, nil
	}
	return vote.Clone(), true, nil
}

func (m *mockState) VotingVotePut(vote *Vote) error {
	m.votes[vote.ID] = vote.Clone()
	return nil
}

func tallyKey(epoch uint64, id string) string { return fmt.Sprintf("%d/%s", epoch, id) }

func (m *mockState) VotingTallyGet(epoch uint64, id string) (*big.Int, error) {
	if v, ok := m.tallies[tallyKey(epoch, id)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) VotingTallyPut(epoch uint64, id string, total *big.Int) error {
	m.tallies[tallyKey(epoch, id)] = new(big.Int).Set(total)
	return nil
}

type mockLedger struct {
	positions map[string]*staking.Position
	credited  map[string]*big.Int
}

func (l *mockLedger) Position(id string) (*staking.Position, error) {
	position, ok := l.positions[id]
	if !ok {
		return nil, errs.State("position not found")
	}
	return position.Clone(), nil
}

func (l *mockLedger) CreditAdvertiserYield(id string, amount *big.Int) error {
	if l.credited[id] == nil {
		l.credited[id] = big.NewInt(0)
	}
	l.credited[id].Add(l.credited[id], amount)
	return nil
}

type mockRegistry struct {
	participants map[string]*ads.Advertisement
}

func (r *mockRegistry) Participant(id string) (*ads.Advertisement, error) {
	ad, ok := r.participants[id]
	if !ok {
		return nil, errs.State("participant not found")
	}
	return ad.Clone(), nil
}

func (r *mockRegistry) RecordVote(id string, power *big.Int) error {
	ad := r.participants[id]
	ad.TotalVotesReceived = new(big.Int).Add(ad.TotalVotesReceived, power)
	ad.VoteCount++
	return nil
}

type mockEpochs struct {
	admin   common.Address
	current uint64
	open    bool
}

func (m *mockEpochs) Admin() (common.Address, error) { return m.admin, nil }
func (m *mockEpochs) CurrentEpoch() (uint64, error) { return m.current, nil }
func (m *mockEpochs) VotingOpen() (bool, error) { return m.open, nil }

type mockReserve struct {
	balance *big.Int
}

func (r *mockReserve) VotingRewardReserve() (*big.Int, error) { return new(big.Int).Set(r.balance), nil }

func (r *mockReserve) WithdrawVotingRewards(_ common.Address, amount *big.Int) (*big.Int, error) {
	if r.balance.Cmp(amount) < 0 {
		return nil, errs.Resource("short")
	}
	r.balance.Sub(r.balance, amount)
	return new(big.Int).Set(amount), nil
}

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

type harness struct {
	engine   *Engine
	state    *mockState
	ledger   *mockLedger
	registry *mockRegistry
	epochs   *mockEpochs
	reserve  *mockReserve
	events   *events.Buffer
}

func newHarness() *harness {
	h := &harness{
		engine: NewEngine(),
		state:  newMockState(),
		ledger: &mockLedger{
			positions: map[string]*staking.Position{
				"pos-alice": {ID: "pos-alice", Owner: alice, Amount: big.NewInt(3_000)},
				"pos-bob":   {ID: "pos-bob", Owner: bob, Amount: big.NewInt(1_000)},
			},
			credited: map[string]*big.Int{},
		},
		registry: &mockRegistry{participants: map[string]*ads.Advertisement{
			"ad-1": {ID: "ad-1", IsActive: true, TotalVotesReceived: big.NewInt(0)},
			"ad-2": {ID: "ad-2", IsActive: false, TotalVotesReceived: big.NewInt(0)},
		}},
		epochs:  &mockEpochs{admin: admin, current: 4, open: true},
		reserve: &mockReserve{balance: big.NewInt(1_000_000)},
		events:  &events.Buffer{},
	}
	counter := 0
	h.engine.SetState(h.state)
	h.engine.SetEmitter(h.events)
	h.engine.SetPositions(h.ledger)
	h.engine.SetParticipants(h.registry)
	h.engine.SetEpochs(h.epochs)
	h.engine.SetRewardReserve(h.reserve)
	h.engine.SetIDFunc(func() string {
		counter++
		return fmt.Sprintf("vote-%d", counter)
	})
	return h
}

func TestCastVoteSnapshotsPower(t *testing.T) {
	h := newHarness()
	vote, err := h.engine.CastVote(alice, "ad-1", "pos-alice")
	if err != nil {
		t.Fatalf("cast vote: %v", err)
	}
	if vote.VotingPower.Cmp(big.NewInt(3_000)) != 0 || vote.Epoch != 4 {
		t.Fatalf("unexpected vote %+v", vote)
	}
	// Later stake changes do not alter the recorded power.
	h.ledger.positions["pos-alice"].Amount = big.NewInt(1)
	stored := h.state.votes[vote.ID]
	if stored.VotingPower.Cmp(big.NewInt(3_000)) != 0 {
		t.Fatalf("stored power changed: %s", stored.VotingPower)
	}
	tally, err := h.engine.EpochVotes(4, "ad-1")
	if err != nil {
		t.Fatalf("epoch votes: %v", err)
	}
	if tally.Cmp(big.NewInt(3_000)) != 0 {
		t.Fatalf("unexpected tally %s", tally)
	}
	record := h.state.records[4]
	if record.TotalVotes.Cmp(big.NewInt(3_000)) != 0 || len(record.Voters) != 1 {
		t.Fatalf("unexpected record %+v", record)
	}
	if h.registry.participants["ad-1"].VoteCount != 1 {
		t.Fatalf("participant counter not updated")
	}
}

func TestCastVoteRejections(t *testing.T) {
	h := newHarness()
	if _, err := h.engine.CastVote(bob, "ad-1", "pos-alice"); !errors.Is(err, errNotPositionOwner) || !errs.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if _, err := h.engine.CastVote(bob, "ad-2", "pos-bob"); !errors.Is(err, ads.ErrInactive) {
		t.Fatalf("expected inactive participant, got %v", err)
	}
	h.epochs.open = false
	if _, err := h.engine.CastVote(alice, "ad-1", "pos-alice"); !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("expected window closed, got %v", err)
	}
	h.epochs.open = true
	if _, err := h.engine.CastVote(alice, "ad-1", "pos-alice"); err != nil {
		t.Fatalf("cast vote: %v", err)
	}
	_, err := h.engine.CastVote(alice, "ad-1", "pos-alice")
	if !errors.Is(err, ErrAlreadyVoted) || !errs.IsState(err) {
		t.Fatalf("expected already voted state error, got %v", err)
	}
	// A new epoch opens a fresh record.
	h.epochs.current = 5
	if _, err := h.engine.CastVote(alice, "ad-1", "pos-alice"); err != nil {
		t.Fatalf("vote in next epoch: %v", err)
	}
}

func TestDistributeAndClaim(t *testing.T) {
	h := newHarness()
	aliceVote, err := h.engine.CastVote(alice, "ad-1", "pos-alice")
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	bobVote, err := h.engine.CastVote(bob, "ad-1", "pos-bob")
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if _, err := h.engine.DistributeVotingRewards(alice, 4, big.NewInt(1_000)); !errs.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	record, err := h.engine.DistributeVotingRewards(admin, 4, big.NewInt(1_000))
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	// floor(1000 * 10000 / 4000) = 2500
	if record.RewardPerVote.Cmp(big.NewInt(2_500)) != 0 {
		t.Fatalf("unexpected reward per vote %s", record.RewardPerVote)
	}
	reward, err := h.engine.ClaimVotingReward(alice, aliceVote.ID, 4)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	// floor(3000 * 2500 / 10000) = 750
	if reward.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("expected 750, got %s", reward)
	}
	if h.ledger.credited["pos-alice"].Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("reward not credited to position")
	}
	if h.reserve.balance.Cmp(big.NewInt(999_250)) != 0 {
		t.Fatalf("reserve not debited: %s", h.reserve.balance)
	}
	if _, err := h.engine.ClaimVotingReward(alice, aliceVote.ID, 4); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}
	if _, err := h.engine.ClaimVotingReward(alice, bobVote.ID, 4); !errs.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if _, err := h.engine.ClaimVotingReward(bob, bobVote.ID, 3); !errors.Is(err, ErrEpochMismatch) || !errs.IsIntegrity(err) {
		t.Fatalf("expected integrity error, got %v", err)
	}
}

func TestClaimWithoutDistributionPaysZero(t *testing.T) {
	h := newHarness()
	vote, err := h.engine.CastVote(bob, "ad-1", "pos-bob")
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	reward, err := h.engine.ClaimVotingReward(bob, vote.ID, 4)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if reward.Sign() != 0 {
		t.Fatalf("expected zero reward, got %s", reward)
	}
	if !h.state.votes[vote.ID].RewardClaimed {
		t.Fatalf("zero reward claim must still flip the flag")
	}
	if len(h.ledger.credited) != 0 {
		t.Fatalf("zero reward must not credit the position")
	}
}

func TestClaimAfterPositionClosed(t *testing.T) {
	h := newHarness()
	vote, err := h.engine.CastVote(bob, "ad-1", "pos-bob")
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if _, err := h.engine.DistributeVotingRewards(admin, 4, big.NewInt(500)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	delete(h.ledger.positions, "pos-bob")
	if _, err := h.engine.ClaimVotingReward(bob, vote.ID, 4); !errors.Is(err, errPositionGone) {
		t.Fatalf("expected position gone, got %v", err)
	}
	if h.state.votes[vote.ID].RewardClaimed {
		t.Fatalf("failed claim must not flip the flag")
	}
	if h.reserve.balance.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("failed claim must not debit the reserve")
	}
}

func TestDistributeWithoutVotesKeepsRate(t *testing.T) {
	h := newHarness()
	record, err := h.engine.DistributeVotingRewards(admin, 9, big.NewInt(100))
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if record.RewardPerVote.Sign() != 0 {
		t.Fatalf("expected unchanged zero rate, got %s", record.RewardPerVote)
	}
	if _, err := h.engine.DistributeVotingRewards(admin, 9, big.NewInt(2_000_000)); !errs.IsResource(err) {
		t.Fatalf("expected resource error, got %v", err)
	}
}

func TestRewardFormula(t *testing.T) {
	if got := RewardFor(big.NewInt(7), big.NewInt(3_333)); got.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("floor(7*3333/10000) = 2, got %s", got)
	}
	if got := RewardPerVoteFor(big.NewInt(10), big.NewInt(3)); got.Cmp(big.NewInt(33_333)) != 0 {
		t.Fatalf("floor(10*10000/3) = 33333, got %s", got)
	}
	if RewardPerVoteFor(big.NewInt(10), big.NewInt(0)) != nil {
		t.Fatalf("expected nil rate without votes")
	}
}
