package attendance

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	errs "adlottery/core/errors"
	"adlottery/core/events"
	"adlottery/core/random"
)

type mockState struct {
	session *Session
	viewers map[string]common.Address
	claims  map[common.Address]uint64
}

func newMockState() *mockState {
	return &mockState{viewers: make(map[string]common.Address), claims: make(map[common.Address]uint64)}
}

func viewerKey(generation, index uint64) string { return fmt.Sprintf("%d/%d", generation, index) }

func (m *mockState) AttendanceSessionGet() (*Session, bool, error) {
	if m.session == nil {
		return nil, false, nil
	}
	return m.session.Clone(), true, nil
}

func (m *mockState) AttendanceSessionPut(session *Session) error {
	m.session = session.Clone()
	return nil
}

func (m *mockState) AttendanceViewerGet(generation, index uint64) (common.Address, bool, error) {
	addr, ok := m.viewers[viewerKey(generation, index)]
	return addr, ok, nil
}

func (m *mockState) AttendanceViewerPut(generation, index uint64, addr common.Address) error {
	m.viewers[viewerKey(generation, index)] = addr
	return nil
}

func (m *mockState) AttendanceViewerDelete(generation, index uint64) error {
	delete(m.viewers, viewerKey(generation, index))
	return nil
}

func (m *mockState) AttendanceClaimGet(addr common.Address) (uint64, bool, error) {
	generation, ok := m.claims[addr]
	return generation, ok, nil
}

func (m *mockState) AttendanceClaimPut(addr common.Address, generation uint64) error {
	m.claims[addr] = generation
	return nil
}

func (m *mockState) AttendanceClaimDelete(addr common.Address) error {
	delete(m.claims, addr)
	return nil
}

type mockWinners struct {
	id    string
	epoch uint64
}

func (w *mockWinners) LatestConfirmedWinner() (string, uint64, error) { return w.id, w.epoch, nil }

type mockPayer struct {
	reserve *big.Int
	calls   int
}

func (p *mockPayer) YieldReserve() (*big.Int, error) { return new(big.Int).Set(p.reserve), nil }

func (p *mockPayer) WithdrawYield(_ common.Address, amount *big.Int) (*big.Int, error) {
	if p.reserve.Cmp(amount) < 0 {
		return nil, errs.Resource("short")
	}
	p.calls++
	p.reserve.Sub(p.reserve, amount)
	return new(big.Int).Set(amount), nil
}

type harness struct {
	engine  *Engine
	state   *mockState
	winners *mockWinners
	payer   *mockPayer
	rng     *random.Sequence
	events  *events.Buffer
}

func newHarness(t *testing.T, params SessionParams, draws ...uint64) *harness {
	t.Helper()
	h := &harness{
		engine:  NewEngine(),
		state:   newMockState(),
		winners: &mockWinners{},
		payer:   &mockPayer{reserve: big.NewInt(1_000_000)},
		rng:     random.NewSequence(draws...),
		events:  &events.Buffer{},
	}
	h.engine.SetState(h.state)
	h.engine.SetEmitter(h.events)
	h.engine.SetWinnerSource(h.winners)
	h.engine.SetPayer(h.payer)
	h.engine.SetRandomness(h.rng)
	if _, err := h.engine.CreateSession(common.Address{1}, params); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return h
}

// confirm simulates a finalized lottery epoch and rotates onto its winner.
func (h *harness) confirm(t *testing.T, id string, epoch uint64) []Payout {
	t.Helper()
	h.winners.id = id
	h.winners.epoch = epoch
	payouts, err := h.engine.RotateSession()
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	return payouts
}

func viewer(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(1000 + i)))
}

func TestCreateSessionDefaults(t *testing.T) {
	h := newHarness(t, SessionParams{})
	if h.state.session.PayoutCap != DefaultPayoutCap {
		t.Fatalf("expected default cap, got %d", h.state.session.PayoutCap)
	}
	if _, err := h.engine.CreateSession(common.Address{1}, SessionParams{}); !errors.Is(err, errSessionExists) {
		t.Fatalf("expected session exists, got %v", err)
	}
}

func TestRegisterAttendanceRequiresActiveWinner(t *testing.T) {
	h := newHarness(t, SessionParams{RewardPerPayout: big.NewInt(1)})
	if _, err := h.engine.RegisterAttendance(viewer(0), "ad-1"); !errors.Is(err, errNoActiveWinner) {
		t.Fatalf("expected no active winner, got %v", err)
	}
	h.confirm(t, "ad-1", 0)
	if _, err := h.engine.RegisterAttendance(viewer(0), "ad-2"); !errors.Is(err, errNotActiveWinner) || !errs.IsState(err) {
		t.Fatalf("expected not active winner state error, got %v", err)
	}
	reg, err := h.engine.RegisterAttendance(viewer(0), "ad-1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Generation != 1 || reg.Index != 0 {
		t.Fatalf("unexpected registration %+v", reg)
	}
	if _, err := h.engine.RegisterAttendance(viewer(0), "ad-1"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected already registered, got %v", err)
	}
}

func TestRotateWithoutViewersStillAdvances(t *testing.T) {
	h := newHarness(t, SessionParams{RewardPerPayout: big.NewInt(10)})
	h.confirm(t, "ad-1", 0)
	payouts := h.confirm(t, "ad-2", 1)
	if len(payouts) != 0 {
		t.Fatalf("expected no payouts, got %d", len(payouts))
	}
	if h.state.session.EpochCounter != 2 || h.state.session.ActiveParticipantID != "ad-2" {
		t.Fatalf("unexpected session %+v", h.state.session)
	}
	if h.rng.Calls() != 0 || h.payer.calls != 0 {
		t.Fatalf("empty rotation must not draw or pay")
	}
}

func TestRotateCapsDrawsAndAllowsReregistration(t *testing.T) {
	values := make([]uint64, 0, 200)
	for i := uint64(0); i < 200; i++ {
		values = append(values, i*7)
	}
	h := newHarness(t, SessionParams{PayoutCap: 50, RewardPerPayout: big.NewInt(3)}, values...)
	h.confirm(t, "ad-1", 0)
	for i := 0; i < 200; i++ {
		if _, err := h.engine.RegisterAttendance(viewer(i), "ad-1"); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}
	payouts := h.confirm(t, "ad-2", 1)
	if len(payouts) != 50 || h.rng.Calls() != 50 {
		t.Fatalf("expected 50 draws, got %d payouts and %d calls", len(payouts), h.rng.Calls())
	}
	for _, n := range h.rng.Requests {
		if n != 200 {
			t.Fatalf("draws must range over all 200 viewers, got %d", n)
		}
	}
	if h.payer.reserve.Cmp(big.NewInt(1_000_000-150)) != 0 {
		t.Fatalf("unexpected reserve %s", h.payer.reserve)
	}
	if h.state.session.TotalViewers != 0 {
		t.Fatalf("viewer count not reset")
	}
	if len(h.state.viewers) != 0 || len(h.state.claims) != 0 {
		t.Fatalf("previous generation not pruned: %d viewers %d claims", len(h.state.viewers), len(h.state.claims))
	}
	if _, err := h.engine.RegisterAttendance(viewer(0), "ad-2"); err != nil {
		t.Fatalf("re-register in new generation: %v", err)
	}
}

func TestRotateSamplesWithReplacement(t *testing.T) {
	h := newHarness(t, SessionParams{RewardPerPayout: big.NewInt(5)}, 1, 1, 1)
	h.confirm(t, "ad-1", 0)
	for i := 0; i < 3; i++ {
		if _, err := h.engine.RegisterAttendance(viewer(i), "ad-1"); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	payouts := h.confirm(t, "ad-2", 1)
	if len(payouts) != 3 {
		t.Fatalf("expected 3 payouts, got %d", len(payouts))
	}
	for _, p := range payouts {
		if p.Address != viewer(1) {
			t.Fatalf("expected repeated payouts to viewer 1, got %s", p.Address.Hex())
		}
	}
}

func TestRotateReserveShortfallAborts(t *testing.T) {
	h := newHarness(t, SessionParams{RewardPerPayout: big.NewInt(400)}, 0, 1, 2)
	h.confirm(t, "ad-1", 0)
	for i := 0; i < 3; i++ {
		if _, err := h.engine.RegisterAttendance(viewer(i), "ad-1"); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	h.payer.reserve = big.NewInt(1_000)
	h.winners.id, h.winners.epoch = "ad-2", 1
	if _, err := h.engine.RotateSession(); !errs.IsResource(err) {
		t.Fatalf("expected resource error, got %v", err)
	}
	if h.payer.calls != 0 || h.rng.Calls() != 0 {
		t.Fatalf("shortfall must be detected before any draw or payment")
	}
	if h.state.session.TotalViewers != 3 || h.state.session.EpochCounter != 1 {
		t.Fatalf("session changed despite failure: %+v", h.state.session)
	}
}

func TestRotateRequiresNewConfirmedWinner(t *testing.T) {
	h := newHarness(t, SessionParams{})
	if _, err := h.engine.RotateSession(); !errors.Is(err, errNoConfirmed) {
		t.Fatalf("expected no confirmed winner, got %v", err)
	}
	h.confirm(t, "ad-1", 0)
	if _, err := h.engine.RotateSession(); !errors.Is(err, errAlreadyTracking) {
		t.Fatalf("expected already tracking, got %v", err)
	}
	// The same participant winning a later epoch is a new winner.
	h.confirm(t, "ad-1", 1)
	if h.state.session.EpochCounter != 2 {
		t.Fatalf("expected second rotation, got counter %d", h.state.session.EpochCounter)
	}
}

func TestRetainHistoryKeepsOldGeneration(t *testing.T) {
	h := newHarness(t, SessionParams{RetainHistory: true}, 0)
	h.confirm(t, "ad-1", 0)
	if _, err := h.engine.RegisterAttendance(viewer(0), "ad-1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	h.confirm(t, "ad-2", 1)
	addr, ok, err := h.engine.Viewer(1, 0)
	if err != nil || !ok || addr != viewer(0) {
		t.Fatalf("expected retained viewer entry, got %s %v %v", addr.Hex(), ok, err)
	}
	registered, err := h.engine.Registered(viewer(0))
	if err != nil {
		t.Fatalf("registered: %v", err)
	}
	if registered {
		t.Fatalf("old generation marker must not count as registered")
	}
	if _, err := h.engine.RegisterAttendance(viewer(0), "ad-2"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
}
