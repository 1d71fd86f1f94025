package routes

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	errs "adlottery/core/errors"
	"adlottery/native/ads"
	"adlottery/native/lottery"
	"adlottery/native/staking"
)

type ledgerRoutes struct {
	ledger Ledger
}

func (h *ledgerRoutes) mount(r chi.Router) {
	r.Get("/pool", h.pool)
	r.Get("/positions/{id}", h.position)
	r.Get("/participants", h.participants)
	r.Get("/participants/{id}", h.participant)
	r.Get("/epoch", h.epoch)
	r.Get("/epochs/{epoch}/votes", h.votingRecord)
	r.Get("/votes/{id}", h.vote)
	r.Get("/winners", h.winners)
	r.Get("/session", h.session)
	r.Get("/session/viewers/{address}", h.registered)
	r.Get("/treasury", h.treasury)
	r.Get("/events", h.events)
}

type poolView struct {
	Admin           string `json:"admin"`
	TotalStaked     string `json:"totalStaked"`
	CreditedBalance string `json:"creditedBalance"`
	APYRateBps      uint64 `json:"apyRateBps"`
	MinStake        string `json:"minStake"`
	MaxStake        string `json:"maxStake"`
	PositionCount   uint64 `json:"positionCount"`
}

type positionView struct {
	ID                  string `json:"id"`
	Owner               string `json:"owner"`
	Amount              string `json:"amount"`
	LinkedParticipantID string `json:"linkedParticipantId,omitempty"`
	EpochStaked         uint64 `json:"epochStaked"`
	LastClaimEpoch      uint64 `json:"lastClaimEpoch"`
	Credited            string `json:"credited"`
	PendingYield        string `json:"pendingYield"`
}

type participantView struct {
	ID                 string `json:"id"`
	Advertiser         string `json:"advertiser"`
	ContentReference   string `json:"contentReference,omitempty"`
	StakeAmount        string `json:"stakeAmount"`
	PositionID         string `json:"positionId"`
	EpochCreated       uint64 `json:"epochCreated"`
	TotalVotesReceived string `json:"totalVotesReceived"`
	VoteCount          uint64 `json:"voteCount"`
	WinsCount          uint64 `json:"winsCount"`
	IsActive           bool   `json:"isActive"`
	IsUnsealed         bool   `json:"isUnsealed"`
}

type epochView struct {
	Strategy                string `json:"strategy"`
	CurrentEpoch            uint64 `json:"currentEpoch"`
	Phase                   string `json:"phase"`
	EpochStartedAt          uint64 `json:"epochStartedAt"`
	VotingWindowMs          uint64 `json:"votingWindowMs"`
	PendingWinnerID         string `json:"pendingWinnerId,omitempty"`
	LatestConfirmedWinnerID string `json:"latestConfirmedWinnerId,omitempty"`
	LatestConfirmedEpoch    uint64 `json:"latestConfirmedEpoch"`
}

type winnerView struct {
	Epoch     uint64 `json:"epoch"`
	WinnerID  string `json:"winnerId"`
	Timestamp uint64 `json:"timestamp"`
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func toParticipantView(ad *ads.Advertisement) participantView {
	view := participantView{
		ID:                 ad.ID,
		Advertiser:         ad.Advertiser.Hex(),
		StakeAmount:        amount(ad.StakeAmount),
		PositionID:         ad.LinkedStakePositionID,
		EpochCreated:       ad.EpochCreated,
		TotalVotesReceived: amount(ad.TotalVotesReceived),
		VoteCount:          ad.VoteCount,
		WinsCount:          ad.WinsCount,
		IsActive:           ad.IsActive,
		IsUnsealed:         ad.IsUnsealed,
	}
	// Content stays sealed until the advertisement has won once.
	if ad.IsUnsealed {
		view.ContentReference = ad.ContentReference
	}
	return view
}

func toPositionView(p *staking.Position, pending *big.Int) positionView {
	return positionView{
		ID:                  p.ID,
		Owner:               p.Owner.Hex(),
		Amount:              amount(p.Amount),
		LinkedParticipantID: p.LinkedParticipantID,
		EpochStaked:         p.EpochStaked,
		LastClaimEpoch:      p.LastClaimEpoch,
		Credited:            amount(p.AdvertiserYieldClaimable),
		PendingYield:        amount(pending),
	}
}

func toEpochView(cfg *lottery.Config) epochView {
	return epochView{
		Strategy:                string(cfg.Strategy),
		CurrentEpoch:            cfg.CurrentEpoch,
		Phase:                   cfg.Phase(),
		EpochStartedAt:          cfg.EpochStartedAt,
		VotingWindowMs:          cfg.VotingWindowMs,
		PendingWinnerID:         cfg.PendingWinnerID,
		LatestConfirmedWinnerID: cfg.LatestConfirmedWinnerID,
		LatestConfirmedEpoch:    cfg.LatestConfirmedEpoch,
	}
}

func (h *ledgerRoutes) pool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.ledger.Pool(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolView{
		Admin:           pool.Admin.Hex(),
		TotalStaked:     amount(pool.TotalStaked),
		CreditedBalance: amount(pool.CreditedBalance),
		APYRateBps:      pool.APYRateBps,
		MinStake:        amount(pool.MinStake),
		MaxStake:        amount(pool.MaxStake),
		PositionCount:   pool.PositionCount,
	})
}

func (h *ledgerRoutes) position(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	position, err := h.ledger.Position(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	pending, err := h.ledger.PendingYield(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPositionView(position, pending))
}

func (h *ledgerRoutes) participants(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.Participants(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"
	out := make([]participantView, 0, len(list))
	for _, ad := range list {
		if activeOnly && !ad.IsActive {
			continue
		}
		out = append(out, toParticipantView(ad))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ledgerRoutes) participant(w http.ResponseWriter, r *http.Request) {
	ad, err := h.ledger.Participant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipantView(ad))
}

func (h *ledgerRoutes) epoch(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.ledger.LotteryConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEpochView(cfg))
}

func (h *ledgerRoutes) votingRecord(w http.ResponseWriter, r *http.Request) {
	epoch, err := strconv.ParseUint(chi.URLParam(r, "epoch"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid epoch"})
		return
	}
	record, err := h.ledger.VotingRecord(r.Context(), epoch)
	if err != nil {
		writeError(w, err)
		return
	}
	voters := make([]string, 0, len(record.Voters))
	for _, v := range record.Voters {
		voters = append(voters, v.Hex())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"epoch":         record.Epoch,
		"totalVotes":    amount(record.TotalVotes),
		"rewardPool":    amount(record.RewardPool),
		"rewardPerVote": amount(record.RewardPerVote),
		"voters":        voters,
	})
}

func (h *ledgerRoutes) vote(w http.ResponseWriter, r *http.Request) {
	vote, err := h.ledger.Vote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            vote.ID,
		"voter":         vote.Voter.Hex(),
		"participantId": vote.ParticipantID,
		"positionId":    vote.LinkedStakePositionID,
		"votingPower":   amount(vote.VotingPower),
		"epoch":         vote.Epoch,
		"rewardClaimed": vote.RewardClaimed,
	})
}

func (h *ledgerRoutes) winners(w http.ResponseWriter, r *http.Request) {
	winners, err := h.ledger.PastWinners(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]winnerView, 0, len(winners))
	for _, winner := range winners {
		out = append(out, winnerView{Epoch: winner.Epoch, WinnerID: winner.WinnerID, Timestamp: winner.Timestamp})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ledgerRoutes) session(w http.ResponseWriter, r *http.Request) {
	session, err := h.ledger.Session(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activeParticipantId": session.ActiveParticipantID,
		"generation":          session.EpochCounter,
		"totalViewers":        session.TotalViewers,
		"payoutCap":           session.PayoutCap,
		"rewardPerPayout":     amount(session.RewardPerPayout),
		"rotations":           session.Rotations,
	})
}

func (h *ledgerRoutes) registered(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid address"})
		return
	}
	ok, err := h.ledger.Registered(r.Context(), common.HexToAddress(raw))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"registered": ok})
}

func (h *ledgerRoutes) treasury(w http.ResponseWriter, r *http.Request) {
	t, err := h.ledger.Treasury(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"admin":               t.Admin.Hex(),
		"balance":             amount(t.Balance),
		"yieldReserve":        amount(t.YieldReserve),
		"votingRewardReserve": amount(t.VotingRewardReserve),
		"feesCollected":       amount(t.FeesCollected),
	})
}

func (h *ledgerRoutes) events(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var after uint64
	if raw := strings.TrimSpace(query.Get("after")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid after"})
			return
		}
		after = parsed
	}
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid limit"})
			return
		}
		limit = parsed
	}
	records, err := h.ledger.Events(r.Context(), after, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeError maps lookups of missing entities (State) to 404.
func writeError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := http.StatusInternalServerError
	if kind == errs.KindState {
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind.String()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
