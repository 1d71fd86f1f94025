package routes

import (
	"context"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"adlottery/core/events"
	"adlottery/gateway/middleware"
	"adlottery/native/ads"
	"adlottery/native/attendance"
	"adlottery/native/lottery"
	"adlottery/native/staking"
	"adlottery/native/treasury"
	"adlottery/native/voting"
)

// Ledger is the read-only query surface served over HTTP.
type Ledger interface {
	Pool(ctx context.Context) (*staking.Pool, error)
	Position(ctx context.Context, id string) (*staking.Position, error)
	PendingYield(ctx context.Context, id string) (*big.Int, error)
	Registry(ctx context.Context) (*ads.Registry, error)
	Participant(ctx context.Context, id string) (*ads.Advertisement, error)
	Participants(ctx context.Context) ([]*ads.Advertisement, error)
	LotteryConfig(ctx context.Context) (*lottery.Config, error)
	PastWinners(ctx context.Context) ([]*lottery.PastWinner, error)
	VotingRecord(ctx context.Context, epoch uint64) (*voting.Record, error)
	Vote(ctx context.Context, id string) (*voting.Vote, error)
	Session(ctx context.Context) (*attendance.Session, error)
	Registered(ctx context.Context, addr common.Address) (bool, error)
	Treasury(ctx context.Context) (*treasury.Treasury, error)
	Events(ctx context.Context, after uint64, limit int) ([]events.Record, error)
}

type Config struct {
	Ledger         Ledger
	RateLimiter    *middleware.RateLimiter
	Observability  *middleware.Observability
	CORS           middleware.CORSConfig
	MetricsHandler http.Handler
}

func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	h := &ledgerRoutes{ledger: cfg.Ledger}
	r.Route("/v1", func(sr chi.Router) {
		if cfg.RateLimiter != nil {
			sr.Use(cfg.RateLimiter.Middleware)
		}
		if obs != nil {
			sr.Use(obs.Middleware("v1"))
		}
		h.mount(sr)
	})

	return r
}
