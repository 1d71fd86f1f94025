package routes

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"adlottery/config"
	"adlottery/core"
	"adlottery/core/random"
	"adlottery/gateway/middleware"
	"adlottery/native/lottery"
	"adlottery/storage"
)

var (
	routeAdmin      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	routeAdvertiser = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func newTestServer(t *testing.T) (*core.App, http.Handler) {
	t.Helper()
	app := core.NewApp(storage.NewMemDB(),
		core.WithClock(func() int64 { return 1_700_000_000_000 }),
		core.WithRandomness(random.NewSequence(0)),
	)
	ctx := context.Background()
	require.NoError(t, app.Bootstrap(ctx, config.Genesis{
		Admin:         routeAdmin,
		APYRateBps:    1000,
		MinStake:      big.NewInt(10),
		SubmissionFee: big.NewInt(1),
		Strategy:      lottery.StrategyRandom,
		PayoutCap:     5,
		SeedYield:     big.NewInt(1_000),
	}))
	obs := middleware.NewObservability(middleware.ObservabilityConfig{}, nil, prometheus.NewRegistry())
	handler := New(Config{Ledger: app, Observability: obs})
	return app, handler
}

func get(t *testing.T, handler http.Handler, path string, out any) int {
	t.Helper()
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && res.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), out))
	}
	return res.Code
}

func TestHealthz(t *testing.T) {
	_, handler := newTestServer(t)
	require.Equal(t, http.StatusOK, get(t, handler, "/healthz", nil))
}

func TestParticipantContentStaysSealed(t *testing.T) {
	app, handler := newTestServer(t)
	ctx := context.Background()
	ad, err := app.Submit(ctx, routeAdvertiser, big.NewInt(100), "ipfs://secret")
	require.NoError(t, err)

	var sealed participantView
	require.Equal(t, http.StatusOK, get(t, handler, "/v1/participants/"+ad.ID, &sealed))
	require.Empty(t, sealed.ContentReference)
	require.True(t, sealed.IsActive)
	require.Equal(t, "100", sealed.StakeAmount)

	winner, err := app.PickWinner(ctx)
	require.NoError(t, err)
	_, err = app.FinalizeEpoch(ctx, winner)
	require.NoError(t, err)

	var unsealed participantView
	require.Equal(t, http.StatusOK, get(t, handler, "/v1/participants/"+ad.ID, &unsealed))
	require.Equal(t, "ipfs://secret", unsealed.ContentReference)

	var winners []winnerView
	require.Equal(t, http.StatusOK, get(t, handler, "/v1/winners", &winners))
	require.Len(t, winners, 1)
	require.Equal(t, ad.ID, winners[0].WinnerID)

	var epoch epochView
	require.Equal(t, http.StatusOK, get(t, handler, "/v1/epoch", &epoch))
	require.EqualValues(t, 1, epoch.CurrentEpoch)
	require.Equal(t, "idle", epoch.Phase)

	var position positionView
	require.Equal(t, http.StatusOK, get(t, handler, "/v1/positions/"+ad.LinkedStakePositionID, &position))
	require.Equal(t, ad.ID, position.LinkedParticipantID)
}

func TestMissingEntitiesReturnNotFound(t *testing.T) {
	_, handler := newTestServer(t)
	require.Equal(t, http.StatusNotFound, get(t, handler, "/v1/positions/unknown", nil))
	require.Equal(t, http.StatusNotFound, get(t, handler, "/v1/participants/unknown", nil))
	require.Equal(t, http.StatusBadRequest, get(t, handler, "/v1/session/viewers/nope", nil))
	require.Equal(t, http.StatusBadRequest, get(t, handler, "/v1/events?after=x", nil))
}

func TestPoolTreasuryAndEvents(t *testing.T) {
	app, handler := newTestServer(t)
	_, err := app.Stake(context.Background(), routeAdvertiser, big.NewInt(50))
	require.NoError(t, err)

	var pool poolView
	require.Equal(t, http.StatusOK, get(t, handler, "/v1/pool", &pool))
	require.Equal(t, "50", pool.TotalStaked)
	require.EqualValues(t, 1, pool.PositionCount)

	var tr map[string]string
	require.Equal(t, http.StatusOK, get(t, handler, "/v1/treasury", &tr))
	require.Equal(t, "1000", tr["yieldReserve"])

	var page []struct {
		Seq   uint64 `json:"seq"`
		Event struct {
			Type string `json:"type"`
		} `json:"event"`
	}
	require.Equal(t, http.StatusOK, get(t, handler, "/v1/events?after=0&limit=2", &page))
	require.Len(t, page, 2)
	require.EqualValues(t, 1, page[0].Seq)
}
