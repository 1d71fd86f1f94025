package metrics

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LotteryMetrics tracks ledger operations and balances.
type LotteryMetrics struct {
	operations  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	events      prometheus.Counter
	totalStaked prometheus.Gauge
	reserves    *prometheus.GaugeVec
	epoch       prometheus.Gauge
	draws       *prometheus.CounterVec
	payouts     prometheus.Counter
}

var (
	lotteryOnce     sync.Once
	lotteryRegistry *LotteryMetrics
)

// Lottery returns the lazily-initialised metrics registry.
func Lottery() *LotteryMetrics {
	lotteryOnce.Do(func() {
		lotteryRegistry = &LotteryMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "adlottery",
				Name:      "operations_total",
				Help:      "Ledger operations segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "adlottery",
				Name:      "operation_duration_seconds",
				Help:      "Latency of ledger operations including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
			events: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "adlottery",
				Name:      "events_committed_total",
				Help:      "Events appended to the committed event log.",
			}),
			totalStaked: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "adlottery",
				Name:      "pool_total_staked",
				Help:      "Principal currently held by the staking pool.",
			}),
			reserves: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "adlottery",
				Name:      "treasury_reserve",
				Help:      "Treasury balances by reserve.",
			}, []string{"reserve"}),
			epoch: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "adlottery",
				Name:      "lottery_epoch",
				Help:      "Current draw epoch.",
			}),
			draws: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "adlottery",
				Name:      "lottery_draws_total",
				Help:      "Pending winners drawn by strategy.",
			}, []string{"strategy"}),
			payouts: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "adlottery",
				Name:      "attendance_payouts_total",
				Help:      "Attendance reward draws paid during rotations.",
			}),
		}
		prometheus.MustRegister(
			lotteryRegistry.operations,
			lotteryRegistry.latency,
			lotteryRegistry.events,
			lotteryRegistry.totalStaked,
			lotteryRegistry.reserves,
			lotteryRegistry.epoch,
			lotteryRegistry.draws,
			lotteryRegistry.payouts,
		)
	})
	return lotteryRegistry
}

// ObserveOperation records the outcome and latency of an operation.
func (m *LotteryMetrics) ObserveOperation(op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	op = strings.TrimSpace(op)
	if op == "" {
		op = "unknown"
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// AddEvents counts committed events.
func (m *LotteryMetrics) AddEvents(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.events.Add(float64(n))
}

// SetTotalStaked publishes the pool principal.
func (m *LotteryMetrics) SetTotalStaked(amount *big.Int) {
	if m == nil {
		return
	}
	m.totalStaked.Set(toFloat(amount))
}

// SetReserve publishes a treasury reserve balance.
func (m *LotteryMetrics) SetReserve(reserve string, amount *big.Int) {
	if m == nil {
		return
	}
	m.reserves.WithLabelValues(reserve).Set(toFloat(amount))
}

// SetEpoch publishes the current draw epoch.
func (m *LotteryMetrics) SetEpoch(epoch uint64) {
	if m == nil {
		return
	}
	m.epoch.Set(float64(epoch))
}

// IncDraw counts a pending winner drawn with strategy.
func (m *LotteryMetrics) IncDraw(strategy string) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "unknown"
	}
	m.draws.WithLabelValues(strategy).Inc()
}

// AddPayouts counts attendance reward draws.
func (m *LotteryMetrics) AddPayouts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.payouts.Add(float64(n))
}

func toFloat(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f
}
