package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"adlottery/core/epoch"
	errs "adlottery/core/errors"
	"adlottery/core/events"
	"adlottery/core/random"
	ledgerstate "adlottery/core/state"
	"adlottery/native/treasury"
	"adlottery/observability/logging"
	"adlottery/observability/metrics"
	adotel "adlottery/observability/otel"
	"adlottery/storage"
)

// lockSet names the entity sets an operation touches. Locks are always taken
// in declaration order.
type lockSet uint8

const (
	lockRegistry lockSet = 1 << iota
	lockPool
	lockEpoch
	lockSession
	lockTreasury

	lockAll = lockRegistry | lockPool | lockEpoch | lockSession | lockTreasury
)

// App is the operation surface of the ledger. Every mutating operation runs
// against a fresh staging overlay and commits its writes and events in one
// storage batch, or leaves no trace at all.
type App struct {
	db      storage.Database
	epochs  epoch.Config
	rng     random.Provider
	nowFn   func() int64
	idFn    func() string
	logger  *slog.Logger
	metrics *metrics.LotteryMetrics
	tracer  trace.Tracer

	registryMu sync.Mutex
	poolMu     sync.Mutex
	epochMu    sync.Mutex
	sessionMu  sync.Mutex
	treasuryMu sync.Mutex
	commitMu   sync.Mutex

	sinkMu    sync.RWMutex
	sinks     []events.Sink
	deliverMu sync.Mutex
	pendingMu sync.Mutex
	pending   []events.Record
}

// Option customises an App.
type Option func(*App)

// WithClock overrides the Unix millisecond clock.
func WithClock(now func() int64) Option {
	return func(a *App) {
		if now != nil {
			a.nowFn = now
		}
	}
}

// WithRandomness overrides the randomness provider used by draws.
func WithRandomness(rng random.Provider) Option {
	return func(a *App) {
		if rng != nil {
			a.rng = rng
		}
	}
}

// WithIDFunc overrides the generator of opaque ids.
func WithIDFunc(fn func() string) Option {
	return func(a *App) {
		if fn != nil {
			a.idFn = fn
		}
	}
}

// WithEpochConfig overrides the yield epoch length.
func WithEpochConfig(cfg epoch.Config) Option {
	return func(a *App) {
		if cfg.LengthMs > 0 {
			a.epochs = cfg
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *metrics.LotteryMetrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithTracer overrides the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *App) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// NewApp constructs the ledger over db.
func NewApp(db storage.Database, opts ...Option) *App {
	app := &App{
		db:     db,
		epochs: epoch.DefaultConfig(),
		rng:    random.NewCryptoProvider(),
		nowFn:  func() int64 { return time.Now().UnixMilli() },
		idFn:   uuid.NewString,
		logger: logging.Discard(),
		tracer: adotel.Tracer(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

// AddSink registers a receiver for committed events. Sinks see records in
// sequence order, outside every ledger lock, before the committing operation
// returns.
func (a *App) AddSink(sink events.Sink) {
	if sink == nil {
		return
	}
	a.sinkMu.Lock()
	a.sinks = append(a.sinks, sink)
	a.sinkMu.Unlock()
}

func (a *App) acquire(set lockSet) func() {
	ordered := []struct {
		flag lockSet
		mu   *sync.Mutex
	}{
		{lockRegistry, &a.registryMu},
		{lockPool, &a.poolMu},
		{lockEpoch, &a.epochMu},
		{lockSession, &a.sessionMu},
		{lockTreasury, &a.treasuryMu},
	}
	held := make([]*sync.Mutex, 0, len(ordered))
	for _, entry := range ordered {
		if set&entry.flag == 0 {
			continue
		}
		entry.mu.Lock()
		held = append(held, entry.mu)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
		held = nil
	}
}

// run executes fn as one atomic operation.
func (a *App) run(ctx context.Context, op string, locks lockSet, fn func(*ledger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, span := a.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("ledger.op", op)))
	defer span.End()
	start := time.Now()

	release := a.acquire(locks)
	defer release()

	manager := ledgerstate.NewManager(a.db)
	buffer := &events.Buffer{}
	l := a.newLedger(manager, buffer)
	if err := fn(l); err != nil {
		manager.Discard()
		buffer.Discard()
		a.reject(span, op, start, err)
		return err
	}

	count, err := a.commit(manager, buffer)
	if err != nil {
		manager.Discard()
		a.reject(span, op, start, err)
		return err
	}
	a.observe(l, locks)
	release()
	a.deliver()
	a.metrics.ObserveOperation(op, "ok", time.Since(start))
	span.SetAttributes(attribute.Int("ledger.events", count))
	a.logger.Debug("operation committed",
		slog.String("op", op),
		slog.Int("events", count),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// view runs a read-only query against committed state while holding locks,
// so the query observes a single commit of those entity sets. Separate views
// may straddle commits.
func (a *App) view(ctx context.Context, locks lockSet, fn func(*ledger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	release := a.acquire(locks)
	defer release()
	return fn(a.newLedger(ledgerstate.NewManager(a.db), nil))
}

func (a *App) commit(manager *ledgerstate.Manager, buffer *events.Buffer) (int, error) {
	a.commitMu.Lock()
	defer a.commitMu.Unlock()

	records, err := manager.AppendEvents(buffer.Drain(), a.nowFn())
	if err != nil {
		return 0, err
	}
	if err := manager.Commit(); err != nil {
		return 0, err
	}
	a.metrics.AddEvents(len(records))

	a.pendingMu.Lock()
	a.pending = append(a.pending, records...)
	a.pendingMu.Unlock()
	return len(records), nil
}

// deliver hands every queued record to the sinks. Records are queued under
// commitMu and drained under deliverMu, so sinks observe sequence order even
// when a later commit drains an earlier one's records.
func (a *App) deliver() {
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()

	a.pendingMu.Lock()
	records := a.pending
	a.pending = nil
	a.pendingMu.Unlock()
	if len(records) == 0 {
		return
	}

	a.sinkMu.RLock()
	sinks := append([]events.Sink(nil), a.sinks...)
	a.sinkMu.RUnlock()
	for _, rec := range records {
		for _, sink := range sinks {
			sink.Deliver(rec)
		}
	}
}

func (a *App) reject(span trace.Span, op string, start time.Time, err error) {
	kind := errs.KindOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, kind.String())
	a.metrics.ObserveOperation(op, kind.String(), time.Since(start))
	a.logger.Info("operation rejected",
		slog.String("op", op),
		slog.String("kind", kind.String()),
		slog.Any("err", err))
}

// observe refreshes gauges for the entity sets the operation held.
func (a *App) observe(l *ledger, locks lockSet) {
	if a.metrics == nil {
		return
	}
	if locks&lockPool != 0 {
		if pool, err := l.staking.Pool(); err == nil {
			a.metrics.SetTotalStaked(pool.TotalStaked)
		}
	}
	if locks&lockEpoch != 0 {
		if current, err := l.lottery.CurrentEpoch(); err == nil {
			a.metrics.SetEpoch(current)
		}
	}
	if locks&lockTreasury != 0 {
		if t, err := l.treasury.Treasury(); err == nil {
			a.metrics.SetReserve(string(treasury.ReserveGeneral), t.Balance)
			a.metrics.SetReserve(string(treasury.ReserveYield), t.YieldReserve)
			a.metrics.SetReserve(string(treasury.ReserveVoting), t.VotingRewardReserve)
		}
	}
}
