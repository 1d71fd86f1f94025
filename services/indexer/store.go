// Package indexer mirrors the committed ledger event log into a SQL database
// for querying by explorers and reporting jobs.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"adlottery/core/events"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Source pages through the authoritative event log.
type Source interface {
	Events(ctx context.Context, after uint64, limit int) ([]events.Record, error)
}

// Store persists ledger events. It implements events.Sink.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger

	mu     sync.Mutex
	source Source
	behind bool
}

// Open connects to dsn. DSNs starting with "sqlite:" use the embedded sqlite
// driver; everything else is handed to postgres.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("indexer: dsn required")
	}
	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(trimmed, "sqlite:"); ok {
		dialector = sqlite.Open(path)
	} else {
		dialector = postgres.Open(trimmed)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return New(db, logger)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("indexer: database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Index stores rec. Records already indexed are ignored.
func (s *Store) Index(ctx context.Context, rec events.Record) error {
	row, err := fromRecord(rec)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "seq"}}, DoNothing: true}).
		Create(row).Error
}

// Follow sets the log that Deliver replays from after a failed insert.
func (s *Store) Follow(src Source) {
	s.mu.Lock()
	s.source = src
	s.mu.Unlock()
}

// Deliver implements events.Sink. After a failed insert the store is marked
// behind and the next delivery first catches up from the followed source.
// Without a source the gap stays until the next explicit CatchUp.
func (s *Store) Deliver(rec events.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	if s.behind && s.source != nil {
		n, err := s.CatchUp(ctx, s.source)
		if err != nil {
			s.logger.Warn("index catch-up failed",
				slog.Uint64("seq", rec.Seq),
				slog.Any("err", err))
			return
		}
		s.behind = false
		s.logger.Info("indexer recovered", slog.Int("events", n))
	}
	if err := s.Index(ctx, rec); err != nil {
		s.behind = true
		s.logger.Warn("index event failed",
			slog.Uint64("seq", rec.Seq),
			slog.Any("err", err))
	}
}

// LastSeq returns the highest indexed sequence number, zero when empty.
func (s *Store) LastSeq(ctx context.Context) (uint64, error) {
	var last uint64
	err := s.db.WithContext(ctx).Model(&EventRecord{}).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&last).Error
	return last, err
}

// CatchUp copies every event after LastSeq from src. It returns the number of
// records indexed.
func (s *Store) CatchUp(ctx context.Context, src Source) (int, error) {
	last, err := s.LastSeq(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for {
		page, err := src.Events(ctx, last, defaultPageSize)
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			return total, nil
		}
		for _, rec := range page {
			if err := s.Index(ctx, rec); err != nil {
				return total, err
			}
			last = rec.Seq
			total++
		}
	}
}

// After returns indexed events with a sequence greater than seq.
func (s *Store) After(ctx context.Context, seq uint64, limit int) ([]events.Record, error) {
	var rows []EventRecord
	err := s.db.WithContext(ctx).
		Where("seq > ?", seq).
		Order("seq ASC").
		Limit(pageSize(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toRecords(rows)
}

// ByType returns the most recent events of type typ, newest first.
func (s *Store) ByType(ctx context.Context, typ string, limit int) ([]events.Record, error) {
	var rows []EventRecord
	err := s.db.WithContext(ctx).
		Where("type = ?", strings.TrimSpace(typ)).
		Order("seq DESC").
		Limit(pageSize(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toRecords(rows)
}

func pageSize(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}

func toRecords(rows []EventRecord) ([]events.Record, error) {
	out := make([]events.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
