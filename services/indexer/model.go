package indexer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"adlottery/core/events"
	"adlottery/core/types"
)

// EventRecord is the SQL row of one committed ledger event.
type EventRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Seq         uint64    `gorm:"uniqueIndex;not null"`
	Type        string    `gorm:"size:64;index"`
	CommittedAt int64     `gorm:"index"`
	Attributes  string    `gorm:"type:text"`
	CreatedAt   time.Time
}

// TableName pins the table name across drivers.
func (EventRecord) TableName() string { return "ledger_events" }

// BeforeCreate assigns the row id.
func (r *EventRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// AutoMigrate creates or updates the indexer tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EventRecord{})
}

func fromRecord(rec events.Record) (*EventRecord, error) {
	if rec.Event == nil {
		return nil, fmt.Errorf("indexer: record %d has no event", rec.Seq)
	}
	attrs := rec.Event.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("indexer: encode attributes: %w", err)
	}
	return &EventRecord{
		Seq:         rec.Seq,
		Type:        rec.Event.Type,
		CommittedAt: rec.CommittedAt,
		Attributes:  string(raw),
	}, nil
}

func (r EventRecord) toRecord() (events.Record, error) {
	attrs := map[string]string{}
	if r.Attributes != "" {
		if err := json.Unmarshal([]byte(r.Attributes), &attrs); err != nil {
			return events.Record{}, fmt.Errorf("indexer: decode attributes of %d: %w", r.Seq, err)
		}
	}
	return events.Record{
		Seq:         r.Seq,
		CommittedAt: r.CommittedAt,
		Event:       &types.Event{Type: r.Type, Attributes: attrs},
	}, nil
}
