package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InteractionEvent is one recorded delivery from the messaging gateway.
// The unique (source, event_key) index is what makes recording double
// deliveries safe.
type InteractionEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	Source      string         `gorm:"type:varchar(32);not null;uniqueIndex:ux_interaction_events_source_key,priority:1"`
	EventKey    string         `gorm:"type:varchar(255);not null;uniqueIndex:ux_interaction_events_source_key,priority:2"`
	Kind        string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`
	ReceivedAt  time.Time      `gorm:"type:datetime(3);not null"`
}

func (InteractionEvent) TableName() string { return "interaction_events" }

// RequestLog is one intake submission, kept for the audit trail.
type RequestLog struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	OrderNumber string         `gorm:"type:varchar(64);not null;index"`
	Email       string         `gorm:"type:varchar(255);not null"`
	RefundType  string         `gorm:"type:varchar(16);not null"`
	Outcome     string         `gorm:"type:varchar(32);not null"`
	MessageTS   string         `gorm:"type:varchar(32)"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt   time.Time      `gorm:"type:datetime(3);not null"`
}

func (RequestLog) TableName() string { return "refund_request_logs" }

// Store persists intake submissions and interaction deliveries. It is
// optional infrastructure: a nil *Store records nothing and never dedupes,
// so the approval flow itself keeps working without a database.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// RecordEvent inserts the delivery and reports whether it was seen before.
// Errors degrade to (false, nil): a broken audit DB must not block an
// operator's click, the workflow's own terminal-phase no-op still holds.
func (s *Store) RecordEvent(ctx context.Context, source, eventKey, kind string, payload []byte) bool {
	if s == nil || s.db == nil {
		return false
	}

	ev := InteractionEvent{
		ID:          uuid.NewString(),
		Source:      source,
		EventKey:    eventKey,
		Kind:        kind,
		PayloadJSON: datatypes.JSON(payload),
		ReceivedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&ev).Error; err != nil {
		if isDup(err) {
			s.logger.InfoContext(ctx, "interaction event deduplicated", "source", source, "event_key", eventKey)
			return true
		}
		s.logger.ErrorContext(ctx, "failed to persist interaction event", "source", source, "err", err)
	}
	return false
}

// RecordRequest logs one intake submission; best effort.
func (s *Store) RecordRequest(ctx context.Context, orderNumber, email, refundType, outcome, messageTS string, payload []byte) {
	if s == nil || s.db == nil {
		return
	}
	row := RequestLog{
		ID:          uuid.NewString(),
		OrderNumber: orderNumber,
		Email:       email,
		RefundType:  refundType,
		Outcome:     outcome,
		MessageTS:   messageTS,
		PayloadJSON: datatypes.JSON(payload),
		CreatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logger.ErrorContext(ctx, "failed to persist request log", "order_number", orderNumber, "err", err)
	}
}

func isDup(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
