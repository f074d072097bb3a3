package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lumenchat/billing-backend/pkg/enums"
)

// OutboxEvent stages a billing event for asynchronous publication. Rows are
// written in the same transaction as the state change they describe.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
