package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SourceRef identifies the payment that produced the event.
type SourceRef struct {
	UserID     uuid.UUID `json:"userId"`
	Provider   string    `json:"provider,omitempty"`
	ExternalID string    `json:"externalId,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Source     *SourceRef      `json:"source,omitempty"`
	Data       json.RawMessage `json:"data"`
}
