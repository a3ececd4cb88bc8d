// Package domain defines the outbox envelope entity and its lifecycle types.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery status of an outbox envelope.
//
// Valid transitions: pending -> processing, failed -> processing,
// processing -> published, processing -> failed. A failed envelope re-enters
// the claimable pool until its attempt count reaches the configured maximum;
// published is terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPublished  Status = "published"
	StatusFailed     Status = "failed"
)

// MaxLastErrorLength bounds the stored last_error column.
const MaxLastErrorLength = 4000

// EmptyPayload is the fallback payload for rows whose stored payload cannot
// be parsed.
var EmptyPayload = json.RawMessage(`{}`)

// Envelope represents one domain event awaiting or having completed delivery.
// Envelopes are created by the publisher inside the same unit of work as the
// business mutation they describe, and mutated only by the repository's
// claim/mark operations.
type Envelope struct {
	ID           uuid.UUID
	EventType    string
	Payload      json.RawMessage
	Status       Status
	AttemptCount int
	PublishedAt  *time.Time
	LastError    *string
	CreatedAt    time.Time
	TenantID     uuid.UUID
}

// Claimable reports whether the envelope is eligible for claiming given the
// configured maximum attempt count.
func (e *Envelope) Claimable(maxAttempts int) bool {
	switch e.Status {
	case StatusPending:
		return true
	case StatusFailed:
		return e.AttemptCount < maxAttempts
	default:
		return false
	}
}

// TruncateError bounds an error message to MaxLastErrorLength bytes.
func TruncateError(msg string) string {
	if len(msg) > MaxLastErrorLength {
		return msg[:MaxLastErrorLength]
	}
	return msg
}

// NormalizePayload defensively parses a stored payload. The column should
// hold a JSON object, but driver and storage quirks can surface it as a
// JSON-encoded string of an object instead; both forms are accepted. The
// second return value is false when the payload was malformed and the empty
// object fallback was used.
func NormalizePayload(raw []byte) (json.RawMessage, bool) {
	if len(raw) == 0 {
		return EmptyPayload, false
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return EmptyPayload, false
	}

	switch v := value.(type) {
	case map[string]any:
		return json.RawMessage(raw), true
	case string:
		// Payload stored as a JSON-encoded string; parse one level deeper.
		var nested any
		if err := json.Unmarshal([]byte(v), &nested); err != nil {
			return EmptyPayload, false
		}
		if _, ok := nested.(map[string]any); !ok {
			return EmptyPayload, false
		}
		return json.RawMessage(v), true
	default:
		return EmptyPayload, false
	}
}
