package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the meaning of an envelope's data.
type EventType string

const (
	EventSurveyDeployed      EventType = "survey.deployed"
	EventSurveyStatusChanged EventType = "survey.status_changed"
	EventWebhookTest         EventType = "webhook.test"
)

// Wire constants shared by the sender and partner-side verification.
const (
	HeaderSignature  = "X-Picksearch-Signature"
	HeaderEvent      = "X-Picksearch-Event"
	HeaderDeliveryID = "X-Picksearch-Delivery"
	SignaturePrefix  = "sha256="
)

// Envelope is the body posted to a partner endpoint. Field order is fixed
// by declaration. Data is encoded when the envelope is built, with map keys
// sorted, so the bytes are canonical and later changes to the caller's map
// never reach the wire.
type Envelope struct {
	Event     EventType       `json:"event"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	ID        uuid.UUID       `json:"id"`
	Sequence  int64           `json:"sequence,omitempty"`
}

// DeliveryStatus is the lifecycle state of a persisted delivery.
type DeliveryStatus string

const (
	// DeliveryStatusPending: recorded, first attempt in flight. Due for the
	// scheduler once NextAttemptAt passes without an outcome.
	DeliveryStatusPending DeliveryStatus = "pending"
	// DeliveryStatusDelivered: the partner answered 2xx.
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	// DeliveryStatusFailed: last attempt unsuccessful, retry due at NextAttemptAt.
	DeliveryStatusFailed DeliveryStatus = "failed"
	// DeliveryStatusExhausted: terminal and dead-lettered.
	DeliveryStatusExhausted DeliveryStatus = "exhausted"
)

// Valid reports whether s is a known status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusDelivered, DeliveryStatusFailed, DeliveryStatusExhausted:
		return true
	}
	return false
}

// DeliveryOutcome classifies a single HTTP attempt.
type DeliveryOutcome string

const (
	OutcomeDelivered DeliveryOutcome = "delivered"
	OutcomeRejected  DeliveryOutcome = "rejected"
	OutcomeFailed    DeliveryOutcome = "failed"
)

// DeliveryResult is what one attempt produced. Err is set only for OutcomeFailed.
type DeliveryResult struct {
	Outcome    DeliveryOutcome
	StatusCode int
	Reason     string
	Err        error
	Latency    time.Duration
}

// Retryable reports whether another attempt could plausibly succeed.
// Transport failures are retryable; so are server errors and the
// throttling/timeout family of client errors.
func (r DeliveryResult) Retryable() bool {
	switch r.Outcome {
	case OutcomeFailed:
		return true
	case OutcomeRejected:
		switch {
		case r.StatusCode >= 500:
			return true
		case r.StatusCode == http.StatusRequestTimeout,
			r.StatusCode == http.StatusTooEarly,
			r.StatusCode == http.StatusTooManyRequests:
			return true
		}
	}
	return false
}

// ErrorMessage renders the result for last_error columns and logs.
func (r DeliveryResult) ErrorMessage() string {
	switch r.Outcome {
	case OutcomeFailed:
		if r.Err != nil {
			return r.Err.Error()
		}
		return "delivery failed"
	case OutcomeRejected:
		return fmt.Sprintf("HTTP %d: %s", r.StatusCode, r.Reason)
	}
	return ""
}

// DeliveryAttempt is the persisted record of one event's delivery to one partner.
// Payload holds the exact bytes that were signed and sent; retries resend them unchanged.
type DeliveryAttempt struct {
	ID            uuid.UUID      `json:"id"`
	EventID       uuid.UUID      `json:"event_id"`
	PartnerID     uuid.UUID      `json:"partner_id"`
	EventType     EventType      `json:"event_type"`
	Sequence      int64          `json:"sequence"`
	WebhookURL    string         `json:"webhook_url"`
	Payload       []byte         `json:"-"`
	Attempts      int            `json:"attempts"`
	Status        DeliveryStatus `json:"status"`
	HTTPStatus    *int           `json:"http_status,omitempty"`
	LastError     *string        `json:"last_error,omitempty"`
	NextAttemptAt *time.Time     `json:"next_attempt_at,omitempty"`
	DeliveredAt   *time.Time     `json:"delivered_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// IsDeadLettered returns true if the attempt exhausted its budget.
func (a *DeliveryAttempt) IsDeadLettered() bool {
	return a.Status == DeliveryStatusExhausted
}
