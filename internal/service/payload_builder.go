package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"picksearch-partner-api/internal/core/domain"

	"github.com/google/uuid"
)

// TimestampLayout is ISO-8601 UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var (
	errEmptyEvent = errors.New("event name is empty")
	errNilData    = errors.New("event data is nil")
)

// PayloadBuilder turns an event and its data into an envelope and its
// canonical bytes.
type PayloadBuilder struct {
	now func() time.Time
}

// NewPayloadBuilder creates a builder. A nil clock means time.Now.
func NewPayloadBuilder(now func() time.Time) *PayloadBuilder {
	if now == nil {
		now = time.Now
	}
	return &PayloadBuilder{now: now}
}

// NewEnvelope stamps the event with the current time and a fresh id and
// encodes data on the spot. The clock is read exactly once.
func (b *PayloadBuilder) NewEnvelope(event domain.EventType, data map[string]any) (*domain.Envelope, error) {
	if event == "" {
		return nil, errEmptyEvent
	}
	if data == nil {
		return nil, errNilData
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s data: %w", event, err)
	}
	return &domain.Envelope{
		Event:     event,
		Timestamp: b.now().UTC().Format(TimestampLayout),
		Data:      raw,
		ID:        uuid.New(),
	}, nil
}

// Encode serializes the envelope. Top-level fields follow struct order and
// map keys are sorted, so equal envelopes always encode to equal bytes.
func (b *PayloadBuilder) Encode(env *domain.Envelope) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", env.Event, err)
	}
	return body, nil
}
