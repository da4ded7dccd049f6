package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Partner is an API-consuming tenant that may subscribe to webhook events.
// Partner records are owned by partner management; the webhook path only
// reads WebhookURL and WebhookSecret.
type Partner struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	WebhookURL       *string   `json:"webhook_url,omitempty"`
	WebhookSecret    *string   `json:"-"` // Plaintext, populated only after decryption
	WebhookSecretEnc *string   `json:"-"` // AES-256-GCM at rest
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasWebhook reports whether the partner is subscribed to event delivery.
func (p *Partner) HasWebhook() bool {
	return p != nil && p.WebhookURL != nil && strings.TrimSpace(*p.WebhookURL) != ""
}

// Secret returns the MAC key for this partner; unset means the empty key.
func (p *Partner) Secret() string {
	if p == nil || p.WebhookSecret == nil {
		return ""
	}
	return *p.WebhookSecret
}

// HasSecret reports whether a non-empty webhook secret is configured.
func (p *Partner) HasSecret() bool {
	return p.Secret() != ""
}
