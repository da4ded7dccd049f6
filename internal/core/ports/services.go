package ports

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

import (
	"context"
	"time"

	"picksearch-partner-api/internal/core/domain"

	"github.com/google/uuid"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService computes and checks webhook signatures.
type SignatureService interface {
	Sign(secret string, message []byte) string
	Verify(secret string, message []byte, signature string) bool
}

// SequenceStore hands out a monotonically increasing number per partner.
type SequenceStore interface {
	Next(ctx context.Context, partnerID uuid.UUID) (int64, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// RateLimiter enforces a fixed window limit per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// DeliveryRequest is one signed POST to a partner endpoint.
type DeliveryRequest struct {
	DeliveryID uuid.UUID
	PartnerID  uuid.UUID
	Event      domain.EventType
	URL        string
	Body       []byte
	Signature  string
	Attempt    int
}

// DeliveryClient performs a single HTTP delivery. It never returns an
// error; the outcome is carried in the result.
type DeliveryClient interface {
	Deliver(ctx context.Context, req DeliveryRequest) domain.DeliveryResult
}

// --- Service Ports (Business Logic) ---

// WebhookDispatcher notifies a partner about an event. Dispatch returns
// immediately; delivery happens in the background and never reports back.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, partner *domain.Partner, event domain.EventType, data map[string]any)
}

// Redeliverer resends a persisted attempt to the partner's current endpoint.
type Redeliverer interface {
	Redeliver(ctx context.Context, attempt *domain.DeliveryAttempt, partner *domain.Partner)
}

// PartnerService manages a partner's webhook subscription.
type PartnerService interface {
	GetWebhookConfig(ctx context.Context, partnerID uuid.UUID) (*WebhookConfig, error)
	UpdateWebhookURL(ctx context.Context, partnerID uuid.UUID, webhookURL *string) (*WebhookConfig, error)
	RotateWebhookSecret(ctx context.Context, partnerID uuid.UUID) (*RotateSecretResponse, error)
	// GetWebhookTarget returns the partner with its secret decrypted, or nil if missing.
	GetWebhookTarget(ctx context.Context, partnerID uuid.UUID) (*domain.Partner, error)
	SendTestEvent(ctx context.Context, partnerID uuid.UUID) error
}

// WebhookConfig is the partner-visible webhook subscription state.
type WebhookConfig struct {
	PartnerID        uuid.UUID
	WebhookURL       *string
	SecretConfigured bool
	UpdatedAt        time.Time
}

// RotateSecretResponse holds the new secret, shown once.
type RotateSecretResponse struct {
	PartnerID     uuid.UUID
	WebhookSecret string
}

// SurveyService drives survey lifecycle transitions for a partner.
type SurveyService interface {
	Deploy(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error)
	Pause(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error)
	Resume(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error)
	Cancel(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error)
	Stats(ctx context.Context, partnerID, surveyID uuid.UUID) (*SurveyStats, error)
}

// SurveyStats summarizes response collection for a survey.
type SurveyStats struct {
	SurveyID        uuid.UUID
	Status          domain.SurveyStatus
	TargetResponses int
	ResponseCount   int
	UnusedResponses int
	CompletionRatio float64
}

// DeliveryAdminService exposes the delivery log and dead-letter replay.
type DeliveryAdminService interface {
	List(ctx context.Context, params DeliveryListParams) ([]domain.DeliveryAttempt, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.DeliveryAttempt, error)
	Replay(ctx context.Context, id uuid.UUID) (*domain.DeliveryAttempt, error)
}

// AuditService records audit entries asynchronously.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
