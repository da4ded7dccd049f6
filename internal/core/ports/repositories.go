package ports

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

import (
	"context"
	"time"

	"picksearch-partner-api/internal/core/domain"

	"github.com/google/uuid"
)

// PartnerRepository defines persistence operations for partners.
// Only the webhook columns are written by this service.
type PartnerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error)
	UpdateWebhook(ctx context.Context, partner *domain.Partner) error
}

// SurveyRepository defines persistence operations for surveys.
type SurveyRepository interface {
	GetByID(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error)
	// UpdateStatus moves a survey from one status to another. It reports
	// false when the stored status no longer equals from.
	UpdateStatus(ctx context.Context, surveyID uuid.UUID, from, to domain.SurveyStatus) (bool, error)
}

// DeliveryRepository defines persistence for webhook delivery attempts.
type DeliveryRepository interface {
	Create(ctx context.Context, attempt *domain.DeliveryAttempt) error
	Update(ctx context.Context, attempt *domain.DeliveryAttempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryAttempt, error)
	List(ctx context.Context, params DeliveryListParams) ([]domain.DeliveryAttempt, int64, error)
	// ClaimDue returns up to limit pending or failed attempts whose
	// next_attempt_at has passed, pushing next_attempt_at forward by lease so
	// concurrent claimers skip them.
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]domain.DeliveryAttempt, error)
	// Requeue moves an exhausted attempt back to failed with a fresh budget,
	// due at at. Returns false when the attempt is not exhausted any more.
	Requeue(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// DeliveryListParams holds filter + pagination for listing deliveries.
type DeliveryListParams struct {
	PartnerID *uuid.UUID
	Status    *domain.DeliveryStatus
	EventType *domain.EventType
	Page      int
	PageSize  int
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}
