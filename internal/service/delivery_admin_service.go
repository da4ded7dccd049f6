package service

import (
	"context"
	"time"

	"picksearch-partner-api/internal/core/domain"
	"picksearch-partner-api/internal/core/ports"
	"picksearch-partner-api/pkg/apperror"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type deliveryAdminService struct {
	deliveries ports.DeliveryRepository
	now        func() time.Time
}

// NewDeliveryAdminService creates the delivery log / dead-letter service.
func NewDeliveryAdminService(deliveries ports.DeliveryRepository) ports.DeliveryAdminService {
	return &deliveryAdminService{deliveries: deliveries, now: time.Now}
}

func (s *deliveryAdminService) List(ctx context.Context, params ports.DeliveryListParams) ([]domain.DeliveryAttempt, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}
	if params.Status != nil && !params.Status.Valid() {
		return nil, 0, apperror.Validation("unknown delivery status: " + string(*params.Status))
	}

	items, total, err := s.deliveries.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(err)
	}
	return items, total, nil
}

func (s *deliveryAdminService) Get(ctx context.Context, id uuid.UUID) (*domain.DeliveryAttempt, error) {
	attempt, err := s.deliveries.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if attempt == nil {
		return nil, apperror.ErrNotFound("webhook delivery")
	}
	return attempt, nil
}

// Replay puts a dead-lettered delivery back in the retry queue with a fresh
// attempt budget. The retry scheduler sends it on its next poll.
func (s *deliveryAdminService) Replay(ctx context.Context, id uuid.UUID) (*domain.DeliveryAttempt, error) {
	attempt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !attempt.IsDeadLettered() {
		return nil, apperror.ErrDeliveryNotReplayable(string(attempt.Status))
	}

	now := s.now()
	ok, err := s.deliveries.Requeue(ctx, id, now)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if !ok {
		// a concurrent replay got there first
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperror.ErrDeliveryNotReplayable(string(current.Status))
	}

	attempt.Status = domain.DeliveryStatusFailed
	attempt.Attempts = 0
	attempt.NextAttemptAt = &now
	attempt.UpdatedAt = now
	return attempt, nil
}
