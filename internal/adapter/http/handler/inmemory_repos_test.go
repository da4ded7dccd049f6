package handler_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"picksearch-partner-api/internal/core/domain"
	"picksearch-partner-api/internal/core/ports"

	"github.com/google/uuid"
)

// --- In-Memory Partner Repo ---

type inMemoryPartnerRepo struct {
	mu       sync.RWMutex
	partners map[uuid.UUID]domain.Partner
}

func newInMemoryPartnerRepo() *inMemoryPartnerRepo {
	return &inMemoryPartnerRepo{partners: make(map[uuid.UUID]domain.Partner)}
}

func (r *inMemoryPartnerRepo) seed(p domain.Partner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partners[p.ID] = p
}

func (r *inMemoryPartnerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.partners[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *inMemoryPartnerRepo) UpdateWebhook(ctx context.Context, p *domain.Partner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.partners[p.ID]
	if !ok {
		return fmt.Errorf("partner %s not found", p.ID)
	}
	existing.WebhookURL = p.WebhookURL
	existing.WebhookSecretEnc = p.WebhookSecretEnc
	existing.UpdatedAt = p.UpdatedAt
	r.partners[p.ID] = existing
	return nil
}

// --- In-Memory Survey Repo ---

type inMemorySurveyRepo struct {
	mu      sync.RWMutex
	surveys map[uuid.UUID]domain.Survey
}

func newInMemorySurveyRepo() *inMemorySurveyRepo {
	return &inMemorySurveyRepo{surveys: make(map[uuid.UUID]domain.Survey)}
}

func (r *inMemorySurveyRepo) seed(s domain.Survey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surveys[s.ID] = s
}

func (r *inMemorySurveyRepo) GetByID(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.surveys[surveyID]
	if !ok || s.PartnerID != partnerID {
		return nil, nil
	}
	return &s, nil
}

func (r *inMemorySurveyRepo) UpdateStatus(ctx context.Context, surveyID uuid.UUID, from, to domain.SurveyStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surveys[surveyID]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	r.surveys[surveyID] = s
	return true, nil
}

// --- In-Memory Delivery Repo ---

type inMemoryDeliveryRepo struct {
	mu       sync.RWMutex
	attempts map[uuid.UUID]domain.DeliveryAttempt
}

func newInMemoryDeliveryRepo() *inMemoryDeliveryRepo {
	return &inMemoryDeliveryRepo{attempts: make(map[uuid.UUID]domain.DeliveryAttempt)}
}

func (r *inMemoryDeliveryRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[a.ID] = *a
	return nil
}

func (r *inMemoryDeliveryRepo) Update(ctx context.Context, a *domain.DeliveryAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attempts[a.ID]; !ok {
		return fmt.Errorf("attempt %s not found", a.ID)
	}
	r.attempts[a.ID] = *a
	return nil
}

func (r *inMemoryDeliveryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *inMemoryDeliveryRepo) List(ctx context.Context, params ports.DeliveryListParams) ([]domain.DeliveryAttempt, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.DeliveryAttempt
	for _, a := range r.attempts {
		if params.PartnerID != nil && a.PartnerID != *params.PartnerID {
			continue
		}
		if params.Status != nil && a.Status != *params.Status {
			continue
		}
		if params.EventType != nil && a.EventType != *params.EventType {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Sequence < matched[j].Sequence })

	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *inMemoryDeliveryRepo) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]domain.DeliveryAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var claimed []domain.DeliveryAttempt
	for id, a := range r.attempts {
		if len(claimed) >= limit {
			break
		}
		claimable := a.Status == domain.DeliveryStatusPending || a.Status == domain.DeliveryStatusFailed
		if !claimable || a.NextAttemptAt == nil || a.NextAttemptAt.After(now) {
			continue
		}
		next := now.Add(lease)
		a.NextAttemptAt = &next
		r.attempts[id] = a
		claimed = append(claimed, a)
	}
	return claimed, nil
}

func (r *inMemoryDeliveryRepo) Requeue(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok || a.Status != domain.DeliveryStatusExhausted {
		return false, nil
	}
	a.Status = domain.DeliveryStatusFailed
	a.Attempts = 0
	a.NextAttemptAt = &at
	a.UpdatedAt = at
	r.attempts[id] = a
	return true, nil
}

// snapshot returns copies of all attempts for assertions.
func (r *inMemoryDeliveryRepo) snapshot() []domain.DeliveryAttempt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.DeliveryAttempt, 0, len(r.attempts))
	for _, a := range r.attempts {
		out = append(out, a)
	}
	return out
}
