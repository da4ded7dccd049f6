package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"picksearch-partner-api/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SurveyRepo implements ports.SurveyRepository using PostgreSQL.
type SurveyRepo struct {
	pool Pool
	now  func() time.Time
}

// NewSurveyRepo creates a new SurveyRepo.
func NewSurveyRepo(pool Pool) *SurveyRepo {
	return &SurveyRepo{pool: pool, now: time.Now}
}

// GetByID retrieves a survey owned by partnerID. Returns (nil, nil) when the
// survey does not exist or belongs to another partner.
func (r *SurveyRepo) GetByID(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error) {
	query := `
		SELECT id, partner_id, title, status, target_responses, response_count,
		       starts_at, ends_at, created_at, updated_at
		FROM surveys WHERE id = $1 AND partner_id = $2`

	var s domain.Survey
	err := r.pool.QueryRow(ctx, query, surveyID, partnerID).Scan(
		&s.ID, &s.PartnerID, &s.Title, &s.Status, &s.TargetResponses, &s.ResponseCount,
		&s.StartsAt, &s.EndsAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("survey get by id: %w", err)
	}
	return &s, nil
}

// UpdateStatus performs a compare-and-set on the survey status.
func (r *SurveyRepo) UpdateStatus(ctx context.Context, surveyID uuid.UUID, from, to domain.SurveyStatus) (bool, error) {
	query := `
		UPDATE surveys SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`

	tag, err := r.pool.Exec(ctx, query, string(to), r.now().UTC(), surveyID, string(from))
	if err != nil {
		return false, fmt.Errorf("survey update status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
