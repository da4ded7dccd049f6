package postgres

import (
	"context"
	"errors"
	"fmt"

	"picksearch-partner-api/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PartnerRepo implements ports.PartnerRepository using PostgreSQL.
type PartnerRepo struct {
	pool Pool
}

// NewPartnerRepo creates a new PartnerRepo.
func NewPartnerRepo(pool Pool) *PartnerRepo {
	return &PartnerRepo{pool: pool}
}

// GetByID retrieves a partner by primary key. Returns (nil, nil) when not found.
func (r *PartnerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error) {
	query := `
		SELECT id, name, webhook_url, webhook_secret_enc, created_at, updated_at
		FROM partners WHERE id = $1`

	var p domain.Partner
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.WebhookURL, &p.WebhookSecretEnc, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("partner get by id: %w", err)
	}
	return &p, nil
}

// UpdateWebhook writes the webhook URL and encrypted secret of a partner.
func (r *PartnerRepo) UpdateWebhook(ctx context.Context, p *domain.Partner) error {
	query := `
		UPDATE partners
		SET webhook_url = $1, webhook_secret_enc = $2, updated_at = $3
		WHERE id = $4`

	tag, err := r.pool.Exec(ctx, query, p.WebhookURL, p.WebhookSecretEnc, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("partner update webhook: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("partner update webhook: partner %s not found", p.ID)
	}
	return nil
}
