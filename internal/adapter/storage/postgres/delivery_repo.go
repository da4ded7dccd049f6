package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"picksearch-partner-api/internal/core/domain"
	"picksearch-partner-api/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const deliveryColumns = `id, event_id, partner_id, event_type, sequence, webhook_url, payload,
	attempts, status, http_status, last_error, next_attempt_at, delivered_at, created_at, updated_at`

// DeliveryRepo implements ports.DeliveryRepository using PostgreSQL.
type DeliveryRepo struct {
	pool Pool
}

// NewDeliveryRepo creates a new DeliveryRepo.
func NewDeliveryRepo(pool Pool) *DeliveryRepo {
	return &DeliveryRepo{pool: pool}
}

// Create inserts a new delivery attempt record.
func (r *DeliveryRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	query := `INSERT INTO webhook_deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.EventID, a.PartnerID, string(a.EventType), a.Sequence, a.WebhookURL, a.Payload,
		a.Attempts, string(a.Status), a.HTTPStatus, a.LastError, a.NextAttemptAt, a.DeliveredAt,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("delivery create: %w", err)
	}
	return nil
}

// Update writes the mutable state of a delivery attempt.
func (r *DeliveryRepo) Update(ctx context.Context, a *domain.DeliveryAttempt) error {
	query := `
		UPDATE webhook_deliveries
		SET webhook_url = $1, attempts = $2, status = $3, http_status = $4, last_error = $5,
		    next_attempt_at = $6, delivered_at = $7, updated_at = $8
		WHERE id = $9`

	tag, err := r.pool.Exec(ctx, query,
		a.WebhookURL, a.Attempts, string(a.Status), a.HTTPStatus, a.LastError,
		a.NextAttemptAt, a.DeliveredAt, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("delivery update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delivery update: attempt %s not found", a.ID)
	}
	return nil
}

// GetByID retrieves a delivery attempt. Returns (nil, nil) when not found.
func (r *DeliveryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryAttempt, error) {
	query := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries WHERE id = $1`

	a, err := scanDelivery(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("delivery get by id: %w", err)
	}
	return a, nil
}

// List returns a filtered page of delivery attempts, newest first, plus the
// total count matching the filter.
func (r *DeliveryRepo) List(ctx context.Context, params ports.DeliveryListParams) ([]domain.DeliveryAttempt, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.PartnerID != nil {
		conditions = append(conditions, fmt.Sprintf("partner_id = $%d", argIdx))
		args = append(args, *params.PartnerID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*params.Status))
		argIdx++
	}
	if params.EventType != nil {
		conditions = append(conditions, fmt.Sprintf("event_type = $%d", argIdx))
		args = append(args, string(*params.EventType))
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM webhook_deliveries %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count deliveries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM webhook_deliveries %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, deliveryColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	attempts, err := collectDeliveries(rows)
	if err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// ClaimDue leases up to limit due attempts. Failed rows are due at their
// retry time; pending rows are due once their first-attempt lease has run
// out without an outcome being saved. Rows locked by a concurrent claimer
// are skipped.
func (r *DeliveryRepo) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]domain.DeliveryAttempt, error) {
	query := `
		UPDATE webhook_deliveries
		SET next_attempt_at = $1
		WHERE id IN (
			SELECT id FROM webhook_deliveries
			WHERE status IN ('pending', 'failed') AND next_attempt_at <= $2
			ORDER BY next_attempt_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + deliveryColumns

	rows, err := r.pool.Query(ctx, query, now.Add(lease), now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due deliveries: %w", err)
	}
	defer rows.Close()

	return collectDeliveries(rows)
}

// Requeue resets an exhausted attempt for another round of retries. The
// status guard makes concurrent replays of the same attempt race safely.
func (r *DeliveryRepo) Requeue(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE webhook_deliveries
		SET status = 'failed', attempts = 0, next_attempt_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'exhausted'`

	tag, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("delivery requeue: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanDelivery(row pgx.Row) (*domain.DeliveryAttempt, error) {
	var a domain.DeliveryAttempt
	err := row.Scan(
		&a.ID, &a.EventID, &a.PartnerID, &a.EventType, &a.Sequence, &a.WebhookURL, &a.Payload,
		&a.Attempts, &a.Status, &a.HTTPStatus, &a.LastError, &a.NextAttemptAt, &a.DeliveredAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectDeliveries(rows pgx.Rows) ([]domain.DeliveryAttempt, error) {
	var attempts []domain.DeliveryAttempt
	for rows.Next() {
		a, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery row: %w", err)
		}
		attempts = append(attempts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery rows: %w", err)
	}
	return attempts, nil
}
