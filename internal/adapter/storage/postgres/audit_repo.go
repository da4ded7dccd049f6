package postgres

import (
	"context"
	"fmt"

	"picksearch-partner-api/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository using PostgreSQL.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Create inserts an audit entry. Empty details are stored as NULL.
func (r *AuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	var details *string
	if entry.Details != "" {
		details = &entry.Details
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, partner_id, action, resource_type, resource_id, details, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.PartnerID, string(entry.Action), entry.ResourceType,
		entry.ResourceID, details, entry.IPAddress, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit create: %w", err)
	}
	return nil
}
