package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionUpdateWebhook AuditAction = "UPDATE_WEBHOOK"
	AuditActionRotateSecret  AuditAction = "ROTATE_WEBHOOK_SECRET"
	AuditActionTestWebhook   AuditAction = "TEST_WEBHOOK"
	AuditActionReplay        AuditAction = "REPLAY_DELIVERY"
	AuditActionSurveyChange  AuditAction = "SURVEY_TRANSITION"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	PartnerID    *uuid.UUID  `json:"partner_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
