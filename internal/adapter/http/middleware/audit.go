package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"picksearch-partner-api/internal/core/domain"
	"picksearch-partner-api/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type auditRoute struct {
	action       domain.AuditAction
	resourceType string
	idParam      string
}

// auditedRoutes maps "METHOD route-template" to the audit action it records.
var auditedRoutes = map[string]auditRoute{
	"PUT /api/v1/partners/:partner_id/webhook":                    {domain.AuditActionUpdateWebhook, "partner", "partner_id"},
	"POST /api/v1/partners/:partner_id/webhook/rotate-secret":     {domain.AuditActionRotateSecret, "partner", "partner_id"},
	"POST /api/v1/partners/:partner_id/webhook/test":              {domain.AuditActionTestWebhook, "partner", "partner_id"},
	"POST /api/v1/partners/:partner_id/surveys/:survey_id/deploy": {domain.AuditActionSurveyChange, "survey", "survey_id"},
	"POST /api/v1/partners/:partner_id/surveys/:survey_id/pause":  {domain.AuditActionSurveyChange, "survey", "survey_id"},
	"POST /api/v1/partners/:partner_id/surveys/:survey_id/resume": {domain.AuditActionSurveyChange, "survey", "survey_id"},
	"POST /api/v1/partners/:partner_id/surveys/:survey_id/cancel": {domain.AuditActionSurveyChange, "survey", "survey_id"},
	"POST /api/v1/admin/webhook-deliveries/:id/replay":            {domain.AuditActionReplay, "webhook_delivery", "id"},
}

// AuditLog creates an audit middleware that records successful write operations.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		route, ok := auditedRoutes[c.Request.Method+" "+c.FullPath()]
		if !ok {
			return
		}

		var partnerID *uuid.UUID
		if id, ok := PartnerID(c); ok {
			partnerID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			PartnerID:    partnerID,
			Action:       route.action,
			ResourceType: route.resourceType,
			ResourceID:   c.Param(route.idParam),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}
