package handler

import (
	"time"

	"picksearch-partner-api/internal/adapter/http/dto"
	"picksearch-partner-api/internal/adapter/http/middleware"
	"picksearch-partner-api/internal/core/ports"
	"picksearch-partner-api/pkg/apperror"
	"picksearch-partner-api/pkg/response"

	"github.com/gin-gonic/gin"
)

// WebhookHandler serves a partner's webhook subscription endpoints.
type WebhookHandler struct {
	partnerSvc ports.PartnerService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(partnerSvc ports.PartnerService) *WebhookHandler {
	return &WebhookHandler{partnerSvc: partnerSvc}
}

// GetConfig handles GET /api/v1/partners/:partner_id/webhook.
func (h *WebhookHandler) GetConfig(c *gin.Context) {
	partnerID, ok := middleware.PartnerID(c)
	if !ok {
		response.Error(c, apperror.Validation("invalid partner_id"))
		return
	}

	cfg, err := h.partnerSvc.GetWebhookConfig(c.Request.Context(), partnerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWebhookConfigResponse(cfg))
}

// UpdateURL handles PUT /api/v1/partners/:partner_id/webhook.
func (h *WebhookHandler) UpdateURL(c *gin.Context) {
	partnerID, ok := middleware.PartnerID(c)
	if !ok {
		response.Error(c, apperror.Validation("invalid partner_id"))
		return
	}

	var req dto.UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	cfg, err := h.partnerSvc.UpdateWebhookURL(c.Request.Context(), partnerID, req.WebhookURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWebhookConfigResponse(cfg))
}

// RotateSecret handles POST /api/v1/partners/:partner_id/webhook/rotate-secret.
func (h *WebhookHandler) RotateSecret(c *gin.Context) {
	partnerID, ok := middleware.PartnerID(c)
	if !ok {
		response.Error(c, apperror.Validation("invalid partner_id"))
		return
	}

	result, err := h.partnerSvc.RotateWebhookSecret(c.Request.Context(), partnerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.RotateSecretResponse{
		PartnerID:     result.PartnerID.String(),
		WebhookSecret: result.WebhookSecret,
	})
}

// SendTest handles POST /api/v1/partners/:partner_id/webhook/test.
// Delivery happens in the background, so the response is 202.
func (h *WebhookHandler) SendTest(c *gin.Context) {
	partnerID, ok := middleware.PartnerID(c)
	if !ok {
		response.Error(c, apperror.Validation("invalid partner_id"))
		return
	}

	if err := h.partnerSvc.SendTestEvent(c.Request.Context(), partnerID); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"message": "test event queued"})
}

func toWebhookConfigResponse(cfg *ports.WebhookConfig) dto.WebhookConfigResponse {
	return dto.WebhookConfigResponse{
		PartnerID:        cfg.PartnerID.String(),
		WebhookURL:       cfg.WebhookURL,
		SecretConfigured: cfg.SecretConfigured,
		UpdatedAt:        cfg.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
