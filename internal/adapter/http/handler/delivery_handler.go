package handler

import (
	"math"
	"strconv"
	"time"

	"picksearch-partner-api/internal/adapter/http/dto"
	"picksearch-partner-api/internal/core/domain"
	"picksearch-partner-api/internal/core/ports"
	"picksearch-partner-api/pkg/apperror"
	"picksearch-partner-api/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DeliveryHandler serves the delivery log and dead-letter replay.
type DeliveryHandler struct {
	deliverySvc ports.DeliveryAdminService
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(deliverySvc ports.DeliveryAdminService) *DeliveryHandler {
	return &DeliveryHandler{deliverySvc: deliverySvc}
}

// List handles GET /api/v1/admin/webhook-deliveries.
func (h *DeliveryHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := ports.DeliveryListParams{Page: page, PageSize: pageSize}

	if p := c.Query("partner_id"); p != "" {
		id, err := uuid.Parse(p)
		if err != nil {
			response.Error(c, apperror.Validation("invalid partner_id"))
			return
		}
		params.PartnerID = &id
	}
	if s := c.Query("status"); s != "" {
		status := domain.DeliveryStatus(s)
		params.Status = &status
	}
	if e := c.Query("event"); e != "" {
		event := domain.EventType(e)
		params.EventType = &event
	}

	attempts, total, err := h.deliverySvc.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.DeliveryResponse, 0, len(attempts))
	for i := range attempts {
		items = append(items, toDeliveryResponse(&attempts[i]))
	}

	response.OK(c, dto.DeliveryListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	})
}

// Get handles GET /api/v1/admin/webhook-deliveries/:id.
func (h *DeliveryHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid delivery id"))
		return
	}

	attempt, err := h.deliverySvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.DeliveryDetailResponse{
		DeliveryResponse: toDeliveryResponse(attempt),
		Payload:          string(attempt.Payload),
	})
}

// Replay handles POST /api/v1/admin/webhook-deliveries/:id/replay.
// The attempt is rescheduled for the retry scheduler, so the response is 202.
func (h *DeliveryHandler) Replay(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid delivery id"))
		return
	}

	attempt, err := h.deliverySvc.Replay(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, toDeliveryResponse(attempt))
}

func toDeliveryResponse(a *domain.DeliveryAttempt) dto.DeliveryResponse {
	return dto.DeliveryResponse{
		ID:            a.ID.String(),
		EventID:       a.EventID.String(),
		PartnerID:     a.PartnerID.String(),
		EventType:     string(a.EventType),
		Sequence:      a.Sequence,
		WebhookURL:    a.WebhookURL,
		Attempts:      a.Attempts,
		Status:        string(a.Status),
		HTTPStatus:    a.HTTPStatus,
		LastError:     a.LastError,
		NextAttemptAt: formatTimePtr(a.NextAttemptAt),
		DeliveredAt:   formatTimePtr(a.DeliveredAt),
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
