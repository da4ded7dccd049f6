package handler

import (
	"context"
	"time"

	"picksearch-partner-api/internal/adapter/http/dto"
	"picksearch-partner-api/internal/adapter/http/middleware"
	"picksearch-partner-api/internal/core/domain"
	"picksearch-partner-api/internal/core/ports"
	"picksearch-partner-api/pkg/apperror"
	"picksearch-partner-api/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SurveyHandler serves survey lifecycle endpoints.
type SurveyHandler struct {
	surveySvc ports.SurveyService
}

// NewSurveyHandler creates a new SurveyHandler.
func NewSurveyHandler(surveySvc ports.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveySvc: surveySvc}
}

type surveyAction func(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error)

// Deploy handles POST .../surveys/:survey_id/deploy.
func (h *SurveyHandler) Deploy(c *gin.Context) { h.transition(c, h.surveySvc.Deploy) }

// Pause handles POST .../surveys/:survey_id/pause.
func (h *SurveyHandler) Pause(c *gin.Context) { h.transition(c, h.surveySvc.Pause) }

// Resume handles POST .../surveys/:survey_id/resume.
func (h *SurveyHandler) Resume(c *gin.Context) { h.transition(c, h.surveySvc.Resume) }

// Cancel handles POST .../surveys/:survey_id/cancel.
func (h *SurveyHandler) Cancel(c *gin.Context) { h.transition(c, h.surveySvc.Cancel) }

func (h *SurveyHandler) transition(c *gin.Context, action surveyAction) {
	partnerID, surveyID, ok := surveyScope(c)
	if !ok {
		return
	}

	survey, err := action(c.Request.Context(), partnerID, surveyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toSurveyResponse(survey))
}

// Stats handles GET .../surveys/:survey_id/stats.
func (h *SurveyHandler) Stats(c *gin.Context) {
	partnerID, surveyID, ok := surveyScope(c)
	if !ok {
		return
	}

	stats, err := h.surveySvc.Stats(c.Request.Context(), partnerID, surveyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.SurveyStatsResponse{
		SurveyID:        stats.SurveyID.String(),
		Status:          string(stats.Status),
		TargetResponses: stats.TargetResponses,
		ResponseCount:   stats.ResponseCount,
		UnusedResponses: stats.UnusedResponses,
		CompletionRatio: stats.CompletionRatio,
	})
}

func surveyScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	partnerID, ok := middleware.PartnerID(c)
	if !ok {
		response.Error(c, apperror.Validation("invalid partner_id"))
		return uuid.Nil, uuid.Nil, false
	}
	surveyID, err := uuid.Parse(c.Param("survey_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid survey_id"))
		return uuid.Nil, uuid.Nil, false
	}
	return partnerID, surveyID, true
}

func toSurveyResponse(s *domain.Survey) dto.SurveyResponse {
	return dto.SurveyResponse{
		ID:              s.ID.String(),
		Title:           s.Title,
		Status:          string(s.Status),
		TargetResponses: s.TargetResponses,
		ResponseCount:   s.ResponseCount,
		StartsAt:        formatTimePtr(s.StartsAt),
		EndsAt:          formatTimePtr(s.EndsAt),
		UpdatedAt:       s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
