package service

import (
	"context"
	"time"

	"picksearch-partner-api/internal/core/domain"
	"picksearch-partner-api/internal/core/ports"
	"picksearch-partner-api/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type surveyService struct {
	surveyRepo ports.SurveyRepository
	partners   ports.PartnerService
	dispatcher ports.WebhookDispatcher
	now        func() time.Time
	log        zerolog.Logger
}

// NewSurveyService creates the survey lifecycle service. Every successful
// transition is announced to the owning partner's webhook.
func NewSurveyService(
	surveyRepo ports.SurveyRepository,
	partners ports.PartnerService,
	dispatcher ports.WebhookDispatcher,
	log zerolog.Logger,
) ports.SurveyService {
	return &surveyService{
		surveyRepo: surveyRepo,
		partners:   partners,
		dispatcher: dispatcher,
		now:        time.Now,
		log:        log,
	}
}

func (s *surveyService) Deploy(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error) {
	return s.transition(ctx, partnerID, surveyID, domain.SurveyActionDeploy)
}

func (s *surveyService) Pause(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error) {
	return s.transition(ctx, partnerID, surveyID, domain.SurveyActionPause)
}

func (s *surveyService) Resume(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error) {
	return s.transition(ctx, partnerID, surveyID, domain.SurveyActionResume)
}

func (s *surveyService) Cancel(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error) {
	return s.transition(ctx, partnerID, surveyID, domain.SurveyActionCancel)
}

func (s *surveyService) Stats(ctx context.Context, partnerID, surveyID uuid.UUID) (*ports.SurveyStats, error) {
	survey, err := s.load(ctx, partnerID, surveyID)
	if err != nil {
		return nil, err
	}
	return &ports.SurveyStats{
		SurveyID:        survey.ID,
		Status:          survey.Status,
		TargetResponses: survey.TargetResponses,
		ResponseCount:   survey.ResponseCount,
		UnusedResponses: survey.UnusedResponses(),
		CompletionRatio: survey.CompletionRatio(),
	}, nil
}

func (s *surveyService) transition(ctx context.Context, partnerID, surveyID uuid.UUID, action domain.SurveyAction) (*domain.Survey, error) {
	survey, err := s.load(ctx, partnerID, surveyID)
	if err != nil {
		return nil, err
	}

	next, ok := survey.NextStatus(action)
	if !ok {
		return nil, apperror.ErrInvalidTransition(string(survey.Status), string(action))
	}

	updated, err := s.surveyRepo.UpdateStatus(ctx, survey.ID, survey.Status, next)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if !updated {
		return nil, apperror.ErrConcurrentUpdate()
	}

	previous := survey.Status
	survey.Status = next
	survey.UpdatedAt = s.now()

	s.notify(ctx, survey, previous, action)
	return survey, nil
}

// notify never fails the transition: a partner that cannot be loaded only
// costs the webhook.
func (s *surveyService) notify(ctx context.Context, survey *domain.Survey, previous domain.SurveyStatus, action domain.SurveyAction) {
	partner, err := s.partners.GetWebhookTarget(ctx, survey.PartnerID)
	if err != nil {
		s.log.Warn().Err(err).Str("partner_id", survey.PartnerID.String()).Str("survey_id", survey.ID.String()).
			Msg("webhook: partner lookup failed, event not sent")
		return
	}
	if partner == nil {
		s.log.Warn().Str("partner_id", survey.PartnerID.String()).Msg("webhook: partner not found, event not sent")
		return
	}

	data := map[string]any{
		"survey_id":       survey.ID.String(),
		"status":          string(survey.Status),
		"previous_status": string(previous),
	}

	event := domain.EventSurveyStatusChanged
	switch action {
	case domain.SurveyActionDeploy:
		event = domain.EventSurveyDeployed
		data["title"] = survey.Title
		data["target_responses"] = survey.TargetResponses
		if survey.StartsAt != nil {
			data["starts_at"] = survey.StartsAt.UTC().Format(TimestampLayout)
		}
		if survey.EndsAt != nil {
			data["ends_at"] = survey.EndsAt.UTC().Format(TimestampLayout)
		}
	case domain.SurveyActionCancel:
		data["response_count"] = survey.ResponseCount
		data["unused_responses"] = survey.UnusedResponses()
		data["refund_ratio"] = survey.RefundRatio()
	}

	s.dispatcher.Dispatch(ctx, partner, event, data)
}

func (s *surveyService) load(ctx context.Context, partnerID, surveyID uuid.UUID) (*domain.Survey, error) {
	survey, err := s.surveyRepo.GetByID(ctx, partnerID, surveyID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if survey == nil {
		return nil, apperror.ErrNotFound("survey")
	}
	return survey, nil
}
