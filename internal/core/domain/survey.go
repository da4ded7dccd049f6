package domain

import (
	"time"

	"github.com/google/uuid"
)

// SurveyStatus is the distribution state of a survey.
type SurveyStatus string

const (
	SurveyStatusDraft     SurveyStatus = "draft"
	SurveyStatusLive      SurveyStatus = "live"
	SurveyStatusPaused    SurveyStatus = "paused"
	SurveyStatusCompleted SurveyStatus = "completed"
	SurveyStatusCancelled SurveyStatus = "cancelled"
)

// SurveyAction is a partner-initiated lifecycle transition.
type SurveyAction string

const (
	SurveyActionDeploy SurveyAction = "deploy"
	SurveyActionPause  SurveyAction = "pause"
	SurveyActionResume SurveyAction = "resume"
	SurveyActionCancel SurveyAction = "cancel"
)

var surveyTransitions = map[SurveyAction]struct {
	from []SurveyStatus
	to   SurveyStatus
}{
	SurveyActionDeploy: {from: []SurveyStatus{SurveyStatusDraft}, to: SurveyStatusLive},
	SurveyActionPause:  {from: []SurveyStatus{SurveyStatusLive}, to: SurveyStatusPaused},
	SurveyActionResume: {from: []SurveyStatus{SurveyStatusPaused}, to: SurveyStatusLive},
	SurveyActionCancel: {from: []SurveyStatus{SurveyStatusDraft, SurveyStatusLive, SurveyStatusPaused}, to: SurveyStatusCancelled},
}

// Survey is the subset of a survey the partner API manages.
type Survey struct {
	ID              uuid.UUID    `json:"id"`
	PartnerID       uuid.UUID    `json:"partner_id"`
	Title           string       `json:"title"`
	Status          SurveyStatus `json:"status"`
	TargetResponses int          `json:"target_responses"`
	ResponseCount   int          `json:"response_count"`
	StartsAt        *time.Time   `json:"starts_at,omitempty"`
	EndsAt          *time.Time   `json:"ends_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NextStatus returns the status the action leads to, or false if the
// action is not allowed from the current status.
func (s *Survey) NextStatus(action SurveyAction) (SurveyStatus, bool) {
	t, ok := surveyTransitions[action]
	if !ok {
		return "", false
	}
	for _, from := range t.from {
		if s.Status == from {
			return t.to, true
		}
	}
	return "", false
}

// UnusedResponses is how many purchased responses were never collected.
func (s *Survey) UnusedResponses() int {
	if s.ResponseCount >= s.TargetResponses {
		return 0
	}
	return s.TargetResponses - s.ResponseCount
}

// RefundRatio is the share of the target that was not collected, in [0, 1].
func (s *Survey) RefundRatio() float64 {
	if s.TargetResponses <= 0 {
		return 0
	}
	return float64(s.UnusedResponses()) / float64(s.TargetResponses)
}

// CompletionRatio is the share of the target that was collected, capped at 1.
func (s *Survey) CompletionRatio() float64 {
	if s.TargetResponses <= 0 {
		return 0
	}
	return 1 - s.RefundRatio()
}
