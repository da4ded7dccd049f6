package dto

// UpdateWebhookRequest sets or clears a partner's webhook URL.
// A null or blank URL unsubscribes the partner.
type UpdateWebhookRequest struct {
	WebhookURL *string `json:"webhook_url" binding:"omitempty,max=2048,safe_url"`
}

// WebhookConfigResponse is the partner-visible webhook subscription.
type WebhookConfigResponse struct {
	PartnerID        string  `json:"partner_id"`
	WebhookURL       *string `json:"webhook_url"`
	SecretConfigured bool    `json:"secret_configured"`
	UpdatedAt        string  `json:"updated_at"`
}

// RotateSecretResponse carries a freshly generated secret. It is returned once.
type RotateSecretResponse struct {
	PartnerID     string `json:"partner_id"`
	WebhookSecret string `json:"webhook_secret"`
}

// SurveyResponse is the survey state after a lifecycle action.
type SurveyResponse struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Status          string  `json:"status"`
	TargetResponses int     `json:"target_responses"`
	ResponseCount   int     `json:"response_count"`
	StartsAt        *string `json:"starts_at,omitempty"`
	EndsAt          *string `json:"ends_at,omitempty"`
	UpdatedAt       string  `json:"updated_at"`
}

// SurveyStatsResponse summarizes response collection.
type SurveyStatsResponse struct {
	SurveyID        string  `json:"survey_id"`
	Status          string  `json:"status"`
	TargetResponses int     `json:"target_responses"`
	ResponseCount   int     `json:"response_count"`
	UnusedResponses int     `json:"unused_responses"`
	CompletionRatio float64 `json:"completion_ratio"`
}

// DeliveryResponse is one webhook delivery attempt record.
type DeliveryResponse struct {
	ID            string  `json:"id"`
	EventID       string  `json:"event_id"`
	PartnerID     string  `json:"partner_id"`
	EventType     string  `json:"event_type"`
	Sequence      int64   `json:"sequence"`
	WebhookURL    string  `json:"webhook_url"`
	Attempts      int     `json:"attempts"`
	Status        string  `json:"status"`
	HTTPStatus    *int    `json:"http_status,omitempty"`
	LastError     *string `json:"last_error,omitempty"`
	NextAttemptAt *string `json:"next_attempt_at,omitempty"`
	DeliveredAt   *string `json:"delivered_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// DeliveryDetailResponse adds the signed payload to a delivery record.
type DeliveryDetailResponse struct {
	DeliveryResponse
	Payload string `json:"payload"`
}

// DeliveryListResponse wraps a paginated delivery list.
type DeliveryListResponse struct {
	Items      []DeliveryResponse `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}
