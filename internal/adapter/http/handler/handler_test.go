package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"picksearch-partner-api/internal/core/domain"
	"picksearch-partner-api/internal/core/ports"
	"picksearch-partner-api/internal/core/ports/mocks"
	"picksearch-partner-api/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testDeps struct {
	partners   *mocks.MockPartnerService
	surveys    *mocks.MockSurveyService
	deliveries *mocks.MockDeliveryAdminService
	router     *gin.Engine
}

func newTestRouter(t *testing.T) *testDeps {
	ctrl := gomock.NewController(t)
	d := &testDeps{
		partners:   mocks.NewMockPartnerService(ctrl),
		surveys:    mocks.NewMockSurveyService(ctrl),
		deliveries: mocks.NewMockDeliveryAdminService(ctrl),
	}
	d.router = SetupRouter(RouterDeps{
		PartnerSvc:  d.partners,
		SurveySvc:   d.surveys,
		DeliverySvc: d.deliveries,
		Logger:      zerolog.Nop(),
	})
	return d
}

func (d *testDeps) do(method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	d.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "body: %s", w.Body.String())
	return data
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

func strPtr(s string) *string { return &s }

// --- Health ---

func TestHealthCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	pg := mocks.NewMockHealthChecker(ctrl)
	rd := mocks.NewMockHealthChecker(ctrl)
	pg.EXPECT().Ping(gomock.Any()).Return(nil).AnyTimes()
	pg.EXPECT().Name().Return("postgresql").AnyTimes()
	rd.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused")).AnyTimes()
	rd.EXPECT().Name().Return("redis").AnyTimes()

	r := gin.New()
	r.GET("/health", HealthCheck(pg))
	r.GET("/health-degraded", HealthCheck(pg, rd))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health-degraded", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	d := newTestRouter(t)
	w := d.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Webhook config ---

func TestGetWebhookConfig(t *testing.T) {
	d := newTestRouter(t)
	partnerID := uuid.New()
	updated := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	d.partners.EXPECT().GetWebhookConfig(gomock.Any(), partnerID).Return(&ports.WebhookConfig{
		PartnerID:        partnerID,
		WebhookURL:       strPtr("https://partner.example.com/hooks"),
		SecretConfigured: true,
		UpdatedAt:        updated,
	}, nil)

	w := d.do(http.MethodGet, "/api/v1/partners/"+partnerID.String()+"/webhook", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, partnerID.String(), data["partner_id"])
	assert.Equal(t, "https://partner.example.com/hooks", data["webhook_url"])
	assert.Equal(t, true, data["secret_configured"])
	assert.Equal(t, "2026-03-01T09:00:00Z", data["updated_at"])
	assert.NotContains(t, w.Body.String(), "whsec_")
}

func TestGetWebhookConfig_InvalidPartnerID(t *testing.T) {
	d := newTestRouter(t)

	w := d.do(http.MethodGet, "/api/v1/partners/abc/webhook", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", decodeErrorCode(t, w))
}

func TestGetWebhookConfig_NotFound(t *testing.T) {
	d := newTestRouter(t)
	partnerID := uuid.New()
	d.partners.EXPECT().GetWebhookConfig(gomock.Any(), partnerID).Return(nil, apperror.ErrNotFound("partner"))

	w := d.do(http.MethodGet, "/api/v1/partners/"+partnerID.String()+"/webhook", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RES_001", decodeErrorCode(t, w))
}

func TestUpdateWebhookURL(t *testing.T) {
	d := newTestRouter(t)
	partnerID := uuid.New()
	url := "https://partner.example.com/hooks?v=2&x=1"

	d.partners.EXPECT().UpdateWebhookURL(gomock.Any(), partnerID, gomock.Any()).
		DoAndReturn(func(_ any, _ uuid.UUID, got *string) (*ports.WebhookConfig, error) {
			require.NotNil(t, got)
			assert.Equal(t, url, *got)
			return &ports.WebhookConfig{PartnerID: partnerID, WebhookURL: got, UpdatedAt: time.Now()}, nil
		})

	body, _ := json.Marshal(map[string]string{"webhook_url": url})
	w := d.do(http.MethodPut, "/api/v1/partners/"+partnerID.String()+"/webhook", body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, url, decodeData(t, w)["webhook_url"])
}

func TestUpdateWebhookURL_NullUnsubscribes(t *testing.T) {
	d := newTestRouter(t)
	partnerID := uuid.New()

	d.partners.EXPECT().UpdateWebhookURL(gomock.Any(), partnerID, (*string)(nil)).
		Return(&ports.WebhookConfig{PartnerID: partnerID, UpdatedAt: time.Now()}, nil)

	w := d.do(http.MethodPut, "/api/v1/partners/"+partnerID.String()+"/webhook", []byte(`{"webhook_url":null}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodeData(t, w)["webhook_url"])
}

func TestUpdateWebhookURL_RejectsNonHTTPScheme(t *testing.T) {
	d := newTestRouter(t)
	partnerID := uuid.New()

	w := d.do(http.MethodPut, "/api/v1/partners/"+partnerID.String()+"/webhook",
		[]byte(`{"webhook_url":"ftp://partner.example.com/hooks"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", decodeErrorCode(t, w))
}

func TestUpdateWebhookURL_MalformedJSON(t *testing.T) {
	d := newTestRouter(t)

	w := d.do(http.MethodPut, "/api/v1/partners/"+uuid.NewString()+"/webhook", []byte(`{`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRotateSecret(t *testing.T) {
	d := newTestRouter(t)
	partnerID := uuid.New()

	d.partners.EXPECT().RotateWebhookSecret(gomock.Any(), partnerID).Return(&ports.RotateSecretResponse{
		PartnerID:     partnerID,
		WebhookSecret: "whsec_abc",
	}, nil)

	w := d.do(http.MethodPost, "/api/v1/partners/"+partnerID.String()+"/webhook/rotate-secret", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "whsec_abc", decodeData(t, w)["webhook_secret"])
}

func TestRotateSecret_EncryptionFailure(t *testing.T) {
	d := newTestRouter(t)
	partnerID := uuid.New()

	d.partners.EXPECT().RotateWebhookSecret(gomock.Any(), partnerID).
		Return(nil, apperror.ErrEncryptionFailure(errors.New("bad key")))

	w := d.do(http.MethodPost, "/api/v1/partners/"+partnerID.String()+"/webhook/rotate-secret", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_003", decodeErrorCode(t, w))
}

func TestSendTestEvent(t *testing.T) {
	d := newTestRouter(t)
	partnerID := uuid.New()
	d.partners.EXPECT().SendTestEvent(gomock.Any(), partnerID).Return(nil)

	w := d.do(http.MethodPost, "/api/v1/partners/"+partnerID.String()+"/webhook/test", nil)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestSendTestEvent_NotConfigured(t *testing.T) {
	d := newTestRouter(t)
	partnerID := uuid.New()
	d.partners.EXPECT().SendTestEvent(gomock.Any(), partnerID).Return(apperror.ErrWebhookNotConfigured())

	w := d.do(http.MethodPost, "/api/v1/partners/"+partnerID.String()+"/webhook/test", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "WHK_001", decodeErrorCode(t, w))
}

// --- Surveys ---

func TestSurveyTransitions(t *testing.T) {
	partnerID, surveyID := uuid.New(), uuid.New()
	starts := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		action string
		status domain.SurveyStatus
		expect func(d *testDeps) *gomock.Call
	}{
		{"deploy", domain.SurveyStatusLive, func(d *testDeps) *gomock.Call {
			return d.surveys.EXPECT().Deploy(gomock.Any(), partnerID, surveyID)
		}},
		{"pause", domain.SurveyStatusPaused, func(d *testDeps) *gomock.Call {
			return d.surveys.EXPECT().Pause(gomock.Any(), partnerID, surveyID)
		}},
		{"resume", domain.SurveyStatusLive, func(d *testDeps) *gomock.Call {
			return d.surveys.EXPECT().Resume(gomock.Any(), partnerID, surveyID)
		}},
		{"cancel", domain.SurveyStatusCancelled, func(d *testDeps) *gomock.Call {
			return d.surveys.EXPECT().Cancel(gomock.Any(), partnerID, surveyID)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			d := newTestRouter(t)
			tt.expect(d).Return(&domain.Survey{
				ID:              surveyID,
				PartnerID:       partnerID,
				Title:           "Brand lift",
				Status:          tt.status,
				TargetResponses: 100,
				StartsAt:        &starts,
			}, nil)

			w := d.do(http.MethodPost, "/api/v1/partners/"+partnerID.String()+"/surveys/"+surveyID.String()+"/"+tt.action, nil)

			assert.Equal(t, http.StatusOK, w.Code)
			data := decodeData(t, w)
			assert.Equal(t, string(tt.status), data["status"])
			assert.Equal(t, "2026-04-01T00:00:00Z", data["starts_at"])
			_, hasEnd := data["ends_at"]
			assert.False(t, hasEnd)
		})
	}
}

func TestSurveyTransition_Conflict(t *testing.T) {
	d := newTestRouter(t)
	partnerID, surveyID := uuid.New(), uuid.New()
	d.surveys.EXPECT().Pause(gomock.Any(), partnerID, surveyID).
		Return(nil, apperror.ErrInvalidTransition("draft", "pause"))

	w := d.do(http.MethodPost, "/api/v1/partners/"+partnerID.String()+"/surveys/"+surveyID.String()+"/pause", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SRV_001", decodeErrorCode(t, w))
}

func TestSurveyTransition_InvalidSurveyID(t *testing.T) {
	d := newTestRouter(t)

	w := d.do(http.MethodPost, "/api/v1/partners/"+uuid.NewString()+"/surveys/nope/deploy", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSurveyStats(t *testing.T) {
	d := newTestRouter(t)
	partnerID, surveyID := uuid.New(), uuid.New()
	d.surveys.EXPECT().Stats(gomock.Any(), partnerID, surveyID).Return(&ports.SurveyStats{
		SurveyID:        surveyID,
		Status:          domain.SurveyStatusLive,
		TargetResponses: 200,
		ResponseCount:   50,
		UnusedResponses: 150,
		CompletionRatio: 0.25,
	}, nil)

	w := d.do(http.MethodGet, "/api/v1/partners/"+partnerID.String()+"/surveys/"+surveyID.String()+"/stats", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(150), data["unused_responses"])
	assert.Equal(t, 0.25, data["completion_ratio"])
}

// --- Admin deliveries ---

func newDelivery(status domain.DeliveryStatus) domain.DeliveryAttempt {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.DeliveryAttempt{
		ID:         uuid.New(),
		EventID:    uuid.New(),
		PartnerID:  uuid.New(),
		EventType:  domain.EventSurveyStatusChanged,
		Sequence:   3,
		WebhookURL: "https://partner.example.com/hooks",
		Payload:    []byte(`{"event":"survey.status_changed"}`),
		Attempts:   6,
		Status:     status,
		LastError:  strPtr("HTTP 503: Service Unavailable"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestListDeliveries(t *testing.T) {
	d := newTestRouter(t)
	partnerID := uuid.New()
	a := newDelivery(domain.DeliveryStatusExhausted)

	d.deliveries.EXPECT().List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, p ports.DeliveryListParams) ([]domain.DeliveryAttempt, int64, error) {
			require.NotNil(t, p.PartnerID)
			assert.Equal(t, partnerID, *p.PartnerID)
			require.NotNil(t, p.Status)
			assert.Equal(t, domain.DeliveryStatusExhausted, *p.Status)
			require.NotNil(t, p.EventType)
			assert.Equal(t, domain.EventSurveyStatusChanged, *p.EventType)
			assert.Equal(t, 2, p.Page)
			assert.Equal(t, 10, p.PageSize)
			return []domain.DeliveryAttempt{a}, 11, nil
		})

	w := d.do(http.MethodGet, "/api/v1/admin/webhook-deliveries?partner_id="+partnerID.String()+
		"&status=exhausted&event=survey.status_changed&page=2&page_size=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(11), data["total"])
	assert.Equal(t, float64(2), data["total_pages"])
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "exhausted", item["status"])
	_, hasPayload := item["payload"]
	assert.False(t, hasPayload)
}

func TestListDeliveries_InvalidPartnerFilter(t *testing.T) {
	d := newTestRouter(t)

	w := d.do(http.MethodGet, "/api/v1/admin/webhook-deliveries?partner_id=xyz", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDelivery_IncludesPayload(t *testing.T) {
	d := newTestRouter(t)
	a := newDelivery(domain.DeliveryStatusDelivered)
	d.deliveries.EXPECT().Get(gomock.Any(), a.ID).Return(&a, nil)

	w := d.do(http.MethodGet, "/api/v1/admin/webhook-deliveries/"+a.ID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"event":"survey.status_changed"}`, decodeData(t, w)["payload"])
}

func TestReplayDelivery(t *testing.T) {
	d := newTestRouter(t)
	a := newDelivery(domain.DeliveryStatusFailed)
	a.Attempts = 0
	d.deliveries.EXPECT().Replay(gomock.Any(), a.ID).Return(&a, nil)

	w := d.do(http.MethodPost, "/api/v1/admin/webhook-deliveries/"+a.ID.String()+"/replay", nil)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "failed", decodeData(t, w)["status"])
}

func TestReplayDelivery_NotReplayable(t *testing.T) {
	d := newTestRouter(t)
	id := uuid.New()
	d.deliveries.EXPECT().Replay(gomock.Any(), id).Return(nil, apperror.ErrDeliveryNotReplayable("delivered"))

	w := d.do(http.MethodPost, "/api/v1/admin/webhook-deliveries/"+id.String()+"/replay", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "WHK_003", decodeErrorCode(t, w))
}

func TestAdminRoutesDisabledWithoutService(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := SetupRouter(RouterDeps{
		PartnerSvc: mocks.NewMockPartnerService(ctrl),
		SurveySvc:  mocks.NewMockSurveyService(ctrl),
		Logger:     zerolog.Nop(),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/webhook-deliveries", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
