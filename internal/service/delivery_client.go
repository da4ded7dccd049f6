package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"picksearch-partner-api/internal/core/domain"
	"picksearch-partner-api/internal/core/ports"
	"picksearch-partner-api/internal/metrics"

	"github.com/rs/zerolog"
)

// maxResponseDrain bounds how much of a partner's response body is read
// before the connection is released.
const maxResponseDrain = 64 << 10

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPDeliveryClient implements ports.DeliveryClient with a single POST per call.
type HTTPDeliveryClient struct {
	client    HTTPClient
	timeout   time.Duration
	userAgent string
	log       zerolog.Logger
}

// NewWebhookHTTPClient returns an http.Client that never follows redirects.
// A followed 301/302/303 would turn the signed POST into a bodyless GET, so a
// 3xx is reported as the partner's answer instead.
func NewWebhookHTTPClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// NewHTTPDeliveryClient creates a delivery client. A nil client means
// NewWebhookHTTPClient; timeout bounds every request.
func NewHTTPDeliveryClient(client HTTPClient, timeout time.Duration, userAgent string, log zerolog.Logger) *HTTPDeliveryClient {
	if client == nil {
		client = NewWebhookHTTPClient()
	}
	return &HTTPDeliveryClient{
		client:    client,
		timeout:   timeout,
		userAgent: userAgent,
		log:       log,
	}
}

// Deliver posts req.Body unmodified to req.URL and classifies the result.
// It never returns an error and never panics on transport failures.
func (c *HTTPDeliveryClient) Deliver(ctx context.Context, req ports.DeliveryRequest) domain.DeliveryResult {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	result := c.do(ctx, req)
	result.Latency = time.Since(start)

	c.record(req, result)
	return result
}

func (c *HTTPDeliveryClient) do(ctx context.Context, req ports.DeliveryRequest) domain.DeliveryResult {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return domain.DeliveryResult{Outcome: domain.OutcomeFailed, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(domain.HeaderSignature, req.Signature)
	httpReq.Header.Set(domain.HeaderEvent, string(req.Event))
	httpReq.Header.Set(domain.HeaderDeliveryID, req.DeliveryID.String())

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return domain.DeliveryResult{Outcome: domain.OutcomeFailed, Err: err}
	}
	if resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseDrain))
		resp.Body.Close()
	}

	result := domain.DeliveryResult{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Outcome = domain.OutcomeDelivered
	} else {
		result.Outcome = domain.OutcomeRejected
	}
	return result
}

func (c *HTTPDeliveryClient) record(req ports.DeliveryRequest, result domain.DeliveryResult) {
	outcome := string(result.Outcome)
	metrics.WebhookDeliveries.WithLabelValues(string(req.Event), outcome).Inc()
	metrics.WebhookLatency.WithLabelValues(string(req.Event), outcome).Observe(float64(result.Latency.Milliseconds()))

	event := c.log.Info()
	if result.Outcome != domain.OutcomeDelivered {
		event = c.log.Warn()
	}
	event = event.
		Str("delivery_id", req.DeliveryID.String()).
		Str("partner_id", req.PartnerID.String()).
		Str("event", string(req.Event)).
		Int("attempt", req.Attempt).
		Dur("latency", result.Latency)

	switch result.Outcome {
	case domain.OutcomeDelivered:
		event.Int("status", result.StatusCode).Msg("webhook: delivered")
	case domain.OutcomeRejected:
		event.Int("status", result.StatusCode).Str("reason", result.Reason).Msg("webhook: rejected by partner")
	default:
		event.Err(result.Err).Msg("webhook: delivery failed")
	}
}

// reasonPhrase extracts the reason from a status line like "503 Service Unavailable".
func reasonPhrase(resp *http.Response) string {
	if reason, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}
