package service

import (
	"context"
	"time"

	"picksearch-partner-api/internal/core/domain"
	"picksearch-partner-api/internal/core/ports"
	"picksearch-partner-api/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WebhookOptions tunes the dispatch coordinator.
type WebhookOptions struct {
	Workers               int
	QueueSize             int
	MaxInFlightPerPartner int64
	// RequireSecret refuses dispatch to partners without a webhook secret.
	RequireSecret  bool
	RetryIntervals []time.Duration
	// PendingLease is how long a freshly recorded delivery is hidden from the
	// retry scheduler. If the outcome is never saved, the row becomes due after it.
	PendingLease time.Duration
	// PartnerBusyDelay postpones an attempt whose partner is at its in-flight cap.
	PartnerBusyDelay time.Duration
}

const (
	defaultPendingLease     = 2 * time.Minute
	defaultPartnerBusyDelay = 5 * time.Second
)

// deliveryTarget is the partner endpoint captured at dispatch time.
type deliveryTarget struct {
	partnerID uuid.UUID
	url       string
	secret    string
}

// WebhookService implements ports.WebhookDispatcher and ports.Redeliverer.
// Dispatch never blocks on the network and never reports failure to its caller.
type WebhookService struct {
	builder    *PayloadBuilder
	signer     ports.SignatureService
	client     ports.DeliveryClient
	deliveries ports.DeliveryRepository // nil = no persistence, no retries
	sequences  ports.SequenceStore      // nil = envelopes carry no sequence
	policy     *RetryPolicy
	limiter    *partnerLimiter
	pool       *workerPool
	opts       WebhookOptions
	now        func() time.Time
	log        zerolog.Logger
}

// NewWebhookService creates the coordinator and starts its worker pool.
func NewWebhookService(
	builder *PayloadBuilder,
	signer ports.SignatureService,
	client ports.DeliveryClient,
	deliveries ports.DeliveryRepository,
	sequences ports.SequenceStore,
	opts WebhookOptions,
	log zerolog.Logger,
) *WebhookService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.PendingLease <= 0 {
		opts.PendingLease = defaultPendingLease
	}
	if opts.PartnerBusyDelay <= 0 {
		opts.PartnerBusyDelay = defaultPartnerBusyDelay
	}
	return &WebhookService{
		builder:    builder,
		signer:     signer,
		client:     client,
		deliveries: deliveries,
		sequences:  sequences,
		policy:     NewRetryPolicy(opts.RetryIntervals),
		limiter:    newPartnerLimiter(opts.MaxInFlightPerPartner),
		pool:       newWorkerPool(context.Background(), opts.Workers, opts.QueueSize, log),
		opts:       opts,
		now:        time.Now,
		log:        log,
	}
}

// Dispatch notifies partner about event. Partners without a webhook URL are
// skipped silently. The envelope, data included, is built here; signing and
// delivery run on the worker pool.
func (s *WebhookService) Dispatch(ctx context.Context, partner *domain.Partner, event domain.EventType, data map[string]any) {
	if !partner.HasWebhook() {
		ev := s.log.Debug().Str("event", string(event))
		if partner != nil {
			ev = ev.Str("partner_id", partner.ID.String())
		}
		ev.Msg("webhook: no webhook URL configured, skipping")
		metrics.WebhookDispatches.WithLabelValues(string(event), metrics.DispatchSkipped).Inc()
		return
	}

	if !partner.HasSecret() {
		if s.opts.RequireSecret {
			s.log.Error().Str("partner_id", partner.ID.String()).Str("event", string(event)).
				Msg("webhook: partner has no webhook secret, dispatch refused")
			metrics.WebhookDispatches.WithLabelValues(string(event), metrics.DispatchRefused).Inc()
			return
		}
		s.log.Warn().Str("partner_id", partner.ID.String()).Str("event", string(event)).
			Msg("webhook: partner has no webhook secret, signing with empty key")
	}

	env, err := s.builder.NewEnvelope(event, data)
	if err != nil {
		s.log.Error().Err(err).Str("partner_id", partner.ID.String()).Str("event", string(event)).Msg("webhook: invalid event")
		metrics.WebhookDispatches.WithLabelValues(string(event), metrics.DispatchInvalid).Inc()
		return
	}

	target := deliveryTarget{
		partnerID: partner.ID,
		url:       *partner.WebhookURL,
		secret:    partner.Secret(),
	}
	if !s.pool.Submit(func(jobCtx context.Context) { s.deliverNew(jobCtx, target, env) }) {
		s.log.Error().Str("partner_id", partner.ID.String()).Str("event", string(event)).Str("event_id", env.ID.String()).
			Msg("webhook: dispatch queue full, event dropped")
		metrics.WebhookDispatches.WithLabelValues(string(event), metrics.DispatchDropped).Inc()
		return
	}
	metrics.WebhookDispatches.WithLabelValues(string(event), metrics.DispatchQueued).Inc()
}

// Redeliver resends a persisted attempt. The stored bytes are re-signed with
// the partner's current secret and posted to its current URL.
func (s *WebhookService) Redeliver(ctx context.Context, attempt *domain.DeliveryAttempt, partner *domain.Partner) {
	if !partner.HasWebhook() {
		return
	}
	attempt.WebhookURL = *partner.WebhookURL
	signature := s.signer.Sign(partner.Secret(), attempt.Payload)

	if !s.pool.Submit(func(jobCtx context.Context) { s.attempt(jobCtx, attempt, signature) }) {
		// The claim lease expires and the scheduler picks it up again.
		s.log.Warn().Str("delivery_id", attempt.ID.String()).Str("partner_id", attempt.PartnerID.String()).
			Msg("webhook: dispatch queue full, retry postponed")
	}
}

// Close stops accepting work and waits for queued deliveries to finish.
func (s *WebhookService) Close() {
	s.pool.Drain()
}

// deliverNew runs on a worker: sequence, encode once, sign, record, send.
func (s *WebhookService) deliverNew(ctx context.Context, target deliveryTarget, env *domain.Envelope) {
	if s.sequences != nil {
		seq, err := s.sequences.Next(ctx, target.partnerID)
		if err != nil {
			s.log.Warn().Err(err).Str("partner_id", target.partnerID.String()).Msg("webhook: sequence unavailable, sending without one")
		} else {
			env.Sequence = seq
		}
	}

	body, err := s.builder.Encode(env)
	if err != nil {
		s.log.Error().Err(err).Str("partner_id", target.partnerID.String()).Str("event", string(env.Event)).Msg("webhook: failed to encode payload")
		return
	}
	signature := s.signer.Sign(target.secret, body)

	now := s.now()
	leaseUntil := now.Add(s.opts.PendingLease)
	attempt := &domain.DeliveryAttempt{
		ID:         uuid.New(),
		EventID:    env.ID,
		PartnerID:  target.partnerID,
		EventType:  env.Event,
		Sequence:   env.Sequence,
		WebhookURL: target.url,
		Payload:    body,
		Status:     domain.DeliveryStatusPending,
		// due for the scheduler only if this worker never saves an outcome
		NextAttemptAt: &leaseUntil,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.deliveries != nil {
		if err := s.deliveries.Create(ctx, attempt); err != nil {
			s.log.Error().Err(err).Str("delivery_id", attempt.ID.String()).Msg("webhook: failed to record delivery, sending anyway")
		}
	}

	s.attempt(ctx, attempt, signature)
}

// attempt performs one HTTP delivery under the partner's in-flight cap and
// persists the outcome. A partner at its cap gets the attempt postponed
// rather than a parked worker.
func (s *WebhookService) attempt(ctx context.Context, attempt *domain.DeliveryAttempt, signature string) {
	release, ok := s.limiter.tryAcquire(attempt.PartnerID)
	if !ok {
		s.postpone(ctx, attempt)
		return
	}
	attempt.Attempts++
	result := s.client.Deliver(ctx, ports.DeliveryRequest{
		DeliveryID: attempt.ID,
		PartnerID:  attempt.PartnerID,
		Event:      attempt.EventType,
		URL:        attempt.WebhookURL,
		Body:       attempt.Payload,
		Signature:  signature,
		Attempt:    attempt.Attempts,
	})
	release()

	status := s.policy.Apply(attempt, result, s.now())
	logFields := func(ev *zerolog.Event) *zerolog.Event {
		return ev.Str("delivery_id", attempt.ID.String()).
			Str("partner_id", attempt.PartnerID.String()).
			Str("event", string(attempt.EventType)).
			Int("attempt", attempt.Attempts)
	}

	switch status {
	case domain.DeliveryStatusExhausted:
		metrics.WebhookDeadLetters.WithLabelValues(string(attempt.EventType)).Inc()
		logFields(s.log.Error()).Str("error", result.ErrorMessage()).Msg("webhook: delivery dead-lettered")
	case domain.DeliveryStatusFailed:
		if s.deliveries == nil {
			logFields(s.log.Warn()).Msg("webhook: no delivery store, retry not scheduled")
			return
		}
		logFields(s.log.Info()).Time("next_attempt_at", *attempt.NextAttemptAt).Msg("webhook: retry scheduled")
	}

	if s.deliveries == nil {
		return
	}
	if err := s.deliveries.Update(ctx, attempt); err != nil {
		logFields(s.log.Error()).Err(err).Msg("webhook: failed to persist delivery outcome")
	}
}

// postpone hands an attempt back to the retry scheduler without counting it
// against the budget.
func (s *WebhookService) postpone(ctx context.Context, attempt *domain.DeliveryAttempt) {
	metrics.WebhookPostponed.WithLabelValues(string(attempt.EventType)).Inc()
	if s.deliveries == nil {
		s.log.Error().Str("delivery_id", attempt.ID.String()).Str("partner_id", attempt.PartnerID.String()).
			Str("event", string(attempt.EventType)).Msg("webhook: partner at in-flight limit and no delivery store, event dropped")
		return
	}

	now := s.now()
	next := now.Add(s.opts.PartnerBusyDelay)
	if attempt.Status == domain.DeliveryStatusPending {
		attempt.Status = domain.DeliveryStatusFailed
	}
	attempt.NextAttemptAt = &next
	attempt.UpdatedAt = now

	s.log.Info().Str("delivery_id", attempt.ID.String()).Str("partner_id", attempt.PartnerID.String()).
		Time("next_attempt_at", next).Msg("webhook: partner at in-flight limit, attempt postponed")
	if err := s.deliveries.Update(ctx, attempt); err != nil {
		s.log.Error().Err(err).Str("delivery_id", attempt.ID.String()).Msg("webhook: failed to persist postponed delivery")
	}
}
