package service

import (
	"context"
	"time"

	"picksearch-partner-api/internal/core/domain"
	"picksearch-partner-api/internal/core/ports"
	"picksearch-partner-api/internal/metrics"

	"github.com/rs/zerolog"
)

// RetrySchedulerOptions tunes the retry poll loop.
type RetrySchedulerOptions struct {
	PollInterval time.Duration
	BatchSize    int
	Lease        time.Duration
}

// RetryScheduler polls for failed deliveries whose retry is due and hands
// them back to the dispatcher.
type RetryScheduler struct {
	deliveries  ports.DeliveryRepository
	partners    ports.PartnerService
	redeliverer ports.Redeliverer
	opts        RetrySchedulerOptions
	now         func() time.Time
	log         zerolog.Logger
}

// NewRetryScheduler creates a scheduler. Call Start to run it.
func NewRetryScheduler(
	deliveries ports.DeliveryRepository,
	partners ports.PartnerService,
	redeliverer ports.Redeliverer,
	opts RetrySchedulerOptions,
	log zerolog.Logger,
) *RetryScheduler {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Lease <= 0 {
		opts.Lease = 2 * time.Minute
	}
	return &RetryScheduler{
		deliveries:  deliveries,
		partners:    partners,
		redeliverer: redeliverer,
		opts:        opts,
		now:         time.Now,
		log:         log,
	}
}

// Start polls until ctx is cancelled.
func (s *RetryScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.log.Info().Dur("poll_interval", s.opts.PollInterval).Msg("retry scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("retry scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("retry: failed to claim due deliveries")
			}
		}
	}
}

// ProcessOnce claims one batch of due deliveries and resends them.
// It returns how many were claimed.
func (s *RetryScheduler) ProcessOnce(ctx context.Context) (int, error) {
	due, err := s.deliveries.ClaimDue(ctx, s.now(), s.opts.BatchSize, s.opts.Lease)
	if err != nil {
		return 0, err
	}

	for i := range due {
		attempt := &due[i]
		partner, err := s.partners.GetWebhookTarget(ctx, attempt.PartnerID)
		if err != nil {
			// Left claimed; picked up again once the lease runs out.
			s.log.Warn().Err(err).Str("delivery_id", attempt.ID.String()).Msg("retry: failed to load partner")
			continue
		}
		switch {
		case partner == nil:
			s.exhaust(ctx, attempt, "partner not found")
		case !partner.HasWebhook():
			s.exhaust(ctx, attempt, "partner unsubscribed")
		default:
			s.redeliverer.Redeliver(ctx, attempt, partner)
		}
	}
	return len(due), nil
}

func (s *RetryScheduler) exhaust(ctx context.Context, attempt *domain.DeliveryAttempt, reason string) {
	attempt.Status = domain.DeliveryStatusExhausted
	attempt.NextAttemptAt = nil
	attempt.LastError = &reason
	attempt.UpdatedAt = s.now()

	metrics.WebhookDeadLetters.WithLabelValues(string(attempt.EventType)).Inc()
	s.log.Error().
		Str("delivery_id", attempt.ID.String()).
		Str("partner_id", attempt.PartnerID.String()).
		Str("event", string(attempt.EventType)).
		Int("attempt", attempt.Attempts).
		Str("reason", reason).
		Msg("webhook: delivery dead-lettered")

	if err := s.deliveries.Update(ctx, attempt); err != nil {
		s.log.Error().Err(err).Str("delivery_id", attempt.ID.String()).Msg("retry: failed to persist dead letter")
	}
}
