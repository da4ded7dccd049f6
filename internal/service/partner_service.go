package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"picksearch-partner-api/internal/core/domain"
	"picksearch-partner-api/internal/core/ports"
	"picksearch-partner-api/pkg/apperror"

	"github.com/google/uuid"
)

const webhookSecretPrefix = "whsec_"

type partnerService struct {
	partnerRepo   ports.PartnerRepository
	encSvc        ports.EncryptionService
	dispatcher    ports.WebhookDispatcher
	requireSecret bool
}

// NewPartnerService creates the partner webhook configuration service.
func NewPartnerService(
	partnerRepo ports.PartnerRepository,
	encSvc ports.EncryptionService,
	dispatcher ports.WebhookDispatcher,
	requireSecret bool,
) ports.PartnerService {
	return &partnerService{
		partnerRepo:   partnerRepo,
		encSvc:        encSvc,
		dispatcher:    dispatcher,
		requireSecret: requireSecret,
	}
}

func (s *partnerService) GetWebhookConfig(ctx context.Context, partnerID uuid.UUID) (*ports.WebhookConfig, error) {
	partner, err := s.load(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return toWebhookConfig(partner), nil
}

// UpdateWebhookURL sets or clears (nil / blank) the partner's endpoint.
// Clearing it unsubscribes the partner from all events.
func (s *partnerService) UpdateWebhookURL(ctx context.Context, partnerID uuid.UUID, webhookURL *string) (*ports.WebhookConfig, error) {
	normalized, err := normalizeWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	partner, err := s.load(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	partner.WebhookURL = normalized
	partner.UpdatedAt = time.Now()

	if err := s.partnerRepo.UpdateWebhook(ctx, partner); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return toWebhookConfig(partner), nil
}

// RotateWebhookSecret issues a new secret. The plaintext is returned once;
// only the encrypted form is stored.
func (s *partnerService) RotateWebhookSecret(ctx context.Context, partnerID uuid.UUID) (*ports.RotateSecretResponse, error) {
	partner, err := s.load(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	secret, err := generateKey(webhookSecretPrefix, 32)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate webhook secret: %w", err))
	}
	encSecret, err := s.encSvc.Encrypt(secret)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt webhook secret: %w", err))
	}

	partner.WebhookSecretEnc = &encSecret
	partner.UpdatedAt = time.Now()

	if err := s.partnerRepo.UpdateWebhook(ctx, partner); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	return &ports.RotateSecretResponse{
		PartnerID:     partner.ID,
		WebhookSecret: secret,
	}, nil
}

// GetWebhookTarget loads the partner and decrypts its secret for signing.
// A missing partner yields (nil, nil).
func (s *partnerService) GetWebhookTarget(ctx context.Context, partnerID uuid.UUID) (*domain.Partner, error) {
	partner, err := s.partnerRepo.GetByID(ctx, partnerID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if partner == nil {
		return nil, nil
	}

	if partner.WebhookSecretEnc != nil && *partner.WebhookSecretEnc != "" {
		secret, err := s.encSvc.Decrypt(*partner.WebhookSecretEnc)
		if err != nil {
			return nil, apperror.ErrEncryptionFailure(fmt.Errorf("decrypt webhook secret: %w", err))
		}
		partner.WebhookSecret = &secret
	}
	return partner, nil
}

// SendTestEvent dispatches a webhook.test event to the configured endpoint.
// The outcome shows up in the delivery log, not in the return value.
func (s *partnerService) SendTestEvent(ctx context.Context, partnerID uuid.UUID) error {
	partner, err := s.GetWebhookTarget(ctx, partnerID)
	if err != nil {
		return err
	}
	if partner == nil {
		return apperror.ErrNotFound("partner")
	}
	if !partner.HasWebhook() {
		return apperror.ErrWebhookNotConfigured()
	}
	if s.requireSecret && !partner.HasSecret() {
		return apperror.ErrWebhookSecretMissing()
	}

	s.dispatcher.Dispatch(ctx, partner, domain.EventWebhookTest, map[string]any{
		"partner_id": partner.ID.String(),
		"message":    "This is a test event from Picksearch",
	})
	return nil
}

func (s *partnerService) load(ctx context.Context, partnerID uuid.UUID) (*domain.Partner, error) {
	partner, err := s.partnerRepo.GetByID(ctx, partnerID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if partner == nil {
		return nil, apperror.ErrNotFound("partner")
	}
	return partner, nil
}

func toWebhookConfig(p *domain.Partner) *ports.WebhookConfig {
	return &ports.WebhookConfig{
		PartnerID:        p.ID,
		WebhookURL:       p.WebhookURL,
		SecretConfigured: p.WebhookSecretEnc != nil && *p.WebhookSecretEnc != "",
		UpdatedAt:        p.UpdatedAt,
	}
}

// normalizeWebhookURL trims the URL and maps blank to nil. Only absolute
// http(s) URLs are accepted.
func normalizeWebhookURL(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, apperror.Validation("webhook_url must be an absolute http or https URL")
	}
	return &trimmed, nil
}

func generateKey(prefix string, length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b), nil
}
