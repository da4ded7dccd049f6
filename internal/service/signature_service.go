package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"picksearch-partner-api/internal/core/domain"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign computes HMAC-SHA256 of message keyed by secret and returns it as
// "sha256=" followed by lowercase hex. An empty secret is a valid key.
func (s *HMACSignatureService) Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return domain.SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header value against message.
// Uses constant-time comparison to prevent timing attacks.
func (s *HMACSignatureService) Verify(secret string, message []byte, signature string) bool {
	expected := s.Sign(secret, message)
	return hmac.Equal([]byte(expected), []byte(signature))
}
