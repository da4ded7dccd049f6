package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// SequenceStore implements ports.SequenceStore with one INCR counter per partner.
// Counters never expire so sequences stay monotonic across restarts.
type SequenceStore struct {
	client *goredis.Client
	prefix string
}

// NewSequenceStore creates a new Redis-backed sequence store.
func NewSequenceStore(client *goredis.Client) *SequenceStore {
	return &SequenceStore{
		client: client,
		prefix: "webhook:seq:",
	}
}

// Next returns the partner's next sequence number, starting at 1.
func (s *SequenceStore) Next(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	n, err := s.client.Incr(ctx, s.prefix+partnerID.String()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis sequence incr: %w", err)
	}
	return n, nil
}
