package service

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// partnerLimiter caps concurrent deliveries per partner so one slow
// endpoint cannot occupy every worker. It never blocks: a worker that finds
// the partner at its cap moves on to other work.
type partnerLimiter struct {
	limit int64

	mu   sync.Mutex
	sems map[uuid.UUID]*semaphore.Weighted
}

func newPartnerLimiter(limit int64) *partnerLimiter {
	if limit < 1 {
		limit = 1
	}
	return &partnerLimiter{limit: limit, sems: make(map[uuid.UUID]*semaphore.Weighted)}
}

// tryAcquire takes a slot for the partner if one is free.
func (l *partnerLimiter) tryAcquire(partnerID uuid.UUID) (func(), bool) {
	l.mu.Lock()
	sem, ok := l.sems[partnerID]
	if !ok {
		sem = semaphore.NewWeighted(l.limit)
		l.sems[partnerID] = sem
	}
	l.mu.Unlock()

	if !sem.TryAcquire(1) {
		return nil, false
	}
	return func() { sem.Release(1) }, true
}
