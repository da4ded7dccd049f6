package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartnerLimiter_CapsPerPartner(t *testing.T) {
	l := newPartnerLimiter(1)
	a, b := uuid.New(), uuid.New()

	releaseA, ok := l.tryAcquire(a)
	require.True(t, ok)

	// another partner is unaffected
	releaseB, ok := l.tryAcquire(b)
	require.True(t, ok)
	releaseB()

	_, ok = l.tryAcquire(a)
	assert.False(t, ok)

	releaseA()
	again, ok := l.tryAcquire(a)
	require.True(t, ok)
	again()
}

func TestPartnerLimiter_MinimumOne(t *testing.T) {
	l := newPartnerLimiter(0)
	release, ok := l.tryAcquire(uuid.New())
	require.True(t, ok)
	release()
}
