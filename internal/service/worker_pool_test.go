package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_RunsJobs(t *testing.T) {
	p := newWorkerPool(context.Background(), 3, 10, newTestLogger())

	var n atomic.Int32
	for i := 0; i < 10; i++ {
		assert.True(t, p.Submit(func(context.Context) { n.Add(1) }))
	}
	p.Drain()

	assert.Equal(t, int32(10), n.Load())
}

func TestWorkerPool_SubmitFullQueue(t *testing.T) {
	p := newWorkerPool(context.Background(), 1, 1, newTestLogger())

	block := make(chan struct{})
	started := make(chan struct{})
	assert.True(t, p.Submit(func(context.Context) { close(started); <-block }))
	<-started

	assert.True(t, p.Submit(func(context.Context) {}))
	assert.False(t, p.Submit(func(context.Context) {}), "queue of 1 should be full")
	assert.Equal(t, 1, p.QueueLen())

	close(block)
	p.Drain()
}

func TestWorkerPool_SubmitAfterDrain(t *testing.T) {
	p := newWorkerPool(context.Background(), 1, 1, newTestLogger())
	p.Drain()

	assert.False(t, p.Submit(func(context.Context) {}))
	assert.NotPanics(t, p.Drain)
}

func TestWorkerPool_RecoversPanic(t *testing.T) {
	p := newWorkerPool(context.Background(), 1, 2, newTestLogger())

	done := make(chan struct{})
	p.Submit(func(context.Context) { panic("boom") })
	p.Submit(func(context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking job")
	}
	p.Drain()
}
