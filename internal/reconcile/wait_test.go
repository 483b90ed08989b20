package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// countingPinger becomes live on attempt liveAfter; 0 means never.
type countingPinger struct {
	liveAfter int
	attempts  int
}

func (p *countingPinger) Ping(ctx context.Context) bool {
	p.attempts++
	return p.liveAfter > 0 && p.attempts >= p.liveAfter
}

func fastPolling(t *testing.T) {
	t.Helper()
	previous := pollInterval
	pollInterval = 10 * time.Millisecond
	t.Cleanup(func() { pollInterval = previous })
}

func TestWaitForBroker_ImmediatelyLive(t *testing.T) {
	p := &countingPinger{liveAfter: 1}

	assert.True(t, WaitForBroker(context.Background(), p, time.Second))
	assert.Equal(t, 1, p.attempts)
}

func TestWaitForBroker_BecomesLive(t *testing.T) {
	fastPolling(t)
	p := &countingPinger{liveAfter: 3}

	assert.True(t, WaitForBroker(context.Background(), p, time.Second))
	assert.Equal(t, 3, p.attempts)
}

func TestWaitForBroker_Timeout(t *testing.T) {
	fastPolling(t)
	p := &countingPinger{}

	start := time.Now()
	assert.False(t, WaitForBroker(context.Background(), p, 50*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
	assert.GreaterOrEqual(t, p.attempts, 2)
}

func TestWaitForBroker_ZeroTimeoutProbesOnce(t *testing.T) {
	p := &countingPinger{}

	assert.False(t, WaitForBroker(context.Background(), p, 0))
	assert.Equal(t, 1, p.attempts)
}

func TestWaitForBroker_ContextCancelled(t *testing.T) {
	fastPolling(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &countingPinger{}

	assert.False(t, WaitForBroker(ctx, p, time.Minute))
	assert.Equal(t, 1, p.attempts)
}
