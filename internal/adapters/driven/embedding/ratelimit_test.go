package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRateLimiter_DisabledIsNil(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{})
	assert.Nil(t, r)

	// A nil limiter never blocks.
	assert.NoError(t, r.Wait(context.Background()))
	assert.True(t, r.Allow())
	r.RecordRateLimitError(time.Second)
}

func TestRateLimiter_Burst(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2})

	assert.True(t, r.Allow())
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())
}

func TestRateLimiter_Backoff(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 100, BurstSize: 10})

	r.RecordRateLimitError(time.Minute)
	assert.False(t, r.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, r.Wait(ctx))
}
