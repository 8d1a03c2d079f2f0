package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllowRespectsBurst(t *testing.T) {
	l := New(1, 2)
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestLimiterWaitUnblocksAfterRefill(t *testing.T) {
	l := New(1000, 1)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))
}

func TestManagerWaitNoOpForUnregisteredVenue(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, m.Wait(ctx, "unknown"))
}

func TestManagerLimiterReturnsRegisteredInstance(t *testing.T) {
	m := NewManager()
	m.AddVenue("polygon", 5, 5)
	assert.NotNil(t, m.Limiter("polygon"))
	assert.Nil(t, m.Limiter("kalshi"))
}
