package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := New[int](4)
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer s1.Close()
	defer s2.Close()

	b.Publish(7)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v1, err := s1.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, v1)

	v2, err := s2.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, v2)
}

// TestSlowSubscriberLagsInsteadOfBlocking verifies a saturated subscriber
// observes a Lagged error rather than stalling the publisher or other
// subscribers.
func TestSlowSubscriberLagsInsteadOfBlocking(t *testing.T) {
	b := New[int](2)
	slow := b.Subscribe()
	defer slow.Close()

	for i := 0; i < 5; i++ {
		b.Publish(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := slow.Recv(ctx)
	var lagged *Lagged
	require.ErrorAs(t, err, &lagged)
	assert.Positive(t, lagged.Skipped)
}

func TestRecvReturnsContextCanceledAfterClose(t *testing.T) {
	b := New[int](1)
	s := b.Subscribe()

	b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.Recv(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubscriberCloseStopsFurtherDelivery(t *testing.T) {
	b := New[int](1)
	s := b.Subscribe()
	s.Close()

	b.Publish(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.Recv(ctx)
	assert.Error(t, err)
}
