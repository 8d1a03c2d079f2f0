package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffStaysWithinJitteredCap(t *testing.T) {
	b := NewBackoff()
	for i := 0; i < 10; i++ {
		d := b.Next()
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, b.cap+time.Duration(float64(b.cap)*0.2)+time.Millisecond)
	}
}

func TestBackoffResetRestartsSequence(t *testing.T) {
	b := NewBackoff()
	b.Next()
	b.Next()
	b.Next()
	b.Reset()
	assert.Equal(t, 0, b.attempt)
}

func TestBackoffResetAfterMatchesPolicy(t *testing.T) {
	b := NewBackoff()
	assert.Equal(t, 30*time.Second, b.ResetAfter())
}
