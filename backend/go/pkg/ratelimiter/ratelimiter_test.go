package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLimiterIsolatesClients(t *testing.T) {
	l := NewKeyed(0.001, 2, time.Minute)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	assert.True(t, l.Allow("b"), "b has its own bucket")
	assert.Same(t, l.For("a"), l.For("a"))
}
