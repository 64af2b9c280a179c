package ratelimiter

import (
	"time"

	"pdfrag/backend/go/internal/config"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter is the interface for rate limiting.
// It defines a single method, Allow, which returns true if a request is allowed,
// and false otherwise.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// KeyedLimiter hands out one token bucket per client key.
// Buckets of clients that stay idle for idleTTL are evicted.
type KeyedLimiter struct {
	rate     rate.Limit
	capacity int
	buckets  *cache.Cache
}

// NewKeyed creates a KeyedLimiter.
// ratePerSecond: the number of tokens to generate per second.
// capacity: the maximum number of tokens (burst size).
func NewKeyed(ratePerSecond float64, capacity int, idleTTL time.Duration) *KeyedLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &KeyedLimiter{
		rate:     rate.Limit(ratePerSecond),
		capacity: capacity,
		buckets:  cache.New(idleTTL, 2*idleTTL),
	}
}

// For returns the limiter of key, creating a full bucket on first use.
func (k *KeyedLimiter) For(key string) RateLimiter {
	if v, ok := k.buckets.Get(key); ok {
		// touch so active clients are not evicted
		k.buckets.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(k.rate, k.capacity)
	if err := k.buckets.Add(key, l, cache.DefaultExpiration); err != nil {
		// another request created it first
		if v, ok := k.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

// Allow consumes one token of key.
func (k *KeyedLimiter) Allow(key string) bool {
	return k.For(key).Allow()
}

// FromConfig builds a KeyedLimiter, or nil when rate limiting is disabled.
func FromConfig(cfg config.RateLimiterConfig) *KeyedLimiter {
	if !cfg.Enabled {
		return nil
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 1
	}
	return NewKeyed(cfg.Rate, capacity, 10*time.Minute)
}
