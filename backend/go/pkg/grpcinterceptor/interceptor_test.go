package grpcinterceptor

import (
	"context"
	"errors"
	"testing"
	"time"

	"pdfrag/backend/go/pkg/circuitbreaker"
	"pdfrag/backend/go/pkg/ratelimiter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

func withKey(key string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-api-key", key))
}

func TestRateLimitUnaryInterceptor(t *testing.T) {
	icpt := RateLimitUnaryInterceptor(ratelimiter.NewKeyed(0.001, 1, 0))
	ok := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	resp, err := icpt(withKey("a"), nil, info, ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = icpt(withKey("a"), nil, info, ok)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = icpt(withKey("b"), nil, info, ok)
	assert.NoError(t, err)
}

func TestCircuitBreakUnaryInterceptor(t *testing.T) {
	icpt := CircuitBreakUnaryInterceptor(circuitbreaker.New(1, 1, time.Minute))
	fail := func(ctx context.Context, req interface{}) (interface{}, error) { return nil, errors.New("down") }

	_, err := icpt(context.Background(), nil, info, fail)
	assert.EqualError(t, err, "down")

	_, err = icpt(context.Background(), nil, info, fail)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}
