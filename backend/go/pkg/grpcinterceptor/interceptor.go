package grpcinterceptor

import (
	"context"
	"errors"
	"strings"

	"pdfrag/backend/go/pkg/circuitbreaker"
	"pdfrag/backend/go/pkg/ratelimiter"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// clientKey 优先使用 x-api-key 元数据，其次使用对端地址的主机部分。
func clientKey(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("x-api-key"); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr := p.Addr.String()
		if i := strings.LastIndex(addr, ":"); i > 0 {
			return addr[:i]
		}
		return addr
	}
	return "unknown"
}

// RateLimitUnaryInterceptor 返回一个 gRPC 一元拦截器，按客户端限流。
func RateLimitUnaryInterceptor(limiter *ratelimiter.KeyedLimiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !limiter.Allow(clientKey(ctx)) {
			// 当请求被限流时，返回 gRPC 标准的 ResourceExhausted 错误码。
			return nil, status.Errorf(codes.ResourceExhausted, "request rejected due to rate limiting")
		}
		return handler(ctx, req)
	}
}

// CircuitBreakUnaryInterceptor 返回一个 gRPC 一元拦截器，用于熔断。
func CircuitBreakUnaryInterceptor(breaker circuitbreaker.CircuitBreaker) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		// 将 gRPC handler 的调用包装在熔断器的 Execute 方法中。
		resp, err := breaker.Execute(func() (interface{}, error) {
			return handler(ctx, req)
		})

		if err != nil {
			// 如果熔断器已打开，返回 gRPC 标准的 Unavailable 错误码。
			if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
				return nil, status.Errorf(codes.Unavailable, "service unavailable: circuit breaker is open")
			}
			// 否则，返回原始错误。
			return nil, err
		}

		return resp, nil
	}
}
