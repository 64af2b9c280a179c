package grpc

import (
	"fmt"
	"net"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/pkg/circuitbreaker"
	"pdfrag/backend/go/pkg/grpcinterceptor"
	"pdfrag/backend/go/pkg/ratelimiter"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server 是一个自定义的 gRPC 服务器，封装了标准的 grpc.Server 并提供了内置的中间件支持。
// 它总是注册标准的 grpc.health.v1 健康检查服务。
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	address    string
}

// ServerOption 定义了用于配置 Server 的函数。
type ServerOption func(*Server)

// WithAddress 设置服务器监听的地址。
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.address = addr
	}
}

// NewServer 根据提供的 AppConfig 和选项创建并配置一个新的 Server 实例。
// 它会自动应用配置中启用的限流和熔断拦截器。
func NewServer(cfg *config.AppConfig, opts ...ServerOption) (*Server, error) {
	var interceptors []grpc.UnaryServerInterceptor

	// 如果启用了限流器，则添加限流拦截器。
	if limiter := ratelimiter.FromConfig(cfg.Middleware.RateLimiter); limiter != nil {
		logrus.Info("Enabling gRPC Rate Limiter middleware.")
		interceptors = append(interceptors, grpcinterceptor.RateLimitUnaryInterceptor(limiter))
	}

	// 如果启用了熔断器，则添加熔断拦截器。
	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := circuitbreaker.FromConfig(cfg.Middleware.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		logrus.Info("Enabling gRPC Circuit Breaker middleware.")
		interceptors = append(interceptors, grpcinterceptor.CircuitBreakUnaryInterceptor(breaker))
	}

	// 将所有拦截器链接起来，并创建一个 gRPC 服务器实例。
	g := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(g, hs)
	reflection.Register(g)

	srv := &Server{
		grpcServer: g,
		health:     hs,
		address:    cfg.Server.GRPCAddress,
	}

	// 应用所有传入的选项。
	for _, opt := range opts {
		opt(srv)
	}

	// 如果没有提供地址，则设置一个默认地址。
	if srv.address == "" {
		srv.address = ":9090"
	}

	return srv, nil
}

// RegisterService 暴露底层的 gRPC RegisterService 方法，用于注册服务实现。
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	s.grpcServer.RegisterService(desc, impl)
}

// SetServing 更新健康检查状态。service 为空字符串时表示整个服务器。
func (s *Server) SetServing(service string, serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, st)
}

// Address 返回监听地址。
func (s *Server) Address() string {
	return s.address
}

// ListenAndServe 开始监听并提供 gRPC 服务。
func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(lis)
}

// Serve 在给定的 listener 上提供服务，测试中使用 bufconn 或随机端口。
func (s *Server) Serve(lis net.Listener) error {
	logrus.Infof("Starting gRPC server on %s", lis.Addr())
	return s.grpcServer.Serve(lis)
}

// GracefulStop 优雅地停止 gRPC 服务器，并先把健康状态置为 NOT_SERVING。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// GetGRPCServer 返回底层的 *grpc.Server 实例。
func (s *Server) GetGRPCServer() *grpc.Server {
	return s.grpcServer
}
