package etcd

import (
	"context"
	"fmt"
	"time"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/pkg/logger"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// ServiceDiscovery registers service instances in etcd and looks them up by name.
type ServiceDiscovery struct {
	cli *clientv3.Client // etcd client
	log *logger.Logger
}

// NewServiceDiscovery connects to the configured endpoints.
func NewServiceDiscovery(cfg *config.EtcdConfig, log *logger.Logger) (*ServiceDiscovery, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("no etcd endpoints configured")
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		Username:    cfg.Username,
		Password:    cfg.Password,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return &ServiceDiscovery{cli: cli, log: log}, nil
}

// Key returns the etcd key of an instance.
func Key(serviceName, addr string) string {
	return "/" + serviceName + "/" + addr
}

// Register puts addr under a lease and keeps it alive in the background.
// The instance is removed when ctx ends.
func (s *ServiceDiscovery) Register(ctx context.Context, serviceName, addr string, ttl int64) error {
	if ttl <= 0 {
		ttl = 10
	}
	leaseResp, err := s.cli.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("failed to grant etcd lease: %w", err)
	}

	if _, err := s.cli.Put(ctx, Key(serviceName, addr), addr, clientv3.WithLease(leaseResp.ID)); err != nil {
		return fmt.Errorf("failed to put service address: %w", err)
	}

	keepAliveCh, err := s.cli.KeepAlive(ctx, leaseResp.ID)
	if err != nil {
		return fmt.Errorf("failed to keep lease alive: %w", err)
	}

	log := s.log.With("service", serviceName).With("addr", addr)
	log.Info("Service registered in etcd")
	go func() {
		for {
			select {
			case <-ctx.Done():
				s.revoke(serviceName, addr)
				return
			case _, ok := <-keepAliveCh:
				if !ok {
					// lease expired or revoked
					log.Warn("etcd lease lost")
					s.revoke(serviceName, addr)
					return
				}
			}
		}
	}()

	return nil
}

// revoke deletes the instance key. etcd also drops it when the lease expires.
func (s *ServiceDiscovery) revoke(serviceName, addr string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := s.cli.Delete(ctx, Key(serviceName, addr)); err != nil {
		s.log.WithError(models.NewErrorInfo(err, "etcd_error")).Warn("Failed to deregister service")
	}
}

// Discover returns every instance address registered for serviceName.
func (s *ServiceDiscovery) Discover(ctx context.Context, serviceName string) ([]string, error) {
	resp, err := s.cli.Get(ctx, "/"+serviceName+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(resp.Kvs))
	for _, ev := range resp.Kvs {
		addrs = append(addrs, string(ev.Value))
	}
	return addrs, nil
}

// Close closes the etcd client.
func (s *ServiceDiscovery) Close() error {
	return s.cli.Close()
}
