package redis

import (
	"context"
	"fmt"

	"pdfrag/backend/go/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// NewClient 初始化并返回一个 Redis 客户端实例，连接失败时返回错误。
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	// 使用配置创建 Redis 客户端。
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 使用 Ping 检查连接是否成功。
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("无法连接到 Redis: %w", err)
	}

	logrus.Info("✅ 成功连接到 Redis!")
	return rdb, nil
}
