package mongo

import (
	"context"
	"fmt"
	"time"

	"pdfrag/backend/go/internal/config"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewClient 初始化并返回一个 MongoDB 客户端实例，连接成功后会 Ping 一次。
func NewClient(ctx context.Context, cfg *config.MongoConfig) (*mongo.Client, error) {
	// 应用连接URI。
	clientOptions := options.Client().ApplyURI(cfg.Address)
	// 如果配置了用户名和密码，则设置认证信息。
	if cfg.Username != "" && cfg.Password != "" {
		clientOptions.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	// 创建一个带有超时功能的上下文。
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// 连接到 MongoDB。
	c, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("无法连接到 MongoDB: %w", err)
	}

	// 检查连接是否成功（Ping 数据库）。
	if err = c.Ping(ctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("无法 Ping MongoDB: %w", err)
	}

	logrus.Info("✅ 成功连接到 MongoDB!")
	return c, nil
}

// Close 安全地断开 MongoDB 客户端连接。
func Close(ctx context.Context, client *mongo.Client) error {
	if client != nil {
		return client.Disconnect(ctx)
	}
	return nil
}
