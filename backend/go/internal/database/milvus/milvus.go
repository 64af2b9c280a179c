package milvus

import (
	"context"
	"fmt"

	"pdfrag/backend/go/internal/config"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/sirupsen/logrus"
)

// 分块集合的字段名称。
const (
	FieldID         = "id"
	FieldText       = "text"
	FieldSource     = "source"
	FieldPage       = "page"
	FieldChunkIndex = "chunk_index"
)

// MilvusClient 包含了 Milvus 客户端实例和相关配置。
type MilvusClient struct {
	Client client.Client        // Milvus 客户端实例。
	Config *config.MilvusConfig // Milvus 配置。
}

// NewClient 创建并返回一个 Milvus 客户端实例。
func NewClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	// 使用配置中的地址创建 Milvus 客户端。
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("无法连接到 Milvus: %w", err)
	}
	logrus.Info("✅ 成功连接到 Milvus!")
	return &MilvusClient{Client: c, Config: cfg}, nil
}

// Close 刷新集合后关闭与 Milvus 的连接。
func (c *MilvusClient) Close(ctx context.Context) error {
	if c.Client == nil {
		return nil
	}
	if err := c.FlushCollection(ctx); err != nil {
		logrus.Warnf("关闭前刷新集合失败: %v", err)
	}
	return c.Client.Close()
}

// HealthCheck 检查 Milvus 连接的健康状况。
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("Milvus client is nil")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}

// FlushCollection 手动触发一次刷新操作，将内存中的数据写入磁盘。
func (c *MilvusClient) FlushCollection(ctx context.Context) error {
	collName := c.Config.Schema.CollectionName
	if err := c.Client.Flush(ctx, collName, false); err != nil {
		return fmt.Errorf("刷新集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

// DefaultChunkFields 返回分块集合的内置字段配置。
func DefaultChunkFields(dim int, vectorField string) []config.FieldConfig {
	return []config.FieldConfig{
		{Name: FieldID, DataType: "VarChar", IsPrimaryKey: true, MaxLength: 1024},
		{Name: FieldText, DataType: "VarChar", MaxLength: 65535},
		{Name: FieldSource, DataType: "VarChar", MaxLength: 512},
		{Name: FieldPage, DataType: "Int64"},
		{Name: FieldChunkIndex, DataType: "Int64"},
		{Name: vectorField, DataType: "FloatVector", Dim: dim},
	}
}

// EnsureCollection 确保 Milvus 集合存在并加载到内存中。
// 配置中没有字段时使用 DefaultChunkFields。
func (c *MilvusClient) EnsureCollection(ctx context.Context) error {
	collName := c.Config.Schema.CollectionName
	exists, err := c.Client.HasCollection(ctx, collName)
	if err != nil {
		return fmt.Errorf("检查集合是否存在时出错: %w", err)
	}
	if !exists {
		fields := c.Config.Schema.Fields
		if len(fields) == 0 {
			fields = DefaultChunkFields(c.Config.Dimension, c.Config.Schema.VectorField)
		}

		schema := entity.NewSchema().
			WithName(collName).
			WithDescription(c.Config.Schema.Description)

		for _, fieldCfg := range fields {
			field, err := buildField(fieldCfg)
			if err != nil {
				return err
			}
			schema = schema.WithField(field)
		}

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("创建集合失败: %w", err)
		}
		idx, err := c.buildIndexFromConfig()
		if err != nil {
			return err
		}
		if err := c.Client.CreateIndex(ctx, collName, c.Config.Schema.Index.FieldName, idx, false); err != nil {
			return fmt.Errorf("为字段 '%s' 创建索引失败: %w", c.Config.Schema.Index.FieldName, err)
		}
		logrus.Infof("✅ 已创建集合 '%s'", collName)
	}

	if err := c.Client.LoadCollection(ctx, collName, false); err != nil {
		return fmt.Errorf("加载 Milvus 集合 '%s' 失败: %w", collName, err)
	}
	return nil
}

func buildField(fieldCfg config.FieldConfig) (*entity.Field, error) {
	field := entity.NewField().WithName(fieldCfg.Name)
	if fieldCfg.IsPrimaryKey {
		field = field.WithIsPrimaryKey(true)
	}

	switch fieldCfg.DataType {
	case "Int64":
		field = field.WithDataType(entity.FieldTypeInt64)
	case "VarChar":
		field = field.WithDataType(entity.FieldTypeVarChar).WithMaxLength(int64(fieldCfg.MaxLength))
	case "FloatVector":
		field = field.WithDataType(entity.FieldTypeFloatVector).WithDim(int64(fieldCfg.Dim))
	case "Float":
		field = field.WithDataType(entity.FieldTypeFloat)
	case "Double":
		field = field.WithDataType(entity.FieldTypeDouble)
	case "Bool":
		field = field.WithDataType(entity.FieldTypeBool)
	default:
		return nil, fmt.Errorf("不支持的数据类型: %s", fieldCfg.DataType)
	}
	return field, nil
}

// buildIndexFromConfig 是一个辅助函数，用于从配置构建索引实体。
func (c *MilvusClient) buildIndexFromConfig() (entity.Index, error) {
	indexCfg := c.Config.Schema.Index
	metricType := entity.MetricType(indexCfg.MetricType)

	switch indexCfg.IndexType {
	case "IVF_FLAT":
		return entity.NewIndexIvfFlat(metricType, intParam(indexCfg.Params, "nlist", 128))
	case "HNSW":
		return entity.NewIndexHNSW(metricType, intParam(indexCfg.Params, "M", 8), intParam(indexCfg.Params, "efConstruction", 96))
	case "IVF_SQ8":
		return entity.NewIndexIvfSQ8(metricType, intParam(indexCfg.Params, "nlist", 128))
	case "AUTOINDEX":
		return entity.NewIndexAUTOINDEX(metricType)
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", indexCfg.IndexType)
	}
}

// intParam 读取索引参数。YAML 解码出的数字是 int，JSON 解码出的是 float64。
func intParam(params map[string]interface{}, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
