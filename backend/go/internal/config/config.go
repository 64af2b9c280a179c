package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FieldConfig 定义了 Milvus 集合中字段的配置。
type FieldConfig struct {
	Name         string `yaml:"name"`                // 字段名称
	DataType     string `yaml:"dataType"`            // 字段数据类型 (例如: "Int64", "VarChar", "FloatVector")
	IsPrimaryKey bool   `yaml:"isPrimaryKey"`        // 是否为主键
	Dim          int    `yaml:"dim,omitempty"`       // 向量维度 (仅适用于向量类型)
	MaxLength    int    `yaml:"maxLength,omitempty"` // 最大长度 (仅适用于VarChar类型)
}

// IndexConfig 定义了 Milvus 集合中索引的配置。
type IndexConfig struct {
	FieldName  string                 `yaml:"fieldName"`  // 要创建索引的字段名称
	IndexType  string                 `yaml:"indexType"`  // 索引类型 (例如: "IVF_FLAT", "HNSW")
	MetricType string                 `yaml:"metricType"` // 相似度度量类型 (例如: "L2", "COSINE")
	Params     map[string]interface{} `yaml:"params"`     // 索引参数 (例如: {"nlist": 128})
}

// SchemaConfig 定义了 Milvus 集合的 Schema 配置。
type SchemaConfig struct {
	CollectionName string        `yaml:"collectionName"` // 集合名称
	Description    string        `yaml:"description"`    // 集合描述
	VectorField    string        `yaml:"vectorField"`    // 向量字段名称
	Fields         []FieldConfig `yaml:"fields"`         // 字段配置列表，为空时使用内置的分块 Schema
	Index          IndexConfig   `yaml:"index"`          // 索引配置
}

// MilvusConfig 定义了 Milvus 数据库的连接和 Schema 配置。
type MilvusConfig struct {
	Address   string       `yaml:"address"`   // Milvus 服务地址
	Dimension int          `yaml:"dimension"` // 嵌入向量维度
	Schema    SchemaConfig `yaml:"schema"`    // Milvus 集合 Schema 配置
}

// ChromaConfig 定义了 Chroma 向量库的连接配置。
type ChromaConfig struct {
	URL        string `yaml:"url"`        // Chroma 服务地址，为空时使用客户端默认地址
	Collection string `yaml:"collection"` // 集合名称
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
	Key      string `yaml:"key"`      // 保存 filename -> chunk_ids 映射的哈希键
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// PostgresConfig 定义了 PostgreSQL 数据库的连接配置。DSN 通常来自 DATABASE_URL 环境变量。
type PostgresConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	ConnMaxLifetime int    `yaml:"connMaxLifetime"`
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 存放原始 PDF 的存储桶
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address    string `yaml:"address"`    // MongoDB 连接 URI
	Username   string `yaml:"username"`   // 用户名
	Password   string `yaml:"password"`   // 密码
	Database   string `yaml:"database"`   // 数据库名称
	Collection string `yaml:"collection"` // 文档集合名称
}

// EtcdConfig 定义了 Etcd 服务注册的连接配置。
type EtcdConfig struct {
	Endpoints   []string `yaml:"endpoints"`   // Etcd 节点地址列表
	Username    string   `yaml:"username"`    // 用户名
	Password    string   `yaml:"password"`    // 密码
	ServiceName string   `yaml:"serviceName"` // 注册的服务名
	Advertise   string   `yaml:"advertise"`   // 对外公布的地址
	TTL         int64    `yaml:"ttl"`         // 租约有效期 (秒)
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topic   string   `yaml:"topic"`   // 索引任务主题
	GroupID string   `yaml:"groupID"` // 消费者组
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Milvus   MilvusConfig   `yaml:"milvus"`   // Milvus 数据库配置
	Chroma   ChromaConfig   `yaml:"chroma"`   // Chroma 数据库配置
	Redis    RedisConfig    `yaml:"redis"`    // Redis 数据库配置
	MySQL    MySQLConfig    `yaml:"mysql"`    // MySQL 数据库配置
	Postgres PostgresConfig `yaml:"postgres"` // PostgreSQL 数据库配置
	MinIO    MinIOConfig    `yaml:"minio"`    // MinIO 对象存储配置
	MongoDB  MongoConfig    `yaml:"mongodb"`  // MongoDB 数据库配置
	Etcd     EtcdConfig     `yaml:"etcd"`     // Etcd 服务注册配置
	Kafka    KafkaConfig    `yaml:"kafka"`    // Kafka 消息队列配置
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
	Debug       bool   `yaml:"debug"`
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 与 gRPC 的监听地址。
type ServerConfig struct {
	HTTPAddress     string `yaml:"httpAddress"`
	GRPCAddress     string `yaml:"grpcAddress"`
	RequestTimeout  string `yaml:"requestTimeout"`  // 单个请求的超时时间，例如 "60s"
	MaxUploadSizeMB int    `yaml:"maxUploadSizeMB"` // multipart 表单的内存上限
}

// AuthConfig 用于配置 X-API-Key 认证。APIKey 为空时不启用认证。
type AuthConfig struct {
	APIKey string `yaml:"apiKey"`
}

// RerankConfig 定义了 Cohere 重排序的配置。
type RerankConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	TopN    int    `yaml:"topN"`
}

// RAGConfig 定义了分块与检索相关的参数。
type RAGConfig struct {
	Splitter     string       `yaml:"splitter" validate:"oneof=recursive token"` // "recursive" 或 "token"
	ChunkSize    int          `yaml:"chunkSize" validate:"gt=0"`
	ChunkOverlap int          `yaml:"chunkOverlap" validate:"gte=0,ltfield=ChunkSize"`
	TopK         int          `yaml:"topK" validate:"gt=0,lte=50"`
	Rerank       RerankConfig `yaml:"rerank"`
}

// VectorStoreConfig 选择向量索引的后端。
type VectorStoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=local milvus chroma pgvector"`
	Path    string `yaml:"path"` // local 后端的持久化目录 (VECTOR_STORE_PATH)
}

// DocStoreConfig 选择 filename -> chunk_ids 文档存储的后端。
type DocStoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=memory mongo redis"`
}

// RecordStoreConfig 选择关系型记录存储的后端。
type RecordStoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory mysql postgres"`
}

// QueueConfig 定义后台索引队列。
type QueueConfig struct {
	Backend         string `yaml:"backend" validate:"oneof=memory kafka"`
	Workers         int    `yaml:"workers" validate:"gt=0"`
	Buffer          int    `yaml:"buffer" validate:"gte=0"`
	MaxAttempts     int    `yaml:"maxAttempts" validate:"gt=0"`
	Backoff         string `yaml:"backoff"`         // 重试间隔基数，例如 "500ms"
	InProcessWorker bool   `yaml:"inProcessWorker"` // kafka 后端时是否在本进程内消费
}

// ArchiveConfig 控制是否把原始 PDF 归档到 MinIO。
type ArchiveConfig struct {
	Enabled bool `yaml:"enabled"`
}

// HealthConfig 定义健康检查的超时与 gRPC 健康状态的刷新间隔。
type HealthConfig struct {
	Timeout         string `yaml:"timeout"`
	RefreshInterval string `yaml:"refreshInterval"`
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App         AppInfo           `yaml:"app"`         // 应用程序信息
	Server      ServerConfig      `yaml:"server"`      // 监听地址
	Auth        AuthConfig        `yaml:"auth"`        // 认证配置
	RAG         RAGConfig         `yaml:"rag"`         // 分块与检索配置
	LLM         LLMConfig         `yaml:"llm"`         // LLM 配置部分
	Embedding   EmbeddingConfig   `yaml:"embedding"`   // Embedding 配置部分
	VectorStore VectorStoreConfig `yaml:"vectorStore"` // 向量索引后端
	DocStore    DocStoreConfig    `yaml:"docStore"`    // 文档存储后端
	RecordStore RecordStoreConfig `yaml:"recordStore"` // 关系型存储后端
	Queue       QueueConfig       `yaml:"queue"`       // 后台索引队列
	Archive     ArchiveConfig     `yaml:"archive"`     // 原始文件归档
	Health      HealthConfig      `yaml:"health"`      // 健康检查
	Logger      LoggerConfig      `yaml:"logger"`      // 日志记录器配置
	Databases   DatabaseConfigs   `yaml:"databases"`   // 数据库配置
	Middleware  MiddlewareConfig  `yaml:"middleware"`  // 中间件配置
}

// ProviderConfig 描述一个模型提供商的连接信息。
type ProviderConfig struct {
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"baseURL"`
}

// LLMConfig 包含了不同LLM提供商的配置。
type LLMConfig struct {
	Provider string         `yaml:"provider" validate:"oneof=openai ollama gemini"` // LLM提供商
	OpenAI   ProviderConfig `yaml:"openai"`
	Ollama   ProviderConfig `yaml:"ollama"`
	Gemini   ProviderConfig `yaml:"gemini"`
}

// EmbeddingConfig 包含了不同Embedding提供商的配置。
type EmbeddingConfig struct {
	Provider  string         `yaml:"provider" validate:"oneof=openai ollama gemini"` // Embedding提供商
	CacheSize int            `yaml:"cacheSize"`                                      // 查询向量缓存条目数，0 表示不缓存
	CacheTTL  string         `yaml:"cacheTTL"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Ollama    ProviderConfig `yaml:"ollama"`
	Gemini    ProviderConfig `yaml:"gemini"`
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了按客户端限流的令牌桶配置。
type RateLimiterConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// Default 返回填充了默认值的配置，LoadConfig 在解析 YAML 之前以它为基础。
func Default() *AppConfig {
	return &AppConfig{
		App:    AppInfo{Name: "pdfrag", Version: "1.0.0", Environment: "development"},
		Server: ServerConfig{HTTPAddress: ":8080", GRPCAddress: ":50051", RequestTimeout: "120s", MaxUploadSizeMB: 64},
		RAG: RAGConfig{
			Splitter:     "recursive",
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopK:         5,
			Rerank:       RerankConfig{Model: "rerank-english-v2.0", TopN: 5},
		},
		LLM: LLMConfig{
			Provider: "openai",
			OpenAI:   ProviderConfig{Model: "gpt-3.5-turbo"},
			Ollama:   ProviderConfig{Model: "llama3", BaseURL: "http://localhost:11434"},
			Gemini:   ProviderConfig{Model: "gemini-1.5-flash"},
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			CacheSize: 1024,
			CacheTTL:  "10m",
			OpenAI:    ProviderConfig{Model: "text-embedding-3-small"},
			Ollama:    ProviderConfig{Model: "nomic-embed-text", BaseURL: "http://localhost:11434"},
			Gemini:    ProviderConfig{Model: "text-embedding-004"},
		},
		VectorStore: VectorStoreConfig{Backend: "local", Path: "vector-db"},
		DocStore:    DocStoreConfig{Backend: "memory"},
		RecordStore: RecordStoreConfig{Driver: "memory"},
		Queue:       QueueConfig{Backend: "memory", Workers: 2, Buffer: 64, MaxAttempts: 3, Backoff: "500ms", InProcessWorker: true},
		Health:      HealthConfig{Timeout: "5s", RefreshInterval: "30s"},
		Logger:      LoggerConfig{Level: "info"},
		Databases: DatabaseConfigs{
			Milvus: MilvusConfig{
				Address:   "localhost:19530",
				Dimension: 1536,
				Schema: SchemaConfig{
					CollectionName: "pdf_chunks",
					Description:    "PDF chunks indexed by chunk id",
					VectorField:    "embedding",
					Index:          IndexConfig{FieldName: "embedding", IndexType: "IVF_FLAT", MetricType: "L2", Params: map[string]interface{}{"nlist": 128}},
				},
			},
			Chroma:  ChromaConfig{Collection: "pdf_chunks"},
			Redis:   RedisConfig{Address: "localhost:6379", Key: "pdfrag:documents"},
			MongoDB: MongoConfig{Address: "mongodb://localhost:27017", Database: "pdfrag", Collection: "documents"},
			MinIO:   MinIOConfig{Bucket: "pdfrag-uploads"},
			Kafka:   KafkaConfig{Topic: "pdfrag.index", GroupID: "pdfrag-indexer"},
			Etcd:    EtcdConfig{ServiceName: "pdfrag", TTL: 10},
		},
		Middleware: MiddlewareConfig{
			RateLimiter:    RateLimiterConfig{Rate: 10, Capacity: 20},
			CircuitBreaker: CircuitBreakerConfig{FailureThreshold: 5, SuccessThreshold: 2, Timeout: "30s"},
		},
	}
}

var validate = validator.New()

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。为空或文件不存在时只使用默认值与环境变量。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取、解析或校验失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	// .env 是可选的，缺失时直接使用系统环境变量。
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		yamlFile, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
				return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置，包括 chunkOverlap 必须小于 chunkSize。
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	for _, d := range []struct{ name, value string }{
		{"server.requestTimeout", c.Server.RequestTimeout},
		{"queue.backoff", c.Queue.Backoff},
		{"health.timeout", c.Health.Timeout},
		{"health.refreshInterval", c.Health.RefreshInterval},
		{"middleware.circuitBreaker.timeout", c.Middleware.CircuitBreaker.Timeout},
		{"embedding.cacheTTL", c.Embedding.CacheTTL},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("配置项 %s 不是合法的时间间隔: %w", d.name, err)
		}
	}
	return nil
}

// Duration 解析时间字符串，空字符串或非法值返回 fallback。
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// applyEnv 用环境变量覆盖敏感信息与常用设置。
func applyEnv(cfg *AppConfig) {
	setString(&cfg.Auth.APIKey, "API_KEY")
	setString(&cfg.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Embedding.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Embedding.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.RAG.Rerank.APIKey, "COHERE_API_KEY")
	setString(&cfg.VectorStore.Path, "VECTOR_STORE_PATH")
	setString(&cfg.Databases.Postgres.DSN, "DATABASE_URL")
	setString(&cfg.Databases.MongoDB.Address, "MONGO_URI")
	setString(&cfg.Databases.MongoDB.Database, "MONGO_DB_NAME")
	setString(&cfg.Databases.Redis.Address, "REDIS_ADDR")
	setString(&cfg.Logger.Level, "LOG_LEVEL")
	setInt(&cfg.RAG.ChunkSize, "CHUNK_SIZE")
	setInt(&cfg.RAG.ChunkOverlap, "CHUNK_OVERLAP")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
