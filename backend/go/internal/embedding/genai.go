package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiBatchLimit 是 BatchEmbedContents 单次请求允许的最大条目数。
const geminiBatchLimit = 100

// GoogleModel 是一个用于 Google GenAI Embedding API 的客户端。
type GoogleModel struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

// NewGoogleModel 创建并返回一个新的 GoogleModel 客户端实例。
//
// 参数:
//
//	ctx: 上下文。
//	apiKey: Google GenAI 的 API 密钥。
//	modelName: 要使用的 Embedding 模型名称。
func NewGoogleModel(ctx context.Context, apiKey string, modelName string) (*GoogleModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini embedding: api key is empty")
	}
	// 1. 使用 genai.NewClient 初始化客户端。
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	// 2. 获取指定的 embedding 模型。
	return &GoogleModel{
		client: client,
		model:  client.EmbeddingModel(modelName),
	}, nil
}

// Embed 为单个文本生成嵌入向量。
func (m *GoogleModel) Embed(ctx context.Context, text string) ([]float32, error) {
	// 调用模型的 EmbedContent 方法生成嵌入向量。
	res, err := m.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return res.Embedding.Values, nil // 返回嵌入向量的值。
}

// EmbedBatch 为一批文本生成嵌入向量，超过单次上限时分批请求。
func (m *GoogleModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchLimit {
		end := start + geminiBatchLimit
		if end > len(texts) {
			end = len(texts)
		}

		// 创建一个新的批量嵌入请求。
		batch := m.model.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}

		res, err := m.model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, err
		}
		if err := checkCount(end-start, len(res.Embeddings)); err != nil {
			return nil, err
		}
		for _, emb := range res.Embeddings {
			embeddings = append(embeddings, emb.Values)
		}
	}
	return embeddings, nil
}

// Close 关闭底层的 GenAI 客户端。
func (m *GoogleModel) Close() error {
	return m.client.Close()
}
