package embedding

import (
	"context"
	"fmt"

	"pdfrag/backend/go/internal/config"
)

// NewEmdModel 根据配置中选择的提供商创建并返回一个新的 Embedding 模型实例。
//
// 参数:
//
//	ctx: 上下文，Gemini 客户端初始化时使用。
//	cfg: Embedding 配置，Provider 决定使用哪一组 ProviderConfig。
//
// 返回值:
//
//	Embedding: 新创建的 Embedding 模型实例。
//	error: 如果提供商不支持或模型初始化失败，则返回错误。
func NewEmdModel(ctx context.Context, cfg config.EmbeddingConfig) (Embedding, error) {
	switch ModelType(cfg.Provider) {
	case Gemini:
		return NewGoogleModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	case OpenAI:
		return NewOpenAIModel(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	case Ollama:
		return NewOllamaModel(cfg.Ollama.Model, cfg.Ollama.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider) // 如果提供商不支持，返回错误。
	}
}

// checkCount 确认返回的向量数量与输入文本数量一致。
func checkCount(want, got int) error {
	if want != got {
		return fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", want, got)
	}
	return nil
}
