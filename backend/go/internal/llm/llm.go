package llm

import (
	"context"
	"fmt"

	"pdfrag/backend/go/internal/config"
)

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
// 问答只需要单轮补全，不保留会话历史。
type LLM interface {
	// Complete 发送一次提示词并返回模型的完整文本回复。
	Complete(ctx context.Context, prompt string) (string, error)
	// Model 返回当前使用的模型名称，用于日志与健康检查。
	Model() string
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 LLM 接口的客户端。
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(ctx, cfg.Gemini.Model, cfg.Gemini.APIKey)
	case "openai":
		return NewOpenAI(cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	case "ollama":
		return NewOllama(cfg.Ollama.Model, cfg.Ollama.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
