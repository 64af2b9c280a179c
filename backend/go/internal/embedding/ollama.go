package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

const (
	defaultOllamaURL     = "http://localhost:11434"
	ollamaRequestTimeout = 120 * time.Second
)

// OllamaModel 通过本地或远程 Ollama 服务生成向量。
type OllamaModel struct {
	client *ollama.Client
	model  string
}

// NewOllamaModel 创建 Ollama 客户端，baseURL 为空时连接本机默认端口。
func NewOllamaModel(model, baseURL string) (*OllamaModel, error) {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultOllamaURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ollama url %q: scheme and host are required", baseURL)
	}
	hc := &http.Client{Timeout: ollamaRequestTimeout}
	return &OllamaModel{client: ollama.NewClient(u, hc), model: model}, nil
}

func (m *OllamaModel) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch 一次请求完成整批文本；返回数量与输入不一致时视为错误。
func (m *OllamaModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := m.client.Embed(ctx, &ollama.EmbedRequest{Model: m.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embed (%s): %w", m.model, err)
	}
	if err := checkCount(len(texts), len(resp.Embeddings)); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}
