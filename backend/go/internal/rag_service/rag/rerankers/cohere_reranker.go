package rerankers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
	pkghttp "pdfrag/backend/go/pkg/http"
)

// DefaultCohereURL is the Cohere rerank endpoint.
const DefaultCohereURL = "https://api.cohere.ai/v1/rerank"

// CohereReranker implements the Reranker interface using the Cohere Rerank API.
type CohereReranker struct {
	apiKey     string
	endpoint   string
	httpClient *pkghttp.Client
	model      string
	topN       int
}

// cohereRerankRequest defines the request body for the Cohere Rerank API.
type cohereRerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

// cohereRerankResult is one entry of the Cohere Rerank API response.
type cohereRerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type cohereRerankResponse struct {
	Results []cohereRerankResult `json:"results"`
}

// NewCohereReranker creates a new CohereReranker. An empty endpoint uses DefaultCohereURL.
func NewCohereReranker(client *pkghttp.Client, apiKey, model string, topN int, endpoint string) *CohereReranker {
	if endpoint == "" {
		endpoint = DefaultCohereURL
	}
	return &CohereReranker{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: client,
		model:      model,
		topN:       topN,
	}
}

// Rerank re-orders a list of documents based on relevance scores from the Cohere API.
// The input slice is not modified.
func (r *CohereReranker) Rerank(ctx context.Context, query string, docs []*schema.Document) ([]*schema.Document, error) {
	if len(docs) == 0 {
		return docs, nil
	}

	// 1. Prepare the request for Cohere's API
	docTexts := make([]string, len(docs))
	for i, doc := range docs {
		docTexts[i] = doc.Text
	}

	topN := r.topN
	if topN <= 0 || topN > len(docs) {
		topN = len(docs)
	}

	payload, err := json.Marshal(cohereRerankRequest{
		Model:           r.model,
		Query:           query,
		Documents:       docTexts,
		TopN:            topN,
		ReturnDocuments: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cohere request: %w", err)
	}

	// 2. Make the HTTP request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create cohere request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call cohere api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cohere api returned non-200 status: %s", resp.Status)
	}

	// 3. Parse the response and re-order the documents
	var cohereResp cohereRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&cohereResp); err != nil {
		return nil, fmt.Errorf("failed to decode cohere response: %w", err)
	}

	reranked := make([]*schema.Document, 0, len(cohereResp.Results))
	for _, result := range cohereResp.Results {
		if result.Index < 0 || result.Index >= len(docs) {
			continue
		}
		doc := *docs[result.Index]
		doc.Score = float32(result.RelevanceScore)
		reranked = append(reranked, &doc)
	}

	// Sort by the new score in descending order
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	return reranked, nil
}

// compile-time check to ensure CohereReranker implements the Reranker interface
var _ interfaces.Reranker = (*CohereReranker)(nil)
