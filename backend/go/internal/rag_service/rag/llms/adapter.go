// Package llms adapts the provider clients in internal/llm to the pipeline's LLM interface.
package llms

import (
	"context"
	"errors"

	"pdfrag/backend/go/internal/llm"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/pkg/circuitbreaker"
)

// Adapter routes single-shot prompts through a circuit breaker.
type Adapter struct {
	client  llm.LLM
	breaker circuitbreaker.CircuitBreaker
}

// NewAdapter creates a new adapter. A nil breaker disables circuit breaking.
func NewAdapter(client llm.LLM, breaker circuitbreaker.CircuitBreaker) *Adapter {
	if breaker == nil {
		breaker = circuitbreaker.Disabled()
	}
	return &Adapter{client: client, breaker: breaker}
}

// Generate returns the model's answer to prompt.
func (a *Adapter) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := circuitbreaker.Do(a.breaker, func() (string, error) {
		return a.client.Complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return "", ragerr.Wrap(ragerr.ErrUnavailable, err)
		}
		return "", ragerr.Wrap(ragerr.ErrLLM, err)
	}
	return out, nil
}

// Model is the configured model name.
func (a *Adapter) Model() string {
	return a.client.Model()
}

// Available reports whether the breaker currently lets calls through.
func (a *Adapter) Available() bool {
	return a.breaker.State() != circuitbreaker.Open
}

// compile-time check to ensure Adapter implements the LLM interface
var _ interfaces.LLM = (*Adapter)(nil)
