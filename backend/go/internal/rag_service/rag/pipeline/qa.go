package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/ragerr"
	"pdfrag/backend/go/internal/rag_service/rag/schema"
	"pdfrag/backend/go/pkg/logger"
)

// NotEnoughInformation is the answer given when retrieval finds nothing.
const NotEnoughInformation = "There is not enough information in the indexed documents to answer this question."

const promptInstructions = `Use the context below to answer the question.
If the context does not contain the answer, say that there is not enough information to answer the question.
Answer in Markdown.
End your answer with a line of the form "Confidence: High", "Confidence: Medium" or "Confidence: Low".
`

// QAPipeline is responsible for generating an answer based on a query and retrieved documents.
type QAPipeline struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewQAPipeline creates a new QAPipeline.
func NewQAPipeline(llm interfaces.LLM, log *logger.Logger) *QAPipeline {
	return &QAPipeline{
		llm: llm,
		log: log,
	}
}

// Run builds a grounded prompt from documents and asks the LLM. With no documents the
// model is not called.
func (p *QAPipeline) Run(ctx context.Context, query string, documents []*schema.Document) (*schema.AnswerResult, error) {
	if len(documents) == 0 {
		return &schema.AnswerResult{Answer: NotEnoughInformation, Sources: []schema.Source{}}, nil
	}

	answer, err := p.llm.Generate(ctx, BuildPrompt(query, documents))
	if err != nil {
		if !errors.Is(err, ragerr.ErrLLM) && !errors.Is(err, ragerr.ErrUnavailable) {
			err = ragerr.Wrap(ragerr.ErrLLM, err)
		}
		return nil, err
	}

	return &schema.AnswerResult{
		Answer:     answer,
		Sources:    ExtractSources(documents),
		Confidence: ExtractConfidence(answer),
	}, nil
}

// BuildPrompt constructs a prompt string from a query and a list of context documents.
func BuildPrompt(query string, documents []*schema.Document) string {
	var sb strings.Builder

	sb.WriteString(promptInstructions)
	sb.WriteString("\nContext:\n")
	for i, doc := range documents {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "Context %d (%s, page %d):\n%s\n", i+1, doc.Source(), doc.Page(), doc.Text)
	}
	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "Question: %s", query)

	return sb.String()
}
