package pipeline

import (
	"regexp"
	"strings"

	"pdfrag/backend/go/internal/rag_service/rag/schema"
)

var confidencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)confidence\s*[:\-]?\s*\**\s*(high|medium|low)\b`),
	regexp.MustCompile(`(?i)\b(high|medium|low)\s+confidence`),
	regexp.MustCompile(`(?i)confian[çc]a\s*[:\-]?\s*\**\s*(alta|m[ée]dia|baixa)\b`),
	regexp.MustCompile(`(?i)\b(alta|m[ée]dia|baixa)\s+confian[çc]a`),
}

var confidenceLabels = map[string]string{
	"high":   "High",
	"medium": "Medium",
	"low":    "Low",
	"alta":   "High",
	"média":  "Medium",
	"media":  "Medium",
	"baixa":  "Low",
}

// ExtractConfidence returns the normalized label of the earliest confidence marker in answer,
// or nil when there is none.
func ExtractConfidence(answer string) *string {
	best, label := -1, ""
	for _, re := range confidencePatterns {
		loc := re.FindStringSubmatchIndex(answer)
		if loc == nil || (best >= 0 && loc[0] >= best) {
			continue
		}
		if l, ok := confidenceLabels[strings.ToLower(answer[loc[2]:loc[3]])]; ok {
			best, label = loc[0], l
		}
	}
	if best < 0 {
		return nil
	}
	return &label
}

// ExtractSources returns the distinct (filename, page) pairs of documents in first-seen order.
func ExtractSources(documents []*schema.Document) []schema.Source {
	type key struct {
		file string
		page int
	}
	seen := make(map[key]struct{}, len(documents))
	sources := make([]schema.Source, 0, len(documents))
	for _, d := range documents {
		k := key{d.Source(), d.Page()}
		if k.file == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		sources = append(sources, schema.Source{Filename: k.file, Page: k.page})
	}
	return sources
}
