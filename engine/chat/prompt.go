package chat

import (
	"fmt"
	"strings"

	"github.com/ragserve/ragserve/engine/retriever"
)

// BuildPrompt assembles the grounded user prompt from retrieved passages.
// Each passage is labeled with its source document so the model can cite it.
func BuildPrompt(question string, passages []retriever.RetrievedPassage) string {
	parts := make([]string, 0, len(passages))
	for _, passage := range passages {
		parts = append(parts, fmt.Sprintf("[Document: %s]\n%s", metadataString(passage, "filename"), passage.Text))
	}
	context := strings.Join(parts, "\n\n---\n\n")
	return fmt.Sprintf("Context from uploaded documents:\n\n%s\n\nQuestion: %s\n\nAnswer:", context, question)
}

// formatSources converts retrieved passages into citation records with a
// bounded, rune-safe content preview.
func formatSources(passages []retriever.RetrievedPassage) []Source {
	sources := make([]Source, 0, len(passages))
	for _, passage := range passages {
		sources = append(sources, Source{
			ChunkID:         metadataString(passage, "chunk_id"),
			DocumentID:      metadataString(passage, "document_id"),
			Filename:        metadataString(passage, "filename"),
			Content:         previewText(passage.Text, sourcePreviewLimit),
			SimilarityScore: passage.Score,
		})
	}
	return sources
}

func metadataString(passage retriever.RetrievedPassage, key string) string {
	if value, ok := passage.Metadata[key].(string); ok {
		return value
	}
	return ""
}

func previewText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
