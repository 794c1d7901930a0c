package chat

// systemPrompt frames every generation request around the retrieved context.
const systemPrompt = `You are a helpful AI assistant. Answer questions based on the provided context.

Rules:
- Only use information from the context
- If the answer is not in the context, say "I don't have enough information to answer that question based on the uploaded documents."
- Be concise and accurate
- Cite which document you're referencing when possible`

// noDocumentsAnswer is returned when the store holds nothing to ground on.
const noDocumentsAnswer = "I don't have any documents to reference. Please upload some documents first."

// noDocumentsStreamError is the terminal error emitted on a stream when the
// store is empty.
const noDocumentsStreamError = "No documents available"

// sourcePreviewLimit bounds the snippet length carried in source citations.
const sourcePreviewLimit = 200

// Request carries one chat turn.
type Request struct {
	Message        string
	ConversationID string
	TopK           int
	Temperature    float64
}

// Source cites a passage that grounded the answer.
type Source struct {
	ChunkID         string  `json:"chunk_id"`
	DocumentID      string  `json:"document_id"`
	Filename        string  `json:"filename"`
	Content         string  `json:"content"`
	SimilarityScore float64 `json:"similarity_score"`
}

// Response is a complete grounded answer.
type Response struct {
	ConversationID string   `json:"conversation_id"`
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	ModelUsed      string   `json:"model_used"`
	TokensUsed     *int     `json:"tokens_used,omitempty"`
}
