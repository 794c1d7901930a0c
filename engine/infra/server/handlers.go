package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ragserve/ragserve/engine/chat"
	"github.com/ragserve/ragserve/engine/infra/server/router"
	"github.com/ragserve/ragserve/engine/ingest"
	"github.com/ragserve/ragserve/pkg/logger"
)

const (
	defaultTopK        = 5
	defaultTemperature = 0.7

	noDocumentsReason = "No documents uploaded. Please upload documents first."
)

// IngestService indexes uploads and reports the document inventory.
type IngestService interface {
	ProcessUploads(ctx context.Context, uploads []ingest.Upload) []ingest.UploadResult
	ListDocuments(ctx context.Context) ([]ingest.Document, error)
}

// ChatService composes grounded answers, complete or streamed.
type ChatService interface {
	Compose(ctx context.Context, req chat.Request) (*chat.Response, error)
	ComposeStream(ctx context.Context, req chat.Request, emit func(chat.StreamEvent) error) error
}

// PassageCounter reports how many passages the store holds.
type PassageCounter interface {
	Count(ctx context.Context) (int, error)
}

type handlers struct {
	ingest  IngestService
	chat    ChatService
	counter PassageCounter
	version string
}

func (h *handlers) banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "ragserve",
		"version": h.version,
		"docs":    "/api/v0",
	})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Version: h.version})
}

// uploadDocuments accepts multipart files under the "files" field and indexes
// each one, isolating per-file failures in the response.
func (h *handlers) uploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		router.RespondWithError(c, http.StatusBadRequest,
			router.NewRequestError(http.StatusBadRequest, "invalid multipart form", err))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		router.RespondWithError(c, http.StatusBadRequest,
			router.NewRequestError(http.StatusBadRequest, "no files provided", nil))
		return
	}
	uploads := make([]ingest.Upload, 0, len(files))
	for _, header := range files {
		data, err := readMultipartFile(header)
		if err != nil {
			router.RespondWithError(c, http.StatusBadRequest,
				router.NewRequestError(http.StatusBadRequest,
					fmt.Sprintf("failed to read file %q", header.Filename), err))
			return
		}
		uploads = append(uploads, ingest.Upload{Filename: header.Filename, Data: data})
	}
	results := h.ingest.ProcessUploads(c.Request.Context(), uploads)
	router.RespondOK(c, "documents processed", toMultiUploadResponse(results))
}

func (h *handlers) listDocuments(c *gin.Context) {
	documents, err := h.ingest.ListDocuments(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, http.StatusInternalServerError,
			router.NewRequestError(http.StatusInternalServerError, "failed to list documents", err))
		return
	}
	router.RespondOK(c, "", toDocumentListResponse(documents))
}

// chatComplete answers a question in a single response, grounded on the
// stored passages.
func (h *handlers) chatComplete(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		router.RespondWithError(c, http.StatusBadRequest,
			router.NewRequestError(http.StatusBadRequest, "invalid chat request", err))
		return
	}
	ctx := c.Request.Context()
	if !h.requireDocuments(c) {
		return
	}
	response, err := h.chat.Compose(ctx, toChatDomainRequest(req.Message, req.ConversationID, req.TopK, req.Temperature))
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			router.RespondWithError(c, http.StatusBadRequest,
				router.NewRequestError(http.StatusBadRequest, "message must not be empty", err))
			return
		}
		router.RespondWithError(c, http.StatusInternalServerError,
			router.NewRequestError(http.StatusInternalServerError, "failed to compose answer", err))
		return
	}
	router.RespondOK(c, "", response)
}

// chatStream answers a question as Server-Sent Events. The stream always ends
// with exactly one terminal event, done or error.
func (h *handlers) chatStream(c *gin.Context) {
	var query chatStreamQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		router.RespondWithError(c, http.StatusBadRequest,
			router.NewRequestError(http.StatusBadRequest, "invalid stream request", err))
		return
	}
	ctx := c.Request.Context()
	if !h.requireDocuments(c) {
		return
	}
	stream := router.StartSSE(c.Writer)
	if stream == nil {
		router.RespondWithError(c, http.StatusInternalServerError,
			router.NewRequestErrorWithCode(http.StatusInternalServerError, router.ErrStreamInitFailCode,
				"streaming unsupported by connection", nil))
		return
	}
	req := toChatDomainRequest(query.Message, query.ConversationID, query.TopK, query.Temperature)
	err := h.chat.ComposeStream(ctx, req, func(event chat.StreamEvent) error {
		return stream.WriteJSONEvent(string(event.Type), event.Data)
	})
	if err != nil {
		// Headers are already on the wire. Log and drop the connection.
		logger.FromContext(ctx).Warn("chat stream aborted", "error", err)
	}
}

// requireDocuments rejects chat requests against an empty store with 404,
// matching the non-streaming and streaming endpoints alike.
func (h *handlers) requireDocuments(c *gin.Context) bool {
	count, err := h.counter.Count(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, http.StatusInternalServerError,
			router.NewRequestError(http.StatusInternalServerError, "failed to check document store", err))
		return false
	}
	if count == 0 {
		router.RespondWithError(c, http.StatusNotFound,
			router.NewRequestError(http.StatusNotFound, noDocumentsReason, nil))
		return false
	}
	return true
}

func toChatDomainRequest(message, conversationID string, topK int, temperature *float64) chat.Request {
	req := chat.Request{
		Message:        message,
		ConversationID: conversationID,
		TopK:           topK,
		Temperature:    defaultTemperature,
	}
	if req.TopK == 0 {
		req.TopK = defaultTopK
	}
	if temperature != nil {
		req.Temperature = *temperature
	}
	return req
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
