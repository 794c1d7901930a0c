package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ragserve/ragserve/engine/chunk"
	"github.com/ragserve/ragserve/engine/core"
	"github.com/ragserve/ragserve/engine/embedder"
	"github.com/ragserve/ragserve/engine/extract"
	"github.com/ragserve/ragserve/engine/vectordb"
	"github.com/ragserve/ragserve/pkg/logger"
)

var (
	// ErrMissingFilename reports an upload without a filename.
	ErrMissingFilename = errors.New("ingest: filename is required")
	// ErrFileTooLarge reports an upload exceeding the configured size limit.
	ErrFileTooLarge = errors.New("ingest: file exceeds maximum allowed size")
	// ErrEmptyUpload reports an upload with no content.
	ErrEmptyUpload = errors.New("ingest: file is empty")
	// ErrTypeNotAllowed reports a file type outside the configured whitelist.
	ErrTypeNotAllowed = errors.New("ingest: file type not allowed")
)

// Service turns uploaded files into embedded passages in the vector store.
type Service struct {
	store        vectordb.Store
	embedder     embedder.Embedder
	processor    *chunk.Processor
	uploadDir    string
	maxFileSize  int64
	allowedTypes map[string]struct{}
}

// Option customizes Service construction.
type Option func(*Service)

// WithUploadDir persists raw uploads under dir for later inspection.
func WithUploadDir(dir string) Option {
	return func(s *Service) { s.uploadDir = dir }
}

// WithMaxFileSize caps accepted upload sizes in bytes.
func WithMaxFileSize(limit int64) Option {
	return func(s *Service) { s.maxFileSize = limit }
}

// WithAllowedTypes restricts uploads to the named file types.
func WithAllowedTypes(types []string) Option {
	return func(s *Service) {
		s.allowedTypes = make(map[string]struct{}, len(types))
		for _, t := range types {
			s.allowedTypes[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
		}
	}
}

// NewService wires the ingestion pipeline.
func NewService(
	store vectordb.Store,
	emb embedder.Embedder,
	processor *chunk.Processor,
	opts ...Option,
) (*Service, error) {
	if store == nil {
		return nil, errors.New("ingest: store is required")
	}
	if emb == nil {
		return nil, errors.New("ingest: embedder is required")
	}
	if processor == nil {
		return nil, errors.New("ingest: chunk processor is required")
	}
	svc := &Service{
		store:     store,
		embedder:  emb,
		processor: processor,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ProcessUpload validates, extracts, segments, embeds, and stores one file.
func (s *Service) ProcessUpload(ctx context.Context, upload Upload) (*Document, error) {
	log := logger.FromContext(ctx)
	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}
	fileType, err := extract.ParseFileType(upload.Filename)
	if err != nil {
		return nil, err
	}
	if len(s.allowedTypes) > 0 {
		if _, ok := s.allowedTypes[string(fileType)]; !ok {
			return nil, fmt.Errorf("%w: type %q", ErrTypeNotAllowed, fileType)
		}
	}
	text, err := extract.Text(upload.Data, fileType)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		ID:         core.MustNewID(),
		Filename:   upload.Filename,
		FileType:   fileType,
		SizeBytes:  int64(len(upload.Data)),
		UploadedAt: time.Now().UTC(),
	}
	savedPath, err := s.saveUpload(doc, upload.Data)
	if err != nil {
		return nil, err
	}
	count, err := s.IndexDocument(ctx, doc, text)
	if err != nil {
		s.discardUpload(ctx, savedPath)
		return nil, err
	}
	doc.ChunkCount = count
	log.Info("document indexed",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"chunks", doc.ChunkCount,
	)
	return doc, nil
}

// ProcessUploads indexes a batch of files, isolating per-file failures.
func (s *Service) ProcessUploads(ctx context.Context, uploads []Upload) []UploadResult {
	results := make([]UploadResult, 0, len(uploads))
	for _, upload := range uploads {
		doc, err := s.ProcessUpload(ctx, upload)
		result := UploadResult{Filename: upload.Filename}
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Document = doc
		}
		results = append(results, result)
	}
	return results
}

// IndexDocument segments text, embeds every passage, and stores them in a
// single batch. Chunk IDs are contiguous and deterministic per document.
func (s *Service) IndexDocument(ctx context.Context, doc *Document, text string) (int, error) {
	started := time.Now()
	passages := s.processor.Split(text)
	if len(passages) == 0 {
		return 0, fmt.Errorf("ingest: document %q produced no passages", doc.Filename)
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, passages)
	if err != nil {
		return 0, fmt.Errorf("ingest: embed document %q: %w", doc.Filename, err)
	}
	if len(vectors) != len(passages) {
		return 0, fmt.Errorf(
			"ingest: embedding count mismatch for %q (got %d want %d)",
			doc.Filename,
			len(vectors),
			len(passages),
		)
	}
	records := make([]vectordb.Record, len(passages))
	for i := range passages {
		chunkID := fmt.Sprintf("%s_chunk_%d", doc.ID, i)
		records[i] = vectordb.Record{
			ID:        chunkID,
			Text:      passages[i],
			Embedding: vectors[i],
			Metadata: map[string]any{
				metaDocumentID:  doc.ID.String(),
				metaFilename:    doc.Filename,
				metaFileType:    string(doc.FileType),
				metaChunkIndex:  i,
				metaTotalChunks: len(passages),
				metaChunkID:     chunkID,
				metaFileSize:    doc.SizeBytes,
				metaUploadedAt:  doc.UploadedAt.Format(time.RFC3339),
			},
		}
	}
	if err := s.store.Insert(ctx, records); err != nil {
		return 0, fmt.Errorf("ingest: store document %q: %w", doc.Filename, err)
	}
	recordIngest(ctx, string(doc.FileType), len(passages), time.Since(started))
	return len(passages), nil
}

// ListDocuments reconstructs the document inventory from stored passage
// metadata, grouped by document ID.
func (s *Service) ListDocuments(ctx context.Context) ([]Document, error) {
	entries, err := s.store.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest: list documents: %w", err)
	}
	grouped := make(map[string]*Document)
	for _, entry := range entries {
		docID, ok := entry.Metadata[metaDocumentID].(string)
		if !ok || docID == "" {
			continue
		}
		doc, seen := grouped[docID]
		if !seen {
			doc = &Document{ID: core.ID(docID)}
			if filename, ok := entry.Metadata[metaFilename].(string); ok {
				doc.Filename = filename
			}
			if fileType, ok := entry.Metadata[metaFileType].(string); ok {
				doc.FileType = extract.FileType(fileType)
			}
			doc.SizeBytes = intFromMetadata(entry.Metadata[metaFileSize])
			if raw, ok := entry.Metadata[metaUploadedAt].(string); ok {
				if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
					doc.UploadedAt = parsed
				}
			}
			grouped[docID] = doc
		}
		doc.ChunkCount++
	}
	documents := make([]Document, 0, len(grouped))
	for _, doc := range grouped {
		documents = append(documents, *doc)
	}
	sort.Slice(documents, func(i, j int) bool {
		if documents[i].UploadedAt.Equal(documents[j].UploadedAt) {
			return documents[i].ID < documents[j].ID
		}
		return documents[i].UploadedAt.After(documents[j].UploadedAt)
	})
	return documents, nil
}

func (s *Service) validateUpload(upload Upload) error {
	if upload.Filename == "" {
		return ErrMissingFilename
	}
	if len(upload.Data) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyUpload, upload.Filename)
	}
	if s.maxFileSize > 0 && int64(len(upload.Data)) > s.maxFileSize {
		return fmt.Errorf("%w: %q is %d bytes (limit %d)", ErrFileTooLarge, upload.Filename, len(upload.Data), s.maxFileSize)
	}
	return nil
}

// saveUpload persists the raw file when an upload directory is configured.
// Returns the saved path, or empty when persistence is disabled.
func (s *Service) saveUpload(doc *Document, data []byte) (string, error) {
	if s.uploadDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(s.uploadDir, 0o750); err != nil {
		return "", fmt.Errorf("ingest: ensure upload directory: %w", err)
	}
	path := filepath.Join(s.uploadDir, fmt.Sprintf("%s_%s", doc.ID, filepath.Base(doc.Filename)))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("ingest: save upload %q: %w", doc.Filename, err)
	}
	return path, nil
}

// discardUpload removes a previously saved file after a failed indexing run.
func (s *Service) discardUpload(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.FromContext(ctx).Warn("failed to remove upload after indexing failure", "path", path, "error", err)
	}
}

func intFromMetadata(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
