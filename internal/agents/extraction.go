package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/test-writer/internal/db"
	"github.com/jonathan/test-writer/internal/extraction"
	"github.com/jonathan/test-writer/internal/pipeline"
)

// DocumentStore is the document record access the extraction stage
// needs: metadata lookup before extraction, and a best-effort content
// cache afterwards. *db.DB satisfies it.
type DocumentStore interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*db.Document, error)
	SaveDocumentContent(ctx context.Context, content *db.DocumentContent) error
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string) error
}

// ExtractionAgent runs the first pipeline stage: it loads the document
// record, pulls the stored bytes, and normalizes them into text.
type ExtractionAgent struct {
	docs      DocumentStore
	extractor *extraction.Extractor
}

// NewExtractionAgent creates the extraction stage agent.
func NewExtractionAgent(docs DocumentStore, extractor *extraction.Extractor) *ExtractionAgent {
	return &ExtractionAgent{docs: docs, extractor: extractor}
}

// Name returns the stage this agent implements.
func (a *ExtractionAgent) Name() string { return pipeline.StageExtraction }

// Execute extracts normalized text for the pipeline's document.
// Unsupported formats and empty documents are input failures that no
// retry can fix; storage trouble is reported as unavailability so the
// coordinator may retry.
func (a *ExtractionAgent) Execute(ctx context.Context, in pipeline.StageInput) (any, error) {
	doc, err := a.docs.GetDocument(ctx, in.DocumentID)
	if err != nil {
		return nil, pipeline.Unavailable(fmt.Errorf("failed to load document record: %w", err))
	}
	if doc == nil {
		return nil, pipeline.InvalidInput(fmt.Sprintf("document %s no longer exists", in.DocumentID))
	}

	content, err := a.extractor.Extract(ctx, extraction.Request{
		DocumentID:  doc.ID,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		StorageKey:  doc.S3Key,
	})
	switch {
	case err == nil:
	case errors.Is(err, extraction.ErrUnsupportedFormat), errors.Is(err, extraction.ErrEmptyContent):
		_ = a.docs.UpdateDocumentStatus(ctx, doc.ID, db.DocumentStatusFailed)
		return nil, pipeline.InvalidInput(err.Error())
	case errors.Is(err, extraction.ErrStorageUnavailable):
		return nil, pipeline.Unavailable(err)
	default:
		return nil, err
	}

	// Cache the text so the documents API can serve it without another
	// extraction pass. Failures here never fail the stage.
	_ = a.docs.SaveDocumentContent(ctx, &db.DocumentContent{
		DocumentID:  content.DocumentID,
		Text:        content.Text,
		WordCount:   content.WordCount,
		ContentType: content.ContentType,
		ExtractedAt: time.Now().UTC(),
	})
	_ = a.docs.UpdateDocumentStatus(ctx, doc.ID, db.DocumentStatusExtracted)

	return content, nil
}
