// Package extraction turns stored documents into normalized text the
// pipeline can analyze. Each supported content type has its own reader;
// all output passes through whitespace normalization and, when an LLM
// client is configured, a cleanup pass that strips format artifacts.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/prompts"
	"github.com/jonathan/test-writer/internal/storage"
	"github.com/jonathan/test-writer/internal/types"
)

var (
	// ErrUnsupportedFormat indicates a content type no reader handles.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmptyContent indicates the document yielded no extractable text.
	ErrEmptyContent = errors.New("document contains no extractable text")
	// ErrStorageUnavailable indicates the document bytes could not be read.
	ErrStorageUnavailable = errors.New("document storage unavailable")
)

// Request identifies a stored document to extract.
type Request struct {
	DocumentID  uuid.UUID
	Filename    string
	ContentType string
	StorageKey  string
}

// Extractor reads document bytes from object storage and produces
// normalized text. The LLM client is optional; without one the cleanup
// pass is purely mechanical.
type Extractor struct {
	store  storage.Store
	client llm.Client
}

// New creates an Extractor. client may be nil to disable LLM cleanup.
func New(store storage.Store, client llm.Client) *Extractor {
	return &Extractor{store: store, client: client}
}

// Extract downloads the document and converts it to normalized text
func (e *Extractor) Extract(ctx context.Context, req Request) (*types.ExtractedContent, error) {
	if !Supported(req.ContentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.ContentType)
	}

	data, err := e.store.Get(ctx, req.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyContent, req.Filename)
	}

	raw, err := readContent(req.ContentType, data)
	if err != nil {
		return nil, err
	}

	text := CleanText(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyContent, req.Filename)
	}

	text = e.cleanup(ctx, text, req.ContentType)

	return &types.ExtractedContent{
		DocumentID:  req.DocumentID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Text:        text,
		WordCount:   len(strings.Fields(text)),
	}, nil
}

// cleanup runs the content through an LLM cleanup prompt. Any failure
// falls back to the mechanically normalized text.
func (e *Extractor) cleanup(ctx context.Context, text, contentType string) string {
	if e.client == nil {
		return text
	}

	template, err := prompts.Get("cleanup.json", cleanupPromptKey(contentType))
	if err != nil {
		return text
	}
	prompt := prompts.Format(template, map[string]string{"Text": text})

	cleaned, err := e.client.GenerateContent(ctx, prompt, llm.TierLite)
	if err != nil {
		return text
	}
	cleaned = CleanText(cleaned)
	if cleaned == "" {
		return text
	}
	return cleaned
}

// cleanupPromptKey maps a content type to its cleanup prompt family
func cleanupPromptKey(contentType string) string {
	switch normalizeContentType(contentType) {
	case ContentTypePDF:
		return "clean-pdf-text"
	case ContentTypeCSV, ContentTypeXLS, ContentTypeXLSX:
		return "clean-spreadsheet-text"
	default:
		return "clean-generic-text"
	}
}
