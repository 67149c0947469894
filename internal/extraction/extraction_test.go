package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/storage"
)

type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "{}", nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

func storedDocument(t *testing.T, store storage.Store, filename, contentType string, data []byte) Request {
	t.Helper()
	key := storage.Key(filename)
	require.NoError(t, store.Put(context.Background(), key, data, contentType))
	return Request{
		DocumentID:  uuid.New(),
		Filename:    filename,
		ContentType: contentType,
		StorageKey:  key,
	}
}

func TestExtract_PlainText(t *testing.T) {
	store := storage.NewMemoryStore()
	req := storedDocument(t, store, "reqs.txt", ContentTypeText,
		[]byte("The system   shall accept uploads.\r\n\n\n\nIt shall report progress.  \n"))

	extractor := New(store, nil)
	content, err := extractor.Extract(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.DocumentID, content.DocumentID)
	assert.Equal(t, "reqs.txt", content.Filename)
	assert.Equal(t, ContentTypeText, content.ContentType)
	assert.Equal(t, "The system shall accept uploads.\n\nIt shall report progress.", content.Text)
	assert.Equal(t, 9, content.WordCount)
}

func TestExtract_CSV(t *testing.T) {
	store := storage.NewMemoryStore()
	req := storedDocument(t, store, "cases.csv", ContentTypeCSV,
		[]byte("id,title\nTC001,Login works\n"))

	extractor := New(store, nil)
	content, err := extractor.Extract(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, content.Text, "TC001")
	assert.Contains(t, content.Text, "Login works")
}

func TestExtract_UnsupportedType(t *testing.T) {
	store := storage.NewMemoryStore()
	req := storedDocument(t, store, "archive.zip", "application/zip", []byte("PK"))

	extractor := New(store, nil)
	_, err := extractor.Extract(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtract_MissingObject(t *testing.T) {
	store := storage.NewMemoryStore()
	extractor := New(store, nil)

	_, err := extractor.Extract(context.Background(), Request{
		DocumentID:  uuid.New(),
		Filename:    "gone.txt",
		ContentType: ContentTypeText,
		StorageKey:  "gone.txt",
	})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestExtract_EmptyContent(t *testing.T) {
	store := storage.NewMemoryStore()
	req := storedDocument(t, store, "blank.txt", ContentTypeText, []byte("   \n\t\n  "))

	extractor := New(store, nil)
	_, err := extractor.Extract(context.Background(), req)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestExtract_LLMCleanup(t *testing.T) {
	store := storage.NewMemoryStore()
	req := storedDocument(t, store, "scan.txt", ContentTypeText,
		[]byte("Requirements with OCR  artifacts"))

	var gotPrompt string
	var gotTier llm.ModelTier
	client := &MockLLMClient{
		GenerateContentFunc: func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
			gotPrompt = prompt
			gotTier = tier
			return "Requirements without artifacts", nil
		},
	}

	extractor := New(store, client)
	content, err := extractor.Extract(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Requirements without artifacts", content.Text)
	assert.Equal(t, llm.TierLite, gotTier)
	assert.Contains(t, gotPrompt, "Requirements with OCR artifacts")
}

func TestExtract_LLMCleanupFailureFallsBack(t *testing.T) {
	store := storage.NewMemoryStore()
	req := storedDocument(t, store, "doc.txt", ContentTypeText, []byte("Original requirements text"))

	client := &MockLLMClient{
		GenerateContentFunc: func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
			return "", errors.New("model unavailable")
		},
	}

	extractor := New(store, client)
	content, err := extractor.Extract(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Original requirements text", content.Text)
}

func TestExtract_LLMCleanupEmptyFallsBack(t *testing.T) {
	store := storage.NewMemoryStore()
	req := storedDocument(t, store, "doc.txt", ContentTypeText, []byte("Original requirements text"))

	client := &MockLLMClient{
		GenerateContentFunc: func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
			return "   \n  ", nil
		},
	}

	extractor := New(store, client)
	content, err := extractor.Extract(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Original requirements text", content.Text)
}

func TestCleanupPromptKey(t *testing.T) {
	assert.Equal(t, "clean-pdf-text", cleanupPromptKey(ContentTypePDF))
	assert.Equal(t, "clean-spreadsheet-text", cleanupPromptKey(ContentTypeCSV))
	assert.Equal(t, "clean-spreadsheet-text", cleanupPromptKey(ContentTypeXLSX))
	assert.Equal(t, "clean-generic-text", cleanupPromptKey(ContentTypeHTML))
	assert.Equal(t, "clean-generic-text", cleanupPromptKey(ContentTypeText))
}
