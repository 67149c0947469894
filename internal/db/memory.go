package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDocumentStore keeps document records in process memory. It backs
// database-less dev mode and tests, mirroring the Postgres methods'
// semantics: lookups of missing rows return (nil, nil), mutations of
// missing rows return an error.
type MemoryDocumentStore struct {
	mu       sync.RWMutex
	docs     map[uuid.UUID]Document
	contents map[uuid.UUID]DocumentContent
}

// NewMemoryDocumentStore creates an empty in-memory document store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		docs:     make(map[uuid.UUID]Document),
		contents: make(map[uuid.UUID]DocumentContent),
	}
}

// CreateDocument stores a new document record and stamps its timestamps.
func (m *MemoryDocumentStore) CreateDocument(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[doc.ID]; exists {
		return fmt.Errorf("failed to create document: duplicate id %s", doc.ID)
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	m.docs[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID. Returns nil when not found.
func (m *MemoryDocumentStore) GetDocument(_ context.Context, id uuid.UUID) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

// ListDocuments retrieves documents with optional filters, newest first.
func (m *MemoryDocumentStore) ListDocuments(_ context.Context, filters DocumentFilters) ([]Document, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []Document
	for _, doc := range m.docs {
		if filters.Status != "" && doc.Status != filters.Status {
			continue
		}
		if filters.ContentType != "" && doc.ContentType != filters.ContentType {
			continue
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	if len(docs) > filters.Limit {
		docs = docs[:filters.Limit]
	}
	return docs, nil
}

// UpdateDocumentStatus sets a document's status.
func (m *MemoryDocumentStore) UpdateDocumentStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	doc.Status = status
	doc.UpdatedAt = time.Now().UTC()
	m.docs[id] = doc
	return nil
}

// DeleteDocument deletes a document and its extracted content.
func (m *MemoryDocumentStore) DeleteDocument(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	delete(m.docs, id)
	delete(m.contents, id)
	return nil
}

// SaveDocumentContent stores extracted text, replacing any previous
// extraction.
func (m *MemoryDocumentStore) SaveDocumentContent(_ context.Context, content *DocumentContent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *content
	c.ExtractedAt = time.Now().UTC()
	m.contents[c.DocumentID] = c
	return nil
}

// GetDocumentContent retrieves extracted text for a document. Returns nil
// when the document has not been extracted.
func (m *MemoryDocumentStore) GetDocumentContent(_ context.Context, documentID uuid.UUID) (*DocumentContent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.contents[documentID]
	if !ok {
		return nil, nil
	}
	return &content, nil
}
