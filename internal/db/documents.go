package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateDocument inserts a new document record
func (db *DB) CreateDocument(ctx context.Context, doc *Document) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO documents (id, filename, content_type, size_bytes, s3_key, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		doc.ID, doc.Filename, doc.ContentType, doc.SizeBytes, doc.S3Key, doc.Status,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID. Returns nil when not found.
func (db *DB) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc Document
	err := db.pool.QueryRow(ctx,
		`SELECT id, filename, content_type, size_bytes, s3_key, status, created_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.Filename, &doc.ContentType, &doc.SizeBytes, &doc.S3Key,
		&doc.Status, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// DocumentFilters holds optional filters for listing documents
type DocumentFilters struct {
	Status      string
	ContentType string
	Limit       int
}

// ListDocuments retrieves documents with optional filters, newest first
func (db *DB) ListDocuments(ctx context.Context, filters DocumentFilters) ([]Document, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, filename, content_type, size_bytes, s3_key, status, created_at, updated_at
		FROM documents WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filters.Status)
		argNum++
	}
	if filters.ContentType != "" {
		query += fmt.Sprintf(" AND content_type = $%d", argNum)
		args = append(args, filters.ContentType)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.ContentType, &doc.SizeBytes,
			&doc.S3Key, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// UpdateDocumentStatus sets a document's status
func (db *DB) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// DeleteDocument deletes a document and its extracted content (via cascade)
func (db *DB) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// SaveDocumentContent stores extracted text, replacing any previous extraction
func (db *DB) SaveDocumentContent(ctx context.Context, content *DocumentContent) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO document_contents (document_id, extracted_text, word_count, content_type)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (document_id) DO UPDATE SET
		   extracted_text = $2, word_count = $3, content_type = $4, extracted_at = NOW()`,
		content.DocumentID, content.Text, content.WordCount, content.ContentType,
	)
	if err != nil {
		return fmt.Errorf("failed to save document content: %w", err)
	}
	return nil
}

// GetDocumentContent retrieves extracted text for a document. Returns nil when
// the document has not been extracted.
func (db *DB) GetDocumentContent(ctx context.Context, documentID uuid.UUID) (*DocumentContent, error) {
	var content DocumentContent
	err := db.pool.QueryRow(ctx,
		`SELECT document_id, extracted_text, word_count, content_type, extracted_at
		 FROM document_contents WHERE document_id = $1`,
		documentID,
	).Scan(&content.DocumentID, &content.Text, &content.WordCount,
		&content.ContentType, &content.ExtractedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document content: %w", err)
	}
	return &content, nil
}
