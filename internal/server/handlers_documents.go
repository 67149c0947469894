package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/test-writer/internal/db"
	"github.com/jonathan/test-writer/internal/extraction"
	"github.com/jonathan/test-writer/internal/fetch"
	"github.com/jonathan/test-writer/internal/storage"
	"github.com/jonathan/test-writer/internal/types"
)

// handleUploadDocument accepts a multipart file upload, stores the raw
// bytes and creates the document record.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, extraction.MaxDocumentBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("document exceeds the %d MiB limit", extraction.MaxDocumentBytes>>20))
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("document exceeds the %d MiB limit", extraction.MaxDocumentBytes>>20))
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	if len(data) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = extraction.TypeByExtension(filepath.Ext(header.Filename))
	}
	if !extraction.Supported(contentType) {
		s.errorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported content type %q", contentType))
		return
	}
	// application/vnd.ms-excel is a common mislabel for CSV exports; real
	// legacy .xls has no reader and is rejected up front.
	if contentType == extraction.ContentTypeXLS && !extraction.LooksLikeCSV(data) {
		s.errorResponse(w, http.StatusBadRequest,
			"legacy .xls is not supported; upload as CSV or XLSX")
		return
	}

	doc, err := s.storeDocument(r, header.Filename, contentType, data)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, doc)
}

// handleIngestURL fetches a web page, extracts its main text and stores
// it as a plain-text document.
func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	var req types.IngestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, firstValidationError(err))
		return
	}

	page, err := fetch.Page(r.Context(), req.URL, &fetch.PageOptions{
		UseBrowser: s.useBrowser,
		Fetch:      fetch.DefaultOptions(),
	})
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = urlFilename(page.Title, req.URL)
	}

	doc, err := s.storeDocument(r, filename, extraction.ContentTypeText, []byte(page.Text))
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, doc)
}

// storeDocument writes the blob and creates the document record. The blob
// is removed again if the record cannot be created.
func (s *Server) storeDocument(r *http.Request, filename, contentType string, data []byte) (*db.Document, error) {
	key := storage.Key(filename)
	if err := s.store.Put(r.Context(), key, data, contentType); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	doc := &db.Document{
		ID:          uuid.New(),
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		S3Key:       key,
		Status:      db.DocumentStatusUploaded,
	}
	if err := s.docs.CreateDocument(r.Context(), doc); err != nil {
		_ = s.store.Delete(r.Context(), key)
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}
	return doc, nil
}

// handleListDocuments lists document records, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	filters := db.DocumentFilters{
		Status:      r.URL.Query().Get("status"),
		ContentType: r.URL.Query().Get("content_type"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filters.Limit = limit
	}

	docs, err := s.docs.ListDocuments(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if docs == nil {
		docs = []db.Document{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

// handleGetDocument returns one document record.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid document ID format")
		return
	}

	doc, err := s.docs.GetDocument(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if doc == nil {
		s.errorResponse(w, http.StatusNotFound, "Document not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

// handleGetDocumentContent returns the extracted text for a document. The
// text is cached by the extraction stage; a document that has not been
// through a pipeline has no content yet.
func (s *Server) handleGetDocumentContent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid document ID format")
		return
	}

	content, err := s.docs.GetDocumentContent(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if content == nil {
		s.errorResponse(w, http.StatusNotFound, "No extracted content for document")
		return
	}
	s.jsonResponse(w, http.StatusOK, content)
}

// handleDeleteDocument removes the document record and its stored blob.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid document ID format")
		return
	}

	doc, err := s.docs.GetDocument(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if doc == nil {
		s.errorResponse(w, http.StatusNotFound, "Document not found")
		return
	}

	// Record deletion proceeds even when the blob removal fails.
	if err := s.store.Delete(r.Context(), doc.S3Key); err != nil {
		log.Printf("Failed to delete blob %s: %v", doc.S3Key, err)
	}
	if err := s.docs.DeleteDocument(r.Context(), id); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// urlFilename derives a storable filename from a fetched page title,
// falling back to the URL host.
func urlFilename(title, rawURL string) string {
	base := strings.ToLower(strings.TrimSpace(title))
	if base == "" {
		if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
			base = u.Host
		}
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
		default:
			pendingDash = true
		}
	}
	name := b.String()
	if name == "" {
		name = "page"
	}
	if len(name) > 80 {
		name = name[:80]
	}
	return name + ".txt"
}
