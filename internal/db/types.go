package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document statuses track what has happened to an uploaded file.
const (
	DocumentStatusUploaded  = "uploaded"
	DocumentStatusExtracted = "extracted"
	DocumentStatusFailed    = "failed"
)

// Document represents an uploaded document record
type Document struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	S3Key       string    `json:"s3_key"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DocumentContent holds the extracted text for a document
type DocumentContent struct {
	DocumentID  uuid.UUID `json:"document_id"`
	Text        string    `json:"extracted_text"`
	WordCount   int       `json:"word_count"`
	ContentType string    `json:"content_type"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// PipelineRun mirrors a pipeline's state for querying after restarts
type PipelineRun struct {
	ID              uuid.UUID       `json:"id"`
	DocumentID      uuid.UUID       `json:"document_id"`
	Status          string          `json:"status"`
	CurrentStage    string          `json:"current_stage,omitempty"`
	Progress        float64         `json:"progress"`
	Error           json.RawMessage `json:"error,omitempty"`
	CancelRequested bool            `json:"cancel_requested"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PipelineCheckpoint is one committed stage result
type PipelineCheckpoint struct {
	PipelineID  uuid.UUID       `json:"pipeline_id"`
	Position    int             `json:"position"`
	Stage       string          `json:"stage"`
	Output      json.RawMessage `json:"output,omitempty"`
	Attempts    int             `json:"attempts"`
	CompletedAt time.Time       `json:"completed_at"`
}

// TestArtifact is a completed pipeline's final test set
type TestArtifact struct {
	ID         uuid.UUID       `json:"id"`
	PipelineID uuid.UUID       `json:"pipeline_id"`
	DocumentID uuid.UUID       `json:"document_id"`
	Content    json.RawMessage `json:"content"`
	CreatedAt  time.Time       `json:"created_at"`
}

// User represents an API user
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never serialize to JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
