// Package types provides type definitions for structured data used throughout the test writer system.
package types

import "github.com/go-playground/validator/v10"

// Shared instance; it caches struct metadata across calls.
var validate = validator.New()

// StartPipelineRequest asks the coordinator to run the pipeline for an
// uploaded document.
type StartPipelineRequest struct {
	DocumentID string `json:"document_id" validate:"required,uuid"`
}

// Validate checks the request against its field rules.
func (r *StartPipelineRequest) Validate() error {
	return validate.Struct(r)
}

// IngestURLRequest asks the server to fetch a web page and store its
// text as a document.
type IngestURLRequest struct {
	URL      string `json:"url" validate:"required,http_url"`
	Filename string `json:"filename,omitempty" validate:"omitempty,min=1,max=255"`
}

// Validate checks the request against its field rules.
func (r *IngestURLRequest) Validate() error {
	return validate.Struct(r)
}
