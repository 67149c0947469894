// Package types provides type definitions for structured data used throughout the test writer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"

	"github.com/google/uuid"
)

// ExtractedContent is the extraction stage output: the normalized text of
// one stored document.
type ExtractedContent struct {
	DocumentID  uuid.UUID `json:"document_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Text        string    `json:"text"`
	WordCount   int       `json:"word_count"`
}

// Validate checks that the extraction produced usable text.
func (c *ExtractedContent) Validate() error {
	if c.Text == "" {
		return fmt.Errorf("extracted content has no text")
	}
	if c.DocumentID == uuid.Nil {
		return fmt.Errorf("extracted content has no document id")
	}
	return nil
}
