// Package types provides type definitions for structured data used throughout the test-writer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "fmt"

// DocumentAnalysis is the understanding stage output: what the document
// is, what it is for, and the concepts later stages reason over.
type DocumentAnalysis struct {
	DocumentType string            `json:"document_type"` // e.g. requirements, specification, user manual
	Purpose      string            `json:"purpose"`
	Domain       string            `json:"domain"`
	KeyConcepts  []string          `json:"key_concepts"`
	Terminology  map[string]string `json:"terminology,omitempty"`
	UserPersonas []string          `json:"user_personas,omitempty"`
	UseCases     []string          `json:"use_cases,omitempty"`
	Complexity   string            `json:"complexity"` // low, medium, high
	Scope        string            `json:"scope"`      // narrow, medium, broad
}

// Validate checks the analysis carries enough signal for decomposition.
func (a *DocumentAnalysis) Validate() error {
	if a.DocumentType == "" {
		return fmt.Errorf("document analysis has no document type")
	}
	if a.Purpose == "" {
		return fmt.Errorf("document analysis has no purpose")
	}
	return nil
}
