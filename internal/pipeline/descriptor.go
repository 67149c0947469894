package pipeline

import (
	"fmt"
	"time"
)

// Canonical stage names, in execution order.
const (
	StageExtraction    = "extraction"
	StageUnderstanding = "understanding"
	StageDecomposition = "decomposition"
	StageEdgeCase      = "edge_case"
	StageWriter        = "writer"
	StageReview        = "review"
	StageFinalization  = "finalization"
)

// StageOrder returns the canonical stage sequence. The returned slice is
// a copy; callers may not reorder the pipeline.
func StageOrder() []string {
	return []string{
		StageExtraction,
		StageUnderstanding,
		StageDecomposition,
		StageEdgeCase,
		StageWriter,
		StageReview,
		StageFinalization,
	}
}

// AgentDescriptor describes one stage of the pipeline: the upstream stage
// outputs it reads, the output field it writes, and its execution policy.
// Descriptors are constructed once at process start and shared read-only
// across all pipeline runs.
type AgentDescriptor struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name"`
	Description string        `json:"description"`
	InputFields []string      `json:"input_fields"`
	OutputField string        `json:"output_field"`
	Timeout     time.Duration `json:"timeout"`
	MaxRetries  int           `json:"max_retries"`
	// ModelTier is presentation metadata for the agents catalog; the
	// agent implementation picks the tier it actually calls.
	ModelTier string `json:"model_tier,omitempty"`
}

// DependencyError indicates a descriptor declares an input field that is
// not produced by an earlier stage.
type DependencyError struct {
	Stage   string
	Missing string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s requires %q which no earlier stage produces", e.Stage, e.Missing)
}

// DefaultDescriptors returns the canonical 7-stage descriptor set. The
// input fields encode each stage's data dependencies; a stage only ever
// sees the outputs it declares.
func DefaultDescriptors() []AgentDescriptor {
	return []AgentDescriptor{
		{
			Name:        StageExtraction,
			DisplayName: "Text Extraction",
			Description: "Extracts and normalizes text from the uploaded document",
			InputFields: nil,
			OutputField: StageExtraction,
			Timeout:     2 * time.Minute,
			MaxRetries:  2,
			ModelTier:   "lite",
		},
		{
			Name:        StageUnderstanding,
			DisplayName: "Document Understanding",
			Description: "Analyzes document structure, features, roles and business rules",
			InputFields: []string{StageExtraction},
			OutputField: StageUnderstanding,
			Timeout:     90 * time.Second,
			MaxRetries:  2,
			ModelTier:   "standard",
		},
		{
			Name:        StageDecomposition,
			DisplayName: "Requirements Decomposition",
			Description: "Breaks the document analysis into testable requirements",
			InputFields: []string{StageUnderstanding},
			OutputField: StageDecomposition,
			Timeout:     90 * time.Second,
			MaxRetries:  2,
			ModelTier:   "standard",
		},
		{
			Name:        StageEdgeCase,
			DisplayName: "Edge Case Analysis",
			Description: "Identifies boundary conditions, error scenarios and unusual usage",
			InputFields: []string{StageUnderstanding, StageDecomposition},
			OutputField: StageEdgeCase,
			Timeout:     90 * time.Second,
			MaxRetries:  2,
			ModelTier:   "standard",
		},
		{
			Name:        StageWriter,
			DisplayName: "Test Case Writer",
			Description: "Writes structured test cases covering requirements and edge cases",
			InputFields: []string{StageUnderstanding, StageDecomposition, StageEdgeCase},
			OutputField: StageWriter,
			Timeout:     3 * time.Minute,
			MaxRetries:  2,
			ModelTier:   "advanced",
		},
		{
			Name:        StageReview,
			DisplayName: "Test Case Review",
			Description: "Reviews test case quality and proposes improved versions",
			InputFields: []string{StageDecomposition, StageEdgeCase, StageWriter},
			OutputField: StageReview,
			Timeout:     2 * time.Minute,
			MaxRetries:  2,
			ModelTier:   "advanced",
		},
		{
			Name:        StageFinalization,
			DisplayName: "Finalization",
			Description: "Assembles the final organized test case set with an execution plan",
			InputFields: []string{StageUnderstanding, StageReview},
			OutputField: StageFinalization,
			Timeout:     90 * time.Second,
			MaxRetries:  2,
			ModelTier:   "standard",
		},
	}
}

// ValidateDescriptors checks that stage names are unique, output fields
// match stage names, and every input field references a strictly earlier
// stage.
func ValidateDescriptors(descriptors []AgentDescriptor) error {
	if len(descriptors) == 0 {
		return fmt.Errorf("no stage descriptors configured")
	}
	seen := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if d.Name == "" {
			return fmt.Errorf("stage descriptor with empty name")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate stage descriptor: %s", d.Name)
		}
		if d.OutputField != d.Name {
			return fmt.Errorf("stage %s writes %q: output field must match the stage name", d.Name, d.OutputField)
		}
		if d.Timeout <= 0 {
			return fmt.Errorf("stage %s has no timeout", d.Name)
		}
		if d.MaxRetries < 0 {
			return fmt.Errorf("stage %s has negative retry budget", d.Name)
		}
		for _, f := range d.InputFields {
			if !seen[f] {
				return &DependencyError{Stage: d.Name, Missing: f}
			}
		}
		seen[d.Name] = true
	}
	return nil
}
