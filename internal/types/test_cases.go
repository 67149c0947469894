// Package types provides type definitions for structured data used throughout the test-writer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "fmt"

// TestStep is one numbered action inside a test case.
type TestStep struct {
	Step           int    `json:"step"`
	Action         string `json:"action"`
	ExpectedResult string `json:"expected_result"`
}

// TestData pairs the input a test case feeds in with the output it expects.
type TestData struct {
	InputData      string `json:"input_data,omitempty"`
	ExpectedOutput string `json:"expected_output,omitempty"`
}

// TestCase is a single executable test case.
type TestCase struct {
	ID                 string     `json:"id"` // TC001, TC002, ...
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	RequirementIDs     []string   `json:"requirement_ids,omitempty"`
	Priority           string     `json:"priority"`  // critical, high, medium, low
	TestType           string     `json:"test_type"` // functional, integration, performance, security
	Preconditions      []string   `json:"preconditions,omitempty"`
	TestSteps          []TestStep `json:"test_steps"`
	TestData           TestData   `json:"test_data,omitempty"`
	AcceptanceCriteria []string   `json:"acceptance_criteria,omitempty"`
	EdgeCaseCovered    string     `json:"edge_case_covered,omitempty"`
	ReviewNotes        string     `json:"review_notes,omitempty"`
	ExecutionNotes     string     `json:"execution_notes,omitempty"`
}

// Validate checks the case is executable: identified, titled, with at
// least one step.
func (c *TestCase) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("test case has no id")
	}
	if c.Title == "" {
		return fmt.Errorf("test case %s has no title", c.ID)
	}
	if len(c.TestSteps) == 0 {
		return fmt.Errorf("test case %s has no steps", c.ID)
	}
	return nil
}

// TestDataRequirement describes test data the suite needs prepared.
type TestDataRequirement struct {
	DataType       string   `json:"data_type"`
	Specifications string   `json:"specifications,omitempty"`
	Examples       []string `json:"examples,omitempty"`
}

// TestSuiteDraft is the writer stage output: the first full set of test
// cases before review.
type TestSuiteDraft struct {
	TestCases            []TestCase            `json:"test_cases"`
	TestDataRequirements []TestDataRequirement `json:"test_data_requirements,omitempty"`
}

// Validate checks that the writer produced at least one valid case.
func (d *TestSuiteDraft) Validate() error {
	if len(d.TestCases) == 0 {
		return fmt.Errorf("test suite draft is empty")
	}
	for i := range d.TestCases {
		if err := d.TestCases[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
