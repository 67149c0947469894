// Package types provides type definitions for structured data used throughout the test-writer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "fmt"

// FunctionalRequirement is one testable behavior extracted from a document.
type FunctionalRequirement struct {
	ID                 string   `json:"id"` // FR001, FR002, ...
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	Priority           string   `json:"priority"` // high, medium, low
	UserStory          string   `json:"user_story,omitempty"`
}

// NonFunctionalRequirement is a quality attribute the system must meet.
type NonFunctionalRequirement struct {
	ID          string   `json:"id"`   // NFR001, NFR002, ...
	Type        string   `json:"type"` // performance, security, usability, reliability
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Criteria    []string `json:"criteria,omitempty"`
	Priority    string   `json:"priority"`
}

// TestScenario sketches one scenario and the requirements it covers.
type TestScenario struct {
	Scenario            string   `json:"scenario"`
	RequirementsCovered []string `json:"requirements_covered,omitempty"`
}

// RequirementSet is the decomposition stage output: the document broken
// into functional and non-functional requirements plus scenario sketches.
type RequirementSet struct {
	Functional    []FunctionalRequirement    `json:"functional_requirements"`
	NonFunctional []NonFunctionalRequirement `json:"non_functional_requirements"`
	TestScenarios []TestScenario             `json:"test_scenarios,omitempty"`
}

// Count returns the total number of requirements of both kinds.
func (s *RequirementSet) Count() int {
	return len(s.Functional) + len(s.NonFunctional)
}

// RequirementIDs returns the ids of all requirements, functional first.
func (s *RequirementSet) RequirementIDs() []string {
	ids := make([]string, 0, s.Count())
	for _, r := range s.Functional {
		ids = append(ids, r.ID)
	}
	for _, r := range s.NonFunctional {
		ids = append(ids, r.ID)
	}
	return ids
}

// Validate checks that decomposition produced at least one identified requirement.
func (s *RequirementSet) Validate() error {
	if s.Count() == 0 {
		return fmt.Errorf("requirement set is empty")
	}
	for _, r := range s.Functional {
		if r.ID == "" {
			return fmt.Errorf("functional requirement %q has no id", r.Title)
		}
	}
	for _, r := range s.NonFunctional {
		if r.ID == "" {
			return fmt.Errorf("non-functional requirement %q has no id", r.Title)
		}
	}
	return nil
}
