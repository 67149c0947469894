// Package types provides type definitions for structured data used throughout the test-writer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "fmt"

// ReviewSummary tallies the outcome of a review pass.
type ReviewSummary struct {
	TotalTestCases   int      `json:"total_test_cases"`
	CriticalIssues   []string `json:"critical_issues,omitempty"`
	ImprovementsMade []string `json:"improvements_made,omitempty"`
	CoverageScore    string   `json:"coverage_score,omitempty"`
}

// ReviewReport is the review stage output: improved versions of the
// drafted cases plus what the reviewer found missing.
type ReviewReport struct {
	Summary                   ReviewSummary `json:"review_summary"`
	ImprovedTestCases         []TestCase    `json:"improved_test_cases"`
	MissingRequirements       []string      `json:"missing_requirements,omitempty"`
	AdditionalRecommendations []string      `json:"additional_recommendations,omitempty"`
}

// Validate checks the review kept at least one case.
func (r *ReviewReport) Validate() error {
	if len(r.ImprovedTestCases) == 0 {
		return fmt.Errorf("review report has no test cases")
	}
	for i := range r.ImprovedTestCases {
		if err := r.ImprovedTestCases[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
