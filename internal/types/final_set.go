// Package types provides type definitions for structured data used throughout the test-writer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "fmt"

// ExecutionPhase is one ordered phase of the execution plan.
type ExecutionPhase struct {
	Phase             string   `json:"phase"` // smoke, integration, regression
	TestCases         []string `json:"test_cases"`
	EstimatedDuration string   `json:"estimated_duration,omitempty"`
	Dependencies      []string `json:"dependencies,omitempty"`
}

// ResourceRequirements lists what executing the plan needs in place.
type ResourceRequirements struct {
	TestEnvironment string   `json:"test_environment,omitempty"`
	TestData        string   `json:"test_data,omitempty"`
	Tools           []string `json:"tools,omitempty"`
}

// ExecutionPlan orders test cases into phases for execution.
type ExecutionPlan struct {
	TotalTestCases       int                  `json:"total_test_cases"`
	ExecutionPhases      []ExecutionPhase     `json:"execution_phases"`
	ResourceRequirements ResourceRequirements `json:"resource_requirements,omitempty"`
}

// OrganizedTestCases indexes test case ids along the axes executors filter by.
type OrganizedTestCases struct {
	ByPriority    map[string][]string `json:"by_priority"`
	ByType        map[string][]string `json:"by_type"`
	ByRequirement map[string][]string `json:"by_requirement"`
}

// CoverageReport summarizes how much of the document the suite covers.
type CoverageReport struct {
	RequirementsCoverage string   `json:"requirements_coverage"`
	EdgeCaseCoverage     string   `json:"edge_case_coverage,omitempty"`
	TestTypesCovered     []string `json:"test_types_covered,omitempty"`
}

// QualityMetrics grades the suite itself.
type QualityMetrics struct {
	TestCaseQuality   string `json:"test_case_quality,omitempty"`
	CompletenessScore string `json:"completeness_score,omitempty"`
	Maintainability   string `json:"maintainability,omitempty"`
}

// TestDocumentation is the stakeholder-facing write-up of the final set.
type TestDocumentation struct {
	ExecutiveSummary string         `json:"executive_summary"`
	TestStrategy     string         `json:"test_strategy,omitempty"`
	CoverageReport   CoverageReport `json:"coverage_report,omitempty"`
	QualityMetrics   QualityMetrics `json:"quality_metrics,omitempty"`
}

// FinalTestSet is the finalization stage output: the reviewed test cases
// organized for execution, with documentation.
type FinalTestSet struct {
	ExecutionPlan      ExecutionPlan      `json:"test_execution_plan"`
	OrganizedTestCases OrganizedTestCases `json:"organized_test_cases"`
	Documentation      TestDocumentation  `json:"test_documentation"`
	TestCases          []TestCase         `json:"final_test_cases"`
}

// Validate checks the final set carries at least one case.
func (s *FinalTestSet) Validate() error {
	if len(s.TestCases) == 0 {
		return fmt.Errorf("final test set has no test cases")
	}
	return nil
}

// Reorganize recomputes the organized indexes and the plan total from the
// case list. Model output groups cases itself; this makes the indexes
// trustworthy regardless of what it produced.
func (s *FinalTestSet) Reorganize() {
	byPriority := make(map[string][]string)
	byType := make(map[string][]string)
	byRequirement := make(map[string][]string)

	for i := range s.TestCases {
		tc := &s.TestCases[i]
		if tc.Priority != "" {
			byPriority[tc.Priority] = append(byPriority[tc.Priority], tc.ID)
		}
		if tc.TestType != "" {
			byType[tc.TestType] = append(byType[tc.TestType], tc.ID)
		}
		for _, reqID := range tc.RequirementIDs {
			byRequirement[reqID] = append(byRequirement[reqID], tc.ID)
		}
	}

	s.OrganizedTestCases = OrganizedTestCases{
		ByPriority:    byPriority,
		ByType:        byType,
		ByRequirement: byRequirement,
	}
	s.ExecutionPlan.TotalTestCases = len(s.TestCases)
}
