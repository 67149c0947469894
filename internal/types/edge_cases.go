// Package types provides type definitions for structured data used throughout the test-writer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// BoundaryValue describes the limits of one parameter and the points to probe.
type BoundaryValue struct {
	RequirementID string   `json:"requirement_id"`
	Parameter     string   `json:"parameter"`
	MinValue      string   `json:"min_value"`
	MaxValue      string   `json:"max_value"`
	TestPoints    []string `json:"test_points,omitempty"`
}

// ErrorCondition describes a failure scenario and how the system should react.
type ErrorCondition struct {
	RequirementID    string `json:"requirement_id"`
	Scenario         string `json:"scenario"`
	ExpectedBehavior string `json:"expected_behavior"`
	TestMethod       string `json:"test_method,omitempty"`
}

// UnusualInput describes an input no reasonable user would send on purpose.
type UnusualInput struct {
	RequirementID string `json:"requirement_id"`
	InputType     string `json:"input_type"`
	UnusualValue  string `json:"unusual_value"`
	Reason        string `json:"reason,omitempty"`
}

// PerformanceScenario describes a load or stress condition worth testing.
type PerformanceScenario struct {
	RequirementID   string `json:"requirement_id"`
	Scenario        string `json:"scenario"`
	Metric          string `json:"metric"` // response time, throughput, memory
	Target          string `json:"target,omitempty"`
	StressCondition string `json:"stress_condition,omitempty"`
}

// EdgeCaseReport is the edge case analysis stage output, grouped by the
// kind of condition.
type EdgeCaseReport struct {
	BoundaryValues       []BoundaryValue       `json:"boundary_values"`
	ErrorConditions      []ErrorCondition      `json:"error_conditions"`
	UnusualInputs        []UnusualInput        `json:"unusual_inputs"`
	PerformanceScenarios []PerformanceScenario `json:"performance_scenarios"`
}

// Count returns the total number of identified edge conditions.
func (r *EdgeCaseReport) Count() int {
	return len(r.BoundaryValues) + len(r.ErrorConditions) + len(r.UnusualInputs) + len(r.PerformanceScenarios)
}
