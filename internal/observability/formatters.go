// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/test-writer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintExtractedContent outputs a short summary of the extracted document text.
func (p *Printer) PrintExtractedContent(content *types.ExtractedContent) {
	if content == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("File:   %s\n", content.Filename))
	sb.WriteString(fmt.Sprintf("Type:   %s\n", content.ContentType))
	sb.WriteString(fmt.Sprintf("Words:  %d\n", content.WordCount))

	preview := strings.Join(strings.Fields(content.Text), " ")
	if len(preview) > 50 {
		preview = preview[:47] + "..."
	}
	if preview != "" {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%q", preview))
	}

	p.printBox("EXTRACTED CONTENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDocumentAnalysis outputs a human-readable summary of the document analysis.
func (p *Printer) PrintDocumentAnalysis(analysis *types.DocumentAnalysis) {
	if analysis == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Type:        %s\n", analysis.DocumentType))
	sb.WriteString(fmt.Sprintf("Domain:      %s\n", analysis.Domain))
	sb.WriteString(fmt.Sprintf("Complexity:  %s\n", analysis.Complexity))
	sb.WriteString("\n")

	// Key concepts
	if len(analysis.KeyConcepts) > 0 {
		sb.WriteString("Key Concepts:\n")
		count := min(len(analysis.KeyConcepts), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", analysis.KeyConcepts[i]))
		}
		if len(analysis.KeyConcepts) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(analysis.KeyConcepts)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	// Use cases
	if len(analysis.UseCases) > 0 {
		sb.WriteString("Use Cases:\n")
		count := min(len(analysis.UseCases), 3)
		for i := 0; i < count; i++ {
			uc := analysis.UseCases[i]
			if len(uc) > 50 {
				uc = uc[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", uc))
		}
		if len(analysis.UseCases) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(analysis.UseCases)-3))
		}
	}

	p.printBox("DOCUMENT ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRequirements outputs the decomposed requirements with ids and priorities.
func (p *Printer) PrintRequirements(set *types.RequirementSet) {
	if set == nil || set.Count() == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Functional: %d   Non-functional: %d\n\n", len(set.Functional), len(set.NonFunctional)))

	count := min(len(set.Functional), maxItemsToShow)
	for i := 0; i < count; i++ {
		req := set.Functional[i]
		title := req.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("%s  %s\n", req.ID, title))
		if req.Priority != "" {
			sb.WriteString(fmt.Sprintf("       [%s]\n", req.Priority))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(set.Functional) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more requirements", len(set.Functional)-maxItemsToShow))
	}

	p.printBox("DECOMPOSED REQUIREMENTS", sb.String())
}

// PrintEdgeCases outputs the edge case counts per category with sample error conditions.
func (p *Printer) PrintEdgeCases(report *types.EdgeCaseReport) {
	if report == nil || report.Count() == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Identified %d edge conditions:\n\n", report.Count()))

	sb.WriteString(fmt.Sprintf("  Boundary values:        %d\n", len(report.BoundaryValues)))
	sb.WriteString(fmt.Sprintf("  Error conditions:       %d\n", len(report.ErrorConditions)))
	sb.WriteString(fmt.Sprintf("  Unusual inputs:         %d\n", len(report.UnusualInputs)))
	sb.WriteString(fmt.Sprintf("  Performance scenarios:  %d\n", len(report.PerformanceScenarios)))

	if len(report.ErrorConditions) > 0 {
		sb.WriteString("\nError Conditions:\n")
		count := min(len(report.ErrorConditions), 3)
		for i := 0; i < count; i++ {
			scenario := report.ErrorConditions[i].Scenario
			if len(scenario) > 50 {
				scenario = scenario[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", scenario))
		}
		if len(report.ErrorConditions) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.ErrorConditions)-3))
		}
	}

	p.printBox("EDGE CASE ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTestSuite outputs the drafted test cases before review.
func (p *Printer) PrintTestSuite(draft *types.TestSuiteDraft) {
	if draft == nil || len(draft.TestCases) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Drafted %d test cases:\n\n", len(draft.TestCases)))

	count := min(len(draft.TestCases), maxItemsToShow)
	for i := 0; i < count; i++ {
		tc := draft.TestCases[i]
		title := tc.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("%s  %s\n", tc.ID, title))

		tags := []string{}
		if tc.Priority != "" {
			tags = append(tags, tc.Priority)
		}
		if tc.TestType != "" {
			tags = append(tags, tc.TestType)
		}
		if len(tags) > 0 {
			sb.WriteString(fmt.Sprintf("       [%s]\n", strings.Join(tags, " ")))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(draft.TestCases) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more cases", len(draft.TestCases)-maxItemsToShow))
	}

	p.printBox("DRAFTED TEST CASES (before review)", sb.String())
}

// PrintReview outputs the review findings and improvements.
func (p *Printer) PrintReview(report *types.ReviewReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Test cases reviewed:  %d\n", report.Summary.TotalTestCases))
	if report.Summary.CoverageScore != "" {
		sb.WriteString(fmt.Sprintf("Coverage score:       %s\n", report.Summary.CoverageScore))
	}
	if len(report.MissingRequirements) > 0 {
		sb.WriteString(fmt.Sprintf("Missing coverage:     %d requirements\n", len(report.MissingRequirements)))
	}
	sb.WriteString("\n")

	if len(report.Summary.CriticalIssues) > 0 {
		sb.WriteString("Critical Issues:\n")
		count := min(len(report.Summary.CriticalIssues), 3)
		for i := 0; i < count; i++ {
			issue := report.Summary.CriticalIssues[i]
			if len(issue) > 50 {
				issue = issue[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  ⚠ %s\n", issue))
		}
		if len(report.Summary.CriticalIssues) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Summary.CriticalIssues)-3))
		}
		sb.WriteString("\n")
	}

	if len(report.Summary.ImprovementsMade) > 0 {
		sb.WriteString("Improvements:\n")
		count := min(len(report.Summary.ImprovementsMade), 3)
		for i := 0; i < count; i++ {
			improvement := report.Summary.ImprovementsMade[i]
			if len(improvement) > 50 {
				improvement = improvement[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", improvement))
		}
		if len(report.Summary.ImprovementsMade) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Summary.ImprovementsMade)-3))
		}
	}

	p.printBox("REVIEW REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFinalSet outputs the execution plan and coverage of the final test set.
func (p *Printer) PrintFinalSet(set *types.FinalTestSet) {
	if set == nil || len(set.TestCases) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total test cases:  %d\n", len(set.TestCases)))
	if set.Documentation.CoverageReport.RequirementsCoverage != "" {
		sb.WriteString(fmt.Sprintf("Coverage:          %s\n", set.Documentation.CoverageReport.RequirementsCoverage))
	}
	sb.WriteString("\n")

	if len(set.ExecutionPlan.ExecutionPhases) > 0 {
		sb.WriteString("Execution Phases:\n")
		count := min(len(set.ExecutionPlan.ExecutionPhases), maxItemsToShow)
		for i := 0; i < count; i++ {
			phase := set.ExecutionPlan.ExecutionPhases[i]
			sb.WriteString(fmt.Sprintf("  • %s (%d cases)\n", phase.Phase, len(phase.TestCases)))
		}
		if len(set.ExecutionPlan.ExecutionPhases) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(set.ExecutionPlan.ExecutionPhases)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(set.OrganizedTestCases.ByPriority) > 0 {
		sb.WriteString("By Priority:\n")
		for _, priority := range []string{"critical", "high", "medium", "low"} {
			if ids, ok := set.OrganizedTestCases.ByPriority[priority]; ok {
				sb.WriteString(fmt.Sprintf("  %-9s %d\n", priority, len(ids)))
			}
		}
	}

	p.printBox("FINAL TEST SET", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPipelineStatus prints a one-line box with the terminal pipeline state.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintPipelineStatus(status string) {
	marker := "✅"
	if status != "completed" {
		marker = "⚠"
	}
	label := fmt.Sprintf("%s PIPELINE %s", marker, strings.ToUpper(status))
	fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, label)
	fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
}
