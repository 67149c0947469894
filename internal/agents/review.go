package agents

import (
	"context"
	"fmt"

	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/jonathan/test-writer/internal/types"
)

// ReviewAgent checks the drafted cases against the requirements and
// edge cases, improves weak ones, and reports what coverage is missing.
type ReviewAgent struct {
	gen generator
}

// NewReviewAgent creates the test case review stage agent.
func NewReviewAgent(client llm.Client) *ReviewAgent {
	return &ReviewAgent{gen: newGenerator(client)}
}

// Name returns the stage this agent implements.
func (a *ReviewAgent) Name() string { return pipeline.StageReview }

// Execute produces a ReviewReport with improved versions of the cases.
func (a *ReviewAgent) Execute(ctx context.Context, in pipeline.StageInput) (any, error) {
	set, ok := in.Input(pipeline.StageDecomposition).(*types.RequirementSet)
	if !ok || set == nil {
		return nil, pipeline.InvalidInput("review requires the requirement set")
	}
	report, ok := in.Input(pipeline.StageEdgeCase).(*types.EdgeCaseReport)
	if !ok || report == nil {
		return nil, pipeline.InvalidInput("review requires the edge case report")
	}
	draft, ok := in.Input(pipeline.StageWriter).(*types.TestSuiteDraft)
	if !ok || draft == nil {
		return nil, pipeline.InvalidInput("review requires the test suite draft")
	}

	var review types.ReviewReport
	err := a.gen.generate(ctx, pipeline.StageReview, "testcases.json", "review-test-cases",
		map[string]string{
			"Requirements":   jsonBlock(set),
			"EdgeCases":      jsonBlock(report),
			"DraftTestCases": jsonBlock(draft),
		}, llm.TierAdvanced, &review)
	if err != nil {
		return nil, err
	}
	if err := review.Validate(); err != nil {
		return nil, pipeline.CapabilityFailed(fmt.Errorf("model produced an unusable review: %w", err))
	}
	return &review, nil
}
