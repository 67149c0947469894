package agents

import (
	"context"
	"fmt"

	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/jonathan/test-writer/internal/types"
)

// FinalizationAgent organizes the reviewed cases into the final test
// set: an execution plan, priority and type indexes, and documentation.
type FinalizationAgent struct {
	gen generator
}

// NewFinalizationAgent creates the finalization stage agent.
func NewFinalizationAgent(client llm.Client) *FinalizationAgent {
	return &FinalizationAgent{gen: newGenerator(client)}
}

// Name returns the stage this agent implements.
func (a *FinalizationAgent) Name() string { return pipeline.StageFinalization }

// Execute produces the FinalTestSet. The organized indexes are
// recomputed from the case list afterwards; the model's own grouping
// is not trusted.
func (a *FinalizationAgent) Execute(ctx context.Context, in pipeline.StageInput) (any, error) {
	analysis, ok := in.Input(pipeline.StageUnderstanding).(*types.DocumentAnalysis)
	if !ok || analysis == nil {
		return nil, pipeline.InvalidInput("finalization requires the document analysis")
	}
	review, ok := in.Input(pipeline.StageReview).(*types.ReviewReport)
	if !ok || review == nil {
		return nil, pipeline.InvalidInput("finalization requires the review report")
	}

	var final types.FinalTestSet
	err := a.gen.generate(ctx, pipeline.StageFinalization, "testcases.json", "finalize-test-set",
		map[string]string{
			"DocumentAnalysis":  jsonBlock(analysis),
			"ReviewedTestCases": jsonBlock(review),
		}, llm.TierStandard, &final)
	if err != nil {
		return nil, err
	}
	if err := final.Validate(); err != nil {
		return nil, pipeline.CapabilityFailed(fmt.Errorf("model produced an unusable final test set: %w", err))
	}
	final.Reorganize()
	return &final, nil
}
