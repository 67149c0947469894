package agents

import (
	"context"
	"fmt"

	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/jonathan/test-writer/internal/types"
)

// WriterAgent drafts the full test case suite from the requirements,
// the edge case report and the document analysis. This is the heaviest
// generation step in the pipeline, so it runs on the advanced tier.
type WriterAgent struct {
	gen generator
}

// NewWriterAgent creates the test case writer stage agent.
func NewWriterAgent(client llm.Client) *WriterAgent {
	return &WriterAgent{gen: newGenerator(client)}
}

// Name returns the stage this agent implements.
func (a *WriterAgent) Name() string { return pipeline.StageWriter }

// Execute produces a TestSuiteDraft covering the requirement set.
func (a *WriterAgent) Execute(ctx context.Context, in pipeline.StageInput) (any, error) {
	analysis, ok := in.Input(pipeline.StageUnderstanding).(*types.DocumentAnalysis)
	if !ok || analysis == nil {
		return nil, pipeline.InvalidInput("test case writing requires the document analysis")
	}
	set, ok := in.Input(pipeline.StageDecomposition).(*types.RequirementSet)
	if !ok || set == nil {
		return nil, pipeline.InvalidInput("test case writing requires the requirement set")
	}
	report, ok := in.Input(pipeline.StageEdgeCase).(*types.EdgeCaseReport)
	if !ok || report == nil {
		return nil, pipeline.InvalidInput("test case writing requires the edge case report")
	}

	var draft types.TestSuiteDraft
	err := a.gen.generate(ctx, pipeline.StageWriter, "testcases.json", "write-test-cases",
		map[string]string{
			"DocumentAnalysis": jsonBlock(analysis),
			"Requirements":     jsonBlock(set),
			"EdgeCases":        jsonBlock(report),
		}, llm.TierAdvanced, &draft)
	if err != nil {
		return nil, err
	}
	if err := draft.Validate(); err != nil {
		return nil, pipeline.CapabilityFailed(fmt.Errorf("model produced an unusable test suite draft: %w", err))
	}
	return &draft, nil
}
