package agents

import (
	"context"

	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/jonathan/test-writer/internal/types"
)

// EdgeCaseAgent identifies boundary values, error conditions, unusual
// inputs and performance scenarios for the decomposed requirements.
type EdgeCaseAgent struct {
	gen generator
}

// NewEdgeCaseAgent creates the edge case analysis stage agent.
func NewEdgeCaseAgent(client llm.Client) *EdgeCaseAgent {
	return &EdgeCaseAgent{gen: newGenerator(client)}
}

// Name returns the stage this agent implements.
func (a *EdgeCaseAgent) Name() string { return pipeline.StageEdgeCase }

// Execute produces an EdgeCaseReport. An empty report is allowed; a
// trivial document may genuinely have no edge conditions worth testing.
func (a *EdgeCaseAgent) Execute(ctx context.Context, in pipeline.StageInput) (any, error) {
	analysis, ok := in.Input(pipeline.StageUnderstanding).(*types.DocumentAnalysis)
	if !ok || analysis == nil {
		return nil, pipeline.InvalidInput("edge case analysis requires the document analysis")
	}
	set, ok := in.Input(pipeline.StageDecomposition).(*types.RequirementSet)
	if !ok || set == nil {
		return nil, pipeline.InvalidInput("edge case analysis requires the requirement set")
	}

	var report types.EdgeCaseReport
	err := a.gen.generate(ctx, pipeline.StageEdgeCase, "analysis.json", "identify-edge-cases",
		map[string]string{
			"DocumentAnalysis": jsonBlock(analysis),
			"Requirements":     jsonBlock(set),
		}, llm.TierStandard, &report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}
