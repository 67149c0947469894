package agents

import (
	"context"
	"fmt"

	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/jonathan/test-writer/internal/types"
)

// DecompositionAgent breaks the document analysis into numbered
// functional and non-functional requirements. It works from the
// analysis alone, not the raw text, so its dependency on upstream
// stages stays narrow.
type DecompositionAgent struct {
	gen generator
}

// NewDecompositionAgent creates the requirements decomposition stage agent.
func NewDecompositionAgent(client llm.Client) *DecompositionAgent {
	return &DecompositionAgent{gen: newGenerator(client)}
}

// Name returns the stage this agent implements.
func (a *DecompositionAgent) Name() string { return pipeline.StageDecomposition }

// Execute produces a RequirementSet from the document analysis.
func (a *DecompositionAgent) Execute(ctx context.Context, in pipeline.StageInput) (any, error) {
	analysis, ok := in.Input(pipeline.StageUnderstanding).(*types.DocumentAnalysis)
	if !ok || analysis == nil {
		return nil, pipeline.InvalidInput("decomposition requires the document analysis")
	}

	var set types.RequirementSet
	err := a.gen.generate(ctx, pipeline.StageDecomposition, "analysis.json", "decompose-requirements",
		map[string]string{"DocumentAnalysis": jsonBlock(analysis)}, llm.TierStandard, &set)
	if err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, pipeline.CapabilityFailed(fmt.Errorf("model produced an unusable requirement set: %w", err))
	}
	return &set, nil
}
