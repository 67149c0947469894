package agents

import (
	"context"
	"fmt"

	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/jonathan/test-writer/internal/types"
)

// UnderstandingAgent analyzes the extracted text: what kind of document
// it is, what it is for, and the concepts later stages reason over.
type UnderstandingAgent struct {
	gen generator
}

// NewUnderstandingAgent creates the document understanding stage agent.
func NewUnderstandingAgent(client llm.Client) *UnderstandingAgent {
	return &UnderstandingAgent{gen: newGenerator(client)}
}

// Name returns the stage this agent implements.
func (a *UnderstandingAgent) Name() string { return pipeline.StageUnderstanding }

// Execute produces a DocumentAnalysis from the extracted text.
func (a *UnderstandingAgent) Execute(ctx context.Context, in pipeline.StageInput) (any, error) {
	content, ok := in.Input(pipeline.StageExtraction).(*types.ExtractedContent)
	if !ok || content == nil || content.Text == "" {
		return nil, pipeline.InvalidInput("understanding requires extracted document text")
	}

	var analysis types.DocumentAnalysis
	err := a.gen.generate(ctx, pipeline.StageUnderstanding, "analysis.json", "analyze-document",
		map[string]string{"DocumentContent": content.Text}, llm.TierStandard, &analysis)
	if err != nil {
		return nil, err
	}
	if err := analysis.Validate(); err != nil {
		return nil, pipeline.CapabilityFailed(fmt.Errorf("model produced an unusable analysis: %w", err))
	}
	return &analysis, nil
}
