package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/jonathan/test-writer/internal/types"
)

func TestUnderstandingAgent_Success(t *testing.T) {
	var gotPrompt string
	var gotTier llm.ModelTier
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			gotPrompt = prompt
			gotTier = tier
			return `{"document_type": "requirements", "purpose": "Defines the checkout flow", "domain": "e-commerce", "key_concepts": ["cart"], "complexity": "medium", "scope": "narrow"}`, nil
		},
	}
	agent := NewUnderstandingAgent(client)
	assert.Equal(t, pipeline.StageUnderstanding, agent.Name())

	out, err := agent.Execute(context.Background(), stageInput(map[string]any{
		pipeline.StageExtraction: &types.ExtractedContent{
			DocumentID: uuid.New(),
			Text:       "The system shall support checkout.",
		},
	}))
	require.NoError(t, err)

	analysis, ok := out.(*types.DocumentAnalysis)
	require.True(t, ok)
	assert.Equal(t, "requirements", analysis.DocumentType)
	assert.Equal(t, "Defines the checkout flow", analysis.Purpose)

	assert.Equal(t, llm.TierStandard, gotTier)
	assert.Contains(t, gotPrompt, "The system shall support checkout.")
}

func TestUnderstandingAgent_MissingInput(t *testing.T) {
	agent := NewUnderstandingAgent(&MockLLMClient{})

	_, err := agent.Execute(context.Background(), stageInput(nil))
	requireFailureCause(t, err, pipeline.CauseInputInvalid)
}

func TestUnderstandingAgent_EmptyText(t *testing.T) {
	agent := NewUnderstandingAgent(&MockLLMClient{})

	_, err := agent.Execute(context.Background(), stageInput(map[string]any{
		pipeline.StageExtraction: &types.ExtractedContent{DocumentID: uuid.New()},
	}))
	requireFailureCause(t, err, pipeline.CauseInputInvalid)
}

func TestUnderstandingAgent_SchemaRejectsResponse(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return `{"purpose": "missing the document type"}`, nil
		},
	}
	agent := NewUnderstandingAgent(client)

	_, err := agent.Execute(context.Background(), stageInput(map[string]any{
		pipeline.StageExtraction: &types.ExtractedContent{DocumentID: uuid.New(), Text: "some text"},
	}))
	failure := requireFailureCause(t, err, pipeline.CauseCapabilityError)
	assert.Contains(t, failure.Message, "schema")
}

func TestUnderstandingAgent_ModelError(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errors.New("no candidates in response")
		},
	}
	agent := NewUnderstandingAgent(client)

	_, err := agent.Execute(context.Background(), stageInput(map[string]any{
		pipeline.StageExtraction: &types.ExtractedContent{DocumentID: uuid.New(), Text: "some text"},
	}))
	failure := requireFailureCause(t, err, pipeline.CauseCapabilityError)
	assert.True(t, failure.Cause.Retriable())
}
