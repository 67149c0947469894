package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/jonathan/test-writer/internal/types"
)

func TestWriterAgent_Success(t *testing.T) {
	var gotPrompt string
	var gotTier llm.ModelTier
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			gotPrompt = prompt
			gotTier = tier
			return `{
				"test_cases": [
					{
						"id": "TC001",
						"title": "Add a single item to the cart",
						"description": "Verifies the basic add-to-cart flow",
						"requirement_ids": ["FR001"],
						"priority": "high",
						"test_type": "functional",
						"preconditions": ["Shopper is signed in"],
						"test_steps": [
							{"step": 1, "action": "Add the item", "expected_result": "Cart shows one item"}
						],
						"test_data": {"input_data": "SKU-123", "expected_output": "cart size 1"}
					}
				],
				"test_data_requirements": [
					{"data_type": "product catalog", "specifications": "one in-stock SKU"}
				]
			}`, nil
		},
	}
	agent := NewWriterAgent(client)
	assert.Equal(t, pipeline.StageWriter, agent.Name())

	out, err := agent.Execute(context.Background(), stageInput(map[string]any{
		pipeline.StageUnderstanding: analysisFixture(),
		pipeline.StageDecomposition: requirementsFixture(),
		pipeline.StageEdgeCase:      edgeCasesFixture(),
	}))
	require.NoError(t, err)

	draft, ok := out.(*types.TestSuiteDraft)
	require.True(t, ok)
	require.Len(t, draft.TestCases, 1)
	assert.Equal(t, "TC001", draft.TestCases[0].ID)
	require.NoError(t, draft.Validate())

	assert.Equal(t, llm.TierAdvanced, gotTier)
	assert.Contains(t, gotPrompt, "Add item to cart")
	assert.Contains(t, gotPrompt, "payment declined")
}

func TestWriterAgent_MissingInputs(t *testing.T) {
	agent := NewWriterAgent(&MockLLMClient{})

	_, err := agent.Execute(context.Background(), stageInput(map[string]any{
		pipeline.StageUnderstanding: analysisFixture(),
		pipeline.StageDecomposition: requirementsFixture(),
	}))
	requireFailureCause(t, err, pipeline.CauseInputInvalid)
}

func TestWriterAgent_EmptySuiteRejected(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return `{"test_cases": []}`, nil
		},
	}
	agent := NewWriterAgent(client)

	_, err := agent.Execute(context.Background(), stageInput(map[string]any{
		pipeline.StageUnderstanding: analysisFixture(),
		pipeline.StageDecomposition: requirementsFixture(),
		pipeline.StageEdgeCase:      edgeCasesFixture(),
	}))
	requireFailureCause(t, err, pipeline.CauseCapabilityError)
}

func TestWriterAgent_StepsMissingAction(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return `{"test_cases": [{"id": "TC001", "title": "t", "test_steps": [{"step": 1}]}]}`, nil
		},
	}
	agent := NewWriterAgent(client)

	_, err := agent.Execute(context.Background(), stageInput(map[string]any{
		pipeline.StageUnderstanding: analysisFixture(),
		pipeline.StageDecomposition: requirementsFixture(),
		pipeline.StageEdgeCase:      edgeCasesFixture(),
	}))
	failure := requireFailureCause(t, err, pipeline.CauseCapabilityError)
	assert.Contains(t, failure.Message, "schema")
}
