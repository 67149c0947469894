// Package agents implements the seven pipeline stages as LLM-backed
// processing units. Each agent projects its declared inputs out of the
// stage input, builds a prompt from an embedded template, and validates
// the model's JSON against the stage schema before returning a typed
// output. Agents classify their own failures; retry decisions belong to
// the coordinator.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/jonathan/test-writer/internal/prompts"
	"github.com/jonathan/test-writer/internal/schemas"
)

// generator is the shared prompt-generate-validate-parse loop behind
// every model-backed stage.
type generator struct {
	client    llm.Client
	validator *schemas.StageValidator
}

func newGenerator(client llm.Client) generator {
	return generator{client: client, validator: schemas.NewStageValidator()}
}

// generate renders the prompt template with data, asks the model for
// JSON at the given tier, checks the response against the stage schema,
// and unmarshals it into out.
func (g generator) generate(ctx context.Context, stage, promptFile, promptKey string, data map[string]string, tier llm.ModelTier, out any) error {
	template := prompts.MustGet(promptFile, promptKey)
	prompt := prompts.Format(template, data)

	raw, err := g.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return classifyModelError(err)
	}
	raw = llm.CleanJSONBlock(raw)
	if raw == "" {
		return pipeline.CapabilityFailed(fmt.Errorf("model returned empty %s output", stage))
	}

	if err := g.validator.ValidateStageJSON(stage, raw); err != nil {
		return pipeline.CapabilityFailed(fmt.Errorf("%s output rejected by schema: %w", stage, err))
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return pipeline.CapabilityFailed(fmt.Errorf("failed to parse %s output: %w", stage, err))
	}
	return nil
}

// classifyModelError maps a model call error onto the failure taxonomy.
// Transport-level failures are unavailability, deadline hits are
// timeouts, everything else is a capability error.
func classifyModelError(err error) *pipeline.StageFailure {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return pipeline.Timeout(err)
	case errors.Is(err, context.Canceled):
		return pipeline.Unavailable(err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return pipeline.Unavailable(err)
	}
	return pipeline.CapabilityFailed(err)
}

// jsonBlock renders an upstream stage output as indented JSON for
// embedding in a prompt.
func jsonBlock(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}
