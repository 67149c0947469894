package schemas

import (
	"embed"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// stageSchemaFiles maps a pipeline stage to the schema its output must satisfy.
var stageSchemaFiles = map[string]string{
	"extraction":    "extracted_content.schema.json",
	"understanding": "document_analysis.schema.json",
	"decomposition": "requirement_set.schema.json",
	"edge_case":     "edge_case_report.schema.json",
	"writer":        "test_suite_draft.schema.json",
	"review":        "review_report.schema.json",
	"finalization":  "final_test_set.schema.json",
}

// compiled caches compiled schemas so each is parsed once
var (
	compiled  = make(map[string]*gojsonschema.Schema)
	compileMu sync.RWMutex
)

// StageValidator validates stage outputs against their embedded JSON Schemas.
// It implements the coordinator's boundary validation hook.
type StageValidator struct{}

// NewStageValidator returns a validator over the embedded stage schemas.
func NewStageValidator() *StageValidator {
	return &StageValidator{}
}

// ValidateStageOutput checks output against the schema registered for stage.
// Stages without a registered schema pass unchecked.
func (v *StageValidator) ValidateStageOutput(stage string, output any) error {
	schema, err := compiledSchema(stage)
	if err != nil {
		return err
	}
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(output))
	if err != nil {
		return fmt.Errorf("failed to validate %s output: %w", stage, err)
	}

	return resultError(result)
}

// ValidateStageJSON checks raw JSON against the schema registered for stage.
// Agents use this on model responses before unmarshalling into typed outputs.
func (v *StageValidator) ValidateStageJSON(stage, jsonContent string) error {
	schema, err := compiledSchema(stage)
	if err != nil {
		return err
	}
	if schema == nil {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(jsonContent))
	if err != nil {
		return fmt.Errorf("failed to validate %s output: %w", stage, err)
	}

	return resultError(result)
}

// Stages returns the stage names that have a registered schema.
func (v *StageValidator) Stages() []string {
	stages := make([]string, 0, len(stageSchemaFiles))
	for stage := range stageSchemaFiles {
		stages = append(stages, stage)
	}
	return stages
}

// compiledSchema returns the compiled schema for a stage, or nil when the
// stage has none registered.
func compiledSchema(stage string) (*gojsonschema.Schema, error) {
	filename, ok := stageSchemaFiles[stage]
	if !ok {
		return nil, nil
	}

	compileMu.RLock()
	if schema, exists := compiled[filename]; exists {
		compileMu.RUnlock()
		return schema, nil
	}
	compileMu.RUnlock()

	data, err := schemaFiles.ReadFile(filename)
	if err != nil {
		return nil, &SchemaLoadError{Path: filename, Message: "schema file not embedded", Cause: err}
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &SchemaLoadError{Path: filename, Message: "schema failed to compile", Cause: err}
	}

	compileMu.Lock()
	compiled[filename] = schema
	compileMu.Unlock()

	return schema, nil
}
