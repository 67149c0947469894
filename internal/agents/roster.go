package agents

import (
	"github.com/jonathan/test-writer/internal/extraction"
	"github.com/jonathan/test-writer/internal/llm"
	"github.com/jonathan/test-writer/internal/pipeline"
)

// Roster assembles the seven stage agents in canonical order, ready to
// hand to the coordinator.
func Roster(client llm.Client, extractor *extraction.Extractor, docs DocumentStore) []pipeline.Agent {
	return []pipeline.Agent{
		NewExtractionAgent(docs, extractor),
		NewUnderstandingAgent(client),
		NewDecompositionAgent(client),
		NewEdgeCaseAgent(client),
		NewWriterAgent(client),
		NewReviewAgent(client),
		NewFinalizationAgent(client),
	}
}
