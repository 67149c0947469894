package server

import (
	"net/http"
	"time"
)

// AgentInfo describes one pipeline stage for the catalog endpoint.
type AgentInfo struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	Description    string   `json:"description"`
	Consumes       []string `json:"consumes"`
	Produces       string   `json:"produces"`
	ModelTier      string   `json:"model_tier,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	MaxRetries     int      `json:"max_retries"`
}

// handleListAgents returns the stage catalog in execution order, built
// from the coordinator's descriptors.
func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	descriptors := s.coordinator.Descriptors()
	catalog := make([]AgentInfo, 0, len(descriptors))
	for _, d := range descriptors {
		consumes := d.InputFields
		if consumes == nil {
			consumes = []string{}
		}
		catalog = append(catalog, AgentInfo{
			Name:           d.Name,
			DisplayName:    d.DisplayName,
			Description:    d.Description,
			Consumes:       consumes,
			Produces:       d.OutputField,
			ModelTier:      d.ModelTier,
			TimeoutSeconds: int(d.Timeout / time.Second),
			MaxRetries:     d.MaxRetries,
		})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"agents": catalog,
		"count":  len(catalog),
	})
}

// handleQuickStart returns a static usage guide for the API.
func (s *Server) handleQuickStart(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"service":     "test-writer",
		"description": "Generates structured test cases from requirement and specification documents",
		"supported_formats": []string{
			"pdf", "csv", "xls", "xlsx", "txt", "md", "html",
		},
		"steps": []map[string]string{
			{
				"step":        "1. Upload a document",
				"request":     "POST /api/v1/documents",
				"description": "multipart/form-data with a 'file' field, 10 MiB max",
			},
			{
				"step":        "2. Start a pipeline",
				"request":     "POST /api/v1/pipelines",
				"description": `JSON body {"document_id": "<id from step 1>"}`,
			},
			{
				"step":        "3. Watch progress",
				"request":     "GET /api/v1/pipelines/{id} or GET /api/v1/pipelines/{id}/stream",
				"description": "poll the status snapshot or subscribe to server-sent events",
			},
			{
				"step":        "4. Collect the test cases",
				"request":     "GET /api/v1/pipelines/{id}/results",
				"description": "full stage outputs; /download serves the final set as a file",
			},
		},
	})
}
