package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/test-writer/internal/db"
	"github.com/jonathan/test-writer/internal/pipeline"
	"github.com/jonathan/test-writer/internal/types"
)

// StartPipelineResponse is the accepted-for-processing reply.
type StartPipelineResponse struct {
	PipelineID uuid.UUID       `json:"pipeline_id"`
	DocumentID uuid.UUID       `json:"document_id"`
	Status     pipeline.Status `json:"status"`
}

// handleStartPipeline registers a new pipeline for a stored document and
// schedules its execution. The pipeline runs in the background; the
// response only confirms admission.
func (s *Server) handleStartPipeline(w http.ResponseWriter, r *http.Request) {
	var req types.StartPipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, firstValidationError(err))
		return
	}

	docID, err := uuid.Parse(req.DocumentID)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid document ID format")
		return
	}

	id, err := s.coordinator.Start(r.Context(), docID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	log.Printf("Pipeline %s started for document %s", id, docID)
	s.jsonResponse(w, http.StatusAccepted, StartPipelineResponse{
		PipelineID: id,
		DocumentID: docID,
		Status:     pipeline.StatusPending,
	})
}

// handleListPipelines lists active pipeline ids. With ?all=true and a
// database attached, persisted run history is included.
func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	active := s.coordinator.ListActive()
	if active == nil {
		active = []uuid.UUID{}
	}
	resp := map[string]any{
		"active": active,
		"count":  len(active),
	}

	if r.URL.Query().Get("all") == "true" && s.database != nil {
		runs, err := s.database.ListPipelineRuns(r.Context(), db.RunFilters{
			Status: r.URL.Query().Get("status"),
		})
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
			return
		}
		if runs == nil {
			runs = []db.PipelineRun{}
		}
		resp["history"] = runs
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// handleGetPipeline returns the status snapshot of a pipeline. Pipelines
// cleaned out of the registry are looked up in persisted run history.
func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid pipeline ID format")
		return
	}

	snap, err := s.coordinator.GetStatus(id)
	if err == nil {
		s.jsonResponse(w, http.StatusOK, snap)
		return
	}

	if s.database != nil {
		run, dbErr := s.database.GetPipelineRun(r.Context(), id)
		if dbErr != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Database error: "+dbErr.Error())
			return
		}
		if run != nil {
			s.jsonResponse(w, http.StatusOK, run)
			return
		}
	}

	s.errorResponse(w, HTTPStatus(err), err.Error())
}

// handleGetPipelineResults returns the stage outputs of a completed
// pipeline. For pipelines no longer in the registry the persisted final
// artifact is served instead.
func (s *Server) handleGetPipelineResults(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid pipeline ID format")
		return
	}

	results, err := s.coordinator.GetResults(id)
	if err == nil {
		s.jsonResponse(w, http.StatusOK, results)
		return
	}

	if _, gone := err.(*pipeline.ErrPipelineNotFound); gone && s.database != nil {
		artifact, dbErr := s.database.GetTestArtifactByPipeline(r.Context(), id)
		if dbErr != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Database error: "+dbErr.Error())
			return
		}
		if artifact != nil {
			s.jsonResponse(w, http.StatusOK, pipeline.Results{
				PipelineID:  artifact.PipelineID,
				DocumentID:  artifact.DocumentID,
				Status:      pipeline.StatusCompleted,
				Final:       json.RawMessage(artifact.Content),
				CompletedAt: artifact.CreatedAt,
			})
			return
		}
	}

	s.errorResponse(w, HTTPStatus(err), err.Error())
}

// handleStreamPipeline streams progress events over SSE until the
// pipeline reaches a terminal status or the client disconnects.
func (s *Server) handleStreamPipeline(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid pipeline ID format")
		return
	}

	events, release, err := s.coordinator.Subscribe(id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	defer release()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Open with the current snapshot so late subscribers see progress
	// already made.
	if snap, serr := s.coordinator.GetStatus(id); serr == nil {
		if werr := sse.WriteEvent("status", snap); werr != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				snap, serr := s.coordinator.GetStatus(id)
				if serr != nil {
					sse.WriteError("pipeline state no longer available")
					return
				}
				if snap.Error != nil {
					sse.WriteError(snap.Error.Message)
				}
				sse.WriteComplete(snap.PipelineID.String(), string(snap.Status))
				return
			}
			if werr := sse.WriteEvent("progress", ev); werr != nil {
				log.Printf("Error writing SSE event: %v", werr)
				return
			}
		}
	}
}

// handleDownloadResults serves the final test set as a JSON attachment.
func (s *Server) handleDownloadResults(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid pipeline ID format")
		return
	}

	var payload []byte
	results, err := s.coordinator.GetResults(id)
	if err == nil {
		payload, err = json.MarshalIndent(results.Final, "", "  ")
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Failed to encode results: "+err.Error())
			return
		}
	} else {
		if _, gone := err.(*pipeline.ErrPipelineNotFound); gone && s.database != nil {
			artifact, dbErr := s.database.GetTestArtifactByPipeline(r.Context(), id)
			if dbErr == nil && artifact != nil {
				var buf bytes.Buffer
				if json.Indent(&buf, artifact.Content, "", "  ") == nil {
					payload = buf.Bytes()
				} else {
					payload = artifact.Content
				}
			}
		}
		if payload == nil {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("test_cases_%s.json", id)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		log.Printf("Error writing download response: %v", err)
	}
}

// handleCancelPipeline requests cooperative cancellation. The pipeline
// stops at the next stage boundary.
func (s *Server) handleCancelPipeline(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid pipeline ID format")
		return
	}

	if err := s.coordinator.Cancel(id); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"pipeline_id": id.String(),
		"status":      "cancel_requested",
	})
}

// handleCleanupPipeline removes a terminal pipeline from the registry.
func (s *Server) handleCleanupPipeline(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid pipeline ID format")
		return
	}

	if err := s.coordinator.Cleanup(id); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"pipeline_id": id.String(),
		"status":      "removed",
	})
}
