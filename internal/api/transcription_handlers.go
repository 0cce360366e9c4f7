package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelscribe/reelscribe/internal/pipeline"
	"github.com/reelscribe/reelscribe/internal/render"
	"github.com/reelscribe/reelscribe/internal/transcription"
	"github.com/reelscribe/reelscribe/pkg/logger"
)

// HandleWebSocket handles WebSocket connections
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("WebSocket connection request received")

	h.wsServer.HandleConnection(w, r)
}

// submitRequest is the JSON body accepted by SubmitTranscription
type submitRequest struct {
	URL               string `json:"url"`
	Style             string `json:"style"`
	Format            string `json:"format"`
	IncludeTimestamps bool   `json:"include_timestamps"`
}

// SubmitTranscription queues a new transcription job
func (h *Handler) SubmitTranscription(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	style, err := transcription.ParseStyle(body.Style)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	format, err := render.ParseFormat(body.Format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.pipelineService.Submit(pipeline.Request{
		URL:               body.URL,
		Style:             style,
		Format:            format,
		IncludeTimestamps: body.IncludeTimestamps,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) {
			http.Error(w, "Job queue is full", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// GetJobs returns all known jobs in submission order
func (h *Handler) GetJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.pipelineService.Jobs()

	response := map[string]any{
		"timestamp": time.Now(),
		"count":     len(jobs),
		"jobs":      jobs,
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetJobByID returns a single job by its ID
func (h *Handler) GetJobByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, ok := h.pipelineService.Job(id)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// GetAllTranscriptions returns stored transcriptions with pagination
func (h *Handler) GetAllTranscriptions(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	transcriptions, err := h.transcriptionStorage.GetTranscriptions(limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve transcriptions", logger.Error(err))
		http.Error(w, "Failed to retrieve transcriptions", http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"timestamp":      time.Now(),
		"count":          len(transcriptions),
		"transcriptions": transcriptions,
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetTranscriptionByJobID returns the stored transcription for a job
func (h *Handler) GetTranscriptionByJobID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.transcriptionStorage.GetTranscriptionByJobID(id)
	if err != nil {
		h.logger.Error("Failed to retrieve transcription", logger.Error(err))
		http.Error(w, "Failed to retrieve transcription", http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "Transcription not found", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// GetTranscriptionsBySource returns prior transcriptions of a source hash
func (h *Handler) GetTranscriptionsBySource(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	limit, offset := parsePaginationParams(r)

	transcriptions, err := h.transcriptionStorage.GetTranscriptionsBySourceHash(hash, limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve transcriptions by source", logger.Error(err))
		http.Error(w, "Failed to retrieve transcriptions", http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"timestamp":      time.Now(),
		"source_hash":    hash,
		"count":          len(transcriptions),
		"transcriptions": transcriptions,
	}

	WriteJSON(w, http.StatusOK, response)
}

// Helper functions
func parsePaginationParams(r *http.Request) (int, int) {
	limit := 100 // Default limit
	offset := 0  // Default offset

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}
