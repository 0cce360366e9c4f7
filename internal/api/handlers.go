package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/reelscribe/reelscribe/internal/config"
	"github.com/reelscribe/reelscribe/internal/pipeline"
	"github.com/reelscribe/reelscribe/internal/storage/sqlite"
	"github.com/reelscribe/reelscribe/internal/websocket"
	"github.com/reelscribe/reelscribe/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	pipelineService      *pipeline.Service
	config               *config.Config
	logger               *logger.Logger
	wsServer             *websocket.Server
	transcriptionStorage *sqlite.TranscriptionStorage
}

// NewHandler creates a new API handler
func NewHandler(pipelineService *pipeline.Service, config *config.Config, logger *logger.Logger, wsServer *websocket.Server, transcriptionStorage *sqlite.TranscriptionStorage) *Handler {
	return &Handler{
		pipelineService:      pipelineService,
		config:               config,
		logger:               logger.Named("api-handler"),
		wsServer:             wsServer,
		transcriptionStorage: transcriptionStorage,
	}
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	jobs := h.pipelineService.Jobs()

	queued := 0
	for _, job := range jobs {
		if job.Status == pipeline.StatusQueued {
			queued++
		}
	}

	response := map[string]interface{}{
		"status":      "ok",
		"timestamp":   time.Now(),
		"job_count":   len(jobs),
		"queued_jobs": queued,
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	// Create a sanitized config with only public values
	publicConfig := map[string]interface{}{
		"transcription": map[string]interface{}{
			"language":           h.config.Transcription.Language,
			"default_style":      h.config.Transcription.DefaultStyle,
			"default_format":     h.config.Transcription.DefaultFormat,
			"include_timestamps": h.config.Transcription.IncludeTimestamps,
		},
		"extraction": map[string]interface{}{
			"sample_rate": h.config.Extraction.SampleRate,
			"channels":    h.config.Extraction.Channels,
		},
		"acquisition": map[string]interface{}{
			"source_type": h.config.Acquisition.SourceType,
		},
	}

	WriteJSON(w, http.StatusOK, publicConfig)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
