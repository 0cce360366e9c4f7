// Package pipeline orchestrates the transcription stages for submitted video
// URLs. Jobs run strictly one at a time in submission order; throughput is
// bounded by the external recognizer anyway, and serial execution keeps the
// scratch directory and model usage predictable.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelscribe/reelscribe/internal/audio"
	"github.com/reelscribe/reelscribe/internal/config"
	"github.com/reelscribe/reelscribe/internal/recognizer"
	"github.com/reelscribe/reelscribe/internal/render"
	"github.com/reelscribe/reelscribe/internal/source"
	"github.com/reelscribe/reelscribe/internal/storage/sqlite"
	"github.com/reelscribe/reelscribe/internal/transcription"
	"github.com/reelscribe/reelscribe/internal/websocket"
	"github.com/reelscribe/reelscribe/pkg/logger"
)

// ErrQueueFull is returned by Submit when the job queue has no capacity left
var ErrQueueFull = errors.New("job queue is full")

// defaultJobHistory bounds the in-memory job registry; once exceeded, the
// oldest finished jobs are dropped. Their transcriptions remain queryable
// through storage.
const defaultJobHistory = 1000

// Service runs transcription jobs serially in submission order
type Service struct {
	cfg       *config.Config
	source    source.Service
	extractor *audio.Extractor
	invoker   *recognizer.Invoker
	storage   *sqlite.TranscriptionStorage
	wsServer  *websocket.Server
	logger    *logger.Logger

	queue chan string

	mu      sync.RWMutex
	jobs    map[string]*Job
	order   []string
	history int
}

// NewService creates a new pipeline service
func NewService(
	cfg *config.Config,
	src source.Service,
	extractor *audio.Extractor,
	invoker *recognizer.Invoker,
	storage *sqlite.TranscriptionStorage,
	wsServer *websocket.Server,
	log *logger.Logger,
) *Service {
	return &Service{
		cfg:       cfg,
		source:    src,
		extractor: extractor,
		invoker:   invoker,
		storage:   storage,
		wsServer:  wsServer,
		logger:    log.Named("pipeline"),
		queue:     make(chan string, 64),
		jobs:      make(map[string]*Job),
		history:   defaultJobHistory,
	}
}

// Start runs the worker loop until ctx is cancelled. Jobs already queued when
// cancellation arrives are abandoned in their queued state.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info("Starting pipeline worker")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Pipeline worker stopping")
			return
		case jobID := <-s.queue:
			s.process(ctx, jobID)
		}
	}
}

// Submit validates and enqueues a transcription request, returning a snapshot
// of the queued job.
func (s *Service) Submit(req Request) (Job, error) {
	if strings.TrimSpace(req.URL) == "" {
		return Job{}, fmt.Errorf("url is required")
	}
	if req.Style == "" {
		req.Style = transcription.Style(s.cfg.Transcription.DefaultStyle)
	}
	if req.Format == "" {
		req.Format = render.Format(s.cfg.Transcription.DefaultFormat)
	}

	job := &Job{
		ID:          uuid.New().String(),
		URL:         req.URL,
		Status:      StatusQueued,
		Style:       string(req.Style),
		Format:      string(req.Format),
		Timestamps:  req.IncludeTimestamps || s.cfg.Transcription.IncludeTimestamps,
		SourceHash:  sourceKey(req.URL),
		SubmittedAt: time.Now().UTC(),
	}

	// Enqueue and register under one lock so a full queue never leaves a
	// partial entry behind for concurrent submitters to trip over.
	s.mu.Lock()
	select {
	case s.queue <- job.ID:
		s.jobs[job.ID] = job
		s.order = append(s.order, job.ID)
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		return Job{}, ErrQueueFull
	}

	s.logger.Info("Job queued",
		logger.String("job_id", job.ID),
		logger.String("url", job.URL))
	s.broadcast(websocket.MessageTypeJobQueued, job)

	return *job, nil
}

// Job returns a snapshot of the job with the given ID
func (s *Service) Job(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Jobs returns snapshots of all known jobs in submission order
func (s *Service) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		if job, ok := s.jobs[id]; ok {
			out = append(out, *job)
		}
	}
	return out
}

// process runs a single job through acquisition, extraction, recognition,
// normalization, rendering and storage.
func (s *Service) process(ctx context.Context, jobID string) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	defer s.prune()

	started := time.Now().UTC()
	s.update(jobID, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = &started
	})
	s.broadcast(websocket.MessageTypeJobStarted, job)

	s.logger.Info("Job started",
		logger.String("job_id", jobID),
		logger.String("url", job.URL))

	output, recordID, err := s.run(ctx, job)

	finished := time.Now().UTC()
	if err != nil {
		s.update(jobID, func(j *Job) {
			j.Status = StatusFailed
			j.Error = err.Error()
			j.FinishedAt = &finished
			j.Duration = finished.Sub(started)
		})
		s.logger.Error("Job failed",
			logger.String("job_id", jobID),
			logger.Error(err))
		s.broadcast(websocket.MessageTypeJobFailed, job)
		return
	}

	s.update(jobID, func(j *Job) {
		j.Status = StatusCompleted
		j.Output = output
		j.RecordID = recordID
		j.FinishedAt = &finished
		j.Duration = finished.Sub(started)
	})
	s.logger.Info("Job completed",
		logger.String("job_id", jobID),
		logger.Duration("elapsed", finished.Sub(started)))
	s.broadcast(websocket.MessageTypeJobCompleted, job)
}

// prune drops the oldest finished jobs once the registry exceeds the history
// bound. Queued and running jobs are never dropped.
func (s *Service) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	excess := len(s.order) - s.history
	if excess <= 0 {
		return
	}

	kept := s.order[:0]
	for _, id := range s.order {
		job := s.jobs[id]
		if excess > 0 && job != nil && (job.Status == StatusCompleted || job.Status == StatusFailed) {
			delete(s.jobs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

func (s *Service) run(ctx context.Context, job *Job) (string, int64, error) {
	jobDir := filepath.Join(s.cfg.Scratch.BaseDir, job.SourceHash)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	media, err := s.source.Fetch(ctx, job.URL, jobDir)
	if err != nil {
		return "", 0, fmt.Errorf("acquisition failed: %w", err)
	}

	audioPath := filepath.Join(jobDir, "audio.wav")
	asset, err := s.extractor.Extract(ctx, media.VideoPath, audioPath)
	if err != nil {
		return "", 0, err
	}

	// One resolution per job; every retry inside Recognize reuses it
	modelPath, err := recognizer.ResolveModel(
		s.cfg.Recognizer.ModelsDir,
		s.cfg.Recognizer.LargeModelName,
		s.cfg.Recognizer.SmallModelName,
	)
	if err != nil {
		return "", 0, err
	}

	opts := transcription.Options{
		Style:             transcription.Style(job.Style),
		IncludeTimestamps: job.Timestamps,
	}

	resultPath := filepath.Join(jobDir, "recognizer.json")
	result, recErr := s.invoker.Recognize(ctx, asset.Path, modelPath, resultPath)

	var normalized transcription.Normalized
	switch {
	case recErr == nil:
		normalized = transcription.Normalize(result, opts, s.cfg.Transcription.Language)
	case recognizer.IsFatal(recErr):
		return "", 0, recErr
	default:
		// Retries are exhausted but the pipeline still produces a result;
		// the transcript is degraded, not the job.
		s.logger.Warn("Recognition failed, producing degraded result",
			logger.String("job_id", job.ID),
			logger.Error(recErr))
		normalized = transcription.Degraded(recognizer.KindOf(recErr), opts, s.cfg.Transcription.Language)
	}

	if opts.IncludeTimestamps && normalized.Error == "" {
		normalized.Text = transcription.AlignTimestamps(normalized.Text, normalized.Segments)
	}

	bundle := render.Bundle{
		URL:           job.URL,
		Transcription: normalized,
		Caption:       media.Caption,
		Timestamp:     time.Now().UTC(),
	}
	rendered, err := render.Render(bundle, render.Format(job.Format))
	if err != nil {
		return "", 0, err
	}

	record := &sqlite.TranscriptionRecord{
		JobID:         job.ID,
		SourceURL:     job.URL,
		SourceHash:    job.SourceHash,
		Caption:       media.Caption,
		Language:      normalized.Language,
		Style:         job.Style,
		Format:        job.Format,
		Text:          normalized.Text,
		AvgConfidence: normalized.AvgConfidence,
		ErrorKind:     normalized.Error,
		CreatedAt:     bundle.Timestamp,
	}
	recordID, err := s.storage.StoreTranscription(record)
	if err != nil {
		return "", 0, err
	}

	s.cleanup(jobDir, media.VideoPath, asset)

	return rendered.Text, recordID, nil
}

// cleanup removes intermediate files after a successful run. Downloaded
// videos live inside the scratch job directory and are deleted; a video
// outside it belongs to the caller and is left alone.
func (s *Service) cleanup(jobDir, videoPath string, asset *audio.Asset) {
	if insideDir(jobDir, videoPath) {
		if err := os.Remove(videoPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove video file",
				logger.String("path", videoPath),
				logger.Error(err))
		}
	}

	if !s.cfg.Scratch.RetainAudio {
		if err := asset.Remove(); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove audio file",
				logger.String("path", asset.Path),
				logger.Error(err))
		}
	}
}

func (s *Service) update(jobID string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[jobID]; ok {
		fn(job)
	}
}

func (s *Service) broadcast(messageType string, job *Job) {
	if s.wsServer == nil {
		return
	}

	s.mu.RLock()
	data := map[string]any{
		"job_id": job.ID,
		"url":    job.URL,
		"status": job.Status,
	}
	if job.Error != "" {
		data["error"] = job.Error
	}
	s.mu.RUnlock()

	s.wsServer.BroadcastJobEvent(messageType, data)
}

// sourceKey derives the scratch directory name for a source identifier.
// Hashing keeps the name filesystem-safe and stable across resubmissions of
// the same URL.
func sourceKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}

func insideDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
