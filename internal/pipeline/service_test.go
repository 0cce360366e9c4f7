package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reelscribe/reelscribe/internal/audio"
	"github.com/reelscribe/reelscribe/internal/config"
	"github.com/reelscribe/reelscribe/internal/recognizer"
	"github.com/reelscribe/reelscribe/internal/source"
	"github.com/reelscribe/reelscribe/internal/storage/sqlite"
	"github.com/reelscribe/reelscribe/pkg/logger"
)

// testEnv assembles a full pipeline against fake ffmpeg and recognizer
// scripts, a local-file source, and a throwaway SQLite database.
type testEnv struct {
	service *Service
	storage *sqlite.TranscriptionStorage
	cfg     *config.Config
	video   string
}

func newTestEnv(t *testing.T, recognizerScript string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	ffmpeg := filepath.Join(dir, "ffmpeg")
	ffmpegScript := "#!/bin/sh\nfor a; do last=$a; done\nprintf audio > \"$last\"\nexit 0\n"
	if err := os.WriteFile(ffmpeg, []byte(ffmpegScript), 0o755); err != nil {
		t.Fatal(err)
	}

	recognizerPath := filepath.Join(dir, "recognizer")
	if err := os.WriteFile(recognizerPath, []byte("#!/bin/sh\n"+recognizerScript), 0o755); err != nil {
		t.Fatal(err)
	}

	modelsDir := filepath.Join(dir, "models")
	if err := os.MkdirAll(filepath.Join(modelsDir, "vosk-model-en-us-small"), 0o755); err != nil {
		t.Fatal(err)
	}

	video := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(video, []byte("video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Recognizer.Command = recognizerPath
	cfg.Recognizer.ModelsDir = modelsDir
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	cfg.Scratch.BaseDir = filepath.Join(dir, "scratch")
	cfg.Extraction.FFmpegPath = ffmpeg
	cfg.Recognizer.RetryDelayMs = 1

	log := logger.NewNop()
	db, err := sqlite.Open(filepath.Join(dir, "test.db"), log)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	storage, err := sqlite.NewTranscriptionStorage(db, log)
	if err != nil {
		t.Fatalf("NewTranscriptionStorage: %v", err)
	}

	extractor := audio.NewExtractor(audio.Config{
		FFmpegPath: cfg.Extraction.FFmpegPath,
		SampleRate: cfg.Extraction.SampleRate,
		Channels:   cfg.Extraction.Channels,
	}, log)
	invoker := recognizer.NewInvoker(recognizer.Config{
		Command:      cfg.Recognizer.Command,
		TimeoutSecs:  cfg.Recognizer.TimeoutSecs,
		MaxAttempts:  cfg.Recognizer.MaxAttempts,
		RetryDelayMs: cfg.Recognizer.RetryDelayMs,
	}, log)

	service := NewService(cfg, source.NewLocalSource(), extractor, invoker, storage, nil, log)

	return &testEnv{service: service, storage: storage, cfg: cfg, video: video}
}

func (e *testEnv) startWorker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go e.service.Start(ctx)
}

func waitForJob(t *testing.T, service *Service, jobID string) Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := service.Job(jobID)
		if !ok {
			t.Fatalf("job %s disappeared", jobID)
		}
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", jobID)
	return Job{}
}

func TestPipelineEndToEnd(t *testing.T) {
	env := newTestEnv(t, `echo '{"text":"um so hello hello world","result":[{"word":"hello","start":0.0,"end":0.4,"conf":0.9},{"word":"world","start":0.5,"end":0.9,"conf":0.7}]}'`)
	env.startWorker(t)

	queued, err := env.service.Submit(Request{URL: env.video})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if queued.Status != StatusQueued {
		t.Errorf("submitted job status = %q", queued.Status)
	}

	job := waitForJob(t, env.service, queued.ID)
	if job.Status != StatusCompleted {
		t.Fatalf("job status = %q, error = %q", job.Status, job.Error)
	}
	if !strings.Contains(job.Output, "Hello world") {
		t.Errorf("rendered output missing cleaned transcript:\n%s", job.Output)
	}

	record, err := env.storage.GetTranscriptionByJobID(job.ID)
	if err != nil {
		t.Fatalf("GetTranscriptionByJobID: %v", err)
	}
	if record == nil {
		t.Fatal("no stored record for completed job")
	}
	if record.Text != "Hello world" {
		t.Errorf("stored text = %q", record.Text)
	}
	if record.AvgConfidence == nil || *record.AvgConfidence != 0.8 {
		t.Errorf("stored confidence = %v, want 0.8", record.AvgConfidence)
	}
	if record.SourceHash != job.SourceHash {
		t.Errorf("stored hash %q != job hash %q", record.SourceHash, job.SourceHash)
	}

	// The caller's video file must survive; the extracted audio must not
	if _, err := os.Stat(env.video); err != nil {
		t.Errorf("local source video was removed: %v", err)
	}
	audioPath := filepath.Join(env.cfg.Scratch.BaseDir, job.SourceHash, "audio.wav")
	if _, err := os.Stat(audioPath); !os.IsNotExist(err) {
		t.Error("extracted audio not cleaned up")
	}
}

func TestPipelineSerialOrder(t *testing.T) {
	env := newTestEnv(t, `echo '{"text":"ok"}'`)

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := env.service.Submit(Request{URL: env.video})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, job.ID)
	}

	env.startWorker(t)

	var finished []Job
	for _, id := range ids {
		finished = append(finished, waitForJob(t, env.service, id))
	}

	for i := 1; i < len(finished); i++ {
		if finished[i].StartedAt.Before(*finished[i-1].FinishedAt) {
			t.Errorf("job %d started before job %d finished", i, i-1)
		}
	}

	jobs := env.service.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	for i, job := range jobs {
		if job.ID != ids[i] {
			t.Errorf("job listing out of submission order at %d", i)
		}
	}
}

func TestPipelineTimestampsFlowIntoSRT(t *testing.T) {
	env := newTestEnv(t, `echo '{"text":"Hello there. Back again.","result":[{"word":"hello","start":2.0,"end":2.4,"conf":1.0},{"word":"back","start":75.0,"end":75.4,"conf":1.0}]}'`)
	env.startWorker(t)

	queued, err := env.service.Submit(Request{
		URL:               env.video,
		Style:             "verbatim",
		Format:            "srt",
		IncludeTimestamps: true,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job := waitForJob(t, env.service, queued.ID)
	if job.Status != StatusCompleted {
		t.Fatalf("job status = %q, error = %q", job.Status, job.Error)
	}

	// Aligner markers become cue start times
	for _, want := range []string{
		"00:00:02,000 --> 00:00:07,000",
		"00:01:15,000 --> 00:01:20,000",
	} {
		if !strings.Contains(job.Output, want) {
			t.Errorf("SRT output missing cue window %q:\n%s", want, job.Output)
		}
	}
}

func TestPipelineDegradedOnRecognizerFailure(t *testing.T) {
	env := newTestEnv(t, `echo "transient breakage" >&2; exit 1`)
	env.startWorker(t)

	queued, err := env.service.Submit(Request{URL: env.video, Format: "json"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job := waitForJob(t, env.service, queued.ID)
	if job.Status != StatusCompleted {
		t.Fatalf("expected degraded completion, got %q (%s)", job.Status, job.Error)
	}

	record, err := env.storage.GetTranscriptionByJobID(job.ID)
	if err != nil || record == nil {
		t.Fatalf("stored record missing: %v", err)
	}
	if !strings.HasPrefix(record.ErrorKind, "recognition_failed:") {
		t.Errorf("stored error kind = %q", record.ErrorKind)
	}
	if record.Text != "" {
		t.Errorf("degraded transcript should be empty, got %q", record.Text)
	}
}

func TestPipelineFailsOnMissingModel(t *testing.T) {
	env := newTestEnv(t, `echo '{"text":"ok"}'`)
	env.cfg.Recognizer.ModelsDir = filepath.Join(t.TempDir(), "no-models")
	env.startWorker(t)

	queued, err := env.service.Submit(Request{URL: env.video})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job := waitForJob(t, env.service, queued.ID)
	if job.Status != StatusFailed {
		t.Fatalf("expected failure, got %q", job.Status)
	}
	if !strings.Contains(job.Error, "model") {
		t.Errorf("error = %q, expected model resolution failure", job.Error)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	env := newTestEnv(t, `echo '{"text":"ok"}'`)
	svc := env.service

	// No worker running, so the queue fills to capacity and stays there
	for i := 0; i < cap(svc.queue); i++ {
		if _, err := svc.Submit(Request{URL: env.video}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if _, err := svc.Submit(Request{URL: env.video}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	// A rejected submission must leave no trace in the registry
	jobs := svc.Jobs()
	if len(jobs) != cap(svc.queue) {
		t.Errorf("registry has %d jobs, want %d", len(jobs), cap(svc.queue))
	}
}

func TestSubmitConcurrentAtQueueFullBoundary(t *testing.T) {
	env := newTestEnv(t, `echo '{"text":"ok"}'`)
	svc := env.service

	for i := 0; i < cap(svc.queue); i++ {
		if _, err := svc.Submit(Request{URL: env.video}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	// Paced drain holds the queue at the full boundary while submitters race
	stop := make(chan struct{})
	var drainWG sync.WaitGroup
	drainWG.Add(1)
	go func() {
		defer drainWG.Done()
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case <-svc.queue:
				default:
				}
			}
		}
	}()

	var successes int64
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, err := svc.Submit(Request{URL: env.video})
				switch {
				case err == nil:
					atomic.AddInt64(&successes, 1)
				case errors.Is(err, ErrQueueFull):
				default:
					t.Errorf("unexpected submit error: %v", err)
				}
			}
		}()
	}
	wg.Wait()
	close(stop)
	drainWG.Wait()

	// Every accepted job must be listed exactly once and resolvable by ID
	jobs := svc.Jobs()
	want := cap(svc.queue) + int(atomic.LoadInt64(&successes))
	if len(jobs) != want {
		t.Errorf("registry has %d jobs, want %d", len(jobs), want)
	}
	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if seen[job.ID] {
			t.Errorf("job %s listed twice", job.ID)
		}
		seen[job.ID] = true
		if _, ok := svc.Job(job.ID); !ok {
			t.Errorf("listed job %s not resolvable", job.ID)
		}
	}
}

func TestJobHistoryPruned(t *testing.T) {
	env := newTestEnv(t, `echo '{"text":"ok"}'`)
	env.service.history = 2

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := env.service.Submit(Request{URL: env.video})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		ids = append(ids, job.ID)
	}

	env.startWorker(t)
	waitForJob(t, env.service, ids[2])

	if _, ok := env.service.Job(ids[0]); ok {
		t.Error("oldest finished job was not pruned")
	}
	jobs := env.service.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("registry has %d jobs, want 2", len(jobs))
	}
	if jobs[0].ID != ids[1] || jobs[1].ID != ids[2] {
		t.Errorf("pruning broke submission order: %v vs %v", []string{jobs[0].ID, jobs[1].ID}, ids[1:])
	}
}

func TestSubmitRejectsEmptyURL(t *testing.T) {
	env := newTestEnv(t, `echo '{"text":"ok"}'`)

	if _, err := env.service.Submit(Request{URL: "   "}); err == nil {
		t.Error("expected error for blank URL")
	}
}
