package audio

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/youpy/go-wav"

	"github.com/reelscribe/reelscribe/pkg/logger"
)

// Config represents the configuration for the audio extractor
type Config struct {
	FFmpegPath  string
	SampleRate  int
	Channels    int
	TimeoutSecs int  // wall-clock timeout per strategy (0 = none)
	VerifyWAV   bool // verify the output WAV header matches the expected format
}

// ExtractionFailedError means every extraction strategy was exhausted. It
// carries the last strategy's underlying error.
type ExtractionFailedError struct {
	Last error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("all extraction strategies failed: %v", e.Last)
}

func (e *ExtractionFailedError) Unwrap() error {
	return e.Last
}

// Extractor converts a video file into a normalized 16kHz mono PCM WAV file,
// trying an ordered list of strategies until one yields a usable output
type Extractor struct {
	cfg        Config
	strategies []Strategy
	logger     *logger.Logger
}

// NewExtractor creates an extractor with the default strategy chain
func NewExtractor(cfg Config, log *logger.Logger) *Extractor {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = SampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = Channels
	}
	return &Extractor{
		cfg: cfg,
		strategies: []Strategy{
			&directTranscode{ffmpegPath: cfg.FFmpegPath, sampleRate: cfg.SampleRate, channels: cfg.Channels},
			&resampleTranscode{ffmpegPath: cfg.FFmpegPath, sampleRate: cfg.SampleRate, channels: cfg.Channels},
			&copyThenTranscode{ffmpegPath: cfg.FFmpegPath, sampleRate: cfg.SampleRate, channels: cfg.Channels},
		},
		logger: log.Named("audio-extractor"),
	}
}

// Extract converts the video at videoPath into a WAV file at destPath.
// Each strategy is attempted in full; a strategy succeeds only when its
// process exits cleanly AND the output file exists AND is non-empty. Partial
// outputs of failed attempts are removed before the next strategy runs.
// Returns ExtractionFailedError after the whole chain is exhausted.
func (e *Extractor) Extract(ctx context.Context, videoPath, destPath string) (*Asset, error) {
	video, err := NewVideoAsset(videoPath)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, strategy := range e.strategies {
		start := time.Now()
		err := e.attempt(ctx, strategy, video.Path, destPath)
		if err == nil {
			info, statErr := os.Stat(destPath)
			if statErr != nil {
				err = fmt.Errorf("output missing after %s strategy: %w", strategy.Name(), statErr)
			} else if info.Size() == 0 {
				err = fmt.Errorf("output empty after %s strategy", strategy.Name())
			} else if e.cfg.VerifyWAV {
				err = e.verifyWAV(destPath)
			}

			if err == nil {
				e.logger.Info("Audio extracted",
					logger.String("strategy", strategy.Name()),
					logger.Int64("bytes", info.Size()),
					logger.Duration("elapsed", time.Since(start)))
				return &Asset{
					Path:       destPath,
					SampleRate: e.cfg.SampleRate,
					Channels:   e.cfg.Channels,
					Size:       info.Size(),
				}, nil
			}
		}

		lastErr = err
		e.logger.Warn("Extraction strategy failed",
			logger.String("strategy", strategy.Name()),
			logger.Error(err))

		// Don't let a partial output masquerade as the next strategy's work
		os.Remove(destPath)
	}

	return nil, &ExtractionFailedError{Last: lastErr}
}

// attempt runs one strategy under the configured per-strategy timeout
func (e *Extractor) attempt(ctx context.Context, strategy Strategy, src, dst string) error {
	if e.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}
	return strategy.Attempt(ctx, src, dst)
}

// verifyWAV checks the output's WAV header against the fixed pipeline format
func (e *Extractor) verifyWAV(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open output for verification: %w", err)
	}
	defer file.Close()

	format, err := wav.NewReader(file).Format()
	if err != nil {
		return fmt.Errorf("output is not a readable WAV file: %w", err)
	}

	if int(format.SampleRate) != e.cfg.SampleRate ||
		int(format.NumChannels) != e.cfg.Channels ||
		int(format.BitsPerSample) != BitsPerSample {
		return fmt.Errorf("unexpected WAV format: %d Hz / %d ch / %d bit (want %d Hz / %d ch / %d bit)",
			format.SampleRate, format.NumChannels, format.BitsPerSample,
			e.cfg.SampleRate, e.cfg.Channels, BitsPerSample)
	}
	return nil
}
