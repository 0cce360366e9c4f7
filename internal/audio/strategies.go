package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Strategy is one way of turning a video file into a normalized WAV file.
// Strategies are attempted in order with first-success-wins semantics, so each
// one is independently testable.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, src, dst string) error
}

// runFFmpeg executes ffmpeg and folds a nonzero exit into an error that
// carries the tool's combined output
func runFFmpeg(ctx context.Context, ffmpegPath string, args ...string) error {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func transcodeArgs(src, dst string, sampleRate, channels int, extra ...string) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
	}
	args = append(args, extra...)
	return append(args, dst)
}

// directTranscode is the single-pass path: drop video, encode 16-bit PCM,
// resample, downmix, write WAV
type directTranscode struct {
	ffmpegPath string
	sampleRate int
	channels   int
}

func (s *directTranscode) Name() string { return "direct" }

func (s *directTranscode) Attempt(ctx context.Context, src, dst string) error {
	return runFFmpeg(ctx, s.ffmpegPath, transcodeArgs(src, dst, s.sampleRate, s.channels)...)
}

// resampleTranscode adds an explicit asynchronous-resampling filter to
// tolerate variable-frame-rate or drifting-timestamp sources that the direct
// path mishandles
type resampleTranscode struct {
	ffmpegPath string
	sampleRate int
	channels   int
}

func (s *resampleTranscode) Name() string { return "aresample" }

func (s *resampleTranscode) Attempt(ctx context.Context, src, dst string) error {
	return runFFmpeg(ctx, s.ffmpegPath,
		transcodeArgs(src, dst, s.sampleRate, s.channels, "-af", "aresample=async=1")...)
}

// copyThenTranscode first stream-copies the audio elementary stream into an
// intermediate container without re-encoding, then transcodes that
// intermediate onto the final WAV. Some containers carry audio codecs the
// one-pass path cannot filter and resample together. The intermediate file is
// removed unconditionally.
type copyThenTranscode struct {
	ffmpegPath string
	sampleRate int
	channels   int
}

func (s *copyThenTranscode) Name() string { return "copy-then-transcode" }

func (s *copyThenTranscode) Attempt(ctx context.Context, src, dst string) error {
	intermediate := dst + ".stream.m4a"
	defer os.Remove(intermediate)

	copyArgs := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vn",
		"-acodec", "copy",
		intermediate,
	}
	if err := runFFmpeg(ctx, s.ffmpegPath, copyArgs...); err != nil {
		return fmt.Errorf("stream copy pass: %w", err)
	}

	if err := runFFmpeg(ctx, s.ffmpegPath, transcodeArgs(intermediate, dst, s.sampleRate, s.channels)...); err != nil {
		return fmt.Errorf("transcode pass: %w", err)
	}
	return nil
}
