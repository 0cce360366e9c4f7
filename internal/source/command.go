package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/reelscribe/reelscribe/pkg/logger"
)

// Config represents the configuration for the command-driven source
type Config struct {
	Command     string // downloader executable (e.g., "python3")
	ScriptPath  string // script passed as the first argument
	TimeoutSecs int
}

// commandResult is the JSON document the downloader emits on stdout
type commandResult struct {
	Success   bool   `json:"success"`
	MediaPath string `json:"media_path"`
	Caption   string `json:"caption"`
	Username  string `json:"username"`
	Err       string `json:"error"`
}

// runner abstracts process execution for tests
type runner func(ctx context.Context, command string, args ...string) ([]byte, error)

// CommandSource invokes an external downloader process with the source URL
// and a destination directory, and parses the JSON document it prints to
// stdout
type CommandSource struct {
	cfg    Config
	run    runner
	logger *logger.Logger
}

// NewCommandSource creates a command-driven source
func NewCommandSource(cfg Config, log *logger.Logger) *CommandSource {
	return &CommandSource{
		cfg:    cfg,
		run:    execRunner,
		logger: log.Named("source"),
	}
}

// Fetch downloads the video for url into destDir via the external command
func (s *CommandSource) Fetch(ctx context.Context, url, destDir string) (*Media, error) {
	if s.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}

	var args []string
	if s.cfg.ScriptPath != "" {
		args = append(args, s.cfg.ScriptPath)
	}
	args = append(args, url, destDir)

	s.logger.Debug("Fetching video", logger.String("url", url), logger.String("dest", destDir))

	output, err := s.run(ctx, s.cfg.Command, args...)
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		if err != nil {
			return nil, fmt.Errorf("downloader failed: %w", err)
		}
		return nil, errors.New("downloader produced no output")
	}

	var result commandResult
	if parseErr := json.Unmarshal([]byte(trimmed), &result); parseErr != nil {
		return nil, fmt.Errorf("failed to parse downloader output: %w", parseErr)
	}
	if !result.Success {
		if result.Err != "" {
			return nil, fmt.Errorf("downloader error: %s", result.Err)
		}
		return nil, errors.New("downloader reported failure without detail")
	}
	if result.MediaPath == "" {
		return nil, errors.New("downloader reported success without a media path")
	}

	return &Media{
		VideoPath: result.MediaPath,
		Caption:   result.Caption,
		Username:  result.Username,
	}, nil
}

func execRunner(ctx context.Context, command string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()
	return stdout.Bytes(), err
}
