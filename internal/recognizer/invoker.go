package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/reelscribe/reelscribe/pkg/logger"
)

// Invoker drives the external speech recognizer process. The recognizer is
// invoked with the audio path, a model directory, and an output file path, and
// is expected to emit a single JSON document matching the Result schema on
// stdout. stderr is diagnostic output, not an error signal, unless it reveals
// a missing dependency or a permission fault.
type Invoker struct {
	command     string
	scriptPath  string
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	logger      *logger.Logger
}

// NewInvoker creates a new recognizer invoker
func NewInvoker(cfg Config, log *logger.Logger) *Invoker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Invoker{
		command:     cfg.Command,
		scriptPath:  cfg.ScriptPath,
		timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		logger:      log.Named("recognizer"),
	}
}

// Recognize runs the recognizer against audioPath with bounded retries.
// Any classified failure is retried up to the attempt bound with a fixed
// inter-attempt delay; the last attempt's error is returned on exhaustion.
func (i *Invoker) Recognize(ctx context.Context, audioPath, modelPath, outputPath string) (*Result, error) {
	var lastErr error

	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, &Error{Kind: KindCanceled, Attempt: attempt, Err: ctx.Err()}
			case <-time.After(i.retryDelay):
			}
		}

		result, err := i.invokeOnce(ctx, attempt, audioPath, modelPath, outputPath)
		if err == nil {
			return result, nil
		}

		lastErr = err
		i.logger.Warn("Recognition attempt failed",
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", i.maxAttempts),
			logger.String("kind", string(KindOf(err))),
			logger.Error(err))
	}

	return nil, lastErr
}

// invokeOnce spawns the recognizer once under the hard wall-clock timeout
func (i *Invoker) invokeOnce(ctx context.Context, attempt int, audioPath, modelPath, outputPath string) (*Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	var args []string
	if i.scriptPath != "" {
		args = append(args, i.scriptPath)
	}
	args = append(args, audioPath, "--model", modelPath, "--output", outputPath)

	cmd := exec.CommandContext(runCtx, i.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	i.logger.Debug("Invoking recognizer",
		logger.Int("attempt", attempt),
		logger.String("audio", audioPath),
		logger.String("model", modelPath))

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	stderrText := strings.TrimSpace(stderr.String())
	if stderrText != "" {
		i.logger.Debug("Recognizer stderr", logger.String("stderr", truncate(stderrText, 2000)))
	}

	// stderr reclassification takes precedence over exit status: a python
	// traceback for a missing module can arrive with any exit code.
	if kind, ok := classifyStderr(stderrText); ok {
		return nil, &Error{Kind: kind, Attempt: attempt, Err: errors.New(firstLine(stderrText))}
	}

	if runErr != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, &Error{Kind: KindTimeout, Attempt: attempt,
				Err: errors.New("recognizer killed after " + elapsed.Truncate(time.Millisecond).String())}
		}
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist) {
			return nil, &Error{Kind: KindNotFound, Attempt: attempt, Err: runErr}
		}
		if errors.Is(runErr, os.ErrPermission) {
			return nil, &Error{Kind: KindPermission, Attempt: attempt, Err: runErr}
		}
		// Nonzero exit with plausible stdout falls through to parsing; the
		// recognizer reports its own errors in the result error field.
	}

	output := strings.TrimSpace(stdout.String())
	if output == "" {
		if runErr != nil {
			return nil, &Error{Kind: KindEmptyOutput, Attempt: attempt, Err: runErr}
		}
		return nil, &Error{Kind: KindEmptyOutput, Attempt: attempt, Err: errors.New("recognizer produced no output")}
	}

	var result Result
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		return nil, &Error{Kind: KindParseError, Attempt: attempt, Err: err}
	}

	if result.Err != "" {
		return nil, &Error{Kind: KindResultError, Attempt: attempt, Err: errors.New(result.Err)}
	}

	i.logger.Debug("Recognition succeeded",
		logger.Int("attempt", attempt),
		logger.Int("segments", len(result.Words)),
		logger.Duration("elapsed", elapsed))

	return &result, nil
}

// classifyStderr detects stderr content that indicates a broken recognizer
// installation rather than a bad run
func classifyStderr(stderrText string) (Kind, bool) {
	switch {
	case strings.Contains(stderrText, "ModuleNotFoundError"),
		strings.Contains(stderrText, "No module named"),
		strings.Contains(stderrText, "ImportError"):
		return KindModuleMissing, true
	case strings.Contains(stderrText, "PermissionError"),
		strings.Contains(stderrText, "Permission denied"):
		return KindPermission, true
	}
	return "", false
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
