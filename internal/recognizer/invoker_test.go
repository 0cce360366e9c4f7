package recognizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reelscribe/reelscribe/pkg/logger"
)

// writeFakeRecognizer installs a shell script standing in for the recognizer
// process. Scripts receive the standard argument shape:
// audioPath --model modelPath --output outputPath.
func writeFakeRecognizer(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recognizer")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("failed to write fake recognizer: %v", err)
	}
	return path
}

func newTestInvoker(t *testing.T, command string, maxAttempts, retryDelayMs int) *Invoker {
	t.Helper()
	return NewInvoker(Config{
		Command:      command,
		TimeoutSecs:  5,
		MaxAttempts:  maxAttempts,
		RetryDelayMs: retryDelayMs,
	}, logger.NewNop())
}

func TestRecognizeSuccess(t *testing.T) {
	script := writeFakeRecognizer(t, `
echo "loading model from $4" >&2
echo '{"text":"hello world","result":[{"word":"hello","start":0.0,"end":0.4,"conf":0.99},{"word":"world","start":0.5,"end":0.9,"conf":0.97}]}'`)
	invoker := newTestInvoker(t, script, 3, 10)

	result, err := invoker.Recognize(context.Background(), "audio.wav", "model-dir", "out.json")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if result.Text != "hello world" {
		t.Errorf("text = %q", result.Text)
	}
	if len(result.Words) != 2 {
		t.Errorf("expected 2 word segments, got %d", len(result.Words))
	}
	if result.Words[0].Word != "hello" || result.Words[0].Conf != 0.99 {
		t.Errorf("unexpected first segment: %+v", result.Words[0])
	}
}

func TestRecognizeRetriesTwiceThenSucceeds(t *testing.T) {
	// The script counts invocations in a state file and fails the first two
	counter := filepath.Join(t.TempDir(), "attempts")
	script := writeFakeRecognizer(t, `
count=$(cat `+counter+` 2>/dev/null || echo 0)
count=$((count + 1))
echo $count > `+counter+`
if [ $count -lt 3 ]; then
  echo "transient failure" >&2
  exit 1
fi
echo '{"text":"third time lucky"}'`)

	const delayMs = 50
	invoker := newTestInvoker(t, script, 3, delayMs)

	start := time.Now()
	result, err := invoker.Recognize(context.Background(), "audio.wav", "model-dir", "out.json")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if result.Text != "third time lucky" {
		t.Errorf("text = %q", result.Text)
	}

	// Two retries mean exactly two inter-attempt delays were taken
	if elapsed < 2*delayMs*time.Millisecond {
		t.Errorf("elapsed %v, expected at least %v of retry delays", elapsed, 2*delayMs*time.Millisecond)
	}
}

func TestRecognizeExhaustsRetries(t *testing.T) {
	script := writeFakeRecognizer(t, `echo "permanent failure" >&2; exit 1`)
	invoker := newTestInvoker(t, script, 3, 1)

	_, err := invoker.Recognize(context.Background(), "audio.wav", "model-dir", "out.json")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if rerr.Attempt != 3 {
		t.Errorf("returned error from attempt %d, want the last attempt 3", rerr.Attempt)
	}
	if IsFatal(err) {
		t.Error("exhausted invocation failure must not be fatal")
	}
}

func TestRecognizeClassification(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   Kind
	}{
		{
			name:   "empty output",
			script: `exit 0`,
			want:   KindEmptyOutput,
		},
		{
			name:   "unparseable output",
			script: `echo "this is not json"`,
			want:   KindParseError,
		},
		{
			name:   "result error field",
			script: `echo '{"error":"model load failed"}'`,
			want:   KindResultError,
		},
		{
			name:   "missing python module",
			script: `echo "ModuleNotFoundError: No module named 'vosk'" >&2; exit 1`,
			want:   KindModuleMissing,
		},
		{
			name:   "permission fault in stderr",
			script: `echo "PermissionError: [Errno 13] Permission denied: '/models'" >&2; exit 1`,
			want:   KindPermission,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := writeFakeRecognizer(t, tt.script)
			invoker := newTestInvoker(t, script, 1, 0)

			_, err := invoker.Recognize(context.Background(), "audio.wav", "model-dir", "out.json")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("kind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecognizeStderrIsDiagnosticOnly(t *testing.T) {
	// Ordinary stderr chatter with a clean exit and valid stdout is a success
	script := writeFakeRecognizer(t, `
echo "INFO loading model" >&2
echo "WARNING deprecated flag" >&2
echo '{"text":"fine"}'`)
	invoker := newTestInvoker(t, script, 1, 0)

	result, err := invoker.Recognize(context.Background(), "audio.wav", "model-dir", "out.json")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if result.Text != "fine" {
		t.Errorf("text = %q", result.Text)
	}
}

func TestRecognizeCommandNotFound(t *testing.T) {
	invoker := newTestInvoker(t, "definitely-not-a-real-recognizer", 1, 0)

	_, err := invoker.Recognize(context.Background(), "audio.wav", "model-dir", "out.json")
	if err == nil {
		t.Fatal("expected error for missing command")
	}
	if got := KindOf(err); got != KindNotFound {
		t.Errorf("kind = %q, want %q", got, KindNotFound)
	}
}

func TestRecognizeTimeout(t *testing.T) {
	script := writeFakeRecognizer(t, `sleep 2; echo '{"text":"too late"}'`)
	invoker := NewInvoker(Config{
		Command:      script,
		TimeoutSecs:  1,
		MaxAttempts:  1,
		RetryDelayMs: 0,
	}, logger.NewNop())

	_, err := invoker.Recognize(context.Background(), "audio.wav", "model-dir", "out.json")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if got := KindOf(err); got != KindTimeout {
		t.Errorf("kind = %q, want %q", got, KindTimeout)
	}
}

func TestRecognizeCanceledBetweenAttempts(t *testing.T) {
	script := writeFakeRecognizer(t, `echo "transient failure" >&2; exit 1`)
	invoker := newTestInvoker(t, script, 3, 500)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := invoker.Recognize(ctx, "audio.wav", "model-dir", "out.json")
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if got := KindOf(err); got != KindCanceled {
		t.Errorf("kind = %q, want %q", got, KindCanceled)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error does not unwrap to context.Canceled: %v", err)
	}
	if IsFatal(err) {
		t.Error("cancellation should degrade, not abort the job")
	}
}

func TestRecognizeArgumentShape(t *testing.T) {
	// The recognizer must be called as: audio --model dir --output path
	argsFile := filepath.Join(t.TempDir(), "args")
	script := writeFakeRecognizer(t, `
echo "$@" > `+argsFile+`
echo '{"text":"ok"}'`)
	invoker := newTestInvoker(t, script, 1, 0)

	if _, err := invoker.Recognize(context.Background(), "in.wav", "/models/large", "out.json"); err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	got, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("failed to read recorded args: %v", err)
	}
	want := "in.wav --model /models/large --output out.json\n"
	if string(got) != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestResolveModel(t *testing.T) {
	modelsDir := t.TempDir()
	large := filepath.Join(modelsDir, "vosk-model-en-us")
	small := filepath.Join(modelsDir, "vosk-model-en-us-small")

	// Neither model present
	_, err := ResolveModel(modelsDir, "vosk-model-en-us", "vosk-model-en-us-small")
	if err == nil {
		t.Fatal("expected error with no models")
	}
	if !IsFatal(err) {
		t.Error("missing model must be a fatal error")
	}
	if got := KindOf(err); got != KindModelNotFound {
		t.Errorf("kind = %q, want %q", got, KindModelNotFound)
	}

	// Small model only
	if err := os.Mkdir(small, 0o755); err != nil {
		t.Fatal(err)
	}
	path, err := ResolveModel(modelsDir, "vosk-model-en-us", "vosk-model-en-us-small")
	if err != nil {
		t.Fatalf("ResolveModel: %v", err)
	}
	if path != small {
		t.Errorf("resolved %q, want small model %q", path, small)
	}

	// Large model preferred once present
	if err := os.Mkdir(large, 0o755); err != nil {
		t.Fatal(err)
	}
	path, err = ResolveModel(modelsDir, "vosk-model-en-us", "vosk-model-en-us-small")
	if err != nil {
		t.Fatalf("ResolveModel: %v", err)
	}
	if path != large {
		t.Errorf("resolved %q, want large model %q", path, large)
	}

	// A plain file does not count as a model directory
	fileOnly := t.TempDir()
	if err := os.WriteFile(filepath.Join(fileOnly, "vosk-model-en-us"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ResolveModel(fileOnly, "vosk-model-en-us", ""); err == nil {
		t.Error("expected error when model path is a file")
	}
}
