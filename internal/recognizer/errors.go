package recognizer

import (
	"errors"
	"fmt"
)

// Kind classifies a recognizer failure. Invocation kinds are retried up to the
// configured bound and then degraded by the caller to an empty-but-valid
// transcription; KindModelNotFound is a configuration error, surfaced
// immediately and never retried.
type Kind string

const (
	KindTimeout       Kind = "timeout"        // process exceeded the hard wall-clock limit
	KindNotFound      Kind = "not_found"      // recognizer executable or script missing
	KindPermission    Kind = "permission"     // permission fault running the recognizer
	KindModuleMissing Kind = "module_missing" // recognizer dependency missing (e.g., python module)
	KindEmptyOutput   Kind = "empty_output"   // process produced no stdout
	KindParseError    Kind = "parse_error"    // stdout was not parseable as the result schema
	KindResultError   Kind = "result_error"   // recognizer reported an internal error in its result
	KindCanceled      Kind = "canceled"       // caller's context was cancelled between attempts
	KindModelNotFound Kind = "model_not_found"
)

// Error is a classified recognizer failure
type Error struct {
	Kind    Kind
	Attempt int // 1-based attempt number, 0 when not attempt-scoped
	Err     error
}

func (e *Error) Error() string {
	if e.Attempt > 0 {
		return fmt.Sprintf("recognizer %s (attempt %d): %v", e.Kind, e.Attempt, e.Err)
	}
	return fmt.Sprintf("recognizer %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or "" if err carries none
func KindOf(err error) Kind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return ""
}

// IsFatal reports whether err must be surfaced to the caller instead of being
// degraded to an empty transcription
func IsFatal(err error) bool {
	return KindOf(err) == KindModelNotFound
}
