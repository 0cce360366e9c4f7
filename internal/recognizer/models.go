package recognizer

// Config represents the configuration for the recognizer invoker
type Config struct {
	Command      string // Executable to run (e.g., "python3")
	ScriptPath   string // Script passed as the first argument (empty if Command is self-contained)
	TimeoutSecs  int    // Hard wall-clock timeout per run
	MaxAttempts  int    // Total attempts per logical recognition call
	RetryDelayMs int    // Fixed delay between attempts in milliseconds
}

// WordSegment is a recognizer-reported word with timing and confidence.
// Segments are not guaranteed sorted by start time; consumers must sort
// before relying on order.
type WordSegment struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

// Alternative is a full-text alternative hypothesis
type Alternative struct {
	Text string `json:"text"`
}

// Result is the structured output of a recognizer run. For a successful run
// at least one of Text, Words, or Alternatives should be present; all absent
// means the recognizer detected no speech, which is not an invocation failure.
type Result struct {
	Text         string        `json:"text"`
	Words        []WordSegment `json:"result"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
	Err          string        `json:"error,omitempty"`
}

// Empty reports whether the result carries no usable content
func (r *Result) Empty() bool {
	return r == nil || (r.Text == "" && len(r.Words) == 0 && len(r.Alternatives) == 0)
}
