package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server        ServerConfig        `toml:"server"`        // HTTP server settings
	Logging       LoggingConfig       `toml:"logging"`       // Application logging settings
	Storage       StorageConfig       `toml:"storage"`       // Data persistence settings
	Scratch       ScratchConfig       `toml:"scratch"`       // Scratch directory for intermediate files
	Extraction    ExtractionConfig    `toml:"extraction"`    // Audio extraction (ffmpeg) settings
	Recognizer    RecognizerConfig    `toml:"recognizer"`    // External speech recognizer settings
	Transcription TranscriptionConfig `toml:"transcription"` // Transcription output defaults
	Acquisition   AcquisitionConfig   `toml:"acquisition"`   // Video acquisition settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // Primary HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	Type           string `toml:"type"`             // Storage backend type (currently only "sqlite" is supported)
	SQLiteBasePath string `toml:"sqlite_base_path"` // Base path for SQLite database files (actual filename is generated as reelscribe-YYYY-MM-DD.db)
}

// ScratchConfig contains settings for the scratch directory that holds
// intermediate video/audio files. The directory handle is created once at
// startup and injected into each component rather than resolved ambiently.
type ScratchConfig struct {
	BaseDir     string `toml:"base_dir"`     // Directory for intermediate files (created if missing)
	RetainAudio bool   `toml:"retain_audio"` // Keep extracted WAV files after the pipeline completes (diagnostics)
}

// ExtractionConfig contains settings for audio extraction via ffmpeg
type ExtractionConfig struct {
	FFmpegPath  string `toml:"ffmpeg_path"`     // Path to the ffmpeg executable
	SampleRate  int    `toml:"sample_rate"`     // Output sample rate in Hz (fixed-format pipeline expects 16000)
	Channels    int    `toml:"channels"`        // Output channel count (1 for mono)
	TimeoutSecs int    `toml:"timeout_seconds"` // Wall-clock timeout per extraction strategy (0 = no timeout)
	VerifyWAV   bool   `toml:"verify_wav"`      // Verify the extracted WAV header matches the expected format
}

// RecognizerConfig contains settings for the external speech recognizer process
type RecognizerConfig struct {
	Command        string `toml:"command"`          // Recognizer executable (e.g., "python3")
	ScriptPath     string `toml:"script_path"`      // Path to the recognizer script invoked by the command (empty if command is self-contained)
	ModelsDir      string `toml:"models_dir"`       // Directory containing recognizer model directories
	LargeModelName string `toml:"large_model_name"` // Preferred model directory name
	SmallModelName string `toml:"small_model_name"` // Fallback model directory name
	TimeoutSecs    int    `toml:"timeout_seconds"`  // Hard wall-clock timeout per recognizer run
	MaxAttempts    int    `toml:"max_attempts"`     // Total attempts per logical recognition call
	RetryDelayMs   int    `toml:"retry_delay_ms"`   // Fixed delay between attempts in milliseconds
}

// TranscriptionConfig contains defaults for transcription requests
type TranscriptionConfig struct {
	Language          string `toml:"language"`           // Language tag attached to results (e.g., "en")
	DefaultStyle      string `toml:"default_style"`      // Default style: "verbatim", "clean", or "condensed"
	DefaultFormat     string `toml:"default_format"`     // Default output format: "plain", "json", "csv", or "srt"
	IncludeTimestamps bool   `toml:"include_timestamps"` // Interleave sentence timestamps by default
}

// AcquisitionConfig contains settings for the video acquisition collaborator
type AcquisitionConfig struct {
	// Source selection
	// Allowed values:
	// - "local": treat the request URL as a path to a local video file
	// - "command": invoke an external downloader command that emits JSON
	SourceType string `toml:"source_type"`

	Command    string `toml:"command"`     // Downloader executable (used when source_type = "command")
	ScriptPath string `toml:"script_path"` // Path to the downloader script invoked by the command

	TimeoutSecs int `toml:"timeout_seconds"` // Wall-clock timeout for the downloader process
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and fills defaults for optional fields
func (c *Config) Validate() error {
	// Server
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}

	// Storage
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Storage.Type != "sqlite" {
		return fmt.Errorf("invalid storage type: %s (only 'sqlite' is supported)", c.Storage.Type)
	}
	if c.Storage.SQLiteBasePath == "" {
		c.Storage.SQLiteBasePath = "data"
	}

	// Scratch
	if c.Scratch.BaseDir == "" {
		c.Scratch.BaseDir = "scratch"
	}

	// Extraction
	if c.Extraction.FFmpegPath == "" {
		c.Extraction.FFmpegPath = "ffmpeg"
	}
	if c.Extraction.SampleRate == 0 {
		c.Extraction.SampleRate = 16000
	}
	if c.Extraction.Channels == 0 {
		c.Extraction.Channels = 1
	}
	if c.Extraction.SampleRate != 16000 || c.Extraction.Channels != 1 {
		return fmt.Errorf("unsupported audio format: %d Hz / %d channels (the recognizer requires 16000 Hz mono)",
			c.Extraction.SampleRate, c.Extraction.Channels)
	}
	if c.Extraction.TimeoutSecs < 0 {
		return fmt.Errorf("invalid extraction timeout: %d", c.Extraction.TimeoutSecs)
	}

	// Recognizer
	if c.Recognizer.Command == "" {
		return fmt.Errorf("recognizer command is required")
	}
	if c.Recognizer.ModelsDir == "" {
		return fmt.Errorf("recognizer models_dir is required")
	}
	if c.Recognizer.LargeModelName == "" {
		c.Recognizer.LargeModelName = "vosk-model-en-us"
	}
	if c.Recognizer.SmallModelName == "" {
		c.Recognizer.SmallModelName = "vosk-model-en-us-small"
	}
	if c.Recognizer.TimeoutSecs == 0 {
		c.Recognizer.TimeoutSecs = 60
	}
	if c.Recognizer.MaxAttempts == 0 {
		c.Recognizer.MaxAttempts = 3
	}
	if c.Recognizer.RetryDelayMs == 0 {
		c.Recognizer.RetryDelayMs = 1000
	}

	// Transcription defaults
	if c.Transcription.Language == "" {
		c.Transcription.Language = "en"
	}
	switch c.Transcription.DefaultStyle {
	case "":
		c.Transcription.DefaultStyle = "clean"
	case "verbatim", "clean", "condensed":
	default:
		return fmt.Errorf("invalid default style: %s (must be 'verbatim', 'clean', or 'condensed')", c.Transcription.DefaultStyle)
	}
	switch c.Transcription.DefaultFormat {
	case "":
		c.Transcription.DefaultFormat = "plain"
	case "plain", "json", "csv", "srt":
	default:
		return fmt.Errorf("invalid default format: %s (must be 'plain', 'json', 'csv', or 'srt')", c.Transcription.DefaultFormat)
	}

	// Acquisition
	switch c.Acquisition.SourceType {
	case "":
		c.Acquisition.SourceType = "local"
	case "local":
	case "command":
		if c.Acquisition.Command == "" {
			return fmt.Errorf("acquisition command is required when source_type is command")
		}
	default:
		return fmt.Errorf("invalid acquisition source type: %s (must be 'local' or 'command')", c.Acquisition.SourceType)
	}
	if c.Acquisition.TimeoutSecs == 0 {
		c.Acquisition.TimeoutSecs = 120
	}

	return nil
}
