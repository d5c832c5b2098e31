// Package config provides configuration management for the PodShot server.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8000
	DefaultLogLevel = "info"

	// Environment variable names
	EnvPort     = "PODSHOT_PORT"
	EnvLogLevel = "PODSHOT_LOG_LEVEL"
	EnvTempDir  = "PODSHOT_TEMP_DIR"

	// External tool overrides (empty = resolve from PATH)
	EnvYTDLPPath    = "PODSHOT_YTDLP"
	EnvFFmpegPath   = "PODSHOT_FFMPEG"
	EnvWhisperPath  = "PODSHOT_WHISPER"
	EnvWhisperModel = "PODSHOT_WHISPER_MODEL"

	// OpenAI settings (key name matches the original deployment)
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvNotesModel    = "PODSHOT_NOTES_MODEL"
	EnvSummaryModel  = "PODSHOT_SUMMARY_MODEL"

	// Worker pool and task registry bounds
	EnvWorkers      = "PODSHOT_WORKERS"
	EnvQueueSize    = "PODSHOT_QUEUE_SIZE"
	EnvTaskTTL      = "PODSHOT_TASK_TTL_SECONDS"
	EnvTaskCapacity = "PODSHOT_TASK_CAPACITY"

	DefaultWhisperBinary = "whisper-cli"
	DefaultNotesModel    = "gpt-4o"
	DefaultSummaryModel  = "gpt-3.5-turbo"

	DefaultWorkers      = 4
	DefaultQueueSize    = 32
	DefaultTaskTTL      = 3600 // seconds
	DefaultTaskCapacity = 1000

	// Per-stage timeouts (seconds)
	DefaultTimeoutDownload   = 600
	DefaultTimeoutExtract    = 120
	DefaultTimeoutTranscribe = 1800 // 30 minutes
	DefaultTimeoutInsights   = 60
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	TempDir() string
	YTDLPPath() string
	FFmpegPath() string
	WhisperPath() string
	WhisperModel() string
	OpenAIKey() string
	OpenAIBaseURL() string
	NotesModel() string
	SummaryModel() string
	Workers() int
	QueueSize() int
	TaskTTL() time.Duration
	TaskCapacity() int
	TimeoutDownload() time.Duration
	TimeoutExtract() time.Duration
	TimeoutTranscribe() time.Duration
	TimeoutInsights() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port         int
	logLevel     string
	tempDir      string
	ytdlpPath    string
	ffmpegPath   string
	whisperPath  string
	whisperModel string
	openAIKey    string
	openAIBase   string
	notesModel   string
	summaryModel string
	workers      int
	queueSize    int
	taskTTL      time.Duration
	taskCapacity int
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:         DefaultPort,
		logLevel:     DefaultLogLevel,
		whisperModel: defaultModelPath(),
		notesModel:   DefaultNotesModel,
		summaryModel: DefaultSummaryModel,
		workers:      DefaultWorkers,
		queueSize:    DefaultQueueSize,
		taskTTL:      DefaultTaskTTL * time.Second,
		taskCapacity: DefaultTaskCapacity,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	cfg.tempDir = os.Getenv(EnvTempDir)
	cfg.ytdlpPath = os.Getenv(EnvYTDLPPath)
	cfg.ffmpegPath = os.Getenv(EnvFFmpegPath)
	cfg.whisperPath = os.Getenv(EnvWhisperPath)

	if m := os.Getenv(EnvWhisperModel); m != "" {
		cfg.whisperModel = m
	}

	cfg.openAIKey = os.Getenv(EnvOpenAIKey)
	cfg.openAIBase = os.Getenv(EnvOpenAIBaseURL)

	if m := os.Getenv(EnvNotesModel); m != "" {
		cfg.notesModel = m
	}
	if m := os.Getenv(EnvSummaryModel); m != "" {
		cfg.summaryModel = m
	}

	if w := os.Getenv(EnvWorkers); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvWorkers)
		}
		cfg.workers = n
	}

	if q := os.Getenv(EnvQueueSize); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvQueueSize)
		}
		cfg.queueSize = n
	}

	if t := os.Getenv(EnvTaskTTL); t != "" {
		n, err := strconv.Atoi(t)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvTaskTTL)
		}
		cfg.taskTTL = time.Duration(n) * time.Second
	}

	if c := os.Getenv(EnvTaskCapacity); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid %s: must be a positive integer", EnvTaskCapacity)
		}
		cfg.taskCapacity = n
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// TempDir returns the base directory for per-run workspaces.
// Empty means the operating system default temp directory.
func (c *EnvConfig) TempDir() string {
	return c.tempDir
}

func (c *EnvConfig) YTDLPPath() string {
	return c.ytdlpPath
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) WhisperPath() string {
	if c.whisperPath != "" {
		return c.whisperPath
	}
	return DefaultWhisperBinary
}

// WhisperModel returns the path to the whisper.cpp model file
func (c *EnvConfig) WhisperModel() string {
	return c.whisperModel
}

// OpenAIKey returns the process-wide default OpenAI API key (may be empty)
func (c *EnvConfig) OpenAIKey() string {
	return c.openAIKey
}

func (c *EnvConfig) OpenAIBaseURL() string {
	if c.openAIBase != "" {
		return c.openAIBase
	}
	return "https://api.openai.com/v1"
}

func (c *EnvConfig) NotesModel() string {
	return c.notesModel
}

func (c *EnvConfig) SummaryModel() string {
	return c.summaryModel
}

func (c *EnvConfig) Workers() int {
	return c.workers
}

func (c *EnvConfig) QueueSize() int {
	return c.queueSize
}

// TaskTTL returns how long terminal task records are retained
func (c *EnvConfig) TaskTTL() time.Duration {
	return c.taskTTL
}

// TaskCapacity returns the maximum number of task records retained
func (c *EnvConfig) TaskCapacity() int {
	return c.taskCapacity
}

func (c *EnvConfig) TimeoutDownload() time.Duration {
	return time.Duration(DefaultTimeoutDownload) * time.Second
}

func (c *EnvConfig) TimeoutExtract() time.Duration {
	return time.Duration(DefaultTimeoutExtract) * time.Second
}

func (c *EnvConfig) TimeoutTranscribe() time.Duration {
	return time.Duration(DefaultTimeoutTranscribe) * time.Second
}

func (c *EnvConfig) TimeoutInsights() time.Duration {
	return time.Duration(DefaultTimeoutInsights) * time.Second
}

// defaultModelPath returns the default whisper model location
func defaultModelPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("models", "ggml-base.bin")
	}
	return filepath.Join(home, ".podshot", "models", "ggml-base.bin")
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
