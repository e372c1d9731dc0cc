package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	defaultListenAddr    = ":8080"
	defaultDBPath        = "genied.db"
	defaultAgent         = "echo"
	defaultLLMModel      = "gpt-4o-mini"
	defaultQuestionsFile = "questions.json"

	envListenAddr    = "GENIED_LISTEN_ADDR"
	envDBPath        = "GENIED_DB_PATH"
	envLogLevel      = "GENIED_LOG_LEVEL"
	envTaskRetention = "GENIED_TASK_RETENTION"
	envAgent         = "GENIED_AGENT"
	envLLMBaseURL    = "GENIED_LLM_BASE_URL"
	envLLMModel      = "GENIED_LLM_MODEL"
	envLLMAPIKey     = "GENIED_LLM_API_KEY"
	envQuestionsFile = "GENIED_QUESTIONS_FILE"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level

	// TaskRetention is how long terminal tasks are kept in the in-memory
	// registry before eviction. Zero disables eviction.
	TaskRetention time.Duration

	// Agent is the default runner used when a request does not name one.
	Agent string

	// LLM runner settings. The llm runner is only registered when BaseURL
	// is set.
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// QuestionsFile is the benchmark question set path.
	QuestionsFile string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:    defaultListenAddr,
		DBPath:        defaultDBPath,
		LogLevel:      slog.LevelInfo,
		Agent:         defaultAgent,
		LLMModel:      defaultLLMModel,
		QuestionsFile: defaultQuestionsFile,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envTaskRetention); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.TaskRetention = d
		}
	}
	if v := os.Getenv(envAgent); v != "" {
		cfg.Agent = v
	}
	if v := os.Getenv(envLLMBaseURL); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv(envLLMModel); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv(envLLMAPIKey); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv(envQuestionsFile); v != "" {
		cfg.QuestionsFile = v
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
