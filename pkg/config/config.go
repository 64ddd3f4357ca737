package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

// Config is the full application configuration.
type Config struct {
	OpenAI   OpenAIConfig          `yaml:"openai"`
	Capture  CaptureConfig         `yaml:"capture"`
	Status   StatusConfig          `yaml:"status"`
	Storage  StorageConfig         `yaml:"storage"`
	Events   EventsConfig          `yaml:"events"`
	Telegram TelegramConfig        `yaml:"telegram"`
	Analysis AnalysisConfig        `yaml:"analysis"`
	Server   ServerConfig          `yaml:"server"`
	Streams  []models.StreamConfig `yaml:"streams"`
}

// OpenAIConfig holds credentials shared by transcription and analysis.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
}

// CaptureConfig tunes the audio capturer. Thresholds are policy knobs, not
// algorithmic necessities.
type CaptureConfig struct {
	// SegmentThreshold: requested durations of at least this many
	// seconds use segmented capture.
	SegmentThreshold int `yaml:"segment_threshold_seconds"`
	// WindowSeconds is the per-segment capture window.
	WindowSeconds int `yaml:"window_seconds"`
	// ConcatMaxSegments: segment sets of at most this size are
	// concatenated and transcribed whole; larger sets are transcribed
	// per segment and merged.
	ConcatMaxSegments int `yaml:"concat_max_segments"`
	// SizeFloorBytes is the minimum byte size of a usable artifact.
	SizeFloorBytes int64 `yaml:"size_floor_bytes"`
	// TimeoutGraceSeconds is added to the requested duration to bound
	// the capture subprocess.
	TimeoutGraceSeconds int `yaml:"timeout_grace_seconds"`
	// TempDir for run-scoped artifacts; empty means the system default.
	TempDir string `yaml:"temp_dir"`
	// HeaderHosts maps a host substring to the extra headers some CDNs
	// require, in ffmpeg -headers form.
	HeaderHosts map[string]string `yaml:"header_hosts"`
	// SegmentConcurrency bounds parallel per-segment transcription.
	SegmentConcurrency int `yaml:"segment_concurrency"`
}

// StatusConfig tunes the status tracker janitor.
type StatusConfig struct {
	JanitorIntervalMinutes int `yaml:"janitor_interval_minutes"`
	StaleCeilingHours      int `yaml:"stale_ceiling_hours"`
}

// StorageConfig selects and configures the record store.
type StorageConfig struct {
	// Type: "postgres" or "hybrid" (postgres + redis read-through cache).
	Type        string      `yaml:"type"`
	PostgresDSN string      `yaml:"postgres_dsn"`
	Redis       RedisConfig `yaml:"redis"`
}

// RedisConfig configures the record cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLHours int    `yaml:"ttl_hours"`
}

// EventsConfig selects the completed-run event publisher.
type EventsConfig struct {
	// Type: "memory", "rabbitmq" or "none".
	Type       string         `yaml:"type"`
	BufferSize int            `yaml:"buffer_size"`
	RabbitMQ   RabbitMQConfig `yaml:"rabbitmq"`
}

// RabbitMQConfig configures the AMQP publisher.
type RabbitMQConfig struct {
	URL       string `yaml:"url"`
	QueueName string `yaml:"queue_name"`
}

// TelegramConfig configures the best-effort notifier. Empty token disables it.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// AnalysisConfig tunes the GPT summarizer and its local fallback.
type AnalysisConfig struct {
	Model          string `yaml:"model"`
	MaxInputChars  int    `yaml:"max_input_chars"`
	FallbackChars  int    `yaml:"fallback_chars"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate fills defaults and rejects unusable settings.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}

	if len(c.Streams) == 0 {
		return fmt.Errorf("at least one stream must be configured")
	}
	seen := make(map[string]bool, len(c.Streams))
	for i := range c.Streams {
		s := &c.Streams[i]
		if s.ID == "" || s.URL == "" {
			return fmt.Errorf("stream %d: id and url are required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate stream id: %s", s.ID)
		}
		seen[s.ID] = true
		if s.Duration <= 0 {
			s.Duration = 300
		}
		if s.Language == "" {
			s.Language = "fr"
		}
	}

	if c.Capture.SegmentThreshold <= 0 {
		c.Capture.SegmentThreshold = 600
	}
	if c.Capture.WindowSeconds <= 0 {
		c.Capture.WindowSeconds = 300
	}
	if c.Capture.ConcatMaxSegments <= 0 {
		c.Capture.ConcatMaxSegments = 3
	}
	if c.Capture.SizeFloorBytes <= 0 {
		c.Capture.SizeFloorBytes = 10 * 1024
	}
	if c.Capture.TimeoutGraceSeconds <= 0 {
		c.Capture.TimeoutGraceSeconds = 30
	}
	if c.Capture.SegmentConcurrency <= 0 {
		c.Capture.SegmentConcurrency = 3
	}

	if c.Status.JanitorIntervalMinutes <= 0 {
		c.Status.JanitorIntervalMinutes = 10
	}
	if c.Status.StaleCeilingHours <= 0 {
		c.Status.StaleCeilingHours = 2
	}

	switch c.Storage.Type {
	case "":
		c.Storage.Type = "postgres"
	case "postgres", "hybrid":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required")
	}
	if c.Storage.Type == "hybrid" && c.Storage.Redis.Addr == "" {
		return fmt.Errorf("storage.redis.addr is required for hybrid storage")
	}
	if c.Storage.Redis.TTLHours <= 0 {
		c.Storage.Redis.TTLHours = 48
	}

	switch c.Events.Type {
	case "":
		c.Events.Type = "memory"
	case "memory", "rabbitmq", "none":
	default:
		return fmt.Errorf("unsupported events type: %s", c.Events.Type)
	}
	if c.Events.BufferSize <= 0 {
		c.Events.BufferSize = 64
	}
	if c.Events.Type == "rabbitmq" && c.Events.RabbitMQ.URL == "" {
		return fmt.Errorf("events.rabbitmq.url is required for rabbitmq events")
	}
	if c.Events.RabbitMQ.QueueName == "" {
		c.Events.RabbitMQ.QueueName = "veille.records"
	}

	if c.Analysis.Model == "" {
		c.Analysis.Model = "gpt-4o-mini"
	}
	if c.Analysis.MaxInputChars <= 0 {
		c.Analysis.MaxInputChars = 12000
	}
	if c.Analysis.FallbackChars <= 0 {
		c.Analysis.FallbackChars = 500
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		c.Analysis.TimeoutSeconds = 60
	}

	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}

	return nil
}
