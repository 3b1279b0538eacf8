package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process-wide settings, read once at startup.
type Config struct {
	OpenAI   *OpenAIConfig   `json:"openai"`
	HTTP     *HTTPConfig     `json:"http"`
	Teacher  *TeacherConfig  `json:"teacher"`
	Database *DatabaseConfig `json:"database"`
	Uploads  *UploadsConfig  `json:"uploads"`
}

// OpenAIConfig selects the models used for each gateway capability.
type OpenAIConfig struct {
	APIKey          string `json:"-"`
	ChatModel       string `json:"chat_model"`
	TTSModel        string `json:"tts_model"`
	TTSVoice        string `json:"tts_voice"`
	TranscribeModel string `json:"transcribe_model"`
	VisionModel     string `json:"vision_model"`
}

type HTTPConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	AllowedOrigins []string      `json:"allowed_origins"`
}

type TeacherConfig struct {
	Password string `json:"-"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type UploadsConfig struct {
	Dir     string `json:"dir"`
	MaxSize int64  `json:"max_size"`
}

// DefaultConfig returns the settings used when no environment overrides exist.
func DefaultConfig() *Config {
	return &Config{
		OpenAI: &OpenAIConfig{
			ChatModel:       "gpt-4o-mini",
			TTSModel:        "tts-1",
			TTSVoice:        "alloy",
			TranscribeModel: "whisper-1",
			VisionModel:     "gpt-4o",
		},
		HTTP: &HTTPConfig{
			Host:           "0.0.0.0",
			Port:           3000,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Teacher: &TeacherConfig{
			Password: "teach123",
		},
		Database: &DatabaseConfig{
			Path: "./dialoglab.db",
		},
		Uploads: &UploadsConfig{
			Dir:     "./uploads",
			MaxSize: 10 * 1024 * 1024,
		},
	}
}

// Load reads configuration from a .env file (if present) and the environment.
// Precedence: environment > .env > defaults.
func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	setString(&cfg.OpenAI.ChatModel, "DIALOGLAB_CHAT_MODEL")
	setString(&cfg.OpenAI.TTSModel, "DIALOGLAB_TTS_MODEL")
	setString(&cfg.OpenAI.TTSVoice, "DIALOGLAB_TTS_VOICE")
	setString(&cfg.OpenAI.TranscribeModel, "DIALOGLAB_TRANSCRIBE_MODEL")
	setString(&cfg.OpenAI.VisionModel, "DIALOGLAB_VISION_MODEL")

	setString(&cfg.HTTP.Host, "DIALOGLAB_HTTP_HOST")
	setPort(&cfg.HTTP.Port, "PORT")
	setPort(&cfg.HTTP.Port, "DIALOGLAB_HTTP_PORT")
	setDuration(&cfg.HTTP.ReadTimeout, "DIALOGLAB_HTTP_READ_TIMEOUT")
	setDuration(&cfg.HTTP.WriteTimeout, "DIALOGLAB_HTTP_WRITE_TIMEOUT")
	if origins := os.Getenv("DIALOGLAB_ALLOWED_ORIGINS"); origins != "" {
		var parsed []string
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				parsed = append(parsed, origin)
			}
		}
		if len(parsed) > 0 {
			cfg.HTTP.AllowedOrigins = parsed
		}
	}

	setString(&cfg.Teacher.Password, "DIALOGLAB_TEACHER_PASSWORD")
	setString(&cfg.Database.Path, "DIALOGLAB_DATABASE_PATH")
	setString(&cfg.Uploads.Dir, "DIALOGLAB_UPLOAD_DIR")
	if size := os.Getenv("DIALOGLAB_UPLOAD_MAX_SIZE"); size != "" {
		if n, err := strconv.ParseInt(size, 10, 64); err == nil && n > 0 {
			cfg.Uploads.MaxSize = n
		}
	}

	return cfg
}

// Validate checks that the configuration can run a server. The missing API key
// is the one unrecoverable startup condition; everything else has a default.
func (c *Config) Validate() error {
	if c.OpenAI == nil || c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.OpenAI.ChatModel == "" || c.OpenAI.TTSModel == "" || c.OpenAI.TranscribeModel == "" || c.OpenAI.VisionModel == "" {
		return fmt.Errorf("all model identifiers must be set")
	}
	if c.OpenAI.TTSVoice == "" {
		return fmt.Errorf("TTS voice cannot be empty")
	}
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed origins cannot be empty")
	}
	if c.Teacher == nil || c.Teacher.Password == "" {
		return fmt.Errorf("teacher password cannot be empty")
	}
	if c.Database == nil || c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Uploads == nil || c.Uploads.Dir == "" {
		return fmt.Errorf("upload directory cannot be empty")
	}
	if c.Uploads.MaxSize <= 0 {
		return fmt.Errorf("upload max size must be positive")
	}
	return nil
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func setPort(target *int, key string) {
	if value := os.Getenv(key); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			*target = p
		}
	}
}

func setDuration(target *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			*target = d
		}
	}
}
