package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StoreBadger = "badger"
	StoreRedis  = "redis"
)

// Config stores runtime configuration.
type Config struct {
	Service ServiceConfig
	Audio   AudioConfig
	Store   StoreConfig
	HTTP    HTTPConfig
	Log     LogConfig
}

type ServiceConfig struct {
	// WebsocketURL seeds the persisted setting when none is stored yet.
	WebsocketURL string
}

type AudioConfig struct {
	RecorderCommand  string
	InputFormat      string
	InputDevice      string
	SourceSampleRate int
	TargetSampleRate int
	BlockSize        int
	TapDir           string
}

type StoreConfig struct {
	Backend       string
	DataDir       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type HTTPConfig struct {
	Addr string
}

type LogConfig struct {
	Level string
}

// Load resolves configuration from an optional .env file, environment
// variables and defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := Config{
		Service: ServiceConfig{
			WebsocketURL: envOrDefault("BRAINWAVE_WEBSOCKET_URL", "ws://localhost:3005/api/v1/ws"),
		},
		Audio: AudioConfig{
			RecorderCommand:  envOrDefault("BRAINWAVE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:      envOrDefault("BRAINWAVE_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:      firstNonEmpty(os.Getenv("BRAINWAVE_AUDIO_INPUT_DEVICE"), os.Getenv("PULSE_SOURCE"), "default"),
			SourceSampleRate: envOrDefaultInt("BRAINWAVE_SOURCE_SAMPLE_RATE", 48000),
			TargetSampleRate: envOrDefaultInt("BRAINWAVE_TARGET_SAMPLE_RATE", 24000),
			BlockSize:        envOrDefaultInt("BRAINWAVE_BLOCK_SIZE", 4096),
			TapDir:           strings.TrimSpace(os.Getenv("BRAINWAVE_TAP_DIR")),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(envOrDefault("BRAINWAVE_STORE", StoreBadger)),
			DataDir:       envOrDefault("BRAINWAVE_DATA_DIR", filepath.Join(home, ".config", "brainwave", "data")),
			RedisAddr:     envOrDefault("BRAINWAVE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("BRAINWAVE_REDIS_PASSWORD"),
			RedisDB:       envOrDefaultInt("BRAINWAVE_REDIS_DB", 0),
		},
		HTTP: HTTPConfig{
			Addr: envOrDefault("BRAINWAVE_HTTP_ADDR", ":3006"),
		},
		Log: LogConfig{
			Level: envOrDefault("BRAINWAVE_LOG_LEVEL", "info"),
		},
	}

	if cfg.Audio.SourceSampleRate <= 0 {
		cfg.Audio.SourceSampleRate = 48000
	}
	if cfg.Audio.TargetSampleRate <= 0 {
		cfg.Audio.TargetSampleRate = 24000
	}
	if cfg.Audio.BlockSize < 256 {
		cfg.Audio.BlockSize = 4096
	}
	if cfg.Store.RedisDB < 0 {
		cfg.Store.RedisDB = 0
	}
	switch cfg.Store.Backend {
	case StoreBadger, StoreRedis:
	default:
		return Config{}, fmt.Errorf("unsupported BRAINWAVE_STORE %q", cfg.Store.Backend)
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
