package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	LLM    LLMConfig
	Raster RasterConfig
	Export ExportConfig
}

// LLMConfig holds LLM endpoint configuration
type LLMConfig struct {
	Provider    string // "ollama" or "openai"
	OllamaHost  string
	Model       string
	APIKey      string // openai-compatible endpoints only
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// RasterConfig holds PDF rasterization configuration
type RasterConfig struct {
	DPI      int
	Quality  int // JPEG quality 1..100
	MaxEdge  int // downscale pages whose longest edge exceeds this, 0 = off
	MaxPages int // 0 = no limit
}

// ExportConfig holds export artifact configuration
type ExportConfig struct {
	Format string // xlsx, csv, sqlite
	Out    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "ollama"),
			OllamaHost:  getEnv("OLLAMA_HOST", "http://127.0.0.1:11434"),
			Model:       getEnv("LLM_MODEL", "llama3.2-vision"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 120*time.Second),
		},
		Raster: RasterConfig{
			DPI:      getEnvAsInt("RASTER_DPI", 200),
			Quality:  getEnvAsInt("RASTER_QUALITY", 85),
			MaxEdge:  getEnvAsInt("RASTER_MAX_EDGE", 2048),
			MaxPages: getEnvAsInt("RASTER_MAX_PAGES", 0),
		},
		Export: ExportConfig{
			Format: getEnv("EXPORT_FORMAT", "xlsx"),
			Out:    getEnv("EXPORT_OUT", ""),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "ollama":
		if c.LLM.OllamaHost == "" {
			return NewAppError("CONFIG_ERROR", "OLLAMA_HOST is required", ErrInvalidInput)
		}
	case "openai":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be ollama or openai", ErrInvalidInput)
	}
	if c.LLM.Timeout <= 0 || c.LLM.Timeout > 600*time.Second {
		return NewAppError("CONFIG_ERROR", "LLM_TIMEOUT must be in (0s, 600s]", ErrInvalidInput)
	}
	if c.Raster.Quality < 1 || c.Raster.Quality > 100 {
		return NewAppError("CONFIG_ERROR", "RASTER_QUALITY must be 1..100", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
