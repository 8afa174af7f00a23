package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3.2-vision", cfg.LLM.Model)
	assert.Equal(t, float32(0), cfg.LLM.Temperature)
	assert.Equal(t, 120*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 200, cfg.Raster.DPI)
	assert.Equal(t, 85, cfg.Raster.Quality)
	assert.Equal(t, "xlsx", cfg.Export.Format)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_TIMEOUT", "30s")
	t.Setenv("RASTER_DPI", "300")

	cfg := LoadConfig()
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 300, cfg.Raster.DPI)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = ""
	require.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.LLM.Provider = "carrier-pigeon"
	require.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.LLM.Timeout = 700 * time.Second
	require.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.Raster.Quality = 101
	require.Error(t, cfg.Validate())
}
