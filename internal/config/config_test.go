package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "syndata.db", cfg.DBPath)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaHost)
	assert.Equal(t, "llama3.2", cfg.OllamaModel)
	assert.Equal(t, 60*time.Second, cfg.OllamaTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SYNDATA_DB", "/tmp/custom.db")
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")
	t.Setenv("OLLAMA_MODEL", "mistral")
	t.Setenv("OLLAMA_TIMEOUT_SECONDS", "120")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.Equal(t, "http://ollama:11434", cfg.OllamaHost)
	assert.Equal(t, "mistral", cfg.OllamaModel)
	assert.Equal(t, 2*time.Minute, cfg.OllamaTimeout)
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	t.Setenv("OLLAMA_TIMEOUT_SECONDS", "soon")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("OLLAMA_TIMEOUT_SECONDS", "-5")
	_, err = Load()
	require.Error(t, err)
}
