// Package config reads runtime configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the binary needs from the environment.
type Config struct {
	// DBPath is the SQLite database file. Flags override it.
	DBPath string

	// OllamaHost is the base URL of the Ollama server used for llm_prompt
	// rules.
	OllamaHost string

	// OllamaModel is the model tag requested from Ollama.
	OllamaModel string

	// OllamaTimeout bounds a single model call.
	OllamaTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win over the file.
func Load() (Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := Config{
		DBPath:      getEnv("SYNDATA_DB", "syndata.db"),
		OllamaHost:  getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel: getEnv("OLLAMA_MODEL", "llama3.2"),
	}

	timeout := getEnv("OLLAMA_TIMEOUT_SECONDS", "60")
	secs, err := strconv.Atoi(timeout)
	if err != nil || secs <= 0 {
		return Config{}, fmt.Errorf("invalid OLLAMA_TIMEOUT_SECONDS %q", timeout)
	}
	cfg.OllamaTimeout = time.Duration(secs) * time.Second

	return cfg, nil
}

// getEnv returns the value of key or fallback when unset or empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
