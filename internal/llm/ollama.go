package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single chat call. Model calls that exceed it
// surface as a retryable failure rather than hanging the generation loop.
const DefaultTimeout = 60 * time.Second

// OllamaClient is a thin wrapper around the Ollama chat API. It focuses on
// the call itself; retry policy is applied by WithRetry.
type OllamaClient struct {
	host   string
	model  string
	client *http.Client
	logger *slog.Logger
}

// NewOllamaClient creates a client for the given host (e.g.
// "http://localhost:11434") and model name.
func NewOllamaClient(host, model string, timeout time.Duration) *OllamaClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OllamaClient{
		host:   host,
		model:  model,
		client: &http.Client{Timeout: timeout},
		logger: slog.Default().With("component", "ollama"),
	}
}

// Name identifies the backing model for logs.
func (o *OllamaClient) Name() string { return "ollama:" + o.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Options  chatOptions   `json:"options"`
	Stream   bool          `json:"stream"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// CallModel sends one non-streaming chat request.
func (o *OllamaClient) CallModel(ctx context.Context, prompt, systemPrompt string, temperature float64, maxTokens int) (string, error) {
	start := time.Now()

	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Options: chatOptions{Temperature: temperature, NumPredict: maxTokens},
		Stream:  false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama chat: status %d: %s", resp.StatusCode, truncate(data, 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama chat: %s", parsed.Error)
	}

	o.logger.Debug("model call complete",
		"model", o.model,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return parsed.Message.Content, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
