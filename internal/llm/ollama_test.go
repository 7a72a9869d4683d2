package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaCallModel(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: "Lisbon"},
		})
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "test-model", time.Second)
	out, err := client.CallModel(context.Background(), "a city", "system", 0.4, 50)

	require.NoError(t, err)
	assert.Equal(t, "Lisbon", out)

	assert.Equal(t, "test-model", got.Model)
	assert.False(t, got.Stream, "streaming must be off")
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "system", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "a city", got.Messages[1].Content)
	assert.Equal(t, 0.4, got.Options.Temperature)
	assert.Equal(t, 50, got.Options.NumPredict)
}

func TestOllamaNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "missing", time.Second)
	_, err := client.CallModel(context.Background(), "p", "s", 0.7, 100)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestOllamaAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Error: "model is loading"})
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "m", time.Second)
	_, err := client.CallModel(context.Background(), "p", "s", 0.7, 100)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is loading")
}

func TestOllamaUnreachable(t *testing.T) {
	// Port 0 is never listening.
	client := NewOllamaClient("http://127.0.0.1:0", "m", 200*time.Millisecond)
	_, err := client.CallModel(context.Background(), "p", "s", 0.7, 100)
	require.Error(t, err)
}
