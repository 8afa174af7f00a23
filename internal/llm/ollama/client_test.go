package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var got chatRequest
	var gotHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		gotHeader = r.Header.Get("ngrok-skip-browser-warning")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"content": `{"tipo_documento": "Original"}`},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{Host: srv.URL, Model: "llama3.2-vision", Timeout: 5 * time.Second}, nil)
	out, err := c.Send(context.Background(), []byte{0xff, 0xd8}, "analiza")
	require.NoError(t, err)

	assert.Equal(t, `{"tipo_documento": "Original"}`, out)
	assert.Equal(t, "true", gotHeader)
	assert.Equal(t, "llama3.2-vision", got.Model)
	assert.Equal(t, "json", got.Format)
	assert.False(t, got.Stream)
	assert.Equal(t, float32(0), got.Options.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "analiza", got.Messages[0].Content)
	require.Len(t, got.Messages[0].Images, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8}), got.Messages[0].Images[0])
}

func TestSend_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{Host: srv.URL}, nil)
	_, err := c.Send(context.Background(), nil, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestSend_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(Config{Host: srv.URL}, nil)
	_, err := c.Send(ctx, nil, "x")
	require.Error(t, err)
}
