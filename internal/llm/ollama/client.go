// Package ollama implements the vision-chat transport against an Ollama chat
// endpoint, local or reached through an ngrok tunnel.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Format   string        `json:"format,omitempty"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatOptions struct {
	Temperature float32 `json:"temperature"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Send posts one page image plus the instruction to {host}/api/chat and
// returns the raw message content. format=json asks the model for strict
// JSON; the adapter still cleans the response because the model does not
// always comply.
func (c *Client) Send(ctx context.Context, image []byte, instruction string) (string, error) {
	start := time.Now()

	body := chatRequest{
		Model:  c.cfg.Model,
		Format: "json",
		Stream: false,
		Messages: []chatMessage{{
			Role:    "user",
			Content: instruction,
			Images:  []string{base64.StdEncoding.EncodeToString(image)},
		}},
		Options: chatOptions{Temperature: c.cfg.Temperature},
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.cfg.Host, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// ngrok serves an interstitial HTML page to unknown clients unless this
	// header is present; without it the tunnel returns non-JSON.
	req.Header.Set("ngrok-skip-browser-warning", "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func(b io.ReadCloser) {
		if cerr := b.Close(); cerr != nil {
			c.logger.Warn("ollama.response_body_close_error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("ollama.chat.response",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("ollama status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return cr.Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
