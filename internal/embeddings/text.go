// Package embeddings provides HTTP clients for the text and visual embedding
// services. Both clients are pure request/response wrappers: a malformed or
// oversized input fails identically on retry, so callers must treat embedding
// errors as terminal for that input and degrade to keyword search.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
)

const (
	// TextDimension is the size of the sentence-embedding space.
	TextDimension = 384
	// VisualDimension is the size of the cross-modal visual space.
	VisualDimension = 512

	defaultMaxInputBytes = 1 << 20
)

var (
	// ErrEmptyInput is returned when the input is empty after trimming.
	ErrEmptyInput = errors.New("embedding input is empty")
	// ErrInputTooLarge is returned when the input exceeds the configured limit.
	ErrInputTooLarge = errors.New("embedding input exceeds size limit")
)

// TextEmbedder generates 384-dimensional text embeddings using an
// Ollama-compatible embeddings endpoint.
type TextEmbedder struct {
	baseURL       string
	model         string
	maxInputBytes int
	httpClient    *http.Client
}

// NewTextEmbedder creates a new text embedder.
func NewTextEmbedder(baseURL, model string, maxInputBytes int) *TextEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "all-minilm"
	}
	if maxInputBytes <= 0 {
		maxInputBytes = defaultMaxInputBytes
	}
	return &TextEmbedder{
		baseURL:       baseURL,
		model:         model,
		maxInputBytes: maxInputBytes,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Embed generates an embedding for the given text.
func (e *TextEmbedder) Embed(ctx context.Context, text string) (*pgvector.Vector, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if len(text) > e.maxInputBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrInputTooLarge, len(text))
	}

	payload := map[string]any{
		"model":  e.model,
		"prompt": text,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embeddings", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding API error: %d - %s", resp.StatusCode, string(body))
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Embedding) != TextDimension {
		return nil, fmt.Errorf("expected %d-dim embedding, got %d", TextDimension, len(result.Embedding))
	}

	vec := pgvector.NewVector(result.Embedding)
	return &vec, nil
}
