package embeddings

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

	"github.com/pgvector/pgvector-go"
)

// VisualEmbedder generates 512-dimensional CLIP embeddings via a self-hosted
// model service. Text and images map into the same space, which is what makes
// text-to-image search work.
type VisualEmbedder struct {
	baseURL       string
	maxInputBytes int
	httpClient    *http.Client
}

// NewVisualEmbedder creates a new visual embedder.
func NewVisualEmbedder(baseURL string, maxInputBytes int) *VisualEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	if maxInputBytes <= 0 {
		maxInputBytes = defaultMaxInputBytes
	}
	return &VisualEmbedder{
		baseURL:       baseURL,
		maxInputBytes: maxInputBytes,
		httpClient:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// EmbedText encodes a text description into the visual space.
func (e *VisualEmbedder) EmbedText(ctx context.Context, text string) (*pgvector.Vector, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if len(text) > e.maxInputBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrInputTooLarge, len(text))
	}
	return e.post(ctx, "/embed/text", map[string]any{"text": text})
}

// EmbedImage encodes raw image bytes into the visual space.
func (e *VisualEmbedder) EmbedImage(ctx context.Context, image []byte) (*pgvector.Vector, error) {
	if len(image) == 0 {
		return nil, ErrEmptyInput
	}
	if len(image) > e.maxInputBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrInputTooLarge, len(image))
	}
	encoded := base64.StdEncoding.EncodeToString(image)
	return e.post(ctx, "/embed/image", map[string]any{"image_base64": encoded})
}

func (e *VisualEmbedder) post(ctx context.Context, path string, payload map[string]any) (*pgvector.Vector, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(jsonData))
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
	if len(result.Embedding) != VisualDimension {
		return nil, fmt.Errorf("expected %d-dim embedding, got %d", VisualDimension, len(result.Embedding))
	}

	vec := pgvector.NewVector(result.Embedding)
	return &vec, nil
}
