// Package search exposes the retrieval strategies over the catalog and the
// merger that combines their results. Each strategy is an independent search
// primitive: semantic metadata search, cross-modal visual search, keyword
// search (the last-resort fallback with no embedding dependency), and
// structured filter search.
package search

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/cg-assist/backend/internal/catalog"
)

// DefaultLimit is applied when a caller passes a non-positive result limit.
const DefaultLimit = 10

// Catalog is the slice of the catalog store the strategies need.
type Catalog interface {
	SearchByTextEmbedding(ctx context.Context, emb pgvector.Vector, limit int) ([]catalog.SearchResult, error)
	SearchByVisualEmbedding(ctx context.Context, emb pgvector.Vector, limit int) ([]catalog.SearchResult, error)
	SearchByKeyword(ctx context.Context, keyword string, limit int) ([]catalog.SearchResult, error)
	SearchByFilter(ctx context.Context, c catalog.FilterCriteria, limit int) ([]catalog.SearchResult, error)
}

// TextEmbedder encodes text into the 384-dim metadata space.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) (*pgvector.Vector, error)
}

// VisualEmbedder encodes text or image bytes into the 512-dim visual space.
type VisualEmbedder interface {
	EmbedText(ctx context.Context, text string) (*pgvector.Vector, error)
	EmbedImage(ctx context.Context, image []byte) (*pgvector.Vector, error)
}

// Semantic searches file metadata by text-embedding similarity.
type Semantic struct {
	cat      Catalog
	embedder TextEmbedder
}

// NewSemantic creates a semantic-metadata search strategy.
func NewSemantic(cat Catalog, embedder TextEmbedder) *Semantic {
	return &Semantic{cat: cat, embedder: embedder}
}

// Search embeds the query and ranks embedded files by cosine similarity.
// An embedding failure is terminal for this query; callers fall back to
// keyword search rather than retrying.
func (s *Semantic) Search(ctx context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.cat.SearchByTextEmbedding(ctx, *emb, limit)
}

// Visual searches images, videos, and Blender scenes by cross-modal
// similarity. The query may be a text description or uploaded image bytes.
type Visual struct {
	cat      Catalog
	embedder VisualEmbedder
}

// NewVisual creates a visual search strategy.
func NewVisual(cat Catalog, embedder VisualEmbedder) *Visual {
	return &Visual{cat: cat, embedder: embedder}
}

// SearchText maps a text description into the visual space and ranks all
// visual-embedding-bearing files globally.
func (v *Visual) SearchText(ctx context.Context, description string, limit int) ([]catalog.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	emb, err := v.embedder.EmbedText(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("failed to embed description: %w", err)
	}
	return v.cat.SearchByVisualEmbedding(ctx, *emb, limit)
}

// SearchImage ranks files by similarity to an uploaded image.
func (v *Visual) SearchImage(ctx context.Context, image []byte, limit int) ([]catalog.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	emb, err := v.embedder.EmbedImage(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("failed to embed image: %w", err)
	}
	return v.cat.SearchByVisualEmbedding(ctx, *emb, limit)
}

// Keyword is the substring-match fallback. It has no embedding dependency
// and is always available.
type Keyword struct {
	cat Catalog
}

// NewKeyword creates a keyword search strategy.
func NewKeyword(cat Catalog) *Keyword {
	return &Keyword{cat: cat}
}

// Search matches the keyword case-insensitively against name, path, and
// show, ordered by modification time descending.
func (k *Keyword) Search(ctx context.Context, keyword string, limit int) ([]catalog.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return k.cat.SearchByKeyword(ctx, keyword, limit)
}

// Filter searches by exact-match and range predicates.
type Filter struct {
	cat Catalog
}

// NewFilter creates a structured filter search strategy.
func NewFilter(cat Catalog) *Filter {
	return &Filter{cat: cat}
}

// Search returns all files matching the criteria, newest first.
func (f *Filter) Search(ctx context.Context, c catalog.FilterCriteria, limit int) ([]catalog.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return f.cat.SearchByFilter(ctx, c, limit)
}
