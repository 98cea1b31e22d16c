package tools

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/cg-assist/backend/internal/catalog"
	"github.com/cg-assist/backend/internal/search"
)

// Tool names. The reasoning prompt and tests refer to these.
const (
	NameSemanticSearch = "search_by_metadata_embedding"
	NameVisualSearch   = "search_by_visual_embedding"
	NameImageSearch    = "search_by_uploaded_image"
	NameKeywordSearch  = "keyword_search"
	NameFilterSearch   = "filter_by_metadata"
	NameAnalytics      = "analytics_query"
	NameFileDetails    = "get_file_details"
)

// Analytics is the catalog's counting surface.
type Analytics interface {
	Stats(ctx context.Context, groupBy string) (*catalog.Stats, error)
}

// Details is the catalog's single-file lookup surface.
type Details interface {
	GetFileDetails(ctx context.Context, fileID int64) (*catalog.FileDetails, error)
}

// Deps collects the strategies and catalog surfaces the default tool set
// wires together.
type Deps struct {
	Semantic  *search.Semantic
	Visual    *search.Visual
	Keyword   *search.Keyword
	Filter    *search.Filter
	Analytics Analytics
	Details   Details
}

// DefaultRegistry builds the registry with the full tool set.
func DefaultRegistry(d Deps) *Registry {
	return NewRegistry(
		semanticSearchTool(d.Semantic),
		visualSearchTool(d.Visual),
		imageSearchTool(d.Visual),
		keywordSearchTool(d.Keyword),
		filterSearchTool(d.Filter),
		analyticsTool(d.Analytics),
		fileDetailsTool(d.Details),
	)
}

func semanticSearchTool(s *search.Semantic) *Tool {
	return &Tool{
		Name:        NameSemanticSearch,
		Description: `semantic text search on file metadata; args: {"query": string, "limit": int} - use for descriptions, keywords, concepts`,
		Validate: func(args Args) error {
			if _, err := requiredQuery(args, "query"); err != nil {
				return err
			}
			_, err := limitArg(args)
			return err
		},
		Run: func(ctx context.Context, args Args) (Payload, error) {
			query, _ := stringArg(args, "query", true)
			limit, _ := limitArg(args)
			results, err := s.Search(ctx, query, limit)
			if err != nil {
				return Payload{}, err
			}
			return Payload{Results: results}, nil
		},
	}
}

func visualSearchTool(v *search.Visual) *Tool {
	return &Tool{
		Name:        NameVisualSearch,
		Description: `cross-modal visual search from a text description; args: {"description": string, "limit": int} - use for what images/videos/scenes look like`,
		Validate: func(args Args) error {
			if _, err := requiredQuery(args, "description"); err != nil {
				return err
			}
			_, err := limitArg(args)
			return err
		},
		Run: func(ctx context.Context, args Args) (Payload, error) {
			description, _ := stringArg(args, "description", true)
			limit, _ := limitArg(args)
			results, err := v.SearchText(ctx, description, limit)
			if err != nil {
				return Payload{}, err
			}
			return Payload{Results: results}, nil
		},
	}
}

func imageSearchTool(v *search.Visual) *Tool {
	return &Tool{
		Name:        NameImageSearch,
		Description: `reverse image search using the uploaded image; args: {"limit": int} - only valid when the user attached an image`,
		Validate: func(args Args) error {
			if _, err := requiredQuery(args, "image_base64"); err != nil {
				return err
			}
			_, err := limitArg(args)
			return err
		},
		Run: func(ctx context.Context, args Args) (Payload, error) {
			encoded, _ := stringArg(args, "image_base64", true)
			image, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return Payload{}, fmt.Errorf("failed to decode image: %w", err)
			}
			limit, _ := limitArg(args)
			results, err := v.SearchImage(ctx, image, limit)
			if err != nil {
				return Payload{}, err
			}
			return Payload{Results: results}, nil
		},
	}
}

func keywordSearchTool(k *search.Keyword) *Tool {
	return &Tool{
		Name:        NameKeywordSearch,
		Description: `substring match on file names, paths, and shows; args: {"query": string, "limit": int} - the fallback when embedding search fails`,
		Validate: func(args Args) error {
			if _, err := requiredQuery(args, "query"); err != nil {
				return err
			}
			_, err := limitArg(args)
			return err
		},
		Run: func(ctx context.Context, args Args) (Payload, error) {
			query, _ := stringArg(args, "query", true)
			limit, _ := limitArg(args)
			results, err := k.Search(ctx, query, limit)
			if err != nil {
				return Payload{}, err
			}
			return Payload{Results: results}, nil
		},
	}
}

func filterSearchTool(f *search.Filter) *Tool {
	return &Tool{
		Name:        NameFilterSearch,
		Description: `filter by exact criteria; args: {"file_type": string, "min_resolution_x": int, "min_resolution_y": int, "extension": string, "show": string, "limit": int} - use for "4K renders", "blend files", "PNG images"`,
		Validate: func(args Args) error {
			fileType, err := stringArg(args, "file_type", false)
			if err != nil {
				return err
			}
			if fileType != "" && !validFileType(fileType) {
				return fmt.Errorf("unknown file_type %q", fileType)
			}
			for _, key := range []string{"min_resolution_x", "min_resolution_y"} {
				if n, err := intArg(args, key, false); err != nil {
					return err
				} else if n < 0 {
					return fmt.Errorf("%s must not be negative", key)
				}
			}
			if _, err := stringArg(args, "extension", false); err != nil {
				return err
			}
			if _, err := stringArg(args, "show", false); err != nil {
				return err
			}
			_, err = limitArg(args)
			return err
		},
		Run: func(ctx context.Context, args Args) (Payload, error) {
			fileType, _ := stringArg(args, "file_type", false)
			extension, _ := stringArg(args, "extension", false)
			show, _ := stringArg(args, "show", false)
			minX, _ := intArg(args, "min_resolution_x", false)
			minY, _ := intArg(args, "min_resolution_y", false)
			limit, _ := limitArg(args)

			criteria := catalog.FilterCriteria{
				FileType:       catalog.FileType(fileType),
				Extension:      extension,
				Show:           show,
				MinResolutionX: minX,
				MinResolutionY: minY,
			}
			results, err := f.Search(ctx, criteria, limit)
			if err != nil {
				return Payload{}, err
			}
			return Payload{Results: results}, nil
		},
	}
}

func analyticsTool(a Analytics) *Tool {
	return &Tool{
		Name:        NameAnalytics,
		Description: `catalog counts and statistics; args: {"group_by": "type"|"show"} - use for "how many", totals, breakdowns`,
		Validate: func(args Args) error {
			groupBy, err := stringArg(args, "group_by", false)
			if err != nil {
				return err
			}
			if groupBy != "" && groupBy != "type" && groupBy != "show" {
				return fmt.Errorf("group_by must be \"type\" or \"show\"")
			}
			return nil
		},
		Run: func(ctx context.Context, args Args) (Payload, error) {
			groupBy, _ := stringArg(args, "group_by", false)
			stats, err := a.Stats(ctx, groupBy)
			if err != nil {
				return Payload{}, err
			}
			return Payload{Stats: stats}, nil
		},
	}
}

func fileDetailsTool(d Details) *Tool {
	return &Tool{
		Name:        NameFileDetails,
		Description: `full metadata for one file; args: {"file_id": int} - use for "tell me about file 123"`,
		Validate: func(args Args) error {
			id, err := intArg(args, "file_id", true)
			if err != nil {
				return err
			}
			if id <= 0 {
				return fmt.Errorf("file_id must be positive")
			}
			return nil
		},
		Run: func(ctx context.Context, args Args) (Payload, error) {
			id, _ := intArg(args, "file_id", true)
			detail, err := d.GetFileDetails(ctx, int64(id))
			if err != nil {
				return Payload{}, err
			}
			return Payload{Detail: detail}, nil
		},
	}
}

// requiredQuery checks a required non-empty string argument.
func requiredQuery(args Args, key string) (string, error) {
	s, err := stringArg(args, key, true)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("argument %s must not be empty", key)
	}
	return s, nil
}

func validFileType(s string) bool {
	switch catalog.FileType(s) {
	case catalog.FileTypeImage, catalog.FileTypeVideo, catalog.FileTypeBlend,
		catalog.FileTypeAudio, catalog.FileTypeCode, catalog.FileTypeSpreadsheet,
		catalog.FileTypeDocument, catalog.FileTypeUnknown:
		return true
	}
	return false
}
