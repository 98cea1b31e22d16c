package catalog

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// FileType classifies a catalog file.
type FileType string

const (
	FileTypeImage       FileType = "image"
	FileTypeVideo       FileType = "video"
	FileTypeBlend       FileType = "blend"
	FileTypeAudio       FileType = "audio"
	FileTypeCode        FileType = "code"
	FileTypeSpreadsheet FileType = "spreadsheet"
	FileTypeDocument    FileType = "document"
	FileTypeUnknown     FileType = "unknown"
)

// File is one scanned file in the production catalog.
//
// A file with a non-nil TextEmbedding was scanned successfully; a file with a
// non-empty ScanError carries no embedding.
type File struct {
	ID            int64            `json:"id"`
	FileName      string           `json:"file_name"`
	FilePath      string           `json:"file_path"`
	FileType      FileType         `json:"file_type"`
	Extension     string           `json:"extension,omitempty"`
	FileSize      int64            `json:"file_size"`
	Show          string           `json:"show,omitempty"`
	CreatedDate   time.Time        `json:"created_date"`
	ModifiedDate  time.Time        `json:"modified_date"`
	ScannedDate   *time.Time       `json:"scanned_date,omitempty"`
	TextEmbedding *pgvector.Vector `json:"-"`
	ScanError     string           `json:"scan_error,omitempty"`
}

// ImageInfo extends an image file with resolution, thumbnail, and visual embedding.
type ImageInfo struct {
	FileID          int64            `json:"file_id"`
	Width           int              `json:"width"`
	Height          int              `json:"height"`
	ThumbnailPath   string           `json:"-"`
	VisualEmbedding *pgvector.Vector `json:"-"`
}

// VideoInfo extends a video file.
type VideoInfo struct {
	FileID          int64            `json:"file_id"`
	Width           int              `json:"width"`
	Height          int              `json:"height"`
	DurationSeconds float64          `json:"duration_seconds"`
	ThumbnailPath   string           `json:"-"`
	VisualEmbedding *pgvector.Vector `json:"-"`
}

// BlendInfo extends a Blender scene file.
type BlendInfo struct {
	FileID          int64            `json:"file_id"`
	ResolutionX     int              `json:"resolution_x"`
	ResolutionY     int              `json:"resolution_y"`
	RenderEngine    string           `json:"render_engine,omitempty"`
	ThumbnailPath   string           `json:"-"`
	VisualEmbedding *pgvector.Vector `json:"-"`
}

// AudioInfo extends an audio file.
type AudioInfo struct {
	FileID          int64   `json:"file_id"`
	DurationSeconds float64 `json:"duration_seconds"`
	Bitrate         int     `json:"bitrate"`
	Channels        int     `json:"channels"`
}

// CodeInfo extends a source code file.
type CodeInfo struct {
	FileID    int64  `json:"file_id"`
	Language  string `json:"language,omitempty"`
	LineCount int    `json:"line_count"`
}

// SearchResult is the normalized projection every retrieval strategy returns.
// Similarity is in [0,1] (1 = identical) for vector searches and nil for
// keyword/filter matches, which are ranked by recency instead.
type SearchResult struct {
	FileID        int64      `json:"file_id"`
	FileName      string     `json:"file_name"`
	FilePath      string     `json:"file_path"`
	FileType      FileType   `json:"file_type"`
	Extension     string     `json:"extension,omitempty"`
	FileSize      int64      `json:"file_size,omitempty"`
	Show          string     `json:"show,omitempty"`
	ModifiedDate  time.Time  `json:"modified_date"`
	Width         int        `json:"width,omitempty"`
	Height        int        `json:"height,omitempty"`
	ThumbnailPath string     `json:"-"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	Similarity    *float64   `json:"similarity,omitempty"`
}

// FileDetails is the full record for one file, including whichever typed
// extension exists for it.
type FileDetails struct {
	File  File       `json:"file"`
	Image *ImageInfo `json:"image,omitempty"`
	Video *VideoInfo `json:"video,omitempty"`
	Blend *BlendInfo `json:"blend,omitempty"`
	Audio *AudioInfo `json:"audio,omitempty"`
	Code  *CodeInfo  `json:"code,omitempty"`
}

// Stats holds catalog counts for analytics queries.
type Stats struct {
	TotalFiles int64            `json:"total_files"`
	GroupBy    string           `json:"group_by,omitempty"`
	Counts     map[string]int64 `json:"counts,omitempty"`
}
