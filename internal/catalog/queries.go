package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// ErrNotFound is returned when a lookup matches no file.
var ErrNotFound = errors.New("file not found")

// resultColumns is the shared projection every search query returns. The
// typed extension tables are joined so resolution and thumbnail come along
// when they exist.
const resultColumns = `
	f.id, f.file_name, f.file_path, f.file_type, COALESCE(f.extension, ''),
	f.file_size, COALESCE(f.show, ''), f.modified_date,
	COALESCE(img.width, vid.width, bf.resolution_x, 0) AS width,
	COALESCE(img.height, vid.height, bf.resolution_y, 0) AS height,
	COALESCE(img.thumbnail_path, vid.thumbnail_path, bf.thumbnail_path, '') AS thumbnail_path`

const resultJoins = `
	LEFT JOIN images img ON f.id = img.file_id
	LEFT JOIN videos vid ON f.id = vid.file_id
	LEFT JOIN blend_files bf ON f.id = bf.file_id`

func scanResult(row pgx.Rows, withSimilarity bool) (SearchResult, error) {
	var r SearchResult
	dest := []any{
		&r.FileID, &r.FileName, &r.FilePath, &r.FileType, &r.Extension,
		&r.FileSize, &r.Show, &r.ModifiedDate, &r.Width, &r.Height,
		&r.ThumbnailPath,
	}
	if withSimilarity {
		var sim float64
		if err := row.Scan(append(dest, &sim)...); err != nil {
			return r, err
		}
		r.Similarity = clamp(sim)
		return r, nil
	}
	err := row.Scan(dest...)
	return r, err
}

// clamp bounds a cosine similarity to [0,1]. Floating point noise can push
// 1 - distance slightly outside the range.
func clamp(sim float64) *float64 {
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return &sim
}

// SearchByTextEmbedding ranks files with a text embedding by cosine distance
// to the query vector. Returns an empty slice when no embedded files exist.
func (db *DB) SearchByTextEmbedding(ctx context.Context, emb pgvector.Vector, limit int) ([]SearchResult, error) {
	sql := `SELECT` + resultColumns + `,
		1 - (f.text_embedding <=> $1) AS similarity
	FROM files f` + resultJoins + `
	WHERE f.text_embedding IS NOT NULL
	ORDER BY f.text_embedding <=> $1, f.modified_date DESC, f.id
	LIMIT $2`

	rows, err := db.pool.Query(ctx, sql, emb, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search by text embedding: %w", err)
	}
	defer rows.Close()

	return collectResults(rows, true)
}

// SearchByVisualEmbedding ranks all visual-embedding-bearing extension types
// (images, videos, blend files) by cosine distance to the query vector. The
// three sets are ranked globally before the limit is applied.
func (db *DB) SearchByVisualEmbedding(ctx context.Context, emb pgvector.Vector, limit int) ([]SearchResult, error) {
	sql := `SELECT * FROM (
		(SELECT f.id, f.file_name, f.file_path, f.file_type, COALESCE(f.extension, ''),
			f.file_size, COALESCE(f.show, ''), f.modified_date,
			img.width, img.height, COALESCE(img.thumbnail_path, ''),
			1 - (img.visual_embedding <=> $1) AS similarity
		FROM files f JOIN images img ON f.id = img.file_id
		WHERE img.visual_embedding IS NOT NULL)
		UNION ALL
		(SELECT f.id, f.file_name, f.file_path, f.file_type, COALESCE(f.extension, ''),
			f.file_size, COALESCE(f.show, ''), f.modified_date,
			vid.width, vid.height, COALESCE(vid.thumbnail_path, ''),
			1 - (vid.visual_embedding <=> $1) AS similarity
		FROM files f JOIN videos vid ON f.id = vid.file_id
		WHERE vid.visual_embedding IS NOT NULL)
		UNION ALL
		(SELECT f.id, f.file_name, f.file_path, f.file_type, COALESCE(f.extension, ''),
			f.file_size, COALESCE(f.show, ''), f.modified_date,
			bf.resolution_x, bf.resolution_y, COALESCE(bf.thumbnail_path, ''),
			1 - (bf.visual_embedding <=> $1) AS similarity
		FROM files f JOIN blend_files bf ON f.id = bf.file_id
		WHERE bf.visual_embedding IS NOT NULL)
	) v
	ORDER BY similarity DESC, modified_date DESC, id
	LIMIT $2`

	rows, err := db.pool.Query(ctx, sql, emb, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search by visual embedding: %w", err)
	}
	defer rows.Close()

	return collectResults(rows, true)
}

// SearchByKeyword matches a literal substring case-insensitively against file
// name, path, and show. Results are ordered by modification time, newest
// first; no similarity score applies.
func (db *DB) SearchByKeyword(ctx context.Context, keyword string, limit int) ([]SearchResult, error) {
	pattern := "%" + escapeLike(keyword) + "%"
	sql := `SELECT` + resultColumns + `
	FROM files f` + resultJoins + `
	WHERE f.file_name ILIKE $1 OR f.file_path ILIKE $1 OR f.show ILIKE $1
	ORDER BY f.modified_date DESC, f.id
	LIMIT $2`

	rows, err := db.pool.Query(ctx, sql, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search by keyword: %w", err)
	}
	defer rows.Close()

	return collectResults(rows, false)
}

// FilterCriteria holds the exact-match and range predicates for a filter search.
type FilterCriteria struct {
	FileType       FileType
	Extension      string
	Show           string
	MinResolutionX int
	MinResolutionY int
}

// SearchByFilter returns all files matching the criteria, ordered by
// modification time descending.
func (db *DB) SearchByFilter(ctx context.Context, c FilterCriteria, limit int) ([]SearchResult, error) {
	var conditions []string
	var params []any

	next := func(v any) string {
		params = append(params, v)
		return fmt.Sprintf("$%d", len(params))
	}

	if c.FileType != "" {
		conditions = append(conditions, "f.file_type = "+next(string(c.FileType)))
	}
	if c.Extension != "" {
		conditions = append(conditions, "f.extension = "+next(c.Extension))
	}
	if c.Show != "" {
		conditions = append(conditions, "f.show = "+next(c.Show))
	}
	if c.MinResolutionX > 0 && c.MinResolutionY > 0 {
		x, y := next(c.MinResolutionX), next(c.MinResolutionY)
		conditions = append(conditions, fmt.Sprintf(
			"((img.width >= %[1]s AND img.height >= %[2]s) OR (vid.width >= %[1]s AND vid.height >= %[2]s) OR (bf.resolution_x >= %[1]s AND bf.resolution_y >= %[2]s))",
			x, y))
	}

	where := "1=1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}

	sql := `SELECT` + resultColumns + `
	FROM files f` + resultJoins + `
	WHERE ` + where + `
	ORDER BY f.modified_date DESC, f.id
	LIMIT ` + next(limit)

	rows, err := db.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to search by filter: %w", err)
	}
	defer rows.Close()

	return collectResults(rows, false)
}

// Stats returns catalog counts, optionally grouped by "type" or "show".
func (db *DB) Stats(ctx context.Context, groupBy string) (*Stats, error) {
	stats := &Stats{GroupBy: groupBy}

	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM files`).Scan(&stats.TotalFiles); err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	var sql string
	switch groupBy {
	case "type":
		sql = `SELECT file_type, COUNT(*) FROM files GROUP BY file_type ORDER BY file_type`
	case "show":
		sql = `SELECT COALESCE(show, 'other'), COUNT(*) FROM files GROUP BY COALESCE(show, 'other') ORDER BY 1`
	case "":
		return stats, nil
	default:
		return nil, fmt.Errorf("unsupported grouping dimension: %q", groupBy)
	}

	rows, err := db.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to group files: %w", err)
	}
	defer rows.Close()

	stats.Counts = make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan group count: %w", err)
		}
		stats.Counts[key] = count
	}
	return stats, rows.Err()
}

// GetFileDetails returns the full record for one file, including its typed
// extension. Returns ErrNotFound when the id does not exist.
func (db *DB) GetFileDetails(ctx context.Context, fileID int64) (*FileDetails, error) {
	var d FileDetails
	err := db.pool.QueryRow(ctx,
		`SELECT id, file_name, file_path, file_type, COALESCE(extension, ''),
			file_size, COALESCE(show, ''), created_date, modified_date,
			scanned_date, COALESCE(scan_error, '')
		 FROM files WHERE id = $1`, fileID,
	).Scan(
		&d.File.ID, &d.File.FileName, &d.File.FilePath, &d.File.FileType,
		&d.File.Extension, &d.File.FileSize, &d.File.Show,
		&d.File.CreatedDate, &d.File.ModifiedDate, &d.File.ScannedDate,
		&d.File.ScanError,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %d: %w", fileID, err)
	}

	switch d.File.FileType {
	case FileTypeImage:
		var info ImageInfo
		err = db.pool.QueryRow(ctx,
			`SELECT file_id, width, height, COALESCE(thumbnail_path, '') FROM images WHERE file_id = $1`, fileID,
		).Scan(&info.FileID, &info.Width, &info.Height, &info.ThumbnailPath)
		if err == nil {
			d.Image = &info
		}
	case FileTypeVideo:
		var info VideoInfo
		err = db.pool.QueryRow(ctx,
			`SELECT file_id, width, height, duration_seconds, COALESCE(thumbnail_path, '') FROM videos WHERE file_id = $1`, fileID,
		).Scan(&info.FileID, &info.Width, &info.Height, &info.DurationSeconds, &info.ThumbnailPath)
		if err == nil {
			d.Video = &info
		}
	case FileTypeBlend:
		var info BlendInfo
		err = db.pool.QueryRow(ctx,
			`SELECT file_id, resolution_x, resolution_y, COALESCE(render_engine, ''), COALESCE(thumbnail_path, '') FROM blend_files WHERE file_id = $1`, fileID,
		).Scan(&info.FileID, &info.ResolutionX, &info.ResolutionY, &info.RenderEngine, &info.ThumbnailPath)
		if err == nil {
			d.Blend = &info
		}
	case FileTypeAudio:
		var info AudioInfo
		err = db.pool.QueryRow(ctx,
			`SELECT file_id, duration_seconds, bitrate, channels FROM audio_files WHERE file_id = $1`, fileID,
		).Scan(&info.FileID, &info.DurationSeconds, &info.Bitrate, &info.Channels)
		if err == nil {
			d.Audio = &info
		}
	case FileTypeCode:
		var info CodeInfo
		err = db.pool.QueryRow(ctx,
			`SELECT file_id, COALESCE(language, ''), line_count FROM code_files WHERE file_id = $1`, fileID,
		).Scan(&info.FileID, &info.Language, &info.LineCount)
		if err == nil {
			d.Code = &info
		}
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get extension for file %d: %w", fileID, err)
	}

	return &d, nil
}

func collectResults(rows pgx.Rows, withSimilarity bool) ([]SearchResult, error) {
	results := []SearchResult{}
	for rows.Next() {
		r, err := scanResult(rows, withSimilarity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// escapeLike escapes LIKE metacharacters so the keyword matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
