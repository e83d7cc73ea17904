package internal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDB opens the SQLite database and applies the configured pragmas.
func OpenDB(dbPath string, cfg DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=%d", dbPath, cfg.BusyTimeoutMS)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{}
	if cfg.JournalMode != "" {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA journal_mode=%s", cfg.JournalMode))
	}
	if cfg.Synchronous != "" {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA synchronous=%s", cfg.Synchronous))
	}
	if cfg.TempStore != "" {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA temp_store=%s", cfg.TempStore))
	}
	if cfg.CacheSizeKB > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA cache_size=-%d", cfg.CacheSizeKB))
	}
	if cfg.MmapSizeBytes > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA mmap_size=%d", cfg.MmapSizeBytes))
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// InitDB creates the tables, the FTS5 virtual table, and the triggers that
// keep the FTS index aligned with segments.id.
func (a *App) InitDB() error {
	// Initialization is not tied to a request, so use context.Background().
	ctx := context.Background()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// No-op once the transaction commits.
	defer tx.Rollback()

	schema := `
	CREATE TABLE IF NOT EXISTS videos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		basename TEXT UNIQUE NOT NULL,
		rel_path TEXT NOT NULL,
		abs_path TEXT NOT NULL,
		ext TEXT NOT NULL,
		duration_ms INTEGER,
		has_srt INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS segments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id INTEGER NOT NULL,
		start_ms INTEGER NOT NULL,
		end_ms INTEGER NOT NULL,
		text TEXT NOT NULL,
		FOREIGN KEY(video_id) REFERENCES videos(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_segments_video_start
	ON segments(video_id, start_ms);

	-- FTS5 virtual table indexing segment text, rowid-aligned to segments.id
	CREATE VIRTUAL TABLE IF NOT EXISTS segments_fts USING fts5(
		text,
		content='segments',
		content_rowid='id',
		tokenize='porter'
	);

	-- Triggers to keep the FTS table in sync with segments
	CREATE TRIGGER IF NOT EXISTS segments_ai AFTER INSERT ON segments BEGIN
		INSERT INTO segments_fts(rowid, text) VALUES (new.id, new.text);
	END;
	CREATE TRIGGER IF NOT EXISTS segments_ad AFTER DELETE ON segments BEGIN
		INSERT INTO segments_fts(segments_fts, rowid, text) VALUES ('delete', old.id, old.text);
	END;
	CREATE TRIGGER IF NOT EXISTS segments_au AFTER UPDATE ON segments BEGIN
		INSERT INTO segments_fts(segments_fts, rowid, text) VALUES ('delete', old.id, old.text);
		INSERT INTO segments_fts(rowid, text) VALUES (new.id, new.text);
	END;
	`

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	return tx.Commit()
}

// VerifyFTS verifies that the driver was built with FTS5 support by running
// an integrity check against the virtual table.
func (a *App) VerifyFTS(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, "INSERT INTO segments_fts(segments_fts) VALUES ('integrity-check')"); err != nil {
		return fmt.Errorf("FTS5 is not available: %w", err)
	}
	return nil
}

// upsertVideo inserts or fully replaces the row keyed by basename and
// returns the new row id. Replacing cascades segment deletion through the
// foreign key, which the FTS triggers propagate.
func (a *App) upsertVideo(ctx context.Context, video Video) (int64, error) {
	res, err := a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO videos (basename, rel_path, abs_path, ext, duration_ms, has_srt)
		VALUES (?, ?, ?, ?, ?, ?)`,
		video.Basename, video.RelPath, video.AbsPath, video.Ext, video.DurationMs, video.HasSrt)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert video %q: %w", video.Basename, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read video id for %q: %w", video.Basename, err)
	}
	return id, nil
}

// deleteSegments removes all segments owned by a video.
func (a *App) deleteSegments(ctx context.Context, videoID int64) error {
	if _, err := a.db.ExecContext(ctx, "DELETE FROM segments WHERE video_id = ?", videoID); err != nil {
		return fmt.Errorf("failed to delete segments for video %d: %w", videoID, err)
	}
	return nil
}

// insertSegmentsBulk inserts segments in one transaction with a prepared
// statement. Bulk replace is the only supported segment mutation.
func (a *App) insertSegmentsBulk(ctx context.Context, segments []Segment) error {
	if len(segments) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO segments (video_id, start_ms, end_ms, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement for segments: %w", err)
	}
	defer stmt.Close()

	for _, s := range segments {
		if _, err := stmt.ExecContext(ctx, s.VideoID, s.StartMs, s.EndMs, s.Text); err != nil {
			return fmt.Errorf("failed to insert segment: %w", err)
		}
	}

	return tx.Commit()
}

// listVideos returns all indexed videos with their segment counts, ordered
// by basename.
func (a *App) listVideos(ctx context.Context) ([]FileInfo, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT v.basename, v.ext, v.rel_path, v.has_srt,
		       COALESCE(COUNT(s.id), 0) AS segment_count
		FROM videos v
		LEFT JOIN segments s ON v.id = s.video_id
		GROUP BY v.id, v.basename, v.ext, v.rel_path, v.has_srt
		ORDER BY v.basename`)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	files := make([]FileInfo, 0)
	for rows.Next() {
		var f FileInfo
		if err := rows.Scan(&f.Basename, &f.Ext, &f.RelPath, &f.HasSrt, &f.SegmentCount); err != nil {
			return nil, fmt.Errorf("failed to scan video row: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return files, nil
}

// ListFiles returns all indexed videos with their segment counts, for the
// files endpoint and the CLI listing.
func (a *App) ListFiles(ctx context.Context) ([]FileInfo, error) {
	return a.listVideos(ctx)
}

// clearAll deletes all videos and segments. This is the destructive half of
// a reindex.
func (a *App) clearAll(ctx context.Context) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM segments"); err != nil {
		return fmt.Errorf("failed to clear segments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM videos"); err != nil {
		return fmt.Errorf("failed to clear videos: %w", err)
	}

	return tx.Commit()
}

// retrieveTranscript returns the full transcript of one video, segments
// ordered by start time. Returns ErrNotFound for an unknown basename.
func (a *App) retrieveTranscript(ctx context.Context, basename string) (TranscriptOutput, error) {
	var output TranscriptOutput
	var videoID int64

	row := a.db.QueryRowContext(ctx,
		"SELECT id, basename, rel_path, ext FROM videos WHERE basename = ?", basename)
	err := row.Scan(&videoID, &output.VideoBasename, &output.RelPath, &output.Ext)
	if err == sql.ErrNoRows {
		return TranscriptOutput{}, fmt.Errorf("video %q: %w", basename, ErrNotFound)
	}
	if err != nil {
		return TranscriptOutput{}, fmt.Errorf("failed to retrieve video metadata: %w", err)
	}

	rows, err := a.db.QueryContext(ctx,
		"SELECT start_ms, end_ms, text FROM segments WHERE video_id = ? ORDER BY start_ms", videoID)
	if err != nil {
		return TranscriptOutput{}, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	lines := make([]TranscriptLine, 0)
	for rows.Next() {
		var line TranscriptLine
		if err := rows.Scan(&line.StartMs, &line.EndMs, &line.Text); err != nil {
			return TranscriptOutput{}, fmt.Errorf("failed to scan segment: %w", err)
		}
		line.Timecode = FormatTimecode(line.StartMs)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return TranscriptOutput{}, fmt.Errorf("error during rows iteration: %w", err)
	}

	output.Segments = lines
	return output, nil
}

// segmentRow is one segment joined with its owning video, as consumed by
// the search engine.
type segmentRow struct {
	Basename string
	RelPath  string
	Ext      string
	StartMs  int
	EndMs    int
	Text     string
}

// querySegments runs the prepared FTS query, ordered by relevance rank then
// start time, and returns one page plus the full match count. The count
// rides on the page rows via COUNT(*) OVER(), so an offset at or past the
// last match returns an empty page with total 0, not the real match count.
func (a *App) querySegments(ctx context.Context, ftsQuery, fileFilter string, offset, limit int) ([]segmentRow, int, error) {
	var query strings.Builder
	query.WriteString(`
		SELECT s.start_ms, s.end_ms, s.text, v.basename, v.rel_path, v.ext,
		       COUNT(*) OVER() AS total_count
		FROM segments_fts
		JOIN segments s ON segments_fts.rowid = s.id
		JOIN videos v ON s.video_id = v.id
		WHERE segments_fts MATCH ?`)
	args := []any{ftsQuery}

	if fileFilter != "" {
		query.WriteString(" AND v.basename = ?")
		args = append(args, fileFilter)
	}
	query.WriteString(" ORDER BY segments_fts.rank, s.start_ms LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := a.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("fts query failed: %w", err)
	}
	defer rows.Close()

	var results []segmentRow
	total := 0
	for rows.Next() {
		var r segmentRow
		if err := rows.Scan(&r.StartMs, &r.EndMs, &r.Text, &r.Basename, &r.RelPath, &r.Ext, &total); err != nil {
			return nil, 0, fmt.Errorf("failed to scan search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during rows iteration: %w", err)
	}

	return results, total, nil
}

// scanSegments returns every stored segment (optionally restricted to one
// basename) for the fuzzy fallback's full scan.
func (a *App) scanSegments(ctx context.Context, fileFilter string) ([]segmentRow, error) {
	query := `
		SELECT s.start_ms, s.end_ms, s.text, v.basename, v.rel_path, v.ext
		FROM segments s
		JOIN videos v ON s.video_id = v.id`
	args := []any{}
	if fileFilter != "" {
		query += " WHERE v.basename = ?"
		args = append(args, fileFilter)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan segments: %w", err)
	}
	defer rows.Close()

	var results []segmentRow
	for rows.Next() {
		var r segmentRow
		if err := rows.Scan(&r.StartMs, &r.EndMs, &r.Text, &r.Basename, &r.RelPath, &r.Ext); err != nil {
			return nil, fmt.Errorf("failed to scan segment row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return results, nil
}

// countVideos returns the number of indexed videos, used by the health and
// status endpoints.
func (a *App) countVideos(ctx context.Context) (int, error) {
	var count int
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(id) FROM videos").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count videos: %w", err)
	}
	return count, nil
}
