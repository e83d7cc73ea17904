package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// StartReindex validates the media root and schedules a reindex run in the
// background, returning the observable status immediately. At most one run
// may be in flight: a second trigger fails with ErrIndexRunning instead of
// racing the first run's clear-and-rebuild.
func (a *App) StartReindex(mediaDir string) (IndexStatus, error) {
	if err := checkMediaDir(mediaDir); err != nil {
		return IndexStatus{}, err
	}

	if !a.indexing.CompareAndSwap(false, true) {
		return a.IndexStatus(), ErrIndexRunning
	}

	runID := uuid.NewString()
	startedAt := time.Now()

	a.statusMu.Lock()
	a.status.State = IndexStateRunning
	a.status.RunID = runID
	a.status.MediaDir = mediaDir
	a.status.StartedAt = startedAt
	status := a.status
	a.statusMu.Unlock()

	go func() {
		defer a.indexing.Store(false)

		summary, err := a.reindex(context.Background(), mediaDir)
		if err != nil {
			slog.Error("reindex run failed", "runId", runID, "mediaDir", mediaDir, "err", err)
		}
		summary.RunID = runID
		summary.StartedAt = startedAt
		summary.FinishedAt = time.Now()

		a.statusMu.Lock()
		a.status = IndexStatus{State: IndexStateIdle, LastRun: &summary}
		a.statusMu.Unlock()
	}()

	return status, nil
}

// Reindex runs a full rebuild synchronously, holding the single-flight slot
// for the duration. Used by the one-shot CLI index command.
func (a *App) Reindex(ctx context.Context, mediaDir string) (IndexSummary, error) {
	if err := checkMediaDir(mediaDir); err != nil {
		return IndexSummary{}, err
	}
	if !a.indexing.CompareAndSwap(false, true) {
		return IndexSummary{}, ErrIndexRunning
	}
	defer a.indexing.Store(false)

	return a.reindex(ctx, mediaDir)
}

// IndexStatus returns a snapshot of the indexer's single-flight state.
func (a *App) IndexStatus() IndexStatus {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	return a.status
}

func checkMediaDir(mediaDir string) error {
	info, err := os.Stat(mediaDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %q", ErrBadMediaDir, mediaDir)
	}
	return nil
}

// reindex is the destructive rebuild cycle: clear everything, rescan the
// media root, and reload every video with its parsed segments. A failure on
// one video is logged and skipped; the loop never aborts.
func (a *App) reindex(ctx context.Context, mediaDir string) (IndexSummary, error) {
	slog.Info("starting reindex", "mediaDir", mediaDir)

	if err := a.clearAll(ctx); err != nil {
		return IndexSummary{MediaDir: mediaDir}, fmt.Errorf("failed to clear index: %w", err)
	}

	matches, err := ScanRoot(mediaDir)
	if err != nil {
		return IndexSummary{MediaDir: mediaDir}, err
	}

	summary := IndexSummary{MediaDir: mediaDir, Total: len(matches)}
	for _, match := range matches {
		if err := a.indexOne(ctx, match); err != nil {
			slog.Error("failed to index video", "basename", match.Basename, "err", err)
			summary.Skipped++
			continue
		}
		summary.Indexed++
		if summary.Indexed%100 == 0 {
			slog.Info("reindex progress", "indexed", summary.Indexed, "total", summary.Total)
		}
	}

	IndexedVideos.Set(float64(summary.Indexed))
	slog.Info("reindex complete", "indexed", summary.Indexed, "skipped", summary.Skipped, "total", summary.Total)
	return summary, nil
}

// indexOne upserts one video and bulk-loads its parsed subtitle segments.
// A subtitle that cannot be read or yields no valid cues leaves the video
// indexed without segments.
func (a *App) indexOne(ctx context.Context, match MediaMatch) error {
	video := Video{
		Basename: match.Basename,
		RelPath:  match.Video.RelPath,
		AbsPath:  match.Video.AbsPath,
		Ext:      match.Video.Ext,
		HasSrt:   match.SubtitlePath != "",
	}

	videoID, err := a.upsertVideo(ctx, video)
	if err != nil {
		return err
	}

	if match.SubtitlePath == "" {
		return nil
	}

	raw, err := os.ReadFile(match.SubtitlePath)
	if err != nil {
		// The video row stays; only its transcript is missing.
		slog.Error("failed to read subtitle", "path", match.SubtitlePath, "err", err)
		return nil
	}

	segments := ParseSRT(raw)
	for i := range segments {
		segments[i].VideoID = videoID
	}
	if len(segments) == 0 {
		return nil
	}

	if err := a.insertSegmentsBulk(ctx, segments); err != nil {
		return err
	}
	slog.Debug("indexed segments", "basename", match.Basename, "count", len(segments))
	return nil
}
