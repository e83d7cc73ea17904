package internal

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestApp creates an App instance with in-memory DB and test config.
// This is shared across multiple test files.
func setupTestApp(t *testing.T) *App {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to open memory db: %v", err)
	}
	// Every pooled connection would otherwise get its own empty :memory: DB.
	db.SetMaxOpenConns(1)

	app := NewApp(db, Config{
		APIKey:     "456",
		MediaDir:   t.TempDir(),
		ListenAddr: ":0",
	})

	if err := app.InitDB(); err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}

	return app
}

// mustIndexVideo inserts a video with the given segments directly through
// the store, bypassing the filesystem scan.
func mustIndexVideo(t *testing.T, app *App, basename string, segments []Segment) int64 {
	t.Helper()
	ctx := context.Background()

	id, err := app.upsertVideo(ctx, Video{
		Basename: basename,
		RelPath:  basename + ".mp4",
		AbsPath:  "/media/" + basename + ".mp4",
		Ext:      ".mp4",
		HasSrt:   len(segments) > 0,
	})
	if err != nil {
		t.Fatalf("upsertVideo(%q) failed: %v", basename, err)
	}

	for i := range segments {
		segments[i].VideoID = id
	}
	if err := app.insertSegmentsBulk(ctx, segments); err != nil {
		t.Fatalf("insertSegmentsBulk(%q) failed: %v", basename, err)
	}
	return id
}
