package internal

import (
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrNotFound is returned when a video basename has no row in the store.
	ErrNotFound = errors.New("not found")
	// ErrBadTimecode is returned by ParseTimecode for anything that is not
	// exactly HH:MM:SS,mmm.
	ErrBadTimecode = errors.New("invalid timecode format")
	// ErrBadMediaDir is returned when a reindex is requested for a media
	// directory that does not exist.
	ErrBadMediaDir = errors.New("media directory does not exist")
	// ErrIndexRunning is returned when a reindex is triggered while another
	// one is still in flight.
	ErrIndexRunning = errors.New("reindex already running")
)

// App holds application-wide dependencies.
type App struct {
	db     *sql.DB
	config Config

	// Reindexing is single-flight: indexing is the gate, statusMu guards
	// the observable status snapshot.
	indexing atomic.Bool
	statusMu sync.Mutex
	status   IndexStatus
}

func NewApp(db *sql.DB, config Config) *App {
	return &App{
		db:     db,
		config: config,
		status: IndexStatus{State: IndexStateIdle},
	}
}

// Video is the identity record for one media file.
type Video struct {
	ID         int64
	Basename   string
	RelPath    string
	AbsPath    string
	Ext        string
	DurationMs sql.NullInt64 // placeholder, never populated (probing is out of scope)
	HasSrt     bool
}

// Segment is one timed subtitle cue. VideoID is zero until the owning
// video row exists.
type Segment struct {
	ID      int64
	VideoID int64
	StartMs int
	EndMs   int
	Text    string
}

// VideoFile is one video file found during a directory scan.
type VideoFile struct {
	AbsPath string
	RelPath string
	Ext     string
}

// MediaMatch pairs a video with its best subtitle candidate.
// SubtitlePath is empty when no subtitle shares the basename.
type MediaMatch struct {
	Basename     string
	Video        VideoFile
	SubtitlePath string
}

// SearchResult is one row of the GET /api/search response.
type SearchResult struct {
	VideoBasename string `json:"videoBasename"`
	RelPath       string `json:"relPath"`
	Ext           string `json:"ext"`
	StartMs       int    `json:"startMs"`
	EndMs         int    `json:"endMs"`
	Timecode      string `json:"timecode"`
	SnippetHTML   string `json:"snippetHtml"`
}

// SearchResponse is the envelope for GET /api/search.
type SearchResponse struct {
	Total int            `json:"total"`
	Items []SearchResult `json:"items"`
}

// FileInfo is one row of the GET /api/files response.
type FileInfo struct {
	Basename     string `json:"basename"`
	Ext          string `json:"ext"`
	RelPath      string `json:"relPath"`
	HasSrt       bool   `json:"hasSrt"`
	SegmentCount int    `json:"segmentCount"`
}

// TranscriptLine is one cue of a full transcript.
type TranscriptLine struct {
	StartMs  int    `json:"startMs"`
	EndMs    int    `json:"endMs"`
	Timecode string `json:"timecode"`
	Text     string `json:"text"`
}

// TranscriptOutput is the GET /api/transcript/{basename} response.
type TranscriptOutput struct {
	VideoBasename string           `json:"videoBasename"`
	RelPath       string           `json:"relPath"`
	Ext           string           `json:"ext"`
	Segments      []TranscriptLine `json:"segments"`
}

const (
	IndexStateIdle    = "idle"
	IndexStateRunning = "running"
)

// IndexSummary reports the outcome of one completed reindex run.
type IndexSummary struct {
	RunID      string    `json:"runId"`
	MediaDir   string    `json:"mediaDir"`
	Indexed    int       `json:"indexed"`
	Skipped    int       `json:"skipped"`
	Total      int       `json:"total"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// IndexStatus is the observable single-flight state of the indexer.
type IndexStatus struct {
	State     string        `json:"state"` // idle | running
	RunID     string        `json:"runId,omitempty"`
	MediaDir  string        `json:"mediaDir,omitempty"`
	StartedAt time.Time     `json:"startedAt,omitzero"`
	LastRun   *IndexSummary `json:"lastRun,omitempty"`
}
