package internal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Initializes all server endpoints and any protected middleware
func (a *App) InitServerEndpoints(mux *http.ServeMux) {
	// API key protected routes
	mux.HandleFunc("POST /api/reindex", a.apiKeyMiddleware(a.handleReindex))

	// Public routes
	mux.HandleFunc("GET /api/search", a.handleSearch)
	mux.HandleFunc("GET /api/files", a.handleListFiles)
	mux.HandleFunc("GET /api/transcript/{basename}", a.handleGetTranscript)
	mux.HandleFunc("GET /api/reindex/status", a.handleReindexStatus)
	mux.HandleFunc("GET /api/health", a.handleHealthCheck)
	mux.HandleFunc("GET /media/{path...}", a.handleServeMedia)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /{$}", a.handleRoot)
}

// Checks if the API key is valid. If invalid, returns 401.
func (a *App) apiKeyMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.config.APIKey == "" {
			next(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key != a.config.APIKey {
			http.Error(w, "Forbidden", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// Adds the necessary CORS headers to all responses.
// Accepts any origin.
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

		// Browsers send a preflight OPTIONS request before the actual one.
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Searches all indexed segments. Open
func (a *App) handleSearch(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := r.Context()
	q := r.URL.Query()

	query := q.Get("q")
	fileFilter := q.Get("file")
	fuzzy := q.Get("fuzzy") == "1" || q.Get("fuzzy") == "true"
	offset := parseIntParam(q.Get("offset"), 0, 0, 1<<30)
	limit := parseIntParam(q.Get("limit"), 25, 1, 100)

	// An empty query never touches storage.
	if strings.TrimSpace(query) == "" {
		writeJSON(w, SearchResponse{Total: 0, Items: []SearchResult{}})
		return
	}

	results, total, err := a.Search(ctx, query, fileFilter, offset, limit, fuzzy)
	if err != nil {
		slog.Error("search failed", "q", query, "err", err)
		Http500Errors.Inc()
		writeError(w, http.StatusInternalServerError, "Failed to search segments")
		return
	}

	RequestsProcessingDuration.Observe(time.Since(startTime).Seconds())
	SearchProcessingDuration.Observe(time.Since(startTime).Seconds())
	TotalRequests.Inc()
	SearchRequests.Inc()
	writeJSON(w, SearchResponse{Total: total, Items: results})
}

// Returns a list of all indexed video files with metadata. Open
func (a *App) handleListFiles(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := r.Context()

	files, err := a.listVideos(ctx)
	if err != nil {
		slog.Error("failed to list videos", "err", err)
		Http500Errors.Inc()
		writeError(w, http.StatusInternalServerError, "Failed to list files")
		return
	}

	RequestsProcessingDuration.Observe(time.Since(startTime).Seconds())
	TotalRequests.Inc()
	ListFilesRequests.Inc()
	writeJSON(w, files)
}

// Returns the full transcript of one video in json format. Open
func (a *App) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := r.Context()
	basename := r.PathValue("basename")
	if basename == "" {
		Http400Errors.Inc()
		writeError(w, http.StatusBadRequest, "Video basename is required")
		return
	}

	transcript, err := a.retrieveTranscript(ctx, basename)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			Http400Errors.Inc()
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		slog.Error("failed to retrieve transcript", "basename", basename, "err", err)
		Http500Errors.Inc()
		writeError(w, http.StatusInternalServerError, "Failed to retrieve transcript")
		return
	}

	RequestsProcessingDuration.Observe(time.Since(startTime).Seconds())
	GetTranscriptProcessingDuration.Observe(time.Since(startTime).Seconds())
	TotalRequests.Inc()
	GetTranscriptRequests.Inc()
	writeJSON(w, transcript)
}

// Schedules a full reindex in the background. Protected by API key.
func (a *App) handleReindex(w http.ResponseWriter, r *http.Request) {
	ReindexRequests.Inc()
	mediaDir := a.config.MediaDir
	if mediaDir == "" {
		Http500Errors.Inc()
		writeError(w, http.StatusInternalServerError, "media_dir is not configured")
		return
	}

	status, err := a.StartReindex(mediaDir)
	if err != nil {
		switch {
		case errors.Is(err, ErrIndexRunning):
			ReindexRejected.Inc()
			Http400Errors.Inc()
			writeError(w, http.StatusConflict, "Reindex already running")
		case errors.Is(err, ErrBadMediaDir):
			Http400Errors.Inc()
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("failed to start reindex", "mediaDir", mediaDir, "err", err)
			Http500Errors.Inc()
			writeError(w, http.StatusInternalServerError, "Failed to start reindex")
		}
		return
	}

	TotalRequests.Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, status)
}

// Returns the observable single-flight state of the indexer. Open
func (a *App) handleReindexStatus(w http.ResponseWriter, r *http.Request) {
	TotalRequests.Inc()
	writeJSON(w, a.IndexStatus())
}

// Serves media file bytes from the media directory, with range support. Open
func (a *App) handleServeMedia(w http.ResponseWriter, r *http.Request) {
	if a.config.MediaDir == "" {
		Http500Errors.Inc()
		writeError(w, http.StatusInternalServerError, "media_dir is not configured")
		return
	}

	base, err := filepath.Abs(a.config.MediaDir)
	if err != nil {
		Http500Errors.Inc()
		writeError(w, http.StatusInternalServerError, "Failed to resolve media directory")
		return
	}

	// Clean against the root so ".." cannot escape the media directory.
	requested := filepath.Join(base, filepath.Clean("/"+r.PathValue("path")))
	if requested != base && !strings.HasPrefix(requested, base+string(filepath.Separator)) {
		Http400Errors.Inc()
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	info, err := os.Stat(requested)
	if err != nil || info.IsDir() {
		Http400Errors.Inc()
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	if strings.ToLower(filepath.Ext(requested)) == ".mp4" {
		w.Header().Set("Content-Type", "video/mp4")
	} else {
		w.Header().Set("Content-Type", "video/x-msvideo")
	}

	TotalRequests.Inc()
	http.ServeFile(w, r, requested)
}

// Returns a simple OK after pinging the store. Open
func (a *App) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := a.db.PingContext(ctx); err != nil {
		Http500Errors.Inc()
		slog.Error("failed to ping database", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	count, err := a.countVideos(ctx)
	if err != nil {
		Http500Errors.Inc()
		slog.Error("failed to count videos", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to get status")
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "videoCount": count})
}

// Small banner so hitting the root is not a 404. Open
func (a *App) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"service": "srt-search-server"})
}

func parseIntParam(s string, def, lo, hi int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// --- HTTP Helper Functions ---

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "err", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]string{"error": message})
}
