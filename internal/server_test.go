package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func setupTestServer(t *testing.T) (*App, *httptest.Server) {
	t.Helper()
	app := setupTestApp(t)
	mux := http.NewServeMux()
	app.InitServerEndpoints(mux)
	ts := httptest.NewServer(CorsMiddleware(mux))
	t.Cleanup(func() {
		ts.Close()
		app.db.Close()
	})
	return app, ts
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return out
}

func TestServer_SearchEndpoint(t *testing.T) {
	app, ts := setupTestServer(t)
	mustIndexVideo(t, app, "movie", []Segment{
		{StartMs: 90500, EndMs: 92000, Text: "the quick brown fox"},
	})

	resp, err := ts.Client().Get(ts.URL + "/api/search?q=fox")
	if err != nil {
		t.Fatalf("GET /api/search failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeBody[SearchResponse](t, resp)
	if body.Total != 1 || len(body.Items) != 1 {
		t.Fatalf("body = %+v, want one result", body)
	}
	item := body.Items[0]
	if item.VideoBasename != "movie" || item.Timecode != "00:01:30" {
		t.Errorf("item = %+v, want movie at 00:01:30", item)
	}
}

func TestServer_SearchEmptyQuery(t *testing.T) {
	_, ts := setupTestServer(t)

	for _, q := range []string{"", "%20%20"} {
		resp, err := ts.Client().Get(ts.URL + "/api/search?q=" + q)
		if err != nil {
			t.Fatalf("GET /api/search failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		body := decodeBody[SearchResponse](t, resp)
		if body.Total != 0 || len(body.Items) != 0 {
			t.Errorf("q=%q: body = %+v, want empty result", q, body)
		}
	}
}

func TestServer_FilesEndpoint(t *testing.T) {
	app, ts := setupTestServer(t)
	mustIndexVideo(t, app, "movie", []Segment{{StartMs: 0, EndMs: 1, Text: "line"}})

	resp, err := ts.Client().Get(ts.URL + "/api/files")
	if err != nil {
		t.Fatalf("GET /api/files failed: %v", err)
	}
	files := decodeBody[[]FileInfo](t, resp)
	if len(files) != 1 || files[0].Basename != "movie" || files[0].SegmentCount != 1 {
		t.Errorf("files = %+v, want one entry for 'movie'", files)
	}
}

func TestServer_TranscriptEndpoint(t *testing.T) {
	app, ts := setupTestServer(t)
	mustIndexVideo(t, app, "movie", []Segment{{StartMs: 1000, EndMs: 2000, Text: "line"}})

	resp, err := ts.Client().Get(ts.URL + "/api/transcript/movie")
	if err != nil {
		t.Fatalf("GET /api/transcript failed: %v", err)
	}
	out := decodeBody[TranscriptOutput](t, resp)
	if out.VideoBasename != "movie" || len(out.Segments) != 1 {
		t.Errorf("transcript = %+v, want one segment for 'movie'", out)
	}

	resp2, err := ts.Client().Get(ts.URL + "/api/transcript/missing")
	if err != nil {
		t.Fatalf("GET /api/transcript failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown basename", resp2.StatusCode)
	}
}

func TestServer_ReindexRequiresAPIKey(t *testing.T) {
	_, ts := setupTestServer(t)

	req, _ := http.NewRequest("POST", ts.URL+"/api/reindex", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("POST /api/reindex failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without API key", resp.StatusCode)
	}
}

func TestServer_ReindexLifecycleAndConflict(t *testing.T) {
	app, ts := setupTestServer(t)

	// The test media dir is empty but valid, so the run finishes quickly.
	req, _ := http.NewRequest("POST", ts.URL+"/api/reindex", nil)
	req.Header.Set("X-API-Key", app.config.APIKey)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("POST /api/reindex failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	// Conflict path: occupy the single-flight slot, then trigger again.
	for !app.indexing.CompareAndSwap(false, true) {
	}
	req2, _ := http.NewRequest("POST", ts.URL+"/api/reindex", nil)
	req2.Header.Set("X-API-Key", app.config.APIKey)
	resp2, err := ts.Client().Do(req2)
	if err != nil {
		t.Fatalf("second POST /api/reindex failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409 while a run is in flight", resp2.StatusCode)
	}
	app.indexing.Store(false)

	resp3, err := ts.Client().Get(ts.URL + "/api/reindex/status")
	if err != nil {
		t.Fatalf("GET /api/reindex/status failed: %v", err)
	}
	status := decodeBody[IndexStatus](t, resp3)
	if status.State != IndexStateIdle && status.State != IndexStateRunning {
		t.Errorf("status state = %q, want idle or running", status.State)
	}
}

func TestServer_MediaTraversalForbidden(t *testing.T) {
	app, ts := setupTestServer(t)

	// A real file inside the media dir serves fine.
	if err := os.WriteFile(filepath.Join(app.config.MediaDir, "ok.mp4"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	resp, err := ts.Client().Get(ts.URL + "/media/ok.mp4")
	if err != nil {
		t.Fatalf("GET /media/ok.mp4 failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", ct)
	}

	// Dot-dot segments must never escape the media dir.
	req, _ := http.NewRequest("GET", ts.URL+"/media/ok.mp4", nil)
	req.URL.Path = "/media/../../../etc/passwd"
	req.URL.RawPath = ""
	resp2, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("traversal request failed: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode == http.StatusOK {
		t.Error("path traversal request must not be served")
	}

	resp3, err := ts.Client().Get(ts.URL + "/media/absent.mp4")
	if err != nil {
		t.Fatalf("GET /media/absent.mp4 failed: %v", err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for a missing file", resp3.StatusCode)
	}
}

func TestServer_HealthCheck(t *testing.T) {
	_, ts := setupTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health failed: %v", err)
	}
	body := decodeBody[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status ok", body)
	}
}

func TestServer_CORSHeaders(t *testing.T) {
	_, ts := setupTestServer(t)

	req, _ := http.NewRequest("OPTIONS", ts.URL+"/api/search", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("OPTIONS request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for preflight", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
