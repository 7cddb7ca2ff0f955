package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/config"
	"github.com/dgallion1/docchunk/internal/pipeline"
	"github.com/dgallion1/docchunk/internal/store"
)

const testAPIKey = "test-key"

const guide = `# Guide

The guide opens with a short introduction that explains what the reader will learn here.

## Install

Download the archive, unpack it somewhere on your path, and run the binary once to check it.
`

type testEnv struct {
	srv   *Server
	store *store.Store
	orch  *pipeline.Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)

	cfg := config.Config{
		APIKey:         testAPIKey,
		MaxUploadBytes: 1 << 20,
		Chunking:       chunker.Config{MinTokens: 5, MaxTokens: 40, TargetTokens: 20, RespectSectionBoundaries: true},
	}
	ck, err := chunker.New(cfg.Chunking, chunker.WithLogger(log))
	require.NoError(t, err)
	cache, err := pipeline.NewResultCache(8)
	require.NoError(t, err)
	proc := pipeline.NewProcessor(ck, pipeline.WithResultCache(cache), pipeline.WithProcessorLogger(log))

	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{WorkerCount: 2, MaxQueueSize: 10}, proc, st, log)
	orch.Start(context.Background())
	t.Cleanup(func() {
		orch.Stop()
		_ = st.Close()
	})

	return &testEnv{srv: NewServer(orch, st, log, cfg), store: st, orch: orch}
}

type upload struct {
	field, name, content string
}

func multipartRequest(t *testing.T, path string, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, f.content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	return req
}

func authed(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	return req
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = env.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = env.do(authed(http.MethodGet, "/api/documents"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChunkEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t, "/api/chunk", []upload{{"file", "guide.md", guide}}, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool `json:"success"`
		Title   string
		Format  string
		Cached  bool
		Chunks  []struct {
			Text     string `json:"text"`
			Sequence int    `json:"sequence"`
			Hash     string `json:"hash"`
		} `json:"chunks"`
		Outline []struct {
			Title    string            `json:"title"`
			Children []json.RawMessage `json:"children"`
		} `json:"outline"`
		Config chunker.Config `json:"config"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "guide", resp.Title)
	assert.Equal(t, "md", resp.Format)
	assert.False(t, resp.Cached)
	require.NotEmpty(t, resp.Chunks)
	for i, c := range resp.Chunks {
		assert.Equal(t, i, c.Sequence)
		assert.Equal(t, chunker.HashText(c.Text), c.Hash)
	}
	require.Len(t, resp.Outline, 1)
	assert.Equal(t, "Guide", resp.Outline[0].Title)
	assert.Len(t, resp.Outline[0].Children, 1)
	assert.Equal(t, 20, resp.Config.TargetTokens)

	// Same upload again is served from the cache.
	rec = env.do(multipartRequest(t, "/api/chunk", []upload{{"file", "guide.md", guide}}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.True(t, resp.Cached)
}

func TestChunkEndpoint_Overrides(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t, "/api/chunk", []upload{{"file", "guide.md", guide}},
		map[string]string{"target_tokens": "30", "respect_sections": "false"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Config chunker.Config `json:"config"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, 30, resp.Config.TargetTokens)
	assert.False(t, resp.Config.RespectSectionBoundaries)
}

func TestChunkEndpoint_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		files  []upload
		fields map[string]string
		code   int
		errKey string
	}{
		{"missing file", nil, nil, http.StatusBadRequest, "error"},
		{"unsupported type", []upload{{"file", "image.png", "x"}}, nil, http.StatusBadRequest, "error"},
		{"malformed override", []upload{{"file", "a.txt", "text"}}, map[string]string{"min_tokens": "many"}, http.StatusBadRequest, "error"},
		{"invalid config", []upload{{"file", "a.txt", "some text"}}, map[string]string{"overlap_tokens": "20"}, http.StatusUnprocessableEntity, "success"},
		{"no text", []upload{{"file", "blank.txt", "  \n  "}}, nil, http.StatusUnprocessableEntity, "success"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(multipartRequest(t, "/api/chunk", tt.files, tt.fields))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			var body map[string]any
			decode(t, rec, &body)
			assert.Contains(t, body, tt.errKey)
		})
	}
}

func TestChunkEndpoint_ReportsErrorCode(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(multipartRequest(t, "/api/chunk", []upload{{"file", "blank.txt", " "}}, nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Success bool           `json:"success"`
		Error   *chunker.Error `json:"error"`
		Chunks  []any          `json:"chunks"`
	}
	decode(t, rec, &resp)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, chunker.ErrCodeNoTextContent, resp.Error.Code)
	assert.NotNil(t, resp.Chunks)
	assert.Empty(t, resp.Chunks)
}

func waitForJob(t *testing.T, env *testEnv, jobID string) pipeline.JobSnapshot {
	t.Helper()
	var snap pipeline.JobSnapshot
	require.Eventually(t, func() bool {
		rec := env.do(authed(http.MethodGet, "/api/ingest/"+jobID+"/status"))
		if rec.Code != http.StatusOK {
			return false
		}
		decode(t, rec, &snap)
		return snap.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return snap
}

func TestIngestLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t, "/api/ingest", []upload{{"file", "guide.md", guide}},
		map[string]string{"title": "The Guide"}))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	decode(t, rec, &accepted)
	require.NotEmpty(t, accepted.JobID)
	assert.Equal(t, "/api/ingest/"+accepted.JobID+"/status", accepted.PollURL)

	snap := waitForJob(t, env, accepted.JobID)
	require.Equal(t, pipeline.StatusCompleted, snap.Status, "errors: %v", snap.Progress.Errors)
	require.NotEmpty(t, snap.DocID)

	// List documents.
	rec = env.do(authed(http.MethodGet, "/api/documents"))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Documents []store.Document `json:"documents"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "The Guide", list.Documents[0].Title)

	// Chunks.
	rec = env.do(authed(http.MethodGet, "/api/documents/"+snap.DocID+"/chunks"))
	require.Equal(t, http.StatusOK, rec.Code)
	var chunks struct {
		Document store.Document      `json:"document"`
		Chunks   []store.StoredChunk `json:"chunks"`
	}
	decode(t, rec, &chunks)
	assert.Equal(t, snap.DocID, chunks.Document.ID)
	assert.Len(t, chunks.Chunks, snap.Progress.TotalChunks)

	// Lookup by chunk hash.
	require.NotEmpty(t, chunks.Chunks)
	first := chunks.Chunks[0]
	rec = env.do(authed(http.MethodGet, "/api/chunks/"+first.Hash))
	require.Equal(t, http.StatusOK, rec.Code)
	var byHash struct {
		Chunks []store.StoredChunk `json:"chunks"`
	}
	decode(t, rec, &byHash)
	require.Len(t, byHash.Chunks, 1)
	assert.Equal(t, snap.DocID, byHash.Chunks[0].DocID)
	assert.Equal(t, first.Text, byHash.Chunks[0].Text)

	// Re-ingesting the same bytes is skipped.
	rec = env.do(multipartRequest(t, "/api/ingest", []upload{{"file", "copy.md", guide}}, nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	decode(t, rec, &accepted)
	dup := waitForJob(t, env, accepted.JobID)
	assert.Equal(t, pipeline.StatusDupSkipped, dup.Status)
	assert.Equal(t, snap.DocID, dup.DocID)

	// Stats.
	rec = env.do(authed(http.MethodGet, "/api/stats/chunking"))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Chunking pipeline.StatsSnapshot `json:"chunking"`
		Store    store.Totals           `json:"store"`
	}
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.Chunking.Count)
	assert.Equal(t, 1, stats.Store.Documents)

	// Delete.
	rec = env.do(authed(http.MethodDelete, "/api/documents/"+snap.DocID))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(authed(http.MethodDelete, "/api/documents/"+snap.DocID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(authed(http.MethodGet, "/api/documents/"+snap.DocID+"/chunks"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngestStatus_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(authed(http.MethodGet, "/api/ingest/nope/status"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatchIngest(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t, "/api/ingest/batch", []upload{
		{"files", "a.txt", "First document with several plain words."},
		{"files", "b.md", guide},
		{"files", "c.exe", "binary"},
	}, nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp struct {
		Jobs []struct {
			Filename string `json:"filename"`
			JobID    string `json:"job_id"`
			Error    string `json:"error"`
		} `json:"jobs"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Jobs, 3)
	assert.NotEmpty(t, resp.Jobs[0].JobID)
	assert.NotEmpty(t, resp.Jobs[1].JobID)
	assert.Empty(t, resp.Jobs[2].JobID)
	assert.Contains(t, resp.Jobs[2].Error, "unsupported")

	for _, j := range resp.Jobs[:2] {
		assert.Equal(t, pipeline.StatusCompleted, waitForJob(t, env, j.JobID).Status)
	}

	rec = env.do(multipartRequest(t, "/api/ingest/batch", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDocuments_BadPaging(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(authed(http.MethodGet, "/api/documents?limit=-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd.md": "passwd.md",
		`C:\docs\notes.txt`:   "notes.txt",
		"":                    "unnamed",
		"..":                  "unnamed",
		"a..b.txt":            "a_b.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), "input %q", in)
	}
}
