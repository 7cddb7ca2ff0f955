package api

import (
	"net/http"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/doctree"
)

type chunkResponse struct {
	Filename    string             `json:"filename"`
	Title       string             `json:"title"`
	Format      string             `json:"format"`
	ContentHash string             `json:"content_hash"`
	PageCount   int                `json:"page_count"`
	WordCount   int                `json:"word_count"`
	Cached      bool               `json:"cached"`
	Outline     []*doctree.DocNode `json:"outline"`
	chunker.Result
}

// handleChunk parses and chunks one upload synchronously. Nothing is stored.
func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	overrides, err := parseOverrides(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	filename, data, ok := s.readFormFile(w, r)
	if !ok {
		return
	}

	o, err := s.orchestrator.Processor().Process(data, filename, overrides)
	if err != nil {
		s.log.Warn("parse failed", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	resp := chunkResponse{
		Filename:    filename,
		Title:       o.Document.Title,
		Format:      o.Document.Format,
		ContentHash: o.ContentHash,
		PageCount:   o.Document.PageCount,
		WordCount:   o.Document.WordCount,
		Cached:      o.Cached,
		Outline:     o.Outline,
		Result:      o.Result,
	}
	if resp.Outline == nil {
		resp.Outline = []*doctree.DocNode{}
	}

	code := http.StatusOK
	if !o.Result.Success {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, resp)
}
