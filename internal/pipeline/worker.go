package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/store"
)

// DocumentStore is the persistence the worker needs.
type DocumentStore interface {
	FindByContentHash(ctx context.Context, hash string) (*store.Document, error)
	SaveDocument(ctx context.Context, doc *store.Document, chunks []doctree.Chunk) error
}

// Worker processes a single document job.
type Worker struct {
	proc  *Processor
	store DocumentStore
	log   *slog.Logger
}

func NewWorker(proc *Processor, st DocumentStore, log *slog.Logger) *Worker {
	return &Worker{proc: proc, store: st, log: log}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	fail := func(phase, msg string) {
		job.AddError(msg)
		job.SetStatus(StatusFailed, phase)
	}

	// Phase 1: Dedup check on the raw bytes.
	job.SetStatus(StatusParsing, "dedup")
	existing, err := w.findExisting(ctx, log, job.ContentHash)
	if err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
	} else if existing != nil {
		log.Info("duplicate document, skipping", "existing_doc_id", existing.ID)
		job.SetDocID(existing.ID)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	// Phase 2: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, err := w.proc.Parse(job.FileData(), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		fail("parsing", fmt.Sprintf("parse: %s", err))
		return
	}
	if job.Title != "" {
		doc.Title = job.Title
	}

	// Phase 3: Structure
	job.SetStatus(StatusStructuring, "structuring")
	w.proc.Structure(doc)
	job.SetPageCount(doc.PageCount)

	// Phase 4: Chunk
	job.SetStatus(StatusChunking, "chunking")
	res := w.proc.Chunk(doc, job.Overrides)
	if !res.Success {
		log.Warn("chunking failed", "code", res.Error.Code, "error", res.Error.Message)
		fail("chunking", res.Error.Error())
		return
	}
	job.SetChunkTotals(res.Stats.TotalChunks, res.Stats.TotalTokens)
	log.Info("chunked document", "chunks", res.Stats.TotalChunks, "tokens", res.Stats.TotalTokens)

	// Phase 5: Store
	job.SetStatus(StatusStoring, "storing")
	stored := &store.Document{
		Filename:    job.Filename,
		Title:       doc.Title,
		ContentHash: job.ContentHash,
		PageCount:   doc.PageCount,
	}
	err = retry(ctx, func() error {
		stored.ID = ""
		return w.store.SaveDocument(ctx, stored, res.Chunks)
	}, func(attempt int, err error) {
		log.Warn("retryable store error", "attempt", attempt, "error", err)
	})
	switch {
	case errors.Is(err, store.ErrDuplicate):
		// Another job stored the same bytes first.
		if existing, ferr := w.store.FindByContentHash(ctx, job.ContentHash); ferr == nil {
			job.SetDocID(existing.ID)
		}
		log.Info("duplicate document stored concurrently, skipping")
		job.SetStatus(StatusDupSkipped, "storing")
		return
	case err != nil:
		log.Error("store failed", "error", err)
		fail("storing", fmt.Sprintf("store: %s", err))
		return
	}

	job.SetDocID(stored.ID)
	log.Info("storage complete", "doc_id", stored.ID)
	job.SetStatus(StatusCompleted, "done")
}

// findExisting returns the stored document with hash, or nil if there is none.
func (w *Worker) findExisting(ctx context.Context, log *slog.Logger, hash string) (*store.Document, error) {
	var doc *store.Document
	err := retry(ctx, func() error {
		var err error
		doc, err = w.store.FindByContentHash(ctx, hash)
		return err
	}, func(attempt int, err error) {
		log.Warn("retryable dedup error", "attempt", attempt, "error", err)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return doc, err
}
