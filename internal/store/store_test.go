package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/doctree"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testChunks(texts ...string) []doctree.Chunk {
	chunks := make([]doctree.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = doctree.Chunk{
			Text:       text,
			TokenCount: len(text),
			Sequence:   i,
			Hash:       chunker.HashText(text),
			Metadata: doctree.ChunkMetadata{
				Chapter:        "Intro",
				PageStart:      i + 1,
				PageEnd:        i + 1,
				Pages:          []int{i + 1},
				HeadingContext: []string{"Intro"},
			},
		}
	}
	return chunks
}

func TestSaveAndGetDocument(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	doc := &Document{Filename: "a.txt", Title: "A", ContentHash: "hash-a", PageCount: 2}
	require.NoError(t, s.SaveDocument(ctx, doc, testChunks("first", "second")))
	require.NotEmpty(t, doc.ID)
	assert.Equal(t, 2, doc.ChunkCount)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Filename, got.Filename)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	assert.Equal(t, 2, got.PageCount)
	assert.Equal(t, 2, got.ChunkCount)
	assert.WithinDuration(t, doc.CreatedAt, got.CreatedAt, time.Second)

	byHash, err := s.FindByContentHash(ctx, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, byHash.ID)
}

func TestGetDocument_NotFound(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindByContentHash(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ListChunks(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteDocument(ctx, "missing"), ErrNotFound)
}

func TestSaveDocument_DuplicateContentHash(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDocument(ctx, &Document{Filename: "a.txt", ContentHash: "same"}, testChunks("x")))
	err := s.SaveDocument(ctx, &Document{Filename: "b.txt", ContentHash: "same"}, testChunks("y"))
	assert.ErrorIs(t, err, ErrDuplicate)

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Documents)
	assert.Equal(t, 1, totals.Chunks, "the failed save is rolled back")
}

func TestSaveDocument_RejectsInvalidChunks(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	chunks := testChunks("x", "y")
	chunks[1].Hash = "tampered"
	err := s.SaveDocument(ctx, &Document{Filename: "a.txt", ContentHash: "h"}, chunks)
	require.Error(t, err)

	err = s.SaveDocument(ctx, &Document{Filename: "a.txt"}, testChunks("x"))
	require.Error(t, err)

	docs, err := s.ListDocuments(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestListChunks_RoundTripsMetadata(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	want := testChunks("alpha", "beta", "gamma")
	doc := &Document{Filename: "a.md", ContentHash: "h1"}
	require.NoError(t, s.SaveDocument(ctx, doc, want))

	got, err := s.ListChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, doc.ID, c.DocID)
		assert.Equal(t, want[i], c.Chunk)
	}
}

func TestChunksByHash_AcrossDocuments(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	d1 := &Document{Filename: "1.txt", ContentHash: "h1"}
	d2 := &Document{Filename: "2.txt", ContentHash: "h2"}
	require.NoError(t, s.SaveDocument(ctx, d1, testChunks("shared", "only one")))
	require.NoError(t, s.SaveDocument(ctx, d2, testChunks("other", "shared")))

	got, err := s.ChunksByHash(ctx, chunker.HashText("shared"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	docs := []string{got[0].DocID, got[1].DocID}
	assert.ElementsMatch(t, []string{d1.ID, d2.ID}, docs)
}

func TestDeleteDocument_CascadesChunks(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	doc := &Document{Filename: "a.txt", ContentHash: "h"}
	require.NoError(t, s.SaveDocument(ctx, doc, testChunks("one", "two")))
	require.NoError(t, s.DeleteDocument(ctx, doc.ID))

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)

	// The content hash is free again.
	require.NoError(t, s.SaveDocument(ctx, &Document{Filename: "a.txt", ContentHash: "h"}, testChunks("one")))
}

func TestListDocuments_NewestFirstWithPaging(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"old.txt", "mid.txt", "new.txt"} {
		doc := &Document{Filename: name, ContentHash: name, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, s.SaveDocument(ctx, doc, testChunks(name)))
	}

	docs, err := s.ListDocuments(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "new.txt", docs[0].Filename)
	assert.Equal(t, "mid.txt", docs[1].Filename)

	docs, err = s.ListDocuments(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "old.txt", docs[0].Filename)
}

func TestTotals(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDocument(ctx, &Document{Filename: "a", ContentHash: "a"}, testChunks("abc", "de")))
	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{Documents: 1, Chunks: 2, Tokens: 5}, totals)
	require.NoError(t, s.Ping(ctx))
}
