package sync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "state.db"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("unable to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentStateRoundTrip(t *testing.T) {

	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.Document(ctx, "work", "notes/a.md")
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected no state for unsynced document, got %+v", doc)
	}

	when := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	saved := &DocumentState{
		Route:        "work",
		RelPath:      "notes/a.md",
		NotionPageID: "p-1",
		QuipThreadID: "t-1",
		ContentHash:  "abc",
		LastSynced:   when,
	}
	media := []MediaState{
		{Filename: "pic.png", Hash: "h1", UploadID: "up-1", QuipBlobID: "b-1", Size: 42},
		{Filename: "movie.mp4", Hash: "h2", UploadID: "up-2", Size: 1 << 20},
	}
	if err := s.SaveDocument(ctx, saved, media); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	doc, err = s.Document(ctx, "work", "notes/a.md")
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if doc == nil {
		t.Fatal("expected saved state")
	}
	if doc.NotionPageID != "p-1" || doc.QuipThreadID != "t-1" || doc.ContentHash != "abc" {
		t.Errorf("unexpected state: %+v", doc)
	}
	if !doc.LastSynced.Equal(when) {
		t.Errorf("expected sync time %v, got %v", when, doc.LastSynced)
	}

	got, err := s.Media(ctx, "work", "notes/a.md")
	if err != nil {
		t.Fatalf("Media failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 media records, got %d", len(got))
	}
	if m := got["pic.png"]; m.Hash != "h1" || m.UploadID != "up-1" || m.QuipBlobID != "b-1" || m.Size != 42 {
		t.Errorf("unexpected media record: %+v", m)
	}

	// second save replaces media wholesale
	saved.ContentHash = "def"
	if err := s.SaveDocument(ctx, saved, media[:1]); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	got, err = s.Media(ctx, "work", "notes/a.md")
	if err != nil {
		t.Fatalf("Media failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected dropped media to be removed, got %d records", len(got))
	}
	doc, _ = s.Document(ctx, "work", "notes/a.md")
	if doc.ContentHash != "def" {
		t.Errorf("expected updated hash, got %q", doc.ContentHash)
	}
}

func TestDocumentStateScopedByRoute(t *testing.T) {

	s := newTestStore(t)
	ctx := context.Background()

	for _, route := range []string{"work", "personal"} {
		err := s.SaveDocument(ctx, &DocumentState{
			Route:        route,
			RelPath:      "a.md",
			NotionPageID: "p-" + route,
			LastSynced:   time.Now(),
		}, nil)
		if err != nil {
			t.Fatalf("SaveDocument failed: %v", err)
		}
	}

	doc, err := s.Document(ctx, "work", "a.md")
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if doc == nil || doc.NotionPageID != "p-work" {
		t.Errorf("expected work route state, got %+v", doc)
	}
}

func TestDeleteDocument(t *testing.T) {

	s := newTestStore(t)
	ctx := context.Background()

	err := s.SaveDocument(ctx, &DocumentState{Route: "work", RelPath: "a.md", LastSynced: time.Now()},
		[]MediaState{{Filename: "pic.png", Hash: "h"}})
	if err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	if err := s.DeleteDocument(ctx, "work", "a.md"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}

	doc, err := s.Document(ctx, "work", "a.md")
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if doc != nil {
		t.Errorf("expected state gone, got %+v", doc)
	}
	media, err := s.Media(ctx, "work", "a.md")
	if err != nil {
		t.Fatalf("Media failed: %v", err)
	}
	if len(media) != 0 {
		t.Errorf("expected media gone, got %d records", len(media))
	}
}

func TestDocumentsOrdered(t *testing.T) {

	s := newTestStore(t)
	ctx := context.Background()

	for _, rel := range []string{"b.md", "a.md", "nested/c.md"} {
		if err := s.SaveDocument(ctx, &DocumentState{Route: "work", RelPath: rel, LastSynced: time.Now()}, nil); err != nil {
			t.Fatalf("SaveDocument failed: %v", err)
		}
	}

	docs, err := s.Documents(ctx, "work")
	if err != nil {
		t.Fatalf("Documents failed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	if docs[0].RelPath != "a.md" || docs[1].RelPath != "b.md" || docs[2].RelPath != "nested/c.md" {
		t.Errorf("unexpected order: %v", []string{docs[0].RelPath, docs[1].RelPath, docs[2].RelPath})
	}
}

func TestRunRecords(t *testing.T) {

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.BeginRun(ctx, "run-1", "work", "forward"); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := s.FinishRun(ctx, "run-1", 5, 1); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	// duplicate run ids are rejected by the primary key
	if err := s.BeginRun(ctx, "run-1", "work", "forward"); err == nil {
		t.Error("expected duplicate run id to fail")
	}
}
