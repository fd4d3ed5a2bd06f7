package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStoreListCopies(t *testing.T) {
	store := NewMemoryStore(Seed())

	docs := store.List()
	if len(docs) != len(Seed()) {
		t.Fatalf("expected %d documents, got %d", len(Seed()), len(docs))
	}

	docs[0].Title = "변조된 제목"
	if store.List()[0].Title == "변조된 제목" {
		t.Fatalf("List must return a copy")
	}
}

func TestFindByID(t *testing.T) {
	store := NewMemoryStore(Seed())

	doc, ok := store.FindByID("refund")
	if !ok {
		t.Fatalf("expected refund document")
	}
	if doc.Title != "환불 정책" {
		t.Fatalf("unexpected title %q", doc.Title)
	}

	if _, ok := store.FindByID("missing"); ok {
		t.Fatalf("expected missing document lookup to fail")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "refund.txt"), []byte("환불 안내\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("무시되어야 함"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].ID != "refund" || docs[0].Title != "refund" {
		t.Fatalf("unexpected identity %q/%q", docs[0].ID, docs[0].Title)
	}
	if docs[0].Content != "환불 안내" {
		t.Fatalf("expected trimmed content, got %q", docs[0].Content)
	}
}

func TestLoadDirMissing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
