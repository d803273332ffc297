package vault

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}
}

func newTestVault(t *testing.T, searchFolders []string) (*Vault, string) {
	t.Helper()
	root := t.TempDir()
	v, err := New(root, searchFolders, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	return v, root
}

func TestReadDocument(t *testing.T) {

	v, root := newTestVault(t, []string{"assets"})

	writeFile(t, filepath.Join(root, "assets", "pic.png"), []byte("png"))
	writeFile(t, filepath.Join(root, "notes", "local.jpg"), []byte("jpg"))
	writeFile(t, filepath.Join(root, "notes", "doc.md"), []byte(
		"# My Document\n\nsome text ![[pic.png]]\n\n![local](local.jpg)\n\n![[gone.png]]\n"))

	doc, err := v.ReadDocument(filepath.Join(root, "notes", "doc.md"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "My Document" {
		t.Errorf("unexpected title %q", doc.Title)
	}
	if doc.RelPath != "notes/doc.md" {
		t.Errorf("unexpected relative path %q", doc.RelPath)
	}
	if len(doc.Media) != 3 {
		t.Fatalf("expected 3 media files, got %d", len(doc.Media))
	}

	byName := map[string]MediaFile{}
	for _, m := range doc.Media {
		byName[m.Filename] = m
	}
	if m := byName["pic.png"]; m.Missing || m.LocalPath != filepath.Join(root, "assets", "pic.png") {
		t.Errorf("wikilink not resolved via search folder: %+v", m)
	}
	if m := byName["local.jpg"]; m.Missing {
		t.Errorf("relative embed not resolved: %+v", m)
	}
	if m := byName["gone.png"]; !m.Missing {
		t.Errorf("expected missing placeholder, got %+v", m)
	}
}

func TestReadDocumentTitleFallsBackToFilename(t *testing.T) {

	v, root := newTestVault(t, nil)
	writeFile(t, filepath.Join(root, "untitled.md"), []byte("no heading here\n"))

	doc, err := v.ReadDocument(filepath.Join(root, "untitled.md"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "untitled" {
		t.Errorf("unexpected title %q", doc.Title)
	}
}

func TestReadDocumentSkipsExternalMedia(t *testing.T) {

	v, root := newTestVault(t, nil)
	writeFile(t, filepath.Join(root, "doc.md"), []byte("![web](https://example.com/a.png)\n"))

	doc, err := v.ReadDocument(filepath.Join(root, "doc.md"))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Media) != 0 {
		t.Errorf("external URL should not resolve to local media: %+v", doc.Media)
	}
}

func TestResolveWikilinkByVaultWalk(t *testing.T) {

	v, root := newTestVault(t, nil)
	writeFile(t, filepath.Join(root, "deep", "nested", "dir", "art.png"), []byte("png"))
	writeFile(t, filepath.Join(root, "doc.md"), []byte("![[art.png]]\n"))

	doc, err := v.ReadDocument(filepath.Join(root, "doc.md"))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Media) != 1 || doc.Media[0].Missing {
		t.Fatalf("expected media found via walk, got %+v", doc.Media)
	}
}

func TestWriteDocument(t *testing.T) {

	v, root := newTestVault(t, nil)
	target := filepath.Join(root, "sub", "out.md")

	if err := v.WriteDocument(target, "# Out\n", false); err != nil {
		t.Fatal(err)
	}
	if err := v.WriteDocument(target, "# Again\n", false); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if err := v.WriteDocument(target, "# Again\n", true); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# Again\n" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestListDocumentsNaturalOrder(t *testing.T) {

	v, root := newTestVault(t, nil)
	for _, name := range []string{"doc10.md", "doc2.md", "doc1.md", "readme.txt"} {
		writeFile(t, filepath.Join(root, name), []byte("x"))
	}
	writeFile(t, filepath.Join(root, ".obsidian", "hidden.md"), []byte("x"))

	docs, err := v.ListDocuments()
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"doc1.md", "doc2.md", "doc10.md"}
	if len(docs) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, docs)
	}
	for i := range expected {
		if docs[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, docs)
		}
	}
}

func TestRelPathRejectsOutsideVault(t *testing.T) {

	v, _ := newTestVault(t, nil)
	if _, err := v.RelPath(filepath.Join(os.TempDir(), "elsewhere.md")); err == nil {
		t.Fatal("expected error for path outside vault")
	}
}
