package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func buildZip(t *testing.T, entries map[string]string) string {
	t.Helper()

	zipPath := filepath.Join(t.TempDir(), "test.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for name, content := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write content for %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finish zip: %v", err)
	}
	return zipPath
}

func TestWalk(t *testing.T) {
	zipPath := buildZip(t, map[string]string{
		"notes/readme.md":  "readme",
		"notes/guide.md":   "guide",
		"notes/pic.png":    "binary",
		"exported.html":    "page",
		"attachments.yaml": "meta",
	})

	isMarkdown := func(name string) bool {
		return strings.HasSuffix(name, ".md")
	}

	t.Run("walk with match", func(t *testing.T) {
		var visited []string
		err := Walk(zipPath, isMarkdown, func(archive string, file *zip.File) error {
			if archive != zipPath {
				t.Errorf("archive = %s, want %s", archive, zipPath)
			}
			visited = append(visited, file.Name)
			return nil
		})

		if err != nil {
			t.Errorf("Walk() error = %v", err)
		}

		if len(visited) != 2 {
			t.Errorf("visited %d files, want 2", len(visited))
		}

		expected := map[string]bool{
			"notes/readme.md": true,
			"notes/guide.md":  true,
		}
		for _, name := range visited {
			if !expected[name] {
				t.Errorf("unexpected file visited: %s", name)
			}
		}
	})

	t.Run("walk with nothing matching", func(t *testing.T) {
		var visited int
		err := Walk(zipPath, func(string) bool { return false }, func(archive string, file *zip.File) error {
			visited++
			return nil
		})

		if err != nil {
			t.Errorf("Walk() error = %v", err)
		}
		if visited != 0 {
			t.Errorf("visited %d files, want 0", visited)
		}
	})

	t.Run("walk with nil match visits everything", func(t *testing.T) {
		var visited int
		err := Walk(zipPath, nil, func(archive string, file *zip.File) error {
			visited++
			return nil
		})

		if err != nil {
			t.Errorf("Walk() error = %v", err)
		}
		if visited != 5 {
			t.Errorf("visited %d files, want 5", visited)
		}
	})

	t.Run("walkFn returns error", func(t *testing.T) {
		expectedErr := errors.New("test error")
		err := Walk(zipPath, isMarkdown, func(archive string, file *zip.File) error {
			return expectedErr
		})

		if err != expectedErr {
			t.Errorf("Walk() error = %v, want %v", err, expectedErr)
		}
	})
}

func TestWalk_InvalidArchive(t *testing.T) {
	t.Run("nonexistent file", func(t *testing.T) {
		err := Walk("/nonexistent/file.zip", nil, func(archive string, file *zip.File) error {
			return nil
		})

		if err == nil {
			t.Error("Expected error for nonexistent file")
		}
	})

	t.Run("invalid zip file", func(t *testing.T) {
		invalidZip := filepath.Join(t.TempDir(), "invalid.zip")

		if err := os.WriteFile(invalidZip, []byte("not a zip file"), 0644); err != nil {
			t.Fatalf("Failed to create invalid zip: %v", err)
		}

		err := Walk(invalidZip, nil, func(archive string, file *zip.File) error {
			return nil
		})

		if err == nil {
			t.Error("Expected error for invalid zip file")
		}
	})
}

func TestWalk_SkipsDirectoriesAndJunk(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "test.zip")

	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}

	w := zip.NewWriter(zipFile)

	dirHeader := &zip.FileHeader{Name: "mydir/"}
	dirHeader.SetMode(os.ModeDir | 0755)
	if _, err := w.CreateHeader(dirHeader); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	for _, name := range []string{
		"mydir/file.md",
		"__MACOSX/mydir/._file.md",
		"mydir/.DS_Store",
		"mydir/._resource.md",
	} {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
		fw.Write([]byte("content"))
	}

	w.Close()
	zipFile.Close()

	var visited []string
	err = Walk(zipPath, nil, func(archive string, file *zip.File) error {
		visited = append(visited, file.Name)
		return nil
	})

	if err != nil {
		t.Errorf("Walk() error = %v", err)
	}

	if len(visited) != 1 || visited[0] != "mydir/file.md" {
		t.Errorf("visited %v, want only mydir/file.md", visited)
	}
}

func TestWalk_UnsafePaths(t *testing.T) {
	zipPath := buildZip(t, map[string]string{
		"good.md":               "ok",
		"../escape.md":          "bad",
		"nested/../../where.md": "bad",
	})

	err := Walk(zipPath, nil, func(archive string, file *zip.File) error {
		return nil
	})
	if err == nil {
		t.Error("Expected error for path traversal entries")
	}
}

func TestWalk_EarlyTermination(t *testing.T) {
	zipPath := buildZip(t, map[string]string{
		"files/file0.md": "content",
		"files/file1.md": "content",
		"files/file2.md": "content",
		"files/file3.md": "content",
		"files/file4.md": "content",
	})

	var visited int
	stopErr := errors.New("stop walking")
	err := Walk(zipPath, nil, func(archive string, file *zip.File) error {
		visited++
		if visited == 2 {
			return stopErr
		}
		return nil
	})

	if err != stopErr {
		t.Errorf("Walk() error = %v, want %v", err, stopErr)
	}

	if visited != 2 {
		t.Errorf("visited %d files, want 2 (early termination)", visited)
	}
}

func TestWalk_FileContent(t *testing.T) {
	content := []byte("test content")
	zipPath := buildZip(t, map[string]string{"test.md": string(content)})

	err := Walk(zipPath, nil, func(archive string, file *zip.File) error {
		rc, err := file.Open()
		if err != nil {
			return err
		}
		defer rc.Close()

		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(rc); err != nil {
			return err
		}

		if !bytes.Equal(buf.Bytes(), content) {
			t.Errorf("content = %s, want %s", buf.Bytes(), content)
		}

		return nil
	})

	if err != nil {
		t.Errorf("Walk() error = %v", err)
	}
}
