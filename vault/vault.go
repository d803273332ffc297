// Package vault reads and writes Markdown documents in a local vault
// directory and resolves the media files they embed.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"dsc/markdown"
)

// MediaFile is one embedded media reference resolved against the vault. A
// reference that could not be located is kept with Missing set, so the
// conversion can degrade it to a placeholder instead of dropping it.
type MediaFile struct {
	Ref       markdown.MediaReference
	LocalPath string // absolute path, empty when missing
	Filename  string
	Missing   bool
}

// Document is a Markdown file read from the vault along with its resolved
// media references.
type Document struct {
	Path    string // absolute path
	RelPath string // relative to the vault root
	Title   string
	Content string
	Media   []MediaFile
}

// Vault is rooted at a directory holding Markdown documents. SearchFolders
// lists additional directories (relative to the root) consulted when
// resolving bare media references.
type Vault struct {
	root          string
	searchFolders []string
	log           *zap.Logger
}

func New(root string, searchFolders []string, log *zap.Logger) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve vault root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("unable to access vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root is not a directory: %s", abs)
	}
	return &Vault{root: abs, searchFolders: searchFolders, log: log.Named("vault")}, nil
}

func (v *Vault) Root() string { return v.root }

// RelPath returns path relative to the vault root, failing for paths
// outside the vault.
func (v *Vault) RelPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("unable to resolve path: %w", err)
	}
	rel, err := filepath.Rel(v.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path is outside the vault: %s", path)
	}
	return filepath.ToSlash(rel), nil
}

// ReadDocument reads a Markdown file and resolves its media references.
// Content is normalized to NFC, macOS filesystems hand out decomposed
// unicode which never round-trips through the remote platforms cleanly.
func (v *Vault) ReadDocument(path string) (*Document, error) {

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve document path: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("unable to read document: %w", err)
	}
	content := norm.NFC.String(string(data))

	rel, err := v.RelPath(abs)
	if err != nil {
		return nil, err
	}

	title := ExtractTitle(content)
	if len(title) == 0 {
		title = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	}

	media := v.resolveMedia(content, abs)

	v.log.Info("document loaded",
		zap.String("path", rel),
		zap.String("title", title),
		zap.Int("media", len(media)))

	return &Document{
		Path:    abs,
		RelPath: rel,
		Title:   title,
		Content: content,
		Media:   media,
	}, nil
}

// WriteDocument writes pulled content into the vault, creating parent
// directories as needed. Unless overwrite is set an existing document is
// left alone.
func (v *Vault) WriteDocument(path, content string, overwrite bool) error {

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("document already exists: %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("unable to create document directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("unable to write document: %w", err)
	}
	v.log.Info("document written", zap.String("path", path), zap.Int("chars", len(content)))
	return nil
}

// WriteMedia stores fetched media contents next to a document, inside the
// mediaDir subdirectory the document references it from.
func (v *Vault) WriteMedia(docPath, mediaDir, filename string, data []byte) error {

	dir := filepath.Join(filepath.Dir(docPath), mediaDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("unable to create media directory: %w", err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("unable to write media file: %w", err)
	}
	v.log.Debug("media written", zap.String("path", path), zap.Int("size", len(data)))
	return nil
}

// ListDocuments walks the vault and returns relative paths of all Markdown
// documents in natural sort order (doc2 before doc10).
func (v *Vault) ListDocuments() ([]string, error) {

	var docs []string
	err := filepath.WalkDir(v.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != v.root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			rel, err := filepath.Rel(v.root, path)
			if err != nil {
				return err
			}
			docs = append(docs, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list vault documents: %w", err)
	}
	sort.Sort(natural.StringSlice(docs))
	return docs, nil
}

// ExtractTitle returns the text of the first level-1 heading, or empty when
// the document has none.
func ExtractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}
