package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"dsc/markdown"
)

// resolveMedia locates every media reference embedded in content. External
// URLs in standard embeds are skipped, they need no local file. Unresolved
// references are kept as missing so downstream conversion can emit a
// placeholder.
func (v *Vault) resolveMedia(content, docPath string) []MediaFile {

	var files []MediaFile

	for _, ref := range markdown.ExtractMediaRefs(content) {

		if !strings.HasPrefix(ref.OriginalRef, "![[") {
			// standard embed
			if strings.HasPrefix(ref.Target, "http://") || strings.HasPrefix(ref.Target, "https://") {
				v.log.Debug("skipping external media", zap.String("url", ref.Target))
				continue
			}
			files = append(files, v.resolveRelative(ref, docPath))
			continue
		}
		files = append(files, v.resolveWikilink(ref, docPath))
	}

	return files
}

// resolveWikilink searches for a bare filename: next to the document first,
// then the vault root, then the configured search folders, finally a full
// vault walk.
func (v *Vault) resolveWikilink(ref markdown.MediaReference, docPath string) MediaFile {

	candidates := []string{
		filepath.Join(filepath.Dir(docPath), ref.Target),
		filepath.Join(v.root, ref.Target),
	}
	for _, folder := range v.searchFolders {
		candidates = append(candidates, filepath.Join(v.root, folder, ref.Target))
	}

	for _, path := range candidates {
		if fileExists(path) {
			return found(ref, path)
		}
	}

	// last resort: walk the vault for a matching base name
	var match string
	_ = filepath.WalkDir(v.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if !d.IsDir() && d.Name() == ref.Target {
			match = path
			return fs.SkipAll
		}
		return nil
	})
	if len(match) > 0 {
		v.log.Debug("media resolved by vault walk", zap.String("name", ref.Target))
		return found(ref, match)
	}

	v.log.Debug("unable to resolve media reference", zap.String("name", ref.Target))
	return missing(ref)
}

// resolveRelative resolves a pathed embed: absolute from the vault root when
// it starts with a slash, relative to the document otherwise.
func (v *Vault) resolveRelative(ref markdown.MediaReference, docPath string) MediaFile {

	var path string
	if strings.HasPrefix(ref.Target, "/") {
		path = filepath.Join(v.root, strings.TrimPrefix(ref.Target, "/"))
	} else {
		path = filepath.Join(filepath.Dir(docPath), ref.Target)
	}

	if fileExists(path) {
		return found(ref, path)
	}
	v.log.Debug("media path does not exist", zap.String("path", path))
	return missing(ref)
}

func found(ref markdown.MediaReference, path string) MediaFile {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return MediaFile{Ref: ref, LocalPath: abs, Filename: filepath.Base(abs)}
}

func missing(ref markdown.MediaReference) MediaFile {
	return MediaFile{Ref: ref, Filename: filepath.Base(ref.Target), Missing: true}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ContentType sniffs the MIME type from file content, falling back to a
// generic binary type when the signature is unknown.
func ContentType(path string) (string, error) {

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("unable to open media file: %w", err)
	}
	defer f.Close()

	// file signatures live in the first few hundred bytes
	head := make([]byte, 512)
	n, err := f.Read(head)
	if n == 0 && err != nil {
		return "", fmt.Errorf("unable to read media file: %w", err)
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return "application/octet-stream", nil
	}
	return kind.MIME.Value, nil
}
