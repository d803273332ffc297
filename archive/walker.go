// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"strings"
)

// WalkFunc is the type of the function called for each selected file in the
// archive visited by Walk. The archive argument is the path passed to Walk,
// the file argument is the zip.File for the matched entry. If an error is
// returned, processing stops.
type WalkFunc func(archive string, file *zip.File) error

// MatchFunc decides whether Walk should visit an entry with the given name.
// A nil match visits every file.
type MatchFunc func(name string) bool

// Walk visits every file in the archive accepted by match, calling walkFn for
// each. Directory entries and metadata droppings of archiving tools are not
// visited. Entries with path traversal components ("..") or absolute paths
// stop the walk to prevent Zip Slip attacks.
func Walk(archive string, match MatchFunc, walkFn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || isJunk(name) {
			continue
		}
		if match != nil && !match(name) {
			continue
		}
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// isJunk reports entries produced by archiving tools rather than the user:
// macOS resource forks and Finder metadata.
func isJunk(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	base := path.Base(name)
	return base == ".DS_Store" || strings.HasPrefix(base, "._")
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
