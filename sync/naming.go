package sync

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"dsc/config"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context  string
	Title    string
	Route    string
	Platform string
	Date     string
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// buildOutputPath returns constructed file path/name for a document pulled
// from a platform. It uses either default naming scheme or user-defined
// template. It cleans up path and if requested transliterates it.
func buildOutputPath(dir, title, route, platform string, cfg *config.Config, log *zap.Logger) string {
	defaultFile := buildDefaultFileName(title, cfg)

	if cfg.Document.OutputNameTemplate == "" {
		return filepath.Join(dir, defaultFile)
	}

	values := Values{
		Context:  string(config.OutputNameTemplateFieldName),
		Title:    title,
		Route:    route,
		Platform: platform,
		Date:     time.Now().Format("2006-01-02"),
	}
	expandedName, err := expandTemplate(config.OutputNameTemplateFieldName, cfg.Document.OutputNameTemplate, values)
	if err != nil {
		log.Warn("Unable to prepare output filename", zap.Error(err))
		return filepath.Join(dir, defaultFile)
	}
	return assemblePathWithSubdirs(dir, filepath.FromSlash(expandedName), cfg)
}

func buildDefaultFileName(title string, cfg *config.Config) string {
	if cfg.Document.FileNameTransliterate {
		title = slug.Make(title)
	}
	return config.CleanFileName(title) + ".md"
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output path,
// cleaning and transliterating segments as needed
func assemblePathWithSubdirs(outDir, expandedName string, cfg *config.Config) string {
	pathSegments := splitAndCleanPath(expandedName)

	if len(pathSegments) == 0 {
		return outDir
	}

	fileName := cleanPathSegment(pathSegments[len(pathSegments)-1], cfg) + ".md"
	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)

	for _, segment := range pathSegments[:len(pathSegments)-1] {
		dirParts = append(dirParts, cleanPathSegment(segment, cfg))
	}

	dirParts = append(dirParts, fileName)
	return filepath.Join(dirParts...)
}

func splitAndCleanPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		segments = slices.Insert(segments, 0, tail)
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
		path = head
	}

	return segments
}

func cleanPathSegment(segment string, cfg *config.Config) string {
	if cfg.Document.FileNameTransliterate {
		segment = slug.Make(segment)
	}
	return config.CleanFileName(segment)
}
