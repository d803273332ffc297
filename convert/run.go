package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"dsc/archive"
	"dsc/markdown"
	"dsc/state"
)

// Run is the action behind the "convert" subcommand: offline conversion of
// documents between Markdown and the sectioned HTML the collaboration
// platform uses, without touching any platform API. Useful to preview what
// sync would push or to recover content from exported HTML.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Overwrite = cmd.Bool("overwrite")

	fi, err := os.Stat(src)
	switch {
	case err != nil:
		return fmt.Errorf("unable to access source: %w", err)
	case fi.IsDir():
		return convertTree(src, dst, env, log)
	case strings.EqualFold(filepath.Ext(src), ".zip"):
		return convertArchive(src, dst, env, log)
	default:
		return convertFile(src, dst, env, log)
	}
}

func convertTree(src, dst string, env *state.LocalEnv, log *zap.Logger) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != src {
				return filepath.SkipDir
			}
			return nil
		}
		if !convertible(path) {
			return nil
		}
		return convertFile(path, dst, env, log)
	})
}

func convertArchive(src, dst string, env *state.LocalEnv, log *zap.Logger) error {
	return archive.Walk(src, convertible, func(arc string, f *zip.File) error {
		r, err := f.Open()
		if err != nil {
			return fmt.Errorf("unable to open archive entry %s: %w", f.Name, err)
		}
		defer r.Close()

		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("unable to read archive entry %s: %w", f.Name, err)
		}
		return convertData(f.Name, data, dst, env, log)
	})
}

func convertible(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".html", ".htm":
		return true
	}
	return false
}

func convertFile(src, dst string, env *state.LocalEnv, log *zap.Logger) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read source: %w", err)
	}
	return convertData(src, data, dst, env, log)
}

func convertData(src string, data []byte, dst string, env *state.LocalEnv, log *zap.Logger) error {

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))

	var out string
	var content string

	if strings.EqualFold(filepath.Ext(src), ".md") {
		blocks := markdown.Parse(string(data), nil, log)
		content = RenderHTML(blocks, BlobLocations{}, HTMLOptions{}, log)
		out = filepath.Join(dst, base+".html")
	} else {
		// exported HTML is not always UTF-8, honor charset declarations
		r, err := charset.NewReader(bytes.NewReader(data), "text/html")
		if err != nil {
			return fmt.Errorf("unable to decode HTML: %w", err)
		}
		decoded, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("unable to decode HTML: %w", err)
		}

		mediaDir := base + env.Cfg.Document.MediaDirSuffix
		md, blobs, err := FromHTML(string(decoded), mediaDir, log)
		if err != nil {
			return err
		}
		if blobs.Len() > 0 {
			log.Info("document references platform blobs, pull it to fetch them",
				zap.String("source", src), zap.Int("blobs", blobs.Len()))
		}
		content = md
		out = filepath.Join(dst, base+".md")
	}

	if !env.Overwrite {
		if _, err := os.Stat(out); err == nil {
			return fmt.Errorf("destination already exists: %s", out)
		}
	}
	if err := os.MkdirAll(filepath.Dir(out), 0700); err != nil {
		return fmt.Errorf("unable to create destination directory: %w", err)
	}
	if err := os.WriteFile(out, []byte(content), 0600); err != nil {
		return fmt.Errorf("unable to write destination: %w", err)
	}

	log.Info("Converted", zap.String("from", src), zap.String("to", out))
	return nil
}
