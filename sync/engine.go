package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"dsc/config"
	"dsc/convert"
	"dsc/markdown"
	"dsc/platform/notion"
	"dsc/platform/quip"
	"dsc/vault"
)

// Options adjust a sync run.
type Options struct {
	// forward: push to the block platform only
	SkipQuip bool
	// reverse: do not fall back to the block platform when the document
	// is not on the HTML platform
	SkipNotion bool
	// reverse: replace existing local documents
	Overwrite bool
	// forward route runs: push documents even when the content hash has
	// not changed since the last run
	Force bool
}

// Result describes one synced document.
type Result struct {
	RelPath      string
	Title        string
	NotionPageID string
	QuipThreadID string
	MediaCount   int
	Skipped      bool
}

// Engine drives documents through sync routes in both directions.
type Engine struct {
	cfg   *config.Config
	store *Store
	rpt   *config.Report
	log   *zap.Logger
}

func NewEngine(cfg *config.Config, store *Store, log *zap.Logger) *Engine {
	return &Engine{cfg: cfg, store: store, log: log.Named("sync")}
}

// WithReport attaches a debug report, intermediate conversion results of every
// processed document end up in it.
func (e *Engine) WithReport(rpt *config.Report) *Engine {
	e.rpt = rpt
	return e
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (e *Engine) route(name string) (*config.RouteConfig, error) {
	route := e.cfg.Route(name)
	if route == nil {
		return nil, fmt.Errorf("route is not configured: %s", name)
	}
	if !route.Enabled {
		return nil, fmt.Errorf("route is disabled: %s", name)
	}
	return route, nil
}

func (e *Engine) openVault(route *config.RouteConfig) (*vault.Vault, error) {
	return vault.New(route.Source, e.cfg.Document.Media.SearchFolders, e.log)
}

func (e *Engine) notionClient(route *config.RouteConfig) (*notion.Client, error) {
	token := string(e.cfg.Credentials.NotionToken)
	if len(token) == 0 {
		return nil, fmt.Errorf("block platform token is not configured")
	}
	return notion.NewClient(e.cfg.Credentials.NotionAPIURL, token, route.NotionDatabase, e.log), nil
}

func (e *Engine) quipClient(route *config.RouteConfig) (*quip.Client, error) {
	token := string(e.cfg.Credentials.QuipToken)
	if len(token) == 0 {
		return nil, fmt.Errorf("HTML platform token is not configured")
	}
	if len(route.QuipFolder) == 0 {
		return nil, fmt.Errorf("route has no folder configured: %s", route.Name)
	}
	return quip.NewClient(e.cfg.Credentials.QuipBaseURL, token, route.QuipFolder, e.log), nil
}

// SyncForward pushes one vault document through a route: media uploads,
// block page, HTML document. Unchanged media is not re-uploaded, upload ids
// are reused through the state store by content hash.
func (e *Engine) SyncForward(ctx context.Context, routeName, docPath string, opts Options) (*Result, error) {

	route, err := e.route(routeName)
	if err != nil {
		return nil, err
	}
	v, err := e.openVault(route)
	if err != nil {
		return nil, err
	}
	nc, err := e.notionClient(route)
	if err != nil {
		return nil, err
	}

	doc, err := v.ReadDocument(docPath)
	if err != nil {
		return nil, err
	}
	e.log.Info("syncing document",
		zap.String("route", route.Name),
		zap.String("document", doc.RelPath),
		zap.String("direction", "forward"))

	prev, err := e.store.Document(ctx, route.Name, doc.RelPath)
	if err != nil {
		return nil, err
	}
	prevMedia, err := e.store.Media(ctx, route.Name, doc.RelPath)
	if err != nil {
		return nil, err
	}

	var qc *quip.Client
	threadID := ""
	if !opts.SkipQuip {
		if qc, err = e.quipClient(route); err != nil {
			return nil, err
		}
		if threadID, err = e.ensureThread(ctx, qc, prev, doc.Title); err != nil {
			return nil, err
		}
	}

	mediaMap := make(markdown.MediaMap)
	blobs := convert.BlobLocations{
		URLs:      make(map[string]string),
		Filenames: make(map[string]string),
	}
	var mediaStates []MediaState

	for _, mf := range doc.Media {
		if mf.Missing {
			e.log.Debug("media not found, degrading to placeholder", zap.String("ref", mf.Ref.OriginalRef))
			continue
		}

		data, contentType, err := vault.PrepareUpload(mf,
			e.cfg.Document.Media.MaxImageWidth, e.cfg.Document.Media.JPEGQuality, e.log)
		if err != nil {
			e.log.Warn("unable to prepare media, skipping", zap.String("file", mf.Filename), zap.Error(err))
			continue
		}

		hash := contentHash(data)
		cached, haveCached := prevMedia[mf.Filename]
		reuse := haveCached && cached.Hash == hash

		uploadID := cached.UploadID
		if !reuse || len(uploadID) == 0 {
			if uploadID, err = nc.UploadFile(ctx, mf.Filename, contentType, data); err != nil {
				e.log.Warn("media upload failed, skipping", zap.String("file", mf.Filename), zap.Error(err))
				continue
			}
		} else {
			e.log.Debug("reusing cached upload", zap.String("file", mf.Filename))
		}

		blobID := ""
		if qc != nil {
			blobID = cached.QuipBlobID
			blobURL := ""
			if !reuse || len(blobID) == 0 {
				if blobID, blobURL, err = qc.UploadBlob(ctx, threadID, mf.Filename, contentType, data); err != nil {
					e.log.Warn("blob upload failed", zap.String("file", mf.Filename), zap.Error(err))
				}
			} else {
				blobURL = "/blob/" + threadID + "/" + blobID
			}
			if len(blobID) > 0 {
				blobs.URLs[uploadID] = blobURL
				blobs.Filenames[uploadID] = mf.Filename
			}
		}

		mediaMap[mf.Ref.OriginalRef] = markdown.MediaResolution{UploadID: uploadID, Kind: mf.Ref.Kind}
		mediaStates = append(mediaStates, MediaState{
			Filename:   mf.Filename,
			Hash:       hash,
			UploadID:   uploadID,
			QuipBlobID: blobID,
			Size:       int64(len(data)),
		})
	}

	blocks := markdown.Parse(doc.Content, mediaMap, e.log)

	pageID, err := e.pushPage(ctx, nc, prev, doc.Title, blocks)
	if err != nil {
		return nil, err
	}

	if qc != nil {
		content := convert.RenderHTML(blocks, blobs,
			convert.HTMLOptions{BaseURL: e.cfg.Credentials.QuipBaseURL}, e.log)
		e.rpt.StoreData("pushed/"+doc.RelPath+".html", []byte(content))
		if err := qc.UpdateDocument(ctx, threadID, content); err != nil {
			return nil, err
		}
	}

	state := &DocumentState{
		Route:        route.Name,
		RelPath:      doc.RelPath,
		NotionPageID: pageID,
		QuipThreadID: threadID,
		ContentHash:  contentHash([]byte(doc.Content)),
		LastSynced:   time.Now(),
	}
	if err := e.store.SaveDocument(ctx, state, mediaStates); err != nil {
		return nil, err
	}

	return &Result{
		RelPath:      doc.RelPath,
		Title:        doc.Title,
		NotionPageID: pageID,
		QuipThreadID: threadID,
		MediaCount:   len(mediaStates),
	}, nil
}

// ensureThread returns the HTML platform thread for a document, creating a
// placeholder when none exists yet. Blobs can only be uploaded to an
// existing thread, so on first sync the document is created before its
// content is ready and filled in afterwards.
func (e *Engine) ensureThread(ctx context.Context, qc *quip.Client, prev *DocumentState, title string) (string, error) {

	if prev != nil && len(prev.QuipThreadID) > 0 {
		return prev.QuipThreadID, nil
	}
	threadID, err := qc.FindDocumentByTitle(ctx, title)
	if err != nil {
		return "", err
	}
	if len(threadID) > 0 {
		return threadID, nil
	}
	return qc.CreateDocument(ctx, title, "<h1>"+html.EscapeString(title)+"</h1>")
}

// pushPage updates the existing block page in place so links to it keep
// working; when that fails (page deleted or archived out of band) the old
// page is archived best effort and a fresh one created.
func (e *Engine) pushPage(ctx context.Context, nc *notion.Client, prev *DocumentState, title string, blocks []markdown.Block) (string, error) {

	if prev != nil && len(prev.NotionPageID) > 0 {
		if err := nc.UpdatePageContent(ctx, prev.NotionPageID, title, blocks); err == nil {
			return prev.NotionPageID, nil
		} else {
			e.log.Warn("unable to update page, recreating", zap.String("page", prev.NotionPageID), zap.Error(err))
			if err := nc.ArchivePage(ctx, prev.NotionPageID); err != nil {
				e.log.Debug("unable to archive page", zap.String("page", prev.NotionPageID), zap.Error(err))
			}
		}
	}
	return nc.CreatePage(ctx, title, blocks)
}

// SyncReverse pulls a document by title into the vault: HTML platform first,
// optionally falling back to the block platform when it is not there.
func (e *Engine) SyncReverse(ctx context.Context, routeName, title string, opts Options) (*Result, error) {

	route, err := e.route(routeName)
	if err != nil {
		return nil, err
	}
	v, err := e.openVault(route)
	if err != nil {
		return nil, err
	}

	e.log.Info("pulling document",
		zap.String("route", route.Name),
		zap.String("title", title),
		zap.String("direction", "reverse"))

	if qc, err := e.quipClient(route); err == nil {
		threadID, err := qc.FindDocumentByTitle(ctx, title)
		if err != nil {
			return nil, err
		}
		if len(threadID) > 0 {
			return e.pullFromQuip(ctx, route, v, qc, threadID, opts)
		}
		e.log.Info("document not found on HTML platform", zap.String("title", title))
	} else {
		e.log.Debug("HTML platform not available", zap.Error(err))
	}

	if opts.SkipNotion {
		return nil, fmt.Errorf("document not found: %s", title)
	}
	nc, err := e.notionClient(route)
	if err != nil {
		return nil, err
	}
	pageID, err := nc.FindPageByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	if len(pageID) == 0 {
		return nil, fmt.Errorf("document not found: %s", title)
	}
	return e.pullFromNotion(ctx, route, v, nc, pageID, opts)
}

func (e *Engine) mediaDirName(docPath string) string {
	base := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	return base + e.cfg.Document.MediaDirSuffix
}

func (e *Engine) pullFromQuip(ctx context.Context, route *config.RouteConfig, v *vault.Vault, qc *quip.Client, threadID string, opts Options) (*Result, error) {

	title, content, err := qc.GetDocument(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if len(title) == 0 {
		title = threadID
	}
	e.rpt.StoreData("pulled/"+threadID+".html", []byte(content))

	docPath := buildOutputPath(v.Root(), title, route.Name, "quip", e.cfg, e.log)
	mediaDir := e.mediaDirName(docPath)

	md, blobMap, err := convert.FromHTML(content, mediaDir, e.log)
	if err != nil {
		return nil, err
	}

	var mediaStates []MediaState
	for _, blobID := range blobMap.IDs() {
		name, _ := blobMap.Name(blobID)
		data, err := qc.DownloadBlob(ctx, threadID, blobID)
		if err != nil {
			e.log.Warn("unable to download blob", zap.String("blob", blobID), zap.Error(err))
			continue
		}
		if err := v.WriteMedia(docPath, mediaDir, name, data); err != nil {
			return nil, err
		}
		mediaStates = append(mediaStates, MediaState{
			Filename:   name,
			Hash:       contentHash(data),
			QuipBlobID: blobID,
			Size:       int64(len(data)),
		})
	}

	if err := v.WriteDocument(docPath, md, opts.Overwrite); err != nil {
		return nil, err
	}

	relPath, err := v.RelPath(docPath)
	if err != nil {
		return nil, err
	}
	state := &DocumentState{
		Route:        route.Name,
		RelPath:      relPath,
		QuipThreadID: threadID,
		ContentHash:  contentHash([]byte(md)),
		LastSynced:   time.Now(),
	}
	if err := e.store.SaveDocument(ctx, state, mediaStates); err != nil {
		return nil, err
	}

	return &Result{
		RelPath:      relPath,
		Title:        title,
		QuipThreadID: threadID,
		MediaCount:   len(mediaStates),
	}, nil
}

func (e *Engine) pullFromNotion(ctx context.Context, route *config.RouteConfig, v *vault.Vault, nc *notion.Client, pageID string, opts Options) (*Result, error) {

	title, err := nc.GetPageTitle(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if len(title) == 0 {
		title = pageID
	}

	blocks, err := nc.GetBlocks(ctx, pageID)
	if err != nil {
		return nil, err
	}

	docPath := buildOutputPath(v.Root(), title, route.Name, "notion", e.cfg, e.log)
	mediaDir := e.mediaDirName(docPath)

	// platform-hosted file URLs expire, fetch them while they are valid
	var mediaStates []MediaState
	for i := range blocks {
		if blocks[i].Kind != markdown.BlockMedia {
			continue
		}
		m := blocks[i].Media
		if len(m.FileURL) == 0 || len(m.ExternalURL) > 0 {
			continue
		}
		data, err := nc.DownloadFile(ctx, m.FileURL)
		if err != nil {
			e.log.Warn("unable to download file", zap.String("url", m.FileURL), zap.Error(err))
			continue
		}
		name := fileNameFromURL(m.FileURL)
		if err := v.WriteMedia(docPath, mediaDir, name, data); err != nil {
			return nil, err
		}
		m.ExternalURL = path.Join(mediaDir, name)
		mediaStates = append(mediaStates, MediaState{
			Filename: name,
			Hash:     contentHash(data),
			Size:     int64(len(data)),
		})
	}

	md := convert.RenderMarkdown(blocks)
	if err := v.WriteDocument(docPath, md, opts.Overwrite); err != nil {
		return nil, err
	}

	relPath, err := v.RelPath(docPath)
	if err != nil {
		return nil, err
	}
	state := &DocumentState{
		Route:        route.Name,
		RelPath:      relPath,
		NotionPageID: pageID,
		ContentHash:  contentHash([]byte(md)),
		LastSynced:   time.Now(),
	}
	if err := e.store.SaveDocument(ctx, state, mediaStates); err != nil {
		return nil, err
	}

	return &Result{
		RelPath:      relPath,
		Title:        title,
		NotionPageID: pageID,
		MediaCount:   len(mediaStates),
	}, nil
}

func fileNameFromURL(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "file"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || len(name) == 0 {
		return "file"
	}
	return name
}

// SyncRoute runs a whole route. Forward walks the vault and pushes every
// document, skipping ones whose content hash is unchanged; reverse refreshes
// the local copy of every document previously pulled or pushed on this
// route. A failing document is reported and does not stop the run.
func (e *Engine) SyncRoute(ctx context.Context, routeName, direction string, opts Options) ([]Result, error) {

	route, err := e.route(routeName)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if err := e.store.BeginRun(ctx, runID, route.Name, direction); err != nil {
		return nil, err
	}
	e.log.Info("route run started",
		zap.String("run", runID),
		zap.String("route", route.Name),
		zap.String("direction", direction))

	var results []Result
	var errs error

	switch direction {
	case "forward":
		results, errs = e.runForward(ctx, route, opts)
	case "reverse":
		results, errs = e.runReverse(ctx, route, opts)
	default:
		return nil, fmt.Errorf("invalid direction: %s", direction)
	}

	failed := len(multierr.Errors(errs))
	if err := e.store.FinishRun(ctx, runID, len(results), failed); err != nil {
		errs = multierr.Append(errs, err)
	}
	e.log.Info("route run finished",
		zap.String("run", runID),
		zap.Int("synced", len(results)),
		zap.Int("failed", failed))
	return results, errs
}

func (e *Engine) runForward(ctx context.Context, route *config.RouteConfig, opts Options) ([]Result, error) {

	v, err := e.openVault(route)
	if err != nil {
		return nil, err
	}
	docs, err := v.ListDocuments()
	if err != nil {
		return nil, err
	}

	var results []Result
	var errs error
	for _, relPath := range docs {
		docPath := filepath.Join(v.Root(), relPath)

		if !opts.Force {
			skip, err := e.unchanged(ctx, route.Name, relPath, docPath)
			if err == nil && skip {
				e.log.Debug("content unchanged, skipping", zap.String("document", relPath))
				results = append(results, Result{RelPath: relPath, Skipped: true})
				continue
			}
		}

		res, err := e.SyncForward(ctx, route.Name, docPath, opts)
		if err != nil {
			e.log.Error("document sync failed", zap.String("document", relPath), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", relPath, err))
			continue
		}
		results = append(results, *res)
	}
	return results, errs
}

func (e *Engine) unchanged(ctx context.Context, routeName, relPath, docPath string) (bool, error) {
	prev, err := e.store.Document(ctx, routeName, relPath)
	if err != nil || prev == nil {
		return false, err
	}
	v, err := e.openVault(e.cfg.Route(routeName))
	if err != nil {
		return false, err
	}
	doc, err := v.ReadDocument(docPath)
	if err != nil {
		return false, err
	}
	return prev.ContentHash == contentHash([]byte(doc.Content)), nil
}

func (e *Engine) runReverse(ctx context.Context, route *config.RouteConfig, opts Options) ([]Result, error) {

	docs, err := e.store.Documents(ctx, route.Name)
	if err != nil {
		return nil, err
	}
	v, err := e.openVault(route)
	if err != nil {
		return nil, err
	}
	qc, qcErr := e.quipClient(route)
	nc, ncErr := e.notionClient(route)

	var results []Result
	var errs error
	for _, doc := range docs {
		var res *Result
		var err error
		switch {
		case qcErr == nil && len(doc.QuipThreadID) > 0:
			res, err = e.pullFromQuip(ctx, route, v, qc, doc.QuipThreadID, opts)
		case !opts.SkipNotion && ncErr == nil && len(doc.NotionPageID) > 0:
			res, err = e.pullFromNotion(ctx, route, v, nc, doc.NotionPageID, opts)
		default:
			err = fmt.Errorf("no platform copy on record")
		}
		if err != nil {
			e.log.Error("document pull failed", zap.String("document", doc.RelPath), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", doc.RelPath, err))
			continue
		}
		results = append(results, *res)
	}
	return results, errs
}
