// Package quip is a client for the Quip Automation API covering document
// lifecycle, sectioned HTML edits and blob transfer.
package quip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// requests carrying blob contents can take a while for large videos
	requestTimeout = 5 * time.Minute
)

// edit-document locations
const (
	opAppend        = 0
	opDeleteSection = 5
)

// documents are made of sections carrying single-quoted ids
var sectionIDPattern = regexp.MustCompile(`id='([^']+)'`)

type Client struct {
	base   string
	token  string
	folder string
	http   *http.Client
	log    *zap.Logger
}

// NewClient creates a client bound to one folder. base is the site root,
// e.g. "https://platform.quip.com"; the API lives under "<base>/1".
func NewClient(base, token, folder string, log *zap.Logger) *Client {
	return &Client{
		base:   strings.TrimSuffix(base, "/"),
		token:  token,
		folder: folder,
		http:   &http.Client{Timeout: requestTimeout},
		log:    log.Named("quip"),
	}
}

// BlobURL returns the canonical address of a blob inside a thread. Document
// HTML references blobs by the path part of this URL.
func (c *Client) BlobURL(threadID, blobID string) string {
	return c.base + "/blob/" + url.PathEscape(threadID) + "/" + url.PathEscape(blobID)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+"/1"+path, body)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("unable to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("unable to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error_description"`
		}
		if json.Unmarshal(data, &apiErr) == nil && len(apiErr.Error) > 0 {
			return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %s", req.Method, req.URL.Path, resp.Status)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unable to unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

// thread is the part of the thread object this tool reads.
type thread struct {
	Thread struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"thread"`
	HTML string `json:"html"`
}

// FindDocumentByTitle looks for a document with the exact title in the
// client's folder. Returns an empty thread id when nothing matches.
func (c *Client) FindDocumentByTitle(ctx context.Context, title string) (string, error) {

	var folder struct {
		Children []struct {
			ThreadID string `json:"thread_id"`
		} `json:"children"`
	}
	if err := c.getJSON(ctx, "/folders/"+url.PathEscape(c.folder), &folder); err != nil {
		return "", fmt.Errorf("unable to list folder: %w", err)
	}

	var ids []string
	for _, child := range folder.Children {
		if len(child.ThreadID) > 0 {
			ids = append(ids, child.ThreadID)
		}
	}
	if len(ids) == 0 {
		return "", nil
	}

	var threads map[string]thread
	if err := c.getJSON(ctx, "/threads/?ids="+url.QueryEscape(strings.Join(ids, ",")), &threads); err != nil {
		return "", fmt.Errorf("unable to fetch threads: %w", err)
	}

	for id, t := range threads {
		if t.Thread.Title == title {
			c.log.Info("found existing document by title", zap.String("title", title), zap.String("thread", id))
			return id, nil
		}
	}
	return "", nil
}

// CreateDocument creates an HTML document in the client's folder and returns
// its thread id.
func (c *Client) CreateDocument(ctx context.Context, title, contentHTML string) (string, error) {

	form := url.Values{}
	form.Set("title", title)
	form.Set("content", contentHTML)
	form.Set("format", "html")
	if len(c.folder) > 0 {
		form.Set("member_ids", c.folder)
	}

	var result thread
	if err := c.postForm(ctx, "/threads/new-document", form, &result); err != nil {
		return "", fmt.Errorf("unable to create document: %w", err)
	}

	c.log.Info("document created", zap.String("title", title), zap.String("thread", result.Thread.ID))
	return result.Thread.ID, nil
}

// DeleteDocument deletes a thread.
func (c *Client) DeleteDocument(ctx context.Context, threadID string) error {
	form := url.Values{}
	form.Set("thread_id", threadID)
	if err := c.postForm(ctx, "/threads/delete", form, nil); err != nil {
		return fmt.Errorf("unable to delete document: %w", err)
	}
	return nil
}

// GetDocument fetches the title and rendered HTML of a thread.
func (c *Client) GetDocument(ctx context.Context, threadID string) (string, string, error) {
	var t thread
	if err := c.getJSON(ctx, "/threads/"+url.PathEscape(threadID), &t); err != nil {
		return "", "", fmt.Errorf("unable to fetch document: %w", err)
	}
	return t.Thread.Title, t.HTML, nil
}

// UpdateDocument replaces document content in place. The API has no
// replace-all operation, so the first existing section is deleted and the
// new content appended; the thread id survives and links to it keep working.
func (c *Client) UpdateDocument(ctx context.Context, threadID, contentHTML string) error {

	var t thread
	if err := c.getJSON(ctx, "/threads/"+url.PathEscape(threadID), &t); err != nil {
		return fmt.Errorf("unable to fetch document: %w", err)
	}

	if m := sectionIDPattern.FindStringSubmatch(t.HTML); m != nil {
		form := url.Values{}
		form.Set("thread_id", threadID)
		form.Set("content", "")
		form.Set("format", "html")
		form.Set("location", strconv.Itoa(opDeleteSection))
		form.Set("section_id", m[1])
		if err := c.postForm(ctx, "/threads/edit-document", form, nil); err != nil {
			return fmt.Errorf("unable to delete old content: %w", err)
		}
	}

	form := url.Values{}
	form.Set("thread_id", threadID)
	form.Set("content", contentHTML)
	form.Set("format", "html")
	form.Set("location", strconv.Itoa(opAppend))
	if err := c.postForm(ctx, "/threads/edit-document", form, nil); err != nil {
		return fmt.Errorf("unable to append content: %w", err)
	}

	c.log.Info("document content updated", zap.String("thread", threadID))
	return nil
}

// UploadBlob attaches file contents to a thread. Returns the blob id and the
// URL the API hands back for referencing the blob from document HTML.
func (c *Client) UploadBlob(ctx context.Context, threadID, filename, contentType string, data []byte) (string, string, error) {

	if len(contentType) == 0 {
		contentType = "application/octet-stream"
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="blob"; filename=%q`, filename))
	header.Set("Content-Type", contentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return "", "", fmt.Errorf("unable to prepare form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", "", fmt.Errorf("unable to prepare form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", "", fmt.Errorf("unable to prepare form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/blob/"+url.PathEscape(threadID), &buf)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var result struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := c.do(req, &result); err != nil {
		return "", "", fmt.Errorf("unable to upload blob: %w", err)
	}
	if len(result.ID) == 0 || len(result.URL) == 0 {
		return "", "", fmt.Errorf("incomplete blob upload response for %s", filename)
	}

	c.log.Debug("blob uploaded",
		zap.String("thread", threadID),
		zap.String("filename", filename),
		zap.String("blob", result.ID),
		zap.Int("size", len(data)))
	return result.ID, result.URL, nil
}

// DownloadBlob fetches blob contents from a thread.
func (c *Client) DownloadBlob(ctx context.Context, threadID, blobID string) ([]byte, error) {

	req, err := c.newRequest(ctx, http.MethodGet,
		"/blob/"+url.PathEscape(threadID)+"/"+url.PathEscape(blobID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: unexpected status %s", req.URL.Path, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read blob: %w", err)
	}
	return data, nil
}
