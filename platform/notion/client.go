// Package notion is a minimal client for the Notion REST API covering what
// document sync needs: page lifecycle, block children and file uploads.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"dsc/markdown"
)

const (
	apiVersion = "2022-06-28"

	// requests carrying file contents can take a while for large videos
	requestTimeout = 5 * time.Minute

	// the API accepts at most this many children per append request
	maxBlocksPerRequest = 100
)

type Client struct {
	base     string
	token    string
	database string
	http     *http.Client
	log      *zap.Logger
}

// NewClient creates a client bound to one database. base is the API root,
// e.g. "https://api.notion.com/v1".
func NewClient(base, token, database string, log *zap.Logger) *Client {
	return &Client{
		base:     strings.TrimSuffix(base, "/"),
		token:    token,
		database: database,
		http:     &http.Client{Timeout: requestTimeout},
		log:      log.Named("notion"),
	}
}

// apiError is the error payload the API returns on failures.
type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("unable to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

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
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && len(apiErr.Message) > 0 {
			return fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("%s %s: unexpected status %s", method, path, resp.Status)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unable to unmarshal response: %w", err)
		}
	}
	return nil
}

type pageObject struct {
	ID     string `json:"id"`
	Parent struct {
		Type       string `json:"type"`
		DatabaseID string `json:"database_id"`
	} `json:"parent"`
	Properties map[string]struct {
		Type  string     `json:"type"`
		Title []richText `json:"title"`
	} `json:"properties"`
}

// FindPageByTitle searches the database for a page with the exact title.
// Returns an empty id when nothing matches; the platform search is fuzzy so
// results are filtered down to this database and an exact match.
func (c *Client) FindPageByTitle(ctx context.Context, title string) (string, error) {

	var result struct {
		Results []pageObject `json:"results"`
	}
	body := map[string]any{
		"query":  title,
		"filter": map[string]string{"value": "page", "property": "object"},
	}
	if err := c.do(ctx, http.MethodPost, "/search", body, &result); err != nil {
		return "", fmt.Errorf("unable to search pages: %w", err)
	}

	for _, page := range result.Results {
		if page.Parent.Type != "database_id" || page.Parent.DatabaseID != c.database {
			continue
		}
		if prop, ok := page.Properties["Name"]; ok && prop.Type == "title" &&
			plainRichText(prop.Title) == title {
			c.log.Info("found existing page by title", zap.String("title", title), zap.String("page", page.ID))
			return page.ID, nil
		}
	}
	return "", nil
}

func titleProperty(title string) map[string]any {
	return map[string]any{
		"Name": map[string]any{
			"title": []map[string]any{{"text": map[string]string{"content": title}}},
		},
	}
}

// CreatePage creates a database page holding blocks, batching children past
// the per-request limit.
func (c *Client) CreatePage(ctx context.Context, title string, blocks []markdown.Block) (string, error) {

	api := encodeBlocks(blocks)

	first := api
	if len(first) > maxBlocksPerRequest {
		first = first[:maxBlocksPerRequest]
	}

	var result struct {
		ID string `json:"id"`
	}
	body := map[string]any{
		"parent":     map[string]string{"database_id": c.database},
		"properties": titleProperty(title),
		"children":   first,
	}
	if err := c.do(ctx, http.MethodPost, "/pages", body, &result); err != nil {
		return "", fmt.Errorf("unable to create page: %w", err)
	}

	if len(api) > maxBlocksPerRequest {
		if err := c.appendBlocks(ctx, result.ID, api[maxBlocksPerRequest:]); err != nil {
			return "", err
		}
	}

	c.log.Info("page created", zap.String("title", title), zap.String("page", result.ID))
	return result.ID, nil
}

// GetPageTitle fetches the title property of a page.
func (c *Client) GetPageTitle(ctx context.Context, pageID string) (string, error) {
	var page pageObject
	if err := c.do(ctx, http.MethodGet, "/pages/"+url.PathEscape(pageID), nil, &page); err != nil {
		return "", fmt.Errorf("unable to fetch page: %w", err)
	}
	if prop, ok := page.Properties["Name"]; ok && prop.Type == "title" {
		return plainRichText(prop.Title), nil
	}
	return "", nil
}

// ArchivePage soft-deletes a page.
func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	body := map[string]any{"archived": true}
	if err := c.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(pageID), body, nil); err != nil {
		return fmt.Errorf("unable to archive page: %w", err)
	}
	return nil
}

// UpdatePageContent replaces page content in place: existing blocks are
// erased atomically, then the new ones appended. The page id survives, so
// links to the page keep working.
func (c *Client) UpdatePageContent(ctx context.Context, pageID, title string, blocks []markdown.Block) error {

	body := map[string]any{"erase_content": true}
	if len(title) > 0 {
		body["properties"] = titleProperty(title)
	}
	if err := c.do(ctx, http.MethodPatch, "/pages/"+url.PathEscape(pageID), body, nil); err != nil {
		return fmt.Errorf("unable to erase page content: %w", err)
	}

	if err := c.appendBlocks(ctx, pageID, encodeBlocks(blocks)); err != nil {
		return err
	}
	c.log.Info("page content updated", zap.String("page", pageID), zap.Int("blocks", len(blocks)))
	return nil
}

func (c *Client) appendBlocks(ctx context.Context, blockID string, blocks []apiBlock) error {

	for start := 0; start < len(blocks); start += maxBlocksPerRequest {
		end := min(start+maxBlocksPerRequest, len(blocks))
		body := map[string]any{"children": blocks[start:end]}
		path := "/blocks/" + url.PathEscape(blockID) + "/children"
		if err := c.do(ctx, http.MethodPatch, path, body, nil); err != nil {
			return fmt.Errorf("unable to append blocks: %w", err)
		}
		c.log.Debug("appended blocks", zap.Int("count", end-start), zap.String("block", blockID))
	}
	return nil
}

// GetBlocks fetches all top-level blocks of a page, following pagination.
func (c *Client) GetBlocks(ctx context.Context, pageID string) ([]markdown.Block, error) {

	var blocks []apiBlock
	cursor := ""

	for {
		path := "/blocks/" + url.PathEscape(pageID) + "/children?page_size=100"
		if len(cursor) > 0 {
			path += "&start_cursor=" + url.QueryEscape(cursor)
		}
		var result struct {
			Results    []apiBlock `json:"results"`
			HasMore    bool       `json:"has_more"`
			NextCursor string     `json:"next_cursor"`
		}
		if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
			return nil, fmt.Errorf("unable to fetch blocks: %w", err)
		}
		blocks = append(blocks, result.Results...)
		if !result.HasMore {
			break
		}
		cursor = result.NextCursor
	}

	c.log.Debug("fetched blocks", zap.String("page", pageID), zap.Int("count", len(blocks)))
	return decodeBlocks(blocks), nil
}

// DownloadFile fetches a platform-hosted file (the temporary URLs the API
// hands out for file blocks).
func (c *Client) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unable to download file: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read file contents: %w", err)
	}
	return data, nil
}
