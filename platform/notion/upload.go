package notion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

const (
	// above this size the API requires the multi-part upload flow
	singleUploadLimit = 20 * 1024 * 1024

	// recommended part size for multi-part uploads
	uploadPartSize = 10 * 1024 * 1024
)

type fileUploadObject struct {
	ID        string `json:"id"`
	UploadURL string `json:"upload_url"`
}

// UploadFile pushes file contents to the platform and returns the file upload
// id to reference from media blocks. Files over the single request limit go
// through the multi-part flow.
func (c *Client) UploadFile(ctx context.Context, filename, contentType string, data []byte) (string, error) {

	if len(contentType) == 0 {
		contentType = "application/octet-stream"
	}

	if len(data) > singleUploadLimit {
		return c.uploadMultipart(ctx, filename, contentType, data)
	}

	var upload fileUploadObject
	body := map[string]any{
		"filename":     filename,
		"content_type": contentType,
	}
	if err := c.do(ctx, http.MethodPost, "/file_uploads", body, &upload); err != nil {
		return "", fmt.Errorf("unable to create file upload: %w", err)
	}

	sendURL := c.base + "/file_uploads/" + url.PathEscape(upload.ID) + "/send"
	if err := c.sendFilePart(ctx, sendURL, filename, contentType, data, 0); err != nil {
		return "", fmt.Errorf("unable to send file contents: %w", err)
	}

	c.log.Debug("file uploaded",
		zap.String("filename", filename),
		zap.String("upload", upload.ID),
		zap.Int("size", len(data)))
	return upload.ID, nil
}

func (c *Client) uploadMultipart(ctx context.Context, filename, contentType string, data []byte) (string, error) {

	parts := (len(data) + uploadPartSize - 1) / uploadPartSize

	var upload fileUploadObject
	body := map[string]any{
		"filename":        filename,
		"content_type":    contentType,
		"mode":            "multi_part",
		"number_of_parts": parts,
	}
	if err := c.do(ctx, http.MethodPost, "/file_uploads", body, &upload); err != nil {
		return "", fmt.Errorf("unable to create multi-part file upload: %w", err)
	}
	if len(upload.UploadURL) == 0 {
		return "", fmt.Errorf("multi-part file upload for %s has no upload url", filename)
	}

	c.log.Debug("uploading file in parts",
		zap.String("filename", filename),
		zap.Int("size", len(data)),
		zap.Int("parts", parts))

	for num := 1; num <= parts; num++ {
		start := (num - 1) * uploadPartSize
		end := min(start+uploadPartSize, len(data))
		if err := c.sendFilePart(ctx, upload.UploadURL, filename, contentType, data[start:end], num); err != nil {
			return "", fmt.Errorf("unable to send part %d of %d: %w", num, parts, err)
		}
	}

	path := "/file_uploads/" + url.PathEscape(upload.ID) + "/complete"
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, nil); err != nil {
		return "", fmt.Errorf("unable to complete multi-part file upload: %w", err)
	}
	return upload.ID, nil
}

// sendFilePart posts data as a multipart form to dst. partNumber 0 means a
// single request upload, anything else is passed along as the part number.
func (c *Client) sendFilePart(ctx context.Context, dst, filename, contentType string, data []byte, partNumber int) error {

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	if partNumber > 0 {
		if err := form.WriteField("part_number", strconv.Itoa(partNumber)); err != nil {
			return fmt.Errorf("unable to prepare form: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("unable to prepare form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("unable to prepare form: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("unable to prepare form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dst, &buf)
	if err != nil {
		return fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("unable to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, string(payload))
	}
	return nil
}
