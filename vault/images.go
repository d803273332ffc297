package vault

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// PrepareUpload loads a media file and, for raster images wider than
// maxWidth, downscales it before upload - collaboration platforms reject or
// choke on very large images. SVG and non-image files pass through
// untouched. Returns the upload bytes and the sniffed content type.
func PrepareUpload(m MediaFile, maxWidth, jpegQuality int, log *zap.Logger) ([]byte, string, error) {

	data, err := os.ReadFile(m.LocalPath)
	if err != nil {
		return nil, "", fmt.Errorf("unable to read media file: %w", err)
	}

	contentType, err := ContentType(m.LocalPath)
	if err != nil {
		return nil, "", err
	}
	if strings.HasSuffix(strings.ToLower(m.Filename), ".svg") {
		return data, "image/svg+xml", nil
	}

	if maxWidth <= 0 || !strings.HasPrefix(contentType, "image/") {
		return data, contentType, nil
	}

	img, imgType, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// not decodable, upload as-is
		log.Debug("unable to decode image, uploading verbatim",
			zap.String("file", m.Filename), zap.Error(err))
		return data, contentType, nil
	}
	if img.Bounds().Dx() <= maxWidth {
		return data, contentType, nil
	}

	log.Info("downscaling image before upload",
		zap.String("file", m.Filename),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("max", maxWidth))

	resized := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)

	buf := new(bytes.Buffer)
	switch imgType {
	case "png":
		err = imaging.Encode(buf, resized, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	default:
		// everything else re-encodes as JPEG
		err = imaging.Encode(buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
		contentType = "image/jpeg"
	}
	if err != nil {
		return nil, "", fmt.Errorf("unable to encode resized image: %w", err)
	}
	return buf.Bytes(), contentType, nil
}
