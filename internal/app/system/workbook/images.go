// internal/app/system/workbook/images.go
package workbook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxImageBytes bounds a single embedded image.
const MaxImageBytes = 5 << 20

// HTTPImages fetches ID images over HTTP for embedding.
type HTTPImages struct {
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPImages returns a fetcher with a per-request timeout.
func NewHTTPImages() *HTTPImages {
	return &HTTPImages{Client: &http.Client{Timeout: 15 * time.Second}, MaxBytes: MaxImageBytes}
}

var pictureExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Fetch downloads url and returns the bytes with a picture extension
// derived from the sniffed content. PDFs and other types are refused.
func (h *HTTPImages) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	limit := h.MaxBytes
	if limit <= 0 {
		limit = MaxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("image larger than %d bytes", limit)
	}
	ext, ok := pictureExt[http.DetectContentType(data)]
	if !ok {
		return nil, "", fmt.Errorf("not an embeddable image")
	}
	return data, ext, nil
}
