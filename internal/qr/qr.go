// Package qr builds links to an external QR rendering service. Image
// rendering itself is delegated; only the URL is produced here.
package qr

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultBaseURL = "https://api.qrserver.com/v1/create-qr-code/"
	DefaultSize    = 300
)

type Renderer struct {
	baseURL string
	size    int
}

func NewRenderer(baseURL string, size int) *Renderer {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{baseURL: baseURL, size: size}
}

// ImageURL returns a URL that renders payload, taken as-is, as a QR image.
func (r *Renderer) ImageURL(payload string) string {
	return r.ImageURLSized(payload, r.size)
}

func (r *Renderer) ImageURLSized(payload string, size int) string {
	if size <= 0 {
		size = r.size
	}
	q := url.Values{}
	q.Set("size", fmt.Sprintf("%dx%d", size, size))
	q.Set("data", payload)

	sep := "?"
	if strings.Contains(r.baseURL, "?") {
		sep = "&"
	}
	return r.baseURL + sep + q.Encode()
}
