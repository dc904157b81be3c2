package attachments

import (
	"fmt"
	"net/http"
	"strings"
)

// Limits applied before an attachment is sent to the image host.
const (
	// MaxAttachmentBytes is the largest accepted upload (10MB).
	MaxAttachmentBytes = 10 << 20

	// MaxPixels guards against decompression bombs (roughly 8000x6000).
	MaxPixels = 50_000_000

	// DefaultMaxDimension matches the host-side "limit" crop used for post images.
	DefaultMaxDimension = 1000
)

// Attachment is an in-memory image supplied with a create or update call.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// Constraints bound the pixel size of an image with "limit" semantics:
// shrink to fit, keep aspect ratio, never upscale. Zero means unbounded.
type Constraints struct {
	MaxWidth  int
	MaxHeight int
}

// Limit returns constraints bounding both dimensions.
func Limit(maxWidth, maxHeight int) *Constraints {
	return &Constraints{MaxWidth: maxWidth, MaxHeight: maxHeight}
}

// Transformation renders the constraints as a host-side transformation string.
func (c *Constraints) Transformation() string {
	if c == nil || (c.MaxWidth <= 0 && c.MaxHeight <= 0) {
		return ""
	}
	parts := []string{"c_limit"}
	if c.MaxWidth > 0 {
		parts = append(parts, fmt.Sprintf("w_%d", c.MaxWidth))
	}
	if c.MaxHeight > 0 {
		parts = append(parts, fmt.Sprintf("h_%d", c.MaxHeight))
	}
	return strings.Join(parts, ",")
}

// exceeds reports whether an image of the given size must be shrunk.
func (c *Constraints) exceeds(width, height int) bool {
	if c == nil {
		return false
	}
	return (c.MaxWidth > 0 && width > c.MaxWidth) || (c.MaxHeight > 0 && height > c.MaxHeight)
}

// NormalizeMimeType strips parameters, lowercases, and maps non-standard
// aliases. When the declared type is missing or generic, the content is sniffed.
func NormalizeMimeType(declared string, data []byte) string {
	mimeType := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
		if i := strings.Index(mimeType, ";"); i >= 0 {
			mimeType = mimeType[:i]
		}
	}

	switch mimeType {
	case "image/jpg", "image/pjpeg":
		return "image/jpeg"
	case "image/x-png":
		return "image/png"
	default:
		return mimeType
	}
}

// isValidMimeType checks if the MIME type is allowed for attachments
func isValidMimeType(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}
