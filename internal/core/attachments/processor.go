package attachments

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// jpegQuality is used when a resized JPEG is re-encoded.
const jpegQuality = 85

// Processor defines the interface for constraining attachment images.
type Processor interface {
	// Constrain shrinks data to fit within constraints and returns the
	// (possibly re-encoded) bytes with their MIME type. Images that already
	// fit are returned unchanged.
	Constrain(data []byte, mimeType string, constraints *Constraints) ([]byte, string, error)
}

// ImageProcessor implements Processor using the imaging library.
type ImageProcessor struct{}

// NewProcessor creates a new ImageProcessor instance.
func NewProcessor() Processor {
	return &ImageProcessor{}
}

// Constrain applies "limit" semantics to the image.
func (p *ImageProcessor) Constrain(data []byte, mimeType string, constraints *Constraints) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty image data", ErrUnsupportedFormat)
	}

	// Read dimensions first so oversized images are rejected before a full decode
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if format != "jpeg" && format != "png" && format != "gif" && format != "webp" {
		return nil, "", fmt.Errorf("%w: format %s", ErrUnsupportedFormat, format)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d pixels", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	detected := "image/" + format
	if !constraints.exceeds(cfg.Width, cfg.Height) {
		return data, detected, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to decode image: %v", ErrUnsupportedFormat, err)
	}

	resized := fit(img, constraints)

	outFormat, outMime := encodingFor(format)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, outFormat, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", fmt.Errorf("%w: failed to encode %s: %v", ErrProcessingFailed, outMime, err)
	}

	return buf.Bytes(), outMime, nil
}

// fit scales img down to fit within the constraints, preserving aspect ratio.
// A zero bound is treated as unbounded on that axis.
func fit(img image.Image, c *Constraints) image.Image {
	bounds := img.Bounds()
	maxWidth, maxHeight := c.MaxWidth, c.MaxHeight
	if maxWidth <= 0 {
		maxWidth = bounds.Dx()
	}
	if maxHeight <= 0 {
		maxHeight = bounds.Dy()
	}
	return imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
}

// encodingFor maps a decoded format to the format used for re-encoding.
// There is no WebP encoder, so WebP sources become PNG to keep transparency.
func encodingFor(format string) (imaging.Format, string) {
	switch format {
	case "jpeg":
		return imaging.JPEG, "image/jpeg"
	case "gif":
		return imaging.GIF, "image/gif"
	default:
		return imaging.PNG, "image/png"
	}
}
