package attachments

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

const defaultUploadTimeout = 30 * time.Second

// Uploader forwards image bytes to an external asset host and returns a public URL.
// Implementations keep no local copy.
type Uploader interface {
	// Upload sends data to the host. constraints, when non-nil, are forwarded
	// as a host-side transformation. Every failure wraps ErrUploadFailed.
	Upload(ctx context.Context, data []byte, mimeType string, constraints *Constraints) (string, error)
}

// CloudinaryConfig holds the credentials for signed uploads.
type CloudinaryConfig struct {
	APIBase   string
	CloudName string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// CloudinaryUploader uploads images with the Cloudinary SDK.
type CloudinaryUploader struct {
	cld     *cloudinary.Cloudinary
	timeout time.Duration
}

// NewCloudinaryUploader creates an uploader. Timeout bounds each upload call.
func NewCloudinaryUploader(cfg CloudinaryConfig) (*CloudinaryUploader, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloud name, api key and api secret are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultUploadTimeout
	}

	conf, err := config.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("invalid cloudinary config: %w", err)
	}
	if cfg.APIBase != "" {
		conf.API.UploadPrefix = strings.TrimRight(cfg.APIBase, "/")
	}

	cld, err := cloudinary.NewFromConfiguration(*conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}

	return &CloudinaryUploader{cld: cld, timeout: cfg.Timeout}, nil
}

// Upload sends data as a signed image upload and returns the secure URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, data []byte, mimeType string, constraints *Constraints) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: data cannot be empty", ErrUploadFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	result, err := u.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		ResourceType:   "image",
		Transformation: constraints.Transformation(),
	})
	if err != nil {
		slog.Error("[UPLOAD] image upload failed", "mime_type", mimeType, "error", err)
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if result == nil {
		return "", fmt.Errorf("%w: empty response", ErrUploadFailed)
	}
	if result.Error.Message != "" {
		slog.Error("[UPLOAD] image host rejected upload", "message", result.Error.Message)
		return "", fmt.Errorf("%w: host rejected upload: %s", ErrUploadFailed, result.Error.Message)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("%w: response missing secure_url", ErrUploadFailed)
	}

	return result.SecureURL, nil
}

// DisabledUploader is wired when no image host is configured.
type DisabledUploader struct{}

// Upload always fails.
func (DisabledUploader) Upload(ctx context.Context, data []byte, mimeType string, constraints *Constraints) (string, error) {
	return "", fmt.Errorf("%w: no image host configured", ErrUploadFailed)
}
