package attachments

import (
	"context"
	"fmt"
	"log/slog"
)

// Service validates, constrains and uploads post attachments.
type Service interface {
	// Store returns the public URL of the uploaded attachment.
	Store(ctx context.Context, att *Attachment) (string, error)
}

type attachmentService struct {
	processor   Processor
	uploader    Uploader
	constraints *Constraints
}

// NewService creates an attachment service. constraints may be nil for no pixel bound.
func NewService(processor Processor, uploader Uploader, constraints *Constraints) (Service, error) {
	if processor == nil || uploader == nil {
		return nil, ErrNilDependency
	}
	return &attachmentService{
		processor:   processor,
		uploader:    uploader,
		constraints: constraints,
	}, nil
}

// Store runs the attachment through the processor, then uploads it.
// Nothing is uploaded when validation or processing fails.
func (s *attachmentService) Store(ctx context.Context, att *Attachment) (string, error) {
	if att == nil || len(att.Data) == 0 {
		return "", fmt.Errorf("%w: empty attachment", ErrUnsupportedFormat)
	}
	if len(att.Data) > MaxAttachmentBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds maximum of %d bytes", ErrImageTooLarge, len(att.Data), MaxAttachmentBytes)
	}

	mimeType := NormalizeMimeType(att.MimeType, att.Data)
	if !isValidMimeType(mimeType) {
		return "", fmt.Errorf("%w: %s (allowed: image/jpeg, image/png, image/gif, image/webp)", ErrUnsupportedFormat, mimeType)
	}

	data, outMime, err := s.processor.Constrain(att.Data, mimeType, s.constraints)
	if err != nil {
		return "", err
	}

	url, err := s.uploader.Upload(ctx, data, outMime, s.constraints)
	if err != nil {
		return "", err
	}

	slog.Debug("[UPLOAD] attachment stored",
		"filename", att.Filename,
		"mime_type", outMime,
		"bytes", len(data),
		"url", url,
	)
	return url, nil
}
