package attachments

import "errors"

var (
	// ErrUnsupportedFormat is returned when the attachment is not a decodable JPEG, PNG, GIF or WebP image.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrImageTooLarge is returned when the attachment exceeds the byte or pixel limits.
	ErrImageTooLarge = errors.New("image exceeds size limit")

	// ErrUploadFailed is returned for any transport or provider-side upload failure.
	ErrUploadFailed = errors.New("attachment upload failed")

	// ErrProcessingFailed is returned when a decoded image cannot be re-encoded.
	ErrProcessingFailed = errors.New("image processing failed")

	// ErrNilDependency is returned when a required dependency is nil.
	ErrNilDependency = errors.New("required dependency is nil")
)

// IsInvalidAttachment reports whether err is caused by the attachment itself
// (bad format or too large) rather than by the upload path.
func IsInvalidAttachment(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrImageTooLarge)
}
