package post

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"Quillpad/internal/api/handlers"
	"Quillpad/internal/core/attachments"
)

const (
	// MaxMultipartBytes caps a create/update body: the attachment limit plus form overhead
	MaxMultipartBytes = 12 << 20

	// multipartMemory is held in memory before parts spill to temp files
	multipartMemory = 1 << 20

	imageField = "image"
)

// postForm is the decoded multipart body of a create or update request
type postForm struct {
	attachment *attachments.Attachment
	title      string
	content    string
}

// parsePostForm reads title, content and the optional image part.
// It writes the error response itself and returns false on failure.
func parsePostForm(w http.ResponseWriter, r *http.Request) (*postForm, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxMultipartBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			handlers.WriteError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge",
				"Request body too large (max 12MB)")
			return nil, false
		}
		handlers.WriteError(w, http.StatusBadRequest, "ValidationFailed",
			"Request must be multipart/form-data")
		return nil, false
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	form := &postForm{
		title:   r.FormValue("title"),
		content: r.FormValue("content"),
	}

	att, err := readAttachment(r)
	if err != nil {
		if isTooLarge(err) {
			handlers.WriteError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge",
				"Request body too large (max 12MB)")
			return nil, false
		}
		handlers.WriteError(w, http.StatusBadRequest, "ValidationFailed", err.Error())
		return nil, false
	}
	form.attachment = att

	return form, true
}

// readAttachment returns nil when no image part was sent
func readAttachment(r *http.Request) (*attachments.Attachment, error) {
	file, header, err := r.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid image part: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Empty file inputs are submitted by browsers as a zero-length part
	if header.Size == 0 {
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(file, attachments.MaxAttachmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return &attachments.Attachment{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// isTooLarge reports whether the MaxBytesReader tripped. mime/multipart
// does not always wrap the underlying error, so the message is checked too.
func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}
