package models

import (
	"mime"
	"strings"

	"github.com/dustin/go-humanize"
)

// AttachmentKind separates renderable images from everything else.
type AttachmentKind string

const (
	KindImage AttachmentKind = "image"
	KindFile  AttachmentKind = "file"
)

// KindForMIME classifies a MIME type. Only image/* maps to KindImage; the file
// extension is never consulted.
func KindForMIME(mimeType string) AttachmentKind {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(mimeType))
	if err != nil {
		return KindFile
	}
	if strings.HasPrefix(mediaType, "image/") && len(mediaType) > len("image/") {
		return KindImage
	}
	return KindFile
}

// Attachment is a previewable file attached to a message.
type Attachment struct {
	ID       string         `json:"id"`
	Kind     AttachmentKind `json:"kind"`
	Name     string         `json:"name"`
	Size     int64          `json:"size"`
	MIMEType string         `json:"mime_type"`

	// URL is the content reference, a data: URI usable for upload and local preview
	URL string `json:"url"`
}

// IsImage reports whether the attachment can be rendered as a thumbnail.
func (a Attachment) IsImage() bool {
	return a.Kind == KindImage
}

// SizeLabel renders a byte size for display, e.g. "1.2 MB".
func SizeLabel(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.Bytes(uint64(size))
}
