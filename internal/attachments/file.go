package attachments

import (
	"bytes"
	"io"
)

// File is a user-selected file waiting to be ingested.
type File interface {
	Name() string
	Size() int64
	ContentType() string
	Open() (io.ReadCloser, error)
}

type memFile struct {
	name string
	mime string
	data []byte
}

// NewFile wraps in-memory bytes as a File.
func NewFile(name, mimeType string, data []byte) File {
	return &memFile{name: name, mime: mimeType, data: data}
}

func (f *memFile) Name() string        { return f.name }
func (f *memFile) Size() int64         { return int64(len(f.data)) }
func (f *memFile) ContentType() string { return f.mime }

func (f *memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}
