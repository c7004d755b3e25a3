// Package attachments turns user-selected files into previewable attachment
// records. A batch either resolves completely or not at all.
package attachments

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/adi-253/Talkie/chatcore/internal/logging"
	"github.com/adi-253/Talkie/chatcore/internal/metrics"
	"github.com/adi-253/Talkie/chatcore/internal/models"
)

var (
	// ErrIngestionFailed is wrapped by every batch failure.
	ErrIngestionFailed = errors.New("attachment ingestion failed")

	// ErrTooLarge is returned for files above the configured limit.
	ErrTooLarge = errors.New("file exceeds maximum attachment size")
)

// IngestionError reports which file broke the batch.
type IngestionError struct {
	Index int
	Name  string
	Err   error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("attachment %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *IngestionError) Unwrap() []error {
	return []error{ErrIngestionFailed, e.Err}
}

// Options configures an Ingestor.
type Options struct {
	// MaxSize is the largest accepted file in bytes; 0 disables the check
	MaxSize int64

	// Concurrency bounds parallel reads; values below 1 mean 1
	Concurrency int

	Metrics *metrics.Metrics
}

// Ingestor resolves files into attachments.
type Ingestor struct {
	maxSize     int64
	concurrency int
	metrics     *metrics.Metrics
	log         zerolog.Logger
	newID       func() string
}

// NewIngestor creates an Ingestor.
func NewIngestor(opts Options) *Ingestor {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Ingestor{
		maxSize:     opts.MaxSize,
		concurrency: opts.Concurrency,
		metrics:     opts.Metrics,
		log:         logging.Component("attachments"),
		newID:       uuid.NewString,
	}
}

// Batch is a pending ingestion. Wait blocks until every file has resolved
// or the first one has failed.
type Batch struct {
	done        chan struct{}
	attachments []models.Attachment
	err         error
}

// Done is closed once the batch has settled.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait returns the resolved attachments in input order, or nil and the first error.
func (b *Batch) Wait() ([]models.Attachment, error) {
	<-b.done
	return b.attachments, b.err
}

// Ingest resolves files and blocks until the batch settles.
func (i *Ingestor) Ingest(ctx context.Context, files []File) ([]models.Attachment, error) {
	return i.Begin(ctx, files).Wait()
}

// Begin starts resolving files in the background and returns immediately.
func (i *Ingestor) Begin(ctx context.Context, files []File) *Batch {
	b := &Batch{done: make(chan struct{})}
	if len(files) == 0 {
		close(b.done)
		return b
	}

	frozen := append([]File(nil), files...)
	go func() {
		defer close(b.done)
		b.attachments, b.err = i.resolveAll(ctx, frozen)
	}()
	return b
}

func (i *Ingestor) resolveAll(ctx context.Context, files []File) ([]models.Attachment, error) {
	results := make([]models.Attachment, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for idx, f := range files {
		idx, f := idx, f
		g.Go(func() error {
			att, err := i.resolve(gctx, f)
			if err != nil {
				return &IngestionError{Index: idx, Name: f.Name(), Err: err}
			}
			results[idx] = att
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		i.metrics.IngestionFailed()
		i.log.Warn().Err(err).Int("files", len(files)).Msg("attachment batch rejected")
		return nil, err
	}

	for _, att := range results {
		i.metrics.AttachmentIngested(string(att.Kind))
	}
	i.log.Debug().Int("files", len(files)).Msg("attachment batch resolved")
	return results, nil
}

func (i *Ingestor) resolve(ctx context.Context, f File) (models.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return models.Attachment{}, err
	}
	if i.maxSize > 0 && f.Size() > i.maxSize {
		return models.Attachment{}, fmt.Errorf("%w: %s > %s", ErrTooLarge,
			humanize.Bytes(uint64(f.Size())), humanize.Bytes(uint64(i.maxSize)))
	}

	rc, err := f.Open()
	if err != nil {
		return models.Attachment{}, fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if i.maxSize > 0 {
		// Size() may lie; never read more than the limit allows.
		r = io.LimitReader(rc, i.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("read: %w", err)
	}
	if i.maxSize > 0 && int64(len(data)) > i.maxSize {
		return models.Attachment{}, ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return models.Attachment{}, err
	}

	mimeType := normalizeMIME(f.ContentType())
	return models.Attachment{
		ID:       i.newID(),
		Kind:     models.KindForMIME(mimeType),
		Name:     f.Name(),
		Size:     int64(len(data)),
		MIMEType: mimeType,
		URL:      DataURL(mimeType, data),
	}, nil
}

// DataURL encodes data as a base64 data: URI.
func DataURL(mimeType string, data []byte) string {
	var sb strings.Builder
	sb.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(data)))
	sb.WriteString("data:")
	sb.WriteString(mimeType)
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(data))
	return sb.String()
}

func normalizeMIME(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "application/octet-stream"
	}
	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		return "application/octet-stream"
	}
	return mime.FormatMediaType(mediaType, params)
}
