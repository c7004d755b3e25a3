package attachments

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adi-253/Talkie/chatcore/internal/models"
)

type brokenFile struct {
	name string
}

func (f brokenFile) Name() string        { return f.name }
func (f brokenFile) Size() int64         { return 10 }
func (f brokenFile) ContentType() string { return "text/plain" }
func (f brokenFile) Open() (io.ReadCloser, error) {
	return nil, errors.New("permission denied")
}

func TestIngest_PreservesOrderAndKinds(t *testing.T) {
	ing := NewIngestor(Options{Concurrency: 3})
	files := []File{
		NewFile("photo.png", "image/png", []byte{0x89, 'P', 'N', 'G'}),
		NewFile("notes.txt", "text/plain; charset=utf-8", []byte("hello")),
		NewFile("scan.jpg", "application/pdf", []byte("%PDF")),
		NewFile("blob", "", []byte{1, 2, 3}),
	}

	atts, err := ing.Ingest(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, atts, 4)

	require.Equal(t, "photo.png", atts[0].Name)
	require.Equal(t, models.KindImage, atts[0].Kind)
	require.True(t, strings.HasPrefix(atts[0].URL, "data:image/png;base64,"))

	require.Equal(t, "notes.txt", atts[1].Name)
	require.Equal(t, models.KindFile, atts[1].Kind)
	require.Equal(t, int64(5), atts[1].Size)

	// Extension says image, MIME says otherwise.
	require.Equal(t, models.KindFile, atts[2].Kind)

	require.Equal(t, "application/octet-stream", atts[3].MIMEType)
	for _, a := range atts {
		require.NotEmpty(t, a.ID)
	}
}

func TestIngest_AllOrNothing(t *testing.T) {
	ing := NewIngestor(Options{Concurrency: 2})
	files := []File{
		NewFile("a.png", "image/png", []byte("a")),
		brokenFile{name: "b.txt"},
		NewFile("c.png", "image/png", []byte("c")),
	}

	atts, err := ing.Ingest(context.Background(), files)
	require.Nil(t, atts)
	require.ErrorIs(t, err, ErrIngestionFailed)

	var ie *IngestionError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, 1, ie.Index)
	require.Equal(t, "b.txt", ie.Name)
}

func TestIngest_RejectsOversizedFile(t *testing.T) {
	ing := NewIngestor(Options{MaxSize: 4})
	_, err := ing.Ingest(context.Background(), []File{NewFile("big.bin", "application/octet-stream", []byte("12345"))})
	require.ErrorIs(t, err, ErrTooLarge)
	require.ErrorIs(t, err, ErrIngestionFailed)
}

func TestBegin_EmptyBatchSettlesImmediately(t *testing.T) {
	b := NewIngestor(Options{}).Begin(context.Background(), nil)
	select {
	case <-b.Done():
	default:
		t.Fatal("expected empty batch to be settled")
	}
	atts, err := b.Wait()
	require.NoError(t, err)
	require.Empty(t, atts)
}

func TestIngest_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewIngestor(Options{}).Ingest(ctx, []File{NewFile("a.txt", "text/plain", []byte("a"))})
	require.ErrorIs(t, err, context.Canceled)
}

func TestKindForMIME(t *testing.T) {
	require.Equal(t, models.KindImage, models.KindForMIME("image/jpeg"))
	require.Equal(t, models.KindImage, models.KindForMIME("IMAGE/PNG"))
	require.Equal(t, models.KindFile, models.KindForMIME("image/"))
	require.Equal(t, models.KindFile, models.KindForMIME("video/mp4"))
	require.Equal(t, models.KindFile, models.KindForMIME("not a mime"))
	require.Equal(t, models.KindFile, models.KindForMIME(""))
}
