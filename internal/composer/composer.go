// Package composer holds the draft of one conversation: text, staged files,
// the reply preview and the typing signal.
package composer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adi-253/Talkie/chatcore/internal/attachments"
	"github.com/adi-253/Talkie/chatcore/internal/clock"
	"github.com/adi-253/Talkie/chatcore/internal/debounce"
	"github.com/adi-253/Talkie/chatcore/internal/models"
)

// ErrSendInFlight is returned while a previous send is still ingesting.
var ErrSendInFlight = errors.New("send already in progress")

// StagedFile describes a file waiting in the composer.
type StagedFile struct {
	Name      string                `json:"name"`
	Size      int64                 `json:"size"`
	SizeLabel string                `json:"size_label"`
	MIMEType  string                `json:"mime_type"`
	Kind      models.AttachmentKind `json:"kind"`
}

// State is a read-only view of the composer.
type State struct {
	Draft   string               `json:"draft"`
	Staged  []StagedFile         `json:"staged"`
	ReplyTo *models.ReplyContext `json:"reply_to,omitempty"`
	Sending bool                 `json:"sending"`
	Typing  bool                 `json:"typing"`
}

// CommitFunc appends the finished message to the store. It runs under the
// composer lock, together with clearing the draft.
type CommitFunc func(models.Message) error

// Options configures a Composer.
type Options struct {
	Clock         clock.Clock
	TypingTimeout time.Duration
	Ingestor      *attachments.Ingestor

	// OnTyping observes typing start/stop
	OnTyping func(typing bool)
}

// Composer is safe for concurrent use.
type Composer struct {
	clock    clock.Clock
	ingestor *attachments.Ingestor
	onTyping func(bool)
	newID    func() string
	typingDB *debounce.Debouncer

	mu      sync.Mutex
	draft   string
	staged  []attachments.File
	reply   *models.ReplyContext
	sending bool
	typing  bool
}

// New creates an empty Composer.
func New(opts Options) *Composer {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Ingestor == nil {
		opts.Ingestor = attachments.NewIngestor(attachments.Options{})
	}
	c := &Composer{
		clock:    opts.Clock,
		ingestor: opts.Ingestor,
		onTyping: opts.OnTyping,
		newID:    uuid.NewString,
	}
	c.typingDB = debounce.New(opts.Clock, opts.TypingTimeout, c.stopTyping)
	return c
}

// SetDraft replaces the draft text. The first change of a burst signals
// typing; silence for the typing timeout signals that it stopped.
func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	started := !c.typing
	c.typing = true
	c.typingDB.Trigger()
	c.mu.Unlock()

	if started {
		c.emitTyping(true)
	}
}

// Draft returns the current draft text.
func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Stage adds files to the outgoing message, keeping their order.
func (c *Composer) Stage(files ...attachments.File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staged = append(c.staged, files...)
}

// Unstage removes the staged file at index i.
func (c *Composer) Unstage(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sending {
		return ErrSendInFlight
	}
	if i < 0 || i >= len(c.staged) {
		return nil
	}
	c.staged = append(c.staged[:i], c.staged[i+1:]...)
	return nil
}

// SetReply attaches a reply snapshot to the next message.
func (c *Composer) SetReply(rc *models.ReplyContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reply = rc
}

// CancelReply drops the reply preview. It reports whether one was set.
func (c *Composer) CancelReply() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	had := c.reply != nil
	c.reply = nil
	return had
}

// Prepare sets the draft without a typing signal. Non-empty files replace
// whatever is staged; with none, the staged files are kept for a retry.
func (c *Composer) Prepare(text string, files []attachments.File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
	if len(files) > 0 {
		c.staged = append([]attachments.File(nil), files...)
	}
}

// State returns a copy of the composer state.
func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// View runs fn with the composer locked. Commits take the same lock, so fn
// never sees the old draft next to the message it became.
func (c *Composer) View(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.stateLocked())
}

// Send turns the draft into a message.
//
// A blank draft with nothing staged is a no-op returning (nil, nil). The
// staged files are frozen and ingested outside the lock; on failure the
// draft, files and reply stay as they were. On success commit runs and the
// sent parts of the draft are cleared in the same critical section.
func (c *Composer) Send(ctx context.Context, commit CommitFunc) (*models.Message, error) {
	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return nil, ErrSendInFlight
	}
	text := strings.TrimSpace(c.draft)
	if text == "" && len(c.staged) == 0 {
		c.mu.Unlock()
		return nil, nil
	}
	c.sending = true
	draft := c.draft
	files := append([]attachments.File(nil), c.staged...)
	var rc *models.ReplyContext
	if c.reply != nil {
		snap := *c.reply
		rc = &snap
	}
	c.mu.Unlock()

	atts, err := c.ingestor.Ingest(ctx, files)
	if err != nil {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
		return nil, err
	}

	msg := models.Message{
		ID:          c.newID(),
		Direction:   models.DirectionSent,
		Text:        text,
		Attachments: atts,
		CreatedAt:   c.clock.Now().UTC(),
		Status:      models.StatusSent,
		ReplyTo:     rc,
	}

	c.mu.Lock()
	c.sending = false
	if err := commit(msg); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	// Text typed and files staged while ingesting belong to the next message.
	if c.draft == draft {
		c.draft = ""
	}
	c.staged = append([]attachments.File(nil), c.staged[len(files):]...)
	c.reply = nil
	stopped := c.typing
	c.typing = false
	c.typingDB.Cancel()
	c.mu.Unlock()

	if stopped {
		c.emitTyping(false)
	}
	return &msg, nil
}

// Close cancels the pending typing timer.
func (c *Composer) Close() {
	c.typingDB.Cancel()
}

func (c *Composer) stopTyping() {
	c.mu.Lock()
	was := c.typing
	c.typing = false
	c.mu.Unlock()

	if was {
		c.emitTyping(false)
	}
}

func (c *Composer) emitTyping(typing bool) {
	if c.onTyping != nil {
		c.onTyping(typing)
	}
}

func (c *Composer) stateLocked() State {
	st := State{
		Draft:   c.draft,
		Staged:  make([]StagedFile, 0, len(c.staged)),
		Sending: c.sending,
		Typing:  c.typing,
	}
	for _, f := range c.staged {
		st.Staged = append(st.Staged, StagedFile{
			Name:      f.Name(),
			Size:      f.Size(),
			SizeLabel: models.SizeLabel(f.Size()),
			MIMEType:  f.ContentType(),
			Kind:      models.KindForMIME(f.ContentType()),
		})
	}
	if c.reply != nil {
		rc := *c.reply
		st.ReplyTo = &rc
	}
	return st
}
