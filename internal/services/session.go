package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adi-253/Talkie/chatcore/internal/attachments"
	"github.com/adi-253/Talkie/chatcore/internal/clock"
	"github.com/adi-253/Talkie/chatcore/internal/composer"
	"github.com/adi-253/Talkie/chatcore/internal/config"
	"github.com/adi-253/Talkie/chatcore/internal/conversations"
	"github.com/adi-253/Talkie/chatcore/internal/delivery"
	"github.com/adi-253/Talkie/chatcore/internal/logging"
	"github.com/adi-253/Talkie/chatcore/internal/metrics"
	"github.com/adi-253/Talkie/chatcore/internal/models"
	"github.com/adi-253/Talkie/chatcore/internal/navigation"
	"github.com/adi-253/Talkie/chatcore/internal/reply"
	"github.com/adi-253/Talkie/chatcore/internal/store"
	"github.com/adi-253/Talkie/chatcore/internal/thread"
)

var (
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrConversationNotFound = conversations.ErrNotFound
	ErrSessionClosed        = errors.New("session closed")
)

// Notifier receives state changes that happen outside a request, such as
// delivery transitions and typing signals.
type Notifier interface {
	Publish(sessionID string, event models.Event)
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, models.Event) {}

// Options carries the engine settings shared by every session.
type Options struct {
	Clock             clock.Clock
	Metrics           *metrics.Metrics
	DeliveredDelay    time.Duration
	ReadDelay         time.Duration
	HighlightDuration time.Duration
	JumpBackTTL       time.Duration
	TypingTimeout     time.Duration
	Location          *time.Location
	MaxAttachmentSize int64
	IngestConcurrency int
	SnippetWidth      int
}

// OptionsFromConfig maps the loaded configuration onto session options.
func OptionsFromConfig(cfg *config.Config, m *metrics.Metrics) Options {
	return Options{
		Clock:             clock.Real(),
		Metrics:           m,
		DeliveredDelay:    cfg.DeliveredDelay,
		ReadDelay:         cfg.ReadDelay,
		HighlightDuration: cfg.HighlightDuration,
		JumpBackTTL:       cfg.JumpBackTTL,
		TypingTimeout:     cfg.TypingTimeout,
		Location:          cfg.DayBucketLocation,
		MaxAttachmentSize: cfg.MaxAttachmentSize,
		IngestConcurrency: cfg.IngestConcurrency,
		SnippetWidth:      cfg.SnippetWidth,
	}
}

// ThreadView is everything needed to render the active conversation.
// Plan and Composer are read together, so a just-sent message and the
// draft it came from never show up at the same time.
type ThreadView struct {
	ConversationID string              `json:"conversation_id"`
	Participant    models.Participant  `json:"participant"`
	Plan           thread.Plan         `json:"plan"`
	Composer       composer.State      `json:"composer"`
	Navigation     navigation.Snapshot `json:"navigation"`
}

// Session is one user's view of their conversations: the list, the active
// thread, one composer per conversation and the timers behind them.
type Session struct {
	id        string
	opts      Options
	list      *conversations.List
	scheduler *delivery.Scheduler
	nav       *navigation.Controller
	assembler *thread.Assembler
	ingestor  *attachments.Ingestor
	notifier  Notifier
	log       zerolog.Logger

	mu         sync.Mutex
	composers  map[string]*composer.Composer
	closed     bool
	lastActive time.Time
}

// NewSession creates an empty session. A nil notifier drops events.
func NewSession(id string, opts Options, notifier Notifier) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}

	s := &Session{
		id:         id,
		opts:       opts,
		notifier:   notifier,
		log:        logging.WithSession(id),
		composers:  make(map[string]*composer.Composer),
		lastActive: opts.Clock.Now(),
	}
	s.list = conversations.New(conversations.Options{
		SnippetWidth: opts.SnippetWidth,
		Location:     opts.Location,
		Metrics:      opts.Metrics,
	})
	s.scheduler = delivery.New(delivery.Options{
		Clock:          opts.Clock,
		DeliveredDelay: opts.DeliveredDelay,
		ReadDelay:      opts.ReadDelay,
		Metrics:        opts.Metrics,
		OnTransition:   s.onTransition,
	})
	s.nav = navigation.New(navigation.Options{
		Clock:             opts.Clock,
		HighlightDuration: opts.HighlightDuration,
		JumpBackTTL:       opts.JumpBackTTL,
		OnChange:          s.onNavigation,
	})
	s.assembler = thread.NewAssembler(opts.Location, opts.Clock)
	s.ingestor = attachments.NewIngestor(attachments.Options{
		MaxSize:     opts.MaxAttachmentSize,
		Concurrency: opts.IngestConcurrency,
		Metrics:     opts.Metrics,
	})

	opts.Metrics.SessionOpened()
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// LastActive returns when the session was last used.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// LoadConversations replaces every conversation of the session. Pending
// timers of the previous set are cancelled; sent messages that never reached
// read resume their simulated delivery.
func (s *Session) LoadConversations(convs []models.Conversation) (int, error) {
	composers, err := s.resetComposers()
	if err != nil {
		return 0, err
	}
	for _, c := range composers {
		c.Close()
	}
	for _, conv := range s.list.All() {
		s.scheduler.Cancel(conv.ID())
	}
	s.nav.Reset()

	n := s.list.Load(convs)
	for _, conv := range s.list.All() {
		for _, msg := range conv.All() {
			if msg.Direction == models.DirectionSent && msg.Status != models.StatusRead {
				s.scheduler.Track(conv.ID(), conv, msg.ID)
			}
		}
	}
	s.log.Info().Int("conversations", n).Msg("conversations loaded")
	return n, nil
}

// SelectConversation makes id the active conversation and marks it read.
func (s *Session) SelectConversation(id string) error {
	if err := s.touch(); err != nil {
		return err
	}
	_, prev, err := s.list.Select(id)
	if err != nil {
		return err
	}
	if prev != id {
		s.nav.Reset()
	}
	s.publish(id, models.EventUnread, models.UnreadPayload{Unread: 0})
	return nil
}

// Previews returns the conversation list rows.
func (s *Session) Previews() []conversations.Preview {
	return s.list.Previews()
}

// OnDraftTextChange updates the active draft and drives the typing signal.
func (s *Session) OnDraftTextChange(text string) error {
	_, comp, err := s.active()
	if err != nil {
		return err
	}
	comp.SetDraft(text)
	return nil
}

// Stage adds files to the active composer.
func (s *Session) Stage(files []attachments.File) error {
	_, comp, err := s.active()
	if err != nil {
		return err
	}
	comp.Stage(files...)
	return nil
}

// Unstage removes one staged file from the active composer.
func (s *Session) Unstage(index int) error {
	_, comp, err := s.active()
	if err != nil {
		return err
	}
	return comp.Unstage(index)
}

// BeginReply snapshots messageID as the reply target of the next message.
func (s *Session) BeginReply(messageID string) (*models.ReplyContext, error) {
	conv, comp, err := s.active()
	if err != nil {
		return nil, err
	}
	linker := reply.NewLinker(s.opts.SnippetWidth, conv.Participant().Name)
	rc, err := linker.BeginReply(conv.All(), messageID)
	if err != nil {
		return nil, err
	}
	comp.SetReply(rc)
	return rc, nil
}

// CancelReply drops the reply preview of the active composer.
func (s *Session) CancelReply() error {
	_, comp, err := s.active()
	if err != nil {
		return err
	}
	comp.CancelReply()
	return nil
}

// Send sets the draft to text, stages files and sends.
func (s *Session) Send(ctx context.Context, text string, files []attachments.File) (*models.Message, error) {
	_, comp, err := s.active()
	if err != nil {
		return nil, err
	}
	comp.Prepare(text, files)
	return s.SendStaged(ctx)
}

// SendStaged sends whatever the active composer holds. A blank draft with no
// files returns (nil, nil) and leaves the store untouched.
func (s *Session) SendStaged(ctx context.Context) (*models.Message, error) {
	conv, comp, err := s.active()
	if err != nil {
		return nil, err
	}

	msg, err := comp.Send(ctx, func(m models.Message) error {
		if s.isClosed() {
			return ErrSessionClosed
		}
		conv.Append(m)
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("conversation_id", conv.ID()).Msg("send failed")
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}

	s.scheduler.Track(conv.ID(), conv, msg.ID)
	// The store may have adjusted CreatedAt; hand back what it holds.
	if stored, ok := conv.Get(msg.ID); ok {
		msg = &stored
	}
	s.publish(conv.ID(), models.EventMessage, msg)
	return msg, nil
}

// Receive appends a message from the peer of conversation id. When that
// conversation is on screen its unread counter goes straight back to zero.
func (s *Session) Receive(conversationID, text string, atts []models.Attachment) (*models.Message, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}
	conv, err := s.list.Get(conversationID)
	if err != nil {
		return nil, err
	}

	msg := models.Message{
		ID:          uuid.NewString(),
		Direction:   models.DirectionReceived,
		Text:        text,
		Attachments: atts,
		CreatedAt:   s.opts.Clock.Now().UTC(),
	}
	if !msg.HasContent() {
		return nil, fmt.Errorf("%w: empty message", models.ErrInvalidMessage)
	}
	conv.Append(msg)
	if s.list.ActiveID() == conversationID {
		conv.ResetUnread()
	}

	stored, _ := conv.Get(msg.ID)
	s.publish(conversationID, models.EventMessage, stored)
	s.publish(conversationID, models.EventUnread, models.UnreadPayload{Unread: conv.Unread()})
	return &stored, nil
}

// ResolveJump scrolls to a replied-to message and remembers currentOffset
// for JumpBack.
func (s *Session) ResolveJump(messageID string, currentOffset int) (navigation.Snapshot, error) {
	conv, _, err := s.active()
	if err != nil {
		return navigation.Snapshot{}, err
	}
	plan := s.assembler.Assemble(conv.All())
	pos, err := reply.NewLinker(s.opts.SnippetWidth, conv.Participant().Name).ResolveJump(plan, messageID)
	if err != nil {
		s.opts.Metrics.Jump("not_found")
		return navigation.Snapshot{}, err
	}
	s.opts.Metrics.Jump("found")
	return s.nav.Focus(pos, currentOffset), nil
}

// JumpBack returns the offset saved by the last jump, if it hasn't expired.
func (s *Session) JumpBack() (int, bool) {
	return s.nav.JumpBack()
}

// Thread renders the active conversation.
func (s *Session) Thread() (ThreadView, error) {
	conv, comp, err := s.active()
	if err != nil {
		return ThreadView{}, err
	}

	view := ThreadView{
		ConversationID: conv.ID(),
		Participant:    conv.Participant(),
		Navigation:     s.nav.Snapshot(),
	}
	comp.View(func(st composer.State) {
		view.Composer = st
		view.Plan = s.assembler.Assemble(conv.All())
	})
	return view, nil
}

// Export returns every conversation in its load shape.
func (s *Session) Export() []models.Conversation {
	all := s.list.All()
	out := make([]models.Conversation, 0, len(all))
	for _, conv := range all {
		out = append(out, conv.Snapshot())
	}
	return out
}

// Close cancels every timer of the session. It is safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	composers := s.composers
	s.composers = make(map[string]*composer.Composer)
	s.mu.Unlock()

	s.scheduler.Stop()
	s.nav.Reset()
	for _, c := range composers {
		c.Close()
	}
	s.opts.Metrics.SessionClosed()
	s.log.Info().Msg("session closed")
}

// active returns the store and composer of the active conversation.
func (s *Session) active() (*store.Conversation, *composer.Composer, error) {
	if err := s.touch(); err != nil {
		return nil, nil, err
	}
	conv := s.list.Active()
	if conv == nil {
		return nil, nil, ErrNoActiveConversation
	}
	comp, err := s.composerFor(conv.ID())
	if err != nil {
		return nil, nil, err
	}
	return conv, comp, nil
}

func (s *Session) composerFor(conversationID string) (*composer.Composer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if c, ok := s.composers[conversationID]; ok {
		return c, nil
	}
	c := composer.New(composer.Options{
		Clock:         s.opts.Clock,
		TypingTimeout: s.opts.TypingTimeout,
		Ingestor:      s.ingestor,
		OnTyping: func(typing bool) {
			s.publish(conversationID, models.EventTyping, models.TypingPayload{Typing: typing})
		},
	})
	s.composers[conversationID] = c
	return c, nil
}

func (s *Session) resetComposers() (map[string]*composer.Composer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	old := s.composers
	s.composers = make(map[string]*composer.Composer)
	s.lastActive = s.opts.Clock.Now()
	return old, nil
}

func (s *Session) touch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.lastActive = s.opts.Clock.Now()
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) onTransition(conversationID, messageID string, status models.DeliveryStatus) {
	s.publish(conversationID, models.EventStatus, models.StatusPayload{MessageID: messageID, Status: status})
}

func (s *Session) onNavigation(snap navigation.Snapshot) {
	s.publish(s.list.ActiveID(), models.EventNavigation, snap)
}

func (s *Session) publish(conversationID string, typ models.EventType, payload any) {
	s.notifier.Publish(s.id, models.Event{Type: typ, ConversationID: conversationID, Payload: payload})
}
