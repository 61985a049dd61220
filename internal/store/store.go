// Package store implements the per-conversation message store.
//
// One store instance exists per conversation kind (private, group). A store
// holds history only for the conversation that is currently open: activation
// seeds the list from the history collaborator and subscribes to the live
// topic, deactivation unsubscribes and discards the list. Cross-conversation
// state belongs to the unread aggregator, not here.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"github.com/google/uuid"

	"github.com/gamehub-live/messaging/internal/connection"
	"github.com/gamehub-live/messaging/internal/model"
	"github.com/gamehub-live/messaging/internal/subscription"
)

// Subscriber is the slice of the subscription registry the store needs.
type Subscriber interface {
	Subscribe(topic string, handler subscription.Handler) *subscription.Subscription
}

// Sender publishes outbound commands on the live session.
type Sender interface {
	SendCommand(connection.Command) error
}

// HistoryFetcher is the external history-retrieval collaborator.
type HistoryFetcher interface {
	PrivateHistory(ctx context.Context, friendID int64, limit int) ([]model.Message, error)
	GroupHistory(ctx context.Context, conversationID int64, limit int) ([]model.Message, error)
}

// Config holds store settings.
type Config struct {
	PageSize int // history messages fetched on activation

	// LocalEcho appends a pending placeholder on send, keyed by a
	// client-generated nonce and reconciled against the server echo.
	// When off, a sent message becomes visible only once the server
	// echoes it back through the live subscription.
	LocalEcho bool
}

// Store caches the open conversation's messages and appends live arrivals.
type Store struct {
	kind    model.ConversationKind
	cfg     Config
	subs    Subscriber
	sender  Sender
	history HistoryFetcher
	userID  int64
	logger  *slog.Logger

	mu       sync.Mutex
	active   bool
	ref      model.ConversationRef
	sub      *subscription.Subscription
	messages []model.Message
	seen     map[string]int // message id → index in messages
	pending  map[string]int // local-echo nonce → index in messages
}

// NewPrivate creates the store for one-to-one conversations.
func NewPrivate(cfg Config, subs Subscriber, sender Sender, history HistoryFetcher, userID int64, logger *slog.Logger) *Store {
	return newStore(model.ConversationPrivate, cfg, subs, sender, history, userID, logger)
}

// NewGroup creates the store for group conversations.
func NewGroup(cfg Config, subs Subscriber, sender Sender, history HistoryFetcher, userID int64, logger *slog.Logger) *Store {
	return newStore(model.ConversationGroup, cfg, subs, sender, history, userID, logger)
}

func newStore(kind model.ConversationKind, cfg Config, subs Subscriber, sender Sender, history HistoryFetcher, userID int64, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		kind:    kind,
		cfg:     cfg,
		subs:    subs,
		sender:  sender,
		history: history,
		userID:  userID,
		logger:  logger.With("kind", string(kind)),
	}
}

// Activate opens a conversation: fetch the most recent history page, seed
// the in-memory list, then subscribe to the live topic. Activating the
// already-open conversation is a no-op; activating a different one replaces
// it.
func (s *Store) Activate(ctx context.Context, ref model.ConversationRef) error {
	if ref.Kind != s.kind {
		return fmt.Errorf("conversation kind %q does not match store kind %q", ref.Kind, s.kind)
	}

	s.mu.Lock()
	if s.active && s.ref.Same(ref) {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.Deactivate()

	var (
		seed []model.Message
		err  error
	)
	switch s.kind {
	case model.ConversationPrivate:
		seed, err = s.history.PrivateHistory(ctx, ref.ID, s.cfg.PageSize)
	case model.ConversationGroup:
		seed, err = s.history.GroupHistory(ctx, ref.ID, s.cfg.PageSize)
	}
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	s.mu.Lock()
	s.active = true
	s.ref = ref
	s.messages = make([]model.Message, 0, len(seed)+16)
	s.seen = make(map[string]int, len(seed))
	s.pending = make(map[string]int)
	for _, msg := range seed {
		s.appendLocked(msg)
	}
	s.mu.Unlock()

	sub := s.subs.Subscribe(s.topic(ref), s.handleIncoming)
	s.mu.Lock()
	if s.active && s.ref.Same(ref) {
		s.sub = sub
		sub = nil
	}
	s.mu.Unlock()
	if sub != nil {
		// Deactivated while subscribing
		sub.Unsubscribe()
	}
	s.logger.Debug("conversation activated", "conversation", ref.ID, "seeded", len(seed))
	return nil
}

// Deactivate closes the open conversation: unsubscribe from the live topic
// and discard the in-memory list. Safe to call when nothing is open.
func (s *Store) Deactivate() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	sub := s.sub
	ref := s.ref
	s.active = false
	s.ref = model.ConversationRef{}
	s.sub = nil
	s.messages = nil
	s.seen = nil
	s.pending = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	s.logger.Debug("conversation deactivated", "conversation", ref.ID)
}

// Active returns the open conversation, if any.
func (s *Store) Active() (model.ConversationRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref, s.active
}

// Messages returns a snapshot copy of the open conversation's messages.
func (s *Store) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Send publishes a message to the open conversation. The store itself is
// untouched unless local echo is enabled; without it the message appears
// only once the server echoes it back through the subscription.
func (s *Store) Send(content string, attachment *model.Attachment) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return fmt.Errorf("no open conversation")
	}
	ref := s.ref
	s.mu.Unlock()

	kind := model.KindText
	if attachment != nil {
		kind = model.KindFile
	}

	out := connection.OutgoingMessage{
		Content:     content,
		MessageType: string(kind),
	}
	switch s.kind {
	case model.ConversationPrivate:
		out.ReceiverID = ref.ID
	case model.ConversationGroup:
		out.ConversationID = ref.ID
	}
	if attachment != nil {
		out.FileID = attachment.FileID
		out.FileName = attachment.FileName
		out.FileSize = attachment.FileSize
		out.FileType = attachment.FileType
		out.FileExt = path.Ext(attachment.FileName)
		out.AccessURL = attachment.AccessURL
		out.ThumbnailURL = attachment.ThumbnailURL
	}

	var nonce string
	if s.cfg.LocalEcho {
		nonce = uuid.NewString()
		out.Nonce = nonce
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	cmd := connection.Command{Op: connection.OpSend, Payload: payload}
	if err := s.sender.SendCommand(cmd); err != nil {
		return err
	}

	if s.cfg.LocalEcho {
		s.mu.Lock()
		if s.active && s.ref.Same(ref) {
			placeholder := model.Message{
				ID:         "pending:" + nonce,
				SenderID:   s.userID,
				Content:    content,
				Kind:       kind,
				Attachment: attachment,
				Nonce:      nonce,
				Pending:    true,
			}
			s.pending[nonce] = len(s.messages)
			s.messages = append(s.messages, placeholder)
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *Store) topic(ref model.ConversationRef) string {
	if s.kind == model.ConversationGroup {
		return model.GroupTopic(ref.ID)
	}
	// The private inbox topic delivers every private message for the user,
	// regardless of counterpart; handleIncoming filters.
	return model.UserInboxTopic(s.userID)
}

// handleIncoming appends a live message if it belongs to the open
// conversation and its id has not been seen. This de-duplication is the only
// guard against the user's own sent messages arriving back through the same
// channel.
func (s *Store) handleIncoming(msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || !s.belongsLocked(msg) {
		return
	}

	// Reconcile a local-echo placeholder against its server echo.
	if msg.Nonce != "" {
		if idx, ok := s.pending[msg.Nonce]; ok {
			delete(s.pending, msg.Nonce)
			s.messages[idx] = msg
			s.seen[msg.ID] = idx
			return
		}
	}

	s.appendLocked(msg)
}

// belongsLocked reports whether a message is part of the open conversation.
func (s *Store) belongsLocked(msg model.Message) bool {
	switch s.kind {
	case model.ConversationGroup:
		return msg.ConversationID == s.ref.ID
	case model.ConversationPrivate:
		counterpart := s.ref.ID
		if msg.SenderID == s.userID {
			return msg.ReceiverID == counterpart
		}
		return msg.SenderID == counterpart && msg.ReceiverID == s.userID
	}
	return false
}

// appendLocked adds a message unless its id is already present.
func (s *Store) appendLocked(msg model.Message) {
	if _, ok := s.seen[msg.ID]; ok {
		return
	}
	s.seen[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
}
