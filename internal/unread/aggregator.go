// Package unread implements the cross-conversation notification aggregator.
//
// The aggregator keeps session-wide subscriptions open to the user's private
// inbox and to every group the user belongs to, independent of whichever
// conversation store is active. It accumulates unread counts and previews
// per conversation; counts grow only through inbound-message processing and
// reset only through an explicit mark-read call.
package unread

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/gamehub-live/messaging/internal/connection"
	"github.com/gamehub-live/messaging/internal/model"
	"github.com/gamehub-live/messaging/internal/subscription"
)

// Subscriber is the slice of the subscription registry the aggregator needs.
type Subscriber interface {
	Subscribe(topic string, handler subscription.Handler) *subscription.Subscription
}

// StatusSource exposes connection state and its transitions.
type StatusSource interface {
	State() connection.State
	OnStatusChange(func(connection.StatusChange)) func()
}

// NotifyFunc receives a transient notification for a message that
// incremented an unread count.
type NotifyFunc func(msg model.Message, conversation model.ConversationRef)

// Aggregator tracks unread state across all conversations.
type Aggregator struct {
	subs   Subscriber
	status StatusSource
	userID int64
	logger *slog.Logger

	mu         sync.Mutex
	private    map[int64]*model.UnreadEntry // keyed by counterpart user id
	group      map[int64]*model.UnreadEntry // keyed by conversation id
	open       *model.ConversationRef       // conversation the UI currently shows
	groups     map[int64]model.ConversationRef
	inboxSub   *subscription.Subscription
	groupSubs  map[int64]*subscription.Subscription
	subscribed bool // initial setup done; guards duplicate registration
	notify     NotifyFunc

	waitCancel func() // one-shot connected listener, if armed
}

// New creates an aggregator for the given user.
func New(subs Subscriber, status StatusSource, userID int64, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		subs:      subs,
		status:    status,
		userID:    userID,
		logger:    logger,
		private:   make(map[int64]*model.UnreadEntry),
		group:     make(map[int64]*model.UnreadEntry),
		groups:    make(map[int64]model.ConversationRef),
		groupSubs: make(map[int64]*subscription.Subscription),
	}
}

// OnNotify registers the transient-notification callback for the UI.
func (a *Aggregator) OnNotify(fn NotifyFunc) {
	a.mu.Lock()
	a.notify = fn
	a.mu.Unlock()
}

// Start arms the session-wide subscriptions. If the transport is not yet
// connected, setup waits on a one-shot status notification for the next
// transition to connected rather than polling on an interval; the subscribed
// flag guarantees setup runs exactly once either way.
func (a *Aggregator) Start() {
	if a.status.State() == connection.StateConnected {
		a.setup()
		return
	}

	a.mu.Lock()
	if a.waitCancel != nil {
		a.mu.Unlock()
		return
	}
	var once sync.Once
	cancel := a.status.OnStatusChange(func(change connection.StatusChange) {
		if change.New != connection.StateConnected {
			return
		}
		once.Do(func() {
			a.mu.Lock()
			if a.waitCancel != nil {
				a.waitCancel()
				a.waitCancel = nil
			}
			a.mu.Unlock()
			a.setup()
		})
	})
	a.waitCancel = cancel
	a.mu.Unlock()

	// The transition may have happened while the listener was being armed.
	if a.status.State() == connection.StateConnected {
		once.Do(func() {
			a.mu.Lock()
			if a.waitCancel != nil {
				a.waitCancel()
				a.waitCancel = nil
			}
			a.mu.Unlock()
			a.setup()
		})
	}
}

// Stop tears down every session-wide subscription (logout).
func (a *Aggregator) Stop() {
	a.mu.Lock()
	if a.waitCancel != nil {
		a.waitCancel()
		a.waitCancel = nil
	}
	inbox := a.inboxSub
	a.inboxSub = nil
	groupSubs := a.groupSubs
	a.groupSubs = make(map[int64]*subscription.Subscription)
	a.subscribed = false
	a.mu.Unlock()

	if inbox != nil {
		inbox.Unsubscribe()
	}
	for _, sub := range groupSubs {
		sub.Unsubscribe()
	}
}

// setup subscribes the private inbox and every known group exactly once.
func (a *Aggregator) setup() {
	a.mu.Lock()
	if a.subscribed {
		a.mu.Unlock()
		return
	}
	a.subscribed = true
	groups := make([]model.ConversationRef, 0, len(a.groups))
	for _, ref := range a.groups {
		groups = append(groups, ref)
	}
	a.mu.Unlock()

	inbox := a.subs.Subscribe(model.UserInboxTopic(a.userID), a.handlePrivate)
	a.mu.Lock()
	a.inboxSub = inbox
	a.mu.Unlock()

	for _, ref := range groups {
		a.subscribeGroup(ref)
	}
	a.logger.Info("notification subscriptions armed", "groups", len(groups))
}

// SetGroups reconciles the session-wide group subscriptions against the
// user's current membership list. Call it on login and again whenever
// membership changes; joined groups gain a subscription, left groups lose
// theirs (and their unread entry).
func (a *Aggregator) SetGroups(groups []model.ConversationRef) {
	next := make(map[int64]model.ConversationRef, len(groups))
	for _, ref := range groups {
		if ref.Kind == model.ConversationGroup {
			next[ref.ID] = ref
		}
	}

	a.mu.Lock()
	var added []model.ConversationRef
	var removed []*subscription.Subscription
	for id, ref := range next {
		if _, ok := a.groups[id]; !ok && a.subscribed {
			added = append(added, ref)
		}
	}
	for id := range a.groups {
		if _, ok := next[id]; !ok {
			if sub := a.groupSubs[id]; sub != nil {
				removed = append(removed, sub)
				delete(a.groupSubs, id)
			}
			delete(a.group, id)
		}
	}
	a.groups = next
	a.mu.Unlock()

	for _, sub := range removed {
		sub.Unsubscribe()
	}
	for _, ref := range added {
		a.subscribeGroup(ref)
	}
	if len(added) > 0 || len(removed) > 0 {
		a.logger.Debug("group subscriptions reconciled",
			"joined", len(added), "left", len(removed))
	}
}

func (a *Aggregator) subscribeGroup(ref model.ConversationRef) {
	id := ref.ID
	sub := a.subs.Subscribe(model.GroupTopic(id), func(msg model.Message) {
		a.handleGroup(id, msg)
	})
	a.mu.Lock()
	if _, stillMember := a.groups[id]; stillMember {
		a.groupSubs[id] = sub
		sub = nil
	}
	a.mu.Unlock()
	if sub != nil {
		// Membership changed while subscribing
		sub.Unsubscribe()
	}
}

// SetOpenConversation records which conversation the UI currently displays.
// Messages for it never increment its unread count.
func (a *Aggregator) SetOpenConversation(ref model.ConversationRef) {
	a.mu.Lock()
	a.open = &ref
	a.mu.Unlock()
}

// ClearOpenConversation marks no conversation as displayed.
func (a *Aggregator) ClearOpenConversation() {
	a.mu.Lock()
	a.open = nil
	a.mu.Unlock()
}

// handlePrivate processes one private inbox message.
func (a *Aggregator) handlePrivate(msg model.Message) {
	if msg.SenderID == a.userID {
		return // self-echo, visible via the open store if relevant
	}
	ref := model.ConversationRef{
		ID:    msg.SenderID,
		Kind:  model.ConversationPrivate,
		Title: msg.SenderUsername,
	}
	a.record(a.private, ref, msg)
}

// handleGroup processes one group broadcast.
func (a *Aggregator) handleGroup(conversationID int64, msg model.Message) {
	if msg.SenderID == a.userID {
		return
	}
	a.mu.Lock()
	ref, ok := a.groups[conversationID]
	a.mu.Unlock()
	if !ok {
		ref = model.ConversationRef{ID: conversationID, Kind: model.ConversationGroup}
	}
	a.record(a.group, ref, msg)
}

// record applies the unread rules: skip when the conversation is the one
// currently open, otherwise bump its entry and raise a transient
// notification.
func (a *Aggregator) record(entries map[int64]*model.UnreadEntry, ref model.ConversationRef, msg model.Message) {
	a.mu.Lock()
	if a.open != nil && a.open.Same(ref) {
		a.mu.Unlock()
		return // already visible in the open conversation
	}

	entry, ok := entries[ref.ID]
	if !ok {
		entry = &model.UnreadEntry{Conversation: ref}
		entries[ref.ID] = entry
	}
	entry.UnreadCount++
	entry.LastMessage = preview(msg)
	entry.LastMessageTime = msg.Timestamp
	notify := a.notify
	a.mu.Unlock()

	if notify != nil {
		notify(msg, ref)
	}
}

// preview renders the sidebar text for a message.
func preview(msg model.Message) string {
	if msg.Kind == model.KindFile && msg.Attachment != nil {
		return msg.Attachment.FileName
	}
	return msg.Content
}

// MarkAsRead resets the conversation's unread count to zero without
// deleting the entry.
func (a *Aggregator) MarkAsRead(ref model.ConversationRef) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if entry, ok := a.entriesFor(ref.Kind)[ref.ID]; ok {
		entry.UnreadCount = 0
	}
}

// TotalUnread sums the unread counts of both maps.
func (a *Aggregator) TotalUnread() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for _, e := range a.private {
		total += e.UnreadCount
	}
	for _, e := range a.group {
		total += e.UnreadCount
	}
	return total
}

// ClearAll resets every entry to zero.
func (a *Aggregator) ClearAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.private {
		e.UnreadCount = 0
	}
	for _, e := range a.group {
		e.UnreadCount = 0
	}
}

// Entry returns the unread entry for one conversation.
func (a *Aggregator) Entry(ref model.ConversationRef) (model.UnreadEntry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.entriesFor(ref.Kind)[ref.ID]
	if !ok {
		return model.UnreadEntry{}, false
	}
	return *entry, true
}

// Entries returns every known conversation preview, most recent first.
func (a *Aggregator) Entries() []model.UnreadEntry {
	a.mu.Lock()
	out := make([]model.UnreadEntry, 0, len(a.private)+len(a.group))
	for _, e := range a.private {
		out = append(out, *e)
	}
	for _, e := range a.group {
		out = append(out, *e)
	}
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageTime.After(out[j].LastMessageTime)
	})
	return out
}

func (a *Aggregator) entriesFor(kind model.ConversationKind) map[int64]*model.UnreadEntry {
	if kind == model.ConversationGroup {
		return a.group
	}
	return a.private
}
