package unread

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamehub-live/messaging/internal/connection"
	"github.com/gamehub-live/messaging/internal/model"
	"github.com/gamehub-live/messaging/internal/store"
)

// emptyHistory satisfies store.HistoryFetcher with no backlog.
type emptyHistory struct{}

func (emptyHistory) PrivateHistory(context.Context, int64, int) ([]model.Message, error) {
	return nil, nil
}

func (emptyHistory) GroupHistory(context.Context, int64, int) ([]model.Message, error) {
	return nil, nil
}

// The aggregator's session-wide subscriptions and a conversation store share
// topics on one registry: the private store opens the same inbox topic the
// aggregator holds for the whole session. Opening and closing a conversation
// must leave the aggregator's counting intact throughout.
func TestInboxSharedByStoreAndAggregator(t *testing.T) {
	h := newHarness(t, connection.StateConnected)
	h.agg.Start()

	st := store.NewPrivate(store.Config{PageSize: 50}, h.reg, h.status, emptyHistory{}, selfID, nil)
	inbox := model.UserInboxTopic(selfID)

	h.deliver(t, inbox, privMsg("m1", 2, "hello"))
	require.Equal(t, 1, h.agg.TotalUnread())

	// Open the conversation with friend 2
	ref2 := model.ConversationRef{ID: 2, Kind: model.ConversationPrivate}
	require.NoError(t, st.Activate(context.Background(), ref2))
	h.agg.SetOpenConversation(ref2)
	h.agg.MarkAsRead(ref2)
	require.Equal(t, 0, h.agg.TotalUnread())

	// A message from friend 3 while friend 2's conversation is open: the
	// store must ignore it, the aggregator must still count it.
	h.deliver(t, inbox, privMsg("m2", 3, "psst"))
	assert.Empty(t, st.Messages(), "other counterpart's message must not enter the open store")
	entry, ok := h.agg.Entry(model.ConversationRef{ID: 3, Kind: model.ConversationPrivate})
	require.True(t, ok, "aggregator must keep counting while a conversation is open")
	assert.Equal(t, 1, entry.UnreadCount)

	// A message from friend 2 lands in the store and is suppressed as unread
	h.deliver(t, inbox, privMsg("m3", 2, "hi again"))
	require.Len(t, st.Messages(), 1)
	assert.Equal(t, "m3", st.Messages()[0].ID)
	entry, _ = h.agg.Entry(ref2)
	assert.Equal(t, 0, entry.UnreadCount)

	// Closing the conversation must not tear down the aggregator's inbox
	st.Deactivate()
	h.agg.ClearOpenConversation()
	require.NotEmpty(t, h.reg.HandlersFor(inbox),
		"session-wide inbox subscription must survive the store's unsubscribe")

	h.deliver(t, inbox, privMsg("m4", 2, "you there?"))
	entry, ok = h.agg.Entry(ref2)
	require.True(t, ok)
	assert.Equal(t, 1, entry.UnreadCount)
	assert.Equal(t, 2, h.agg.TotalUnread())
}

func TestGroupTopicSharedByStoreAndAggregator(t *testing.T) {
	h := newHarness(t, connection.StateConnected)
	h.agg.Start()
	g10 := model.ConversationRef{ID: 10, Kind: model.ConversationGroup}
	h.agg.SetGroups([]model.ConversationRef{g10})

	st := store.NewGroup(store.Config{PageSize: 50}, h.reg, h.status, emptyHistory{}, selfID, nil)
	require.NoError(t, st.Activate(context.Background(), g10))
	h.agg.SetOpenConversation(g10)

	require.Len(t, h.reg.HandlersFor(model.GroupTopic(10)), 2,
		"store and aggregator hold independent bindings on the group topic")

	h.deliver(t, model.GroupTopic(10), groupMsg("m1", 2, 10, "gg"))
	require.Len(t, st.Messages(), 1)
	assert.Equal(t, 0, h.agg.TotalUnread(), "open conversation is suppressed")

	st.Deactivate()
	h.agg.ClearOpenConversation()

	h.deliver(t, model.GroupTopic(10), groupMsg("m2", 2, 10, "one more"))
	entry, ok := h.agg.Entry(g10)
	require.True(t, ok, "aggregator's group subscription must survive the store's unsubscribe")
	assert.Equal(t, 1, entry.UnreadCount)
}
