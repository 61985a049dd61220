package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamehub-live/messaging/internal/connection"
	"github.com/gamehub-live/messaging/internal/model"
	"github.com/gamehub-live/messaging/internal/subscription"
)

const selfID int64 = 1

// fakeSubs records Subscribe calls and exposes the registered handlers so
// tests can inject live messages.
type fakeSubs struct {
	reg *subscription.Registry
	tr  *stubTransport
}

// stubTransport satisfies subscription.Transport with a fixed connected
// state, so the real registry logic runs in store tests.
type stubTransport struct {
	mu   sync.Mutex
	sent []connection.Command
}

func (s *stubTransport) State() connection.State { return connection.StateConnected }
func (s *stubTransport) OnStatusChange(func(connection.StatusChange)) func() {
	return func() {}
}
func (s *stubTransport) SendCommand(cmd connection.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, cmd)
	return nil
}

func (s *stubTransport) commands(op string) []connection.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []connection.Command
	for _, cmd := range s.sent {
		if cmd.Op == op {
			out = append(out, cmd)
		}
	}
	return out
}

func newFakeSubs() *fakeSubs {
	tr := &stubTransport{}
	return &fakeSubs{reg: subscription.NewRegistry(tr, nil), tr: tr}
}

func (f *fakeSubs) Subscribe(topic string, h subscription.Handler) *subscription.Subscription {
	return f.reg.Subscribe(topic, h)
}

// deliver pushes a message through the registry's live handler for a topic.
func (f *fakeSubs) deliver(t *testing.T, topic string, msg model.Message) {
	t.Helper()
	handlers := f.reg.HandlersFor(topic)
	require.NotEmpty(t, handlers, "no live subscription for %s", topic)
	for _, h := range handlers {
		h(msg)
	}
}

// fakeHistory serves canned history pages.
type fakeHistory struct {
	private map[int64][]model.Message
	group   map[int64][]model.Message
	err     error
}

func (f *fakeHistory) PrivateHistory(_ context.Context, friendID int64, _ int) ([]model.Message, error) {
	return f.private[friendID], f.err
}

func (f *fakeHistory) GroupHistory(_ context.Context, conversationID int64, _ int) ([]model.Message, error) {
	return f.group[conversationID], f.err
}

func msg(id string, sender, receiver, conv int64, content string) model.Message {
	return model.Message{
		ID:             id,
		SenderID:       sender,
		ReceiverID:     receiver,
		ConversationID: conv,
		Content:        content,
		Kind:           model.KindText,
		Timestamp:      time.Now(),
	}
}

func privateRef(friendID int64) model.ConversationRef {
	return model.ConversationRef{ID: friendID, Kind: model.ConversationPrivate}
}

func groupRef(convID int64) model.ConversationRef {
	return model.ConversationRef{ID: convID, Kind: model.ConversationGroup}
}

func TestActivateSeedsHistoryThenSubscribes(t *testing.T) {
	subs := newFakeSubs()
	history := &fakeHistory{private: map[int64][]model.Message{
		2: {msg("h1", 2, selfID, 0, "old one"), msg("h2", selfID, 2, 0, "old two")},
	}}
	s := NewPrivate(Config{PageSize: 50}, subs, subs.tr, history, selfID, nil)

	require.NoError(t, s.Activate(context.Background(), privateRef(2)))

	messages := s.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "h1", messages[0].ID)

	// Live topic is the user's own inbox, not per-counterpart
	assert.Equal(t, []string{model.UserInboxTopic(selfID)}, subs.reg.Topics())
}

func TestAppendDeduplicatesByID(t *testing.T) {
	subs := newFakeSubs()
	s := NewGroup(Config{PageSize: 50}, subs, subs.tr, &fakeHistory{}, selfID, nil)
	require.NoError(t, s.Activate(context.Background(), groupRef(10)))

	m := msg("m1", 2, 0, 10, "hi")
	subs.deliver(t, model.GroupTopic(10), m)
	subs.deliver(t, model.GroupTopic(10), m)

	assert.Len(t, s.Messages(), 1, "same id twice must yield exactly one entry")
}

func TestPrivateStoreFiltersByCounterpart(t *testing.T) {
	subs := newFakeSubs()
	s := NewPrivate(Config{PageSize: 50}, subs, subs.tr, &fakeHistory{}, selfID, nil)
	require.NoError(t, s.Activate(context.Background(), privateRef(2)))

	inbox := model.UserInboxTopic(selfID)
	subs.deliver(t, inbox, msg("m1", 2, selfID, 0, "from friend 2"))      // counterpart → keep
	subs.deliver(t, inbox, msg("m2", selfID, 2, 0, "own echo to 2"))      // own echo → keep
	subs.deliver(t, inbox, msg("m3", 3, selfID, 0, "from friend 3"))      // other conversation → drop
	subs.deliver(t, inbox, msg("m4", selfID, 3, 0, "own echo to 3"))      // other conversation → drop

	ids := make([]string, 0)
	for _, m := range s.Messages() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m2"}, ids)
}

func TestSendDoesNotTouchStore(t *testing.T) {
	subs := newFakeSubs()
	s := NewGroup(Config{PageSize: 50}, subs, subs.tr, &fakeHistory{}, selfID, nil)
	require.NoError(t, s.Activate(context.Background(), groupRef(10)))

	require.NoError(t, s.Send("hello", nil))

	assert.Empty(t, s.Messages(), "without local echo a send is invisible until the server echoes it")

	sends := subs.tr.commands(connection.OpSend)
	require.Len(t, sends, 1)
	var out connection.OutgoingMessage
	require.NoError(t, json.Unmarshal(sends[0].Payload, &out))
	assert.Equal(t, int64(10), out.ConversationID)
	assert.Equal(t, "hello", out.Content)
	assert.Equal(t, "text", out.MessageType)
	assert.Empty(t, out.Nonce)
}

func TestSendFilePayload(t *testing.T) {
	subs := newFakeSubs()
	s := NewPrivate(Config{PageSize: 50}, subs, subs.tr, &fakeHistory{}, selfID, nil)
	require.NoError(t, s.Activate(context.Background(), privateRef(2)))

	att := &model.Attachment{
		FileID:    "f1",
		FileName:  "clip.mp4",
		FileSize:  1 << 20,
		FileType:  "video/mp4",
		AccessURL: "https://cdn.example.com/f1",
	}
	require.NoError(t, s.Send("sent you a clip", att))

	sends := subs.tr.commands(connection.OpSend)
	require.Len(t, sends, 1)
	var out connection.OutgoingMessage
	require.NoError(t, json.Unmarshal(sends[0].Payload, &out))
	assert.Equal(t, int64(2), out.ReceiverID)
	assert.Equal(t, "file", out.MessageType)
	assert.Equal(t, "clip.mp4", out.FileName)
	assert.Equal(t, ".mp4", out.FileExt)
}

func TestLocalEchoReconciliation(t *testing.T) {
	subs := newFakeSubs()
	s := NewGroup(Config{PageSize: 50, LocalEcho: true}, subs, subs.tr, &fakeHistory{}, selfID, nil)
	require.NoError(t, s.Activate(context.Background(), groupRef(10)))

	require.NoError(t, s.Send("optimistic", nil))

	messages := s.Messages()
	require.Len(t, messages, 1)
	assert.True(t, messages[0].Pending)
	nonce := messages[0].Nonce
	require.NotEmpty(t, nonce)

	// Server echo with the real id and the client nonce
	echo := msg("srv-1", selfID, 0, 10, "optimistic")
	echo.Nonce = nonce
	subs.deliver(t, model.GroupTopic(10), echo)

	messages = s.Messages()
	require.Len(t, messages, 1, "echo must replace the placeholder, not append")
	assert.Equal(t, "srv-1", messages[0].ID)
	assert.False(t, messages[0].Pending)

	// A duplicate echo is then caught by id de-duplication
	subs.deliver(t, model.GroupTopic(10), echo)
	assert.Len(t, s.Messages(), 1)
}

func TestDeactivateUnsubscribesAndClears(t *testing.T) {
	subs := newFakeSubs()
	s := NewGroup(Config{PageSize: 50}, subs, subs.tr, &fakeHistory{}, selfID, nil)
	require.NoError(t, s.Activate(context.Background(), groupRef(10)))

	subs.deliver(t, model.GroupTopic(10), msg("m1", 2, 0, 10, "hi"))
	require.Len(t, s.Messages(), 1)

	s.Deactivate()
	s.Deactivate() // safe when nothing is open

	assert.Empty(t, s.Messages())
	assert.Empty(t, subs.reg.Topics(), "live topic must be unsubscribed")
	_, active := s.Active()
	assert.False(t, active)
}

func TestActivateSwitchReplacesConversation(t *testing.T) {
	subs := newFakeSubs()
	history := &fakeHistory{group: map[int64][]model.Message{
		10: {msg("g10", 2, 0, 10, "in ten")},
		11: {msg("g11", 3, 0, 11, "in eleven")},
	}}
	s := NewGroup(Config{PageSize: 50}, subs, subs.tr, history, selfID, nil)

	require.NoError(t, s.Activate(context.Background(), groupRef(10)))
	require.NoError(t, s.Activate(context.Background(), groupRef(11)))

	assert.Equal(t, []string{model.GroupTopic(11)}, subs.reg.Topics())
	messages := s.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "g11", messages[0].ID)

	// Re-activating the open conversation is a no-op
	require.NoError(t, s.Activate(context.Background(), groupRef(11)))
	assert.Len(t, s.Messages(), 1)
}

func TestActivateRejectsWrongKind(t *testing.T) {
	subs := newFakeSubs()
	s := NewGroup(Config{PageSize: 50}, subs, subs.tr, &fakeHistory{}, selfID, nil)
	assert.Error(t, s.Activate(context.Background(), privateRef(2)))
}

func TestSendRequiresOpenConversation(t *testing.T) {
	subs := newFakeSubs()
	s := NewGroup(Config{PageSize: 50}, subs, subs.tr, &fakeHistory{}, selfID, nil)
	assert.Error(t, s.Send("into the void", nil))
}
