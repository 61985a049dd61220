package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewClient(ctx, server.URL, "test-token", opts...)
}

func TestPrivateHistoryFetch(t *testing.T) {
	var gotPath, gotLimit, gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLimit = r.URL.Query().Get("limit")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{
			"messages": [
				{"id": "m1", "senderId": 2, "receiverId": 1, "content": "hello", "messageType": "text", "timestamp": 1756500000000},
				{"id": "m2", "senderId": 1, "receiverId": 2, "content": "hi back", "messageType": "text", "timestamp": 1756500001000}
			],
			"hasMore": false
		}`))
	})
	c := newTestClient(t, handler)

	messages, err := c.PrivateHistory(context.Background(), 2, 50)
	require.NoError(t, err)

	assert.Equal(t, "/api/messages/private/2", gotPath)
	assert.Equal(t, "50", gotLimit)
	assert.Equal(t, "Bearer test-token", gotAuth)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, time.UnixMilli(1756500000000), messages[0].Timestamp)
}

func TestHistorySkipsMalformedRows(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"messages": [
				{"id": "m1", "senderId": 2, "conversationId": 10, "content": "ok", "messageType": "text"},
				{"senderId": 2, "conversationId": 10, "content": "no id", "messageType": "text"},
				{"id": "m3", "senderId": 2, "conversationId": 10, "content": "bad kind", "messageType": "sticker"},
				{"id": "m4", "senderId": 2, "conversationId": 10, "content": "ok too", "messageType": "text"}
			]
		}`))
	})
	c := newTestClient(t, handler)

	messages, err := c.GroupHistory(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "m4", messages[1].ID)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"messages": [{"id": "m1", "senderId": 2, "content": "finally", "messageType": "text"}]}`))
	})
	c := newTestClient(t, handler, WithMaxRetries(3))
	c.retryBackoff = time.Millisecond

	messages, err := c.PrivateHistory(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})
	c := newTestClient(t, handler, WithMaxRetries(3))
	c.retryBackoff = time.Millisecond

	_, err := c.PrivateHistory(context.Background(), 2, 0)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.False(t, apiErr.IsRetryable())
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, handler, WithMaxRetries(2))
	c.retryBackoff = time.Millisecond

	_, err := c.GroupHistory(context.Background(), 10, 0)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestGroupMembershipsCached(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"groups": [{"conversationId": 10, "title": "raid night", "memberCount": 5}]}`))
	})
	c := newTestClient(t, handler, WithCacheTTL(time.Minute))

	for i := 0; i < 3; i++ {
		groups, err := c.GroupMemberships(context.Background())
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "raid night", groups[0].Title)
	}

	assert.Equal(t, int32(1), calls.Load(), "repeat calls inside the TTL hit the cache")
}

func TestGroupRefs(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"groups": [
			{"conversationId": 10, "title": "raid night"},
			{"conversationId": 11, "title": "clan chat"}
		]}`))
	})
	c := newTestClient(t, handler)

	refs, err := c.GroupRefs(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, int64(10), refs[0].ID)
	assert.Equal(t, "raid night", refs[0].Title)
}

func TestFriendList(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/friends", r.URL.Path)
		w.Write([]byte(`{"friends": [{"id": 2, "username": "shade", "online": true}]}`))
	})
	c := newTestClient(t, handler)

	friends, err := c.FriendList(context.Background())
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "shade", friends[0].Username)
	assert.True(t, friends[0].Online)
}
