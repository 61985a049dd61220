package rest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gamehub-live/messaging/internal/model"
)

// PrivateHistory fetches the most recent messages exchanged with a friend,
// oldest first.
func (c *Client) PrivateHistory(ctx context.Context, friendID int64, limit int) ([]model.Message, error) {
	return c.fetchHistory(ctx, fmt.Sprintf("/api/messages/private/%d", friendID), limit)
}

// GroupHistory fetches the most recent messages of a group conversation,
// oldest first.
func (c *Client) GroupHistory(ctx context.Context, conversationID int64, limit int) ([]model.Message, error) {
	return c.fetchHistory(ctx, fmt.Sprintf("/api/messages/group/%d", conversationID), limit)
}

func (c *Client) fetchHistory(ctx context.Context, path string, limit int) ([]model.Message, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp historyResponse
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	now := time.Now()
	messages := make([]model.Message, 0, len(resp.Messages))
	for _, w := range resp.Messages {
		msg, err := w.ToMessage(now)
		if err != nil {
			// History rows are server-persisted; a bad one is logged and
			// skipped rather than failing the whole page.
			c.logger.Warn("skipping malformed history row", "error", err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
