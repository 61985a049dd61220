package rest

import (
	"context"
	"fmt"

	"github.com/gamehub-live/messaging/internal/model"
)

// FriendList fetches the user's friends. Served from cache within the TTL.
func (c *Client) FriendList(ctx context.Context) ([]Friend, error) {
	var resp friendsResponse
	if err := c.getCached(ctx, "/api/friends", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch friends: %w", err)
	}
	return resp.Friends, nil
}

// GroupMemberships fetches the groups the user belongs to. Served from
// cache within the TTL.
func (c *Client) GroupMemberships(ctx context.Context) ([]GroupMembership, error) {
	var resp groupsResponse
	if err := c.getCached(ctx, "/api/groups", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch groups: %w", err)
	}
	return resp.Groups, nil
}

// GroupRefs fetches memberships as conversation references, ready for the
// unread aggregator.
func (c *Client) GroupRefs(ctx context.Context) ([]model.ConversationRef, error) {
	groups, err := c.GroupMemberships(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]model.ConversationRef, len(groups))
	for i, g := range groups {
		refs[i] = g.Ref()
	}
	return refs, nil
}
