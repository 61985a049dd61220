package rest

import "github.com/gamehub-live/messaging/internal/model"

// Friend is one entry of the user's friend list.
type Friend struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Online   bool   `json:"online"`
}

// GroupMembership is one group the user belongs to.
type GroupMembership struct {
	ConversationID int64  `json:"conversationId"`
	Title          string `json:"title"`
	MemberCount    int    `json:"memberCount"`
}

// Ref converts a membership row to a conversation reference.
func (g GroupMembership) Ref() model.ConversationRef {
	return model.ConversationRef{
		ID:    g.ConversationID,
		Kind:  model.ConversationGroup,
		Title: g.Title,
	}
}

// historyResponse is the paginated message-history envelope.
type historyResponse struct {
	Messages []model.WireMessage `json:"messages"`
	HasMore  bool                `json:"hasMore"`
}

// friendsResponse wraps the friend list.
type friendsResponse struct {
	Friends []Friend `json:"friends"`
}

// groupsResponse wraps the membership list.
type groupsResponse struct {
	Groups []GroupMembership `json:"groups"`
}
