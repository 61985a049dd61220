package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic name shapes recognized by the server.
//
// The private inbox topic delivers every message where the user is sender or
// receiver. The group topic delivers every message broadcast to that group.
const (
	userTopicPrefix  = "chat.user."
	groupTopicPrefix = "chat.group."
)

// UserInboxTopic returns the private inbox topic for a user.
func UserInboxTopic(userID int64) string {
	return fmt.Sprintf("%s%d", userTopicPrefix, userID)
}

// GroupTopic returns the broadcast topic for a group conversation.
func GroupTopic(conversationID int64) string {
	return fmt.Sprintf("%s%d", groupTopicPrefix, conversationID)
}

// ParseGroupTopic extracts the conversation ID from a group topic.
func ParseGroupTopic(topic string) (int64, bool) {
	rest, ok := strings.CutPrefix(topic, groupTopicPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ParseUserInboxTopic extracts the user ID from a private inbox topic.
func ParseUserInboxTopic(topic string) (int64, bool) {
	rest, ok := strings.CutPrefix(topic, userTopicPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
