package model

import "time"

// MessageKind discriminates the message payload union.
type MessageKind string

const (
	KindText MessageKind = "text"
	KindFile MessageKind = "file"
)

// Valid reports whether k is a known message kind.
func (k MessageKind) Valid() bool {
	return k == KindText || k == KindFile
}

// Attachment describes the file carried by a KindFile message.
type Attachment struct {
	FileID       string `json:"fileId"`
	FileName     string `json:"fileName"`
	FileSize     int64  `json:"fileSize"`
	FileType     string `json:"fileType"`
	AccessURL    string `json:"accessUrl"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// Message is a single chat message. Identity is ID: two messages with the
// same ID are the same logical event.
type Message struct {
	ID             string
	SenderID       int64
	ReceiverID     int64 // 0 for group broadcasts
	ConversationID int64 // 0 for private messages
	SenderUsername string
	SenderEmail    string
	Content        string
	Kind           MessageKind
	Timestamp      time.Time
	Attachment     *Attachment // non-nil exactly when Kind == KindFile
	Nonce          string      // client-generated, echoed by the server; empty otherwise
	Pending        bool        // local placeholder awaiting server echo
}

// ConversationKind distinguishes one-to-one from multi-party conversations.
type ConversationKind string

const (
	ConversationPrivate ConversationKind = "private"
	ConversationGroup   ConversationKind = "group"
)

// ConversationRef identifies a conversation. Private conversations are keyed
// by the counterpart's user ID, group conversations by the conversation ID.
type ConversationRef struct {
	ID    int64
	Kind  ConversationKind
	Title string
}

// Same reports whether two refs point at the same logical conversation,
// ignoring display title.
func (r ConversationRef) Same(o ConversationRef) bool {
	return r.ID == o.ID && r.Kind == o.Kind
}

// UnreadEntry tracks unseen activity in one conversation.
type UnreadEntry struct {
	Conversation    ConversationRef
	LastMessage     string
	LastMessageTime time.Time
	UnreadCount     int
}
