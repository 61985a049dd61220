package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Wire decode errors.
var (
	ErrMissingID         = errors.New("message has no id")
	ErrUnknownKind       = errors.New("unknown message type")
	ErrMissingAttachment = errors.New("file message has no attachment")
)

// WireMessage is the inbound JSON shape of a chat message. The server sends
// either an epoch-millisecond timestamp or an RFC 3339 createdAt, depending
// on which service produced the frame.
type WireMessage struct {
	ID             string      `json:"id"`
	SenderID       int64       `json:"senderId"`
	ReceiverID     int64       `json:"receiverId,omitempty"`
	ConversationID int64       `json:"conversationId,omitempty"`
	SenderUsername string      `json:"senderUsername"`
	SenderEmail    string      `json:"senderEmail"`
	Content        string      `json:"content"`
	MessageType    string      `json:"messageType"`
	Timestamp      int64       `json:"timestamp,omitempty"`
	CreatedAt      string      `json:"createdAt,omitempty"`
	Nonce          string      `json:"nonce,omitempty"`
	Attachment     *Attachment `json:"attachment,omitempty"`
}

// DecodeMessage parses a raw message payload. received is used as the
// timestamp when the payload carries neither timestamp nor createdAt.
func DecodeMessage(data []byte, received time.Time) (Message, error) {
	var w WireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("unmarshal message: %w", err)
	}
	return w.ToMessage(received)
}

// ToMessage validates the wire shape and converts it to the domain type.
func (w WireMessage) ToMessage(received time.Time) (Message, error) {
	if w.ID == "" {
		return Message{}, ErrMissingID
	}

	kind := MessageKind(w.MessageType)
	if !kind.Valid() {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownKind, w.MessageType)
	}
	if kind == KindFile && w.Attachment == nil {
		return Message{}, ErrMissingAttachment
	}

	ts := received
	switch {
	case w.Timestamp > 0:
		ts = time.UnixMilli(w.Timestamp)
	case w.CreatedAt != "":
		parsed, err := time.Parse(time.RFC3339, w.CreatedAt)
		if err != nil {
			return Message{}, fmt.Errorf("parse createdAt: %w", err)
		}
		ts = parsed
	}

	msg := Message{
		ID:             w.ID,
		SenderID:       w.SenderID,
		ReceiverID:     w.ReceiverID,
		ConversationID: w.ConversationID,
		SenderUsername: w.SenderUsername,
		SenderEmail:    w.SenderEmail,
		Content:        w.Content,
		Kind:           kind,
		Timestamp:      ts,
		Nonce:          w.Nonce,
	}
	if kind == KindFile {
		msg.Attachment = w.Attachment
	}
	return msg, nil
}
