package connection

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrHandshakeRefused = errors.New("handshake refused")
	ErrStaleConnection  = errors.New("connection stale (no ping)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
	ErrManagerClosed    = errors.New("connection manager closed")
)

// Command ops understood by the server.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpSend        = "send"
)

// Command is the client-to-server envelope.
type Command struct {
	Op      string          `json:"op"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Frame is the server-to-client envelope: a topic plus an opaque payload
// the router decodes.
type Frame struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// RawFrame wraps raw frame bytes with a receive timestamp.
type RawFrame struct {
	Data       []byte
	ReceivedAt time.Time
}

// OutgoingMessage is the publish payload for both private and group sends.
// ReceiverID is set for private sends, ConversationID for group sends.
type OutgoingMessage struct {
	ReceiverID     int64  `json:"receiverId,omitempty"`
	ConversationID int64  `json:"conversationId,omitempty"`
	Content        string `json:"content"`
	MessageType    string `json:"messageType"`
	Nonce          string `json:"nonce,omitempty"`
	FileID         string `json:"fileId,omitempty"`
	FileName       string `json:"fileName,omitempty"`
	FileSize       int64  `json:"fileSize,omitempty"`
	FileType       string `json:"fileType,omitempty"`
	FileExt        string `json:"fileExt,omitempty"`
	AccessURL      string `json:"accessUrl,omitempty"`
	ThumbnailURL   string `json:"thumbnailUrl,omitempty"`
}

// ClientConfig configures a single WebSocket session.
type ClientConfig struct {
	URL              string        // WebSocket URL
	HandshakeTimeout time.Duration // Dial timeout
	WriteTimeout     time.Duration // Write deadline for sends
	PingInterval     time.Duration // How often keepalive pings are sent
	PingTimeout      time.Duration // Max time without ping/pong before the session is stale
	BufferSize       int           // Frame channel buffer size
}

// ManagerConfig configures the connection Manager.
type ManagerConfig struct {
	URL                  string        // WebSocket URL
	HandshakeTimeout     time.Duration // Dial timeout
	WriteTimeout         time.Duration // Write deadline for sends
	PingInterval         time.Duration // Keepalive ping interval
	PingTimeout          time.Duration // Staleness threshold
	ReconnectBaseDelay   time.Duration // Delay unit; attempt n waits n × base
	MaxReconnectAttempts int           // Attempts before giving up as StateFailed
	FrameBufferSize      int           // Buffer size for the outbound frame channel
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         5 * time.Second,
		PingInterval:         15 * time.Second,
		PingTimeout:          45 * time.Second,
		ReconnectBaseDelay:   1 * time.Second,
		MaxReconnectAttempts: 5,
		FrameBufferSize:      256,
	}
}

func (c ManagerConfig) clientConfig() ClientConfig {
	return ClientConfig{
		URL:              c.URL,
		HandshakeTimeout: c.HandshakeTimeout,
		WriteTimeout:     c.WriteTimeout,
		PingInterval:     c.PingInterval,
		PingTimeout:      c.PingTimeout,
		BufferSize:       c.FrameBufferSize,
	}
}
