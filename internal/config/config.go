package config

import "time"

// Config is the root configuration for the messaging core.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Connection    ConnectionConfig    `yaml:"connection"`
	History       HistoryConfig       `yaml:"history"`
	Chat          ChatConfig          `yaml:"chat"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// ServerConfig holds endpoint settings.
type ServerConfig struct {
	WSURL     string `yaml:"ws_url"`
	RestURL   string `yaml:"rest_url"`
	TokenPath string `yaml:"token_path"` // optional, file containing the bearer token
}

// ConnectionConfig holds transport session settings.
type ConnectionConfig struct {
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	PingTimeout          time.Duration `yaml:"ping_timeout"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	FrameBufferSize      int           `yaml:"frame_buffer_size"`
}

// HistoryConfig holds REST collaborator settings.
type HistoryConfig struct {
	PageSize   int           `yaml:"page_size"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// ChatConfig holds conversation store settings.
type ChatConfig struct {
	// LocalEcho inserts a pending placeholder on send, reconciled against
	// the server echo. Off by default: messages become visible only once
	// the server echoes them back.
	LocalEcho bool `yaml:"local_echo"`
}

// NotificationsConfig holds unread aggregator settings.
type NotificationsConfig struct {
	MembershipRefreshInterval time.Duration `yaml:"membership_refresh_interval"`
}
