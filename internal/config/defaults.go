package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultPingInterval         = 15 * time.Second
	DefaultPingTimeout          = 45 * time.Second
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultFrameBufferSize      = 256

	DefaultHistoryPageSize   = 50
	DefaultHistoryTimeout    = 10 * time.Second
	DefaultHistoryMaxRetries = 3
	DefaultHistoryCacheTTL   = 30 * time.Second

	DefaultMembershipRefreshInterval = 1 * time.Minute
)

func (c *Config) applyDefaults() {
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.MaxReconnectAttempts == 0 {
		c.Connection.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Connection.FrameBufferSize == 0 {
		c.Connection.FrameBufferSize = DefaultFrameBufferSize
	}

	if c.History.PageSize == 0 {
		c.History.PageSize = DefaultHistoryPageSize
	}
	if c.History.Timeout == 0 {
		c.History.Timeout = DefaultHistoryTimeout
	}
	if c.History.MaxRetries == 0 {
		c.History.MaxRetries = DefaultHistoryMaxRetries
	}
	if c.History.CacheTTL == 0 {
		c.History.CacheTTL = DefaultHistoryCacheTTL
	}

	if c.Notifications.MembershipRefreshInterval == 0 {
		c.Notifications.MembershipRefreshInterval = DefaultMembershipRefreshInterval
	}
}
