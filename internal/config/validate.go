package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.WSURL == "" {
		return errors.New("server.ws_url is required")
	}
	if !strings.HasPrefix(c.Server.WSURL, "ws://") && !strings.HasPrefix(c.Server.WSURL, "wss://") {
		return fmt.Errorf("server.ws_url must be a ws:// or wss:// URL, got %q", c.Server.WSURL)
	}
	if c.Server.RestURL == "" {
		return errors.New("server.rest_url is required")
	}

	if c.Connection.ReconnectBaseDelay <= 0 {
		return errors.New("connection.reconnect_base_delay must be > 0")
	}
	if c.Connection.MaxReconnectAttempts < 1 {
		return errors.New("connection.max_reconnect_attempts must be >= 1")
	}
	if c.Connection.FrameBufferSize < 1 {
		return errors.New("connection.frame_buffer_size must be >= 1")
	}

	if c.History.PageSize < 1 {
		return errors.New("history.page_size must be >= 1")
	}
	if c.History.MaxRetries < 0 {
		return errors.New("history.max_retries must be >= 0")
	}

	if c.Notifications.MembershipRefreshInterval <= 0 {
		return errors.New("notifications.membership_refresh_interval must be > 0")
	}

	return nil
}
