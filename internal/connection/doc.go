// Package connection implements the connection lifecycle manager.
//
// The Manager owns the single transport session to the chat server:
//   - connect with bearer-token handshake, idempotent while connecting/connected
//   - heartbeat with ping/pong staleness detection
//   - automatic reconnect after unexpected closes, delay growing linearly
//     with the attempt count and bounded by a maximum attempt count
//   - status transition notifications for other components
//
// Exactly one live transport session exists at any time. All inbound frames
// flow out through Frames() to the message router; outbound publishes go
// through SendCommand and fail synchronously while disconnected.
package connection
