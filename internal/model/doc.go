// Package model defines shared data types used across the messaging core.
//
// Conventions:
//   - User and conversation IDs: int64 (platform account / conversation keys)
//   - Message IDs: string, assigned by the server; identity for de-duplication
//   - Timestamps: time.Time, decoded from epoch milliseconds or RFC 3339
package model
