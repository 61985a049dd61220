// Package rest wraps the external REST collaborators: paginated message
// history, friend list, and group membership retrieval.
//
// These endpoints carry no messaging-core state of their own. Requests
// authenticate with the session bearer token; transient server failures are
// retried with jittered exponential backoff, and the rarely changing list
// endpoints are cached for a short TTL.
package rest
