// Package poller keeps the unread aggregator's group subscriptions aligned
// with the user's actual membership by periodically re-fetching the
// membership list from the REST collaborator.
package poller
