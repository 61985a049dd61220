// Package router implements the message router.
//
// Frames arrive from the connection manager as raw bytes, each wrapping a
// topic and a message payload. The router decodes both and invokes every
// handler the subscription registry holds for that exact topic string.
// Frames on the same topic are delivered in arrival order; nothing is
// guaranteed between different topics.
package router
