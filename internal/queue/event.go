// Package queue defines the message event payload and the consumer that
// appends delivered events to a log file.
package queue

// Event types carried in MessageEvent.Type.
const (
	EventMessageSent = "message.sent"
	EventMessageRead = "message.read"
)

// MessageEvent is published when a message is created or first read.  It
// never carries the message body.
type MessageEvent struct {
	Type         string `json:"type"`
	MessageID    uint64 `json:"message_id"`
	FromUsername string `json:"from_username"`
	ToUsername   string `json:"to_username"`
	SentAt       string `json:"sent_at"`
	ReadAt       string `json:"read_at,omitempty"`
	OccurredAt   string `json:"occurred_at"`
}
