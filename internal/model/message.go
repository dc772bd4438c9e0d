package model

import "time"

// Message is a row of the `messages` table.  ReadAt stays nil until the
// recipient marks the message as read and is never cleared afterwards.
type Message struct {
	ID           uint64     `json:"id"`
	FromUsername string     `json:"from_username"`
	ToUsername   string     `json:"to_username"`
	Body         string     `json:"body"`
	SentAt       time.Time  `json:"sent_at"`
	ReadAt       *time.Time `json:"read_at"`
}

// IsRead reports whether the recipient has already read the message.
func (m Message) IsRead() bool { return m.ReadAt != nil }

// MessageDetail is a message with sender and recipient expanded into
// profile views.
type MessageDetail struct {
	ID       uint64     `json:"id"`
	Body     string     `json:"body"`
	SentAt   time.Time  `json:"sent_at"`
	ReadAt   *time.Time `json:"read_at"`
	FromUser UserRef    `json:"from_user"`
	ToUser   UserRef    `json:"to_user"`
}

// Involves reports whether username is the sender or the recipient.
func (d MessageDetail) Involves(username string) bool {
	return d.FromUser.Username == username || d.ToUser.Username == username
}

// ReadReceipt is the response shape of a mark-read operation.
type ReadReceipt struct {
	ID     uint64     `json:"id"`
	ReadAt *time.Time `json:"read_at"`
}
