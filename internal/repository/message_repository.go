package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/messagely/internal/model"
)

// MessageRepo persists messages.  Authorization is not its concern; callers
// decide who may see or mutate a row.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo returns a new MessageRepo bound to the given database.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// Create inserts a message and returns it with the generated ID.  ReadAt is
// always nil on a fresh message.
func (r *MessageRepo) Create(ctx context.Context, from, to, body string, sentAt time.Time) (model.Message, error) {
	const q = `INSERT INTO messages (from_username, to_username, body, sent_at) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, from, to, body, sentAt)
	if err != nil {
		return model.Message{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Message{}, err
	}
	return model.Message{
		ID:           uint64(id),
		FromUsername: from,
		ToUsername:   to,
		Body:         body,
		SentAt:       sentAt,
	}, nil
}

// GetDetail loads a message with both participants' profiles.
func (r *MessageRepo) GetDetail(ctx context.Context, id uint64) (model.MessageDetail, error) {
	const q = `
SELECT m.id, m.body, m.sent_at, m.read_at,
       f.username, f.first_name, f.last_name, f.phone,
       t.username, t.first_name, t.last_name, t.phone
FROM messages m
JOIN users f ON f.username = m.from_username
JOIN users t ON t.username = m.to_username
WHERE m.id = ?`
	var (
		d      model.MessageDetail
		readAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.Body, &d.SentAt, &readAt,
		&d.FromUser.Username, &d.FromUser.FirstName, &d.FromUser.LastName, &d.FromUser.Phone,
		&d.ToUser.Username, &d.ToUser.FirstName, &d.ToUser.LastName, &d.ToUser.Phone,
	)
	if err != nil {
		return model.MessageDetail{}, notFound(err)
	}
	d.ReadAt = nullTime(readAt)
	return d, nil
}

// MarkRead sets read_at to at unless it is already set, then returns the
// stored value.  The first writer wins; later calls see the original time.
func (r *MessageRepo) MarkRead(ctx context.Context, id uint64, at time.Time) (model.ReadReceipt, error) {
	const upd = `UPDATE messages SET read_at = ? WHERE id = ? AND read_at IS NULL`
	if _, err := r.db.ExecContext(ctx, upd, at, id); err != nil {
		return model.ReadReceipt{}, err
	}
	const sel = `SELECT id, read_at FROM messages WHERE id = ?`
	var (
		rc     model.ReadReceipt
		readAt sql.NullTime
	)
	if err := r.db.QueryRowContext(ctx, sel, id).Scan(&rc.ID, &readAt); err != nil {
		return model.ReadReceipt{}, notFound(err)
	}
	rc.ReadAt = nullTime(readAt)
	return rc, nil
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
