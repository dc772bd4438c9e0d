package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/messagely/internal/model"
	"github.com/iliyamo/messagely/internal/queue"
	"github.com/iliyamo/messagely/internal/repository"
)

// MessageStore is the persistence behind MessageService.
type MessageStore interface {
	Create(ctx context.Context, from, to, body string, sentAt time.Time) (model.Message, error)
	GetDetail(ctx context.Context, id uint64) (model.MessageDetail, error)
	MarkRead(ctx context.Context, id uint64, at time.Time) (model.ReadReceipt, error)
}

// UserLookup resolves recipients.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// DetailCache is an optional read-through cache of message details.  It
// holds data only; authorization is always evaluated against the requester.
type DetailCache interface {
	Get(ctx context.Context, id uint64) (model.MessageDetail, bool, error)
	Set(ctx context.Context, d model.MessageDetail) error
	Invalidate(ctx context.Context, id uint64) error
}

// EventPublisher receives message lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.MessageEvent) error
}

// CreateMessageInput is the client-supplied part of a new message.  The
// sender is never part of it.
type CreateMessageInput struct {
	ToUsername string
	Body       string
}

// Validate trims the recipient and requires both fields.  The body is kept
// verbatim; any non-empty body is accepted.
func (in *CreateMessageInput) Validate() error {
	in.ToUsername = strings.TrimSpace(in.ToUsername)
	if in.ToUsername == "" || in.Body == "" {
		return fmt.Errorf("%w: recipient and/or message required", ErrValidation)
	}
	return nil
}

// MessageService decides who may read or mutate a message and applies the
// permitted mutation.
type MessageService struct {
	messages MessageStore
	users    UserLookup
	cache    DetailCache
	events   EventPublisher
	now      func() time.Time
	log      *slog.Logger
}

// MessageOption customizes a MessageService.
type MessageOption func(*MessageService)

// WithCache enables the detail cache.
func WithCache(c DetailCache) MessageOption {
	return func(s *MessageService) { s.cache = c }
}

// WithEvents enables event publication.
func WithEvents(p EventPublisher) MessageOption {
	return func(s *MessageService) { s.events = p }
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *slog.Logger) MessageOption {
	return func(s *MessageService) { s.log = l }
}

// NewMessageService builds the authorization layer over messages and users.
// Cache, events and logger are optional.
func NewMessageService(messages MessageStore, users UserLookup, opts ...MessageOption) *MessageService {
	s := &MessageService{messages: messages, users: users, now: utcNow, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the message if requester is its sender or recipient.
func (s *MessageService) Get(ctx context.Context, id uint64, requester string) (model.MessageDetail, error) {
	d, err := s.detail(ctx, id)
	if err != nil {
		return model.MessageDetail{}, err
	}
	if !d.Involves(requester) {
		return model.MessageDetail{}, fmt.Errorf("%w: cannot view this message", ErrUnauthorized)
	}
	return d, nil
}

// Create stores a message from the authenticated sender.
func (s *MessageService) Create(ctx context.Context, from string, in CreateMessageInput) (model.Message, error) {
	if err := in.Validate(); err != nil {
		return model.Message{}, err
	}
	// A validly signed token does not imply the sender still exists.
	if _, err := s.users.GetByUsername(ctx, from); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Message{}, fmt.Errorf("%w: unknown sender", ErrUnauthorized)
		}
		return model.Message{}, err
	}
	if _, err := s.users.GetByUsername(ctx, in.ToUsername); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Message{}, fmt.Errorf("%w: unknown recipient %q", ErrValidation, in.ToUsername)
		}
		return model.Message{}, err
	}
	m, err := s.messages.Create(ctx, from, in.ToUsername, in.Body, s.now())
	if err != nil {
		return model.Message{}, err
	}
	s.publish(ctx, queue.MessageEvent{
		Type:         queue.EventMessageSent,
		MessageID:    m.ID,
		FromUsername: m.FromUsername,
		ToUsername:   m.ToUsername,
		SentAt:       m.SentAt.Format(time.RFC3339Nano),
	})
	return m, nil
}

// MarkRead records that the recipient read the message.  Only the first
// call sets read_at; later calls return the stored timestamp unchanged.
func (s *MessageService) MarkRead(ctx context.Context, id uint64, requester string) (model.ReadReceipt, error) {
	d, err := s.detail(ctx, id)
	if err != nil {
		return model.ReadReceipt{}, err
	}
	if d.ToUser.Username != requester {
		return model.ReadReceipt{}, fmt.Errorf("%w: cannot mark this message as read", ErrUnauthorized)
	}
	if d.ReadAt != nil {
		return model.ReadReceipt{ID: d.ID, ReadAt: d.ReadAt}, nil
	}

	at := s.now()
	rc, err := s.messages.MarkRead(ctx, id, at)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.ReadReceipt{}, ErrNotFound
		}
		return model.ReadReceipt{}, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.log.WarnContext(ctx, "message cache invalidate failed", "message_id", id, "err", err)
		}
	}
	if rc.ReadAt != nil && rc.ReadAt.Equal(at) {
		s.publish(ctx, queue.MessageEvent{
			Type:         queue.EventMessageRead,
			MessageID:    d.ID,
			FromUsername: d.FromUser.Username,
			ToUsername:   d.ToUser.Username,
			SentAt:       d.SentAt.Format(time.RFC3339Nano),
			ReadAt:       at.Format(time.RFC3339Nano),
		})
	}
	return rc, nil
}

// detail loads a message through the cache.
func (s *MessageService) detail(ctx context.Context, id uint64) (model.MessageDetail, error) {
	if s.cache != nil {
		d, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.WarnContext(ctx, "message cache read failed", "message_id", id, "err", err)
		} else if ok {
			return d, nil
		}
	}
	d, err := s.messages.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.MessageDetail{}, ErrNotFound
		}
		return model.MessageDetail{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, d); err != nil {
			s.log.WarnContext(ctx, "message cache write failed", "message_id", id, "err", err)
		}
	}
	return d, nil
}

// publish hands ev to the broker without failing the request.
func (s *MessageService) publish(ctx context.Context, ev queue.MessageEvent) {
	if s.events == nil {
		return
	}
	ev.OccurredAt = s.now().Format(time.RFC3339Nano)
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "publish message event failed", "type", ev.Type, "message_id", ev.MessageID, "err", err)
	}
}
