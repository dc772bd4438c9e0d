package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/messagely/internal/config"
)

// LogFileName is the file under EventsConfig.LogDir that the consumer
// appends to.
const LogFileName = "messages.log"

// StartMessageConsumer consumes cfg.Queue and appends one line per event to
// <LogDir>/messages.log.  It reconnects with exponential backoff and only
// returns once ctx is cancelled.  Malformed deliveries are rejected without
// requeue.
func StartMessageConsumer(ctx context.Context, cfg config.EventsConfig, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	sink := &FileSink{Dir: cfg.LogDir}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Warn("message-consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg.Queue, sink, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("message-consumer: consume loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, sink *FileSink, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("message-consumer: set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := sink.Handle(d.Body); err != nil {
				log.Error("message-consumer: handle message failed", "err", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// FileSink appends formatted events to a log file.
type FileSink struct {
	Dir string
}

// Handle decodes body as a MessageEvent and appends it.
func (s *FileSink) Handle(body []byte) error {
	var ev MessageEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.MessageID == 0 {
		return errors.New("event without type or message id")
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(s.Dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single newline-terminated log line.
func FormatLine(ev MessageEvent) string {
	switch ev.Type {
	case EventMessageRead:
		return fmt.Sprintf("[%s] Message read | message_id=%d | from=%q | to=%q | sent_at=%s | read_at=%s\n",
			ev.OccurredAt, ev.MessageID, ev.FromUsername, ev.ToUsername, ev.SentAt, ev.ReadAt)
	case EventMessageSent:
		return fmt.Sprintf("[%s] Message sent | message_id=%d | from=%q | to=%q | sent_at=%s\n",
			ev.OccurredAt, ev.MessageID, ev.FromUsername, ev.ToUsername, ev.SentAt)
	default:
		return fmt.Sprintf("[%s] %s | message_id=%d | from=%q | to=%q\n",
			ev.OccurredAt, ev.Type, ev.MessageID, ev.FromUsername, ev.ToUsername)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
