package stream

import (
	"context"
	"time"

	"github.com/miratalk/relay/internal/domain"
)

// Archive event kinds.
const (
	EventMessagePersisted = "message_persisted"
	EventReceiptMerged    = "receipt_merged"
	EventMessageDeleted   = "message_deleted"
	EventUserBlocked      = "user_blocked"
)

// ArchiveEvent is published after a durable mutation so downstream
// consumers (search indexing, analytics) can follow the relay without
// querying the store. Publishing is best-effort: a failed publish never
// fails the client action.
type ArchiveEvent struct {
	Kind      string          `json:"kind"`
	RoomID    string          `json:"room_id"`
	MessageID string          `json:"message_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Message   *domain.Message `json:"message,omitempty"`
	At        time.Time       `json:"at"`
}

type EventProducer interface {
	Produce(ctx context.Context, ev *ArchiveEvent) error
	Close() error
}

// NoopProducer discards events. Used when no brokers are configured.
type NoopProducer struct{}

func (NoopProducer) Produce(ctx context.Context, ev *ArchiveEvent) error { return nil }
func (NoopProducer) Close() error                                        { return nil }
