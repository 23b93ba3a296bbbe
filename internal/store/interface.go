package store

import (
	"context"
	"errors"
	"time"

	"github.com/miratalk/relay/internal/domain"
)

// ErrDuplicateMessage is returned by InsertMessage when a message with
// the same (room, sender, client id) already exists. The caller resolves
// the retry by re-reading the existing record.
var ErrDuplicateMessage = errors.New("duplicate message")

// Store is the relay's view of the external document store. All methods
// wrap transport failures with domain.ErrStoreUnavailable; not-found
// conditions map to domain.ErrRoomNotFound / domain.ErrMessageNotFound.
type Store interface {
	// GetRoom returns the current room document, never a cached copy.
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)

	// FindMessageByClientID looks up a message by its idempotency key,
	// scoped to (room, sender). Returns domain.ErrMessageNotFound when
	// no such message exists.
	FindMessageByClientID(ctx context.Context, roomID, senderID, clientID string) (*domain.Message, error)

	// FindMessage returns a message by server-assigned id.
	FindMessage(ctx context.Context, roomID, messageID string) (*domain.Message, error)

	// InsertMessage persists a new message. The insert is atomic with
	// respect to the (room, sender, client id) uniqueness guarantee:
	// a concurrent duplicate fails with ErrDuplicateMessage rather
	// than producing a second record.
	InsertMessage(ctx context.Context, msg *domain.Message) error

	// MergeReceipt sets exactly one user's entry in the delivered or
	// read map of a message. Other entries are never touched.
	MergeReceipt(ctx context.Context, roomID, messageID string, kind domain.ReceiptKind, userID string, ts time.Time) error

	// UpdateMessage applies a partial update to a message.
	UpdateMessage(ctx context.Context, roomID, messageID string, patch domain.MessagePatch) error

	// UpdateRoom applies a partial update to a room. AddBlocked has
	// set-union semantics.
	UpdateRoom(ctx context.Context, roomID string, patch domain.RoomPatch) error

	Close(ctx context.Context) error
}
