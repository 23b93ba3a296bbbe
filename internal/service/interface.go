package service

import (
	"context"

	"github.com/miratalk/relay/internal/domain"
	"github.com/miratalk/relay/internal/hub"
)

// RelayService handles every room-scoped client action. Authorization
// runs per action against a freshly fetched room snapshot; nothing is
// cached across calls.
type RelayService interface {
	HandleJoinRoom(ctx context.Context, client *hub.Client, roomID string) error
	HandleLeaveRoom(ctx context.Context, client *hub.Client, roomID string) error
	HandleSend(ctx context.Context, client *hub.Client, frame *domain.SendFrame) error
	HandleReceipt(ctx context.Context, client *hub.Client, kind domain.ReceiptKind, roomID, messageID string) error
	HandleDeleteForAll(ctx context.Context, client *hub.Client, roomID, messageID string) error
	HandleBlockUser(ctx context.Context, client *hub.Client, roomID, targetUserID string) error
	HandleTyping(ctx context.Context, client *hub.Client, frame *domain.TypingFrame) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error
	Start(ctx context.Context) error
	Stop() error
}
