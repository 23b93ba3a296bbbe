package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/miratalk/relay/internal/audit"
	"github.com/miratalk/relay/internal/domain"
	"github.com/miratalk/relay/internal/guard"
	"github.com/miratalk/relay/internal/hub"
	"github.com/miratalk/relay/internal/log"
	"github.com/miratalk/relay/internal/registry"
	"github.com/miratalk/relay/internal/store"
	"github.com/miratalk/relay/internal/stream"
)

type relayService struct {
	hub      *hub.Hub
	store    store.Store
	registry registry.Registry
	producer stream.EventProducer
	now      func() time.Time
	newID    func() string
}

func NewRelayService(
	h *hub.Hub,
	st store.Store,
	reg registry.Registry,
	producer stream.EventProducer,
) RelayService {
	return &relayService{
		hub:      h,
		store:    st,
		registry: reg,
		producer: producer,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// authorize fetches the current room document and evaluates the access
// matrix. The fetch is never skipped or cached: block, membership and
// closed state must be observed fresh for every action.
func (s *relayService) authorize(ctx context.Context, roomID, userID string, action guard.Action) (*domain.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := guard.Authorize(room, userID, action); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *relayService) HandleJoinRoom(ctx context.Context, c *hub.Client, roomID string) error {
	userID := c.Identity.UserID

	if _, err := s.authorize(ctx, roomID, userID, guard.ActionParticipate); err != nil {
		return c.SendFrame(&domain.ErrorFrame{
			Type:    domain.FrameError,
			Code:    domain.ErrorCode(err),
			Message: err.Error(),
			RoomID:  roomID,
		})
	}

	// Idempotent on the subscriber set, but presence is always
	// re-announced.
	s.hub.JoinRoom(c, roomID)

	if err := s.registry.Register(ctx, roomID); err != nil {
		l := log.L()
		l.Warn().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to register room in registry")
	}

	audit.Log(ctx, audit.ActionJoinRoom, userID, "user joined room")

	if err := c.SendFrame(&domain.RoomJoinedFrame{Type: domain.FrameRoomJoined, RoomID: roomID}); err != nil {
		return err
	}

	return s.hub.BroadcastToRoom(roomID, &domain.PresenceUpdateFrame{
		Type:   domain.FramePresenceUpdate,
		RoomID: roomID,
		UserID: userID,
		Online: true,
	})
}

func (s *relayService) HandleLeaveRoom(ctx context.Context, c *hub.Client, roomID string) error {
	if !c.InRoom(roomID) {
		return nil
	}
	return s.leaveRoom(ctx, c, roomID)
}

// leaveRoom removes the connection first so the offline presence event
// reaches remaining subscribers only.
func (s *relayService) leaveRoom(ctx context.Context, c *hub.Client, roomID string) error {
	s.hub.LeaveRoom(c, roomID)

	if s.hub.RoomClientCount(roomID) == 0 {
		if err := s.registry.Deregister(ctx, roomID); err != nil {
			l := log.L()
			l.Warn().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to deregister room")
		}
	}

	audit.Log(ctx, audit.ActionLeaveRoom, c.Identity.UserID, "user left room")

	return s.hub.BroadcastToRoom(roomID, &domain.PresenceUpdateFrame{
		Type:   domain.FramePresenceUpdate,
		RoomID: roomID,
		UserID: c.Identity.UserID,
		Online: false,
	})
}

func (s *relayService) HandleSend(ctx context.Context, c *hub.Client, frame *domain.SendFrame) error {
	userID := c.Identity.UserID

	if _, err := s.authorize(ctx, frame.RoomID, userID, guard.ActionParticipate); err != nil {
		audit.LogWithDetail(ctx, audit.ActionSendDenied, userID, domain.ErrorCode(err), "send rejected")
		return c.SendFrame(&domain.AckFrame{
			Type:     domain.FrameAck,
			ClientID: frame.ClientID,
			Status:   domain.StatusFailed,
			Code:     domain.ErrorCode(err),
		})
	}

	// At-least-once retry: a message with this idempotency key already
	// persisted means this is a redelivery. Ack with the original id,
	// no second persist, no second broadcast.
	existing, err := s.store.FindMessageByClientID(ctx, frame.RoomID, userID, frame.ClientID)
	if err == nil {
		return c.SendFrame(&domain.AckFrame{
			Type:      domain.FrameAck,
			ClientID:  frame.ClientID,
			MessageID: existing.ID,
			Status:    domain.StatusSent,
		})
	}
	if !errors.Is(err, domain.ErrMessageNotFound) {
		return s.sendFailedAck(c, frame.ClientID, err)
	}

	msg := &domain.Message{
		ID:       s.newID(),
		RoomID:   frame.RoomID,
		ClientID: frame.ClientID,
		// The authenticated identity always wins over any sender the
		// client asserted in the payload.
		SenderID:      userID,
		Type:          frame.MessageType,
		Text:          frame.Text,
		Caption:       frame.Caption,
		Media:         frame.Media,
		ReplyTo:       s.replySnapshot(ctx, frame),
		CreatedAt:     s.now(),
		DeliveredTo:   map[string]time.Time{},
		ReadBy:        map[string]time.Time{},
		DeletedForAll: false,
	}

	if err := s.store.InsertMessage(ctx, msg); err != nil {
		if errors.Is(err, store.ErrDuplicateMessage) {
			// Lost the race against a concurrent retry; converge on
			// the record that won.
			winner, findErr := s.store.FindMessageByClientID(ctx, frame.RoomID, userID, frame.ClientID)
			if findErr != nil {
				return s.sendFailedAck(c, frame.ClientID, findErr)
			}
			return c.SendFrame(&domain.AckFrame{
				Type:      domain.FrameAck,
				ClientID:  frame.ClientID,
				MessageID: winner.ID,
				Status:    domain.StatusSent,
			})
		}
		return s.sendFailedAck(c, frame.ClientID, err)
	}

	now := msg.CreatedAt
	if err := s.store.UpdateRoom(ctx, frame.RoomID, domain.RoomPatch{LastActivityAt: &now}); err != nil {
		l := log.L()
		l.Warn().Str(log.FieldRoomID, frame.RoomID).Err(err).Msg("failed to update room activity")
	}

	audit.LogWithDetail(ctx, audit.ActionSendMessage, userID, msg.ID, "message persisted")

	if err := c.SendFrame(&domain.AckFrame{
		Type:      domain.FrameAck,
		ClientID:  frame.ClientID,
		MessageID: msg.ID,
		Status:    domain.StatusSent,
	}); err != nil {
		return err
	}

	if err := s.hub.BroadcastToRoom(frame.RoomID, &domain.NewMessageFrame{
		Type:    domain.FrameNewMessage,
		RoomID:  frame.RoomID,
		Message: msg,
	}); err != nil {
		return err
	}

	s.archive(ctx, &stream.ArchiveEvent{
		Kind:      stream.EventMessagePersisted,
		RoomID:    frame.RoomID,
		MessageID: msg.ID,
		UserID:    userID,
		Message:   msg,
		At:        msg.CreatedAt,
	})
	return nil
}

// replySnapshot resolves a reply reference to an immutable copy of the
// replied-to content. The snapshot is taken now and never updated.
func (s *relayService) replySnapshot(ctx context.Context, frame *domain.SendFrame) *domain.ReplySnapshot {
	if frame.ReplyTo == nil || frame.ReplyTo.MessageID == "" {
		return nil
	}

	original, err := s.store.FindMessage(ctx, frame.RoomID, frame.ReplyTo.MessageID)
	if err != nil {
		// Keep the reference even when the original cannot be read.
		return &domain.ReplySnapshot{MessageID: frame.ReplyTo.MessageID}
	}
	return &domain.ReplySnapshot{
		MessageID: original.ID,
		SenderID:  original.SenderID,
		Text:      original.Text,
	}
}

func (s *relayService) sendFailedAck(c *hub.Client, clientID string, err error) error {
	l := log.L()
	l.Error().Str(log.FieldConnID, c.ID).Str(log.FieldClientKey, clientID).Err(err).Msg("send failed after authorization")
	return c.SendFrame(&domain.AckFrame{
		Type:     domain.FrameAck,
		ClientID: clientID,
		Status:   domain.StatusFailed,
		Code:     domain.ErrorCode(err),
	})
}

func (s *relayService) HandleReceipt(ctx context.Context, c *hub.Client, kind domain.ReceiptKind, roomID, messageID string) error {
	userID := c.Identity.UserID

	if _, err := s.authorize(ctx, roomID, userID, guard.ActionParticipate); err != nil {
		return s.sendError(c, roomID, err)
	}

	ts := s.now()
	if err := s.store.MergeReceipt(ctx, roomID, messageID, kind, userID, ts); err != nil {
		// Receipts are persistence-affecting: a store failure is
		// always reported, never swallowed.
		return s.sendError(c, roomID, err)
	}

	if err := s.hub.BroadcastToRoom(roomID, &domain.ReceiptEventFrame{
		Type:      domain.FrameReceipt,
		RoomID:    roomID,
		MessageID: messageID,
		Kind:      kind,
		UserID:    userID,
	}); err != nil {
		return err
	}

	s.archive(ctx, &stream.ArchiveEvent{
		Kind:      stream.EventReceiptMerged,
		RoomID:    roomID,
		MessageID: messageID,
		UserID:    userID,
		At:        ts,
	})
	return nil
}

func (s *relayService) HandleDeleteForAll(ctx context.Context, c *hub.Client, roomID, messageID string) error {
	userID := c.Identity.UserID

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return s.sendError(c, roomID, err)
	}

	msg, err := s.store.FindMessage(ctx, roomID, messageID)
	if err != nil {
		return s.sendError(c, roomID, err)
	}

	if err := guard.CanDelete(room, userID, msg); err != nil {
		audit.LogWithDetail(ctx, audit.ActionDeleteDenied, userID, messageID, "delete-for-all rejected")
		return s.sendError(c, roomID, err)
	}

	// Terminal transition; deleting an already-deleted message is a
	// no-op, never an error and never a content restore.
	if msg.DeletedForAll {
		return nil
	}

	empty := ""
	noMedia := []domain.Media{}
	deleted := true
	deletedAt := s.now()
	patch := domain.MessagePatch{
		Text:          &empty,
		Caption:       &empty,
		Media:         &noMedia,
		DeletedForAll: &deleted,
		DeletedAt:     &deletedAt,
	}
	if err := s.store.UpdateMessage(ctx, roomID, messageID, patch); err != nil {
		return s.sendError(c, roomID, err)
	}

	audit.LogWithDetail(ctx, audit.ActionDeleteForAll, userID, messageID, "message deleted for all")

	if err := s.hub.BroadcastToRoom(roomID, &domain.MessageDeletedFrame{
		Type:      domain.FrameMessageDeleted,
		RoomID:    roomID,
		MessageID: messageID,
	}); err != nil {
		return err
	}

	s.archive(ctx, &stream.ArchiveEvent{
		Kind:      stream.EventMessageDeleted,
		RoomID:    roomID,
		MessageID: messageID,
		UserID:    userID,
		At:        deletedAt,
	})
	return nil
}

func (s *relayService) HandleBlockUser(ctx context.Context, c *hub.Client, roomID, targetUserID string) error {
	userID := c.Identity.UserID

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return s.sendError(c, roomID, err)
	}

	if err := guard.CanBlock(room, userID); err != nil {
		audit.LogWithDetail(ctx, audit.ActionBlockDenied, userID, targetUserID, "block rejected")
		return s.sendError(c, roomID, err)
	}

	// Set-union: re-blocking an already-blocked user is a no-op.
	if err := s.store.UpdateRoom(ctx, roomID, domain.RoomPatch{AddBlocked: targetUserID}); err != nil {
		return s.sendError(c, roomID, err)
	}

	audit.LogWithDetail(ctx, audit.ActionBlockUser, userID, targetUserID, "user blocked")

	if err := s.hub.BroadcastToRoom(roomID, &domain.UserBlockedFrame{
		Type:         domain.FrameUserBlocked,
		RoomID:       roomID,
		TargetUserID: targetUserID,
	}); err != nil {
		return err
	}

	s.archive(ctx, &stream.ArchiveEvent{
		Kind:   stream.EventUserBlocked,
		RoomID: roomID,
		UserID: targetUserID,
		At:     s.now(),
	})
	return nil
}

// HandleTyping fans out a typing signal. Ephemeral: nothing persisted,
// no authorization beyond the live authenticated connection.
func (s *relayService) HandleTyping(ctx context.Context, c *hub.Client, frame *domain.TypingFrame) error {
	return s.hub.BroadcastToRoom(frame.RoomID, &domain.TypingUpdateFrame{
		Type:        domain.FrameTypingUpdate,
		RoomID:      frame.RoomID,
		UserID:      c.Identity.UserID,
		Typing:      frame.Typing,
		DisplayMeta: frame.DisplayMeta,
	})
}

func (s *relayService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	for _, roomID := range c.Rooms() {
		if err := s.leaveRoom(ctx, c, roomID); err != nil {
			l := log.L()
			l.Warn().Str(log.FieldRoomID, roomID).Err(err).Msg("failed to leave room on disconnect")
		}
	}
	audit.Log(ctx, audit.ActionDisconnect, c.Identity.UserID, "connection closed")
	return nil
}

func (s *relayService) sendError(c *hub.Client, roomID string, err error) error {
	return c.SendFrame(&domain.ErrorFrame{
		Type:    domain.FrameError,
		Code:    domain.ErrorCode(err),
		Message: err.Error(),
		RoomID:  roomID,
	})
}

func (s *relayService) archive(ctx context.Context, ev *stream.ArchiveEvent) {
	if err := s.producer.Produce(ctx, ev); err != nil {
		l := log.L()
		l.Warn().Str(log.FieldRoomID, ev.RoomID).Err(err).Msg("failed to publish archive event")
	}
}

func (s *relayService) Start(ctx context.Context) error {
	if err := s.registry.StartHeartbeat(ctx); err != nil {
		return err
	}
	l := log.L()
	l.Info().Msg("relay service started")
	return nil
}

func (s *relayService) Stop() error {
	s.registry.StopHeartbeat()
	if err := s.producer.Close(); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to close archive producer")
	}
	return nil
}
