package store

import (
	"context"
	"sync"
	"time"

	"github.com/miratalk/relay/internal/domain"
)

// MemoryStore is an in-process Store used for local development and
// tests. The mutex serializes the existence-check-and-insert, giving
// the same at-most-one guarantee the mongo unique index provides.
type MemoryStore struct {
	mu       sync.Mutex
	rooms    map[string]*domain.Room
	messages map[string]*domain.Message              // messageID -> message
	byClient map[string]map[string]map[string]string // roomID -> senderID -> clientID -> messageID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[string]*domain.Room),
		messages: make(map[string]*domain.Message),
		byClient: make(map[string]map[string]map[string]string),
	}
}

// PutRoom seeds or replaces a room document.
func (s *MemoryStore) PutRoom(room *domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *room
	s.rooms[room.ID] = &cp
}

func (s *MemoryStore) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	cp := *room
	cp.Members = append([]string(nil), room.Members...)
	cp.Admins = append([]string(nil), room.Admins...)
	cp.Blocked = append([]string(nil), room.Blocked...)
	return &cp, nil
}

func (s *MemoryStore) FindMessageByClientID(ctx context.Context, roomID, senderID, clientID string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byClient[roomID][senderID][clientID]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	return copyMessage(s.messages[id]), nil
}

func (s *MemoryStore) FindMessage(ctx context.Context, roomID, messageID string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[messageID]
	if !ok || msg.RoomID != roomID {
		return nil, domain.ErrMessageNotFound
	}
	return copyMessage(msg), nil
}

func (s *MemoryStore) InsertMessage(ctx context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byClient[msg.RoomID][msg.SenderID][msg.ClientID]; ok {
		return ErrDuplicateMessage
	}

	if s.byClient[msg.RoomID] == nil {
		s.byClient[msg.RoomID] = make(map[string]map[string]string)
	}
	if s.byClient[msg.RoomID][msg.SenderID] == nil {
		s.byClient[msg.RoomID][msg.SenderID] = make(map[string]string)
	}
	s.byClient[msg.RoomID][msg.SenderID][msg.ClientID] = msg.ID
	s.messages[msg.ID] = copyMessage(msg)
	return nil
}

func (s *MemoryStore) MergeReceipt(ctx context.Context, roomID, messageID string, kind domain.ReceiptKind, userID string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[messageID]
	if !ok || msg.RoomID != roomID {
		return domain.ErrMessageNotFound
	}

	if kind == domain.ReceiptRead {
		if msg.ReadBy == nil {
			msg.ReadBy = make(map[string]time.Time)
		}
		msg.ReadBy[userID] = ts
	} else {
		if msg.DeliveredTo == nil {
			msg.DeliveredTo = make(map[string]time.Time)
		}
		msg.DeliveredTo[userID] = ts
	}
	return nil
}

func (s *MemoryStore) UpdateMessage(ctx context.Context, roomID, messageID string, patch domain.MessagePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[messageID]
	if !ok || msg.RoomID != roomID {
		return domain.ErrMessageNotFound
	}

	if patch.Text != nil {
		msg.Text = *patch.Text
	}
	if patch.Caption != nil {
		msg.Caption = *patch.Caption
	}
	if patch.Media != nil {
		msg.Media = append([]domain.Media(nil), (*patch.Media)...)
	}
	if patch.DeletedForAll != nil {
		msg.DeletedForAll = *patch.DeletedForAll
	}
	if patch.DeletedAt != nil {
		at := *patch.DeletedAt
		msg.DeletedAt = &at
	}
	return nil
}

func (s *MemoryStore) UpdateRoom(ctx context.Context, roomID string, patch domain.RoomPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}

	if patch.AddBlocked != "" && !room.HasBlocked(patch.AddBlocked) {
		room.Blocked = append(room.Blocked, patch.AddBlocked)
	}
	if patch.LastActivityAt != nil {
		room.LastActivityAt = *patch.LastActivityAt
	}
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func copyMessage(msg *domain.Message) *domain.Message {
	cp := *msg
	cp.Media = append([]domain.Media(nil), msg.Media...)
	cp.DeliveredTo = make(map[string]time.Time, len(msg.DeliveredTo))
	for k, v := range msg.DeliveredTo {
		cp.DeliveredTo[k] = v
	}
	cp.ReadBy = make(map[string]time.Time, len(msg.ReadBy))
	for k, v := range msg.ReadBy {
		cp.ReadBy[k] = v
	}
	if msg.ReplyTo != nil {
		r := *msg.ReplyTo
		cp.ReplyTo = &r
	}
	if msg.DeletedAt != nil {
		at := *msg.DeletedAt
		cp.DeletedAt = &at
	}
	return &cp
}
