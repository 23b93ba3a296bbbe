package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miratalk/relay/internal/domain"
)

func newMessage(id, roomID, senderID, clientID string) *domain.Message {
	return &domain.Message{
		ID:          id,
		RoomID:      roomID,
		SenderID:    senderID,
		ClientID:    clientID,
		Type:        "text",
		Text:        "hi",
		CreatedAt:   time.Now().UTC(),
		DeliveredTo: map[string]time.Time{},
		ReadBy:      map[string]time.Time{},
	}
}

func TestInsertMessageDuplicateKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertMessage(ctx, newMessage("m1", "r1", "alice", "c1")))
	assert.ErrorIs(t, s.InsertMessage(ctx, newMessage("m2", "r1", "alice", "c1")), ErrDuplicateMessage)

	// Same key under a different sender or room is a distinct message.
	assert.NoError(t, s.InsertMessage(ctx, newMessage("m3", "r1", "bob", "c1")))
	assert.NoError(t, s.InsertMessage(ctx, newMessage("m4", "r2", "alice", "c1")))
}

func TestConcurrentInsertSameKeyPersistsOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var okCount, dupCount int
	var mu sync.Mutex
	for i := 0; i < 16; i++ {
		wg.Add(1)
		id := string(rune('a' + i))
		go func() {
			defer wg.Done()
			err := s.InsertMessage(ctx, newMessage(id, "r1", "alice", "retry-key"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				okCount++
			} else if err == ErrDuplicateMessage {
				dupCount++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, okCount)
	assert.Equal(t, 15, dupCount)
}

func TestFindMessageByClientID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.InsertMessage(ctx, newMessage("m1", "r1", "alice", "c1")))

	got, err := s.FindMessageByClientID(ctx, "r1", "alice", "c1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)

	_, err = s.FindMessageByClientID(ctx, "r1", "alice", "other")
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestMergeReceiptGrowsKeySet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.InsertMessage(ctx, newMessage("m1", "r1", "alice", "c1")))

	t1 := time.Now().UTC()
	require.NoError(t, s.MergeReceipt(ctx, "r1", "m1", domain.ReceiptDelivered, "bob", t1))
	require.NoError(t, s.MergeReceipt(ctx, "r1", "m1", domain.ReceiptRead, "bob", t1))
	require.NoError(t, s.MergeReceipt(ctx, "r1", "m1", domain.ReceiptDelivered, "carol", t1))

	msg, err := s.FindMessage(ctx, "r1", "m1")
	require.NoError(t, err)
	assert.Len(t, msg.DeliveredTo, 2)
	assert.Len(t, msg.ReadBy, 1)

	// A later mark updates the timestamp without dropping the entry.
	t2 := t1.Add(time.Second)
	require.NoError(t, s.MergeReceipt(ctx, "r1", "m1", domain.ReceiptRead, "bob", t2))
	msg, err = s.FindMessage(ctx, "r1", "m1")
	require.NoError(t, err)
	assert.True(t, msg.ReadBy["bob"].Equal(t2))
	assert.Len(t, msg.ReadBy, 1)
}

func TestMergeReceiptUnknownMessage(t *testing.T) {
	s := NewMemoryStore()
	err := s.MergeReceipt(context.Background(), "r1", "nope", domain.ReceiptRead, "bob", time.Now())
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestUpdateMessageClearsContent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	msg := newMessage("m1", "r1", "alice", "c1")
	msg.Caption = "cap"
	msg.Media = []domain.Media{{URL: "https://cdn.example/x.jpg"}}
	require.NoError(t, s.InsertMessage(ctx, msg))

	empty := ""
	noMedia := []domain.Media{}
	deleted := true
	at := time.Now().UTC()
	require.NoError(t, s.UpdateMessage(ctx, "r1", "m1", domain.MessagePatch{
		Text:          &empty,
		Caption:       &empty,
		Media:         &noMedia,
		DeletedForAll: &deleted,
		DeletedAt:     &at,
	}))

	got, err := s.FindMessage(ctx, "r1", "m1")
	require.NoError(t, err)
	assert.Empty(t, got.Text)
	assert.Empty(t, got.Caption)
	assert.Empty(t, got.Media)
	assert.True(t, got.DeletedForAll)
	require.NotNil(t, got.DeletedAt)
}

func TestUpdateRoomBlockSetUnion(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.PutRoom(&domain.Room{ID: "r1", Members: []string{"alice", "bob"}})

	require.NoError(t, s.UpdateRoom(ctx, "r1", domain.RoomPatch{AddBlocked: "bob"}))
	require.NoError(t, s.UpdateRoom(ctx, "r1", domain.RoomPatch{AddBlocked: "bob"}))

	room, err := s.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, room.Blocked)
}

func TestGetRoomReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.PutRoom(&domain.Room{ID: "r1", Members: []string{"alice"}})

	room, err := s.GetRoom(context.Background(), "r1")
	require.NoError(t, err)
	room.Members[0] = "tampered"

	again, err := s.GetRoom(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, again.Members)
}
