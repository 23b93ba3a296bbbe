package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/miratalk/relay/internal/config"
	"github.com/miratalk/relay/internal/domain"
)

const (
	roomsCollection    = "rooms"
	messagesCollection = "messages"
)

// MongoStore implements Store on a MongoDB database. The unique index
// on (room_id, sender_id, client_id) makes the idempotent insert
// atomic: two concurrent sends with the same key converge to exactly
// one document.
type MongoStore struct {
	client   *mongo.Client
	rooms    *mongo.Collection
	messages *mongo.Collection
}

func NewMongoStore(ctx context.Context, cfg config.MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &MongoStore{
		client:   client,
		rooms:    db.Collection(roomsCollection),
		messages: db.Collection(messagesCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "room_id", Value: 1},
			{Key: "sender_id", Value: 1},
			{Key: "client_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create idempotency index: %w", err)
	}
	return nil
}

func (s *MongoStore) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := s.rooms.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get room: %v", domain.ErrStoreUnavailable, err)
	}
	return &room, nil
}

func (s *MongoStore) FindMessageByClientID(ctx context.Context, roomID, senderID, clientID string) (*domain.Message, error) {
	filter := bson.M{"room_id": roomID, "sender_id": senderID, "client_id": clientID}
	return s.findOneMessage(ctx, filter)
}

func (s *MongoStore) FindMessage(ctx context.Context, roomID, messageID string) (*domain.Message, error) {
	return s.findOneMessage(ctx, bson.M{"_id": messageID, "room_id": roomID})
}

func (s *MongoStore) findOneMessage(ctx context.Context, filter bson.M) (*domain.Message, error) {
	var msg domain.Message
	err := s.messages.FindOne(ctx, filter).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find message: %v", domain.ErrStoreUnavailable, err)
	}
	return &msg, nil
}

func (s *MongoStore) InsertMessage(ctx context.Context, msg *domain.Message) error {
	_, err := s.messages.InsertOne(ctx, msg)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateMessage
	}
	if err != nil {
		return fmt.Errorf("%w: insert message: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoStore) MergeReceipt(ctx context.Context, roomID, messageID string, kind domain.ReceiptKind, userID string, ts time.Time) error {
	field := "delivered_to"
	if kind == domain.ReceiptRead {
		field = "read_by"
	}

	// Dotted key targets exactly one user's entry; concurrent marks
	// from other users never clobber each other.
	update := bson.M{"$set": bson.M{fmt.Sprintf("%s.%s", field, userID): ts}}
	res, err := s.messages.UpdateOne(ctx, bson.M{"_id": messageID, "room_id": roomID}, update)
	if err != nil {
		return fmt.Errorf("%w: merge receipt: %v", domain.ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (s *MongoStore) UpdateMessage(ctx context.Context, roomID, messageID string, patch domain.MessagePatch) error {
	set := bson.M{}
	unset := bson.M{}

	if patch.Text != nil {
		if *patch.Text == "" {
			unset["text"] = ""
		} else {
			set["text"] = *patch.Text
		}
	}
	if patch.Caption != nil {
		if *patch.Caption == "" {
			unset["caption"] = ""
		} else {
			set["caption"] = *patch.Caption
		}
	}
	if patch.Media != nil {
		if len(*patch.Media) == 0 {
			unset["media"] = ""
		} else {
			set["media"] = *patch.Media
		}
	}
	if patch.DeletedForAll != nil {
		set["deleted_for_all"] = *patch.DeletedForAll
	}
	if patch.DeletedAt != nil {
		set["deleted_at"] = *patch.DeletedAt
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		return nil
	}

	res, err := s.messages.UpdateOne(ctx, bson.M{"_id": messageID, "room_id": roomID}, update)
	if err != nil {
		return fmt.Errorf("%w: update message: %v", domain.ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (s *MongoStore) UpdateRoom(ctx context.Context, roomID string, patch domain.RoomPatch) error {
	update := bson.M{}
	if patch.AddBlocked != "" {
		update["$addToSet"] = bson.M{"blocked": patch.AddBlocked}
	}
	if patch.LastActivityAt != nil {
		update["$set"] = bson.M{"last_activity_at": *patch.LastActivityAt}
	}
	if len(update) == 0 {
		return nil
	}

	res, err := s.rooms.UpdateOne(ctx, bson.M{"_id": roomID}, update)
	if err != nil {
		return fmt.Errorf("%w: update room: %v", domain.ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
