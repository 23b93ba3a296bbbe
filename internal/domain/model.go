package domain

import (
	"time"
)

// Room is the durable room document. The relay never caches it: every
// action re-reads the current document so membership, block and closed
// state are always observed fresh.
type Room struct {
	ID             string    `bson:"_id" json:"id"`
	Members        []string  `bson:"members" json:"members"`
	Admins         []string  `bson:"admins" json:"admins"`
	Blocked        []string  `bson:"blocked" json:"blocked"`
	Closed         bool      `bson:"closed" json:"closed"`
	LastActivityAt time.Time `bson:"last_activity_at" json:"last_activity_at"`
}

// HasMember reports whether uid is in the member set.
func (r *Room) HasMember(uid string) bool { return contains(r.Members, uid) }

// HasAdmin reports whether uid is in the admin set.
func (r *Room) HasAdmin(uid string) bool { return contains(r.Admins, uid) }

// HasBlocked reports whether uid is in the blocked set.
func (r *Room) HasBlocked(uid string) bool { return contains(r.Blocked, uid) }

func contains(set []string, uid string) bool {
	for _, v := range set {
		if v == uid {
			return true
		}
	}
	return false
}

// Media is an opaque reference to an already-uploaded media object.
// The relay never touches media bytes.
type Media struct {
	URL      string `bson:"url" json:"url"`
	MimeType string `bson:"mime_type,omitempty" json:"mime_type,omitempty"`
}

// ReplySnapshot is an immutable copy of the replied-to content taken at
// reply time; it does not follow later edits or deletes of the original.
type ReplySnapshot struct {
	MessageID string `bson:"message_id" json:"message_id"`
	SenderID  string `bson:"sender_id" json:"sender_id"`
	Text      string `bson:"text,omitempty" json:"text,omitempty"`
}

// Message is the durable message document, scoped to a room.
//
// ClientID is the client-generated idempotency key, unique per
// (room, sender). SenderID is always the authenticated caller; any
// sender embedded in a client payload is discarded before this struct
// is built.
type Message struct {
	ID            string               `bson:"_id" json:"id"`
	RoomID        string               `bson:"room_id" json:"room_id"`
	ClientID      string               `bson:"client_id" json:"client_id"`
	SenderID      string               `bson:"sender_id" json:"sender_id"`
	Type          string               `bson:"type" json:"type"`
	Text          string               `bson:"text,omitempty" json:"text,omitempty"`
	Caption       string               `bson:"caption,omitempty" json:"caption,omitempty"`
	Media         []Media              `bson:"media,omitempty" json:"media,omitempty"`
	ReplyTo       *ReplySnapshot       `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	CreatedAt     time.Time            `bson:"created_at" json:"created_at"`
	DeliveredTo   map[string]time.Time `bson:"delivered_to" json:"delivered_to"`
	ReadBy        map[string]time.Time `bson:"read_by" json:"read_by"`
	DeletedForAll bool                 `bson:"deleted_for_all" json:"deleted_for_all"`
	DeletedAt     *time.Time           `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// ReceiptKind distinguishes delivered from read marks.
type ReceiptKind string

const (
	ReceiptDelivered ReceiptKind = "delivered"
	ReceiptRead      ReceiptKind = "read"
)

// MessagePatch is a partial update applied to a stored message.
// Nil fields are left untouched.
type MessagePatch struct {
	Text          *string    `bson:"text,omitempty"`
	Caption       *string    `bson:"caption,omitempty"`
	Media         *[]Media   `bson:"media,omitempty"`
	DeletedForAll *bool      `bson:"deleted_for_all,omitempty"`
	DeletedAt     *time.Time `bson:"deleted_at,omitempty"`
}

// RoomPatch is a partial update applied to a stored room.
type RoomPatch struct {
	AddBlocked     string     `bson:"-"`
	LastActivityAt *time.Time `bson:"last_activity_at,omitempty"`
}
