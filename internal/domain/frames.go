package domain

// Websocket frame types from client.
const (
	FrameJoinRoom      = "join_room"
	FrameLeaveRoom     = "leave_room"
	FrameSendMessage   = "send_message"
	FrameMarkDelivered = "mark_delivered"
	FrameMarkRead      = "mark_read"
	FrameDeleteForAll  = "delete_for_all"
	FrameBlockUser     = "block_user"
	FrameTyping        = "typing"
	FramePing          = "ping"
)

// Websocket frame types to client.
const (
	FrameRoomJoined     = "room_joined"
	FrameError          = "error"
	FrameAck            = "ack"
	FrameNewMessage     = "new_message"
	FrameReceipt        = "receipt"
	FrameTypingUpdate   = "typing_update"
	FramePresenceUpdate = "presence_update"
	FrameMessageDeleted = "message_deleted"
	FrameUserBlocked    = "user_blocked"
	FramePong           = "pong"
)

// Ack statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// BaseFrame is decoded first to dispatch on Type.
type BaseFrame struct {
	Type string `json:"type"`
}

// Client -> Server frames

type JoinRoomFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type LeaveRoomFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

// Sender is a client-asserted identity embedded in a send payload. It
// is parsed so malformed payloads fail early, then discarded: the
// persisted sender is always the authenticated connection identity.
type Sender struct {
	UID string `json:"uid"`
}

// SendFrame is the client message envelope.
type SendFrame struct {
	Type        string         `json:"type"`
	RoomID      string         `json:"room_id"`
	ClientID    string         `json:"client_id"`
	MessageType string         `json:"message_type"`
	Text        string         `json:"text,omitempty"`
	Caption     string         `json:"caption,omitempty"`
	Media       []Media        `json:"media,omitempty"`
	ReplyTo     *ReplySnapshot `json:"reply_to,omitempty"`
	From        *Sender        `json:"from,omitempty"`
}

type ReceiptFrame struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

type DeleteForAllFrame struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

type BlockUserFrame struct {
	Type         string `json:"type"`
	RoomID       string `json:"room_id"`
	TargetUserID string `json:"target_user_id"`
}

type TypingFrame struct {
	Type        string `json:"type"`
	RoomID      string `json:"room_id"`
	Typing      bool   `json:"typing"`
	DisplayMeta string `json:"display_meta,omitempty"`
}

// Server -> Client frames

type RoomJoinedFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	RoomID  string `json:"room_id,omitempty"`
}

func NewErrorFrame(code, message string) *ErrorFrame {
	return &ErrorFrame{Type: FrameError, Code: code, Message: message}
}

// AckFrame is the point-to-point reply to a send attempt. ClientID
// echoes the idempotency key so the client can correlate retries.
type AckFrame struct {
	Type      string `json:"type"`
	ClientID  string `json:"client_id"`
	MessageID string `json:"message_id,omitempty"`
	Status    string `json:"status"`
	Code      string `json:"code,omitempty"`
}

type NewMessageFrame struct {
	Type    string   `json:"type"`
	RoomID  string   `json:"room_id"`
	Message *Message `json:"message"`
}

type ReceiptEventFrame struct {
	Type      string      `json:"type"`
	RoomID    string      `json:"room_id"`
	MessageID string      `json:"message_id"`
	Kind      ReceiptKind `json:"kind"`
	UserID    string      `json:"user_id"`
}

type TypingUpdateFrame struct {
	Type        string `json:"type"`
	RoomID      string `json:"room_id"`
	UserID      string `json:"user_id"`
	Typing      bool   `json:"typing"`
	DisplayMeta string `json:"display_meta,omitempty"`
}

type PresenceUpdateFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

type MessageDeletedFrame struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

type UserBlockedFrame struct {
	Type         string `json:"type"`
	RoomID       string `json:"room_id"`
	TargetUserID string `json:"target_user_id"`
}
