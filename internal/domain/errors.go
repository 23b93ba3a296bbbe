package domain

import "errors"

// Connection-level failure. Fatal: the connection is closed.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authorization failures. Reported to the acting connection only, never
// broadcast, never fatal to the connection.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotMember       = errors.New("not a member of room")
	ErrBlocked         = errors.New("blocked in room")
	ErrRoomClosed      = errors.New("room is closed")
	ErrNotAdmin        = errors.New("not a room admin")
	ErrNoPermission    = errors.New("no permission")
	ErrMessageNotFound = errors.New("message not found")
)

// ErrStoreUnavailable wraps any document-store failure.
var ErrStoreUnavailable = errors.New("store unavailable")

// Wire error codes carried in error and ack frames.
const (
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeRoomNotFound     = "ROOM_NOT_FOUND"
	CodeNotMember        = "NOT_MEMBER"
	CodeBlocked          = "BLOCKED"
	CodeRoomClosed       = "ROOM_CLOSED"
	CodeNotAdmin         = "NOT_ADMIN"
	CodeNoPermission     = "NO_PERMISSION"
	CodeMessageNotFound  = "MESSAGE_NOT_FOUND"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// ErrorCode maps a relay error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, ErrNotMember):
		return CodeNotMember
	case errors.Is(err, ErrBlocked):
		return CodeBlocked
	case errors.Is(err, ErrRoomClosed):
		return CodeRoomClosed
	case errors.Is(err, ErrNotAdmin):
		return CodeNotAdmin
	case errors.Is(err, ErrNoPermission):
		return CodeNoPermission
	case errors.Is(err, ErrMessageNotFound):
		return CodeMessageNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	default:
		return CodeInternal
	}
}
