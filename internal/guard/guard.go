// Package guard evaluates the room authorization matrix. Every check is
// a pure function over a freshly fetched Room snapshot, so the matrix
// is testable in isolation from store I/O. Callers must re-fetch the
// room before each action; snapshots are never reused across actions.
package guard

import (
	"github.com/miratalk/relay/internal/domain"
)

// Action distinguishes plain participation from administrative actions.
type Action int

const (
	// ActionParticipate covers send, receipts and typing.
	ActionParticipate Action = iota
	// ActionModerate covers admin-only actions such as blocking.
	ActionModerate
)

// Authorize decides whether userID may perform action in room.
//
// Block status is evaluated before membership: a user present in both
// sets always fails with ErrBlocked, never ErrNotMember. A closed room
// rejects participation but not administrative actions.
func Authorize(room *domain.Room, userID string, action Action) error {
	if room == nil {
		return domain.ErrRoomNotFound
	}
	if room.HasBlocked(userID) {
		return domain.ErrBlocked
	}
	if !room.HasMember(userID) && !room.HasAdmin(userID) {
		return domain.ErrNotMember
	}

	switch action {
	case ActionModerate:
		if !room.HasAdmin(userID) {
			return domain.ErrNotAdmin
		}
	default:
		if room.Closed {
			return domain.ErrRoomClosed
		}
	}
	return nil
}

// CanDelete decides whether userID may delete-for-all msg in room:
// room admins may delete any message, the original sender may delete
// their own. Block status still takes precedence.
func CanDelete(room *domain.Room, userID string, msg *domain.Message) error {
	if room == nil {
		return domain.ErrRoomNotFound
	}
	if msg == nil {
		return domain.ErrMessageNotFound
	}
	if room.HasBlocked(userID) {
		return domain.ErrBlocked
	}
	if room.HasAdmin(userID) || msg.SenderID == userID {
		return nil
	}
	return domain.ErrNoPermission
}

// CanBlock decides whether userID may block another user in room:
// admin set membership only.
func CanBlock(room *domain.Room, userID string) error {
	if room == nil {
		return domain.ErrRoomNotFound
	}
	if room.HasBlocked(userID) {
		return domain.ErrBlocked
	}
	if !room.HasAdmin(userID) {
		return domain.ErrNoPermission
	}
	return nil
}
