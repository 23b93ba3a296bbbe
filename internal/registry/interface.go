package registry

import "context"

// Registry advertises which relay instance currently hosts live
// connections for a room, so peers and routers can locate it. Entries
// expire unless refreshed by the heartbeat.
type Registry interface {
	Register(ctx context.Context, roomID string) error
	Deregister(ctx context.Context, roomID string) error
	Lookup(ctx context.Context, roomID string) (string, error)
	StartHeartbeat(ctx context.Context) error
	StopHeartbeat()
	Close() error
}
