package core

import (
	"context"

	"watchparty/internal/domain"
)

// EventSink is one client's outbound event endpoint.
// Owned by the adapter; the adapter must Close() it.
type EventSink interface {
	// TrySend must never block: a slow or dead connection is the adapter's
	// problem, not the room's.
	TrySend(event Event) error
	Close()
}

// RoomStore is the external Room Metadata Store. Calls may be slow or fail;
// the core never assumes synchronous consistency with its in-memory state.
type RoomStore interface {
	GetRoom(ctx context.Context, roomID domain.RoomID) (*domain.Room, error)
	GetRoomByInviteCode(ctx context.Context, code string) (*domain.Room, error)
	IsAdmin(ctx context.Context, roomID domain.RoomID, userID string) (bool, error)
	ValidatePassword(ctx context.Context, roomID domain.RoomID, password string) (bool, error)
	UpdatePlaybackState(ctx context.Context, roomID domain.RoomID, position float64, isPlaying bool) error
	UpdateVideo(ctx context.Context, roomID domain.RoomID, videoURL string) error
	EndRoom(ctx context.Context, roomID domain.RoomID) error
}

// IdentityResolver resolves a registered user id to display info.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (*domain.Profile, error)
}

// PublishResult reports delivery stats/backpressure to the gateway.
type PublishResult struct {
	SentTo  int
	Dropped []string // participant ids whose sink refused the event
}
