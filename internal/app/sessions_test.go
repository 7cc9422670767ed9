package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"watchparty/internal/domain"
)

func TestSessionIndex_UnbindFiresCancel(t *testing.T) {
	req := require.New(t)
	s := NewSessionIndex()

	ctx, cancel := context.WithCancel(context.Background())
	s.Bind("conn-1", domain.GuestIdentity("g-1"), &recordingSink{}, cancel)

	s.Unbind("conn-1")

	_, _, ok := s.Get("conn-1")
	req.False(ok)
	select {
	case <-ctx.Done():
	default:
		t.Fatal("connection context still alive after unbind")
	}
}

func TestSessionIndex_ClearRoomKeepsConnectionAlive(t *testing.T) {
	req := require.New(t)
	s := NewSessionIndex()

	ctx, cancel := context.WithCancel(context.Background())
	s.Bind("conn-1", domain.GuestIdentity("g-1"), &recordingSink{}, cancel)
	s.SetRoom("conn-1", "room-1", "g-1")

	// Leaving a room rolls back to "connected, not joined"
	s.ClearRoom("conn-1")

	_, _, ok := s.RoomOf("conn-1")
	req.False(ok)
	_, _, ok = s.Get("conn-1")
	req.True(ok)
	req.NoError(ctx.Err())
	cancel()
}

func TestSessionIndex_CancelFiresStoredFunc(t *testing.T) {
	req := require.New(t)
	s := NewSessionIndex()

	ctx, cancel := context.WithCancel(context.Background())
	s.Bind("conn-1", domain.GuestIdentity("g-1"), &recordingSink{}, cancel)

	req.True(s.Cancel("conn-1"))
	req.Error(ctx.Err())

	req.False(s.Cancel("conn-ghost"))
}
