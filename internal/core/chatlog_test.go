package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"watchparty/internal/domain"
)

func TestChatLog_CapKeepsMostRecentFifty(t *testing.T) {
	req := require.New(t)
	chat := NewChatLog()
	roomID := domain.RoomID("room-1")

	// Given 60 messages added to one room
	for i := 0; i < 60; i++ {
		chat.AddMessage(roomID, domain.NewChatMessage("alice", "Alice", "", fmt.Sprintf("msg-%02d", i)))
	}

	// Then exactly the most recent 50 remain, oldest first
	msgs := chat.GetRoomMessages(roomID)
	req.Len(msgs, MaxMessagesPerRoom)
	req.Equal("msg-10", msgs[0].Content)
	req.Equal("msg-59", msgs[len(msgs)-1].Content)
}

func TestChatLog_SnapshotIsACopy(t *testing.T) {
	req := require.New(t)
	chat := NewChatLog()
	roomID := domain.RoomID("room-1")

	chat.AddMessage(roomID, domain.NewChatMessage("alice", "Alice", "", "hello"))

	snapshot := chat.GetRoomMessages(roomID)
	snapshot[0].Content = "mutated"

	req.Equal("hello", chat.GetRoomMessages(roomID)[0].Content)
}

func TestChatLog_SystemMessagesFlowThroughSamePath(t *testing.T) {
	req := require.New(t)
	chat := NewChatLog()
	roomID := domain.RoomID("room-1")

	chat.AddMessage(roomID, domain.NewSystemMessage("Alice joined the room"))

	msgs := chat.GetRoomMessages(roomID)
	req.Len(msgs, 1)
	req.Equal(domain.SystemSenderID, msgs[0].SenderID)
	req.True(msgs[0].System)
}

func TestChatLog_PurgeRoom(t *testing.T) {
	req := require.New(t)
	chat := NewChatLog()
	roomID := domain.RoomID("room-1")

	chat.AddMessage(roomID, domain.NewChatMessage("alice", "Alice", "", "hello"))

	// When the room is purged
	chat.PurgeRoom(roomID)

	// Then no messages survive
	req.Empty(chat.GetRoomMessages(roomID))
}
