package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"watchparty/internal/domain"
)

type nopSink struct{}

func (nopSink) TrySend(Event) error { return nil }
func (nopSink) Close()              {}

type refusingSink struct{}

func (refusingSink) TrySend(Event) error { return errors.New("backpressure") }
func (refusingSink) Close()              {}

func testParticipant(id string, joinedAt time.Time, hasControl bool) *domain.Participant {
	return &domain.Participant{
		Identity:    domain.GuestIdentity(id),
		ConnID:      "conn-" + id,
		DisplayName: id,
		HasControl:  hasControl,
		JoinedAt:    joinedAt,
	}
}

func TestRegistry_GetRoomParticipants_OrderedByJoinTime(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	roomID := domain.RoomID("room-1")
	base := time.Now()

	// Given participants inserted out of join order
	reg.AddParticipant(roomID, testParticipant("charlie", base.Add(3*time.Second), false), nopSink{})
	reg.AddParticipant(roomID, testParticipant("alice", base.Add(1*time.Second), true), nopSink{})
	reg.AddParticipant(roomID, testParticipant("bob", base.Add(2*time.Second), false), nopSink{})

	// When a snapshot is taken
	participants := reg.GetRoomParticipants(roomID)

	// Then ordering follows join time ascending
	req.Len(participants, 3)
	req.Equal("alice", participants[0].ID())
	req.Equal("bob", participants[1].ID())
	req.Equal("charlie", participants[2].ID())
}

func TestRegistry_AddParticipant_OverwritesByID(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	roomID := domain.RoomID("room-1")
	now := time.Now()

	// Given a participant already present
	reg.AddParticipant(roomID, testParticipant("alice", now, true), nopSink{})

	// When the same id is added again
	reg.AddParticipant(roomID, testParticipant("alice", now, true), nopSink{})

	// Then no duplicate entry exists
	req.Equal(1, reg.GetParticipantCount(roomID))
}

func TestRegistry_RemoveParticipant_PurgesEmptyRoom(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	roomID := domain.RoomID("room-1")

	reg.AddParticipant(roomID, testParticipant("alice", time.Now(), true), nopSink{})

	// When the last participant leaves
	remaining := reg.RemoveParticipant(roomID, "alice")

	// Then the room's registry state is gone
	req.Zero(remaining)
	req.Empty(reg.GetRoomParticipants(roomID))
	req.Zero(reg.GetParticipantCount(roomID))
	_, ok := reg.GetController(roomID)
	req.False(ok)
}

func TestRegistry_SetController_ClearsOthers(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	roomID := domain.RoomID("room-1")
	base := time.Now()

	reg.AddParticipant(roomID, testParticipant("alice", base, true), nopSink{})
	reg.AddParticipant(roomID, testParticipant("bob", base.Add(time.Second), false), nopSink{})

	// When control moves to bob
	reg.SetController(roomID, "bob")

	// Then exactly bob holds control
	controller, ok := reg.GetController(roomID)
	req.True(ok)
	req.Equal("bob", controller.ID())
	alice, _ := reg.GetParticipant(roomID, "alice")
	req.False(alice.HasControl)
}

func TestRegistry_SetController_AbsentTargetLeavesNoController(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	roomID := domain.RoomID("room-1")

	reg.AddParticipant(roomID, testParticipant("alice", time.Now(), true), nopSink{})

	// When the target is not in the room
	reg.SetController(roomID, "ghost")

	// Then everyone's flag is cleared and no one controls
	_, ok := reg.GetController(roomID)
	req.False(ok)
}

func TestRegistry_TransferControlToNext_GrantsOldestRemaining(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	roomID := domain.RoomID("room-1")
	base := time.Now()

	reg.AddParticipant(roomID, testParticipant("alice", base, true), nopSink{})
	reg.AddParticipant(roomID, testParticipant("bob", base.Add(time.Second), false), nopSink{})
	reg.AddParticipant(roomID, testParticipant("charlie", base.Add(2*time.Second), false), nopSink{})

	// When the controller leaves
	reg.TransferControlToNext(roomID, "alice")
	reg.RemoveParticipant(roomID, "alice")

	// Then the oldest remaining participant controls
	controller, ok := reg.GetController(roomID)
	req.True(ok)
	req.Equal("bob", controller.ID())
}

func TestRegistry_EnsureControlConsistency_GrantsWhenNoController(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	roomID := domain.RoomID("room-1")
	base := time.Now()

	// Given a non-empty room with zero controllers
	reg.AddParticipant(roomID, testParticipant("bob", base.Add(time.Second), false), nopSink{})
	reg.AddParticipant(roomID, testParticipant("alice", base, false), nopSink{})

	// When the repair pass runs
	reg.EnsureControlConsistency(roomID)

	// Then the oldest participant gains control
	controller, ok := reg.GetController(roomID)
	req.True(ok)
	req.Equal("alice", controller.ID())
}

func TestRegistry_EnsureControlConsistency_CollapsesMultipleControllers(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	roomID := domain.RoomID("room-1")
	base := time.Now()

	// Given a transiently inconsistent room with two controllers
	reg.AddParticipant(roomID, testParticipant("alice", base, true), nopSink{})
	reg.AddParticipant(roomID, testParticipant("bob", base.Add(time.Second), true), nopSink{})

	// When the repair pass runs
	reg.EnsureControlConsistency(roomID)

	// Then only the oldest keeps the flag
	participants := reg.GetRoomParticipants(roomID)
	req.True(participants[0].HasControl)
	req.False(participants[1].HasControl)
}

func TestRegistry_SingleControllerInvariantUnderChurn(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	roomID := domain.RoomID("room-1")
	base := time.Now()

	// Given a stream of joins, transfers and leaves
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("p%02d", i)
		reg.AddParticipant(roomID, testParticipant(id, base.Add(time.Duration(i)*time.Second), i == 0), nopSink{})
		reg.EnsureControlConsistency(roomID)
	}
	reg.SetController(roomID, "p07")
	reg.EnsureControlConsistency(roomID)
	for _, id := range []string{"p07", "p00", "p03"} {
		reg.TransferControlToNext(roomID, id)
		reg.RemoveParticipant(roomID, id)
		reg.EnsureControlConsistency(roomID)
	}

	// Then exactly one participant holds control
	controllers := 0
	for _, p := range reg.GetRoomParticipants(roomID) {
		if p.HasControl {
			controllers++
		}
	}
	req.Equal(1, controllers)
}

func TestRegistry_Broadcast_SkipsExcludedAndReportsDropped(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	roomID := domain.RoomID("room-1")
	base := time.Now()

	reg.AddParticipant(roomID, testParticipant("alice", base, true), nopSink{})
	reg.AddParticipant(roomID, testParticipant("bob", base.Add(time.Second), false), refusingSink{})
	reg.AddParticipant(roomID, testParticipant("charlie", base.Add(2*time.Second), false), nopSink{})

	// When broadcasting with alice excluded and bob's sink refusing
	res := reg.Broadcast(roomID, NewPlaybackUpdateEvent(roomID, 12, true), "alice")

	// Then one delivery, one drop
	req.Equal(1, res.SentTo)
	req.Equal([]string{"bob"}, res.Dropped)
}

func TestRegistry_FindByConn(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	roomID := domain.RoomID("room-1")

	reg.AddParticipant(roomID, testParticipant("alice", time.Now(), true), nopSink{})

	m, ok := reg.FindByConn(roomID, "conn-alice")
	req.True(ok)
	req.Equal("alice", m.Participant.ID())

	_, ok = reg.FindByConn(roomID, "conn-ghost")
	req.False(ok)
}
