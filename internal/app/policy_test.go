package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"watchparty/internal/domain"
)

func TestDefaultControlPolicy_GrantOnJoin(t *testing.T) {
	req := require.New(t)
	p := DefaultControlPolicy{}

	req.True(p.GrantOnJoin(false, true), "first-in gets control")
	req.True(p.GrantOnJoin(true, false), "admin always gets control")
	req.True(p.GrantOnJoin(true, true))
	req.False(p.GrantOnJoin(false, false), "late non-admin joiner gets nothing")
}

func TestDefaultControlPolicy_PreemptOnJoin(t *testing.T) {
	req := require.New(t)
	p := DefaultControlPolicy{}
	controller := &domain.Participant{Identity: domain.GuestIdentity("guest-1")}

	req.True(p.PreemptOnJoin(true, false, controller, "admin-1"), "admin takes control from a holder")
	req.False(p.PreemptOnJoin(false, false, controller, "user-1"), "non-admin never preempts")
	req.False(p.PreemptOnJoin(true, true, nil, "admin-1"), "nothing to preempt in an empty room")
	req.False(p.PreemptOnJoin(true, false, controller, "guest-1"), "no preemption from yourself")
}

func TestDefaultControlPolicy_TransferAndTake(t *testing.T) {
	req := require.New(t)
	p := DefaultControlPolicy{}
	controller := &domain.Participant{Identity: domain.GuestIdentity("g"), HasControl: true}
	bystander := &domain.Participant{Identity: domain.GuestIdentity("b")}

	req.True(p.CanTransfer(false, controller), "current controller may transfer")
	req.True(p.CanTransfer(true, bystander), "admin may transfer regardless")
	req.False(p.CanTransfer(false, bystander))
	req.False(p.CanTransfer(false, nil))

	req.True(p.CanTakeControl(true))
	req.False(p.CanTakeControl(false))
}

func TestDefaultControlPolicy_PlaybackAndKick(t *testing.T) {
	req := require.New(t)
	p := DefaultControlPolicy{}
	controller := &domain.Participant{Identity: domain.GuestIdentity("g"), HasControl: true}
	bystander := &domain.Participant{Identity: domain.GuestIdentity("b")}

	req.True(p.CanDrivePlayback(false, controller))
	req.True(p.CanDrivePlayback(true, bystander))
	req.False(p.CanDrivePlayback(false, bystander))

	req.True(p.CanKick(true, "admin-1", "guest-1"))
	req.False(p.CanKick(false, "user-1", "guest-1"), "kick is admin-only")
	req.False(p.CanKick(true, "admin-1", "admin-1"), "admin cannot kick themselves")
}
