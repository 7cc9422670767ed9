package app

import "watchparty/internal/domain"

// ControlPolicy decides who may hold or grant playback control under which
// events. Kept separate from transport and registry code so the rules are
// testable on their own.
type ControlPolicy interface {
	// GrantOnJoin reports whether a joining participant receives control:
	// first-in gets control, the admin always does.
	GrantOnJoin(isAdmin, firstIn bool) bool
	// PreemptOnJoin reports whether the joining admin forcibly takes control
	// from whoever currently holds it.
	PreemptOnJoin(isAdmin, firstIn bool, controller *domain.Participant, joinerID string) bool
	// CanTransfer permits an explicit transfer request: room admin, or the
	// current controller.
	CanTransfer(isAdmin bool, actor *domain.Participant) bool
	// CanTakeControl permits the unconditional take-control request.
	CanTakeControl(isAdmin bool) bool
	// CanDrivePlayback permits play/pause/seek/change-video.
	CanDrivePlayback(isAdmin bool, actor *domain.Participant) bool
	// CanKick permits removing another participant. Admin only, never self.
	CanKick(isAdmin bool, actorID, targetID string) bool
}

type DefaultControlPolicy struct{}

func (DefaultControlPolicy) GrantOnJoin(isAdmin, firstIn bool) bool {
	return isAdmin || firstIn
}

func (DefaultControlPolicy) PreemptOnJoin(isAdmin, firstIn bool, controller *domain.Participant, joinerID string) bool {
	return isAdmin && !firstIn && controller != nil && controller.ID() != joinerID
}

func (DefaultControlPolicy) CanTransfer(isAdmin bool, actor *domain.Participant) bool {
	return isAdmin || (actor != nil && actor.HasControl)
}

func (DefaultControlPolicy) CanTakeControl(isAdmin bool) bool {
	return isAdmin
}

func (DefaultControlPolicy) CanDrivePlayback(isAdmin bool, actor *domain.Participant) bool {
	return isAdmin || (actor != nil && actor.HasControl)
}

func (DefaultControlPolicy) CanKick(isAdmin bool, actorID, targetID string) bool {
	return isAdmin && actorID != targetID
}
