package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"watchparty/internal/core"
)

// TransferControl hands playback control to another participant of record.
// Permitted for the room admin or the current controller.
func (g *Gateway) TransferControl(ctx context.Context, connID, targetID string) error {
	roomID, actor, err := g.requireMember(connID)
	if err != nil {
		return err
	}
	if !g.Policy.CanTransfer(g.isRoomAdmin(ctx, roomID, actor), actor) {
		return fmt.Errorf("only the room admin or the current controller can transfer control: %w", core.ErrForbidden)
	}
	target, ok := g.Registry.GetParticipant(roomID, targetID)
	if !ok {
		return fmt.Errorf("target participant not found in room: %w", core.ErrNotFound)
	}

	g.Registry.SetController(roomID, targetID)
	g.Registry.EnsureControlConsistency(roomID)

	g.Registry.Broadcast(roomID, core.NewControlTransferredEvent(roomID, targetID, target.DisplayName))
	g.systemSay(roomID, fmt.Sprintf("%s now has control", target.DisplayName))
	if room, err := g.Store.GetRoom(ctx, roomID); err == nil {
		g.broadcastParticipantList(room)
	}

	log.Info().Str("module", "app.gateway").Str("room", string(roomID)).Str("from", actor.ID()).Str("to", targetID).Msg("control transferred")
	return nil
}

// TakeControl grants the admin control unconditionally, overriding the
// current controller.
func (g *Gateway) TakeControl(ctx context.Context, connID string) error {
	roomID, actor, err := g.requireMember(connID)
	if err != nil {
		return err
	}
	if !g.Policy.CanTakeControl(g.isRoomAdmin(ctx, roomID, actor)) {
		return fmt.Errorf("only the room admin can take control: %w", core.ErrForbidden)
	}

	g.Registry.SetController(roomID, actor.ID())
	g.Registry.EnsureControlConsistency(roomID)

	g.Registry.Broadcast(roomID, core.NewControlTransferredEvent(roomID, actor.ID(), actor.DisplayName))
	g.systemSay(roomID, fmt.Sprintf("%s now has control", actor.DisplayName))
	if room, err := g.Store.GetRoom(ctx, roomID); err == nil {
		g.broadcastParticipantList(room)
	}
	return nil
}

// Kick removes a participant. Admin only, never self. The kicked connection
// is told first, while it can still be reached, then dropped from broadcast
// scope; control transfers if the target held it.
func (g *Gateway) Kick(ctx context.Context, connID, targetID string) error {
	roomID, actor, err := g.requireMember(connID)
	if err != nil {
		return err
	}
	if !g.Policy.CanKick(g.isRoomAdmin(ctx, roomID, actor), actor.ID(), targetID) {
		return fmt.Errorf("only the room admin can kick users: %w", core.ErrForbidden)
	}
	target, ok := g.Registry.GetParticipant(roomID, targetID)
	if !ok {
		return fmt.Errorf("user not found in room: %w", core.ErrNotFound)
	}

	g.Registry.SendTo(roomID, targetID,
		core.NewUserKickedEvent(roomID, fmt.Sprintf("You have been kicked from the room by %s", actor.DisplayName)))

	wasController := target.HasControl
	remaining := g.Registry.RemoveParticipant(roomID, targetID)
	g.Sessions.ClearRoom(target.ConnID)
	// The kicked connection has been told; drop its transport.
	g.Sessions.Cancel(target.ConnID)

	if wasController && remaining > 0 {
		g.Registry.TransferControlToNext(roomID, targetID)
		g.Registry.EnsureControlConsistency(roomID)
		if next, ok := g.Registry.GetController(roomID); ok {
			g.Registry.Broadcast(roomID, core.NewControlTransferredEvent(roomID, next.ID(), next.DisplayName))
		}
	}

	g.systemSay(roomID, fmt.Sprintf("%s was kicked from the room by %s", target.DisplayName, actor.DisplayName))
	if room, err := g.Store.GetRoom(ctx, roomID); err == nil {
		g.broadcastParticipantList(room)
	}

	log.Info().Str("module", "app.gateway").Str("room", string(roomID)).Str("target", targetID).Str("by", actor.ID()).Msg("user kicked")
	return nil
}

// CloseRoom is the explicit admin command ending the room for everyone.
func (g *Gateway) CloseRoom(ctx context.Context, connID string) error {
	roomID, actor, err := g.requireMember(connID)
	if err != nil {
		return err
	}
	if !g.isRoomAdmin(ctx, roomID, actor) {
		return fmt.Errorf("only room administrators can close rooms: %w", core.ErrForbidden)
	}
	g.closeRoom(ctx, roomID, "room closed by admin")
	return nil
}
