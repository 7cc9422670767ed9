package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"watchparty/internal/core"
)

// ChangeVideo swaps the room's video locator. Requires control or admin.
func (g *Gateway) ChangeVideo(ctx context.Context, connID, videoURL string) error {
	roomID, p, err := g.requireMember(connID)
	if err != nil {
		return err
	}
	if !g.Policy.CanDrivePlayback(g.isRoomAdmin(ctx, roomID, p), p) {
		return fmt.Errorf("you don't have permission to change the video: %w", core.ErrForbidden)
	}
	if err := g.Store.UpdateVideo(ctx, roomID, videoURL); err != nil {
		log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("update video in store")
		return fmt.Errorf("failed to change video: %w", core.ErrInternal)
	}
	g.Registry.Broadcast(roomID, core.NewVideoChangedEvent(roomID, videoURL))
	log.Info().Str("module", "app.gateway").Str("room", string(roomID)).Str("participant", p.ID()).Msg("video changed")
	return nil
}

// Play resumes playback at the stored position.
func (g *Gateway) Play(ctx context.Context, connID string) error {
	return g.setPlaying(ctx, connID, true)
}

// Pause halts playback at the stored position.
func (g *Gateway) Pause(ctx context.Context, connID string) error {
	return g.setPlaying(ctx, connID, false)
}

func (g *Gateway) setPlaying(ctx context.Context, connID string, playing bool) error {
	roomID, p, err := g.requireMember(connID)
	if err != nil {
		return err
	}
	if !g.Policy.CanDrivePlayback(g.isRoomAdmin(ctx, roomID, p), p) {
		return fmt.Errorf("you don't have permission to control playback: %w", core.ErrForbidden)
	}
	room, err := g.Store.GetRoom(ctx, roomID)
	if err != nil || room == nil || !room.IsActive {
		if err != nil && !isNotFound(err) {
			log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("store lookup on playback")
			return fmt.Errorf("failed to update playback: %w", core.ErrInternal)
		}
		return fmt.Errorf("room not found or no longer active: %w", core.ErrNotFound)
	}
	if err := g.Store.UpdatePlaybackState(ctx, roomID, room.CurrentPosition, playing); err != nil {
		log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("update playback in store")
		return fmt.Errorf("failed to update playback: %w", core.ErrInternal)
	}
	g.Registry.Broadcast(roomID, core.NewPlaybackUpdateEvent(roomID, room.CurrentPosition, playing))
	return nil
}

// Seek jumps to an absolute position, keeping the current playing flag.
func (g *Gateway) Seek(ctx context.Context, connID string, position float64) error {
	roomID, p, err := g.requireMember(connID)
	if err != nil {
		return err
	}
	if !g.Policy.CanDrivePlayback(g.isRoomAdmin(ctx, roomID, p), p) {
		return fmt.Errorf("you don't have permission to control playback: %w", core.ErrForbidden)
	}
	room, err := g.Store.GetRoom(ctx, roomID)
	if err != nil || room == nil || !room.IsActive {
		if err != nil && !isNotFound(err) {
			log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("store lookup on seek")
			return fmt.Errorf("failed to seek: %w", core.ErrInternal)
		}
		return fmt.Errorf("room not found or no longer active: %w", core.ErrNotFound)
	}
	if err := g.Store.UpdatePlaybackState(ctx, roomID, position, room.IsPlaying); err != nil {
		log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("update playback in store")
		return fmt.Errorf("failed to seek: %w", core.ErrInternal)
	}
	g.Registry.Broadcast(roomID, core.NewPlaybackUpdateEvent(roomID, position, room.IsPlaying))
	return nil
}

// ReportPosition feeds the reconciler. When a quorum of the room has
// reported, outlier connections get a forced resync to the median. The
// authoritative stored position is never modified here.
func (g *Gateway) ReportPosition(ctx context.Context, connID string, position float64) error {
	roomID, _, err := g.requireMember(connID)
	if err != nil {
		return err
	}
	pass, ok := g.Sync.Report(roomID, connID, position, g.Registry.GetParticipantCount(roomID))
	if !ok || len(pass.Outliers) == 0 {
		return nil
	}
	room, err := g.Store.GetRoom(ctx, roomID)
	if err != nil || room == nil || !room.IsActive {
		if err != nil && !isNotFound(err) {
			log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("store lookup on resync")
		}
		return nil
	}
	for _, outlierConn := range pass.Outliers {
		if m, ok := g.Registry.FindByConn(roomID, outlierConn); ok {
			trySend(m.Sink, core.NewForceSyncEvent(roomID, pass.Median, room.IsPlaying))
			log.Info().Str("module", "app.gateway").Str("room", string(roomID)).Str("conn", outlierConn).Float64("median", pass.Median).Msg("forced resync for outlier")
		}
	}
	return nil
}

// Heartbeat is the controller's periodic position publish. Non-controllers
// are silently ignored: this is a background timer, not a user action.
func (g *Gateway) Heartbeat(ctx context.Context, connID string, position float64) error {
	roomID, p, err := g.requireMember(connID)
	if err != nil {
		return nil
	}
	if !p.HasControl {
		return nil
	}
	if err := g.Store.UpdatePlaybackState(ctx, roomID, position, true); err != nil {
		log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("heartbeat store update")
		return nil
	}
	g.Registry.Broadcast(roomID, core.NewHeartbeatEvent(roomID, position), p.ID())
	return nil
}

// RequestSync sends the caller the stored playback snapshot.
func (g *Gateway) RequestSync(ctx context.Context, connID string) error {
	roomID, p, err := g.requireMember(connID)
	if err != nil {
		return err
	}
	room, err := g.Store.GetRoom(ctx, roomID)
	if err != nil || room == nil || !room.IsActive {
		if err != nil && !isNotFound(err) {
			log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("store lookup on sync request")
			return fmt.Errorf("failed to sync playback: %w", core.ErrInternal)
		}
		return fmt.Errorf("room not found or no longer active: %w", core.ErrNotFound)
	}
	g.Registry.SendTo(roomID, p.ID(), core.NewForceSyncEvent(roomID, room.CurrentPosition, room.IsPlaying))
	return nil
}
