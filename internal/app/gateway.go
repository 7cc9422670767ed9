package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"watchparty/internal/core"
	"watchparty/internal/domain"
)

// DefaultJoinTimeout bounds the store round-trips on the join path; an
// expired join leaves the connection in the "not joined" state.
const DefaultJoinTimeout = 10 * time.Second

// Gateway is the real-time entry point for room commands. It validates every
// command against room metadata and registry state before any mutation,
// dispatches to the registry/chat log/reconciler, and broadcasts resulting
// events. Guard failures surface as caller-only errors, never as broadcast
// noise.
type Gateway struct {
	Sessions *SessionIndex
	Registry *core.Registry
	Chat     *core.ChatLog
	Sync     *core.Reconciler
	Store    core.RoomStore
	Identity core.IdentityResolver
	Policy   ControlPolicy

	JoinTimeout time.Duration
}

func NewGateway(store core.RoomStore, identity core.IdentityResolver, sync *core.Reconciler) *Gateway {
	return &Gateway{
		Sessions:    NewSessionIndex(),
		Registry:    core.NewRegistry(),
		Chat:        core.NewChatLog(),
		Sync:        sync,
		Store:       store,
		Identity:    identity,
		Policy:      DefaultControlPolicy{},
		JoinTimeout: DefaultJoinTimeout,
	}
}

// Connect registers a live connection before any join.
func (g *Gateway) Connect(connID string, identity domain.Identity, sink core.EventSink, cancel context.CancelFunc) {
	g.Sessions.Bind(connID, identity, sink, cancel)
}

// Disconnect runs the same leave path as an explicit leave, then forgets the
// connection. Invoked by the transport when a connection drops.
func (g *Gateway) Disconnect(ctx context.Context, connID string) {
	if _, _, ok := g.Sessions.RoomOf(connID); ok {
		if err := g.Leave(ctx, connID); err != nil {
			log.Error().Err(err).Str("module", "app.gateway").Str("conn", connID).Msg("leave on disconnect")
		}
	}
	g.Sessions.Unbind(connID)
}

// Join admits a connection into a room. Fails NotFound for a missing or
// inactive room, Unauthorized on a private-room password mismatch (the admin
// bypasses the password). Re-joining with the same participant id does not
// duplicate the entry.
func (g *Gateway) Join(ctx context.Context, connID string, roomID domain.RoomID, displayName, password string) error {
	identity, sink, ok := g.Sessions.Get(connID)
	if !ok {
		return fmt.Errorf("connection not registered: %w", core.ErrInternal)
	}

	ctx, cancel := context.WithTimeout(ctx, g.JoinTimeout)
	defer cancel()

	room, err := g.Store.GetRoom(ctx, roomID)
	if err != nil || room == nil || !room.IsActive {
		if err != nil && !isNotFound(err) {
			log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("store lookup on join")
			return fmt.Errorf("failed to join room: %w", core.ErrInternal)
		}
		return fmt.Errorf("room not found or no longer active: %w", core.ErrNotFound)
	}

	isAdmin := identity.IsRegistered() && identity.ID == room.AdminID

	if room.IsPrivate && !isAdmin {
		valid, err := g.Store.ValidatePassword(ctx, roomID, password)
		if err != nil {
			log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("password validation")
			return fmt.Errorf("failed to join room: %w", core.ErrInternal)
		}
		if !valid {
			return fmt.Errorf("incorrect password: %w", core.ErrUnauthorized)
		}
	}

	name, avatar := displayName, ""
	if identity.IsRegistered() {
		profile, err := g.Identity.Resolve(ctx, identity.ID)
		if err != nil {
			log.Error().Err(err).Str("module", "app.gateway").Str("user", identity.ID).Msg("identity lookup")
			return fmt.Errorf("user not found: %w", core.ErrUnauthorized)
		}
		name, avatar = profile.DisplayName, profile.AvatarURL
	}
	if strings.TrimSpace(name) == "" {
		name = "guest"
	}

	// Idempotent re-join: keep the existing record (join time, control flag),
	// only rebind the connection.
	if existing, ok := g.Registry.GetParticipant(roomID, identity.ID); ok {
		existing.ConnID = connID
		g.Registry.AddParticipant(roomID, existing, sink)
		g.Sessions.SetRoom(connID, roomID, identity.ID)
		g.sendJoinState(room, sink, existing)
		return nil
	}

	firstIn := g.Registry.GetParticipantCount(roomID) == 0
	controller, _ := g.Registry.GetController(roomID)

	participant, err := domain.NewParticipant(identity, connID, name, avatar, g.Policy.GrantOnJoin(isAdmin, firstIn))
	if err != nil {
		return fmt.Errorf("%s: %w", err.Error(), core.ErrForbidden)
	}

	g.Registry.AddParticipant(roomID, participant, sink)

	if g.Policy.PreemptOnJoin(isAdmin, firstIn, controller, participant.ID()) {
		g.Registry.SetController(roomID, participant.ID())
		g.Registry.Broadcast(roomID, core.NewControlTransferredEvent(roomID, participant.ID(), participant.DisplayName))
	}
	g.Registry.EnsureControlConsistency(roomID)

	g.Sessions.SetRoom(connID, roomID, participant.ID())

	// Others first: join notice, system chat line, then the fresh list.
	g.Registry.Broadcast(roomID, core.NewRoomJoinedEvent(roomID, participant), participant.ID())
	g.systemSay(roomID, fmt.Sprintf("%s joined the room", participant.DisplayName))
	g.broadcastParticipantList(room)

	g.sendJoinState(room, sink, participant)

	log.Info().Str("module", "app.gateway").Str("room", string(roomID)).Str("participant", participant.ID()).Bool("admin", isAdmin).Msg("joined room")
	return nil
}

// sendJoinState delivers the caller-only join snapshot: their own join ack,
// the participant list, the playback position, and the chat history.
func (g *Gateway) sendJoinState(room *domain.Room, sink core.EventSink, p *domain.Participant) {
	trySend(sink, core.NewRoomJoinedEvent(room.ID, p))
	trySend(sink, core.NewParticipantListEvent(room.ID, g.participantDTOs(room)))
	trySend(sink, core.NewForceSyncEvent(room.ID, room.CurrentPosition, room.IsPlaying))
	trySend(sink, core.NewChatHistoryEvent(room.ID, g.Chat.GetRoomMessages(room.ID)))
}

// Leave removes the caller from its room. A leaving controller hands control
// to the oldest remaining participant; a leaving admin ends the room for
// everyone. Safe to call for a connection that never joined.
func (g *Gateway) Leave(ctx context.Context, connID string) error {
	roomID, participantID, ok := g.Sessions.RoomOf(connID)
	if !ok {
		return nil
	}
	p, ok := g.Registry.GetParticipant(roomID, participantID)
	if !ok {
		g.Sessions.ClearRoom(connID)
		return nil
	}

	// A failed lookup must not demote an admin departure to a regular leave,
	// so the leave fails instead of guessing.
	room, err := g.Store.GetRoom(ctx, roomID)
	if err != nil && !isNotFound(err) {
		log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("store lookup on leave")
		return fmt.Errorf("failed to leave room: %w", core.ErrInternal)
	}

	// Admin departure ends the room outright; the session does not survive
	// its owner.
	if room != nil && p.Identity.IsRegistered() && p.ID() == room.AdminID {
		g.closeRoom(ctx, roomID, "room closed: admin left")
		return nil
	}

	wasController := p.HasControl
	remaining := g.Registry.RemoveParticipant(roomID, participantID)
	g.Sessions.ClearRoom(connID)

	if wasController && remaining > 0 {
		g.Registry.TransferControlToNext(roomID, participantID)
		g.Registry.EnsureControlConsistency(roomID)
		if next, ok := g.Registry.GetController(roomID); ok {
			g.Registry.Broadcast(roomID, core.NewControlTransferredEvent(roomID, next.ID(), next.DisplayName))
			g.systemSay(roomID, fmt.Sprintf("%s now has control", next.DisplayName))
		}
	}

	if remaining > 0 {
		g.Registry.Broadcast(roomID, core.NewRoomLeftEvent(roomID, participantID, p.DisplayName))
		g.systemSay(roomID, fmt.Sprintf("%s left the room", p.DisplayName))
		g.broadcastParticipantList(room)
	} else {
		g.Chat.PurgeRoom(roomID)
		g.Sync.PurgeRoom(roomID)
	}

	log.Info().Str("module", "app.gateway").Str("room", string(roomID)).Str("participant", participantID).Msg("left room")
	return nil
}

// closeRoom ends the room in the store, tells everyone, and purges all
// in-memory state. Store failure is logged but does not keep the room alive.
func (g *Gateway) closeRoom(ctx context.Context, roomID domain.RoomID, reason string) {
	if err := g.Store.EndRoom(ctx, roomID); err != nil {
		log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("end room in store")
	}
	g.Registry.Broadcast(roomID, core.NewRoomClosedEvent(roomID, reason))
	g.Sessions.ClearRoomAll(roomID)
	g.Registry.PurgeRoom(roomID)
	g.Chat.PurgeRoom(roomID)
	g.Sync.PurgeRoom(roomID)
	log.Info().Str("module", "app.gateway").Str("room", string(roomID)).Str("reason", reason).Msg("room closed")
}

// GetParticipants sends the caller the current membership list on demand.
func (g *Gateway) GetParticipants(ctx context.Context, connID string) error {
	roomID, p, err := g.requireMember(connID)
	if err != nil {
		return err
	}
	room, err := g.Store.GetRoom(ctx, roomID)
	if err != nil || room == nil || !room.IsActive {
		if err != nil && !isNotFound(err) {
			log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Msg("store lookup on participants query")
			return fmt.Errorf("failed to list participants: %w", core.ErrInternal)
		}
		return fmt.Errorf("room not found or no longer active: %w", core.ErrNotFound)
	}
	g.Registry.SendTo(roomID, p.ID(), core.NewParticipantListEvent(roomID, g.participantDTOs(room)))
	return nil
}

// requireMember resolves the caller's room binding and participant record.
func (g *Gateway) requireMember(connID string) (domain.RoomID, *domain.Participant, error) {
	roomID, participantID, ok := g.Sessions.RoomOf(connID)
	if !ok {
		return "", nil, fmt.Errorf("you are not in a room: %w", core.ErrForbidden)
	}
	p, ok := g.Registry.GetParticipant(roomID, participantID)
	if !ok {
		return "", nil, fmt.Errorf("you are no longer in this room: %w", core.ErrNotFound)
	}
	return roomID, p, nil
}

// isRoomAdmin consults the store; guests are never admin.
func (g *Gateway) isRoomAdmin(ctx context.Context, roomID domain.RoomID, p *domain.Participant) bool {
	if !p.Identity.IsRegistered() {
		return false
	}
	isAdmin, err := g.Store.IsAdmin(ctx, roomID, p.ID())
	if err != nil {
		log.Error().Err(err).Str("module", "app.gateway").Str("room", string(roomID)).Str("user", p.ID()).Msg("admin check")
		return false
	}
	return isAdmin
}

func (g *Gateway) participantDTOs(room *domain.Room) []core.ParticipantDTO {
	participants := g.Registry.GetRoomParticipants(room.ID)
	return lo.Map(participants, func(p domain.Participant, _ int) core.ParticipantDTO {
		return core.ParticipantDTO{
			ID:          p.ID(),
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
			HasControl:  p.HasControl,
			IsAdmin:     p.Identity.IsRegistered() && p.ID() == room.AdminID,
			IsGuest:     p.Identity.IsGuest(),
			JoinedAt:    p.JoinedAt,
		}
	})
}

// broadcastParticipantList pushes the full list to the whole room; clients
// render membership and control state from it. Tolerates a nil room (store
// outage): admin flags are simply absent.
func (g *Gateway) broadcastParticipantList(room *domain.Room) {
	if room == nil {
		return
	}
	g.Registry.Broadcast(room.ID, core.NewParticipantListEvent(room.ID, g.participantDTOs(room)))
}

// systemSay appends a system chat message and broadcasts it.
func (g *Gateway) systemSay(roomID domain.RoomID, text string) {
	msg := domain.NewSystemMessage(text)
	g.Chat.AddMessage(roomID, msg)
	g.Registry.Broadcast(roomID, core.NewChatMessageEvent(roomID, msg))
}

func trySend(sink core.EventSink, event core.Event) {
	if err := sink.TrySend(event); err != nil {
		log.Warn().Err(err).Str("module", "app.gateway").Msg("sink refused event")
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
