package core

import (
	"time"

	"watchparty/internal/domain"
)

// Event is any JSON-serializable payload carrying a "type" discriminator.
// Adapters own the wire encoding.
type Event any

// ParticipantDTO is a read-only view for clients (no transport fields).
// Clients render control and admin state from this list.
type ParticipantDTO struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	HasControl  bool      `json:"has_control"`
	IsAdmin     bool      `json:"is_admin"`
	IsGuest     bool      `json:"is_guest"`
	JoinedAt    time.Time `json:"joined_at"`
}

type RoomJoinedEvent struct {
	Type          string        `json:"type"`
	RoomID        domain.RoomID `json:"room"`
	ParticipantID string        `json:"participant_id"`
	DisplayName   string        `json:"display_name"`
	AvatarURL     string        `json:"avatar_url,omitempty"`
}

func NewRoomJoinedEvent(roomID domain.RoomID, p *domain.Participant) RoomJoinedEvent {
	return RoomJoinedEvent{Type: "room_joined", RoomID: roomID, ParticipantID: p.ID(), DisplayName: p.DisplayName, AvatarURL: p.AvatarURL}
}

type RoomLeftEvent struct {
	Type          string        `json:"type"`
	RoomID        domain.RoomID `json:"room"`
	ParticipantID string        `json:"participant_id"`
	DisplayName   string        `json:"display_name"`
}

func NewRoomLeftEvent(roomID domain.RoomID, participantID, displayName string) RoomLeftEvent {
	return RoomLeftEvent{Type: "room_left", RoomID: roomID, ParticipantID: participantID, DisplayName: displayName}
}

type ParticipantListEvent struct {
	Type         string           `json:"type"`
	RoomID       domain.RoomID    `json:"room"`
	Participants []ParticipantDTO `json:"participants"`
}

func NewParticipantListEvent(roomID domain.RoomID, participants []ParticipantDTO) ParticipantListEvent {
	return ParticipantListEvent{Type: "participant_list", RoomID: roomID, Participants: participants}
}

type ChatMessageEvent struct {
	Type    string             `json:"type"`
	RoomID  domain.RoomID      `json:"room"`
	Message domain.ChatMessage `json:"message"`
}

func NewChatMessageEvent(roomID domain.RoomID, msg domain.ChatMessage) ChatMessageEvent {
	return ChatMessageEvent{Type: "chat_message", RoomID: roomID, Message: msg}
}

type ChatHistoryEvent struct {
	Type     string               `json:"type"`
	RoomID   domain.RoomID        `json:"room"`
	Messages []domain.ChatMessage `json:"messages"`
}

func NewChatHistoryEvent(roomID domain.RoomID, msgs []domain.ChatMessage) ChatHistoryEvent {
	return ChatHistoryEvent{Type: "chat_history", RoomID: roomID, Messages: msgs}
}

type ControlTransferredEvent struct {
	Type           string        `json:"type"`
	RoomID         domain.RoomID `json:"room"`
	ControllerID   string        `json:"controller_id"`
	ControllerName string        `json:"controller_name"`
}

func NewControlTransferredEvent(roomID domain.RoomID, controllerID, controllerName string) ControlTransferredEvent {
	return ControlTransferredEvent{Type: "control_transferred", RoomID: roomID, ControllerID: controllerID, ControllerName: controllerName}
}

type VideoChangedEvent struct {
	Type     string        `json:"type"`
	RoomID   domain.RoomID `json:"room"`
	VideoURL string        `json:"video_url"`
}

func NewVideoChangedEvent(roomID domain.RoomID, videoURL string) VideoChangedEvent {
	return VideoChangedEvent{Type: "video_changed", RoomID: roomID, VideoURL: videoURL}
}

type PlaybackUpdateEvent struct {
	Type      string        `json:"type"`
	RoomID    domain.RoomID `json:"room"`
	Position  float64       `json:"position"`
	IsPlaying bool          `json:"is_playing"`
}

func NewPlaybackUpdateEvent(roomID domain.RoomID, position float64, isPlaying bool) PlaybackUpdateEvent {
	return PlaybackUpdateEvent{Type: "playback_update", RoomID: roomID, Position: position, IsPlaying: isPlaying}
}

// ForceSyncEvent tells one client to snap its local clock to a target
// position. Used for the join snapshot and for reconciliation outliers.
type ForceSyncEvent struct {
	Type      string        `json:"type"`
	RoomID    domain.RoomID `json:"room"`
	Position  float64       `json:"position"`
	IsPlaying bool          `json:"is_playing"`
}

func NewForceSyncEvent(roomID domain.RoomID, position float64, isPlaying bool) ForceSyncEvent {
	return ForceSyncEvent{Type: "force_sync", RoomID: roomID, Position: position, IsPlaying: isPlaying}
}

type HeartbeatEvent struct {
	Type     string        `json:"type"`
	RoomID   domain.RoomID `json:"room"`
	Position float64       `json:"position"`
}

func NewHeartbeatEvent(roomID domain.RoomID, position float64) HeartbeatEvent {
	return HeartbeatEvent{Type: "heartbeat", RoomID: roomID, Position: position}
}

type RoomClosedEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"room"`
	Reason string        `json:"reason"`
}

func NewRoomClosedEvent(roomID domain.RoomID, reason string) RoomClosedEvent {
	return RoomClosedEvent{Type: "room_closed", RoomID: roomID, Reason: reason}
}

// UserKickedEvent is targeted at the kicked connection only, sent before the
// participant leaves broadcast scope.
type UserKickedEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"room"`
	Reason string        `json:"reason"`
}

func NewUserKickedEvent(roomID domain.RoomID, reason string) UserKickedEvent {
	return UserKickedEvent{Type: "user_kicked", RoomID: roomID, Reason: reason}
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"error"`
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: "error", Message: message}
}
