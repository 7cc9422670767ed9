package domain

import "time"

type RoomID string

// SyncMode is the room's playback sync policy.
type SyncMode string

const (
	SyncStrict SyncMode = "strict"
	SyncLoose  SyncMode = "loose"
	SyncManual SyncMode = "manual"
)

// Room is the externally-owned room metadata. The core reads it through the
// RoomStore collaborator and never caches it beyond a single broadcast.
type Room struct {
	ID         RoomID     `json:"id"`
	Name       string     `json:"name"`
	AdminID    string     `json:"admin_id"`
	InviteCode string     `json:"invite_code"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`

	IsPrivate    bool   `json:"is_private"`
	PasswordHash string `json:"-"`

	AllowGuestControl bool     `json:"allow_guest_control"`
	AutoPlay          bool     `json:"auto_play"`
	SyncMode          SyncMode `json:"sync_mode"`

	VideoURL        string  `json:"video_url"`
	CurrentPosition float64 `json:"current_position"`
	IsPlaying       bool    `json:"is_playing"`
}
