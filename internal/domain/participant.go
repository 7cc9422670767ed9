// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"
)

const MaxDisplayNameLen = 36

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
)

// Participant is one connected member of a room. Owned by the registry,
// destroyed on leave/disconnect/kick.
type Participant struct {
	Identity    Identity  `json:"-"`
	ConnID      string    `json:"-"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	HasControl  bool      `json:"has_control"`
	JoinedAt    time.Time `json:"joined_at"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(identity Identity, connID, displayName, avatarURL string, hasControl bool) (*Participant, error) {
	if len(displayName) == 0 {
		return nil, ErrDisplayNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	return &Participant{
		Identity:    identity,
		ConnID:      connID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		HasControl:  hasControl,
		JoinedAt:    time.Now().UTC(),
	}, nil
}

// ID is the participant's key within a room: user id for registered
// members, ephemeral guest id otherwise.
func (p *Participant) ID() string { return p.Identity.ID }

// Profile is the resolved display info for a registered user.
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
