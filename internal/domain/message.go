package domain

import (
	"time"

	"github.com/google/uuid"
)

// SystemSenderID is the reserved sender for messages synthesized by the
// gateway (join/leave/kick/control notices). Clients render these distinctly.
const SystemSenderID = "system"

// ChatMessage is one entry in a room's bounded chat log.
type ChatMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sent_at"`
	System     bool      `json:"system"`
}

func NewChatMessage(senderID, senderName, avatarURL, content string) ChatMessage {
	return ChatMessage{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		SenderName: senderName,
		AvatarURL:  avatarURL,
		Content:    content,
		SentAt:     time.Now().UTC(),
	}
}

func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{
		ID:         uuid.NewString(),
		SenderID:   SystemSenderID,
		SenderName: "System",
		Content:    content,
		SentAt:     time.Now().UTC(),
		System:     true,
	}
}
