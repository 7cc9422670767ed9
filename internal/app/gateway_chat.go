package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"watchparty/internal/core"
	"watchparty/internal/domain"
)

// SendMessage appends a chat message and broadcasts it. Empty or
// whitespace-only text is silently dropped, not an error.
func (g *Gateway) SendMessage(ctx context.Context, connID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	roomID, p, err := g.requireMember(connID)
	if err != nil {
		return err
	}

	msg := domain.NewChatMessage(p.ID(), p.DisplayName, p.AvatarURL, text)
	g.Chat.AddMessage(roomID, msg)
	g.Registry.Broadcast(roomID, core.NewChatMessageEvent(roomID, msg))

	log.Debug().Str("module", "app.gateway").Str("room", string(roomID)).Str("sender", p.ID()).Msg("chat message")
	return nil
}
