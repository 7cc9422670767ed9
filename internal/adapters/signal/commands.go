package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"watchparty/internal/domain"
)

func (ctl *Controller) handleJoin(ctx context.Context, connID string, c *WsConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Room     string `json:"room"`
		Password string `json:"password,omitempty"`
		Name     string `json:"name,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	log.Info().Str("module", "signal").Str("conn", connID).Str("room", p.Room).Msg("join")
	ctl.reply(c, ctl.Gateway.Join(ctx, connID, domain.RoomID(p.Room), p.Name, p.Password))
}

func (ctl *Controller) handleLeave(ctx context.Context, connID string, c *WsConn) {
	log.Info().Str("module", "signal").Str("conn", connID).Msg("leave")
	ctl.reply(c, ctl.Gateway.Leave(ctx, connID))
	ctl.sendJSON(c, map[string]any{"type": "left"})
}

func (ctl *Controller) handleSendMessage(ctx context.Context, connID string, c *WsConn, data []byte) {
	var p struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(connID) {
		ctl.sendError(c, "you are sending messages too fast")
		return
	}
	ctl.reply(c, ctl.Gateway.SendMessage(ctx, connID, p.Text))
}

func (ctl *Controller) handleChangeVideo(ctx context.Context, connID string, c *WsConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		VideoURL string `json:"video_url"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.reply(c, ctl.Gateway.ChangeVideo(ctx, connID, p.VideoURL))
}

func (ctl *Controller) handleSeek(ctx context.Context, connID string, c *WsConn, data []byte) {
	var p struct {
		Type     string  `json:"type"`
		Position float64 `json:"position"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.reply(c, ctl.Gateway.Seek(ctx, connID, p.Position))
}

func (ctl *Controller) handleReportPosition(ctx context.Context, connID string, c *WsConn, data []byte) {
	var p struct {
		Type     string  `json:"type"`
		Position float64 `json:"position"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.reply(c, ctl.Gateway.ReportPosition(ctx, connID, p.Position))
}

func (ctl *Controller) handleHeartbeat(ctx context.Context, connID string, c *WsConn, data []byte) {
	var p struct {
		Type     string  `json:"type"`
		Position float64 `json:"position"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	// Heartbeats are background noise; errors are swallowed on purpose.
	_ = ctl.Gateway.Heartbeat(ctx, connID, p.Position)
}

func (ctl *Controller) handleTransferControl(ctx context.Context, connID string, c *WsConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		Target string `json:"target"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.reply(c, ctl.Gateway.TransferControl(ctx, connID, p.Target))
}

func (ctl *Controller) handleKick(ctx context.Context, connID string, c *WsConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		Target string `json:"target"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.reply(c, ctl.Gateway.Kick(ctx, connID, p.Target))
}
