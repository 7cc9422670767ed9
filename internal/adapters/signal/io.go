package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"watchparty/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *WsConn) {
	pingPeriod := ctl.PingPeriod
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// teardown releases everything a connection holds: gateway session, rate
// limiter window, and the transport itself.
func (ctl *Controller) teardown(ctx context.Context, connID string, c *WsConn) {
	ctl.Gateway.Disconnect(ctx, connID)
	if ctl.Limiter != nil {
		ctl.Limiter.Forget(connID)
	}
	c.Close()
}

func (ctl *Controller) readPump(ctx context.Context, connID string, c *WsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", connID).Msg("readPump closing")
		ctl.teardown(context.WithoutCancel(ctx), connID, c)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", connID).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", connID).Msg("readPump read error")
				return
			}
			ctl.handleCommand(ctx, connID, c, data)
		}
	}
}

func (ctl *Controller) handleCommand(ctx context.Context, connID string, c *WsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(ctx, connID, c, data)
	case "leave":
		ctl.handleLeave(ctx, connID, c)
	case "send_message":
		ctl.handleSendMessage(ctx, connID, c, data)
	case "change_video":
		ctl.handleChangeVideo(ctx, connID, c, data)
	case "play":
		ctl.reply(c, ctl.Gateway.Play(ctx, connID))
	case "pause":
		ctl.reply(c, ctl.Gateway.Pause(ctx, connID))
	case "seek":
		ctl.handleSeek(ctx, connID, c, data)
	case "report_position":
		ctl.handleReportPosition(ctx, connID, c, data)
	case "heartbeat":
		ctl.handleHeartbeat(ctx, connID, c, data)
	case "request_sync":
		ctl.reply(c, ctl.Gateway.RequestSync(ctx, connID))
	case "get_participants":
		ctl.reply(c, ctl.Gateway.GetParticipants(ctx, connID))
	case "transfer_control":
		ctl.handleTransferControl(ctx, connID, c, data)
	case "take_control":
		ctl.reply(c, ctl.Gateway.TakeControl(ctx, connID))
	case "kick":
		ctl.handleKick(ctx, connID, c, data)
	case "close_room":
		ctl.reply(c, ctl.Gateway.CloseRoom(ctx, connID))
	case "ping":
		ctl.sendJSON(c, map[string]any{"type": "pong"})
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown command")
		ctl.sendError(c, "unknown command")
	}
}

// reply turns a gateway guard failure into a caller-only error event.
// Successful commands answer through broadcasts, not acks.
func (ctl *Controller) reply(c *WsConn, err error) {
	if err != nil {
		ctl.sendError(c, err.Error())
	}
}

func (ctl *Controller) sendError(c *WsConn, message string) {
	ctl.sendJSON(c, core.NewErrorEvent(message))
}

func (ctl *Controller) sendJSON(c *WsConn, v any) {
	if err := c.TrySend(v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON drop")
	}
}
