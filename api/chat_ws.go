package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meshrepublic/kudzu/internal/brain"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

type wsChatMessage struct {
	Event string           `json:"event"`
	Data  chatEventPayload `json:"data"`
}

func (s *Server) handleChatWebsocket(c *gin.Context) {
	id := c.Param("id")
	b, ok := s.Brains.Get(id)
	if !ok {
		writeError(c, kudzuerr.Of(kudzuerr.KindCognitionDisabled))
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("chat websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	var req chatRequest
	if err := ws.ReadJSON(&req); err != nil {
		return
	}

	events := b.Chat(c.Request.Context(), req.Message)
	for ev := range events {
		if err := ws.WriteJSON(toWSMessage(ev)); err != nil {
			return
		}
	}
}

func toWSMessage(ev brain.ChatEvent) wsChatMessage {
	return wsChatMessage{Event: string(ev.Kind), Data: chatPayload(ev)}
}
