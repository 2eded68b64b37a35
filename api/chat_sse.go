package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// chatEventPayload is the wire shape of one brain.chat event: the same
// {thinking, chunk, tool_use, done} sequence over both SSE and websocket.
type chatEventPayload struct {
	Status    string   `json:"status,omitempty"`
	Tier      int      `json:"tier,omitempty"`
	Text      string   `json:"text,omitempty"`
	Tools     []string `json:"tools,omitempty"`
	ToolCalls []string `json:"tool_calls,omitempty"`
	Cost      float64  `json:"cost,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func (s *Server) handleChatSSE(c *gin.Context) {
	id := c.Param("id")
	b, ok := s.Brains.Get(id)
	if !ok {
		writeError(c, kudzuerr.Of(kudzuerr.KindCognitionDisabled))
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	events := b.Chat(c.Request.Context(), req.Message)
	for ev := range events {
		kind, payload := encodeChatEvent(ev)
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", kind, payload)
		c.Writer.Flush()
	}
}
