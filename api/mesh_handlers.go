package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meshrepublic/kudzu/internal/trace"
)

type meshJoinRequest struct {
	Seeds []string `json:"seeds" binding:"required"`
}

func (s *Server) handleMeshJoin(c *gin.Context) {
	var req meshJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	joined, err := s.Membership.Join(req.Seeds)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"joined": joined})
}

func (s *Server) handleMeshPeers(c *gin.Context) {
	c.JSON(http.StatusOK, s.Membership.Peers())
}

func (s *Server) handleMeshNodes(c *gin.Context) {
	c.JSON(http.StatusOK, s.Membership.Members())
}

func (s *Server) handleMeshLeave(c *gin.Context) {
	if err := s.Membership.Leave(5 * time.Second); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleBroadcastTrace(c *gin.Context) {
	var t trace.Trace
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Broadcaster.BroadcastTrace(c.Request.Context(), t); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
