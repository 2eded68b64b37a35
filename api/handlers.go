package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/meshrepublic/kudzu/internal/hologram"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
	"github.com/meshrepublic/kudzu/internal/storage"
	"github.com/meshrepublic/kudzu/internal/trace"
)

type spawnHologramRequest struct {
	ID               string `json:"id" binding:"required"`
	Purpose          string `json:"purpose" binding:"required"`
	Constitution     string `json:"constitution" binding:"required"`
	CognitionEnabled bool   `json:"cognition_enabled"`
}

func (s *Server) handleSpawnHologram(c *gin.Context) {
	var req spawnHologramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	constitution := hologram.Constitution(req.Constitution)
	if err := hologram.ValidateForProduction(constitution, s.Production); err != nil {
		writeError(c, err)
		return
	}

	var cognition hologram.CognitionClient
	if req.CognitionEnabled {
		cognition = s.Cognition
	}

	storer := storage.NewHologramStorer(s.Storage)
	h := hologram.New(req.ID, req.Purpose, constitution, storer, cognition)
	if err := s.Registry.Register(h); err != nil {
		writeError(c, kudzuerr.Wrap(kudzuerr.KindSpawnFailed, err, "register hologram %s", req.ID))
		return
	}
	if s.OnSpawn != nil {
		s.OnSpawn(h)
	}

	c.JSON(http.StatusOK, h.Snapshot())
}

func (s *Server) lookupHologram(c *gin.Context) (*hologram.State, bool) {
	id := c.Param("id")
	h, ok := s.Registry.Lookup(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "hologram not found"})
		return nil, false
	}
	return h, true
}

type recordTraceRequest struct {
	Purpose    string     `json:"purpose" binding:"required"`
	Hint       trace.Hint `json:"hint"`
	Importance string     `json:"importance"`
}

func (s *Server) handleRecordTrace(c *gin.Context) {
	h, ok := s.lookupHologram(c)
	if !ok {
		return
	}
	var req recordTraceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	importance := trace.Importance(req.Importance)
	if importance == "" {
		importance = trace.ImportanceNormal
	}

	t, err := h.RecordTrace(c.Request.Context(), trace.Purpose(req.Purpose), req.Hint, importance)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleRecall(c *gin.Context) {
	h, ok := s.lookupHologram(c)
	if !ok {
		return
	}
	purpose := trace.Purpose(c.Query("purpose"))
	c.JSON(http.StatusOK, h.Recall(purpose))
}

type queryPeerRequest struct {
	PeerID  string `json:"peer_id" binding:"required"`
	Purpose string `json:"purpose"`
	MaxHops int    `json:"max_hops"`
}

func (s *Server) handleQueryPeer(c *gin.Context) {
	h, ok := s.lookupHologram(c)
	if !ok {
		return
	}
	var req queryPeerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxHops <= 0 {
		req.MaxHops = 1
	}
	if s.Dialer == nil {
		writeError(c, kudzuerr.Of(kudzuerr.KindUnreachable))
		return
	}

	results, err := h.QueryPeer(c.Request.Context(), s.Dialer, req.PeerID, trace.Purpose(req.Purpose), req.MaxHops)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

type introducePeerRequest struct {
	PeerID string `json:"peer_id" binding:"required"`
}

func (s *Server) handleIntroducePeer(c *gin.Context) {
	h, ok := s.lookupHologram(c)
	if !ok {
		return
	}
	var req introducePeerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.IntroducePeer(req.PeerID)
	c.Status(http.StatusNoContent)
}

type stimulateRequest struct {
	Stimulus string `json:"stimulus" binding:"required"`
}

func (s *Server) handleStimulate(c *gin.Context) {
	h, ok := s.lookupHologram(c)
	if !ok {
		return
	}
	var req stimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.Stimulate(c.Request.Context(), req.Stimulus)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type setConstitutionRequest struct {
	Framework string `json:"framework" binding:"required"`
}

func (s *Server) handleSetConstitution(c *gin.Context) {
	h, ok := s.lookupHologram(c)
	if !ok {
		return
	}
	var req setConstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.SetConstitution(c.Request.Context(), hologram.Constitution(req.Framework), s.Production)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type storeRequest struct {
	Trace      trace.Trace `json:"trace" binding:"required"`
	HologramID string      `json:"hologram_id" binding:"required"`
	Importance string      `json:"importance"`
}

func (s *Server) handleStore(c *gin.Context) {
	var req storeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	importance := trace.Importance(req.Importance)
	if importance == "" {
		importance = req.Trace.Salience.Importance
	}
	record := storage.FromTrace(req.Trace, req.HologramID, req.Trace.Salience.CreatedAt)
	record.Importance = importance
	if err := s.Storage.Store(c.Request.Context(), record); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRetrieve(c *gin.Context) {
	id := c.Param("trace_id")
	tier, record, err := s.Storage.Retrieve(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tier": tier, "record": record})
}

func (s *Server) handleQuery(c *gin.Context) {
	purpose := c.Query("purpose")
	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	records, err := s.Storage.Query(c.Request.Context(), purpose, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleConsolidateNow(c *gin.Context) {
	s.Consolidation.LightCycle(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeepConsolidateNow(c *gin.Context) {
	s.Consolidation.DeepCycle(c.Request.Context())
	c.Status(http.StatusNoContent)
}

type semanticQueryRequest struct {
	Text      string  `json:"text" binding:"required"`
	Threshold float64 `json:"threshold"`
}

func (s *Server) handleSemanticQuery(c *gin.Context) {
	var req semanticQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	matches, err := s.Consolidation.SemanticQuery(req.Text, req.Threshold)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}
