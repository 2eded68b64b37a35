// Package api exposes every public operation over HTTP: a gin router of
// plain JSON endpoints, plus an SSE and a websocket endpoint that both
// stream brain.chat's {thinking, chunk, tool_use, done} event sequence.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/meshrepublic/kudzu/internal/brain"
	"github.com/meshrepublic/kudzu/internal/config"
	"github.com/meshrepublic/kudzu/internal/consolidation"
	"github.com/meshrepublic/kudzu/internal/hologram"
	"github.com/meshrepublic/kudzu/internal/mesh"
	"github.com/meshrepublic/kudzu/internal/storage"
)

// Server bundles every collaborator the HTTP surface dispatches into. None
// of these are owned by Server; it is a thin transport wrapping the
// process-wide singletons.
type Server struct {
	Registry      *hologram.Registry
	Storage       *storage.Controller
	Consolidation *consolidation.Daemon
	Dialer        hologram.PeerDialer
	Membership    *mesh.Membership
	Broadcaster   *mesh.Broadcaster
	Brains        *BrainTable
	Cognition     hologram.CognitionClient
	Production    bool

	// OnSpawn runs after a hologram is registered via the spawn endpoint,
	// so the process that owns the actor system can give it the same
	// background actors a restart would reconstruct for it. Nil is a
	// valid no-op, for callers that don't run an actor system at all.
	OnSpawn func(h *hologram.State)

	authEnabled bool
	authKeys    map[string]struct{}

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// BrainTable is the set of live per-hologram cognition cores, one per
// hologram with cognition_enabled, looked up by hologram id for brain.chat.
type BrainTable struct {
	byID map[string]*brain.Brain
}

func NewBrainTable() *BrainTable {
	return &BrainTable{byID: map[string]*brain.Brain{}}
}

func (t *BrainTable) Put(hologramID string, b *brain.Brain) {
	t.byID[hologramID] = b
}

func (t *BrainTable) Get(hologramID string) (*brain.Brain, bool) {
	b, ok := t.byID[hologramID]
	return b, ok
}

// NewServer wires a Server from the process-wide singletons and a loaded
// config's api_auth settings.
func NewServer(cfg *config.Config, registry *hologram.Registry, storageCtrl *storage.Controller, consolidationDaemon *consolidation.Daemon, dialer hologram.PeerDialer, membership *mesh.Membership, broadcaster *mesh.Broadcaster, brains *BrainTable, cognition hologram.CognitionClient, production bool, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	keys := map[string]struct{}{}
	for _, k := range cfg.APIAuth.Keys {
		keys[k] = struct{}{}
	}
	return &Server{
		Registry:      registry,
		Storage:       storageCtrl,
		Consolidation: consolidationDaemon,
		Dialer:        dialer,
		Membership:    membership,
		Broadcaster:   broadcaster,
		Brains:        brains,
		Cognition:     cognition,
		Production:    production,
		authEnabled:   cfg.APIAuth.Enabled,
		authKeys:      keys,
		upgrader:      websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:        logger.Named("api"),
	}
}

// Router builds the gin engine exposing the full operation surface.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", s.handleHealth)

	authorized := r.Group("/")
	authorized.Use(s.authMiddleware())
	{
		authorized.POST("/holograms", s.handleSpawnHologram)
		authorized.POST("/holograms/:id/traces", s.handleRecordTrace)
		authorized.GET("/holograms/:id/traces", s.handleRecall)
		authorized.POST("/holograms/:id/query_peer", s.handleQueryPeer)
		authorized.POST("/holograms/:id/introduce_peer", s.handleIntroducePeer)
		authorized.POST("/holograms/:id/stimulate", s.handleStimulate)
		authorized.POST("/holograms/:id/constitution", s.handleSetConstitution)

		authorized.POST("/store", s.handleStore)
		authorized.GET("/retrieve/:trace_id", s.handleRetrieve)
		authorized.GET("/query", s.handleQuery)
		authorized.POST("/consolidate_now", s.handleConsolidateNow)
		authorized.POST("/deep_consolidate_now", s.handleDeepConsolidateNow)
		authorized.POST("/semantic_query", s.handleSemanticQuery)

		authorized.POST("/mesh/join", s.handleMeshJoin)
		authorized.GET("/mesh/peers", s.handleMeshPeers)
		authorized.GET("/mesh/nodes", s.handleMeshNodes)
		authorized.POST("/mesh/leave", s.handleMeshLeave)
		authorized.POST("/broadcast_trace", s.handleBroadcastTrace)

		authorized.POST("/holograms/:id/chat", s.handleChatSSE)
		authorized.GET("/holograms/:id/chat/ws", s.handleChatWebsocket)
	}

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"time":      time.Now().Format(time.RFC3339),
		"holograms": s.Registry.Count(),
	})
}
