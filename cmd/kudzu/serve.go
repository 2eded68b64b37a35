package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/tochemey/goakt/v2/goakt"
	"go.uber.org/zap"

	"github.com/meshrepublic/kudzu/api"
	"github.com/meshrepublic/kudzu/internal/brain"
	"github.com/meshrepublic/kudzu/internal/config"
	"github.com/meshrepublic/kudzu/internal/consolidation"
	"github.com/meshrepublic/kudzu/internal/encoder"
	"github.com/meshrepublic/kudzu/internal/hologram"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
	"github.com/meshrepublic/kudzu/internal/mesh"
	"github.com/meshrepublic/kudzu/internal/silo"
	"github.com/meshrepublic/kudzu/internal/storage"
	"github.com/meshrepublic/kudzu/internal/tools"
)

func newServeCmd() *cobra.Command {
	var listenAddr string
	var production bool
	var redisAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run this node: spawn holograms, serve the API, join the mesh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), listenAddr, production, redisAddr)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "address the HTTP API listens on")
	cmd.Flags().BoolVar(&production, "production", false, "reject the open constitution on hologram spawn/reconfiguration")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "redis address backing the cold tier (empty runs a local-only stub)")

	return cmd
}

func newLogger() *zap.Logger {
	if flagDev {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}

func runServe(ctx context.Context, listenAddr string, production bool, redisAddr string) error {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(flagDataDir, 0o755); err != nil {
		return err
	}

	registry := hologram.NewRegistry(filepath.Join(flagDataDir, "registry"))

	warm, err := storage.OpenWarmTier(filepath.Join(flagDataDir, "warm.db"))
	if err != nil {
		return err
	}
	var coldClient *redis.Client
	if redisAddr != "" {
		coldClient = redis.NewClient(&redis.Options{Addr: redisAddr})
	}
	cold := storage.NewColdTier(coldClient, "kudzu")
	hot := storage.NewHotTier()
	storageCtrl := storage.NewController(hot, warm, cold, cfg.AgingConfig(), logger)
	storer := storage.NewHologramStorer(storageCtrl)

	var cognition hologram.CognitionClient
	toolsClient := tools.NewClient()
	if toolsClient.Available() {
		cognition = &tools.CognitionAdapter{Client: toolsClient, Model: cfg.Model.Name}
	}

	encoderPath := filepath.Join(flagDataDir, "encoder.gob")
	encState, ok := encoder.LoadFromFile(encoderPath, cfg.HRR.Dimension)
	if !ok {
		encState = encoder.New(cfg.HRR.Dimension)
	}
	encState.BlendStrength = cfg.Encoder.BlendStrength

	consolidationCfg := cfg.ConsolidationConfig()
	consolidationCfg.EncoderStatePath = encoderPath
	consolidationDaemon := consolidation.New(encState, storageCtrl, consolidationCfg, logger)

	var membership *mesh.Membership
	var broadcaster *mesh.Broadcaster
	var dialer hologram.PeerDialer = hologram.LocalDialer{Registry: registry}
	var rpcServer *mesh.Server
	if cfg.Mesh.NodeName != "" {
		membership, err = mesh.New(cfg.Mesh.NodeName, cfg.Mesh.BindAddr, cfg.Mesh.BindPort, cfg.Mesh.RPCAddr, logger)
		if err != nil {
			return err
		}
		if len(cfg.Mesh.Seeds) > 0 {
			if _, err := membership.Join(cfg.Mesh.Seeds); err != nil {
				logger.Warn("initial mesh join failed, continuing standalone", zap.Error(err))
			}
		}
		dialer = mesh.NewDialer(membership, logger)
		broadcaster = mesh.NewBroadcaster(cfg.Mesh.NodeName, membership, registry, logger)
		rpcServer = mesh.NewServer(registry, logger)
	}

	actorSystem, err := goakt.NewActorSystem("kudzu")
	if err != nil {
		return err
	}
	if err := actorSystem.Start(ctx); err != nil {
		return err
	}
	defer actorSystem.Stop(context.Background())

	brains := api.NewBrainTable()
	nodeDeps := nodeBrainDeps{
		registry:      registry,
		storer:        storer,
		consolidation: consolidationDaemon,
		storageCtrl:   storageCtrl,
		toolsClient:   toolsClient,
		cfg:           cfg,
		logger:        logger,
	}
	if err := restoreHolograms(ctx, actorSystem, registry, storer, cognition, nodeDeps, brains, logger); err != nil {
		return err
	}

	storageCtrl.Start(ctx)
	defer storageCtrl.Stop()
	consolidationDaemon.Start(ctx)
	defer consolidationDaemon.Stop()

	server := api.NewServer(cfg, registry, storageCtrl, consolidationDaemon, dialer, membership, broadcaster, brains, cognition, production, logger)
	server.OnSpawn = func(h *hologram.State) {
		spawnHologramActor(ctx, actorSystem, h, logger)
		if h.CognitionEnabled {
			spawnBrain(ctx, actorSystem, h, nodeDeps, brains)
		}
	}
	httpServer := &http.Server{Addr: listenAddr, Handler: server.Router()}

	go func() {
		logger.Info("api listening", zap.String("addr", listenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", zap.Error(err))
		}
	}()

	if rpcServer != nil {
		rpcHTTP := &http.Server{Addr: cfg.Mesh.RPCAddr, Handler: rpcServer.Handler()}
		go func() {
			logger.Info("mesh rpc listening", zap.String("addr", cfg.Mesh.RPCAddr))
			if err := rpcHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("mesh rpc server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			rpcHTTP.Shutdown(shutdownCtx)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	if membership != nil {
		membership.Leave(5 * time.Second)
	}
	if err := encState.SaveToFile(encoderPath); err != nil {
		logger.Warn("encoder state save failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// nodeBrainDeps bundles the node-wide collaborators a freshly spawned brain
// needs, so restoreHolograms and the spawn-hologram handler share one
// construction path.
type nodeBrainDeps struct {
	registry      *hologram.Registry
	storer        hologram.Storer
	consolidation *consolidation.Daemon
	storageCtrl   *storage.Controller
	toolsClient   *tools.Client
	cfg           *config.Config
	logger        *zap.Logger
}

// restoreHolograms reconstructs every persisted registry record, registers
// it, and spawns its background actor; cognition_enabled records also get a
// brain wired up and placed in the chat-serving brain table.
func restoreHolograms(ctx context.Context, system goakt.ActorSystem, registry *hologram.Registry, storer hologram.Storer, cognition hologram.CognitionClient, deps nodeBrainDeps, brains *api.BrainTable, logger *zap.Logger) error {
	records, err := registry.LoadRecords()
	if err != nil {
		return err
	}
	for _, rec := range records {
		h := hologram.Reconstruct(rec, storer, cognition)
		if err := registry.Register(h); err != nil {
			logger.Warn("failed to re-register restored hologram", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		spawnHologramActor(ctx, system, h, logger)
		if h.CognitionEnabled {
			spawnBrain(ctx, system, h, deps, brains)
		}
	}
	return nil
}

func spawnHologramActor(ctx context.Context, system goakt.ActorSystem, h *hologram.State, logger *zap.Logger) {
	actor := hologram.NewActor(h, nil, nil, false)
	if _, err := system.Spawn(ctx, "hologram-"+h.ID, actor); err != nil {
		logger.Warn("failed to spawn hologram actor", zap.String("id", h.ID), zap.Error(err))
	}
}

// spawnBrain constructs a sovereign cognition core for h and spawns its
// wake-cycle actor. liveSilos is recomputed on every call rather than
// snapshotted, since new expertise domains can be distilled at runtime.
func spawnBrain(ctx context.Context, system goakt.ActorSystem, h *hologram.State, deps nodeBrainDeps, brains *api.BrainTable) {
	actuator := &nodeActuator{consolidation: deps.consolidation, logger: deps.logger}

	brainDeps := brain.Deps{
		Registry:      deps.registry,
		Storer:        deps.storer,
		Consolidation: deps.consolidation,
		Holograms:     deps.registry,
		Storage:       deps.storageCtrl,
		Unresolved:    deps.consolidation,
		SilosFn:       func() []*silo.Silo { return liveSilos(deps.registry, deps.storer) },
		Actuator:      actuator,
		Logger:        deps.logger,
	}
	if deps.toolsClient.Available() {
		brainDeps.ExternalModel = deps.toolsClient
		brainDeps.ToolExecutor = noopToolExecutor
	}

	b := brain.New(h.ID, deps.cfg.BrainConfig(), brainDeps)
	brains.Put(h.ID, b)

	actor := brain.NewActor(b)
	if _, err := system.Spawn(ctx, "brain-"+h.ID, actor); err != nil {
		deps.logger.Warn("failed to spawn brain actor", zap.String("id", h.ID), zap.Error(err))
	}
}

const expertisePrefix = "expertise:"

// liveSilos re-scans the registry for every distinct expertise domain
// currently registered and wraps each as a silo.Silo, picking up domains
// distilled since the last wake cycle.
func liveSilos(registry *hologram.Registry, storer hologram.Storer) []*silo.Silo {
	seen := map[string]struct{}{}
	var out []*silo.Silo
	for _, id := range registry.AllIDs() {
		h, ok := registry.Lookup(id)
		if !ok || !strings.HasPrefix(h.Purpose, expertisePrefix) {
			continue
		}
		domain := strings.TrimPrefix(h.Purpose, expertisePrefix)
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}
		s, err := silo.FindOrCreate(registry, domain, storer)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// noopToolExecutor backs Tier 3's tool-use loop until a concrete action
// vocabulary is wired to real effectors; every call declines.
func noopToolExecutor(_ context.Context, name string, _ map[string]interface{}) (interface{}, error) {
	return nil, kudzuerr.New(kudzuerr.KindDenied, "tool %q has no wired executor", name)
}
