// Package consolidation implements the consolidation daemon: a
// light cycle that folds freshly-written hot traces into the encoder's
// co-occurrence matrix and per-purpose consolidated vectors, and a deep
// cycle that rebuilds those vectors from the full corpus and performs
// encoder-state maintenance.
package consolidation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meshrepublic/kudzu/internal/encoder"
	"github.com/meshrepublic/kudzu/internal/hrr"
	"github.com/meshrepublic/kudzu/internal/storage"
)

// Config holds the daemon's cycle cadence and batch bounds.
type Config struct {
	LightInterval       time.Duration
	DeepInterval        time.Duration
	LightBatchSize      int
	DeepPerPurposeLimit int
	EncoderStatePath    string
}

// DefaultConfig is the daemon's default cycle schedule.
func DefaultConfig() Config {
	return Config{
		LightInterval:       10 * time.Minute,
		DeepInterval:        6 * time.Hour,
		LightBatchSize:      100,
		DeepPerPurposeLimit: 1000,
	}
}

// Daemon is the consolidation daemon, an isolated long-lived task running
// its two cycles on independent timers.
type Daemon struct {
	mu              sync.RWMutex
	consolidated    map[string]hrr.Vector
	lastLightCycle  time.Time

	encoder *encoder.State
	storage *storage.Controller
	config  Config
	logger  *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// New wires the daemon to its encoder state and storage controller.
func New(enc *encoder.State, ctrl *storage.Controller, cfg Config, logger *zap.Logger) *Daemon {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Daemon{
		consolidated: map[string]hrr.Vector{},
		encoder:      enc,
		storage:      ctrl,
		config:       cfg,
		logger:       logger.Named("consolidation"),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the light and deep cycles on their own tickers.
func (d *Daemon) Start(ctx context.Context) {
	go func() {
		defer close(d.done)
		light := time.NewTicker(d.config.LightInterval)
		deep := time.NewTicker(d.config.DeepInterval)
		defer light.Stop()
		defer deep.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.stop:
				return
			case <-light.C:
				d.LightCycle(ctx)
			case <-deep.C:
				d.DeepCycle(ctx)
			}
		}
	}()
}

// Stop halts both cycles and blocks until the goroutine exits.
func (d *Daemon) Stop() {
	close(d.stop)
	<-d.done
}

// LastLightCycleAt reports when the light cycle last completed, the zero
// time if it has never run.
func (d *Daemon) LastLightCycleAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastLightCycle
}

// LightCycle pulls a batch of hot traces, folds their tokens into the
// co-occurrence matrix, and bundles each purpose's batch vector into its
// running consolidated vector. Per-trace encoding failures are
// logged and skipped; the cycle continues.
func (d *Daemon) LightCycle(ctx context.Context) {
	defer func() {
		d.mu.Lock()
		d.lastLightCycle = time.Now()
		d.mu.Unlock()
	}()

	records := d.storage.Hot().Snapshot()
	if len(records) > d.config.LightBatchSize {
		records = records[:d.config.LightBatchSize]
	}

	byPurpose := map[string][]hrr.Vector{}
	for _, r := range records {
		tokens := encoder.Tokenize(r.Hint)
		if len(tokens) == 0 {
			continue
		}
		d.encoder.UpdateCoOccurrence(tokens)
		vec, err := d.encoder.EncodeTrace(tokens, nil)
		if err != nil {
			d.logger.Warn("light cycle: failed to encode trace", zap.String("trace_id", r.TraceID), zap.Error(err))
			continue
		}
		purpose := string(r.Purpose)
		byPurpose[purpose] = append(byPurpose[purpose], vec)
		d.encoder.IncrementTracesProcessed()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for purpose, vecs := range byPurpose {
		batchVec, err := hrr.Bundle(vecs)
		if err != nil {
			continue
		}
		if existing, ok := d.consolidated[purpose]; ok {
			merged, err := hrr.Bundle([]hrr.Vector{existing, batchVec})
			if err != nil {
				continue
			}
			d.consolidated[purpose] = merged
		} else {
			d.consolidated[purpose] = batchVec
		}
	}
}

// DeepCycle rebuilds every purpose's consolidated vector from the full
// corpus (bounded per purpose), runs encoder maintenance, persists encoder
// state, and logs the count of archival candidates. Archival
// itself is left to the storage aging loop — this cycle only selects.
func (d *Daemon) DeepCycle(ctx context.Context) {
	records, err := d.storage.AllAcrossTiers(ctx, d.config.DeepPerPurposeLimit)
	if err != nil {
		d.logger.Warn("deep cycle: failed to enumerate traces", zap.Error(err))
		return
	}

	byPurpose := map[string][]hrr.Vector{}
	for _, r := range records {
		tokens := encoder.Tokenize(r.Hint)
		if len(tokens) == 0 {
			continue
		}
		vec, err := d.encoder.EncodeTrace(tokens, nil)
		if err != nil {
			d.logger.Warn("deep cycle: failed to encode trace", zap.String("trace_id", r.TraceID), zap.Error(err))
			continue
		}
		purpose := string(r.Purpose)
		byPurpose[purpose] = append(byPurpose[purpose], vec)
	}

	rebuilt := map[string]hrr.Vector{}
	for purpose, vecs := range byPurpose {
		vec, err := hrr.Bundle(vecs)
		if err != nil {
			continue
		}
		rebuilt[purpose] = vec
	}

	d.mu.Lock()
	d.consolidated = rebuilt
	d.mu.Unlock()

	d.encoder.DeepMaintain()

	if d.config.EncoderStatePath != "" {
		if err := d.encoder.SaveToFile(d.config.EncoderStatePath); err != nil {
			d.logger.Warn("deep cycle: failed to persist encoder state", zap.Error(err))
		}
	}

	candidates := archivalCandidates(records, time.Now())
	d.logger.Info("deep cycle complete", zap.Int("archival_candidates", len(candidates)))
}
