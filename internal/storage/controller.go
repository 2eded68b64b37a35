package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/meshrepublic/kudzu/internal/kudzuerr"
	"github.com/meshrepublic/kudzu/internal/trace"
)

// AgingConfig configures the periodic demotion loop.
type AgingConfig struct {
	Interval        time.Duration // default 10 minutes
	HotToWarmAfter  time.Duration // default 1 hour
	WarmToColdAfter time.Duration // default 7 days
}

// DefaultAgingConfig is the aging loop's default schedule.
func DefaultAgingConfig() AgingConfig {
	return AgingConfig{
		Interval:        10 * time.Minute,
		HotToWarmAfter:  time.Hour,
		WarmToColdAfter: 7 * 24 * time.Hour,
	}
}

// Controller is the storage controller: a process-wide singleton, a
// dedicated long-lived task coordinating the three tiers. No other task
// reaches into a tier's fields directly.
type Controller struct {
	hot  *HotTier
	warm *WarmTier
	cold *ColdTier

	aging  AgingConfig
	clock  func() time.Time
	logger *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewController wires the three tiers together.
func NewController(hot *HotTier, warm *WarmTier, cold *ColdTier, aging AgingConfig, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		hot: hot, warm: warm, cold: cold,
		aging:  aging,
		clock:  time.Now,
		logger: logger.Named("storage"),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Store always inserts into the hot tier.
func (c *Controller) Store(ctx context.Context, r Record) error {
	if err := c.hot.Put(ctx, r); err != nil {
		c.logger.Warn("hot tier store failed", zap.Error(err))
		return kudzuerr.Unreachable(string(TierHot), "%v", err)
	}
	return nil
}

// Probe is a cheap reachability check for the brain's wake-cycle pre-check:
// any successful query, even an empty one, counts as reachable.
func (c *Controller) Probe(ctx context.Context) error {
	_, err := c.Query(ctx, "", 1)
	return err
}

// Retrieve probes hot -> warm -> cold in order, promoting a hit found below
// hot. Each tier that errors is logged and treated as a miss so
// the call continues with the remaining tiers.
func (c *Controller) Retrieve(ctx context.Context, id string) (Tier, Record, error) {
	now := c.clock()

	if r, ok, err := c.hot.Get(ctx, id); err == nil && ok {
		return TierHot, r, nil
	}

	if c.warm != nil {
		if r, ok, err := c.warm.Get(ctx, id); err != nil {
			c.logger.Warn("warm tier unreachable during retrieve", zap.Error(err))
		} else if ok {
			promoted := r.onAccess(now)
			if perr := c.hot.Put(ctx, promoted); perr != nil {
				c.logger.Warn("promotion to hot failed", zap.Error(perr))
			}
			if derr := c.warm.Delete(ctx, id); derr != nil {
				c.logger.Warn("warm tier delete after promotion failed", zap.Error(derr))
			}
			return TierWarm, promoted, nil
		}
	}

	if c.cold != nil {
		if r, ok, err := c.cold.Get(ctx, id); err != nil {
			c.logger.Warn("cold tier unreachable during retrieve", zap.Error(err))
		} else if ok {
			promoted := r.onAccess(now)
			if perr := c.hot.Put(ctx, promoted); perr != nil {
				c.logger.Warn("promotion to hot failed", zap.Error(perr))
			}
			if derr := c.cold.Delete(ctx, id); derr != nil {
				c.logger.Warn("cold tier delete after promotion failed", zap.Error(derr))
			}
			return TierCold, promoted, nil
		}
	}

	return "", Record{}, kudzuerr.Of(kudzuerr.KindNotFound)
}

// Query scans hot, then warm up to the remaining limit, then cold up to the
// remaining limit, returning a merged, unique-by-id list.
func (c *Controller) Query(ctx context.Context, purpose string, limit int) ([]Record, error) {
	seen := map[string]struct{}{}
	var out []Record

	add := func(rs []Record) {
		for _, r := range rs {
			if _, dup := seen[r.TraceID]; dup {
				continue
			}
			seen[r.TraceID] = struct{}{}
			out = append(out, r)
		}
	}

	hotResults, _ := c.hot.Query(ctx, purpose, limit)
	add(hotResults)

	if limit > 0 && len(out) >= limit {
		return out[:limit], nil
	}
	remaining := 0
	if limit > 0 {
		remaining = limit - len(out)
	}

	if c.warm != nil {
		if warmResults, err := c.warm.Query(ctx, purpose, remaining); err != nil {
			c.logger.Warn("warm tier unreachable during query", zap.Error(err))
		} else {
			add(warmResults)
		}
	}

	if limit > 0 && len(out) >= limit {
		return out[:limit], nil
	}
	if limit > 0 {
		remaining = limit - len(out)
	}

	if c.cold != nil {
		if coldResults, err := c.cold.Query(ctx, purpose, remaining); err != nil {
			c.logger.Warn("cold tier unreachable during query", zap.Error(err))
		} else {
			add(coldResults)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RunAging executes a single aging pass: hot->warm for records idle past
// HotToWarmAfter (importance != critical), warm->cold for records idle past
// WarmToColdAfter. Deletion from the source tier only happens after a
// successful insert into the target.
func (c *Controller) RunAging(ctx context.Context) {
	now := c.clock()

	if c.warm != nil {
		hotCutoff := now.Add(-c.aging.HotToWarmAfter)
		for _, r := range c.hot.Snapshot() {
			if r.Importance == trace.ImportanceCritical {
				continue
			}
			if r.LastAccessed.After(hotCutoff) {
				continue
			}
			if err := c.warm.Put(ctx, r); err != nil {
				c.logger.Warn("hot->warm demotion failed, will retry next cycle", zap.Error(err))
				continue
			}
			if err := c.hot.Delete(ctx, r.TraceID); err != nil {
				c.logger.Warn("hot tier delete after demotion failed", zap.Error(err))
			}
		}
	}

	if c.warm != nil && c.cold != nil {
		warmCutoff := now.Add(-c.aging.WarmToColdAfter)
		candidates, err := c.warm.AgingCandidates(ctx, warmCutoff)
		if err != nil {
			c.logger.Warn("warm tier unreachable during aging scan", zap.Error(err))
		}
		for _, r := range candidates {
			if err := c.cold.Put(ctx, r); err != nil {
				c.logger.Warn("warm->cold demotion failed, will retry next cycle", zap.Error(err))
				continue
			}
			if err := c.warm.Delete(ctx, r.TraceID); err != nil {
				c.logger.Warn("warm tier delete after demotion failed", zap.Error(err))
			}
		}
	}
}

// Start launches the aging loop on its own timer, as an isolated long-lived task.
func (c *Controller) Start(ctx context.Context) {
	ticker := time.NewTicker(c.aging.Interval)
	go func() {
		defer close(c.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				c.RunAging(ctx)
			}
		}
	}()
}

// Stop halts the aging loop and blocks until it has exited.
func (c *Controller) Stop() {
	close(c.stop)
	<-c.done
}

// Hot exposes the hot tier for components (e.g. consolidation) that need
// direct batch scans rather than the public Query surface.
func (c *Controller) Hot() *HotTier { return c.hot }

// Warm exposes the warm tier, or nil if none is configured.
func (c *Controller) Warm() *WarmTier { return c.warm }

// Cold exposes the cold tier, or nil if none is configured.
func (c *Controller) Cold() *ColdTier { return c.cold }

// AllAcrossTiers merges All() from every configured tier, bounded per
// purpose, deduplicated by id — used by consolidation's deep cycle.
func (c *Controller) AllAcrossTiers(ctx context.Context, limitPerPurpose int) ([]Record, error) {
	seen := map[string]struct{}{}
	var out []Record
	add := func(rs []Record) {
		for _, r := range rs {
			if _, dup := seen[r.TraceID]; dup {
				continue
			}
			seen[r.TraceID] = struct{}{}
			out = append(out, r)
		}
	}
	if rs, err := c.hot.All(ctx, limitPerPurpose); err == nil {
		add(rs)
	}
	if c.warm != nil {
		if rs, err := c.warm.All(ctx, limitPerPurpose); err == nil {
			add(rs)
		} else {
			c.logger.Warn("warm tier unreachable during full scan", zap.Error(err))
		}
	}
	if c.cold != nil {
		if rs, err := c.cold.All(ctx, limitPerPurpose); err == nil {
			add(rs)
		} else {
			c.logger.Warn("cold tier unreachable during full scan", zap.Error(err))
		}
	}
	return out, nil
}
