package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

// PeerFetcher fans a cold-tier read out to other mesh nodes with a short
// timeout when the local replica and Redis both miss.
// Installed with SetPeerFetcher; nil, the default, disables fan-out.
type PeerFetcher func(ctx context.Context, id string) (Record, bool)

// ColdTier is the long-term, mesh-replicated tier. It keeps a
// local in-memory replica (read-through cache and the single-node stub
// mode) backed by a shared Redis keyspace so multiple nodes converge on
// the same cold-tier contents; reconciliation across writers is
// last-write-wins keyed by LastAccessed.
type ColdTier struct {
	mu    sync.RWMutex
	local map[string]Record

	client *redis.Client
	prefix string
	peers  PeerFetcher

	writeTimeout time.Duration
	readTimeout  time.Duration
}

// NewColdTier constructs a cold tier. client may be nil, in which case the
// tier behaves as a local-only stub.
func NewColdTier(client *redis.Client, keyPrefix string) *ColdTier {
	return &ColdTier{
		local:        make(map[string]Record),
		client:       client,
		prefix:       keyPrefix,
		writeTimeout: 2 * time.Second,
		readTimeout:  1 * time.Second,
	}
}

// SetPeerFetcher installs the mesh fan-out callback.
func (c *ColdTier) SetPeerFetcher(f PeerFetcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers = f
}

func (c *ColdTier) Name() Tier { return TierCold }

func (c *ColdTier) key(id string) string { return c.prefix + ":" + id }

// Put writes into the local replica synchronously, then fires the Redis
// write asynchronously: a fire-and-forget replication step.
func (c *ColdTier) Put(ctx context.Context, r Record) error {
	c.mu.Lock()
	c.local[r.TraceID] = r
	c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
		defer cancel()
		data, err := json.Marshal(r)
		if err != nil {
			return
		}
		_ = c.client.Set(writeCtx, c.key(r.TraceID), data, 0).Err()
	}()
	return nil
}

func (c *ColdTier) Get(ctx context.Context, id string) (Record, bool, error) {
	c.mu.RLock()
	if r, ok := c.local[id]; ok {
		c.mu.RUnlock()
		return r, true, nil
	}
	c.mu.RUnlock()

	if c.client != nil {
		readCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
		data, err := c.client.Get(readCtx, c.key(id)).Bytes()
		if err == nil {
			var r Record
			if jerr := json.Unmarshal(data, &r); jerr == nil {
				c.reconcileLocal(r)
				return r, true, nil
			}
		} else if err != redis.Nil {
			return Record{}, false, kudzuerr.Unreachable(string(TierCold), "%v", err)
		}
	}

	c.mu.RLock()
	fetcher := c.peers
	c.mu.RUnlock()
	if fetcher != nil {
		if r, ok := fetcher(ctx, id); ok {
			c.reconcileLocal(r)
			return r, true, nil
		}
	}
	return Record{}, false, nil
}

// reconcileLocal applies last-write-wins keyed by LastAccessed.
func (c *ColdTier) reconcileLocal(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.local[r.TraceID]
	if !ok || r.LastAccessed.After(existing.LastAccessed) {
		c.local[r.TraceID] = r
	}
}

func (c *ColdTier) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	delete(c.local, id)
	c.mu.Unlock()
	if c.client != nil {
		delCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
		if err := c.client.Del(delCtx, c.key(id)).Err(); err != nil {
			return kudzuerr.Unreachable(string(TierCold), "%v", err)
		}
	}
	return nil
}

func (c *ColdTier) Query(_ context.Context, purpose string, limit int) ([]Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Record
	for _, r := range c.local {
		if purpose != "" && string(r.Purpose) != purpose {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (c *ColdTier) All(_ context.Context, limitPerPurpose int) ([]Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := map[string]int{}
	var out []Record
	for _, r := range c.local {
		if limitPerPurpose > 0 && counts[string(r.Purpose)] >= limitPerPurpose {
			continue
		}
		counts[string(r.Purpose)]++
		out = append(out, r)
	}
	return out, nil
}
