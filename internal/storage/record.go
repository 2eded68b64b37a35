// Package storage implements the tiered hot/warm/cold storage engine:
// sub-millisecond volatile hot tier, crash-safe local warm tier,
// mesh-replicated cold tier, with an aging loop that demotes records by
// recency and promotes them back to hot on read.
package storage

import (
	"time"

	"github.com/meshrepublic/kudzu/internal/clock"
	"github.com/meshrepublic/kudzu/internal/trace"
)

// Tier names a storage tier.
type Tier string

const (
	TierHot  Tier = "hot"
	TierWarm Tier = "warm"
	TierCold Tier = "cold"
)

// Record is what each tier actually stores: the trace plus bookkeeping the
// aging loop and query path need.
type Record struct {
	TraceID      string
	HologramID   string
	Purpose      trace.Purpose
	Hint         trace.Hint
	Origin       string
	Path         []string
	Clock        clock.Clock
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int64
	Importance   trace.Importance
}

// FromTrace builds a Record from a trace owned by hologramID.
func FromTrace(t trace.Trace, hologramID string, now time.Time) Record {
	return Record{
		TraceID:      t.ID,
		HologramID:   hologramID,
		Purpose:      t.Purpose,
		Hint:         t.ReconstructionHint,
		Origin:       t.Origin,
		Path:         append([]string(nil), t.Path...),
		Clock:        t.Timestamp,
		CreatedAt:    t.Salience.CreatedAt,
		LastAccessed: now,
		AccessCount:  t.Salience.AccessCount,
		Importance:   t.Salience.Importance,
	}
}

// onAccess returns a copy of r updated for a read.
func (r Record) onAccess(now time.Time) Record {
	r.LastAccessed = now
	r.AccessCount++
	return r
}
