package brain

import (
	"context"
	"fmt"
	"time"
)

// staleConsolidationAfter is the pre-check freshness window.
const staleConsolidationAfter = 20 * time.Minute

// ConsolidationFreshness reports when the consolidation daemon's light
// cycle last completed, satisfied by *consolidation.Daemon.
type ConsolidationFreshness interface {
	LastLightCycleAt() time.Time
}

// HologramCounter reports the number of live holograms, satisfied by
// *hologram.Registry.
type HologramCounter interface {
	Count() int
}

// StorageProbe is a cheap reachability check, satisfied by
// *storage.Controller.
type StorageProbe interface {
	Probe(ctx context.Context) error
}

// PreCheck runs three cheap local probes and returns every non-nominal
// finding. An empty result means all three are nominal.
func PreCheck(ctx context.Context, consolidation ConsolidationFreshness, holograms HologramCounter, storage StorageProbe, now time.Time) []Anomaly {
	var anomalies []Anomaly

	if last := consolidation.LastLightCycleAt(); last.IsZero() || now.Sub(last) > staleConsolidationAfter {
		anomalies = append(anomalies, Anomaly{
			Kind:   AnomalyStaleConsolidation,
			Detail: fmt.Sprintf("last light cycle at %s", last.Format(time.RFC3339)),
		})
	}

	if n := holograms.Count(); n < 1 {
		anomalies = append(anomalies, Anomaly{Kind: AnomalyNoHolograms, Detail: "no holograms registered"})
	}

	if err := storage.Probe(ctx); err != nil {
		anomalies = append(anomalies, Anomaly{Kind: AnomalyStorageUnreachable, Detail: err.Error()})
	}

	return anomalies
}
