package trace

import (
	"time"

	"github.com/meshrepublic/kudzu/internal/clock"
)

// ToTrace converts a Wire value back into a Trace. This is the inverse of
// Trace.ToWire and is the identity on all fields for any value produced by
// ToWire.
func (w Wire) ToTrace() Trace {
	return Trace{
		ID:                 w.ID,
		Origin:             w.Origin,
		Purpose:            w.Purpose,
		Path:               append([]string(nil), w.Path...),
		ReconstructionHint: Hint(w.ReconstructionHint),
		Timestamp:          clock.FromMap(w.Timestamp),
		ContentHash:        w.ContentHash,
		ContentAddressable: w.ContentAddressable,
		Salience: Salience{
			Novelty:             w.Salience.Novelty,
			AccessedAt:          time.Unix(0, w.Salience.AccessedAtUnixNano).UTC(),
			AccessCount:         w.Salience.AccessCount,
			EmotionalValence:    w.Salience.EmotionalValence,
			AssociativeStrength: w.Salience.AssociativeStrength,
			Importance:          Importance(w.Salience.Importance),
			CreatedAt:           time.Unix(0, w.Salience.CreatedAtUnixNano).UTC(),
			LastConsolidated:    time.Unix(0, w.Salience.LastConsolidatedNano).UTC(),
			ConsolidationCount:  w.Salience.ConsolidationCount,
		},
	}
}
