package trace

import "encoding/json"

// Wire is the tagged-record wire format for peer gossip and cold-tier
// replication: {id, origin, purpose, path, reconstruction_hint,
// timestamp, salience, content_hash}. Hints round-trip arbitrary
// JSON-shaped values because Hint is itself a map[string]interface{}.
type Wire struct {
	ID                 string                 `json:"id"`
	Origin             string                 `json:"origin"`
	Purpose            Purpose                `json:"purpose"`
	Path               []string               `json:"path"`
	ReconstructionHint map[string]interface{} `json:"reconstruction_hint"`
	Timestamp          map[string]uint64      `json:"timestamp"`
	Salience           wireSalience           `json:"salience"`
	ContentHash        string                 `json:"content_hash"`
	ContentAddressable bool                   `json:"content_addressable"`
}

type wireSalience struct {
	Novelty             float64 `json:"novelty"`
	AccessedAtUnixNano  int64   `json:"accessed_at"`
	AccessCount         int64   `json:"access_count"`
	EmotionalValence    float64 `json:"emotional_valence"`
	AssociativeStrength float64 `json:"associative_strength"`
	Importance          string  `json:"importance"`
	CreatedAtUnixNano   int64   `json:"created_at"`
	LastConsolidatedNano int64  `json:"last_consolidated"`
	ConsolidationCount  int64   `json:"consolidation_count"`
}

// ToWire converts a Trace to its wire representation.
func (t Trace) ToWire() Wire {
	return Wire{
		ID:                 t.ID,
		Origin:             t.Origin,
		Purpose:            t.Purpose,
		Path:               append([]string(nil), t.Path...),
		ReconstructionHint: map[string]interface{}(t.ReconstructionHint),
		Timestamp:          t.Timestamp.ToMap(),
		ContentHash:        t.ContentHash,
		ContentAddressable: t.ContentAddressable,
		Salience: wireSalience{
			Novelty:              t.Salience.Novelty,
			AccessedAtUnixNano:   t.Salience.AccessedAt.UnixNano(),
			AccessCount:          t.Salience.AccessCount,
			EmotionalValence:     t.Salience.EmotionalValence,
			AssociativeStrength:  t.Salience.AssociativeStrength,
			Importance:           string(t.Salience.Importance),
			CreatedAtUnixNano:    t.Salience.CreatedAt.UnixNano(),
			LastConsolidatedNano: t.Salience.LastConsolidated.UnixNano(),
			ConsolidationCount:   t.Salience.ConsolidationCount,
		},
	}
}

// The inverse conversion, Wire.ToTrace, is declared in wire_from.go.

// MarshalJSON/UnmarshalJSON make Trace itself round-trippable directly.
func (t Trace) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToWire())
}

func (t *Trace) UnmarshalJSON(data []byte) error {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = w.ToTrace()
	return nil
}
