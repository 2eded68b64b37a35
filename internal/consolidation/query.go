package consolidation

import (
	"sort"

	"github.com/meshrepublic/kudzu/internal/encoder"
	"github.com/meshrepublic/kudzu/internal/hrr"
)

// PurposeSimilarity pairs a purpose tag with its similarity to a query
// vector.
type PurposeSimilarity struct {
	Purpose    string
	Similarity float64
}

// GetConsolidatedVector returns the current consolidated vector for
// purpose, or false if none has been computed yet.
func (d *Daemon) GetConsolidatedVector(purpose string) (hrr.Vector, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.consolidated[purpose]
	return v, ok
}

// QueryMemory compares queryVec against every consolidated purpose vector,
// returning matches at or above threshold sorted by similarity descending.
func (d *Daemon) QueryMemory(queryVec hrr.Vector, threshold float64) []PurposeSimilarity {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []PurposeSimilarity
	for purpose, vec := range d.consolidated {
		sim := hrr.Similarity(queryVec, vec)
		if sim >= threshold {
			out = append(out, PurposeSimilarity{Purpose: purpose, Similarity: sim})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Purpose < out[j].Purpose
	})
	return out
}

// SemanticQuery encodes text with the current encoder state and behaves as
// QueryMemory.
func (d *Daemon) SemanticQuery(text string, threshold float64) ([]PurposeSimilarity, error) {
	tokens := encoder.Tokenize(map[string]interface{}{"content": text})
	vec, err := d.encoder.EncodeTrace(tokens, nil)
	if err != nil {
		return nil, err
	}
	return d.QueryMemory(vec, threshold), nil
}
