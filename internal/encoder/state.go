package encoder

import (
	"sort"
	"sync"

	"github.com/meshrepublic/kudzu/internal/hrr"
)

// State is the encoder state: codebook, vocabulary cache,
// co-occurrence matrix, token counts, blend strength, and dimension.
type State struct {
	mu sync.RWMutex

	Codebook        map[string]hrr.Vector
	vocabulary      map[string]hrr.Vector
	coOccurrence    map[string]map[string]float64
	tokenCounts     map[string]int64
	BlendStrength   float64
	Dimension       int
	TracesProcessed int64
}

// DefaultBlendStrength is the default blend_strength.
const DefaultBlendStrength = 0.3

// FieldRoles are the role tags a token is bound to when encoding trace
// content.
var FieldRoles = []string{"content", "project", "event", "subject", "relation", "object"}

// New constructs an encoder state with a codebook seeded for the known
// field roles.
func New(dimension int) *State {
	if dimension <= 0 {
		dimension = hrr.DefaultDimension
	}
	s := &State{
		Codebook:      make(map[string]hrr.Vector, len(FieldRoles)),
		vocabulary:    make(map[string]hrr.Vector),
		coOccurrence:  make(map[string]map[string]float64),
		tokenCounts:   make(map[string]int64),
		BlendStrength: DefaultBlendStrength,
		Dimension:     dimension,
	}
	for _, role := range FieldRoles {
		s.Codebook[role] = hrr.SeededVector("role_v1_"+role, dimension)
	}
	return s
}

// UpdateCoOccurrence adds 1.0 to both directions for every unordered pair
// (a,b), a != b, in the token set T. Symmetric by construction:
// both directions are written in the same call.
func (s *State) UpdateCoOccurrence(tokens []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tokens {
		s.tokenCounts[t]++
	}
	for i := 0; i < len(tokens); i++ {
		for j := i + 1; j < len(tokens); j++ {
			a, b := tokens[i], tokens[j]
			if a == b {
				continue
			}
			s.bump(a, b)
			s.bump(b, a)
		}
	}
}

func (s *State) bump(a, b string) {
	row, ok := s.coOccurrence[a]
	if !ok {
		row = make(map[string]float64)
		s.coOccurrence[a] = row
	}
	row[b] += 1.0
}

// CoOccurrenceWeight returns co_occurrence[a][b], 0 if absent. Exposed for
// the symmetry invariant test.
func (s *State) CoOccurrenceWeight(a, b string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row, ok := s.coOccurrence[a]; ok {
		return row[b]
	}
	return 0
}

// DeepMaintain applies the deep-cycle encoder maintenance:
// multiply every weight by 0.98, prune entries below 1.0 in both
// directions, then evict tokens with total incoming weight of zero.
func (s *State) DeepMaintain() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for a, row := range s.coOccurrence {
		for b, w := range row {
			w *= 0.98
			if w < 1.0 {
				delete(row, b)
				if otherRow, ok := s.coOccurrence[b]; ok {
					delete(otherRow, a)
				}
				continue
			}
			row[b] = w
		}
		if len(row) == 0 {
			delete(s.coOccurrence, a)
		}
	}
	for token := range s.tokenCounts {
		total := 0.0
		if row, ok := s.coOccurrence[token]; ok {
			for _, w := range row {
				total += w
			}
		}
		if total == 0 {
			delete(s.tokenCounts, token)
			delete(s.vocabulary, token)
		}
	}
}

// topNeighbors returns up to n entries of co_occurrence[token] sorted by
// weight descending, ties broken by token for determinism.
func (s *State) topNeighbors(token string, n int) []neighbor {
	row, ok := s.coOccurrence[token]
	if !ok {
		return nil
	}
	neighbors := make([]neighbor, 0, len(row))
	for t, w := range row {
		neighbors = append(neighbors, neighbor{token: t, weight: w})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].weight != neighbors[j].weight {
			return neighbors[i].weight > neighbors[j].weight
		}
		return neighbors[i].token < neighbors[j].token
	})
	if len(neighbors) > n {
		neighbors = neighbors[:n]
	}
	return neighbors
}

type neighbor struct {
	token  string
	weight float64
}

// TokenVector computes the contextual token vector: a base
// seeded vector blended with its top-5 co-occurrence neighbors' seeded
// vectors, weighted by normalized co-occurrence weight.
func (s *State) TokenVector(token string) hrr.Vector {
	s.mu.RLock()
	defer s.mu.RUnlock()

	base := hrr.SeededVector("token_v2_"+token, s.Dimension)
	neighbors := s.topNeighbors(token, 5)
	if len(neighbors) == 0 {
		return base
	}
	var total float64
	for _, nb := range neighbors {
		total += nb.weight
	}
	if total == 0 {
		return base
	}
	blend := make([]float64, s.Dimension)
	for _, nb := range neighbors {
		nv := hrr.SeededVector("token_v2_"+nb.token, s.Dimension)
		share := nb.weight / total
		for i, x := range nv.Data {
			blend[i] += x * share
		}
	}
	out := make([]float64, s.Dimension)
	for i := range out {
		out[i] = base.Data[i] + s.BlendStrength*blend[i]
	}
	return hrr.Normalize(hrr.Vector{Data: out})
}

// EncodeTrace computes a trace's content vector: token vectors bound to
// their field-role vector, bundled together. role maps a token
// to the hint field it was drawn from; callers that don't track per-token
// provenance may pass a nil map and every token binds to "content".
func (s *State) EncodeTrace(tokens []string, role map[string]string) (hrr.Vector, error) {
	vecs := make([]hrr.Vector, 0, len(tokens))
	for _, t := range tokens {
		r := "content"
		if role != nil {
			if rr, ok := role[t]; ok && rr != "" {
				r = rr
			}
		}
		roleVec, ok := s.Codebook[r]
		if !ok {
			roleVec = s.Codebook["content"]
		}
		vecs = append(vecs, hrr.Bind(s.TokenVector(t), roleVec))
	}
	return hrr.Bundle(vecs)
}

// IncrementTracesProcessed records that one more trace fed the encoder.
func (s *State) IncrementTracesProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TracesProcessed++
}
