// Package silo implements the expertise-silo layer: holograms
// whose purpose begins with "expertise:", storing subject-relation-object
// triples as discovery traces and answering similarity-scored probes over
// their subjects' concept vectors.
package silo

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/meshrepublic/kudzu/internal/hologram"
	"github.com/meshrepublic/kudzu/internal/hrr"
	"github.com/meshrepublic/kudzu/internal/trace"
)

// Silo wraps a hologram specialized for one knowledge domain.
type Silo struct {
	Domain string
	state  *hologram.State
	graph  *GraphIndex
}

// WithGraphIndex attaches the supplementary dgraph exact-match index;
// passing nil (the default) leaves the silo running on HRR similarity
// alone.
func (s *Silo) WithGraphIndex(g *GraphIndex) *Silo {
	s.graph = g
	return s
}

// ProbeExact looks up exact-match objects for query via the graph index, or
// returns nil if no graph index is attached.
func (s *Silo) ProbeExact(ctx context.Context, query string) ([]ExactMatch, error) {
	if s.graph == nil {
		return nil, nil
	}
	return s.graph.QueryExact(ctx, query)
}

// FindOrCreate implements create-or-find using the shared hologram
// registry: the first lookup for a domain returns the
// existing silo; absent, one is spawned with constitution kudzu_evolve and
// cognition disabled.
func FindOrCreate(reg *hologram.Registry, domain string, storer hologram.Storer) (*Silo, error) {
	h, err := reg.FindOrSpawnSilo(domain, storer)
	if err != nil {
		return nil, err
	}
	return &Silo{Domain: domain, state: h}, nil
}

// conceptVector is seeded_vector("concept_v1_" + lowercase(term)).
func conceptVector(term string) hrr.Vector {
	return hrr.SeededVector("concept_v1_"+strings.ToLower(term), hrr.DefaultDimension)
}

func relationVector(relation string) hrr.Vector {
	return hrr.SeededVector("relation_v1_"+strings.ToLower(relation), hrr.DefaultDimension)
}

// Encode computes subject_vec bound to (relation_vec bound to object_vec),
// so the same triple always encodes to the same vector across processes.
func Encode(subject, relation, object string) hrr.Vector {
	return hrr.Bind(conceptVector(subject), hrr.Bind(relationVector(relation), conceptVector(object)))
}

// Store records a subject-relation-object triple as a discovery trace
// whose hint has type "relationship".
func (s *Silo) Store(ctx context.Context, subject, relation, object string) (trace.Trace, error) {
	hint := trace.Hint{
		"type":     "relationship",
		"subject":  subject,
		"relation": relation,
		"object":   object,
	}
	t, err := s.state.RecordTrace(ctx, trace.PurposeDiscovery, hint, trace.ImportanceNormal)
	if err != nil {
		return t, err
	}
	if s.graph != nil {
		if gerr := s.graph.Upsert(ctx, s.Domain, subject, relation, object, time.Now()); gerr != nil {
			return t, gerr
		}
	}
	return t, nil
}

// Match is one scored relationship trace returned by Probe.
type Match struct {
	Hint       trace.Hint
	Similarity float64
}

// ConfidenceBand classifies a similarity score.
type ConfidenceBand string

const (
	ConfidenceHigh     ConfidenceBand = "high"
	ConfidenceModerate ConfidenceBand = "moderate"
	ConfidenceLow      ConfidenceBand = "low"
)

// Band returns similarity's confidence band: high > 0.7, moderate 0.4-0.7,
// low < 0.4.
func Band(similarity float64) ConfidenceBand {
	switch {
	case similarity > 0.7:
		return ConfidenceHigh
	case similarity >= 0.4:
		return ConfidenceModerate
	default:
		return ConfidenceLow
	}
}

// Probe computes query's concept vector and scores it against every stored
// relationship trace's subject concept vector, returning matches sorted by
// similarity descending.
func (s *Silo) Probe(query string) []Match {
	queryVec := conceptVector(query)
	traces := s.state.Recall(trace.PurposeDiscovery)

	matches := make([]Match, 0, len(traces))
	for _, t := range traces {
		subject, ok := t.ReconstructionHint["subject"].(string)
		if !ok {
			continue
		}
		sim := hrr.Similarity(queryVec, conceptVector(subject))
		matches = append(matches, Match{Hint: t.ReconstructionHint, Similarity: sim})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	return matches
}
