package silo

import "sort"

// DomainMatch attaches the silo domain a Match came from, for a cross-silo
// fan-out query.
type DomainMatch struct {
	Domain string
	Match  Match
}

// CrossQuery probes every silo in silos with query and merges all of their
// matches into one list sorted by similarity descending.
func CrossQuery(silos []*Silo, query string) []DomainMatch {
	var out []DomainMatch
	for _, s := range silos {
		for _, m := range s.Probe(query) {
			out = append(out, DomainMatch{Domain: s.Domain, Match: m})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Match.Similarity > out[j].Match.Similarity })
	return out
}
