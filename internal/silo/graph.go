package silo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/dgo/v230"
	"github.com/dgraph-io/dgo/v230/protos/api"

	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

// GraphIndex is the supplementary dgraph-backed exact-match index for a
// silo's relationship triples: alongside the HRR-bound similarity probe,
// each stored triple is also written as a graph edge (subject -[relation]->
// object), giving callers a second, exact-match query path. Additive only:
// Probe's similarity-ordered contract is unchanged, this is a convenience
// the silo doesn't require to function. A Silo with a nil GraphIndex skips
// the graph write entirely.
type GraphIndex struct {
	client *dgo.Dgraph
}

// NewGraphIndex wraps an already-connected dgraph client.
func NewGraphIndex(client *dgo.Dgraph) *GraphIndex {
	return &GraphIndex{client: client}
}

// Upsert writes one triple as a graph edge, facet-tagging the relation name
// and creation time so QueryExact can recover both without a second probe.
func (g *GraphIndex) Upsert(ctx context.Context, domain, subject, relation, object string, at time.Time) error {
	nquads := fmt.Sprintf(`
_:s <xid> %q .
_:s <domain> %q .
_:s <relates_to> _:o (relation=%q, created_at=%q) .
_:o <xid> %q .
`, subject, domain, relation, at.Format(time.RFC3339), object)

	mu := &api.Mutation{SetNquads: []byte(nquads), CommitNow: true}
	if _, err := g.client.NewTxn().Mutate(ctx, mu); err != nil {
		return kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "dgraph upsert")
	}
	return nil
}

// ExactMatch is one graph-edge hit: the object reached from a subject, and
// the relation/timestamp facets carried on that edge.
type ExactMatch struct {
	Object    string
	Relation  string
	CreatedAt time.Time
}

// QueryExact looks up every object a subject relates to, via dgraph's exact
// `eq(xid, ...)` index rather than HRR similarity — useful when a caller
// wants a precise relational lookup instead of a similarity threshold.
func (g *GraphIndex) QueryExact(ctx context.Context, subject string) ([]ExactMatch, error) {
	q := fmt.Sprintf(`{
  q(func: eq(xid, %q)) {
    relates_to @facets(relation, created_at) {
      xid
    }
  }
}`, subject)

	resp, err := g.client.NewReadOnlyTxn().Query(ctx, q)
	if err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "dgraph query")
	}

	var decoded struct {
		Q []struct {
			RelatesTo []struct {
				Xid       string `json:"xid"`
				Relation  string `json:"relates_to|relation"`
				CreatedAt string `json:"relates_to|created_at"`
			} `json:"relates_to"`
		} `json:"q"`
	}
	if err := json.Unmarshal(resp.Json, &decoded); err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindDecodeError, err, "decode dgraph response")
	}

	var out []ExactMatch
	for _, node := range decoded.Q {
		for _, edge := range node.RelatesTo {
			m := ExactMatch{Object: edge.Xid, Relation: edge.Relation}
			if t, err := time.Parse(time.RFC3339, edge.CreatedAt); err == nil {
				m.CreatedAt = t
			}
			out = append(out, m)
		}
	}
	return out, nil
}
