package brain

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/meshrepublic/kudzu/internal/encoder"
	"github.com/meshrepublic/kudzu/internal/silo"
)

// Defaults for a Thought process.
const (
	defaultMaxDepth      = 3
	defaultMaxBreadth    = 5
	defaultThoughtTimeout = 5 * time.Second
	subThoughtTimeout    = 2 * time.Second
	activationThreshold  = 0.3
	foundThreshold       = 0.6
	partialThreshold     = 0.3
)

// ThoughtResolution classifies a Thought's outcome.
type ThoughtResolution string

const (
	ResolutionFound   ThoughtResolution = "found"
	ResolutionPartial ThoughtResolution = "partial"
	ResolutionNoMatch ThoughtResolution = "no_match"
	ResolutionTimeout ThoughtResolution = "timeout"
)

// ThoughtResult is what a Thought reports to its monarch on completion.
type ThoughtResult struct {
	ID         string
	Chain      Chain
	Confidence float64
	Resolution ThoughtResolution
}

// Thought is one ephemeral HRR-inference reasoning attempt.
// It is fire-and-forget: Run executes the whole recursive algorithm
// synchronously, self-terminates, and returns the final result.
type Thought struct {
	ID         string
	Input      string
	Depth      int
	MaxDepth   int
	MaxBreadth int
	Timeout    time.Duration
}

// NewThought constructs a root thought with the tier's default depth,
// breadth, and timeout.
func NewThought(id, input string) *Thought {
	return &Thought{
		ID:         id,
		Input:      input,
		MaxDepth:   defaultMaxDepth,
		MaxBreadth: defaultMaxBreadth,
		Timeout:    defaultThoughtTimeout,
	}
}

// activation is one (concept, similarity, domain) triple surfaced by a
// cross-silo probe.
type activation struct {
	Concept    string
	Similarity float64
	Domain     string
}

// probeSilos cross-queries silos for every term, keeping triples above the
// activation threshold, sorting by similarity descending, deduplicating by
// concept, and capping at maxBreadth. Terms that surface no activation at
// all are returned separately as deadTerms — chain links a thought records
// as "dead_end" so the curiosity engine can later turn them into questions.
func probeSilos(silos []*silo.Silo, terms []string, maxBreadth int) (activations []activation, deadTerms []string) {
	if maxBreadth <= 0 {
		return nil, nil
	}

	var all []activation
	for _, term := range terms {
		matched := false
		for _, dm := range silo.CrossQuery(silos, term) {
			if dm.Match.Similarity < activationThreshold {
				continue
			}
			subject, ok := dm.Match.Hint["subject"].(string)
			if !ok || subject == "" {
				continue
			}
			matched = true
			all = append(all, activation{Concept: subject, Similarity: dm.Match.Similarity, Domain: dm.Domain})
		}
		if !matched {
			deadTerms = append(deadTerms, term)
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Similarity > all[j].Similarity })
	seen := map[string]struct{}{}
	for _, a := range all {
		if _, dup := seen[a.Concept]; dup {
			continue
		}
		seen[a.Concept] = struct{}{}
		activations = append(activations, a)
		if len(activations) == maxBreadth {
			break
		}
	}
	return activations, deadTerms
}

// confidence averages the chain's link similarities and adds a length
// bonus capped at 0.2 overall, capped at 1.0. A chain of length <= 1 (just
// the input link, nothing found) always scores 0.
func confidence(chain Chain) float64 {
	if len(chain) <= 1 {
		return 0
	}
	var sum float64
	for _, link := range chain {
		sum += link.Similarity
	}
	avg := sum / float64(len(chain))
	bonus := math.Min(float64(len(chain))/5, 0.2)
	c := avg + bonus
	if c > 1 {
		c = 1
	}
	return c
}

func classify(c float64) ThoughtResolution {
	switch {
	case c > foundThreshold:
		return ResolutionFound
	case c > partialThreshold:
		return ResolutionPartial
	default:
		return ResolutionNoMatch
	}
}

// Run executes the Thought's algorithm against silos, biased by priming
// concepts drawn from working memory. It blocks for
// at most t.Timeout.
func (t *Thought) Run(ctx context.Context, silos []*silo.Silo, priming []string) ThoughtResult {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	scoring, full, timedOut := t.build(ctx, silos, priming)
	c := confidence(scoring)
	if timedOut {
		return ThoughtResult{ID: t.ID, Chain: full, Confidence: c, Resolution: ResolutionTimeout}
	}
	return ThoughtResult{ID: t.ID, Chain: full, Confidence: c, Resolution: classify(c)}
}

// build recurses the Thought's algorithm, returning two parallel chains:
// scoring holds only the input link and real (above-threshold) activation
// links — the chain confidence is computed over — while
// full additionally carries "dead_end" placeholders for probed terms that
// matched nothing, so the curiosity engine can later find them without skewing the confidence average.
func (t *Thought) build(ctx context.Context, silos []*silo.Silo, priming []string) (scoring, full Chain, timedOut bool) {
	inputLink := ChainLink{Concept: t.Input, Similarity: 1.0, Source: "input"}
	scoring = Chain{inputLink}
	full = Chain{inputLink}

	if ctx.Err() != nil {
		return scoring, full, true
	}

	// Tokenize emits the hint label as a word of its own; tokenizing under
	// two labels and keeping the common terms leaves only the input's terms.
	fromSummary := make(map[string]struct{})
	for _, term := range encoder.Tokenize(map[string]interface{}{"summary": t.Input}) {
		fromSummary[term] = struct{}{}
	}
	var terms []string
	for _, term := range encoder.Tokenize(map[string]interface{}{"content": t.Input}) {
		if _, ok := fromSummary[term]; ok {
			terms = append(terms, term)
		}
	}
	terms = append(terms, priming...)

	activations, deadTerms := probeSilos(silos, terms, t.MaxBreadth)
	for _, a := range activations {
		link := ChainLink{Concept: a.Concept, Similarity: a.Similarity, Source: a.Domain}
		scoring = append(scoring, link)
		full = append(full, link)
	}
	for _, term := range deadTerms {
		full = append(full, ChainLink{Concept: term, Similarity: 0, Source: "dead_end"})
	}

	if t.Depth < t.MaxDepth && len(activations) > 0 {
		if ctx.Err() != nil {
			return scoring, full, true
		}
		top := activations[0]
		sub := &Thought{
			ID:         t.ID + ".sub",
			Input:      top.Concept,
			Depth:      t.Depth + 1,
			MaxDepth:   t.MaxDepth,
			MaxBreadth: t.MaxBreadth - 1,
			Timeout:    subThoughtTimeout,
		}
		subScoring, subFull, subTimedOut := sub.build(ctx, silos, priming)
		if len(subScoring) > 1 {
			scoring = append(scoring, subScoring[1:]...)
		}
		if len(subFull) > 1 {
			full = append(full, subFull[1:]...)
		}
		if subTimedOut {
			return scoring, full, true
		}
	}

	return scoring, full, ctx.Err() != nil
}
