package brain

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/meshrepublic/kudzu/internal/encoder"
	"github.com/meshrepublic/kudzu/internal/hologram"
	"github.com/meshrepublic/kudzu/internal/silo"
)

// ExtractedTriple is one relational fact the distiller pulled out of a
// Tier 3 model's response text.
type ExtractedTriple struct {
	Subject  string
	Relation string
	Object   string
}

// causalRelations names the subset of relations the reflex-candidate
// proposal treats as causal.
var causalRelations = map[string]struct{}{
	"caused_by": {},
	"leads_to":  {},
}

// relationPattern pairs a canonical relation tag with the regexp2 pattern
// that recognizes it. Lookahead is what earns regexp2 its keep here: a
// plain stdlib regexp can't stop a greedy subject/object capture from
// swallowing a second relational phrase on the same line, so each capture
// group is a "not one of these phrases" lookahead repeated lazily.
type relationPattern struct {
	Relation string
	Regex    *regexp2.Regexp
}

var relationPhrases = []struct {
	relation string
	phrase   string
}{
	{"caused_by", "is caused by"},
	{"caused_by", "because"},
	{"leads_to", "leads to"},
	{"requires", "requires"},
	{"uses", "uses"},
	{"is_a", "is a"},
	{"contains", "contains"},
	{"relates_to", "relates to"},
	{"produces", "produces"},
	{"provides", "provides"},
}

var relationPatterns = buildRelationPatterns()

func buildRelationPatterns() []relationPattern {
	var allPhrases []string
	for _, rp := range relationPhrases {
		allPhrases = append(allPhrases, regexp2.Escape(rp.phrase))
	}
	boundary := "(?:" + strings.Join(allPhrases, "|") + ")"

	patterns := make([]relationPattern, 0, len(relationPhrases))
	for _, rp := range relationPhrases {
		pattern := fmt.Sprintf(
			`(?<subject>(?:(?!\b%s\b).)+?)\s+\b%s\b\s+(?<object>(?:(?!\b%s\b).)+?)[.!?]?(?:\s|$)`,
			boundary, regexp2.Escape(rp.phrase), boundary,
		)
		re := regexp2.MustCompile(pattern, regexp2.IgnoreCase)
		patterns = append(patterns, relationPattern{Relation: rp.relation, Regex: re})
	}
	return patterns
}

var sentenceSplit = regexp.MustCompile(`[\n.]+`)

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeTerm lowercases and underscore-joins a captured phrase, and
// strips punctuation.
func normalizeTerm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWord.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// ExtractChains scans text sentence by sentence against the fixed set of
// relational patterns, returning every triple found.
func ExtractChains(text string) []ExtractedTriple {
	var out []ExtractedTriple
	for _, sentence := range splitSentences(text) {
		for _, rp := range relationPatterns {
			m, err := rp.Regex.FindStringMatch(sentence)
			if err != nil || m == nil {
				continue
			}
			subjectGroup := m.GroupByName("subject")
			objectGroup := m.GroupByName("object")
			if subjectGroup == nil || objectGroup == nil {
				continue
			}
			subject := normalizeTerm(subjectGroup.String())
			object := normalizeTerm(objectGroup.String())
			if subject == "" || object == "" {
				continue
			}
			out = append(out, ExtractedTriple{Subject: subject, Relation: rp.Relation, Object: object})
		}
	}
	return out
}

// StoreTriples records triples into domain's silo.
func StoreTriples(ctx context.Context, reg *hologram.Registry, storer hologram.Storer, domain string, triples []ExtractedTriple) error {
	if reg == nil {
		return fmt.Errorf("store triples: no hologram registry wired")
	}
	s, err := silo.FindOrCreate(reg, domain, storer)
	if err != nil {
		return err
	}
	for _, t := range triples {
		if _, err := s.Store(ctx, t.Subject, t.Relation, t.Object); err != nil {
			return err
		}
	}
	return nil
}

// ProposeReflexCandidates finds causal triples whose object names a
// currently available action, proposing each as a candidate reflex rule.
// These are proposals only — monarch approval is required before a
// candidate becomes a live rule in DefaultReflexRules, which this function
// never mutates.
func ProposeReflexCandidates(triples []ExtractedTriple, availableActions []string) []ReflexAction {
	actionSet := make(map[string]struct{}, len(availableActions))
	for _, a := range availableActions {
		actionSet[a] = struct{}{}
	}

	var proposals []ReflexAction
	for _, t := range triples {
		if _, causal := causalRelations[t.Relation]; !causal {
			continue
		}
		if _, known := actionSet[t.Object]; !known {
			continue
		}
		proposals = append(proposals, ReflexAction{
			Kind: ReflexAct,
			Name: t.Object,
			Payload: map[string]interface{}{
				"proposed_from": t.Subject,
				"relation":      t.Relation,
				"status":        "pending_approval",
			},
		})
	}
	return proposals
}

// FindKnowledgeGaps returns "What is X?" questions for every significant
// term in text that no silo covers above a 0.5 cross-query similarity.
func FindKnowledgeGaps(text string, silos []*silo.Silo) []string {
	const coverageThreshold = 0.5
	terms := encoder.Tokenize(map[string]interface{}{"content": text})

	var gaps []string
	for _, term := range terms {
		covered := false
		for _, dm := range silo.CrossQuery(silos, term) {
			if dm.Match.Similarity > coverageThreshold {
				covered = true
				break
			}
		}
		if !covered {
			gaps = append(gaps, fmt.Sprintf("What is %s?", term))
		}
	}
	return gaps
}

// DistillResult is the full output of one distillation pass.
type DistillResult struct {
	Triples          []ExtractedTriple
	ReflexCandidates []ReflexAction
	KnowledgeGaps    []string
}

// Distill runs the whole post-Tier-3 pipeline: chain extraction and
// storage, reflex-candidate proposal, and knowledge-gap detection.
func Distill(ctx context.Context, text string, reg *hologram.Registry, storer hologram.Storer, domain string, silos []*silo.Silo, availableActions []string) (DistillResult, error) {
	triples := ExtractChains(text)
	if err := StoreTriples(ctx, reg, storer, domain, triples); err != nil {
		return DistillResult{}, err
	}
	return DistillResult{
		Triples:          triples,
		ReflexCandidates: ProposeReflexCandidates(triples, availableActions),
		KnowledgeGaps:    FindKnowledgeGaps(text, silos),
	}, nil
}
