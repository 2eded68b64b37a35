package brain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/meshrepublic/kudzu/internal/consolidation"
)

// maxCuriosityQuestions bounds a single pass of the curiosity engine.
const maxCuriosityQuestions = 5

// UnresolvedFinder surfaces high-salience, apparently-unresolved memory
// for the curiosity engine's third source, satisfied by
// *consolidation.Daemon.
type UnresolvedFinder interface {
	SemanticQuery(text string, threshold float64) ([]consolidation.PurposeSimilarity, error)
}

var themeWord = regexp.MustCompile(`[\p{L}\p{N}]+`)

// themeStopwords are skipped when picking a desire's leading word; kept
// separate from the encoder's stopword list since a theme needs the first
// word in reading order, not a tokenized, order-losing set.
var themeStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "of": {}, "to": {}, "in": {},
	"for": {}, "on": {}, "with": {}, "at": {}, "by": {}, "and": {}, "or": {},
}

// desireTheme extracts a desire's theme: its first significant word in
// reading order, stopwords skipped.
func desireTheme(desire string) string {
	for _, w := range themeWord.FindAllString(strings.ToLower(desire), -1) {
		if _, stop := themeStopwords[w]; stop {
			continue
		}
		return w
	}
	return ""
}

func hasDomain(domains []string, theme string) bool {
	for _, d := range domains {
		if d == theme {
			return true
		}
	}
	return false
}

// GenerateCuriosityQuestions runs the three-source curiosity engine,
// stopping as soon as maxCuriosityQuestions accumulate. Sources are
// consulted in order: desire themes, then working-memory gaps, then
// unexplored high-salience traces.
func GenerateCuriosityQuestions(desires []string, siloDomains []string, wm *WorkingMemory, unresolved UnresolvedFinder) []string {
	var questions []string

	for _, desire := range desires {
		if len(questions) >= maxCuriosityQuestions {
			return questions
		}
		theme := desireTheme(desire)
		if theme == "" {
			continue
		}
		if hasDomain(siloDomains, theme) {
			questions = append(questions, fmt.Sprintf("What else relates to %s?", theme))
		} else {
			questions = append(questions, fmt.Sprintf("What is %s?", theme))
		}
	}

	if wm != nil {
		for _, link := range wm.GapLinks() {
			if len(questions) >= maxCuriosityQuestions {
				return questions
			}
			if link.Concept == "" {
				continue
			}
			questions = append(questions, fmt.Sprintf("What is %s?", link.Concept))
		}
	}

	if unresolved != nil && len(questions) < maxCuriosityQuestions {
		results, err := unresolved.SemanticQuery("important unresolved", 0.1)
		if err == nil {
			for _, r := range results {
				if len(questions) >= maxCuriosityQuestions {
					break
				}
				questions = append(questions, fmt.Sprintf("What is unresolved about %s?", r.Purpose))
			}
		}
	}

	return questions
}
