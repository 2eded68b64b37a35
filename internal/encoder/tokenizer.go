// Package encoder implements the tokenizer, co-occurrence matrix, and
// contextual HRR encoding.
package encoder

import (
	"regexp"
	"sort"
	"strings"
)

// recognizedHintKeys are the reconstruction-hint fields whose string values
// feed tokenization. Each present key is emitted as a word of its own ahead
// of its value, so it yields a unigram and a key_firstword bigram; the same
// value word gives the same unigram under any key.
var recognizedHintKeys = []string{
	"content", "summary", "event", "key_events", "subject", "object",
	"relation", "project", "context", "description", "reason",
}

// stopwords is the fixed, small closed stopword list. Technical
// terms are never included.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "was": {}, "were": {}, "are": {},
	"be": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "can": {}, "shall": {}, "of": {},
	"to": {}, "in": {}, "for": {}, "on": {}, "with": {}, "at": {}, "by": {},
	"from": {}, "that": {}, "this": {}, "it": {}, "its": {}, "and": {},
	"or": {}, "but": {}, "not": {}, "no": {}, "if": {}, "then": {}, "than": {},
	"so": {}, "as": {}, "into": {},
}

// punctuation matches everything that should become a space except letters,
// digits, whitespace, underscore and hyphen; Tokenize then trims leading and
// trailing _ and - from each word, so only internal ones survive.
var punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\-\s]+`)

// Tokenize extracts the token set (unigrams ∪ bigrams) from a
// reconstruction hint.
func Tokenize(hint map[string]interface{}) []string {
	var parts []string
	for _, key := range recognizedHintKeys {
		v, ok := hint[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		parts = append(parts, key+" "+s)
	}
	text := strings.ToLower(strings.Join(parts, " "))
	text = punctuation.ReplaceAllString(text, " ")

	raw := strings.Fields(text)
	var unigrams []string
	for _, w := range raw {
		w = strings.Trim(w, "-_")
		if w == "" {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if len(w) < 2 {
			continue
		}
		unigrams = append(unigrams, w)
	}

	tokenSet := make(map[string]struct{}, len(unigrams)*2)
	for _, u := range unigrams {
		tokenSet[u] = struct{}{}
	}
	for i := 0; i+1 < len(unigrams); i++ {
		bigram := unigrams[i] + "_" + unigrams[i+1]
		tokenSet[bigram] = struct{}{}
	}

	out := make([]string, 0, len(tokenSet))
	for t := range tokenSet {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
