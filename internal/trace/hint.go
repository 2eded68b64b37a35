package trace

import (
	"fmt"
	"sort"
	"strings"
)

// Hint is a heterogeneous, JSON-shaped cue map. It is never the knowledge
// itself — only enough to regenerate it. Values may be any
// JSON-representable type: string, float64, bool, nil, []interface{}, or
// map[string]interface{}, matching what encoding/json produces on decode.
type Hint map[string]interface{}

// canonicalEntries renders the hint's entries sorted by key, each as
// "key:value", joined by ",". This is deterministic across processes and
// feeds content-hash computation.
func (h Hint) canonicalEntries() string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", k, canonicalValue(h[k])))
	}
	return strings.Join(parts, ",")
}

func canonicalValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return fmt.Sprintf("%q", t)
	case nil:
		return "null"
	case map[string]interface{}:
		return fmt.Sprintf("{%s}", Hint(t).canonicalEntries())
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = canonicalValue(e)
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ","))
	default:
		return fmt.Sprintf("%v", t)
	}
}
