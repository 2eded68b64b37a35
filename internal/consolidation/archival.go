package consolidation

import (
	"time"

	"github.com/meshrepublic/kudzu/internal/storage"
	"github.com/meshrepublic/kudzu/internal/trace"
)

const (
	archivalAge              = 168 * time.Hour
	archivalAccessCountLimit = 5
)

// archivalCandidates selects records older than 168 hours since last
// access, with fewer than 5 accesses, that aren't critical.
// Selection only — archival itself is the storage aging loop's job.
func archivalCandidates(records []storage.Record, now time.Time) []storage.Record {
	cutoff := now.Add(-archivalAge)
	var out []storage.Record
	for _, r := range records {
		if r.Importance == trace.ImportanceCritical {
			continue
		}
		if r.AccessCount >= archivalAccessCountLimit {
			continue
		}
		if r.LastAccessed.After(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out
}
