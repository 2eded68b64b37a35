package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/meshrepublic/kudzu/internal/clock"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

// Trace is the atomic unit of navigational memory: not the
// knowledge itself, a path to reconstruct it.
type Trace struct {
	ID                 string
	Origin              string
	Timestamp           clock.Clock
	Purpose             Purpose
	Path                []string
	ReconstructionHint  Hint
	Salience            Salience
	ContentHash         string
	ContentAddressable  bool
}

// Options configures trace construction.
type Options struct {
	ContentAddressable bool
	Importance         Importance
}

// DefaultOptions is content_addressable=true, importance=normal.
func DefaultOptions() Options {
	return Options{ContentAddressable: true, Importance: ImportanceNormal}
}

// ComputeContentHash is SHA-256 of the canonical string
// "origin|purpose|sorted-hint-entries", hex encoded.
func ComputeContentHash(origin string, purpose Purpose, hint Hint) string {
	canonical := fmt.Sprintf("%s|%s|%s", origin, purpose, hint.canonicalEntries())
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// New constructs a trace. Construction never fails: an invalid
// purpose is accepted as data but Valid() will report it so callers at a
// wire boundary can reject it before it is ever stored.
func New(origin string, purpose Purpose, hint Hint, c clock.Clock, opts Options, now time.Time) Trace {
	if hint == nil {
		hint = Hint{}
	}
	h := ComputeContentHash(origin, purpose, hint)
	id := h
	if !opts.ContentAddressable {
		id = fmt.Sprintf("%s-%d", h, now.UnixNano())
	}
	return Trace{
		ID:                 id,
		Origin:             origin,
		Timestamp:          c.Increment(origin),
		Purpose:            purpose,
		Path:               []string{origin},
		ReconstructionHint: hint,
		Salience:           NewSalience(opts.Importance, now),
		ContentHash:        h,
		ContentAddressable: opts.ContentAddressable,
	}
}

// VerifyIntegrity recomputes the content hash and compares it to the stored
// one.
func (t Trace) VerifyIntegrity() bool {
	return ComputeContentHash(t.Origin, t.Purpose, t.ReconstructionHint) == t.ContentHash
}

// Follow returns a new trace with follower appended to the path (skipping
// if the last element already equals follower) and the clock incremented
// for follower.
func Follow(t Trace, follower string) Trace {
	next := t
	next.Path = append([]string(nil), t.Path...)
	if len(next.Path) == 0 || next.Path[len(next.Path)-1] != follower {
		next.Path = append(next.Path, follower)
	}
	next.Timestamp = t.Timestamp.Increment(follower)
	return next
}

// Merge combines two traces that share origin and purpose, bundling their
// reconstruction hints and taking the clock merge. IncompatibleTraces is
// returned when origin or purpose differ.
func Merge(a, b Trace) (Trace, error) {
	if a.Origin != b.Origin || a.Purpose != b.Purpose {
		return Trace{}, kudzuerr.New(kudzuerr.KindIncompatibleTraces,
			"cannot merge traces with origin=%s/%s purpose=%s/%s", a.Origin, b.Origin, a.Purpose, b.Purpose)
	}
	merged := a
	merged.Timestamp = clock.Merge(a.Timestamp, b.Timestamp)
	hint := Hint{}
	for k, v := range a.ReconstructionHint {
		hint[k] = v
	}
	for k, v := range b.ReconstructionHint {
		hint[k] = v
	}
	merged.ReconstructionHint = hint
	merged.ContentHash = ComputeContentHash(merged.Origin, merged.Purpose, hint)
	if merged.ContentAddressable {
		merged.ID = merged.ContentHash
	}
	return merged, nil
}

// PathValid checks that path is non-empty and starts with origin, with no
// consecutive duplicates.
func (t Trace) PathValid() bool {
	if len(t.Path) == 0 || t.Path[0] != t.Origin {
		return false
	}
	for i := 1; i < len(t.Path); i++ {
		if t.Path[i] == t.Path[i-1] {
			return false
		}
	}
	return true
}
