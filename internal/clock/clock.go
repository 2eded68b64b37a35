// Package clock implements the vector clock causal-ordering primitive
// traces and holograms carry. A Clock is immutable: every
// operation returns a new value rather than mutating in place, matching the
// "linearisable with respect to arrival order" contract of a single
// hologram's mailbox.
package clock

import (
	"encoding/json"
	"sort"
)

// Relation is the result of comparing two clocks.
type Relation int

const (
	Equal Relation = iota
	Before
	After
	Concurrent
)

// Clock maps an opaque agent id to a monotonically increasing counter.
type Clock struct {
	counts map[string]uint64
}

// New returns the empty clock.
func New() Clock {
	return Clock{counts: map[string]uint64{}}
}

// FromMap builds a Clock from a plain map, defensively copying it so the
// result remains immutable even if the caller mutates their copy.
func FromMap(m map[string]uint64) Clock {
	c := Clock{counts: make(map[string]uint64, len(m))}
	for k, v := range m {
		c.counts[k] = v
	}
	return c
}

// ToMap returns a defensive copy of the clock's entries.
func (c Clock) ToMap() map[string]uint64 {
	out := make(map[string]uint64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Get returns the counter for id, or 0 if absent.
func (c Clock) Get(id string) uint64 {
	return c.counts[id]
}

// Increment returns a new clock with id's counter bumped by one. The
// hologram's own id is always present in its own clock after this: calling Increment on an absent id starts it at 1.
func (c Clock) Increment(id string) Clock {
	next := c.ToMap()
	next[id] = next[id] + 1
	return FromMap(next)
}

// Merge returns the pointwise maximum of a and b. Merge is commutative and
// associative.
func Merge(a, b Clock) Clock {
	out := a.ToMap()
	for k, v := range b.counts {
		if v > out[k] {
			out[k] = v
		}
	}
	return FromMap(out)
}

// Compare scans the union of keys in a and b. If every pairwise component of
// a is <= the corresponding component of b, and at least one is strictly
// less, a is Before b. Symmetric for After. Equal if every component
// matches. Otherwise Concurrent.
func Compare(a, b Clock) Relation {
	keys := unionKeys(a, b)
	aLessSomewhere, bLessSomewhere := false, false
	for _, k := range keys {
		av, bv := a.Get(k), b.Get(k)
		switch {
		case av < bv:
			aLessSomewhere = true
		case av > bv:
			bLessSomewhere = true
		}
	}
	switch {
	case !aLessSomewhere && !bLessSomewhere:
		return Equal
	case aLessSomewhere && !bLessSomewhere:
		return Before
	case bLessSomewhere && !aLessSomewhere:
		return After
	default:
		return Concurrent
	}
}

// MarshalJSON renders the clock as a plain {id: counter} object, since its
// backing field is unexported and Clock values must round-trip across the
// wire.
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToMap())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var m map[string]uint64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*c = FromMap(m)
	return nil
}

func unionKeys(a, b Clock) []string {
	seen := make(map[string]struct{}, len(a.counts)+len(b.counts))
	for k := range a.counts {
		seen[k] = struct{}{}
	}
	for k := range b.counts {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
