package hologram

import (
	"context"
	"sync"
	"time"

	"github.com/meshrepublic/kudzu/internal/clock"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
	"github.com/meshrepublic/kudzu/internal/trace"
)

const maxDesires = 10

// Storer is the durability side-effect of record_trace/receive_trace: a
// hologram's own `traces` map is its fast in-memory view, but every trace
// it accepts is also handed off to the tiered storage controller.
// Satisfied by *storage.Controller; declared here so this package never
// imports storage's SQLite/Redis plumbing just to record a trace.
type Storer interface {
	Store(ctx context.Context, r StoreRequest) error
}

// StoreRequest is the subset of storage.Record a hologram can produce
// without knowing storage's internal Record shape.
type StoreRequest struct {
	Trace      trace.Trace
	HologramID string
	Importance trace.Importance
}

// CognitionClient is the external cognition backend stimulate() invokes.
// The brain's tiered dispatch and the silo layer both implement richer
// callers; this is the minimal contract a hologram needs.
type CognitionClient interface {
	Generate(ctx context.Context, prompt string) (CognitionResult, error)
}

// CognitionResult is what a cognition backend returns: free text plus zero
// or more structured actions for the constitutional gate to evaluate.
type CognitionResult struct {
	Response string
	Actions  []Action
}

// State is a hologram's full mutable state. The actor in actor.go
// is the only thing that mutates a given State concurrently with message
// delivery; the mutex exists so direct (non-actor) callers — tests, and
// the registry's reconstruction path — can also use it safely.
type State struct {
	mu sync.Mutex

	ID       string
	Purpose  string
	Traces   map[string]trace.Trace
	Peers    ProximitySet
	Beamlets map[string]ProximitySet
	Clock    clock.Clock
	Desires  []string

	CognitionEnabled  bool
	Constitution      Constitution
	CognitionEndpoint string
	Metadata          map[string]string

	storer    Storer
	cognition CognitionClient
}

// New constructs a fresh hologram. storer and
// cognition may be nil — a nil cognition client makes stimulate() always
// fail with CognitionDisabled, matching a silo's cognition_enabled=false.
func New(id, purpose string, constitution Constitution, storer Storer, cognition CognitionClient) *State {
	return &State{
		ID:           id,
		Purpose:      purpose,
		Traces:       map[string]trace.Trace{},
		Peers:        ProximitySet{},
		Beamlets:     map[string]ProximitySet{},
		Clock:        clock.New(),
		CognitionEnabled: cognition != nil,
		Constitution: constitution,
		Metadata:     map[string]string{},
		storer:       storer,
		cognition:    cognition,
	}
}

// RecordTrace creates a trace of the given purpose and hint, dedupes by
// content hash against the hologram's own map, stores
// it durably if a Storer is wired, and returns it.
func (s *State) RecordTrace(ctx context.Context, purpose trace.Purpose, hint trace.Hint, importance trace.Importance) (trace.Trace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := trace.DefaultOptions()
	opts.Importance = importance
	t := trace.New(s.ID, purpose, hint, s.Clock, opts, time.Now())
	s.Clock = t.Timestamp

	if existing, ok := s.Traces[t.ID]; ok {
		return existing, nil
	}
	s.Traces[t.ID] = t

	if s.storer != nil {
		if err := s.storer.Store(ctx, StoreRequest{Trace: t, HologramID: s.ID, Importance: importance}); err != nil {
			return t, err
		}
	}
	return t, nil
}

// Recall returns every trace matching purpose, or every trace if purpose
// is empty.
func (s *State) Recall(purpose trace.Purpose) []trace.Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recallLocked(purpose)
}

func (s *State) recallLocked(purpose trace.Purpose) []trace.Trace {
	var out []trace.Trace
	for _, t := range s.Traces {
		if purpose == "" || t.Purpose == purpose {
			out = append(out, t)
		}
	}
	return out
}

// RecallAll returns every trace the hologram holds.
func (s *State) RecallAll() []trace.Trace {
	return s.Recall("")
}

// IntroducePeer boosts proximity with peer.
func (s *State) IntroducePeer(peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Peers.Boost(peerID)
}

// ReceiveTrace is the receive_trace cast: follows the trace
// with this hologram's id, merges clocks, stores it, boosts the sender's
// proximity.
func (s *State) ReceiveTrace(ctx context.Context, t trace.Trace, fromID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	followed := trace.Follow(t, s.ID)
	s.Clock = clock.Merge(s.Clock, followed.Timestamp)

	if _, dup := s.Traces[followed.ID]; !dup {
		s.Traces[followed.ID] = followed
		if s.storer != nil {
			if err := s.storer.Store(ctx, StoreRequest{Trace: followed, HologramID: s.ID, Importance: followed.Salience.Importance}); err != nil {
				return err
			}
		}
	}
	s.Peers.Boost(fromID)
	return nil
}

// AddDesire appends a desire, rejecting once the length cap of 10 is hit.
func (s *State) AddDesire(desire string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Desires) >= maxDesires {
		return kudzuerr.New(kudzuerr.KindInvalidInput, "desire queue full (max %d)", maxDesires)
	}
	s.Desires = append(s.Desires, desire)
	return nil
}

// RemoveDesire removes the first occurrence of desire, if present.
func (s *State) RemoveDesire(desire string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.Desires {
		if d == desire {
			s.Desires = append(s.Desires[:i], s.Desires[i+1:]...)
			return
		}
	}
}

// GetDesires returns a copy of the desire queue.
func (s *State) GetDesires() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Desires...)
}

// ClearDesires empties the desire queue.
func (s *State) ClearDesires() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Desires = nil
}

// GetConstitution returns the current framework.
func (s *State) GetConstitution() Constitution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Constitution
}

// SetConstitution hot-swaps the framework, re-constrains (clears) existing
// desires, and records a constitution_change trace. production
// gates the `open` framework.
func (s *State) SetConstitution(ctx context.Context, framework Constitution, production bool) (trace.Trace, error) {
	if err := ValidateForProduction(framework, production); err != nil {
		return trace.Trace{}, err
	}

	s.mu.Lock()
	old := s.Constitution
	s.Constitution = framework
	s.Desires = nil
	s.mu.Unlock()

	return s.RecordTrace(ctx, trace.PurposeConstitutionChange,
		trace.Hint{"from": string(old), "to": string(framework)}, trace.ImportanceHigh)
}

// DelegateIO routes operation to a beamlet selected by proximity within
// capability, returning the chosen beamlet id. NotFound if no
// beamlet is registered under that capability.
func (s *State) DelegateIO(capability string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.Beamlets[capability]
	if !ok || len(set) == 0 {
		return "", kudzuerr.Of(kudzuerr.KindNotFound)
	}
	top := set.TopN(1, "")
	if len(top) == 0 {
		return "", kudzuerr.Of(kudzuerr.KindNotFound)
	}
	return top[0], nil
}

// MergeBeamlets folds newly-discovered beamlets for capability into the
// existing set at boost-level proximity, leaving already-known ones alone.
func (s *State) MergeBeamlets(capability string, discovered []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.Beamlets[capability]
	if !ok {
		set = ProximitySet{}
		s.Beamlets[capability] = set
	}
	for _, id := range discovered {
		if _, known := set[id]; !known {
			set.Boost(id)
		}
	}
}

// DecayTick applies one proximity decay step to peers and every beamlet
// capability set.
func (s *State) DecayTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Peers.Tick()
	for _, set := range s.Beamlets {
		set.Tick()
	}
}

// SuggestedPeers returns up to 3 peers by proximity, excluding exclude.
func (s *State) SuggestedPeers(exclude string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Peers.TopN(3, exclude)
}

// Snapshot returns the registry-persisted subset of state.
func (s *State) Snapshot() RegistryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RegistryRecord{
		ID:                s.ID,
		Purpose:           s.Purpose,
		Constitution:      s.Constitution,
		Desires:           append([]string(nil), s.Desires...),
		CognitionEnabled:  s.CognitionEnabled,
		CognitionEndpoint: s.CognitionEndpoint,
	}
}
