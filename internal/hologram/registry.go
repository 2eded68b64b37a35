package hologram

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

// RegistryRecord is exactly the persisted subset of a hologram's state:
// peer-proximity tables and traces are reloaded from storage, never from
// here.
type RegistryRecord struct {
	ID                string   `json:"id"`
	Purpose           string   `json:"purpose"`
	Constitution      Constitution `json:"constitution"`
	Desires           []string `json:"desires"`
	CognitionEnabled  bool     `json:"cognition_enabled"`
	CognitionEndpoint string   `json:"cognition_endpoint,omitempty"`
}

// Registry is the process-wide singleton that looks up live hologram
// handles by id or by purpose, and persists
// one record per hologram so a restart can reconstruct them.
// One of the process-wide singletons holding global mutable state.
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]*State
	byPurpose map[string][]*State
	path     string
}

// NewRegistry constructs an empty registry persisting records as one
// mutex-guarded JSON file per hologram under dir, rather than a database —
// the registry is small, append-mostly, and read in full only at startup.
func NewRegistry(dir string) *Registry {
	return &Registry{
		byID:      map[string]*State{},
		byPurpose: map[string][]*State{},
		path:      dir,
	}
}

// Register adds h to both index keys and persists its registry record.
func (r *Registry) Register(h *State) error {
	r.mu.Lock()
	r.byID[h.ID] = h
	r.byPurpose[h.Purpose] = append(r.byPurpose[h.Purpose], h)
	r.mu.Unlock()
	return r.persist(h.Snapshot())
}

// Lookup finds a live handle by id.
func (r *Registry) Lookup(id string) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byID[id]
	return h, ok
}

// Count returns the number of live holograms registered, for the brain's
// wake-cycle pre-check.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// LookupByPurpose returns every live hologram registered under purpose.
func (r *Registry) LookupByPurpose(purpose string) []*State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*State(nil), r.byPurpose[purpose]...)
}

// AllIDs returns every live hologram id, for broadcast fan-out.
func (r *Registry) AllIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}

// Deregister removes h from both indexes. Its registry record file is left
// in place only if keepRecord is true; destroy removes it.
func (r *Registry) Deregister(id string, keepRecord bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	list := r.byPurpose[h.Purpose]
	for i, candidate := range list {
		if candidate.ID == id {
			r.byPurpose[h.Purpose] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if !keepRecord {
		_ = os.Remove(r.recordPath(id))
	}
}

func (r *Registry) recordPath(id string) string {
	return filepath.Join(r.path, id+".json")
}

func (r *Registry) persist(rec RegistryRecord) error {
	if r.path == "" {
		return nil
	}
	if err := os.MkdirAll(r.path, 0o755); err != nil {
		return kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "create registry directory")
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "marshal registry record")
	}
	tmp := r.recordPath(rec.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "write registry record")
	}
	return os.Rename(tmp, r.recordPath(rec.ID))
}

// LoadRecords reads every persisted registry record from disk without
// reconstructing live handles — the caller (node startup) spawns a fresh
// *State per record, supplying a Storer/CognitionClient, then calls
// Register. Peer-proximity tables and traces are rebuilt separately from
// storage, never from here.
func (r *Registry) LoadRecords() ([]RegistryRecord, error) {
	if r.path == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "read registry directory")
	}
	var records []RegistryRecord
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.path, entry.Name()))
		if err != nil {
			continue
		}
		var rec RegistryRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Reconstruct rebuilds a live *State from a persisted record.
func Reconstruct(rec RegistryRecord, storer Storer, cognition CognitionClient) *State {
	h := New(rec.ID, rec.Purpose, rec.Constitution, storer, cognition)
	h.Desires = append([]string(nil), rec.Desires...)
	h.CognitionEndpoint = rec.CognitionEndpoint
	h.CognitionEnabled = rec.CognitionEnabled
	return h
}

// FindOrSpawnSilo implements the silo layer's create-or-find semantics:
// the first lookup for a domain returns the existing hologram; absent, one
// is spawned with constitution kudzu_evolve and cognition disabled.
func (r *Registry) FindOrSpawnSilo(domain string, storer Storer) (*State, error) {
	purpose := fmt.Sprintf("expertise:%s", domain)
	if existing := r.LookupByPurpose(purpose); len(existing) > 0 {
		return existing[0], nil
	}
	h := New(purpose, purpose, ConstitutionKudzuEvolve, storer, nil)
	if err := r.Register(h); err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindSpawnFailed, err, "persist silo registry record")
	}
	return h, nil
}
