package encoder

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"os"

	"github.com/meshrepublic/kudzu/internal/hrr"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

// CurrentVersion is the on-disk encoder state format version.
const CurrentVersion uint32 = 1

type onDisk struct {
	Codebook        map[string][]float64
	Vocabulary      map[string][]float64
	CoOccurrence    map[string]map[string]float64
	TokenCounts     map[string]int64
	BlendStrength   float64
	Dimension       int
	TracesProcessed int64
}

// SaveToFile persists the encoder state to path as a versioned gob blob.
func (s *State) SaveToFile(path string) error {
	s.mu.RLock()
	payload := onDisk{
		Codebook:        vecMapToFloat(s.Codebook),
		Vocabulary:      vecMapToFloat(s.vocabulary),
		CoOccurrence:    copyCoOccurrence(s.coOccurrence),
		TokenCounts:     copyCounts(s.tokenCounts),
		BlendStrength:   s.BlendStrength,
		Dimension:       s.Dimension,
		TracesProcessed: s.TracesProcessed,
	}
	s.mu.RUnlock()

	var buf bytes.Buffer
	var versionHeader [4]byte
	binary.BigEndian.PutUint32(versionHeader[:], CurrentVersion)
	if _, err := buf.Write(versionHeader[:]); err != nil {
		return err
	}
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "encode encoder state")
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// LoadFromFile loads encoder state from path. A missing or corrupt file, or
// an unrecognized version, never propagates an error —
// the caller gets a fresh empty state and the system cold-starts. The
// second return value reports whether an existing file was actually loaded,
// purely for operator visibility (logging), not for control flow.
func LoadFromFile(path string, dimension int) (*State, bool) {
	fresh := New(dimension)
	data, err := os.ReadFile(path)
	if err != nil {
		return fresh, false
	}
	if len(data) < 4 {
		return fresh, false
	}
	version := binary.BigEndian.Uint32(data[:4])
	if version != CurrentVersion {
		return fresh, false
	}
	var payload onDisk
	if err := gob.NewDecoder(bytes.NewReader(data[4:])).Decode(&payload); err != nil {
		return fresh, false
	}
	s := New(payload.Dimension)
	if len(payload.Codebook) > 0 {
		s.Codebook = floatMapToVec(payload.Codebook)
	}
	s.vocabulary = floatMapToVec(payload.Vocabulary)
	s.coOccurrence = payload.CoOccurrence
	if s.coOccurrence == nil {
		s.coOccurrence = map[string]map[string]float64{}
	}
	s.tokenCounts = payload.TokenCounts
	if s.tokenCounts == nil {
		s.tokenCounts = map[string]int64{}
	}
	s.BlendStrength = payload.BlendStrength
	s.TracesProcessed = payload.TracesProcessed
	return s, true
}

func vecMapToFloat(m map[string]hrr.Vector) map[string][]float64 {
	out := make(map[string][]float64, len(m))
	for k, v := range m {
		out[k] = v.Data
	}
	return out
}

func floatMapToVec(m map[string][]float64) map[string]hrr.Vector {
	out := make(map[string]hrr.Vector, len(m))
	for k, v := range m {
		out[k] = hrr.Vector{Data: v}
	}
	return out
}

func copyCoOccurrence(m map[string]map[string]float64) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(m))
	for a, row := range m {
		r := make(map[string]float64, len(row))
		for b, w := range row {
			r[b] = w
		}
		out[a] = r
	}
	return out
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
