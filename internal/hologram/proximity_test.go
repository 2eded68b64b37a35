package hologram

import (
	"math"
	"testing"
)

func TestProximityBoostSaturates(t *testing.T) {
	p := ProximitySet{}
	p.Boost("b")
	p.Boost("b")
	p.Boost("b")
	p.Boost("b")
	p.Boost("b")
	p.Boost("b")
	if p["b"] != 1.0 {
		t.Fatalf("expected proximity capped at 1.0, got %v", p["b"])
	}
}

func TestProximityDecayScenario(t *testing.T) {
	p := ProximitySet{}
	p.Boost("b")
	if math.Abs(p["b"]-0.2) > 1e-9 {
		t.Fatalf("expected 0.2 after introduction, got %v", p["b"])
	}

	for i := 0; i < 16; i++ {
		p.Tick()
	}
	if _, ok := p["b"]; !ok {
		t.Fatalf("expected entry to survive 16 ticks")
	}
	if math.Abs(p["b"]-0.0886) > 0.001 {
		t.Fatalf("expected ~0.0886 after 16 ticks, got %v", p["b"])
	}

	for i := 0; i < 24; i++ { // 40 total
		p.Tick()
	}
	if _, ok := p["b"]; !ok {
		t.Fatalf("expected entry to survive 40 ticks")
	}
	if math.Abs(p["b"]-0.0257) > 0.001 {
		t.Fatalf("expected ~0.0257 after 40 ticks, got %v", p["b"])
	}

	for i := 0; i < 20; i++ { // 60 total
		p.Tick()
	}
	if _, ok := p["b"]; ok {
		t.Fatalf("expected entry removed by 60 ticks")
	}
}

func TestProximityTopNExcludesSelf(t *testing.T) {
	p := ProximitySet{"a": 0.9, "b": 0.5, "c": 0.8}
	top := p.TopN(2, "a")
	if len(top) != 2 || top[0] != "c" || top[1] != "b" {
		t.Fatalf("expected [c b], got %v", top)
	}
}
