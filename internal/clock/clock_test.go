package clock

import "testing"

func TestIncrementMonotonic(t *testing.T) {
	c := New()
	c = c.Increment("h1")
	if c.Get("h1") != 1 {
		t.Fatalf("expected 1, got %d", c.Get("h1"))
	}
	c2 := c.Increment("h1")
	if c2.Get("h1") != 2 {
		t.Fatalf("expected 2, got %d", c2.Get("h1"))
	}
	if c.Get("h1") != 1 {
		t.Fatalf("clock mutated in place: %d", c.Get("h1"))
	}
}

func TestMergeCommutativeAssociative(t *testing.T) {
	a := FromMap(map[string]uint64{"h1": 3, "h2": 1})
	b := FromMap(map[string]uint64{"h1": 1, "h3": 5})
	cc := FromMap(map[string]uint64{"h2": 7})

	if Compare(Merge(a, b), Merge(b, a)) != Equal {
		t.Fatalf("merge not commutative")
	}
	left := Merge(Merge(a, b), cc)
	right := Merge(a, Merge(b, cc))
	if Compare(left, right) != Equal {
		t.Fatalf("merge not associative")
	}
}

func TestCompare(t *testing.T) {
	a := FromMap(map[string]uint64{"h1": 1, "h2": 2})
	b := FromMap(map[string]uint64{"h1": 2, "h2": 2})
	if Compare(a, b) != Before {
		t.Fatalf("expected Before, got %v", Compare(a, b))
	}
	if Compare(b, a) != After {
		t.Fatalf("expected After, got %v", Compare(b, a))
	}

	c := FromMap(map[string]uint64{"h1": 1, "h3": 1})
	d := FromMap(map[string]uint64{"h1": 2, "h2": 1})
	if Compare(c, d) != Concurrent {
		t.Fatalf("expected Concurrent, got %v", Compare(c, d))
	}

	if Compare(a, a) != Equal {
		t.Fatalf("expected Equal")
	}
}
