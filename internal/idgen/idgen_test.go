package idgen

import (
	"strings"
	"testing"
)

func TestGenerateShape(t *testing.T) {
	id, err := Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(id, Prefix) {
		t.Fatalf("expected prefix %q, got %q", Prefix, id)
	}
	if len(id) != len(Prefix)+Length {
		t.Fatalf("unexpected id length %d for %q", len(id), id)
	}
}

func TestGenerateIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
