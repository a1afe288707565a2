package idgen

import (
	"strings"
	"testing"
)

func TestLoadPlanCodeUnique(t *testing.T) {
	if err := Init(3); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		code := LoadPlanCode()
		if !strings.HasPrefix(code, "LP") || len(code) > 32 {
			t.Fatalf("unexpected code: %s", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code: %s", code)
		}
		seen[code] = true
	}
}

func TestInitRejectsInvalidNode(t *testing.T) {
	if err := Init(-1); err == nil {
		t.Fatalf("expected error for invalid node")
	}
}
