package batchloader_test

import (
	"testing"

	"github.com/karupanerura/batchloader"
)

type searchKey struct {
	Term  string         `json:"term"`
	Page  int            `json:"page"`
	Tags  []string       `json:"tags,omitempty"`
	Extra map[string]int `json:"extra,omitempty"`
}

func TestJSONCacheKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  searchKey
		want string
	}{
		{"fields in declaration order", searchKey{Page: 2, Term: "Sh"}, `{"term":"Sh","page":2}`},
		{"slices keep their order", searchKey{Term: "x", Tags: []string{"b", "a"}}, `{"term":"x","page":0,"tags":["b","a"]}`},
		{"map keys are sorted", searchKey{Term: "x", Extra: map[string]int{"z": 1, "a": 2}}, `{"term":"x","page":0,"extra":{"a":2,"z":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := batchloader.JSONCacheKey(tt.key); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestJSONCacheKey_Unsupported(t *testing.T) {
	t.Parallel()

	type withFunc struct {
		F func()
	}
	got := batchloader.JSONCacheKey(withFunc{})
	if got == "" {
		t.Error("expected a fallback cache key")
	}
	if got != batchloader.JSONCacheKey(withFunc{}) {
		t.Error("expected the fallback cache key to be stable")
	}
}
