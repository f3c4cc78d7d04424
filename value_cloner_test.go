package batchloader_test

import (
	"testing"
	"time"

	"github.com/karupanerura/batchloader"
)

type clonerValue struct {
	Tags []string
}

func (v *clonerValue) Clone() *clonerValue {
	return &clonerValue{Tags: append([]string(nil), v.Tags...)}
}

type deepCopierValue struct {
	Tags []string
}

func (v *deepCopierValue) DeepCopy() *deepCopierValue {
	return &deepCopierValue{Tags: append([]string(nil), v.Tags...)}
}

type plainValue struct {
	SKU     string
	Price   [2]int64
	Updated time.Time
}

func TestDefaultValueCloner_CloneMethod(t *testing.T) {
	t.Parallel()

	original := &clonerValue{Tags: []string{"shirt"}}
	cloned := batchloader.DefaultValueCloner[*clonerValue]().CloneValue(original)
	if cloned == original {
		t.Fatal("expected a different pointer")
	}
	original.Tags[0] = "mutated"
	if cloned.Tags[0] != "shirt" {
		t.Errorf("clone shares memory with the original: %q", cloned.Tags[0])
	}
}

func TestDefaultValueCloner_DeepCopyMethod(t *testing.T) {
	t.Parallel()

	original := &deepCopierValue{Tags: []string{"shoe"}}
	cloned := batchloader.DefaultValueCloner[*deepCopierValue]().CloneValue(original)
	if cloned == original {
		t.Fatal("expected a different pointer")
	}
	original.Tags[0] = "mutated"
	if cloned.Tags[0] != "shoe" {
		t.Errorf("clone shares memory with the original: %q", cloned.Tags[0])
	}
}

func TestDefaultValueCloner_PlainValues(t *testing.T) {
	t.Parallel()

	if got := batchloader.DefaultValueCloner[int]().CloneValue(42); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := batchloader.DefaultValueCloner[string]().CloneValue("S1"); got != "S1" {
		t.Errorf("expected S1, got %q", got)
	}

	v := plainValue{SKU: "S1", Price: [2]int64{19, 99}, Updated: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	if got := batchloader.DefaultValueCloner[plainValue]().CloneValue(v); got != v {
		t.Errorf("expected %+v, got %+v", v, got)
	}
}

func TestDefaultValueCloner_Panics(t *testing.T) {
	t.Parallel()

	type withSlice struct {
		Tags []string
	}

	for _, tt := range []struct {
		name string
		f    func()
	}{
		{"pointer without Clone", func() { batchloader.DefaultValueCloner[*plainValue]() }},
		{"struct with slice", func() { batchloader.DefaultValueCloner[withSlice]() }},
		{"map", func() { batchloader.DefaultValueCloner[map[string]int]() }},
		{"interface", func() { batchloader.DefaultValueCloner[any]() }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			defer func() {
				if recover() == nil {
					t.Error("expected a panic")
				}
			}()
			tt.f()
		})
	}
}

func TestValueClonerFunc(t *testing.T) {
	t.Parallel()

	cloner := batchloader.ValueClonerFunc[[]string](func(v []string) []string {
		return append([]string(nil), v...)
	})
	original := []string{"S1"}
	cloned := cloner.CloneValue(original)
	original[0] = "mutated"
	if cloned[0] != "S1" {
		t.Errorf("clone shares memory with the original: %q", cloned[0])
	}

	var nop batchloader.NopValueCloner[[]string]
	if shared := nop.CloneValue(original); &shared[0] != &original[0] {
		t.Error("NopValueCloner must return its input")
	}
}
