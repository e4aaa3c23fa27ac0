package feature

import (
	"fmt"
	"sync"
	"testing"
)

func TestUpdateInsertThenApply(t *testing.T) {
	m := NewMap(100)
	m.UpdateInsert("10.0.0.1", "aveBytes", SingleFeature(42))

	if !m.Exists("10.0.0.1", "aveBytes") {
		t.Fatal("Expected feature to exist after UpdateInsert")
	}
	v, err := m.Apply("10.0.0.1", "aveBytes", Value)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if v != 42.0 {
		t.Errorf("Expected 42, got %f", v)
	}

	// Replacement is in place.
	m.UpdateInsert("10.0.0.1", "aveBytes", SingleFeature(7))
	v, _ = m.Apply("10.0.0.1", "aveBytes", Value)
	if v != 7.0 {
		t.Errorf("Expected replacement value 7, got %f", v)
	}
}

func TestMissingEntry(t *testing.T) {
	m := NewMap(100)
	if m.Exists("nope", "nothing") {
		t.Error("Exists returned true for an empty map")
	}
	if _, err := m.Apply("nope", "nothing", Value); err == nil {
		t.Error("Expected an error applying to a missing entry")
	}
}

func TestEntriesAreIndependent(t *testing.T) {
	m := NewMap(100)
	m.UpdateInsert("k", "op1", SingleFeature(1))
	m.UpdateInsert("k", "op2", SingleFeature(2))
	m.UpdateInsert("other", "op1", SingleFeature(3))

	if m.Size() != 3 {
		t.Errorf("Expected 3 entries, got %d", m.Size())
	}
	v, _ := m.Apply("k", "op2", Value)
	if v != 2.0 {
		t.Errorf("Expected 2, got %f", v)
	}
}

func TestConcurrentWriters(t *testing.T) {
	// Many writers on many keys; every entry must hold the last value some
	// writer stored, and Apply after the writers join must see a complete
	// map.
	m := NewMap(1000)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("key%d", i%50)
				m.UpdateInsert(key, "op", SingleFeature(float64(i)))
			}
		}(w)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("key%d", i)
		v, err := m.Apply(key, "op", Value)
		if err != nil {
			t.Fatalf("Entry %s missing after concurrent writes: %v", key, err)
		}
		// Every writer's last store to keyN is 450+N, and the final store
		// overall is some writer's last one.
		if v != float64(450+i) {
			t.Errorf("Entry %s holds %f, expected the last stored value %d", key, v, 450+i)
		}
	}
}

func TestTopKVariant(t *testing.T) {
	m := NewMap(10)
	m.UpdateInsert("k", "top2", TopKFeature{
		Keys:        []string{"80", "443"},
		Frequencies: []float64{0.6, 0.2},
	})

	v, err := m.Apply("k", "top2", Frequency(1))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if v != 0.2 {
		t.Errorf("Expected 0.2, got %f", v)
	}

	// Projections check the variant.
	if _, err := m.Apply("k", "top2", Value); err == nil {
		t.Error("Expected variant mismatch error")
	}
}
