package topk

import (
	"strconv"
	"testing"

	"StreamSpectra/internal/feature"
	"StreamSpectra/internal/model"
)

func destPortValue(t *model.VastNetflow) string {
	return strconv.Itoa(t.DestPort)
}

func makeFlow(id uint64, destIP string, destPort int) *model.VastNetflow {
	return &model.VastNetflow{Id: id, DestIP: destIP, DestPort: destPort}
}

func topFeature(t *testing.T, fm *feature.Map, key string) feature.TopKFeature {
	t.Helper()
	var got feature.TopKFeature
	_, err := fm.Apply(key, "top2", func(f feature.Feature) (float64, error) {
		got = f.(feature.TopKFeature)
		return 0, nil
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	return got
}

func TestTopKRotation(t *testing.T) {
	fm := feature.NewMap(100)
	op := New(10, 5, 2, 0, fm, "top2", destPortValue, model.DestIPKey)

	// First block: five observations of port 80.
	for i := 0; i < 5; i++ {
		op.Consume(makeFlow(uint64(i), "10.0.0.1", 80))
	}
	f := topFeature(t, fm, "10.0.0.1")
	if len(f.Keys) != 2 || len(f.Frequencies) != 2 {
		t.Fatalf("Expected arrays of length 2, got %d/%d", len(f.Keys), len(f.Frequencies))
	}
	if f.Keys[0] != "80" || f.Frequencies[0] != 1.0 {
		t.Errorf("Expected (80, 1.0) after first block, got (%s, %f)", f.Keys[0], f.Frequencies[0])
	}
	if f.Keys[1] != "" || f.Frequencies[1] != 0.0 {
		t.Errorf("Expected empty second slot, got (%s, %f)", f.Keys[1], f.Frequencies[1])
	}

	// Second block: five observations of port 443.
	for i := 5; i < 10; i++ {
		op.Consume(makeFlow(uint64(i), "10.0.0.1", 443))
	}
	f = topFeature(t, fm, "10.0.0.1")
	if f.Frequencies[0] != 0.5 || f.Frequencies[1] != 0.5 {
		t.Errorf("Expected frequencies 0.5/0.5 after second block, got %v", f.Frequencies)
	}
	// Tie broken by most recently seen.
	if f.Keys[0] != "443" || f.Keys[1] != "80" {
		t.Errorf("Expected keys [443 80], got %v", f.Keys)
	}
}

func TestTopKWindowSlides(t *testing.T) {
	fm := feature.NewMap(100)
	op := New(10, 5, 2, 0, fm, "top2", destPortValue, model.DestIPKey)

	// Three full blocks: the first block of port 80 falls off the ring.
	for i := 0; i < 5; i++ {
		op.Consume(makeFlow(uint64(i), "10.0.0.1", 80))
	}
	for i := 5; i < 15; i++ {
		op.Consume(makeFlow(uint64(i), "10.0.0.1", 443))
	}
	f := topFeature(t, fm, "10.0.0.1")
	if f.Keys[0] != "443" || f.Frequencies[0] != 1.0 {
		t.Errorf("Expected 443 to own the window, got (%s, %f)", f.Keys[0], f.Frequencies[0])
	}
}

func TestTopKEmissionInvariants(t *testing.T) {
	fm := feature.NewMap(100)
	op := New(16, 4, 3, 0, fm, "top2", destPortValue, model.DestIPKey)

	ports := []int{80, 443, 53, 22, 80, 80, 443, 8080, 25, 80, 53, 443}
	for i, p := range ports {
		op.Consume(makeFlow(uint64(i), "10.0.0.9", p))

		f := topFeature(t, fm, "10.0.0.9")
		if len(f.Keys) != 3 || len(f.Frequencies) != 3 {
			t.Fatalf("Arrays must have length k=3, got %d/%d", len(f.Keys), len(f.Frequencies))
		}
		sum := 0.0
		for j, freq := range f.Frequencies {
			if freq < 0 || freq > 1 {
				t.Fatalf("Frequency %f out of [0,1]", freq)
			}
			if j > 0 && freq > f.Frequencies[j-1] {
				t.Fatalf("Frequencies not non-increasing: %v", f.Frequencies)
			}
			sum += freq
		}
		if sum > 1.0+1e-9 {
			t.Fatalf("Frequencies sum %f exceeds 1", sum)
		}
	}
}
