package topk

import "sort"

// slidingWindow tracks value frequencies over the last n observations for a
// single key. Observations fill an active block of b elements; on rotation
// the active block joins a ring of n/b archived blocks and the block that
// falls off the ring has its counts subtracted from the running totals.
type slidingWindow struct {
	blockSize int
	ringSize  int

	active      map[string]uint64
	activeCount int
	blocks      []map[string]uint64

	totals      map[string]uint64
	windowCount uint64

	// arrival index per value, for most-recently-seen tie breaks.
	lastSeen map[string]uint64
	arrivals uint64
}

func newSlidingWindow(n, b int) *slidingWindow {
	if b < 1 {
		b = 1
	}
	ring := n / b
	if ring < 1 {
		ring = 1
	}
	return &slidingWindow{
		blockSize: b,
		ringSize:  ring,
		active:    make(map[string]uint64),
		totals:    make(map[string]uint64),
		lastSeen:  make(map[string]uint64),
	}
}

// insert counts one observation, rotating blocks every blockSize arrivals.
func (w *slidingWindow) insert(value string) {
	w.arrivals++
	w.lastSeen[value] = w.arrivals

	w.active[value]++
	w.activeCount++
	w.totals[value]++
	w.windowCount++

	if w.activeCount < w.blockSize {
		return
	}

	w.blocks = append(w.blocks, w.active)
	w.active = make(map[string]uint64)
	w.activeCount = 0

	if len(w.blocks) > w.ringSize {
		expired := w.blocks[0]
		w.blocks = w.blocks[1:]
		for v, c := range expired {
			w.windowCount -= c
			if w.totals[v] <= c {
				delete(w.totals, v)
				delete(w.lastSeen, v)
			} else {
				w.totals[v] -= c
			}
		}
	}
}

// top returns the k values with the highest running totals, descending, ties
// broken by most recently seen. Both slices have length exactly k; unused
// entries hold "" and 0. Frequencies are normalized by the current window
// population.
func (w *slidingWindow) top(k int) ([]string, []float64) {
	type entry struct {
		value string
		count uint64
		seen  uint64
	}
	entries := make([]entry, 0, len(w.totals))
	for v, c := range w.totals {
		entries = append(entries, entry{value: v, count: c, seen: w.lastSeen[v]})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].seen > entries[j].seen
	})

	keys := make([]string, k)
	frequencies := make([]float64, k)
	for i := 0; i < k && i < len(entries); i++ {
		keys[i] = entries[i].value
		frequencies[i] = float64(entries[i].count) / float64(w.windowCount)
	}
	return keys, frequencies
}
