package topk

import (
	"sync"

	"StreamSpectra/internal/fabric"
	"StreamSpectra/internal/feature"
	"StreamSpectra/internal/model"
)

// TopK maintains the approximate k most frequent values of a categorical
// field per key, over a sliding window of n elements in blocks of b, and
// publishes a TopKFeature after every consumed tuple.
//
// Memory per key is O(n/b * distinct values per block).
type TopK[T model.Tuple] struct {
	fabric.Notifier
	n          int
	b          int
	k          int
	nodeId     int
	featureMap *feature.Map
	identifier string
	value      func(T) string
	key        func(T) string

	mu      sync.Mutex
	windows map[string]*slidingWindow
}

// New creates a top-k operator. value extracts the categorical field being
// counted; key derives the aggregation key.
func New[T model.Tuple](n, b, k, nodeId int, featureMap *feature.Map,
	identifier string, value func(T) string, key func(T) string) *TopK[T] {
	if k < 1 {
		k = 1
	}
	return &TopK[T]{
		Notifier:   fabric.NewNotifier(identifier),
		n:          n,
		b:          b,
		k:          k,
		nodeId:     nodeId,
		featureMap: featureMap,
		identifier: identifier,
		value:      value,
		key:        key,
		windows:    make(map[string]*slidingWindow),
	}
}

// Consume counts one tuple and emits the refreshed top-k feature.
func (t *TopK[T]) Consume(tuple T) bool {
	key := t.key(tuple)

	t.mu.Lock()
	w, ok := t.windows[key]
	if !ok {
		w = newSlidingWindow(t.n, t.b)
		t.windows[key] = w
	}
	w.insert(t.value(tuple))
	keys, frequencies := w.top(t.k)
	t.mu.Unlock()

	t.featureMap.UpdateInsert(key, t.identifier, feature.TopKFeature{
		Keys:        keys,
		Frequencies: frequencies,
	})
	t.Notify(tuple.GetId(), frequencies[0])
	return true
}

// Terminate implements fabric.Consumer. Nothing to clean up.
func (t *TopK[T]) Terminate() {}
