package eh

import (
	"sync"

	"StreamSpectra/internal/fabric"
	"StreamSpectra/internal/feature"
	"StreamSpectra/internal/model"
)

// Ave maintains a sliding-window mean per key over a chosen numeric column
// and publishes it to the feature map after every consumed tuple.
//
// Histograms are created lazily per key and never evicted; the memory bound
// is O(log N) per distinct key. The window clock is the arrival rank, so a
// tuple whose timestamp moves backwards is simply treated as the newest
// observation.
type Ave[T model.Tuple] struct {
	fabric.Notifier
	n          uint64
	k          uint64
	nodeId     int
	featureMap *feature.Map
	identifier string
	value      func(T) float64
	key        func(T) string

	mu    sync.Mutex
	hists map[string]*Histogram
}

// NewAve creates a windowed mean operator.
func NewAve[T model.Tuple](n, k uint64, nodeId int, featureMap *feature.Map,
	identifier string, value func(T) float64, key func(T) string) *Ave[T] {
	return &Ave[T]{
		Notifier:   fabric.NewNotifier(identifier),
		n:          n,
		k:          k,
		nodeId:     nodeId,
		featureMap: featureMap,
		identifier: identifier,
		value:      value,
		key:        key,
		hists:      make(map[string]*Histogram),
	}
}

// Consume folds one tuple into its key's histogram and emits the estimate.
func (a *Ave[T]) Consume(t T) bool {
	key := a.key(t)

	a.mu.Lock()
	h, ok := a.hists[key]
	if !ok {
		h = NewHistogram(a.n, a.k)
		a.hists[key] = h
	}
	h.Add(a.value(t))
	estimate := h.Mean()
	a.mu.Unlock()

	a.featureMap.UpdateInsert(key, a.identifier, feature.SingleFeature(estimate))
	a.Notify(t.GetId(), estimate)
	return true
}

// Terminate implements fabric.Consumer. Nothing to clean up.
func (a *Ave[T]) Terminate() {}
