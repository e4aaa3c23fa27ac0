package eh

import (
	"sync"

	"StreamSpectra/internal/fabric"
	"StreamSpectra/internal/feature"
	"StreamSpectra/internal/model"
)

// Variance maintains a sliding-window variance per key over a chosen numeric
// column, sharing the histogram machinery with Ave.
type Variance[T model.Tuple] struct {
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

// NewVariance creates a windowed variance operator.
func NewVariance[T model.Tuple](n, k uint64, nodeId int, featureMap *feature.Map,
	identifier string, value func(T) float64, key func(T) string) *Variance[T] {
	return &Variance[T]{
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
func (a *Variance[T]) Consume(t T) bool {
	key := a.key(t)

	a.mu.Lock()
	h, ok := a.hists[key]
	if !ok {
		h = NewHistogram(a.n, a.k)
		a.hists[key] = h
	}
	h.Add(a.value(t))
	estimate := h.Variance()
	a.mu.Unlock()

	a.featureMap.UpdateInsert(key, a.identifier, feature.SingleFeature(estimate))
	a.Notify(t.GetId(), estimate)
	return true
}

// Terminate implements fabric.Consumer. Nothing to clean up.
func (a *Variance[T]) Terminate() {}
