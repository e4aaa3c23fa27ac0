package filter

import (
	"errors"
	"log"
	"sync/atomic"

	"StreamSpectra/internal/expression"
	"StreamSpectra/internal/fabric"
	"StreamSpectra/internal/model"
)

// Filter gates tuples on an expression evaluated in the context of the
// tuple's key. Matches pass through unchanged to the registered consumers;
// non-matches and failed evaluations are dropped.
type Filter[T model.Tuple] struct {
	*fabric.BaseProducer[T]
	expr       *expression.Expression
	nodeId     int
	identifier string
	key        func(T) string

	matched  atomic.Uint64
	dropped  atomic.Uint64
	failures atomic.Uint64
}

// New creates a filter operator with the given output queue length.
func New[T model.Tuple](expr *expression.Expression, nodeId int,
	identifier string, key func(T) string, queueLength int) *Filter[T] {
	return &Filter[T]{
		BaseProducer: fabric.NewBaseProducer[T](queueLength),
		expr:         expr,
		nodeId:       nodeId,
		identifier:   identifier,
		key:          key,
	}
}

// Consume evaluates the expression for the tuple's key and forwards on a
// non-zero result.
func (f *Filter[T]) Consume(t T) bool {
	result, err := f.expr.Evaluate(f.key(t))
	if err != nil {
		if !errors.Is(err, expression.ErrEvaluationFailed) {
			log.Printf("filter %s: unexpected evaluation error: %v", f.identifier, err)
		}
		f.failures.Add(1)
		return true
	}
	if result != 0 {
		f.matched.Add(1)
		f.Feed(t)
	} else {
		f.dropped.Add(1)
	}
	return true
}

// Terminate flushes pending matches and propagates termination downstream.
func (f *Filter[T]) Terminate() {
	f.TerminateConsumers()
}

// Matched returns how many tuples passed the filter.
func (f *Filter[T]) Matched() uint64 { return f.matched.Load() }

// Dropped returns how many tuples the filter rejected.
func (f *Filter[T]) Dropped() uint64 { return f.dropped.Load() }

// Failures returns how many evaluations failed and were treated as false.
func (f *Filter[T]) Failures() uint64 { return f.failures.Load() }
