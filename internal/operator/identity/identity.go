package identity

import (
	"StreamSpectra/internal/fabric"
	"StreamSpectra/internal/feature"
	"StreamSpectra/internal/model"
)

// Identity passes a chosen field through unchanged, publishing it as a
// SingleFeature. Its main use is lifting the trace label into the feature
// map and the subscriber in create-features mode.
type Identity[T model.Tuple] struct {
	fabric.Notifier
	nodeId     int
	featureMap *feature.Map
	identifier string
	value      func(T) float64
	key        func(T) string
}

// New creates an identity operator over the given field.
func New[T model.Tuple](nodeId int, featureMap *feature.Map, identifier string,
	value func(T) float64, key func(T) string) *Identity[T] {
	return &Identity[T]{
		Notifier:   fabric.NewNotifier(identifier),
		nodeId:     nodeId,
		featureMap: featureMap,
		identifier: identifier,
		value:      value,
		key:        key,
	}
}

// Consume publishes the field value for the tuple's key.
func (op *Identity[T]) Consume(t T) bool {
	v := op.value(t)
	op.featureMap.UpdateInsert(op.key(t), op.identifier, feature.SingleFeature(v))
	op.Notify(t.GetId(), v)
	return true
}

// Terminate implements fabric.Consumer.
func (op *Identity[T]) Terminate() {}
