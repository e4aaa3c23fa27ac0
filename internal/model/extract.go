package model

import "strings"

// ValueFunc extracts a numeric column from a tuple.
type ValueFunc[T any] func(T) float64

// KeyFunc derives the aggregation key for a tuple.
type KeyFunc[T any] func(T) string

// Tuplizer converts between a tuple and its wire form. Serialize elides the
// id; Parse assigns the id handed to it.
type Tuplizer[T any] interface {
	Parse(id uint64, line string) (T, error)
	Serialize(t T) string
}

// VastTuplizer is the Tuplizer for the VAST netflow schema.
type VastTuplizer struct{}

func (VastTuplizer) Parse(id uint64, line string) (*VastNetflow, error) {
	return ParseVastNetflow(id, line)
}

func (VastTuplizer) Serialize(t *VastNetflow) string {
	return t.Serialize()
}

// Stock key extractors.

func SourceIPKey(t *VastNetflow) string { return t.SourceIP }
func DestIPKey(t *VastNetflow) string   { return t.DestIP }

// CompositeKey joins several key extractors into one, fields separated by
// "-" in the order given.
func CompositeKey[T any](funcs ...KeyFunc[T]) KeyFunc[T] {
	return func(t T) string {
		parts := make([]string, len(funcs))
		for i, f := range funcs {
			parts[i] = f(t)
		}
		return strings.Join(parts, "-")
	}
}

// Stock value extractors for the columns the aggregators consume.

func SrcTotalBytesValue(t *VastNetflow) float64   { return t.SrcTotalBytes }
func DestTotalBytesValue(t *VastNetflow) float64  { return t.DestTotalBytes }
func SrcPayloadBytesValue(t *VastNetflow) float64 { return t.SrcPayloadBytes }
func DestPayloadBytesValue(t *VastNetflow) float64 {
	return t.DestPayloadBytes
}
func SrcPacketCountValue(t *VastNetflow) float64 {
	return t.FirstSeenSrcPacketCount
}
func DestPacketCountValue(t *VastNetflow) float64 {
	return t.FirstSeenDestPacketCount
}
func DurationValue(t *VastNetflow) float64 { return t.DurationSeconds }
func LabelValue(t *VastNetflow) float64    { return float64(t.Label) }

// Tuple is the capability every schema provides: access to the engine
// assigned id at position 0.
type Tuple interface {
	GetId() uint64
}

func (t *VastNetflow) GetId() uint64 { return t.Id }
func (t *Netflow) GetId() uint64     { return t.Id }
