package graph

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"StreamSpectra/internal/hash"
	"StreamSpectra/internal/model"
	"StreamSpectra/internal/shuffle"
)

// RequestMap holds the edge requests peers have made of this node. Requests
// live in a fixed-size hash table, one lock and one list per bucket; a
// request is indexed by its source hash, its target hash, or the product of
// both, depending on which fields are bound.
//
// Process looks a tuple up under all three schemes, evicts requests that
// have expired by the tuple's clock, and pushes the tuple to each matching
// requester that would not receive it anyway through its natural partition.
type RequestMap[T model.Tuple] struct {
	numNodes      int
	nodeId        int
	tableCapacity uint32

	buckets []requestBucket

	comm     shuffle.Transport
	tuplizer model.Tuplizer[T]
	source   func(T) string
	target   func(T) string
	timeOf   func(T) float64

	pushes    atomic.Uint64
	pushFails atomic.Uint64
	viewed    atomic.Uint64

	terminated atomic.Bool
}

type requestBucket struct {
	mu       sync.Mutex
	requests []EdgeRequest
}

// NewRequestMap creates a request map backed by the given edge communicator.
func NewRequestMap[T model.Tuple](numNodes, nodeId, tableCapacity int,
	comm shuffle.Transport, tuplizer model.Tuplizer[T],
	source, target func(T) string, timeOf func(T) float64) *RequestMap[T] {
	return &RequestMap[T]{
		numNodes:      numNodes,
		nodeId:        nodeId,
		tableCapacity: uint32(tableCapacity),
		buckets:       make([]requestBucket, tableCapacity),
		comm:          comm,
		tuplizer:      tuplizer,
		source:        source,
		target:        target,
		timeOf:        timeOf,
	}
}

// AddRequest indexes a request by its bound fields.
func (m *RequestMap[T]) AddRequest(r EdgeRequest) error {
	var index uint32
	switch {
	case r.Source == "" && r.Target != "":
		index = hash.String(r.Target, 0) % m.tableCapacity
	case r.Source != "" && r.Target == "":
		index = hash.String(r.Source, 0) % m.tableCapacity
	case r.Source != "" && r.Target != "":
		index = (hash.String(r.Source, 0) * hash.String(r.Target, 0)) % m.tableCapacity
	default:
		return fmt.Errorf("node %d: edge request with no source or target", m.nodeId)
	}

	b := &m.buckets[index]
	b.mu.Lock()
	b.requests = append(b.requests, r)
	b.mu.Unlock()
	return nil
}

// Process matches a tuple against the open requests and returns how many
// surviving requests were examined; a bucket reached by more than one lookup
// pass is counted once. At most one send happens per peer per tuple across
// all three lookup passes.
func (m *RequestMap[T]) Process(t T) int {
	src := m.source(t)
	trg := m.target(t)
	srcHash := hash.String(src, 0)
	trgHash := hash.String(trg, 0)
	srcIdx := srcHash % m.tableCapacity
	trgIdx := trgHash % m.tableCapacity
	bothIdx := (srcHash * trgHash) % m.tableCapacity

	sentEdges := make([]bool, m.numNodes)

	total := 0
	// Source-indexed requests: the requester already owns the target
	// partition, so skip it there.
	total += m.processBucket(t, srcIdx, sentEdges,
		func(r EdgeRequest) bool {
			return r.Source == src && int(trgHash)%m.numNodes != r.ReturnNode
		})
	// Target-indexed requests, symmetric.
	n := m.processBucket(t, trgIdx, sentEdges,
		func(r EdgeRequest) bool {
			return r.Target == trg && int(srcHash)%m.numNodes != r.ReturnNode
		})
	if trgIdx != srcIdx {
		total += n
	}
	// Fully bound requests.
	n = m.processBucket(t, bothIdx, sentEdges,
		func(r EdgeRequest) bool {
			return r.Source == src && r.Target == trg &&
				int(srcHash)%m.numNodes != r.ReturnNode &&
				int(trgHash)%m.numNodes != r.ReturnNode
		})
	if bothIdx != srcIdx && bothIdx != trgIdx {
		total += n
	}
	return total
}

func (m *RequestMap[T]) processBucket(t T, index uint32, sentEdges []bool,
	matches func(EdgeRequest) bool) int {
	now := m.timeOf(t)
	b := &m.buckets[index]

	b.mu.Lock()
	defer b.mu.Unlock()

	m.viewed.Add(uint64(len(b.requests)))

	count := 0
	kept := b.requests[:0]
	for _, r := range b.requests {
		if r.Expired(now) {
			continue
		}
		kept = append(kept, r)
		count++

		if !matches(r) {
			continue
		}
		node := r.ReturnNode
		if sentEdges[node] || m.terminated.Load() {
			continue
		}
		sentEdges[node] = true
		payload := []byte(m.tuplizer.Serialize(t))
		if err := m.comm.Send(node, payload); err != nil {
			m.pushFails.Add(1)
		} else {
			m.pushes.Add(1)
		}
	}
	b.requests = kept
	return count
}

// Terminate tells the edge communicator no more pushes will come from this
// node.
func (m *RequestMap[T]) Terminate() {
	if m.terminated.CompareAndSwap(false, true) {
		for i := 0; i < m.numNodes; i++ {
			if err := m.comm.Send(i, []byte(shuffle.TerminateMessage)); err != nil {
				log.Printf("Node %d failed to send terminate to peer %d: %v", m.nodeId, i, err)
			}
		}
	}
}

// Pushes returns how many tuples were pushed to requesters.
func (m *RequestMap[T]) Pushes() uint64 { return m.pushes.Load() }

// PushFails returns how many pushes were dropped by the communicator.
func (m *RequestMap[T]) PushFails() uint64 { return m.pushFails.Load() }

// RequestsViewed returns how many requests Process has examined in total.
func (m *RequestMap[T]) RequestsViewed() uint64 { return m.viewed.Load() }
