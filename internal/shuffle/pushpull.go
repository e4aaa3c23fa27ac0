package shuffle

import (
	"log"
	"sync"
	"sync/atomic"

	"StreamSpectra/internal/fabric"
	"StreamSpectra/internal/hash"
	"StreamSpectra/internal/model"
)

// TerminateMessage is the sentinel payload that tells a peer's pull side a
// sender is done. The pull goroutine exits once every peer has sent it.
const TerminateMessage = "TERMINATE"

const metricInterval = 100000

// PushPull partitions the stream across the cluster. As a consumer it
// hashes the source and destination endpoints of each tuple and pushes the
// tuple (id elided) to the one or two owning nodes; as a producer it pulls
// payloads from all peers, assigns fresh per-peer monotonic ids and feeds
// the local downstream operators.
//
// Ordering is per-peer FIFO on both sides. Within the high-water budget
// delivery is at-least-once locally; the two routing replicas are not
// deduplicated downstream.
type PushPull[T model.Tuple] struct {
	*fabric.BaseProducer[T]
	numNodes  int
	nodeId    int
	tuplizer  model.Tuplizer[T]
	sourceKey func(T) string
	destKey   func(T) string
	transport Transport

	consumeCount uint64
	sendFails    atomic.Uint64
	parseErrors  atomic.Uint64
	pullCounts   []uint64

	terminateOnce sync.Once
	wg            sync.WaitGroup
}

// NewPushPull creates the shuffle operator for this node. Start must be
// called before any tuple is consumed.
func NewPushPull[T model.Tuple](queueLength, numNodes, nodeId int,
	tuplizer model.Tuplizer[T], sourceKey, destKey func(T) string,
	transport Transport) *PushPull[T] {
	return &PushPull[T]{
		BaseProducer: fabric.NewBaseProducer[T](queueLength),
		numNodes:     numNodes,
		nodeId:       nodeId,
		tuplizer:     tuplizer,
		sourceKey:    sourceKey,
		destKey:      destKey,
		transport:    transport,
		pullCounts:   make([]uint64, numNodes),
	}
}

// Start launches the pull goroutine.
func (p *PushPull[T]) Start() {
	p.wg.Add(1)
	go p.pull()
}

// Consume routes one locally produced tuple to the nodes owning its source
// and destination hashes, coalescing to a single send when they agree.
func (p *PushPull[T]) Consume(t T) bool {
	p.consumeCount++
	if p.consumeCount%metricInterval == 0 {
		log.Printf("Node %d shuffle consumeCount %d", p.nodeId, p.consumeCount)
	}

	node1 := int(hash.String(p.sourceKey(t), 0)) % p.numNodes
	node2 := int(hash.String(p.destKey(t), 0)) % p.numNodes

	payload := []byte(p.tuplizer.Serialize(t))
	if err := p.transport.Send(node1, payload); err != nil {
		p.sendFails.Add(1)
	}
	if node2 != node1 {
		if err := p.transport.Send(node2, payload); err != nil {
			p.sendFails.Add(1)
		}
	}
	return true
}

// pull drains the peer channels, assigns local ids and feeds downstream.
// It exits once every peer has sent the terminate sentinel (or the
// transport closed underneath us), then terminates the local consumers.
func (p *PushPull[T]) pull() {
	defer p.wg.Done()

	peersDone := make([]bool, p.numNodes)
	remaining := p.numNodes

	for msg := range p.transport.Recv() {
		if string(msg.Data) == TerminateMessage {
			if !peersDone[msg.From] {
				peersDone[msg.From] = true
				remaining--
			}
			if remaining == 0 {
				break
			}
			continue
		}

		id := p.pullCounts[msg.From]
		p.pullCounts[msg.From]++
		if id%metricInterval == 0 && id > 0 {
			log.Printf("Node %d PullCount[%d] %d", p.nodeId, msg.From, id)
		}

		t, err := p.tuplizer.Parse(id, string(msg.Data))
		if err != nil {
			p.parseErrors.Add(1)
			continue
		}
		p.Feed(t)
	}

	log.Printf("Node %d exiting shuffle pull", p.nodeId)
	p.TerminateConsumers()
}

// Terminate sends the sentinel to every peer so each pull side can account
// for this node being done.
func (p *PushPull[T]) Terminate() {
	p.terminateOnce.Do(func() {
		for i := 0; i < p.numNodes; i++ {
			if err := p.transport.Send(i, []byte(TerminateMessage)); err != nil {
				log.Printf("Node %d failed to send terminate to peer %d: %v", p.nodeId, i, err)
			}
		}
	})
}

// Wait blocks until the pull goroutine has exited.
func (p *PushPull[T]) Wait() {
	p.wg.Wait()
}

// SendFails returns how many payloads were dropped at the high-water mark.
func (p *PushPull[T]) SendFails() uint64 { return p.sendFails.Load() }

// ParseErrors returns how many received payloads failed to parse.
func (p *PushPull[T]) ParseErrors() uint64 { return p.parseErrors.Load() }
