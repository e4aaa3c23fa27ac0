package graph

import (
	"testing"
	"time"

	"StreamSpectra/internal/hash"
	"StreamSpectra/internal/model"
	"StreamSpectra/internal/shuffle"
)

func timeOf(t *model.VastNetflow) float64 { return t.TimeSeconds }

func newTestMap(numNodes int, comm shuffle.Transport) *RequestMap[*model.VastNetflow] {
	return NewRequestMap(numNodes, 0, 64, comm, model.VastTuplizer{},
		model.SourceIPKey, model.DestIPKey, timeOf)
}

// drainTransport collects everything a node's transport received, allowing
// the in-process pump a moment to move payloads across.
func drainTransport(tr shuffle.Transport) []shuffle.PeerMessage {
	var msgs []shuffle.PeerMessage
	for {
		select {
		case m := <-tr.Recv():
			msgs = append(msgs, m)
		case <-time.After(100 * time.Millisecond):
			return msgs
		}
	}
}

func TestAddRequestRequiresABoundField(t *testing.T) {
	network := shuffle.NewInprocNetwork(2, 10)
	m := newTestMap(2, network.Transport(0))

	if err := m.AddRequest(EdgeRequest{ReturnNode: 1, ExpiryTime: 100}); err == nil {
		t.Error("Expected an error adding a request with no source or target")
	}
	if err := m.AddRequest(EdgeRequest{Source: "a", ReturnNode: 1, ExpiryTime: 100}); err != nil {
		t.Errorf("Source-only request rejected: %v", err)
	}
}

func TestExpiredRequestIsEvictedWithoutSend(t *testing.T) {
	network := shuffle.NewInprocNetwork(2, 10)
	tr := network.Transport(0)
	peer := network.Transport(1)
	m := newTestMap(2, tr)

	// Request expires at t=100; the tuple arrives at t=101.
	if err := m.AddRequest(EdgeRequest{Source: "src", ReturnNode: 1, ExpiryTime: 100}); err != nil {
		t.Fatal(err)
	}
	tuple := &model.VastNetflow{SourceIP: "src", DestIP: "dst", TimeSeconds: 101}
	if got := m.Process(tuple); got != 0 {
		t.Errorf("Expected 0 surviving requests, got %d", got)
	}
	if msgs := drainTransport(peer); len(msgs) != 0 {
		t.Errorf("Expected no send for an expired request, got %d", len(msgs))
	}

	// The entry is gone: a later valid-time tuple sees an empty list.
	if got := m.Process(&model.VastNetflow{SourceIP: "src", DestIP: "dst", TimeSeconds: 50}); got != 0 {
		t.Errorf("Expected the expired request to have been removed, got %d survivors", got)
	}
}

func TestMatchingRequestPushesToReturnNode(t *testing.T) {
	network := shuffle.NewInprocNetwork(2, 10)
	tr := network.Transport(0)
	peer := network.Transport(1)
	m := newTestMap(2, tr)

	// Choose a destination whose natural partition is node 0, so a push to
	// the requester on node 1 is not suppressed.
	dst := "dst0"
	for i := 0; hash.String(dst, 0)%2 != 0; i++ {
		dst = "dst" + string(rune('a'+i))
	}

	if err := m.AddRequest(EdgeRequest{Source: "src", ReturnNode: 1, ExpiryTime: 1000}); err != nil {
		t.Fatal(err)
	}
	tuple := &model.VastNetflow{SourceIP: "src", DestIP: dst, TimeSeconds: 10}
	if got := m.Process(tuple); got != 1 {
		t.Errorf("Expected 1 surviving request, got %d", got)
	}

	msgs := drainTransport(peer)
	if len(msgs) != 1 {
		t.Fatalf("Expected exactly one push to the return node, got %d", len(msgs))
	}
	if m.Pushes() != 1 {
		t.Errorf("Push counter expected 1, got %d", m.Pushes())
	}

	// A second identical request must not produce a second send for the
	// same tuple: sentEdges caps it at one per peer.
	if err := m.AddRequest(EdgeRequest{Source: "src", ReturnNode: 1, ExpiryTime: 1000}); err != nil {
		t.Fatal(err)
	}
	m.Process(tuple)
	if msgs := drainTransport(peer); len(msgs) != 1 {
		t.Errorf("Expected one send per peer per tuple, got %d extra", len(msgs))
	}
}

func TestNaturalPartitionSuppressesPush(t *testing.T) {
	network := shuffle.NewInprocNetwork(2, 10)
	tr := network.Transport(0)
	peer := network.Transport(1)
	m := newTestMap(2, tr)

	// Destination hashing to node 1 means node 1 receives the tuple through
	// the shuffle anyway; the source-bound request from node 1 is skipped.
	dst := "x"
	for i := 0; hash.String(dst, 0)%2 != 1; i++ {
		dst = "x" + string(rune('a'+i))
	}

	if err := m.AddRequest(EdgeRequest{Source: "src", ReturnNode: 1, ExpiryTime: 1000}); err != nil {
		t.Fatal(err)
	}
	m.Process(&model.VastNetflow{SourceIP: "src", DestIP: dst, TimeSeconds: 10})

	if msgs := drainTransport(peer); len(msgs) != 0 {
		t.Errorf("Expected natural-partition suppression, got %d sends", len(msgs))
	}
	if m.RequestsViewed() == 0 {
		t.Error("Expected the request to have been viewed")
	}
}
