package shuffle

import (
	"fmt"
	"log"
	"sync"

	"github.com/nats-io/nats.go"
)

// NATSTransport carries shuffle traffic over per-peer NATS subjects of the
// form "<prefix>.shuffle.<to>.<from>". NATS preserves publish order per
// subject, which gives the per-peer FIFO the Transport contract asks for.
//
// Each peer has a bounded outbound buffer of hwm payloads drained by its own
// worker; a full buffer drops the payload.
type NATSTransport struct {
	nc       *nats.Conn
	prefix   string
	numNodes int
	nodeId   int

	sendq []chan []byte
	subs  []*nats.Subscription
	recv  chan PeerMessage
	wg    sync.WaitGroup

	closeOnce sync.Once
}

// NewNATSTransport connects to the NATS server at url and wires the
// subjects for this node.
func NewNATSTransport(url, prefix string, numNodes, nodeId, hwm int) (*NATSTransport, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	log.Printf("Node %d connected to NATS server at %s", nodeId, url)

	t := &NATSTransport{
		nc:       nc,
		prefix:   prefix,
		numNodes: numNodes,
		nodeId:   nodeId,
		sendq:    make([]chan []byte, numNodes),
		subs:     make([]*nats.Subscription, numNodes),
		recv:     make(chan PeerMessage, hwm),
	}

	for i := 0; i < numNodes; i++ {
		t.sendq[i] = make(chan []byte, hwm)
		t.wg.Add(1)
		go t.sendWorker(i)

		from := i
		sub, err := nc.Subscribe(t.subject(nodeId, from), func(msg *nats.Msg) {
			t.recv <- PeerMessage{From: from, Data: msg.Data}
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to subscribe to peer %d: %w", i, err)
		}
		t.subs[i] = sub
	}

	return t, nil
}

func (t *NATSTransport) subject(to, from int) string {
	return fmt.Sprintf("%s.shuffle.%d.%d", t.prefix, to, from)
}

// sendWorker drains one peer's outbound buffer in order.
func (t *NATSTransport) sendWorker(peer int) {
	defer t.wg.Done()
	subject := t.subject(peer, t.nodeId)
	for payload := range t.sendq[peer] {
		if err := t.nc.Publish(subject, payload); err != nil {
			log.Printf("Node %d publish to peer %d failed: %v", t.nodeId, peer, err)
		}
	}
}

// Send enqueues a payload for a peer, dropping when the buffer is full.
func (t *NATSTransport) Send(peer int, payload []byte) error {
	select {
	case t.sendq[peer] <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Recv returns the merged stream of peer payloads.
func (t *NATSTransport) Recv() <-chan PeerMessage {
	return t.recv
}

// Close drains the outbound buffers, unsubscribes and closes the
// connection. The recv channel is closed so the pull side can exit.
func (t *NATSTransport) Close() error {
	t.closeOnce.Do(func() {
		for _, q := range t.sendq {
			close(q)
		}
		t.wg.Wait()
		for _, sub := range t.subs {
			sub.Unsubscribe()
		}
		t.nc.Flush()
		t.nc.Close()
		close(t.recv)
		log.Printf("Node %d NATS transport closed", t.nodeId)
	})
	return nil
}
