package shuffle

import "sync"

// InprocNetwork connects the shuffle instances of a single process with
// buffered channels. It backs single-node runs and the tests; the channel
// matrix gives the same per-peer FIFO guarantees as the NATS transport.
type InprocNetwork struct {
	numNodes int
	hwm      int
	// links[to][from] carries payloads from one node to another.
	links [][]chan []byte
}

// NewInprocNetwork creates the channel matrix for numNodes nodes with
// per-link capacity hwm.
func NewInprocNetwork(numNodes, hwm int) *InprocNetwork {
	links := make([][]chan []byte, numNodes)
	for to := range links {
		links[to] = make([]chan []byte, numNodes)
		for from := range links[to] {
			links[to][from] = make(chan []byte, hwm)
		}
	}
	return &InprocNetwork{numNodes: numNodes, hwm: hwm, links: links}
}

// Transport returns the node-local view of the network.
func (n *InprocNetwork) Transport(nodeId int) Transport {
	t := &inprocTransport{
		network: n,
		nodeId:  nodeId,
		recv:    make(chan PeerMessage, n.hwm),
		done:    make(chan struct{}),
	}
	for from := 0; from < n.numNodes; from++ {
		t.wg.Add(1)
		go t.pump(from)
	}
	return t
}

type inprocTransport struct {
	network *InprocNetwork
	nodeId  int
	recv    chan PeerMessage
	done    chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once
}

// pump forwards one inbound link into the merged recv channel, preserving
// that link's order.
func (t *inprocTransport) pump(from int) {
	defer t.wg.Done()
	link := t.network.links[t.nodeId][from]
	for {
		select {
		case payload, ok := <-link:
			if !ok {
				return
			}
			select {
			case t.recv <- PeerMessage{From: from, Data: payload}:
			case <-t.done:
				return
			}
		case <-t.done:
			return
		}
	}
}

func (t *inprocTransport) Send(peer int, payload []byte) error {
	select {
	case t.network.links[peer][t.nodeId] <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (t *inprocTransport) Recv() <-chan PeerMessage {
	return t.recv
}

func (t *inprocTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.wg.Wait()
		close(t.recv)
	})
	return nil
}
