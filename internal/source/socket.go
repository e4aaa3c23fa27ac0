package source

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"sync/atomic"

	"StreamSpectra/internal/fabric"
	"StreamSpectra/internal/model"
)

// SocketReader ingests newline-terminated ASCII netflow records from a
// single TCP peer, typically nc replaying a trace.
type SocketReader struct {
	*fabric.BaseProducer[*model.VastNetflow]
	ip   string
	port int
	conn net.Conn

	nextId      uint64
	parseErrors atomic.Uint64
}

// NewSocketReader creates a TCP line source.
func NewSocketReader(ip string, port, queueLength int) *SocketReader {
	return &SocketReader{
		BaseProducer: fabric.NewBaseProducer[*model.VastNetflow](queueLength),
		ip:           ip,
		port:         port,
	}
}

// Connect dials the peer.
func (r *SocketReader) Connect() error {
	addr := fmt.Sprintf("%s:%d", r.ip, r.port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	r.conn = conn
	log.Printf("Connected to %s", addr)
	return nil
}

// Receive reads records until the peer closes the connection, then
// terminates the consumers.
func (r *SocketReader) Receive() {
	defer r.conn.Close()

	scanner := bufio.NewScanner(r.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	read := 0
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		t, err := model.ParseVastNetflow(r.nextId, line)
		if err != nil {
			r.parseErrors.Add(1)
			continue
		}
		r.nextId++
		r.Feed(t)

		read++
		if read%metricInterval == 0 {
			log.Printf("SocketReader received %d", read)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("SocketReader stopped on read error: %v", err)
	}
	r.TerminateConsumers()
}

// ParseErrors returns how many lines failed to parse.
func (r *SocketReader) ParseErrors() uint64 { return r.parseErrors.Load() }
