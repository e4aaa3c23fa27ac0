package sink

import (
	"context"
	"fmt"
	"log"
	"sync"

	"StreamSpectra/internal/config"
	"StreamSpectra/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createMatchedFlowsTableStatement = `
CREATE TABLE IF NOT EXISTS matched_flows (
    TimeSeconds     Float64,
    SourceIP        String,
    DestIP          String,
    SourcePort      Int32,
    DestPort        Int32,
    Protocol        String,
    DurationSeconds Float64,
    SrcTotalBytes   Float64,
    DestTotalBytes  Float64
) ENGINE = MergeTree()
ORDER BY (DestIP, TimeSeconds);
`

const defaultBatchSize = 1000

// ClickHouseWriter batches matched tuples into the matched_flows table.
type ClickHouseWriter struct {
	conn      driver.Conn
	batchSize int

	mu  sync.Mutex
	buf []*model.VastNetflow
}

// NewClickHouseWriter connects and ensures the table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig, batchSize int) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createMatchedFlowsTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create matched_flows table: %w", err)
	}
	log.Printf("ClickHouse sink connected, database %s at %s:%d", cfg.Database, cfg.Host, cfg.Port)

	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &ClickHouseWriter{
		conn:      conn,
		batchSize: batchSize,
		buf:       make([]*model.VastNetflow, 0, batchSize),
	}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Consume buffers one matched tuple, flushing a full batch.
func (w *ClickHouseWriter) Consume(t *model.VastNetflow) bool {
	w.mu.Lock()
	w.buf = append(w.buf, t)
	full := len(w.buf) >= w.batchSize
	w.mu.Unlock()

	if full {
		if err := w.flush(); err != nil {
			log.Printf("ClickHouse sink flush failed: %v", err)
			return false
		}
	}
	return true
}

func (w *ClickHouseWriter) flush() error {
	w.mu.Lock()
	pending := w.buf
	w.buf = make([]*model.VastNetflow, 0, w.batchSize)
	w.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO matched_flows")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, t := range pending {
		err = batch.Append(t.TimeSeconds, t.SourceIP, t.DestIP,
			int32(t.SourcePort), int32(t.DestPort), t.Protocol,
			t.DurationSeconds, t.SrcTotalBytes, t.DestTotalBytes)
		if err != nil {
			return fmt.Errorf("failed to append tuple to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// Terminate flushes the tail batch and closes the connection.
func (w *ClickHouseWriter) Terminate() {
	if err := w.flush(); err != nil {
		log.Printf("ClickHouse sink final flush failed: %v", err)
	}
	w.conn.Close()
}
