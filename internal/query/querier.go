package query

import (
	"context"
	"fmt"
	"strings"

	"StreamSpectra/internal/config"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// FlowRecord is one matched tuple as stored in ClickHouse.
type FlowRecord struct {
	TimeSeconds     float64 `json:"timeSeconds"`
	SourceIP        string  `json:"sourceIP"`
	DestIP          string  `json:"destIP"`
	SourcePort      int32   `json:"sourcePort"`
	DestPort        int32   `json:"destPort"`
	Protocol        string  `json:"protocol"`
	DurationSeconds float64 `json:"durationSeconds"`
	SrcTotalBytes   float64 `json:"srcTotalBytes"`
	DestTotalBytes  float64 `json:"destTotalBytes"`
}

// FlowFilter narrows a matched-flows query. Zero values mean "any", except
// a zero (or negative) Limit, which caps the result at 1000 rows.
type FlowFilter struct {
	DestIP    string
	SourceIP  string
	SinceTime float64
	UntilTime float64
	Limit     int
}

// Querier defines the interface for querying matched flow data.
type Querier interface {
	MatchedFlows(ctx context.Context, filter FlowFilter) ([]FlowRecord, error)
	CountMatched(ctx context.Context) (uint64, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
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
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return &clickhouseQuerier{conn: conn}, nil
}

// MatchedFlows builds and executes a filtered select over matched_flows.
func (q *clickhouseQuerier) MatchedFlows(ctx context.Context, filter FlowFilter) ([]FlowRecord, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			TimeSeconds, SourceIP, DestIP, SourcePort, DestPort,
			Protocol, DurationSeconds, SrcTotalBytes, DestTotalBytes
		FROM matched_flows
	`)

	var whereClauses []string
	args := []interface{}{}

	if filter.DestIP != "" {
		whereClauses = append(whereClauses, "DestIP = ?")
		args = append(args, filter.DestIP)
	}
	if filter.SourceIP != "" {
		whereClauses = append(whereClauses, "SourceIP = ?")
		args = append(args, filter.SourceIP)
	}
	if filter.SinceTime != 0 {
		whereClauses = append(whereClauses, "TimeSeconds >= ?")
		args = append(args, filter.SinceTime)
	}
	if filter.UntilTime != 0 {
		whereClauses = append(whereClauses, "TimeSeconds <= ?")
		args = append(args, filter.UntilTime)
	}
	if len(whereClauses) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY TimeSeconds")
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var records []FlowRecord
	for rows.Next() {
		var r FlowRecord
		if err := rows.Scan(&r.TimeSeconds, &r.SourceIP, &r.DestIP,
			&r.SourcePort, &r.DestPort, &r.Protocol,
			&r.DurationSeconds, &r.SrcTotalBytes, &r.DestTotalBytes); err != nil {
			return nil, fmt.Errorf("failed to scan flow record: %w", err)
		}
		records = append(records, r)
	}

	return records, nil
}

// CountMatched returns the total number of matched tuples persisted.
func (q *clickhouseQuerier) CountMatched(ctx context.Context) (uint64, error) {
	row := q.conn.QueryRow(ctx, "SELECT COUNT(*) FROM matched_flows")
	var count uint64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matched flows: %w", err)
	}
	return count, nil
}
