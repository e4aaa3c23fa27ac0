package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Netflow is the generic schema, a reduced record for traces that carry only
// the endpoint, volume and timing columns. Like VastNetflow it holds the id
// at position 0; its timestamp and endpoint fields sit at other field and CSV
// positions than VastNetflow's. Generic operators reach them only through the
// accessor functions they are given.
type Netflow struct {
	Id              uint64
	TimeSeconds     float64
	SourceIP        string
	DestIP          string
	SourcePort      int
	DestPort        int
	Protocol        string
	DurationSeconds float64
	SrcTotalBytes   float64
	DestTotalBytes  float64
	PacketCount     float64
}

const numNetflowFields = 10

// ParseNetflow parses one CSV line of the generic schema.
func ParseNetflow(id uint64, line string) (*Netflow, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != numNetflowFields {
		return nil, fmt.Errorf("expected %d fields, got %d", numNetflowFields, len(fields))
	}

	t := &Netflow{Id: id}
	var err error
	if t.TimeSeconds, err = cast.ToFloat64E(fields[0]); err != nil {
		return nil, fmt.Errorf("bad time field %q: %w", fields[0], err)
	}
	t.SourceIP = fields[1]
	t.DestIP = fields[2]
	if t.SourcePort, err = cast.ToIntE(fields[3]); err != nil {
		return nil, fmt.Errorf("bad source port %q: %w", fields[3], err)
	}
	if t.DestPort, err = cast.ToIntE(fields[4]); err != nil {
		return nil, fmt.Errorf("bad dest port %q: %w", fields[4], err)
	}
	t.Protocol = fields[5]
	if t.DurationSeconds, err = cast.ToFloat64E(fields[6]); err != nil {
		return nil, fmt.Errorf("bad duration %q: %w", fields[6], err)
	}
	if t.SrcTotalBytes, err = cast.ToFloat64E(fields[7]); err != nil {
		return nil, fmt.Errorf("bad src total bytes %q: %w", fields[7], err)
	}
	if t.DestTotalBytes, err = cast.ToFloat64E(fields[8]); err != nil {
		return nil, fmt.Errorf("bad dest total bytes %q: %w", fields[8], err)
	}
	if t.PacketCount, err = cast.ToFloat64E(fields[9]); err != nil {
		return nil, fmt.Errorf("bad packet count %q: %w", fields[9], err)
	}
	return t, nil
}

// Serialize renders the generic record to its wire form, id elided.
func (t *Netflow) Serialize() string {
	fields := []string{
		formatFloat(t.TimeSeconds),
		t.SourceIP,
		t.DestIP,
		strconv.Itoa(t.SourcePort),
		strconv.Itoa(t.DestPort),
		t.Protocol,
		formatFloat(t.DurationSeconds),
		formatFloat(t.SrcTotalBytes),
		formatFloat(t.DestTotalBytes),
		formatFloat(t.PacketCount),
	}
	return strings.Join(fields, ",")
}

// NetflowTuplizer is the Tuplizer for the generic schema.
type NetflowTuplizer struct{}

func (NetflowTuplizer) Parse(id uint64, line string) (*Netflow, error) {
	return ParseNetflow(id, line)
}

func (NetflowTuplizer) Serialize(t *Netflow) string {
	return t.Serialize()
}
