package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// VastNetflow is the vendor netflow record flowing through the pipeline.
// Field order matches the CSV column order of the input traces; the Id is
// not part of the wire form and is assigned by whichever producer first
// introduces the tuple on a node.
type VastNetflow struct {
	Id                       uint64
	Label                    int
	TimeSeconds              float64
	ParseDate                string
	DateTime                 string
	Protocol                 string
	ProtocolCode             string
	SourceIP                 string
	DestIP                   string
	SourcePort               int
	DestPort                 int
	MoreFragments            int
	ContFragments            int
	DurationSeconds          float64
	SrcPayloadBytes          float64
	DestPayloadBytes         float64
	SrcTotalBytes            float64
	DestTotalBytes           float64
	FirstSeenSrcPacketCount  float64
	FirstSeenDestPacketCount float64
	RecordForceOut           int
}

// numVastFields is the number of CSV columns (everything after the id).
const numVastFields = 20

// ParseVastNetflow parses one CSV line into a VastNetflow, assigning the
// given id. The line carries the label first; the id never travels on the
// wire.
func ParseVastNetflow(id uint64, line string) (*VastNetflow, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != numVastFields {
		return nil, fmt.Errorf("expected %d fields, got %d", numVastFields, len(fields))
	}

	t := &VastNetflow{Id: id}
	var err error
	if t.Label, err = cast.ToIntE(fields[0]); err != nil {
		return nil, fmt.Errorf("bad label field %q: %w", fields[0], err)
	}
	if t.TimeSeconds, err = cast.ToFloat64E(fields[1]); err != nil {
		return nil, fmt.Errorf("bad time field %q: %w", fields[1], err)
	}
	t.ParseDate = fields[2]
	t.DateTime = fields[3]
	t.Protocol = fields[4]
	t.ProtocolCode = fields[5]
	t.SourceIP = fields[6]
	t.DestIP = fields[7]
	if t.SourcePort, err = cast.ToIntE(fields[8]); err != nil {
		return nil, fmt.Errorf("bad source port %q: %w", fields[8], err)
	}
	if t.DestPort, err = cast.ToIntE(fields[9]); err != nil {
		return nil, fmt.Errorf("bad dest port %q: %w", fields[9], err)
	}
	t.MoreFragments = cast.ToInt(fields[10])
	t.ContFragments = cast.ToInt(fields[11])
	if t.DurationSeconds, err = cast.ToFloat64E(fields[12]); err != nil {
		return nil, fmt.Errorf("bad duration %q: %w", fields[12], err)
	}
	if t.SrcPayloadBytes, err = cast.ToFloat64E(fields[13]); err != nil {
		return nil, fmt.Errorf("bad src payload bytes %q: %w", fields[13], err)
	}
	if t.DestPayloadBytes, err = cast.ToFloat64E(fields[14]); err != nil {
		return nil, fmt.Errorf("bad dest payload bytes %q: %w", fields[14], err)
	}
	if t.SrcTotalBytes, err = cast.ToFloat64E(fields[15]); err != nil {
		return nil, fmt.Errorf("bad src total bytes %q: %w", fields[15], err)
	}
	if t.DestTotalBytes, err = cast.ToFloat64E(fields[16]); err != nil {
		return nil, fmt.Errorf("bad dest total bytes %q: %w", fields[16], err)
	}
	if t.FirstSeenSrcPacketCount, err = cast.ToFloat64E(fields[17]); err != nil {
		return nil, fmt.Errorf("bad src packet count %q: %w", fields[17], err)
	}
	if t.FirstSeenDestPacketCount, err = cast.ToFloat64E(fields[18]); err != nil {
		return nil, fmt.Errorf("bad dest packet count %q: %w", fields[18], err)
	}
	t.RecordForceOut = cast.ToInt(fields[19])

	return t, nil
}

// Serialize renders the tuple back to its wire form, id elided. The
// receiving node assigns a fresh id on arrival.
func (t *VastNetflow) Serialize() string {
	fields := []string{
		strconv.Itoa(t.Label),
		formatFloat(t.TimeSeconds),
		t.ParseDate,
		t.DateTime,
		t.Protocol,
		t.ProtocolCode,
		t.SourceIP,
		t.DestIP,
		strconv.Itoa(t.SourcePort),
		strconv.Itoa(t.DestPort),
		strconv.Itoa(t.MoreFragments),
		strconv.Itoa(t.ContFragments),
		formatFloat(t.DurationSeconds),
		formatFloat(t.SrcPayloadBytes),
		formatFloat(t.DestPayloadBytes),
		formatFloat(t.SrcTotalBytes),
		formatFloat(t.DestTotalBytes),
		formatFloat(t.FirstSeenSrcPacketCount),
		formatFloat(t.FirstSeenDestPacketCount),
		strconv.Itoa(t.RecordForceOut),
	}
	return strings.Join(fields, ",")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
