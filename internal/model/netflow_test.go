package model

import (
	"strings"
	"testing"
)

const sampleLine = "1,1365582000.0,2013-04-10 08:20:00,20130410082000.000000,17,udp,172.20.1.93,10.0.0.10,29986,1900,0,0,0.09,683,0,2588,0,2,0,0"

func TestParseVastNetflow(t *testing.T) {
	flow, err := ParseVastNetflow(42, sampleLine)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if flow.Id != 42 {
		t.Errorf("Expected id 42, got %d", flow.Id)
	}
	if flow.Label != 1 {
		t.Errorf("Expected label 1, got %d", flow.Label)
	}
	if flow.TimeSeconds != 1365582000.0 {
		t.Errorf("Expected time 1365582000.0, got %f", flow.TimeSeconds)
	}
	if flow.SourceIP != "172.20.1.93" || flow.DestIP != "10.0.0.10" {
		t.Errorf("Endpoints wrong: %s -> %s", flow.SourceIP, flow.DestIP)
	}
	if flow.DestPort != 1900 {
		t.Errorf("Expected dest port 1900, got %d", flow.DestPort)
	}
	if flow.SrcTotalBytes != 2588 {
		t.Errorf("Expected src total bytes 2588, got %f", flow.SrcTotalBytes)
	}
	if flow.FirstSeenSrcPacketCount != 2 {
		t.Errorf("Expected src packet count 2, got %f", flow.FirstSeenSrcPacketCount)
	}
}

func TestSerializeElidesId(t *testing.T) {
	flow, err := ParseVastNetflow(42, sampleLine)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	wire := flow.Serialize()
	if strings.Contains(strings.SplitN(wire, ",", 2)[0], "42") {
		t.Errorf("Wire form must not start with the id: %s", wire)
	}

	// The wire form parses back with a fresh id.
	again, err := ParseVastNetflow(7, wire)
	if err != nil {
		t.Fatalf("Reparse failed: %v", err)
	}
	if again.Id != 7 {
		t.Errorf("Expected reassigned id 7, got %d", again.Id)
	}
	if again.SourceIP != flow.SourceIP || again.SrcTotalBytes != flow.SrcTotalBytes {
		t.Error("Round trip lost field values")
	}
}

func TestParseRejectsMalformedLines(t *testing.T) {
	cases := []string{
		"",
		"1,2,3",
		strings.Replace(sampleLine, "1365582000.0", "not-a-time", 1),
		strings.Replace(sampleLine, "1900", "port", 1),
	}
	for _, line := range cases {
		if _, err := ParseVastNetflow(0, line); err == nil {
			t.Errorf("Expected parse error for %q", line)
		}
	}
}

func TestParseNetflowGenericSchema(t *testing.T) {
	line := "1365582000.5,172.20.1.93,10.0.0.10,29986,1900,udp,0.09,2588,683,5"
	flow, err := ParseNetflow(3, line)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if flow.Id != 3 || flow.DestPort != 1900 || flow.PacketCount != 5 {
		t.Errorf("Generic schema parsed wrong: %+v", flow)
	}
	if flow.Serialize() != line {
		t.Errorf("Round trip mismatch: %s", flow.Serialize())
	}
}

func TestCompositeKey(t *testing.T) {
	key := CompositeKey(SourceIPKey, DestIPKey)
	flow := &VastNetflow{SourceIP: "a", DestIP: "b"}
	if got := key(flow); got != "a-b" {
		t.Errorf("Expected a-b, got %s", got)
	}
}
