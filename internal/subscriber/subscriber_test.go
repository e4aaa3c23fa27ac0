package subscriber

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRowsEmittedWhenComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.csv")
	sub := New(path, 10)
	sub.RegisterColumn("label")
	sub.RegisterColumn("aveBytes")
	sub.RegisterColumn("varBytes")
	if err := sub.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// Columns arrive out of order across operators; the row only appears
	// once all three are in.
	sub.Update(0, "aveBytes", 12.5)
	sub.Update(0, "label", 1)
	if sub.Rows() != 0 {
		t.Fatal("Row emitted before all columns arrived")
	}
	sub.Update(0, "varBytes", 0.25)
	if sub.Rows() != 1 {
		t.Fatal("Row not emitted after all columns arrived")
	}

	sub.Update(1, "label", 0)
	sub.Update(1, "aveBytes", 3)
	sub.Update(1, "varBytes", 0)
	if err := sub.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "label,aveBytes,varBytes" {
		t.Errorf("Header wrong: %s", lines[0])
	}
	if lines[1] != "1,12.5,0.25" {
		t.Errorf("First row wrong: %s", lines[1])
	}
	if lines[2] != "0,3,0" {
		t.Errorf("Second row wrong: %s", lines[2])
	}
}

func TestUnknownIdentifierIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.csv")
	sub := New(path, 10)
	sub.RegisterColumn("only")
	if err := sub.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	sub.Update(0, "stranger", 9)
	if sub.Rows() != 0 {
		t.Error("Unknown identifier must not complete a row")
	}
	sub.Update(0, "only", 1)
	if sub.Rows() != 1 {
		t.Error("Known identifier should complete the single-column row")
	}
	sub.Close()
}

func TestInitWithoutColumnsFails(t *testing.T) {
	sub := New(filepath.Join(t.TempDir(), "features.csv"), 10)
	if err := sub.Init(); err == nil {
		t.Error("Expected Init to fail with no registered columns")
	}
}
