package sink

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"StreamSpectra/internal/model"
)

// TextWriter appends matched tuples to a file as CSV lines, one per tuple.
type TextWriter struct {
	path    string
	file    *os.File
	out     *bufio.Writer
	written atomic.Uint64
}

// NewTextWriter creates and opens the sink file.
func NewTextWriter(path string) (*TextWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create sink file %s: %w", path, err)
	}
	log.Printf("Text sink created at %s", path)
	return &TextWriter{
		path: path,
		file: file,
		out:  bufio.NewWriter(file),
	}, nil
}

// Consume writes one matched tuple.
func (w *TextWriter) Consume(t *model.VastNetflow) bool {
	if _, err := w.out.WriteString(t.Serialize() + "\n"); err != nil {
		log.Printf("Text sink write failed: %v", err)
		return false
	}
	w.written.Add(1)
	return true
}

// Terminate flushes and closes the file.
func (w *TextWriter) Terminate() {
	if err := w.out.Flush(); err != nil {
		log.Printf("Text sink flush failed: %v", err)
	}
	w.file.Close()
}

// Written returns how many tuples reached the file.
func (w *TextWriter) Written() uint64 { return w.written.Load() }
