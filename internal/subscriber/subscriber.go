package subscriber

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Subscriber collects per-tuple feature values from every operator that was
// asked to publish to it and writes one CSV row per tuple once all columns
// for that tuple have arrived. Columns appear in registration order.
//
// Operators push values through Update, which implements
// fabric.FeatureListener.
type Subscriber struct {
	path     string
	capacity int

	mu      sync.Mutex
	columns []string
	index   map[string]int
	rows    map[uint64][]float64
	filled  map[uint64]int
	file    *os.File
	out     *bufio.Writer
	written uint64
}

// New creates a subscriber writing to the given file. capacity is a hint for
// how many in-flight rows to expect.
func New(path string, capacity int) *Subscriber {
	return &Subscriber{
		path:     path,
		capacity: capacity,
		index:    make(map[string]int),
		rows:     make(map[uint64][]float64, capacity),
		filled:   make(map[uint64]int, capacity),
	}
}

// RegisterColumn declares a feature column. All columns must be registered
// before Init.
func (s *Subscriber) RegisterColumn(identifier string) {
	s.index[identifier] = len(s.columns)
	s.columns = append(s.columns, identifier)
}

// Init opens the output file and writes the header. Must be called before
// the pipeline starts feeding.
func (s *Subscriber) Init() error {
	if len(s.columns) == 0 {
		return fmt.Errorf("no feature columns registered")
	}
	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create feature file: %w", err)
	}
	s.file = file
	s.out = bufio.NewWriter(file)
	if _, err := s.out.WriteString(strings.Join(s.columns, ",") + "\n"); err != nil {
		return fmt.Errorf("failed to write feature header: %w", err)
	}
	return nil
}

// Update records one feature value for one tuple. When the tuple's row is
// complete it is written and discarded.
func (s *Subscriber) Update(tupleId uint64, identifier string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.index[identifier]
	if !ok {
		return
	}
	row, ok := s.rows[tupleId]
	if !ok {
		row = make([]float64, len(s.columns))
		s.rows[tupleId] = row
	}
	row[col] = value
	s.filled[tupleId]++
	if s.filled[tupleId] < len(s.columns) {
		return
	}

	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	s.out.WriteString(strings.Join(parts, ",") + "\n")
	s.written++
	delete(s.rows, tupleId)
	delete(s.filled, tupleId)
}

// Rows returns how many complete rows have been written.
func (s *Subscriber) Rows() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Close flushes and closes the output file.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out != nil {
		if err := s.out.Flush(); err != nil {
			return err
		}
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
