package source

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"StreamSpectra/internal/fabric"
	"StreamSpectra/internal/model"
)

// CSVReader ingests newline-delimited netflow records from a file, one
// tuple per line. Ids are assigned monotonically from zero; malformed lines
// are counted and skipped.
type CSVReader struct {
	*fabric.BaseProducer[*model.VastNetflow]
	filename string
	file     *os.File

	nextId      uint64
	parseErrors atomic.Uint64
}

// NewCSVReader creates a file source with the given fan-out queue length.
func NewCSVReader(filename string, queueLength int) *CSVReader {
	return &CSVReader{
		BaseProducer: fabric.NewBaseProducer[*model.VastNetflow](queueLength),
		filename:     filename,
	}
}

// Connect opens the file.
func (r *CSVReader) Connect() error {
	file, err := os.Open(r.filename)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", r.filename, err)
	}
	r.file = file
	return nil
}

// Receive reads the whole file, feeding each parsed tuple downstream, and
// terminates the consumers when the file ends.
func (r *CSVReader) Receive() {
	defer r.file.Close()

	scanner := bufio.NewScanner(r.file)
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
			log.Printf("CSVReader read %d", read)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("CSVReader stopped on read error: %v", err)
	}
	r.TerminateConsumers()
}

// ParseErrors returns how many lines failed to parse.
func (r *CSVReader) ParseErrors() uint64 { return r.parseErrors.Load() }
