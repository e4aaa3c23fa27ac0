package source

// DataSource is an ingestion endpoint. Connect establishes the underlying
// file or socket; Receive runs the read loop, feeding every registered
// consumer, and returns when the input is exhausted.
type DataSource interface {
	Connect() error
	Receive()
}

const metricInterval = 100000
