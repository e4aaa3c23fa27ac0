package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeConfig places this process in the cluster and sizes the shuffle.
type NodeConfig struct {
	NumNodes     int    `yaml:"num_nodes"`
	NodeId       int    `yaml:"node_id"`
	Prefix       string `yaml:"prefix"`
	StartingPort int    `yaml:"starting_port"`
	NATSURL      string `yaml:"nats_url"`
	HWM          int    `yaml:"hwm"`
	QueueLength  int    `yaml:"queue_length"`
}

// WindowConfig holds the sliding-window parameters shared by the
// aggregation operators.
type WindowConfig struct {
	N        int `yaml:"n"`
	B        int `yaml:"b"`
	K        int `yaml:"k"`
	Capacity int `yaml:"capacity"`
}

// FilterConfig parameterizes the match gate of the live pipeline.
type FilterConfig struct {
	Identifier  string  `yaml:"identifier"`
	Threshold   float64 `yaml:"threshold"`
	QueueLength int     `yaml:"queue_length"`
}

// GraphConfig sizes the edge request table.
type GraphConfig struct {
	TableCapacity int `yaml:"table_capacity"`
}

// TextConfig locates the text match sink.
type TextConfig struct {
	Path string `yaml:"path"`
}

// ClickHouseConfig holds the connection settings for the ClickHouse sink
// and querier.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WriterDef defines one enabled match sink.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	BatchSize  int              `yaml:"batch_size"`
	Text       TextConfig       `yaml:"text"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// APIConfig configures the query API server.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Node    NodeConfig   `yaml:"node"`
	Window  WindowConfig `yaml:"window"`
	Filter  FilterConfig `yaml:"filter"`
	Graph   GraphConfig  `yaml:"graph"`
	Writers []WriterDef  `yaml:"writers"`
	API     APIConfig    `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config
// struct with defaults applied.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyDefaults fills the zero values with the stock parameters.
func (c *Config) ApplyDefaults() {
	if c.Node.NumNodes == 0 {
		c.Node.NumNodes = 1
	}
	if c.Node.Prefix == "" {
		c.Node.Prefix = "node"
	}
	if c.Node.StartingPort == 0 {
		c.Node.StartingPort = 10000
	}
	if c.Node.NATSURL == "" {
		c.Node.NATSURL = "nats://127.0.0.1:4222"
	}
	if c.Node.HWM == 0 {
		c.Node.HWM = 10000
	}
	if c.Node.QueueLength == 0 {
		c.Node.QueueLength = 10000
	}
	if c.Window.N == 0 {
		c.Window.N = 10000
	}
	if c.Window.B == 0 {
		c.Window.B = 1000
	}
	if c.Window.K == 0 {
		c.Window.K = 2
	}
	if c.Window.Capacity == 0 {
		c.Window.Capacity = 10000
	}
	if c.Filter.Identifier == "" {
		c.Filter.Identifier = "servers"
	}
	if c.Filter.Threshold == 0 {
		c.Filter.Threshold = 0.9
	}
	if c.Filter.QueueLength == 0 {
		c.Filter.QueueLength = 1000
	}
	if c.Graph.TableCapacity == 0 {
		c.Graph.TableCapacity = 1000
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
}

// Default returns a configuration with every default applied, for runs
// without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}
