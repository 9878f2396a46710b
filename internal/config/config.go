package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultPort is the port alfred listens on unless told otherwise.
	DefaultPort = 3876

	// DefaultReadChunkSize is the per-read buffer size for client data.
	// It affects I/O granularity only, never framing correctness.
	DefaultReadChunkSize = 128
)

// Config carries everything the server needs to run. Zero-configuration
// startup uses DefaultConfig plus a database path; a TOML file and command
// line flags may override individual fields.
type Config struct {
	// DBPath is the SQLite database file to serve.
	DBPath string

	// Host is the interface to bind. Empty means all interfaces.
	Host string

	// Port is the TCP port to listen on.
	Port int

	// Verbose enables debug-level logging of the connection and request flow.
	Verbose bool

	// Prompt controls emission of the "> " readiness token at connection
	// start and after each response batch.
	Prompt bool

	// ReadOnly opens the backing store in read-only mode; statements that
	// modify it fail with a per-request error.
	ReadOnly bool

	// ReadChunkSize is the size of each read from the client socket.
	ReadChunkSize int

	// MaxRequest caps a single request's size in bytes. Zero means
	// unlimited, the protocol's stance; a non-zero cap fails the
	// offending connection instead of growing without bound.
	MaxRequest int
}

func DefaultConfig() *Config {
	return &Config{
		Port:          DefaultPort,
		Prompt:        true,
		ReadChunkSize: DefaultReadChunkSize,
		MaxRequest:    0,
	}
}

// fileConfig is the TOML key mapping. Only keys present in the file
// override the existing configuration.
type fileConfig struct {
	Database      string `toml:"database"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Verbose       bool   `toml:"verbose"`
	Prompt        bool   `toml:"prompt"`
	ReadOnly      bool   `toml:"read_only"`
	ReadChunkSize int    `toml:"read_chunk_size"`
	MaxRequest    int    `toml:"max_request"`
}

// Load overlays cfg with the values defined in the TOML file at path.
func Load(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0])
	}

	if meta.IsDefined("database") {
		cfg.DBPath = raw.Database
	}
	if meta.IsDefined("host") {
		cfg.Host = raw.Host
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}
	if meta.IsDefined("prompt") {
		cfg.Prompt = raw.Prompt
	}
	if meta.IsDefined("read_only") {
		cfg.ReadOnly = raw.ReadOnly
	}
	if meta.IsDefined("read_chunk_size") {
		cfg.ReadChunkSize = raw.ReadChunkSize
	}
	if meta.IsDefined("max_request") {
		cfg.MaxRequest = raw.MaxRequest
	}
	return nil
}

// Validate reports the first fatal configuration problem, if any.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("missing required database argument")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port specified")
	}
	if c.ReadChunkSize <= 0 {
		return fmt.Errorf("invalid read chunk size %d", c.ReadChunkSize)
	}
	if c.MaxRequest < 0 {
		return fmt.Errorf("invalid max request size %d", c.MaxRequest)
	}
	return nil
}

// ListenAddr is the host:port string the server binds.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
