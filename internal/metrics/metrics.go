// Package metrics collects counters for the server's connection and
// request flow and renders them in Prometheus/OpenMetrics text format.
package metrics

import (
	"fmt"
	"sync"
)

// Collector accumulates the server's counters. All methods are safe for
// concurrent use; the serving flow and the shutdown path may both touch it.
type Collector struct {
	mu sync.RWMutex

	connections  uint64
	requestsOK   uint64
	requestsErr  uint64
	rows         uint64
	bytesRead    uint64
	bytesWritten uint64
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// ConnectionOpened records one accepted connection.
func (c *Collector) ConnectionOpened() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connections++
}

// RequestServed records one successfully answered request and the number
// of rows it returned.
func (c *Collector) RequestServed(rows int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestsOK++
	c.rows += uint64(rows)
}

// RequestFailed records one request answered with an error.
func (c *Collector) RequestFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestsErr++
}

// AddBytesRead records n bytes read from a client.
func (c *Collector) AddBytesRead(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytesRead += uint64(n)
}

// AddBytesWritten records n bytes written to a client.
func (c *Collector) AddBytesWritten(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytesWritten += uint64(n)
}

// Stats is a point-in-time copy of the collected counters.
type Stats struct {
	Connections  uint64
	RequestsOK   uint64
	RequestsErr  uint64
	Rows         uint64
	BytesRead    uint64
	BytesWritten uint64
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Connections:  c.connections,
		RequestsOK:   c.requestsOK,
		RequestsErr:  c.requestsErr,
		Rows:         c.rows,
		BytesRead:    c.bytesRead,
		BytesWritten: c.bytesWritten,
	}
}

// Export returns the counters in Prometheus/OpenMetrics text format.
func (c *Collector) Export() string {
	s := c.Snapshot()

	var output string

	output += "# HELP alfred_connections_total Total number of accepted connections\n"
	output += "# TYPE alfred_connections_total counter\n"
	output += fmt.Sprintf("alfred_connections_total %d\n", s.Connections)

	output += "# HELP alfred_requests_total Total number of requests by status\n"
	output += "# TYPE alfred_requests_total counter\n"
	output += fmt.Sprintf("alfred_requests_total{status=\"ok\"} %d\n", s.RequestsOK)
	output += fmt.Sprintf("alfred_requests_total{status=\"error\"} %d\n", s.RequestsErr)

	output += "# HELP alfred_rows_total Total number of result rows sent to clients\n"
	output += "# TYPE alfred_rows_total counter\n"
	output += fmt.Sprintf("alfred_rows_total %d\n", s.Rows)

	output += "# HELP alfred_bytes_read_total Total bytes read from clients\n"
	output += "# TYPE alfred_bytes_read_total counter\n"
	output += fmt.Sprintf("alfred_bytes_read_total %d\n", s.BytesRead)

	output += "# HELP alfred_bytes_written_total Total bytes written to clients\n"
	output += "# TYPE alfred_bytes_written_total counter\n"
	output += fmt.Sprintf("alfred_bytes_written_total %d\n", s.BytesWritten)

	return output
}
