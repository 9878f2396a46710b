// Package client is a Go client for the alfred wire protocol.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/Smattr/alfred/internal/protocol"
)

var (
	// ErrConnectionFailed is returned when the server cannot be reached.
	ErrConnectionFailed = errors.New("failed to connect to server")

	// ErrClosed is returned when using a closed client.
	ErrClosed = errors.New("client is closed")

	// ErrEmbeddedDelimiter is returned when statement text contains an
	// interior newline. The newline frames requests on the wire, so such
	// text would submit several requests while Exec collects only one
	// response.
	ErrEmbeddedDelimiter = errors.New("statement text embeds the request delimiter")
)

// Field is one column of one result row.
type Field struct {
	Column string
	Value  string
	Null   bool
}

// Result collects every response message for one request.
type Result struct {
	ID     uint32
	Fields []Field
	Code   int
	Err    string
}

// Ok reports whether the request's terminal message was a success.
func (r *Result) Ok() bool {
	return r.Code == protocol.CodeOK
}

// Client is a connection to an alfred server. Requests are serialized:
// the server answers one request at a time, and so does the client.
type Client struct {
	addr string
	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to the server at addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, ErrConnectionFailed
	}

	return &Client{
		addr: addr,
		conn: conn,
		r:    bufio.NewReader(conn),
	}, nil
}

// Close tears down the connection. Closing twice is harmless.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

// Exec submits one block of statement text and collects its complete
// response. A missing trailing newline is added; an interior newline is
// rejected with ErrEmbeddedDelimiter before anything is sent, since it
// would frame more than one request. Separate multiple statements with
// semicolons instead. Exec fails only on transport or usage problems; a
// statement failure comes back inside the Result.
func (c *Client) Exec(text string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrClosed
	}

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if strings.IndexByte(text[:len(text)-1], protocol.Delimiter) >= 0 {
		return nil, ErrEmbeddedDelimiter
	}
	if _, err := io.WriteString(c.conn, text); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	result := &Result{}
	for {
		m, err := c.readMessage()
		if err != nil {
			return nil, err
		}

		result.ID = m.ID
		if m.Terminal() {
			result.Code = m.Code
			if m.Code == protocol.CodeErr {
				result.Err = m.Text
			}
			return result, nil
		}

		column, value, null := m.DataField()
		result.Fields = append(result.Fields, Field{Column: column, Value: value, Null: null})
	}
}

// readMessage reads and decodes the next response line. The server glues
// its "> " readiness token onto the front of the following line; it is
// presentation only and is dropped here.
func (c *Client) readMessage() (protocol.Message, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return protocol.Message{}, fmt.Errorf("read response: %w", err)
	}

	line = strings.TrimSuffix(line, "\n")
	for strings.HasPrefix(line, protocol.Prompt) {
		line = strings.TrimPrefix(line, protocol.Prompt)
	}

	m, err := protocol.Parse(line)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("parse response %q: %w", line, err)
	}
	return m, nil
}
