// Package protocol implements alfred's line-oriented wire protocol.
//
// Protocol Format:
//
//	request:  <statement text> "\n"
//	response: <id> ": " <code> ": " <text> "\n"
//
// Codes:
//   - 0: request succeeded, text is empty
//   - -1: request failed, text is the engine's error message
//   - 1: one column of one result row, text is "<column> = <value>", with
//     the bare word NULL standing in for an absent value
//
// One request's response is zero or more code 1 lines followed by exactly
// one terminal code 0 or code -1 line, all tagged with the request's ID.
// IDs count up from 1 per connection and wrap around after the uint32
// maximum.
//
// The server may additionally write a "> " readiness token at connection
// start and after each terminal message. It carries no newline and is not
// part of the addressed grammar; clients should discard it.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Delimiter is the byte terminating one request.
const Delimiter = '\n'

// Prompt is the optional readiness token.
const Prompt = "> "

// Response codes.
const (
	CodeOK  = 0
	CodeErr = -1
	CodeRow = 1
)

var (
	// ErrInvalidMessage is returned when a response line does not match
	// the wire format.
	ErrInvalidMessage = errors.New("invalid message format")

	// ErrRequestTooLarge is returned when a request exceeds the framer's
	// configured maximum size.
	ErrRequestTooLarge = errors.New("request exceeds maximum size")
)

// Message is one response line, addressed to a request by ID.
type Message struct {
	ID   uint32
	Code int
	Text string
}

// OK builds the terminal message for a successful request.
func OK(id uint32) Message {
	return Message{ID: id, Code: CodeOK}
}

// Err builds the terminal message for a failed request.
func Err(id uint32, msg string) Message {
	return Message{ID: id, Code: CodeErr, Text: msg}
}

// Data builds the message carrying one column of one result row. A null
// value renders as NULL regardless of value.
func Data(id uint32, column, value string, null bool) Message {
	if null {
		return Message{ID: id, Code: CodeRow, Text: column + " = NULL"}
	}
	return Message{ID: id, Code: CodeRow, Text: column + " = " + value}
}

// Terminal reports whether the message ends a request's response sequence.
func (m Message) Terminal() bool {
	return m.Code != CodeRow
}

// Encode renders the message in wire form, trailing newline included. The
// text is first flattened onto one line: the format has no escaping, so an
// embedded newline (a multi-line engine error, a value carrying one) would
// tear the message into a valid line and a garbled one.
func (m Message) Encode() []byte {
	text := strings.ReplaceAll(m.Text, "\n", " ")
	return []byte(fmt.Sprintf("%d: %d: %s\n", m.ID, m.Code, text))
}

// Parse decodes one response line. The trailing newline is optional; the
// text may itself contain the ": " separator, only the first two count.
func Parse(line string) (Message, error) {
	line = strings.TrimSuffix(line, "\n")

	idPart, rest, ok := strings.Cut(line, ": ")
	if !ok {
		return Message{}, ErrInvalidMessage
	}
	id, err := strconv.ParseUint(idPart, 10, 32)
	if err != nil {
		return Message{}, ErrInvalidMessage
	}

	codePart, text, ok := strings.Cut(rest, ": ")
	if !ok {
		return Message{}, ErrInvalidMessage
	}
	switch codePart {
	case "0", "-1", "1":
	default:
		return Message{}, ErrInvalidMessage
	}
	code, _ := strconv.Atoi(codePart)

	return Message{ID: uint32(id), Code: code, Text: text}, nil
}

// DataField splits a row message's text back into its column name and
// value. A value of exactly NULL reads back as absent; a stored text value
// spelling NULL is indistinguishable on the wire, a known limitation of
// the format.
func (m Message) DataField() (column, value string, null bool) {
	column, value, _ = strings.Cut(m.Text, " = ")
	if value == "NULL" {
		return column, "", true
	}
	return column, value, false
}
