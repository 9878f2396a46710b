package protocol

import "bytes"

// Framer accumulates bytes from a connection and extracts complete
// newline-terminated requests. Arrival boundaries carry no meaning: a
// request may span many reads and one read may complete many requests.
// A Framer belongs to exactly one connection and is not safe for
// concurrent use.
type Framer struct {
	buf []byte
	max int
}

// NewFramer returns a Framer enforcing the given maximum request size in
// bytes. Zero means unlimited; the protocol itself puts no upper bound on
// a request.
func NewFramer(maxRequest int) *Framer {
	return &Framer{max: maxRequest}
}

// Feed appends p to the accumulation buffer and extracts every complete
// request, delimiter included, in arrival order. Requests already
// extracted are returned even when the error is non-nil.
//
// When a maximum request size is configured, a request growing past it
// returns ErrRequestTooLarge; the caller is expected to drop the
// connection, so the buffer's remaining content is undefined afterwards.
func (f *Framer) Feed(p []byte) ([][]byte, error) {
	f.buf = append(f.buf, p...)

	var requests [][]byte
	start := 0
	for {
		i := bytes.IndexByte(f.buf[start:], Delimiter)
		if i < 0 {
			break
		}
		end := start + i + 1
		if f.max > 0 && end-start > f.max {
			return requests, ErrRequestTooLarge
		}
		request := make([]byte, end-start)
		copy(request, f.buf[start:end])
		requests = append(requests, request)
		start = end
	}

	// Move any unterminated tail to the front. The length resets but the
	// allocated capacity is retained across requests.
	n := copy(f.buf, f.buf[start:])
	f.buf = f.buf[:n]

	if f.max > 0 && len(f.buf) > f.max {
		return requests, ErrRequestTooLarge
	}
	return requests, nil
}

// Pending reports how many bytes are buffered without a terminating
// delimiter. A non-zero count at disconnect is a partial request the
// client never finished; it is discarded, not answered.
func (f *Framer) Pending() int {
	return len(f.buf)
}
