package protocol

// Sequence hands out request IDs for one connection. The zero value is
// ready to use; every connection starts a fresh Sequence, so IDs are only
// unique within a connection.
type Sequence struct {
	n uint32
}

// Next returns the next request ID. The first call returns 1. After the
// uint32 maximum the counter wraps to 0 and keeps counting; a collision
// across the wrap is accepted, not an error.
func (s *Sequence) Next() uint32 {
	s.n++
	return s.n
}
