package waf

// Stream is an ordered sequence of byte chunks, typically a captured
// request or response body. Chunks are borrowed from the producer and kept
// in arrival order; the stream never merges or re-slices them.
type Stream struct {
	chunks [][]byte
	length int
}

// Append adds a chunk to the end of the stream. Empty chunks are kept so
// that chunk boundaries observed on the wire are preserved.
func (s *Stream) Append(chunk []byte) {
	s.chunks = append(s.chunks, chunk)
	s.length += len(chunk)
}

// Chunks returns the underlying chunk sequence in arrival order.
func (s *Stream) Chunks() [][]byte {
	return s.chunks
}

// Len returns the total byte length across all chunks.
func (s *Stream) Len() int {
	return s.length
}
