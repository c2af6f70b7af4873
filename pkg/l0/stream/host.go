package stream

import "io"

// Host adapts a Stream to io.Reader and io.Writer for code running
// outside tasks, such as interrupt handlers posted by transport bridges.
// Unlike the Try family it transfers partially.
type Host struct {
	S *Stream
}

// HostOf wraps s.
func HostOf(s *Stream) Host {
	return Host{S: s}
}

// Read implements io.Reader. It returns ErrWouldBlock when the stream is
// empty.
func (h Host) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := len(p)
	if avail := h.S.Available(); n > avail {
		n = avail
	}
	if n == 0 {
		return 0, ErrWouldBlock
	}
	h.S.get(p[:n])
	return n, nil
}

// Write implements io.Writer. It writes what fits and returns
// io.ErrShortWrite for the rest.
func (h Host) Write(p []byte) (int, error) {
	n := len(p)
	if free := h.S.Free(); n > free {
		n = free
	}
	h.S.put(p[:n])
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}
