// Package stream provides a fixed-capacity circular byte buffer shared
// between tasks, and between tasks and interrupt handlers.
//
// Every operation comes in two forms. The Try form never suspends: it
// transfers the whole amount or nothing and reports which happened, so it
// is the only form usable outside a task. The blocking form takes the
// calling task and the resume point of the statement, and returns true
// when the task must return task.Waiting; the transfer happens once the
// whole amount fits.
//
// Multi-byte values are encoded little-endian.
package stream

import (
	"errors"

	"github.com/robotalks/embd.go/pkg/l0/task"
)

// MaxCapacity is the largest supported capacity.
const MaxCapacity = 1 << 16

var (
	// ErrCapacity indicates the requested capacity is not a power of two
	// in [1, MaxCapacity].
	ErrCapacity = errors.New("invalid stream capacity")
	// ErrWouldBlock is returned by the host adapter when nothing can be
	// transferred.
	ErrWouldBlock = errors.New("stream would block")
)

// Stream is a circular byte buffer.
type Stream struct {
	front int
	rear  int
	count int
	mask  int
	data  []byte
}

// New creates a Stream.
func New(capacity int) (*Stream, error) {
	s := &Stream{}
	if err := s.Init(capacity); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNew is New that panics on error.
func MustNew(capacity int) *Stream {
	s, err := New(capacity)
	if err != nil {
		panic(err)
	}
	return s
}

// Init allocates the buffer and clears the stream.
func (s *Stream) Init(capacity int) error {
	if capacity < 1 || capacity > MaxCapacity || capacity&(capacity-1) != 0 {
		return ErrCapacity
	}
	s.data = make([]byte, capacity)
	s.mask = capacity - 1
	s.Clear()
	return nil
}

// Clear drops all buffered bytes.
func (s *Stream) Clear() {
	s.front, s.rear, s.count = 0, 0, 0
}

// Cap returns the capacity.
func (s *Stream) Cap() int {
	return len(s.data)
}

// Available returns the number of buffered bytes.
func (s *Stream) Available() int {
	return s.count
}

// Free returns the number of bytes that can be written.
func (s *Stream) Free() int {
	return len(s.data) - s.count
}

// IndexByte returns the offset of the first buffered c from the front,
// -1 if not buffered.
func (s *Stream) IndexByte(c byte) int {
	for i := 0; i < s.count; i++ {
		if s.data[(s.front+i)&s.mask] == c {
			return i
		}
	}
	return -1
}

// TryWrite writes all of p or nothing.
func (s *Stream) TryWrite(p []byte) bool {
	if len(p) > s.Free() {
		return false
	}
	s.put(p)
	return true
}

// TryRead fills all of p or reads nothing.
func (s *Stream) TryRead(p []byte) bool {
	if len(p) > s.count {
		return false
	}
	s.get(p)
	return true
}

// TryPeek fills p without consuming, or reads nothing.
func (s *Stream) TryPeek(p []byte) bool {
	if len(p) > s.count {
		return false
	}
	n := copy(p, s.data[s.front:])
	copy(p[n:], s.data)
	return true
}

// TrySkip drops n bytes or nothing.
func (s *Stream) TrySkip(n int) bool {
	if n > s.count {
		return false
	}
	s.drop(n)
	return true
}

// TryWriteByte writes a single byte.
func (s *Stream) TryWriteByte(c byte) bool {
	if s.count >= len(s.data) {
		return false
	}
	s.data[s.rear] = c
	s.rear = (s.rear + 1) & s.mask
	s.count++
	return true
}

// TryReadByte reads a single byte.
func (s *Stream) TryReadByte() (byte, bool) {
	if s.count == 0 {
		return 0, false
	}
	c := s.data[s.front]
	s.front = (s.front + 1) & s.mask
	s.count--
	return c, true
}

// TryWriteString writes all bytes of str or nothing.
func (s *Stream) TryWriteString(str string) bool {
	if len(str) > s.Free() {
		return false
	}
	s.putString(str)
	return true
}

// TryReadString reads exactly n bytes as a string.
func (s *Stream) TryReadString(n int) (string, bool) {
	if n > s.count {
		return "", false
	}
	p := make([]byte, n)
	s.get(p)
	return string(p), true
}

// TryWriteCString writes str followed by a 0 byte.
func (s *Stream) TryWriteCString(str string) bool {
	if len(str)+1 > s.Free() {
		return false
	}
	s.putString(str)
	s.TryWriteByte(0)
	return true
}

// TryReadCString reads up to and including the first 0 byte and returns
// the bytes before it. Nothing is read if no 0 byte is buffered.
func (s *Stream) TryReadCString() (string, bool) {
	n := s.IndexByte(0)
	if n < 0 {
		return "", false
	}
	p := make([]byte, n)
	s.get(p)
	s.drop(1)
	return string(p), true
}

// Write writes all of p, waiting until there is room for it.
// When it returns true the caller must return task.Waiting.
func (s *Stream) Write(t *task.Task, at task.PC, p []byte) bool {
	if t.WaitWhile(at, len(p) > s.Free()) {
		return true
	}
	s.put(p)
	return false
}

// Read fills p, waiting until enough bytes are buffered.
func (s *Stream) Read(t *task.Task, at task.PC, p []byte) bool {
	if t.WaitWhile(at, len(p) > s.count) {
		return true
	}
	s.get(p)
	return false
}

// Skip drops n bytes, waiting until they are buffered.
func (s *Stream) Skip(t *task.Task, at task.PC, n int) bool {
	if t.WaitWhile(at, n > s.count) {
		return true
	}
	s.drop(n)
	return false
}

// WriteString writes str, waiting for room.
func (s *Stream) WriteString(t *task.Task, at task.PC, str string) bool {
	if t.WaitWhile(at, len(str) > s.Free()) {
		return true
	}
	s.putString(str)
	return false
}

// ReadString reads n bytes as a string, waiting for them.
func (s *Stream) ReadString(t *task.Task, at task.PC, n int) (string, bool) {
	if t.WaitWhile(at, n > s.count) {
		return "", true
	}
	str, _ := s.TryReadString(n)
	return str, false
}

// WriteCString writes str and a terminating 0 byte, waiting for room.
func (s *Stream) WriteCString(t *task.Task, at task.PC, str string) bool {
	if t.WaitWhile(at, len(str)+1 > s.Free()) {
		return true
	}
	s.TryWriteCString(str)
	return false
}

// ReadCString waits until a 0 byte is buffered, consumes through it and
// returns the bytes before it. A full stream without a 0 byte never
// completes.
func (s *Stream) ReadCString(t *task.Task, at task.PC) (string, bool) {
	if t.WaitWhile(at, s.IndexByte(0) < 0) {
		return "", true
	}
	str, _ := s.TryReadCString()
	return str, false
}

func (s *Stream) put(p []byte) {
	n := copy(s.data[s.rear:], p)
	copy(s.data, p[n:])
	s.advanceRear(len(p))
}

func (s *Stream) putString(str string) {
	n := copy(s.data[s.rear:], str)
	copy(s.data, str[n:])
	s.advanceRear(len(str))
}

func (s *Stream) advanceRear(n int) {
	s.rear = (s.rear + n) & s.mask
	s.count += n
}

func (s *Stream) get(p []byte) {
	n := copy(p, s.data[s.front:])
	copy(p[n:], s.data)
	s.drop(len(p))
}

func (s *Stream) drop(n int) {
	s.front = (s.front + n) & s.mask
	s.count -= n
}
