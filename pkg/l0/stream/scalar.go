package stream

import (
	"encoding/binary"
	"math"

	"github.com/robotalks/embd.go/pkg/l0/task"
)

func (s *Stream) tryWriteScalar(v uint64, width int) bool {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return s.TryWrite(b[:width])
}

func (s *Stream) tryReadScalar(width int) (uint64, bool) {
	var b [8]byte
	if !s.TryRead(b[:width]) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b[:]), true
}

func (s *Stream) writeScalar(t *task.Task, at task.PC, v uint64, width int) bool {
	if t.WaitWhile(at, width > s.Free()) {
		return true
	}
	s.tryWriteScalar(v, width)
	return false
}

func (s *Stream) readScalar(t *task.Task, at task.PC, width int) (uint64, bool) {
	if t.WaitWhile(at, width > s.count) {
		return 0, true
	}
	v, _ := s.tryReadScalar(width)
	return v, false
}

// TryWriteUint8 writes v.
func (s *Stream) TryWriteUint8(v uint8) bool { return s.TryWriteByte(v) }

// TryReadUint8 reads a uint8.
func (s *Stream) TryReadUint8() (uint8, bool) { return s.TryReadByte() }

// TryWriteInt8 writes v.
func (s *Stream) TryWriteInt8(v int8) bool { return s.TryWriteByte(byte(v)) }

// TryReadInt8 reads an int8.
func (s *Stream) TryReadInt8() (int8, bool) {
	v, ok := s.TryReadByte()
	return int8(v), ok
}

// TryWriteUint16 writes v.
func (s *Stream) TryWriteUint16(v uint16) bool { return s.tryWriteScalar(uint64(v), 2) }

// TryReadUint16 reads a uint16.
func (s *Stream) TryReadUint16() (uint16, bool) {
	v, ok := s.tryReadScalar(2)
	return uint16(v), ok
}

// TryWriteInt16 writes v.
func (s *Stream) TryWriteInt16(v int16) bool { return s.tryWriteScalar(uint64(v), 2) }

// TryReadInt16 reads an int16.
func (s *Stream) TryReadInt16() (int16, bool) {
	v, ok := s.tryReadScalar(2)
	return int16(uint16(v)), ok
}

// TryWriteUint32 writes v.
func (s *Stream) TryWriteUint32(v uint32) bool { return s.tryWriteScalar(uint64(v), 4) }

// TryReadUint32 reads a uint32.
func (s *Stream) TryReadUint32() (uint32, bool) {
	v, ok := s.tryReadScalar(4)
	return uint32(v), ok
}

// TryWriteInt32 writes v.
func (s *Stream) TryWriteInt32(v int32) bool { return s.tryWriteScalar(uint64(v), 4) }

// TryReadInt32 reads an int32.
func (s *Stream) TryReadInt32() (int32, bool) {
	v, ok := s.tryReadScalar(4)
	return int32(uint32(v)), ok
}

// TryWriteUint64 writes v.
func (s *Stream) TryWriteUint64(v uint64) bool { return s.tryWriteScalar(v, 8) }

// TryReadUint64 reads a uint64.
func (s *Stream) TryReadUint64() (uint64, bool) { return s.tryReadScalar(8) }

// TryWriteInt64 writes v.
func (s *Stream) TryWriteInt64(v int64) bool { return s.tryWriteScalar(uint64(v), 8) }

// TryReadInt64 reads an int64.
func (s *Stream) TryReadInt64() (int64, bool) {
	v, ok := s.tryReadScalar(8)
	return int64(v), ok
}

// TryWriteFloat32 writes v in IEEE 754 binary32.
func (s *Stream) TryWriteFloat32(v float32) bool {
	return s.tryWriteScalar(uint64(math.Float32bits(v)), 4)
}

// TryReadFloat32 reads a float32.
func (s *Stream) TryReadFloat32() (float32, bool) {
	v, ok := s.tryReadScalar(4)
	return math.Float32frombits(uint32(v)), ok
}

// TryWriteFloat64 writes v in IEEE 754 binary64.
func (s *Stream) TryWriteFloat64(v float64) bool {
	return s.tryWriteScalar(math.Float64bits(v), 8)
}

// TryReadFloat64 reads a float64.
func (s *Stream) TryReadFloat64() (float64, bool) {
	v, ok := s.tryReadScalar(8)
	return math.Float64frombits(v), ok
}

// WriteUint8 writes v, waiting for room.
func (s *Stream) WriteUint8(t *task.Task, at task.PC, v uint8) bool {
	return s.writeScalar(t, at, uint64(v), 1)
}

// ReadUint8 reads a uint8, waiting for it.
func (s *Stream) ReadUint8(t *task.Task, at task.PC) (uint8, bool) {
	v, wait := s.readScalar(t, at, 1)
	return uint8(v), wait
}

// WriteInt8 writes v, waiting for room.
func (s *Stream) WriteInt8(t *task.Task, at task.PC, v int8) bool {
	return s.writeScalar(t, at, uint64(uint8(v)), 1)
}

// ReadInt8 reads an int8, waiting for it.
func (s *Stream) ReadInt8(t *task.Task, at task.PC) (int8, bool) {
	v, wait := s.readScalar(t, at, 1)
	return int8(uint8(v)), wait
}

// WriteUint16 writes v, waiting for room.
func (s *Stream) WriteUint16(t *task.Task, at task.PC, v uint16) bool {
	return s.writeScalar(t, at, uint64(v), 2)
}

// ReadUint16 reads a uint16, waiting for it.
func (s *Stream) ReadUint16(t *task.Task, at task.PC) (uint16, bool) {
	v, wait := s.readScalar(t, at, 2)
	return uint16(v), wait
}

// WriteInt16 writes v, waiting for room.
func (s *Stream) WriteInt16(t *task.Task, at task.PC, v int16) bool {
	return s.writeScalar(t, at, uint64(uint16(v)), 2)
}

// ReadInt16 reads an int16, waiting for it.
func (s *Stream) ReadInt16(t *task.Task, at task.PC) (int16, bool) {
	v, wait := s.readScalar(t, at, 2)
	return int16(uint16(v)), wait
}

// WriteUint32 writes v, waiting for room.
func (s *Stream) WriteUint32(t *task.Task, at task.PC, v uint32) bool {
	return s.writeScalar(t, at, uint64(v), 4)
}

// ReadUint32 reads a uint32, waiting for it.
func (s *Stream) ReadUint32(t *task.Task, at task.PC) (uint32, bool) {
	v, wait := s.readScalar(t, at, 4)
	return uint32(v), wait
}

// WriteInt32 writes v, waiting for room.
func (s *Stream) WriteInt32(t *task.Task, at task.PC, v int32) bool {
	return s.writeScalar(t, at, uint64(uint32(v)), 4)
}

// ReadInt32 reads an int32, waiting for it.
func (s *Stream) ReadInt32(t *task.Task, at task.PC) (int32, bool) {
	v, wait := s.readScalar(t, at, 4)
	return int32(uint32(v)), wait
}

// WriteUint64 writes v, waiting for room.
func (s *Stream) WriteUint64(t *task.Task, at task.PC, v uint64) bool {
	return s.writeScalar(t, at, v, 8)
}

// ReadUint64 reads a uint64, waiting for it.
func (s *Stream) ReadUint64(t *task.Task, at task.PC) (uint64, bool) {
	return s.readScalar(t, at, 8)
}

// WriteInt64 writes v, waiting for room.
func (s *Stream) WriteInt64(t *task.Task, at task.PC, v int64) bool {
	return s.writeScalar(t, at, uint64(v), 8)
}

// ReadInt64 reads an int64, waiting for it.
func (s *Stream) ReadInt64(t *task.Task, at task.PC) (int64, bool) {
	v, wait := s.readScalar(t, at, 8)
	return int64(v), wait
}

// WriteFloat32 writes v, waiting for room.
func (s *Stream) WriteFloat32(t *task.Task, at task.PC, v float32) bool {
	return s.writeScalar(t, at, uint64(math.Float32bits(v)), 4)
}

// ReadFloat32 reads a float32, waiting for it.
func (s *Stream) ReadFloat32(t *task.Task, at task.PC) (float32, bool) {
	v, wait := s.readScalar(t, at, 4)
	return math.Float32frombits(uint32(v)), wait
}

// WriteFloat64 writes v, waiting for room.
func (s *Stream) WriteFloat64(t *task.Task, at task.PC, v float64) bool {
	return s.writeScalar(t, at, math.Float64bits(v), 8)
}

// ReadFloat64 reads a float64, waiting for it.
func (s *Stream) ReadFloat64(t *task.Task, at task.PC) (float64, bool) {
	v, wait := s.readScalar(t, at, 8)
	return math.Float64frombits(v), wait
}
