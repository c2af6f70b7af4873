// Package comm runs the L0 link protocol as a task over a pair of streams.
package comm

// The link connects two peers over a byte channel (e.g. serial port, or a
// transport bridged into streams) and focuses on recovering from loss:
// both sides synchronize sequence numbers with a REQ/ACK handshake, every
// packet carries the next expected sequence, and any mismatch or stall
// triggers a new handshake.
//
// It provides limited transfer error detection based on sequence check and
// doesn't verify bits (e.g. CRC/Checksum) to stay lightweight.
//
// Wire format:
//
//   sync:   0xff SEQ (request) | 0xfe SEQ (acknowledge)
//   packet: SEQ CODE [LEN] DATA...
//
// CODE bits 4-6 hold the payload length when it is below 7; otherwise they
// are all set and LEN follows. Bit 7 marks an event. Replies carry the
// command sequence in the first data byte and flag errors in bit 0.
