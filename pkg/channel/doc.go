// Package channel provides the byte channels a B42 link runs over.
//
// A [Channel] is a bidirectional byte stream whose Read blocks for at most a
// bounded wait and returns (0, nil) when nothing arrived in time. Three
// implementations are provided:
//
//   - [Serial], a serial device opened with go.bug.st/serial
//   - [Socket], a TCP connection to a serial-to-network bridge
//   - [Pipe], an in-memory duplex pair for tests and loopback tooling
//
// Use [Open] to pick an implementation from a port name:
//
//	ch, err := channel.Open("socket://192.168.1.20", channel.DefaultConfig())
//	ch, err := channel.Open("/dev/ttyUSB0", channel.DefaultConfig())
//
// Serial channels also implement [Resetter] for flushing buffers and pulsing
// the DTR/RTS lines to reset the attached board.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package channel
