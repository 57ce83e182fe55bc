package handler

import "sync/atomic"

// Stats is a snapshot of link counters.
type Stats struct {
	FramesReceived uint64 `json:"frames_received"`
	FramesSent     uint64 `json:"frames_sent"`
	FramingErrors  uint64 `json:"framing_errors"`
	ChecksumErrors uint64 `json:"checksum_errors"`
	Abandoned      uint64 `json:"abandoned"`
	Dropped        uint64 `json:"dropped"`
	BytesRead      uint64 `json:"bytes_read"`
	BytesWritten   uint64 `json:"bytes_written"`
	SkippedBytes   uint64 `json:"skipped_bytes"`
}

// DecodeErrors returns the total of framing and checksum errors. Partial
// frames cut short by a new START are counted in Abandoned instead.
func (s Stats) DecodeErrors() uint64 {
	return s.FramingErrors + s.ChecksumErrors
}

type counters struct {
	framesReceived atomic.Uint64
	framesSent     atomic.Uint64
	framingErrors  atomic.Uint64
	checksumErrors atomic.Uint64
	abandoned      atomic.Uint64
	dropped        atomic.Uint64
	bytesRead      atomic.Uint64
	bytesWritten   atomic.Uint64
	skippedBytes   atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		FramesReceived: c.framesReceived.Load(),
		FramesSent:     c.framesSent.Load(),
		FramingErrors:  c.framingErrors.Load(),
		ChecksumErrors: c.checksumErrors.Load(),
		Abandoned:      c.abandoned.Load(),
		Dropped:        c.dropped.Load(),
		BytesRead:      c.bytesRead.Load(),
		BytesWritten:   c.bytesWritten.Load(),
		SkippedBytes:   c.skippedBytes.Load(),
	}
}
