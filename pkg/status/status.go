package status

import (
	"time"

	"github.com/bft-labs/b42link/pkg/handler"
)

// Status is a snapshot of a link session.
type Status struct {
	// Port is the channel the session ran on.
	Port string `json:"port"`

	// State is the handler lifecycle state when the snapshot was taken.
	State string `json:"state"`

	// StartedAt and UpdatedAt bound the session.
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// LastError is the error that stopped the handler, if any.
	LastError string `json:"last_error,omitempty"`

	// Session holds this session's counters.
	Session handler.Stats `json:"session"`

	// Lifetime holds the counters summed over all saved sessions.
	Lifetime handler.Stats `json:"lifetime"`

	// Sessions is the number of sessions folded into Lifetime.
	Sessions uint64 `json:"sessions"`
}

// Source is what Snapshot reads. *handler.Handler implements it.
type Source interface {
	Stats() handler.Stats
	State() handler.State
	Err() error
}

// Snapshot captures the current status of src as a single session.
func Snapshot(port string, src Source, startedAt time.Time) Status {
	s := Status{
		Port:      port,
		State:     src.State().String(),
		StartedAt: startedAt,
		UpdatedAt: time.Now(),
		Session:   src.Stats(),
		Sessions:  1,
	}
	if err := src.Err(); err != nil {
		s.LastError = err.Error()
	}
	s.Lifetime = s.Session
	return s
}

// Merge folds the lifetime totals of prev into s and returns the result.
func (s Status) Merge(prev Status) Status {
	s.Lifetime = add(s.Session, prev.Lifetime)
	s.Sessions = prev.Sessions + 1
	return s
}

func add(a, b handler.Stats) handler.Stats {
	return handler.Stats{
		FramesReceived: a.FramesReceived + b.FramesReceived,
		FramesSent:     a.FramesSent + b.FramesSent,
		FramingErrors:  a.FramingErrors + b.FramingErrors,
		ChecksumErrors: a.ChecksumErrors + b.ChecksumErrors,
		Abandoned:      a.Abandoned + b.Abandoned,
		Dropped:        a.Dropped + b.Dropped,
		BytesRead:      a.BytesRead + b.BytesRead,
		BytesWritten:   a.BytesWritten + b.BytesWritten,
		SkippedBytes:   a.SkippedBytes + b.SkippedBytes,
	}
}
