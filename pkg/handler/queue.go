package handler

import "github.com/bft-labs/b42link/pkg/frame"

// queue is the inbound frame FIFO. It has a single producer, the receive
// goroutine, and any number of consumers.
type queue struct {
	ch chan frame.Frame
}

func newQueue(size int) *queue {
	return &queue{ch: make(chan frame.Frame, size)}
}

// push appends f, discarding the oldest queued frame if the queue is full.
// It reports the discarded frame, if any.
func (q *queue) push(f frame.Frame) (dropped frame.Frame, ok bool) {
	for {
		select {
		case q.ch <- f:
			return dropped, ok
		default:
		}

		select {
		case dropped = <-q.ch:
			ok = true
		default:
			// A consumer made room.
		}
	}
}

func (q *queue) len() int { return len(q.ch) }
