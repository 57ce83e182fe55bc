// Package metrics exports link statistics as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/b42link/pkg/handler"
)

const (
	namespace = "b42link"
	subsystem = "link"
)

// Source is what a Collector reads. *handler.Handler implements it.
type Source interface {
	Stats() handler.Stats
	State() handler.State
	Pending() int
}

// Collector reads a Source on every scrape. Counters are taken straight from
// the handler's own totals, so they reset when the handler does.
type Collector struct {
	src Source

	framesReceived *prometheus.Desc
	framesSent     *prometheus.Desc
	decodeErrors   *prometheus.Desc
	abandoned      *prometheus.Desc
	dropped        *prometheus.Desc
	bytesRead      *prometheus.Desc
	bytesWritten   *prometheus.Desc
	skipped        *prometheus.Desc
	pending        *prometheus.Desc
	state          *prometheus.Desc
}

// NewCollector returns a collector for src labeled with port.
func NewCollector(port string, src Source) *Collector {
	labels := prometheus.Labels{"port": port}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, variable, labels)
	}
	return &Collector{
		src:            src,
		framesReceived: desc("frames_received_total", "Frames decoded from the channel."),
		framesSent:     desc("frames_sent_total", "Frames written to the channel."),
		decodeErrors:   desc("decode_errors_total", "Corrupted frames discarded by the decoder.", "kind"),
		abandoned:      desc("abandoned_frames_total", "Partial frames cut short by a new start marker."),
		dropped:        desc("frames_dropped_total", "Received frames dropped because the inbound queue was full."),
		bytesRead:      desc("bytes_read_total", "Bytes read from the channel."),
		bytesWritten:   desc("bytes_written_total", "Bytes written to the channel."),
		skipped:        desc("skipped_bytes_total", "Bytes ignored outside any frame."),
		pending:        desc("queue_pending", "Received frames waiting to be read."),
		state:          desc("state", "Handler state, 1 for the current one.", "state"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.framesReceived
	ch <- c.framesSent
	ch <- c.decodeErrors
	ch <- c.abandoned
	ch <- c.dropped
	ch <- c.bytesRead
	ch <- c.bytesWritten
	ch <- c.skipped
	ch <- c.pending
	ch <- c.state
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	counter(c.framesReceived, st.FramesReceived)
	counter(c.framesSent, st.FramesSent)
	counter(c.decodeErrors, st.FramingErrors, "framing")
	counter(c.decodeErrors, st.ChecksumErrors, "checksum")
	counter(c.abandoned, st.Abandoned)
	counter(c.dropped, st.Dropped)
	counter(c.bytesRead, st.BytesRead)
	counter(c.bytesWritten, st.BytesWritten)
	counter(c.skipped, st.SkippedBytes)

	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(c.src.Pending()))

	current := c.src.State()
	for _, s := range []handler.State{
		handler.StateStopped, handler.StateStarting, handler.StateRunning,
		handler.StateStopping, handler.StateCrashed,
	} {
		v := 0.0
		if s == current {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, v, s.String())
	}
}

// Register adds a collector for src to reg.
func Register(reg prometheus.Registerer, port string, src Source) (*Collector, error) {
	c := NewCollector(port, src)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}
