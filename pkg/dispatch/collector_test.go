package dispatch

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bft-labs/b42link/pkg/codec"
	"github.com/bft-labs/b42link/pkg/handler"
)

func TestErrorCollector_Sync(t *testing.T) {
	var got []error
	c := NewErrorCollector(func(err error) { got = append(got, err) }, false)

	first := errors.New("first")
	c.Report(first)
	c.Report(nil)
	c.OnDecodeError(handler.DecodeErrorEvent{Err: &codec.ChecksumError{Want: 1, Got: 2}, Time: time.Now()})

	if len(got) != 0 {
		t.Fatalf("callback ran before ProcessErrors: %v", got)
	}
	if c.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", c.Pending())
	}

	if n := c.ProcessErrors(); n != 2 {
		t.Errorf("ProcessErrors() = %d, want 2", n)
	}
	if len(got) != 2 || got[0] != first || !errors.Is(got[1], codec.ErrChecksum) {
		t.Errorf("processed = %v", got)
	}
	if c.ProcessErrors() != 0 {
		t.Error("errors processed twice")
	}
}

func TestErrorCollector_Async(t *testing.T) {
	var got []error
	c := NewErrorCollector(func(err error) { got = append(got, err) }, true)

	c.Report(errors.New("now"))
	if len(got) != 1 {
		t.Fatalf("async callback calls = %d, want 1", len(got))
	}
	if c.Pending() != 0 || c.ProcessErrors() != 0 {
		t.Error("async collector queued errors")
	}
}

func TestErrorCollector_Bounded(t *testing.T) {
	var got []error
	c := NewErrorCollector(func(err error) { got = append(got, err) }, false)

	for i := 0; i < MaxPendingErrors+5; i++ {
		c.Report(fmt.Errorf("error %d", i))
	}
	if c.Pending() != MaxPendingErrors || c.Discarded() != 5 {
		t.Fatalf("Pending() = %d Discarded() = %d", c.Pending(), c.Discarded())
	}
	c.ProcessErrors()
	if got[0].Error() != "error 5" {
		t.Errorf("oldest kept error = %v, want error 5", got[0])
	}
}
