package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/b42link/internal/script"
	"github.com/bft-labs/b42link/pkg/frame"
	"github.com/bft-labs/b42link/pkg/handler"
	"github.com/bft-labs/b42link/pkg/status"
)

// link is the part of *handler.Handler a session uses.
type link interface {
	Send(command, data uint32) error
	ReceiveContext(ctx context.Context) (frame.Frame, error)
}

// session prints one conversation with a device.
type session struct {
	link   link
	out    io.Writer
	logger zerolog.Logger
}

// Send implements script.Sender, echoing each frame before sending it.
func (s *session) Send(command, data uint32) error {
	fmt.Fprintf(s.out, "> cmd=0x%X data=%d\n", command, data)
	return s.link.Send(command, data)
}

// chat waits for the device to settle, sends steps and prints replies until
// the link has been quiet for responseTimeout. With follow set it keeps
// printing until ctx is done.
func (s *session) chat(ctx context.Context, steps []script.Step, initTimeout, responseTimeout time.Duration, follow bool) error {
	if initTimeout > 0 {
		s.logger.Debug().Dur("init_timeout", initTimeout).Msg("waiting for device")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(initTimeout):
		}
	}

	if err := script.Run(ctx, s, steps); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	for {
		n, err := s.receiveUntilQuiet(ctx, responseTimeout)
		s.logger.Debug().Int("frames", n).Msg("link quiet")
		if err != nil || !follow || ctx.Err() != nil {
			return err
		}
	}
}

// listen prints frames until ctx is done or the link closes.
func (s *session) listen(ctx context.Context) error {
	for {
		f, err := s.link.ReceiveContext(ctx)
		switch {
		case err == nil:
			s.print(f)
		case errors.Is(err, handler.ErrClosed), ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
}

// receiveUntilQuiet prints frames until none arrives for quiet.
func (s *session) receiveUntilQuiet(ctx context.Context, quiet time.Duration) (int, error) {
	n := 0
	for {
		rctx, cancel := context.WithTimeout(ctx, quiet)
		f, err := s.link.ReceiveContext(rctx)
		cancel()
		switch {
		case err == nil:
			s.print(f)
			n++
		case errors.Is(err, handler.ErrClosed), errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
			return n, nil
		default:
			return n, err
		}
	}
}

func (s *session) print(f frame.Frame) {
	fmt.Fprintf(s.out, "< %s\n", f)
}

// saveStatus folds this session's stats into the status file at path.
func saveStatus(ctx context.Context, path, port string, src status.Source, startedAt time.Time) error {
	repo := status.NewFileRepository(path)
	prev, err := repo.Load(ctx)
	if err != nil {
		return err
	}
	return repo.Save(ctx, status.Snapshot(port, src, startedAt).Merge(prev))
}
