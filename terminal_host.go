//go:build !windows

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// TerminalHost reads raw stdin and types it into the machine, so a headless
// run can still be driven from the keyboard. Ctrl-C ends the run.
type TerminalHost struct {
	sink         TerminalSink
	decoder      terminalDecoder
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

// NewTerminalHost creates a host adapter that types stdin into sink.
func NewTerminalHost(sink TerminalSink) *TerminalHost {
	return &TerminalHost{
		sink:   sink,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start sets stdin to raw, non-blocking mode and begins reading in a
// goroutine. Call Stop() to restore stdin.
func (h *TerminalHost) Start() error {
	h.fd = int(os.Stdin.Fd())
	if !term.IsTerminal(h.fd) {
		close(h.done)
		return errors.New("terminal_host: stdin is not a terminal")
	}

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		close(h.done)
		return fmt.Errorf("terminal_host: failed to set raw mode: %w", err)
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return fmt.Errorf("terminal_host: failed to set nonblocking stdin: %w", err)
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 64)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 && !h.decoder.feed(h.sink, buf[:n]) {
				return
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
	return nil
}

// Stop terminates the stdin reading goroutine and restores stdin to blocking mode.
func (h *TerminalHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}

// Run is a machine worker: it reads stdin until ctx ends.
func (h *TerminalHost) Run(ctx context.Context) error {
	if err := h.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return nil
	}
	select {
	case <-ctx.Done():
	case <-h.done:
	}
	h.Stop()
	return nil
}
