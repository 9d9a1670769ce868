//go:build windows

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// TerminalHost reads raw stdin and types it into the machine. Console reads
// cannot be interrupted, so the reader goroutine is abandoned on Stop.
type TerminalHost struct {
	sink         TerminalSink
	decoder      terminalDecoder
	done         chan struct{}
	fd           int
	oldTermState *term.State
}

// NewTerminalHost creates a host adapter that types stdin into sink.
func NewTerminalHost(sink TerminalSink) *TerminalHost {
	return &TerminalHost{
		sink: sink,
		done: make(chan struct{}),
	}
}

// Start sets stdin to raw mode and begins reading in a goroutine.
// Call Stop() to restore stdin.
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

	go func() {
		defer close(h.done)
		buf := make([]byte, 64)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 && !h.decoder.feed(h.sink, buf[:n]) {
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return nil
}

// Stop restores the console mode.
func (h *TerminalHost) Stop() {
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
