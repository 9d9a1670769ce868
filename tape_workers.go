// tape_workers.go - Background tape feed and tape capture

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const tapeReadChunk = 64 * 1024

// LoadTapeFile reads a whole tape image of any supported format.
func LoadTapeFile(path string, clockHz int) ([]*TapeBlock, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".mp3":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		b, err := DecodePCM(f, path, clockHz)
		if err != nil {
			return nil, err
		}
		return []*TapeBlock{b}, nil
	case ".tzx":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return LoadTZX(data)
	case ".tap":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return LoadTAP(data)
	}
	return nil, fmt.Errorf("unsupported tape format %q", filepath.Ext(path))
}

// IsStreamableTape reports whether the format can be decoded while the file
// is still growing.
func IsStreamableTape(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tzx" || ext == ".tap"
}

// TapeLoader follows a TZX or TAP file (or FIFO) that may still be written
// to. New complete blocks are handed to deliver on the scheduler goroutine.
type TapeLoader struct {
	Path     string
	Interval time.Duration
	// Live, when set, is checked on every poll; the loader returns once
	// it reports false.
	Live func() bool

	sched   *Scheduler
	deliver func(blocks []*TapeBlock)

	data   []byte
	offset int
	tap    bool
}

func NewTapeLoader(path string, interval time.Duration, sched *Scheduler, deliver func([]*TapeBlock)) *TapeLoader {
	return &TapeLoader{
		Path:     path,
		Interval: interval,
		sched:    sched,
		deliver:  deliver,
		tap:      strings.EqualFold(filepath.Ext(path), ".tap"),
	}
}

func (l *TapeLoader) decode() ([]*TapeBlock, error) {
	if l.tap {
		blocks, off := DecodeTAP(l.data, l.offset)
		l.offset = off
		return blocks, nil
	}
	blocks, off, err := DecodeTZX(l.data, l.offset)
	l.offset = off
	return blocks, err
}

// Run polls the file until ctx ends or the container holds an unknown
// block. Read errors other than end of file stop the loader.
func (l *TapeLoader) Run(ctx context.Context) error {
	f, err := openTapeSource(l.Path)
	if err != nil {
		return fmt.Errorf("tape loader: %w", err)
	}
	defer f.Close()

	buf := make([]byte, tapeReadChunk)
	for {
		if ctx.Err() != nil || (l.Live != nil && !l.Live()) {
			return nil
		}
		// Pipes honour the deadline; regular files return EOF instead.
		_ = f.SetReadDeadline(time.Now().Add(l.Interval))
		n, err := f.Read(buf)
		if n > 0 {
			l.data = append(l.data, buf[:n]...)
			blocks, derr := l.decode()
			if len(blocks) > 0 {
				if serr := l.submit(ctx, blocks); serr != nil {
					return nil
				}
			}
			if derr != nil {
				fmt.Fprintf(os.Stderr, "tape loader: %v\n", derr)
				return nil
			}
			continue
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, os.ErrDeadlineExceeded):
			if errors.Is(err, io.EOF) {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(l.Interval):
				}
			}
		default:
			return fmt.Errorf("tape loader: %w", err)
		}
	}
}

// openTapeSource opens path for reading. A FIFO is opened read-write so the
// open does not wait for a writer to appear.
func openTapeSource(path string) (*os.File, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.Mode()&os.ModeNamedPipe != 0 {
		return os.OpenFile(path, os.O_RDWR, 0)
	}
	return os.Open(path)
}

func (l *TapeLoader) submit(ctx context.Context, blocks []*TapeBlock) error {
	return l.sched.SubmitRetry(ctx, TaskHost, TaskFunc(func(*Scheduler, uint64) {
		l.deliver(blocks)
	}), l.Interval/10+time.Millisecond)
}

type drainResult struct {
	edges []uint64
	now   uint64
}

// TapeSaver turns MIC activity into tape blocks and rewrites the output
// file whenever a block completes.
type TapeSaver struct {
	Path     string
	Interval time.Duration
	ClockHz  int

	sched    *Scheduler
	recorder *TapeRecorder
	decoder  *PulseDecoder
	blocks   []*TapeBlock
}

func NewTapeSaver(path string, interval time.Duration, clockHz int, sched *Scheduler, rec *TapeRecorder) *TapeSaver {
	return &TapeSaver{
		Path:     path,
		Interval: interval,
		ClockHz:  clockHz,
		sched:    sched,
		recorder: rec,
		decoder:  NewPulseDecoder(clockHz),
	}
}

// Blocks returns the blocks captured so far.
func (s *TapeSaver) Blocks() []*TapeBlock {
	return s.blocks
}

func (s *TapeSaver) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return s.store(s.decoder.Flush())
		case <-ticker.C:
		}

		reply := make(chan drainResult, 1)
		err := s.sched.SubmitRetry(ctx, TaskHost, TaskFunc(func(_ *Scheduler, now uint64) {
			reply <- drainResult{edges: s.recorder.Drain(), now: now}
		}), s.Interval/10+time.Millisecond)
		if err != nil {
			return s.store(s.decoder.Flush())
		}
		var res drainResult
		select {
		case res = <-reply:
		case <-ctx.Done():
			return s.store(s.decoder.Flush())
		}
		if err := s.store(s.decoder.Feed(res.edges, res.now)); err != nil {
			return err
		}
	}
}

func (s *TapeSaver) store(blocks []*TapeBlock) error {
	if len(blocks) == 0 {
		return nil
	}
	for _, b := range blocks {
		s.blocks = append(s.blocks, b)
		status := "bad checksum"
		if tapChecksum(b.Data) == 0 {
			status = "ok"
		}
		fmt.Printf("tape saver: block %d, %d bytes, %s\n", len(s.blocks)-1, len(b.Data), status)
	}
	return WriteTapeFile(s.Path, s.blocks, s.ClockHz)
}
