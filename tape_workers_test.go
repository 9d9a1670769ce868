package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func runTestScheduler(t *testing.T) (*Scheduler, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(SPECTRUM_CLOCK_HZ, false)
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s, ctx
}

func appendTAP(t *testing.T, path string, payload []byte) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if err := EncodeTAP(f, []*TapeBlock{NewStandardBlock(payload, 1000)}); err != nil {
		t.Fatalf("EncodeTAP: %v", err)
	}
}

func TestTapeLoaderFollowsGrowingFile(t *testing.T) {
	sched, ctx := runTestScheduler(t)
	path := filepath.Join(t.TempDir(), "grow.tap")
	appendTAP(t, path, []byte{0x00, 0x01, 0x01})

	got := make(chan *TapeBlock, 4)
	l := NewTapeLoader(path, 10*time.Millisecond, sched, func(bs []*TapeBlock) {
		for _, b := range bs {
			got <- b
		}
	})
	loaderCtx, stop := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() { errc <- l.Run(loaderCtx) }()

	wait := func(want []byte) {
		t.Helper()
		select {
		case b := <-got:
			if !bytes.Equal(b.Data, want) {
				t.Fatalf("block % X, want % X", b.Data, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("block % X never delivered", want)
		}
	}
	wait([]byte{0x00, 0x01, 0x01})

	appendTAP(t, path, []byte{0xFF, 0x42, 0xBD})
	wait([]byte{0xFF, 0x42, 0xBD})

	stop()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loader did not stop")
	}
}

func TestTapeLoaderMissingFile(t *testing.T) {
	sched := NewScheduler(SPECTRUM_CLOCK_HZ, false)
	l := NewTapeLoader(filepath.Join(t.TempDir(), "none.tzx"), time.Millisecond, sched, nil)
	if err := l.Run(context.Background()); err == nil {
		t.Fatal("missing tape accepted")
	}
}

func TestTapeSaverWritesOnStop(t *testing.T) {
	sched, ctx := runTestScheduler(t)
	payload := []byte{0xFF, 0x10, 0x20}
	payload = append(payload, tapChecksum(payload))

	p := NewTapePlayer(nil)
	p.Append(NewStandardBlock(payload, 100))
	rec := NewTapeRecorder()
	var now uint64
	level := false
	for {
		w, ok := p.NextPulse()
		if !ok {
			break
		}
		level = !level
		rec.MICEdge(now, level)
		now += w
	}

	path := filepath.Join(t.TempDir(), "out.tap")
	s := NewTapeSaver(path, 5*time.Millisecond, SPECTRUM_CLOCK_HZ, sched, rec)
	saverCtx, stop := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() { errc <- s.Run(saverCtx) }()

	deadline := time.Now().Add(5 * time.Second)
	for rec.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("saver never drained the recorder")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	stop()
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	blocks, err := LoadTAP(data)
	if err != nil || len(blocks) != 1 {
		t.Fatalf("LoadTAP = %d blocks, %v", len(blocks), err)
	}
	if !bytes.Equal(blocks[0].Data, payload) {
		t.Fatalf("saved % X, want % X", blocks[0].Data, payload)
	}
}

func TestInsertedTapeLoaderStopsWhenTapeReplaced(t *testing.T) {
	m := newTestSpectrum(t, nil, func(c *MachineConfig) { c.TapePoll = 10 * time.Millisecond })
	path := filepath.Join(t.TempDir(), "old.tap")
	appendTAP(t, path, []byte{0x00, 0x01, 0x01})
	if err := m.InsertTape(path); err != nil {
		t.Fatalf("InsertTape: %v", err)
	}
	if len(m.workers) != 1 {
		t.Fatalf("workers = %d, want the tape loader", len(m.workers))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	schedDone := make(chan struct{})
	go func() {
		m.Scheduler().Run(ctx)
		close(schedDone)
	}()
	defer func() {
		cancel()
		<-schedDone
	}()
	loaderDone := make(chan error, 1)
	go func() { loaderDone <- m.workers[0](ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for len(m.Tape().Blocks()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first block never delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	replacement := NewStandardBlock([]byte{0xFF, 0x55, 0xAA}, 1000)
	m.InsertBlocks([]*TapeBlock{replacement})
	appendTAP(t, path, []byte{0xFF, 0x42, 0xBD})

	select {
	case err := <-loaderDone:
		if err != nil {
			t.Fatalf("loader: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("loader kept following the replaced tape")
	}
	blocks := m.Tape().Blocks()
	if len(blocks) != 1 || blocks[0] != replacement {
		t.Fatalf("deck holds %d blocks, want only the replacement", len(blocks))
	}
}

func TestTapePlayerAppendToChecksGeneration(t *testing.T) {
	p := NewTapePlayer(nil)
	old := p.Insert(nil)
	cur := p.Insert(nil)
	if old == cur || p.Generation() != cur {
		t.Fatalf("generations %d %d, current %d", old, cur, p.Generation())
	}
	b := NewStandardBlock([]byte{0x00, 0x00}, 0)
	if p.AppendTo(old, b) {
		t.Fatal("stale tape accepted blocks")
	}
	if !p.AppendTo(cur, b) || len(p.Blocks()) != 1 {
		t.Fatal("current tape refused blocks")
	}
}
