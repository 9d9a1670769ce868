package main

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func newTestSpectrum(t *testing.T, rom []byte, configure func(*MachineConfig)) *Spectrum {
	t.Helper()
	cfg := DefaultMachineConfig()
	cfg.Turbo = true
	if configure != nil {
		configure(&cfg)
	}
	m, err := NewSpectrum(cfg)
	if err != nil {
		t.Fatalf("NewSpectrum: %v", err)
	}
	m.Memory().Load(0, rom)
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return m
}

// stepUntil drives the timeline without pacing until cycle is reached.
func stepUntil(t *testing.T, m *Spectrum, cycle uint64) {
	t.Helper()
	for m.Scheduler().Now() < cycle {
		if !m.Scheduler().Step() {
			t.Fatalf("timeline empty at cycle %d", m.Scheduler().Now())
		}
	}
}

func TestSpectrumRunsProgram(t *testing.T) {
	// DI; LD A,2; OUT (FE),A; HALT
	m := newTestSpectrum(t, []byte{0xF3, 0x3E, 0x02, 0xD3, 0xFE, 0x76}, nil)
	stepUntil(t, m, 1000)

	if !m.CPU().Halted {
		t.Fatalf("CPU not halted, PC=%04X", m.CPU().PC)
	}
	if got := m.Ports().Border(); got != 2 {
		t.Fatalf("border = %d, want 2", got)
	}
}

func TestSpectrumFrameInterrupt(t *testing.T) {
	rom := make([]byte, 0x40)
	// DI; IM 1; EI; HALT; JR -3
	copy(rom, []byte{0xF3, 0xED, 0x56, 0xFB, 0x76, 0x18, 0xFD})
	// 0x38: LD HL,8000; INC (HL); EI; RET
	copy(rom[0x38:], []byte{0x21, 0x00, 0x80, 0x34, 0xFB, 0xC9})
	m := newTestSpectrum(t, rom, nil)

	stepUntil(t, m, 2*ULA_CYCLES_PER_FRAME+1000)

	if got := m.Memory().Read(0x8000); got != 2 {
		t.Fatalf("interrupt count = %d, want 2", got)
	}
	if got := m.ULA().FrameCount(); got != 2 {
		t.Fatalf("frames = %d, want 2", got)
	}
}

func TestSpectrumDecodeHalt(t *testing.T) {
	m := newTestSpectrum(t, []byte{0xED, 0x00}, nil)
	for range 10 {
		m.Scheduler().Step()
	}
	var de *Z80DecodeError
	if !errors.As(m.Fault(), &de) {
		t.Fatalf("fault = %v, want *Z80DecodeError", m.Fault())
	}
	if m.Scheduler().Has(TaskCPU) {
		t.Fatal("CPU task still scheduled after a halting decode failure")
	}
}

func TestSpectrumDecodeSkip(t *testing.T) {
	// ED 00 (undefined); LD A,5; OUT (FE),A; HALT
	rom := []byte{0xED, 0x00, 0x3E, 0x05, 0xD3, 0xFE, 0x76}
	m := newTestSpectrum(t, rom, func(c *MachineConfig) { c.Decode = DecodeSkip })
	stepUntil(t, m, 1000)

	if m.Fault() != nil {
		t.Fatalf("fault = %v under skip policy", m.Fault())
	}
	if got := m.Ports().Border(); got != 5 {
		t.Fatalf("border = %d, want 5", got)
	}
}

func TestSpectrumTapePlayback(t *testing.T) {
	m := newTestSpectrum(t, []byte{0x18, 0xFE}, nil)
	header := make([]byte, 19)
	header[18] = tapChecksum(header[:18])
	m.InsertBlocks([]*TapeBlock{NewStandardBlock(header, 1000)})
	m.PlayTape()

	stepUntil(t, m, 2*ULA_CYCLES_PER_FRAME)

	if m.Tape().Edges() == 0 {
		t.Fatal("no tape edges played")
	}
	if !m.Scheduler().Has(TaskTapeEdge) {
		t.Fatal("tape task not scheduled while playing")
	}
	st := m.Status()
	if !st.TapePlaying || st.TapeBlocks != 1 {
		t.Fatalf("status = %+v", st)
	}

	m.StopTape()
	stepUntil(t, m, 3*ULA_CYCLES_PER_FRAME)
	if m.Scheduler().Has(TaskTapeEdge) {
		t.Fatal("tape task still scheduled after stop")
	}
}

func TestSpectrumSnapshotRoundTrip(t *testing.T) {
	m := newTestSpectrum(t, nil, nil)
	img := testSnapshotImage()
	if err := m.ReadSnapshot(bytes.NewReader(img)); err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if m.CPU().PC != 0x1234 || m.Ports().Border() != 5 {
		t.Fatalf("PC=%04X border=%d after load", m.CPU().PC, m.Ports().Border())
	}
	var out bytes.Buffer
	if err := SaveSNA(&out, m.CPU(), m.Memory(), m.Ports()); err != nil {
		t.Fatalf("SaveSNA: %v", err)
	}
	if !bytes.Equal(out.Bytes(), img) {
		t.Fatal("snapshot changed across load and save")
	}
}

func TestSpectrumResetKeepsMemory(t *testing.T) {
	m := newTestSpectrum(t, []byte{0x00, 0x00, 0x00}, nil)
	stepUntil(t, m, 100)
	m.Memory().Write(0x8000, 0x77)
	if err := m.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if m.CPU().PC != 0 || m.CPU().SP != 0xFFFF {
		t.Fatalf("PC=%04X SP=%04X after reset", m.CPU().PC, m.CPU().SP)
	}
	if m.Memory().Read(0x8000) != 0x77 {
		t.Fatal("reset cleared RAM")
	}
}

func TestSpectrumPauseHoldsCPU(t *testing.T) {
	m := newTestSpectrum(t, []byte{0x18, 0xFE}, nil)
	m.SetPaused(true)
	stepUntil(t, m, ULA_CYCLES_PER_FRAME)
	if m.CPU().Cycles != 0 {
		t.Fatalf("CPU ran %d cycles while paused", m.CPU().Cycles)
	}
	if m.ULA().FrameCount() != 1 {
		t.Fatalf("frames = %d, want 1 while paused", m.ULA().FrameCount())
	}
}

func TestSpectrumRunStopsFromScript(t *testing.T) {
	m, err := NewSpectrum(func() MachineConfig {
		c := DefaultMachineConfig()
		c.Turbo = true
		return c
	}())
	if err != nil {
		t.Fatalf("NewSpectrum: %v", err)
	}
	m.Memory().Load(0, []byte{0x18, 0xFE})
	script := NewLuaScript(m)
	defer script.Close()
	if err := script.LoadString(`on_frame(function(n) if n >= 3 then stop() end end)`); err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	m.SetScript(script)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.ULA().FrameCount(); got != 3 {
		t.Fatalf("frames = %d, want 3", got)
	}
}

func TestSpectrumRunReturnsDecodeFault(t *testing.T) {
	m, err := NewSpectrum(func() MachineConfig {
		c := DefaultMachineConfig()
		c.Turbo = true
		return c
	}())
	if err != nil {
		t.Fatalf("NewSpectrum: %v", err)
	}
	m.Memory().Load(0, []byte{0xED, 0xFF})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = m.Run(ctx)
	var de *Z80DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Run error = %v, want *Z80DecodeError", err)
	}
}

func TestMachineConfigValidate(t *testing.T) {
	cfg := DefaultMachineConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg.Scale = 0
	cfg.ExtractTo = "/tmp/x"
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid config accepted")
	}
	if _, err := ParseDecodePolicy("bogus"); err == nil {
		t.Fatal("bogus decode policy accepted")
	}
	if p, _ := ParseDecodePolicy("LOG"); p != DecodeLog {
		t.Fatalf("policy = %v, want log", p)
	}
}

func TestSpectrumHostCallWaitsForSchedulerOnceLive(t *testing.T) {
	m := newTestSpectrum(t, []byte{0x18, 0xFE}, nil)

	var ran atomic.Bool
	if err := m.call(func() { ran.Store(true) }); err != nil || !ran.Load() {
		t.Fatalf("direct call before Run: ran=%v err=%v", ran.Load(), err)
	}

	ran.Store(false)
	m.setLive(true)
	errc := make(chan error, 1)
	go func() { errc <- m.call(func() { ran.Store(true) }) }()

	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Fatal("call ran off the scheduler goroutine while the machine was live")
	}
	deadline := time.Now().Add(5 * time.Second)
	for !ran.Load() {
		if time.Now().After(deadline) {
			t.Fatal("submitted call never ran")
		}
		m.Scheduler().Step()
	}
	if err := <-errc; err != nil {
		t.Fatalf("call: %v", err)
	}

	m.setLive(false)
	if err := m.call(func() {}); err != nil {
		t.Fatalf("call after stop: %v", err)
	}
}

func TestSpectrumHostCallsDuringStartup(t *testing.T) {
	m, err := NewSpectrum(func() MachineConfig {
		c := DefaultMachineConfig()
		c.Turbo = true
		return c
	}())
	if err != nil {
		t.Fatalf("NewSpectrum: %v", err)
	}
	rom := make([]byte, 0x68)
	// JR -2, and RETN at the NMI vector
	copy(rom, []byte{0x18, 0xFE})
	copy(rom[0x66:], []byte{0xED, 0x45})
	m.Memory().Load(0, rom)
	script := NewLuaScript(m)
	defer script.Close()
	if err := script.LoadString(`on_frame(function(n) if n >= 5 then stop() end end)`); err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	m.SetScript(script)

	stop := make(chan struct{})
	callsDone := make(chan struct{})
	go func() {
		defer close(callsDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			err := m.NMI()
			if err != nil && !errors.Is(err, ErrMailboxBusy) && !errors.Is(err, ErrMachineStopped) {
				t.Errorf("NMI: %v", err)
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = m.Run(ctx)
	close(stop)
	<-callsDone
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}
