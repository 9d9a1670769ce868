// spectrum_machine.go - The assembled machine and its scheduler tasks

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrMachineStopped = errors.New("machine stopped")

// Spectrum owns every component of one machine. All CPU, memory and port
// state is touched only from the scheduler goroutine once Run has started;
// other goroutines reach it through Submit.
type Spectrum struct {
	cfg MachineConfig

	cpu      *CPU_Z80
	mem      *SpectrumMemory
	keyboard *KeyboardMatrix
	typer    *KeyTyper
	ports    *ULAPorts
	ula      *ULAEngine
	beeper   *Beeper
	tape     *TapePlayer
	recorder *TapeRecorder
	sched    *Scheduler
	script   *LuaScript

	line      int
	tapeArmed bool
	paused    atomic.Bool
	turbo     atomic.Bool

	faultMu sync.Mutex
	fault   error

	// runMu is held while Run starts and while a host call runs fn
	// directly; live is set from Start until the scheduler loop returns.
	runMu sync.Mutex
	live  bool

	workersMu sync.Mutex
	workers   []func(ctx context.Context) error
	saver     *TapeSaver
}

func NewSpectrum(cfg MachineConfig) (*Spectrum, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Spectrum{
		cfg:      cfg,
		mem:      NewSpectrumMemory(),
		keyboard: NewKeyboardMatrix(),
		recorder: NewTapeRecorder(),
	}
	m.sched = NewScheduler(uint64(cfg.ClockHz), !cfg.Turbo)
	m.turbo.Store(cfg.Turbo)
	m.typer = NewKeyTyper(m.keyboard)
	m.ports = NewULAPorts(m.keyboard, m.sched.Now)
	m.cpu = NewCPU_Z80(m)
	m.ula = NewULAEngine(m.mem, m.ports)
	m.beeper = NewBeeper(cfg.ClockHz, cfg.SampleRate, m.ports.SpeakerLevel)
	m.tape = NewTapePlayer(m.ports.SetTapeLevel)
	m.tape.SetClockHz(cfg.ClockHz)

	if cfg.RecordTo != "" {
		m.ports.SetMICListener(m.recorder)
		m.saver = NewTapeSaver(cfg.RecordTo, cfg.TapePoll, cfg.ClockHz, m.sched, m.recorder)
		m.Go(m.saver.Run)
	}
	return m, nil
}

// Z80Bus

func (m *Spectrum) Read(addr uint16) byte { return m.mem.Read(addr) }
func (m *Spectrum) Write(addr uint16, value byte) { m.mem.Write(addr, value) }
func (m *Spectrum) In(port uint16) byte { return m.ports.In(port) }
func (m *Spectrum) Out(port uint16, value byte) { m.ports.Out(port, value) }

func (m *Spectrum) CPU() *CPU_Z80 { return m.cpu }
func (m *Spectrum) Memory() *SpectrumMemory { return m.mem }
func (m *Spectrum) Keyboard() *KeyboardMatrix { return m.keyboard }
func (m *Spectrum) Ports() *ULAPorts { return m.ports }
func (m *Spectrum) ULA() *ULAEngine { return m.ula }
func (m *Spectrum) Beeper() *Beeper { return m.beeper }
func (m *Spectrum) Tape() *TapePlayer { return m.tape }
func (m *Spectrum) Scheduler() *Scheduler { return m.sched }
func (m *Spectrum) Config() MachineConfig { return m.cfg }

// Go registers a worker that runs alongside the scheduler in Run. Workers
// must return once ctx is cancelled.
func (m *Spectrum) Go(fn func(ctx context.Context) error) {
	m.workersMu.Lock()
	m.workers = append(m.workers, fn)
	m.workersMu.Unlock()
}

// SetScript attaches a loaded Lua script. Its hooks run on the scheduler
// goroutine.
func (m *Spectrum) SetScript(s *LuaScript) {
	m.script = s
}

func (m *Spectrum) LoadROM(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load ROM: %w", err)
	}
	defer f.Close()
	if _, err := m.mem.LoadROM(f); err != nil {
		return fmt.Errorf("load ROM %s: %w", path, err)
	}
	return nil
}

// call runs fn on the scheduler goroutine and waits for it, or runs it
// directly while the scheduler is not running. A busy mailbox is returned
// as ErrMailboxBusy. Never call it from a task.
func (m *Spectrum) call(fn func()) error {
	m.runMu.Lock()
	if !m.live {
		defer m.runMu.Unlock()
		fn()
		return nil
	}
	m.runMu.Unlock()

	done := make(chan struct{})
	err := m.sched.TrySubmit(TaskHost, TaskFunc(func(*Scheduler, uint64) {
		fn()
		close(done)
	}))
	if err != nil {
		return err
	}
	for {
		select {
		case <-done:
			return nil
		case <-time.After(schedulerIdleWait):
			if !m.isLive() {
				return ErrMachineStopped
			}
		}
	}
}

func (m *Spectrum) isLive() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.live
}

func (m *Spectrum) setLive(on bool) {
	m.runMu.Lock()
	m.live = on
	m.runMu.Unlock()
}

// Reset restarts the CPU and the raster, keeping memory (and so the ROM).
func (m *Spectrum) Reset() error {
	return m.call(func() {
		m.cpu.Reset()
		m.ports.Reset()
		m.ula.Reset()
		m.typer.Clear()
		m.keyboard.ReleaseAll()
		m.setFault(nil)
	})
}

func (m *Spectrum) NMI() error {
	return m.call(m.cpu.RequestNMI)
}

func (m *Spectrum) TypeText(s string) {
	m.typer.Type(s)
}

func (m *Spectrum) SetPaused(p bool) { m.paused.Store(p) }
func (m *Spectrum) Paused() bool { return m.paused.Load() }

// SetTurbo switches real-time pacing off or back on.
func (m *Spectrum) SetTurbo(on bool) error {
	err := m.call(func() { m.sched.SetThrottle(!on) })
	if err == nil {
		m.turbo.Store(on)
	}
	return err
}

// Stop ends Run after the task in progress.
func (m *Spectrum) Stop() {
	m.sched.Stop()
}

func (m *Spectrum) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	defer f.Close()
	return m.ReadSnapshot(f)
}

func (m *Spectrum) ReadSnapshot(r io.Reader) error {
	var err error
	if cerr := m.call(func() { err = LoadSNA(r, m.cpu, m.mem, m.ports) }); cerr != nil {
		return cerr
	}
	return err
}

// SaveSnapshot writes a .sna image. Call it while Run is not active.
func (m *Spectrum) SaveSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := SaveSNA(f, m.cpu, m.mem, m.ports); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// InsertTape loads a tape image. TZX and TAP files are followed while
// the machine runs so blocks appended later (or written into a FIFO) are
// picked up.
func (m *Spectrum) InsertTape(path string) error {
	if IsStreamableTape(path) {
		gen := m.tape.Insert(nil)
		loader := NewTapeLoader(path, m.cfg.TapePoll, m.sched, func(blocks []*TapeBlock) {
			if m.tape.AppendTo(gen, blocks...) {
				m.armTape(m.sched.Now())
			}
		})
		loader.Live = func() bool { return m.tape.Generation() == gen }
		m.Go(loader.Run)
	} else {
		blocks, err := LoadTapeFile(path, m.cfg.ClockHz)
		if err != nil {
			return fmt.Errorf("insert tape: %w", err)
		}
		m.tape.Insert(blocks)
	}
	if m.cfg.TapeAutoplay {
		m.PlayTape()
	}
	return nil
}

// InsertBlocks puts already decoded blocks in the deck.
func (m *Spectrum) InsertBlocks(blocks []*TapeBlock) {
	m.tape.Insert(blocks)
}

// PlayTape starts the deck. The tape task is armed at the next frame.
func (m *Spectrum) PlayTape() {
	m.tape.Play()
	m.ports.SetTapeLoading(true)
}

func (m *Spectrum) StopTape() {
	m.tape.Stop()
	m.ports.SetTapeLoading(false)
}

// RecordedBlocks returns the blocks captured from MIC. Call it after Run
// has returned.
func (m *Spectrum) RecordedBlocks() []*TapeBlock {
	if m.saver == nil {
		return nil
	}
	return m.saver.Blocks()
}

func (m *Spectrum) setFault(err error) {
	m.faultMu.Lock()
	m.fault = err
	m.faultMu.Unlock()
}

// Fault returns the decode failure that halted the machine, if any.
func (m *Spectrum) Fault() error {
	m.faultMu.Lock()
	defer m.faultMu.Unlock()
	return m.fault
}

func (m *Spectrum) Status() MachineStatus {
	block, blocks := m.tape.Position()
	return MachineStatus{
		Cycles:       m.sched.Now(),
		Frames:       m.ula.FrameCount(),
		ClockHz:      m.cfg.ClockHz,
		Running:      m.sched.Running(),
		Paused:       m.paused.Load(),
		Turbo:        m.turbo.Load(),
		TapePlaying:  m.tape.Playing(),
		TapeBlock:    block,
		TapeBlocks:   blocks,
		TapeEdges:    m.tape.Edges(),
		MICEdges:     m.recorder.Total(),
		AudioDropped: m.beeper.Dropped(),
		Fault:        m.Fault(),
	}
}

// Start puts the recurring tasks on the timeline. Run calls it; tests call
// it directly and then drive the scheduler with Step.
func (m *Spectrum) Start() error {
	now := m.sched.Now()
	tasks := []Task{
		{Due: now, Kind: TaskCPU, Action: Recurring(TaskCPU, m.cpuStep)},
		{Due: now, Kind: TaskVideoLine, Action: Recurring(TaskVideoLine, m.videoLine)},
		{Due: now, Kind: TaskAudioSample, Action: Recurring(TaskAudioSample, m.beeper.Sample)},
	}
	for _, t := range tasks {
		if err := m.sched.Schedule(t); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the machine and blocks until the scheduler stops or ctx ends.
// Tape workers and other registered workers share its lifetime.
func (m *Spectrum) Run(ctx context.Context) error {
	m.runMu.Lock()
	err := m.Start()
	m.live = err == nil
	m.runMu.Unlock()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		defer m.setLive(false)
		err := m.sched.Run(gctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err == nil {
			err = m.Fault()
		}
		return err
	})

	m.workersMu.Lock()
	workers := append([]func(context.Context) error(nil), m.workers...)
	m.workersMu.Unlock()
	for _, w := range workers {
		g.Go(func() error { return w(gctx) })
	}
	return g.Wait()
}

func (m *Spectrum) cpuStep(now uint64) uint64 {
	if m.paused.Load() {
		return ULA_CYCLES_PER_LINE
	}
	if m.script != nil && m.script.HasPCHooks() {
		m.script.OnPC(m.cpu.PC)
		if m.script.Stopped() {
			m.sched.Stop()
			return 0
		}
	}
	if m.cfg.Trace {
		line := disassembleZ80(m.mem.Read, m.cpu.PC, 1)[0]
		fmt.Printf("%10d  %s\n", now, line)
	}
	cycles, err := m.cpu.Step()
	if err != nil {
		return m.decodeFailure(err)
	}
	return uint64(cycles)
}

func (m *Spectrum) decodeFailure(err error) uint64 {
	var de *Z80DecodeError
	if !errors.As(err, &de) {
		m.setFault(err)
		m.sched.Stop()
		return 0
	}
	switch m.cfg.Decode {
	case DecodeLog:
		line := disassembleZ80(m.mem.Read, de.PC, 1)[0]
		fmt.Fprintf(os.Stderr, "cpu: %v: %s\ncpu: %s\n", de, line, NewDebugZ80(m.cpu))
		return decodeSkipCycles
	case DecodeSkip:
		return decodeSkipCycles
	}
	fmt.Fprintf(os.Stderr, "cpu: %v, halting\ncpu: %s\n", de, NewDebugZ80(m.cpu))
	m.setFault(err)
	m.sched.Stop()
	return 0
}

func (m *Spectrum) videoLine(now uint64) uint64 {
	line := m.line
	if line == 0 {
		m.cpu.RequestInterrupt(0xFF)
	}
	m.ula.RenderLine(line)
	if line == ULA_LAST_LINE {
		m.endFrame(now)
	}
	m.line = (line + 1) % ULA_LINES_PER_FRAME
	return ULA_CYCLES_PER_LINE
}

func (m *Spectrum) endFrame(now uint64) {
	m.ula.EndFrame()
	m.typer.Tick()
	m.armTape(now)
	if m.script != nil {
		m.script.OnFrame()
		if m.script.Stopped() {
			m.sched.Stop()
		}
	}
}

// armTape schedules the tape edge task when the deck is playing and no
// edge is pending.
func (m *Spectrum) armTape(now uint64) {
	if m.tapeArmed || !m.tape.Playing() {
		return
	}
	m.tapeArmed = true
	err := m.sched.Schedule(Task{Due: now, Kind: TaskTapeEdge, Action: Recurring(TaskTapeEdge, m.tapeEdge)})
	if err != nil {
		m.tapeArmed = false
		fmt.Fprintf(os.Stderr, "tape: %v\n", err)
	}
}

func (m *Spectrum) tapeEdge(uint64) uint64 {
	if !m.tape.Playing() {
		m.tapeArmed = false
		m.ports.SetTapeLoading(false)
		return 0
	}
	cycles, ok := m.tape.NextPulse()
	if !ok {
		m.tapeArmed = false
		if !m.tape.Playing() {
			m.ports.SetTapeLoading(false)
		}
		return 0
	}
	return cycles
}
