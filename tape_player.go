// tape_player.go - Tape deck: plays decoded blocks as EAR edges

package main

import (
	"io"
	"iter"
	"sync"
	"sync/atomic"
)

// TapePlayer walks the block list pulse by pulse. The scheduler's tape task
// calls NextPulse; each call sets the EAR level for the pulse that starts
// now and returns its length.
type TapePlayer struct {
	mu     sync.Mutex
	blocks []*TapeBlock
	index  int
	gen    uint64 // bumped by Insert

	next func() (tapePulse, bool)
	stop func()

	setLevel    func(bool)
	high        bool
	cyclesPerMs uint64

	playing atomic.Bool
	edges   atomic.Uint64
}

func NewTapePlayer(setLevel func(bool)) *TapePlayer {
	if setLevel == nil {
		setLevel = func(bool) {}
	}
	return &TapePlayer{setLevel: setLevel, cyclesPerMs: TapeCyclesPerMs}
}

// SetClockHz sets the CPU clock that block pauses are timed against.
func (p *TapePlayer) SetClockHz(hz int) {
	p.mu.Lock()
	p.cyclesPerMs = tapeCyclesPerMs(hz)
	p.mu.Unlock()
}

// Append adds blocks at the end of the tape.
func (p *TapePlayer) Append(blocks ...*TapeBlock) {
	p.mu.Lock()
	p.blocks = append(p.blocks, blocks...)
	p.mu.Unlock()
}

// Insert replaces the tape and rewinds it. It returns the new tape's
// generation for use with AppendTo.
func (p *TapePlayer) Insert(blocks []*TapeBlock) uint64 {
	p.mu.Lock()
	p.closeBlock()
	p.blocks = blocks
	p.index = 0
	p.gen++
	gen := p.gen
	p.mu.Unlock()
	p.playing.Store(false)
	return gen
}

// AppendTo adds blocks only if tape gen is still in the deck.
func (p *TapePlayer) AppendTo(gen uint64, blocks ...*TapeBlock) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return false
	}
	p.blocks = append(p.blocks, blocks...)
	return true
}

// Generation identifies the tape currently in the deck.
func (p *TapePlayer) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

func (p *TapePlayer) Blocks() []*TapeBlock {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*TapeBlock(nil), p.blocks...)
}

func (p *TapePlayer) Play() { p.playing.Store(true) }

func (p *TapePlayer) Stop() { p.playing.Store(false) }

func (p *TapePlayer) Playing() bool { return p.playing.Load() }

func (p *TapePlayer) Rewind() {
	p.mu.Lock()
	p.closeBlock()
	p.index = 0
	p.mu.Unlock()
}

// Position returns the current block index and the number of blocks.
func (p *TapePlayer) Position() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index, len(p.blocks)
}

// AtEnd reports whether every block has been played.
func (p *TapePlayer) AtEnd() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next == nil && p.index >= len(p.blocks)
}

// Edges is the number of pulses played since construction.
func (p *TapePlayer) Edges() uint64 { return p.edges.Load() }

func (p *TapePlayer) closeBlock() {
	if p.stop != nil {
		p.stop()
	}
	p.next, p.stop = nil, nil
}

// NextPulse starts the next pulse and returns its length in cycles. It
// returns false at the end of the tape or at a stop-the-tape block, which
// also stops playback.
func (p *TapePlayer) NextPulse() (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.next == nil {
			if p.index >= len(p.blocks) {
				return 0, false
			}
			p.next, p.stop = iter.Pull(p.blocks[p.index].PulseStream(p.cyclesPerMs))
		}
		pulse, ok := p.next()
		if !ok {
			p.closeBlock()
			p.index++
			continue
		}
		if pulse.stop {
			p.closeBlock()
			p.index++
			p.playing.Store(false)
			return 0, false
		}
		p.high = applyLevel(p.high, pulse.level)
		p.setLevel(p.high)
		p.edges.Add(1)
		if pulse.cycles == 0 {
			continue
		}
		return uint64(pulse.cycles), true
	}
}

// ExtractTZXBlock writes block index of the loaded tape as a one-block TZX
// image.
func (p *TapePlayer) ExtractTZXBlock(w io.Writer, index int) error {
	return ExtractTZXBlock(w, p.Blocks(), index)
}
