// tape_recorder.go - MIC capture and ROM-format pulse decoding

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TapeRecorder collects the cycle of every MIC level change. The ports call
// MICEdge on the scheduler goroutine; Drain hands the edges to the save
// worker through a scheduler task.
type TapeRecorder struct {
	mu    sync.Mutex
	edges []uint64
	total uint64
}

func NewTapeRecorder() *TapeRecorder {
	return &TapeRecorder{}
}

func (r *TapeRecorder) MICEdge(cycle uint64, level bool) {
	r.mu.Lock()
	r.edges = append(r.edges, cycle)
	r.total++
	r.mu.Unlock()
}

// Drain returns the edges recorded since the last call.
func (r *TapeRecorder) Drain() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.edges
	r.edges = nil
	return e
}

// Pending is the number of edges waiting for the next Drain.
func (r *TapeRecorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.edges)
}

func (r *TapeRecorder) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Pulse classification windows in T-states around the ROM saver's timings.
const (
	decodePilotMin   = TapePilotPulse * 3 / 4
	decodePilotMax   = TapePilotPulse * 5 / 4
	decodeSyncMax    = (TapeSync2Pulse + TapeZeroPulse) / 2
	decodeBitMin     = TapeZeroPulse / 2
	decodeBitSplit   = (TapeZeroPulse + TapeOnePulse) / 2
	decodeBitMax     = TapeOnePulse * 5 / 4
	decodeMinPilot   = 256
	decodeQuietMs    = 10
)

type pulseState uint8

const (
	pulseSeekPilot pulseState = iota
	pulsePilot
	pulseSync2
	pulseData
)

// PulseDecoder rebuilds ROM-format blocks from edge timestamps: a pilot
// run, two sync pulses, then two equal pulses per bit, MSB first.
type PulseDecoder struct {
	state    pulseState
	lastEdge uint64
	started  bool

	pilot   int
	half    uint64 // first pulse of the current bit pair, 0 if none
	cur     byte
	nbits   int
	data    []byte
	pending []*TapeBlock

	quiet uint64 // silence in T-states that ends a block
}

func NewPulseDecoder(clockHz int) *PulseDecoder {
	return &PulseDecoder{quiet: decodeQuietMs * tapeCyclesPerMs(clockHz)}
}

// Feed consumes edges up to now and returns blocks completed so far. A
// block ends at the first pulse that is not a data bit, or when no edge has
// arrived for a while by now.
func (d *PulseDecoder) Feed(edges []uint64, now uint64) []*TapeBlock {
	for _, e := range edges {
		if d.started {
			d.pulse(e - d.lastEdge)
		}
		d.lastEdge = e
		d.started = true
	}
	if d.state == pulseData && d.started && now > d.lastEdge && now-d.lastEdge > d.quiet {
		d.endBlock()
	}
	out := d.pending
	d.pending = nil
	return out
}

// Flush ends any block in progress.
func (d *PulseDecoder) Flush() []*TapeBlock {
	if d.state == pulseData {
		d.endBlock()
	}
	out := d.pending
	d.pending = nil
	return out
}

func (d *PulseDecoder) pulse(w uint64) {
	switch d.state {
	case pulseSeekPilot, pulsePilot:
		switch {
		case w >= decodePilotMin && w <= decodePilotMax:
			d.pilot++
			d.state = pulsePilot
		case d.pilot >= decodeMinPilot && w < decodeSyncMax:
			d.state = pulseSync2
		default:
			d.pilot = 0
			d.state = pulseSeekPilot
		}
	case pulseSync2:
		if w < decodeSyncMax {
			d.state = pulseData
			d.half, d.cur, d.nbits, d.data = 0, 0, 0, nil
			return
		}
		d.reset()
	case pulseData:
		if w < decodeBitMin || w > decodeBitMax {
			d.endBlock()
			// The stray pulse may open the next pilot.
			if w >= decodePilotMin && w <= decodePilotMax {
				d.pilot = 1
				d.state = pulsePilot
			}
			return
		}
		if d.half == 0 {
			d.half = w
			return
		}
		bitWidth := (d.half + w) / 2
		d.half = 0
		d.cur <<= 1
		if bitWidth >= decodeBitSplit {
			d.cur |= 1
		}
		d.nbits++
		if d.nbits == 8 {
			d.data = append(d.data, d.cur)
			d.cur, d.nbits = 0, 0
		}
	}
}

func (d *PulseDecoder) endBlock() {
	if len(d.data) > 0 {
		d.pending = append(d.pending, NewStandardBlock(d.data, TapeStandardPauseMs))
	}
	d.reset()
}

func (d *PulseDecoder) reset() {
	d.state = pulseSeekPilot
	d.pilot = 0
	d.half, d.cur, d.nbits, d.data = 0, 0, 0, nil
}

// WriteTapeFile writes blocks to path in the format named by its
// extension: .tap, .tzx or .wav.
func WriteTapeFile(path string, blocks []*TapeBlock, clockHz int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tape save: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tap":
		err = EncodeTAP(f, blocks)
	case ".tzx":
		err = EncodeTZX(f, blocks)
	case ".wav":
		err = EncodeWAV(f, blocks, clockHz)
	default:
		err = fmt.Errorf("unsupported tape format %q", filepath.Ext(path))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("tape save %s: %w", path, err)
	}
	return nil
}
