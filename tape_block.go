// tape_block.go - Decoded tape blocks and their pulse streams

package main

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

// Standard ROM loader timings in T-states.
const (
	TapePilotPulse       = 2168
	TapeSync1Pulse       = 667
	TapeSync2Pulse       = 735
	TapeZeroPulse        = 855
	TapeOnePulse         = 1710
	TapePilotHeaderCount = 8063
	TapePilotDataCount   = 3223
	TapeCyclesPerMs      = 3500 // at the default 3.5MHz clock
	TapeStandardPauseMs  = 1000
)

// TZX block identifiers.
const (
	TZXStandardSpeed   = 0x10
	TZXTurboSpeed      = 0x11
	TZXPureTone        = 0x12
	TZXPulseSequence   = 0x13
	TZXPureData        = 0x14
	TZXDirectRecording = 0x15
	TZXGeneralizedData = 0x19
	TZXPause           = 0x20
	TZXTextDescription = 0x30
	TZXArchiveInfo     = 0x32
	TZXHardwareInfo    = 0x33
	TZXCustomInfo      = 0x35
	TZXGlue            = 0x5A
)

var (
	ErrUnknownTapeBlock = errors.New("unknown tape block")
	ErrTruncatedBlock   = errors.New("truncated tape block")
)

// TapeError reports a container decoding failure. Offset is the byte
// position decoding reached; blocks before it decoded cleanly.
type TapeError struct {
	Operation string
	Offset    int
	Details   string
	Err       error
}

func (e *TapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tape %s failed at offset %d: %s: %v", e.Operation, e.Offset, e.Details, e.Err)
	}
	return fmt.Sprintf("tape %s failed at offset %d: %s", e.Operation, e.Offset, e.Details)
}

func (e *TapeError) Unwrap() error { return e.Err }

// TapeBlock is one unit of a tape with its own timing. Zero pulse counts
// skip that part of the stream, so the same type describes standard,
// turbo, pure tone, pulse sequence, pure data and direct recording blocks.
// Information blocks carry only Description and produce no pulses.
type TapeBlock struct {
	ID byte

	PilotPulse int
	PilotCount int
	Sync1      int
	Sync2      int
	ZeroPulse  int
	OnePulse   int
	Pulses     []uint32 // explicit pulse lengths (0x13, 0x19 pilot tables)

	Data     []byte
	UsedBits int // bits used in the last data byte, 1-8

	SampleCycles int // direct recording: cycles per data bit

	// Generalised data symbols, already expanded into Pulses/Levels.
	Levels []tapeLevel

	PauseMs int
	Stop    bool // pause block of length zero: stop the tape

	Description string

	// Raw is the block as it appears in a TZX file, id byte included.
	Raw []byte
}

func (b *TapeBlock) String() string {
	switch {
	case b.Description != "":
		return fmt.Sprintf("block %02X %q", b.ID, b.Description)
	case len(b.Data) > 0:
		return fmt.Sprintf("block %02X %d bytes", b.ID, len(b.Data))
	default:
		return fmt.Sprintf("block %02X", b.ID)
	}
}

// IsHeader reports whether a standard-speed block is a ROM header (flag 0).
func (b *TapeBlock) IsHeader() bool {
	return len(b.Data) > 0 && b.Data[0] < 0x80
}

// HasSignal reports whether the block produces any edges.
func (b *TapeBlock) HasSignal() bool {
	return b.PilotCount > 0 || len(b.Pulses) > 0 || len(b.Data) > 0 || b.PauseMs > 0 || b.Stop
}

// tapeLevel says what happens to the signal at the start of a pulse.
type tapeLevel uint8

const (
	levelToggle tapeLevel = iota
	levelKeep
	levelLow
	levelHigh
)

// tapePulse is one stretch of constant signal.
type tapePulse struct {
	cycles uint32
	level  tapeLevel
	stop   bool
}

// NewStandardBlock builds a ROM-timed block for a flag+data+checksum
// payload, as stored in TAP files and TZX block 0x10.
func NewStandardBlock(data []byte, pauseMs int) *TapeBlock {
	b := &TapeBlock{
		ID:         TZXStandardSpeed,
		PilotPulse: TapePilotPulse,
		PilotCount: TapePilotDataCount,
		Sync1:      TapeSync1Pulse,
		Sync2:      TapeSync2Pulse,
		ZeroPulse:  TapeZeroPulse,
		OnePulse:   TapeOnePulse,
		Data:       data,
		UsedBits:   8,
		PauseMs:    pauseMs,
	}
	if b.IsHeader() {
		b.PilotCount = TapePilotHeaderCount
	}
	b.Raw = encodeStandardBlock(data, pauseMs)
	return b
}

// tapeCyclesPerMs converts pause and quiet lengths in milliseconds to
// T-states for a CPU clocked at clockHz.
func tapeCyclesPerMs(clockHz int) uint64 {
	if clockHz < 1000 {
		return TapeCyclesPerMs
	}
	return uint64(clockHz) / 1000
}

// yieldSpan sends a stretch of signal that may not fit one pulse as
// several. Only the first part applies lvl; the rest keep the level.
func yieldSpan(yield func(tapePulse) bool, cycles uint64, lvl tapeLevel) bool {
	for {
		part := min(cycles, math.MaxUint32)
		if !yield(tapePulse{cycles: uint32(part), level: lvl}) {
			return false
		}
		cycles -= part
		if cycles == 0 {
			return true
		}
		lvl = levelKeep
	}
}

// PulseStream yields the block's signal as a sequence of pulses. Pauses
// are converted with cyclesPerMs.
func (b *TapeBlock) PulseStream(cyclesPerMs uint64) iter.Seq[tapePulse] {
	return func(yield func(tapePulse) bool) {
		for range b.PilotCount {
			if !yield(tapePulse{cycles: uint32(b.PilotPulse)}) {
				return
			}
		}
		if b.Sync1 > 0 && !yield(tapePulse{cycles: uint32(b.Sync1)}) {
			return
		}
		if b.Sync2 > 0 && !yield(tapePulse{cycles: uint32(b.Sync2)}) {
			return
		}
		for i, p := range b.Pulses {
			lvl := levelToggle
			if i < len(b.Levels) {
				lvl = b.Levels[i]
			}
			if !yield(tapePulse{cycles: p, level: lvl}) {
				return
			}
		}
		if b.SampleCycles > 0 {
			if !b.directPulses(yield) {
				return
			}
		} else if b.ZeroPulse > 0 && b.OnePulse > 0 {
			if !b.dataPulses(yield) {
				return
			}
		}
		if b.Stop {
			yield(tapePulse{stop: true})
			return
		}
		if b.PauseMs > 0 {
			yieldSpan(yield, uint64(b.PauseMs)*cyclesPerMs, levelLow)
		}
	}
}

func (b *TapeBlock) bitCount() int {
	if len(b.Data) == 0 {
		return 0
	}
	used := b.UsedBits
	if used <= 0 || used > 8 {
		used = 8
	}
	return (len(b.Data)-1)*8 + used
}

func (b *TapeBlock) bit(i int) bool {
	return b.Data[i>>3]&(0x80>>(i&7)) != 0
}

// dataPulses sends each bit as two equal pulses, MSB first.
func (b *TapeBlock) dataPulses(yield func(tapePulse) bool) bool {
	n := b.bitCount()
	for i := 0; i < n; i++ {
		w := b.ZeroPulse
		if b.bit(i) {
			w = b.OnePulse
		}
		if !yield(tapePulse{cycles: uint32(w)}) || !yield(tapePulse{cycles: uint32(w)}) {
			return false
		}
	}
	return true
}

// directPulses turns each sample bit into a signal level held for
// SampleCycles, merging runs of equal bits into one pulse.
func (b *TapeBlock) directPulses(yield func(tapePulse) bool) bool {
	n := b.bitCount()
	for i := 0; i < n; {
		high := b.bit(i)
		j := i + 1
		for j < n && b.bit(j) == high {
			j++
		}
		lvl := levelLow
		if high {
			lvl = levelHigh
		}
		if !yieldSpan(yield, uint64(j-i)*uint64(b.SampleCycles), lvl) {
			return false
		}
		i = j
	}
	return true
}
