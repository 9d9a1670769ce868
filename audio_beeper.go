// audio_beeper.go - 1-bit beeper sampled from the ULA speaker line

package main

import (
	"math"
	"sync/atomic"
)

const (
	BEEPER_RING_SIZE   = 8192 // power of two
	BEEPER_RING_MASK   = BEEPER_RING_SIZE - 1
	BEEPER_DC_POLE     = 0.995
	BEEPER_OUTPUT_GAIN = 0.5
)

// Beeper turns the speaker level into a sample stream. The scheduler's audio
// task produces one sample per call to Sample; the audio backend consumes
// them from another goroutine through ReadSampleFromRing.
type Beeper struct {
	level func() float32

	clockHz    uint64
	sampleRate uint64
	acc        uint64 // fractional cycles carried between samples

	ring [BEEPER_RING_SIZE]float32
	head atomic.Uint64 // next write
	tail atomic.Uint64 // next read

	prevIn  float32
	prevOut float32
	last    atomic.Uint32 // float32 bits of the last sample read

	dropped atomic.Uint64
	muted   atomic.Bool
}

func NewBeeper(clockHz, sampleRate int, level func() float32) *Beeper {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &Beeper{
		level:      level,
		clockHz:    uint64(clockHz),
		sampleRate: uint64(sampleRate),
	}
}

// Sample takes one sample of the speaker and returns the number of cycles
// until the next one. The cost alternates between floor and ceil of
// clockHz/sampleRate so the long-run rate is exact.
func (b *Beeper) Sample(now uint64) uint64 {
	in := b.level()
	out := in - b.prevIn + BEEPER_DC_POLE*b.prevOut
	b.prevIn, b.prevOut = in, out
	if b.muted.Load() {
		out = 0
	}
	b.push(out * BEEPER_OUTPUT_GAIN)

	b.acc += b.clockHz
	cost := b.acc / b.sampleRate
	b.acc %= b.sampleRate
	if cost == 0 {
		cost = 1
	}
	return cost
}

func (b *Beeper) push(s float32) {
	head := b.head.Load()
	if head-b.tail.Load() >= BEEPER_RING_SIZE {
		b.dropped.Add(1)
		return
	}
	b.ring[head&BEEPER_RING_MASK] = s
	b.head.Store(head + 1)
}

// ReadSampleFromRing pops one sample. On underrun it repeats the last one.
func (b *Beeper) ReadSampleFromRing() float32 {
	tail := b.tail.Load()
	if tail == b.head.Load() {
		return math.Float32frombits(b.last.Load())
	}
	s := b.ring[tail&BEEPER_RING_MASK]
	b.tail.Store(tail + 1)
	b.last.Store(math.Float32bits(s))
	return s
}

// Buffered is the number of samples waiting for the backend.
func (b *Beeper) Buffered() int {
	return int(b.head.Load() - b.tail.Load())
}

func (b *Beeper) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Beeper) SetMuted(m bool) {
	b.muted.Store(m)
}

func (b *Beeper) SampleRate() int {
	return int(b.sampleRate)
}
