// ula_ports.go - ULA port 0xFE: keyboard, EAR input, border, MIC and speaker

package main

import "sync/atomic"

const (
	ulaPortBorderMask = 0x07
	ulaPortMIC        = 1 << 3
	ulaPortEAR        = 1 << 4
	ulaPortEARIn      = 1 << 6
	ulaPortIdleBits   = 1<<5 | 1<<7
)

// MICListener receives every change of the MIC output level together with
// the cycle it happened at. The tape recorder is the only listener.
type MICListener interface {
	MICEdge(cycle uint64, level bool)
}

// ULAPorts decodes the even I/O ports. All writes happen on the scheduler
// goroutine; border and the tape input level are read from host and tape
// goroutines too, so they are atomic.
type ULAPorts struct {
	keyboard *KeyboardMatrix

	border    atomic.Uint32
	tapeLevel atomic.Bool // EAR input driven by the tape player
	tapeLoad  atomic.Bool // speaker follows the tape signal while set

	micOut bool
	earOut bool

	now      func() uint64
	listener MICListener
}

func NewULAPorts(kb *KeyboardMatrix, now func() uint64) *ULAPorts {
	if now == nil {
		now = func() uint64 { return 0 }
	}
	return &ULAPorts{keyboard: kb, now: now}
}

func (p *ULAPorts) SetMICListener(l MICListener) {
	p.listener = l
}

// In answers a port read. Only A0 is decoded.
func (p *ULAPorts) In(port uint16) byte {
	if port&1 != 0 {
		return 0xFF
	}
	v := p.keyboard.Read(byte(port>>8)) | ulaPortIdleBits
	if p.tapeLevel.Load() {
		v |= ulaPortEARIn
	}
	return v
}

func (p *ULAPorts) Out(port uint16, v byte) {
	if port&1 != 0 {
		return
	}
	p.border.Store(uint32(v & ulaPortBorderMask))
	p.earOut = v&ulaPortEAR != 0
	mic := v&ulaPortMIC != 0
	if mic != p.micOut {
		p.micOut = mic
		if p.listener != nil {
			p.listener.MICEdge(p.now(), mic)
		}
	}
}

func (p *ULAPorts) Border() byte {
	return byte(p.border.Load())
}

func (p *ULAPorts) SetBorder(c byte) {
	p.border.Store(uint32(c & ulaPortBorderMask))
}

// SetTapeLevel is the EAR input. The tape player calls it on every edge.
func (p *ULAPorts) SetTapeLevel(high bool) {
	p.tapeLevel.Store(high)
}

func (p *ULAPorts) TapeLevel() bool {
	return p.tapeLevel.Load()
}

// SetTapeLoading routes the tape signal to the speaker instead of the EAR
// output bit, so loading is audible.
func (p *ULAPorts) SetTapeLoading(on bool) {
	p.tapeLoad.Store(on)
}

// SpeakerLevel is the instantaneous speaker amplitude in [0, 1].
func (p *ULAPorts) SpeakerLevel() float32 {
	var level float32
	ear := p.earOut
	if p.tapeLoad.Load() {
		ear = p.tapeLevel.Load()
	}
	if ear {
		level += 0.75
	}
	if p.micOut {
		level += 0.25
	}
	return level
}

func (p *ULAPorts) Reset() {
	p.border.Store(0)
	p.micOut = false
	p.earOut = false
}
