package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	SNA_HEADER_SIZE = 27
	SNA_RAM_START   = 0x4000
	SNA_RAM_SIZE    = 0xC000
	snaIFF2Bit      = 0x04
)

var ErrShortSnapshot = errors.New("short snapshot header")

type SnapshotError struct {
	Operation string
	Details   string
	Err       error
}

func (e *SnapshotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("snapshot %s: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("snapshot %s: %s", e.Operation, e.Details)
}

func (e *SnapshotError) Unwrap() error { return e.Err }

// LoadSNA restores CPU, RAM and border from a 48K .sna image. A body shorter
// than 48K leaves the rest of RAM untouched. PC is popped off the restored
// stack and IFF1 follows IFF2.
func LoadSNA(r io.Reader, cpu *CPU_Z80, mem *SpectrumMemory, ports *ULAPorts) error {
	var hdr [SNA_HEADER_SIZE]byte
	if n, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrShortSnapshot
		}
		return &SnapshotError{Operation: "load", Details: fmt.Sprintf("header has %d of %d bytes", n, SNA_HEADER_SIZE), Err: err}
	}

	if _, err := mem.LoadFrom(r, SNA_RAM_START, SNA_RAM_SIZE); err != nil {
		return &SnapshotError{Operation: "load", Details: "reading RAM", Err: err}
	}

	word := func(off int) Z80Word { return Z80Word(binary.LittleEndian.Uint16(hdr[off:])) }

	cpu.Reset()
	cpu.I = hdr[0]
	cpu.HL2 = word(1)
	cpu.DE2 = word(3)
	cpu.BC2 = word(5)
	cpu.AF2 = word(7)
	cpu.HL = word(9)
	cpu.DE = word(11)
	cpu.BC = word(13)
	cpu.IY = word(15)
	cpu.IX = word(17)
	cpu.IFF2 = hdr[19]&snaIFF2Bit != 0
	cpu.IFF1 = cpu.IFF2
	cpu.R = hdr[20]
	cpu.AF = word(21)
	cpu.SP = uint16(word(23))
	cpu.IM = hdr[25] & 3

	cpu.PC = mem.Read16(cpu.SP)
	cpu.SP += 2

	if ports != nil {
		ports.SetBorder(hdr[26] & 7)
	}
	return nil
}

// pushPC stores PC on the stack the way the .sna format expects and returns
// a function that puts SP and the two overwritten bytes back.
func pushPC(cpu *CPU_Z80, mem *SpectrumMemory) func() {
	sp := cpu.SP
	lo, hi := mem.Read(sp-2), mem.Read(sp-1)
	cpu.SP -= 2
	mem.Write16(cpu.SP, cpu.PC)
	return func() {
		mem.Write(sp-2, lo)
		mem.Write(sp-1, hi)
		cpu.SP = sp
	}
}

// SaveSNA writes a 48K .sna image. Machine state is unchanged on return.
func SaveSNA(w io.Writer, cpu *CPU_Z80, mem *SpectrumMemory, ports *ULAPorts) error {
	undo := pushPC(cpu, mem)
	defer undo()

	var hdr [SNA_HEADER_SIZE]byte
	put := func(off int, v Z80Word) { binary.LittleEndian.PutUint16(hdr[off:], uint16(v)) }

	hdr[0] = cpu.I
	put(1, cpu.HL2)
	put(3, cpu.DE2)
	put(5, cpu.BC2)
	put(7, cpu.AF2)
	put(9, cpu.HL)
	put(11, cpu.DE)
	put(13, cpu.BC)
	put(15, cpu.IY)
	put(17, cpu.IX)
	if cpu.IFF2 {
		hdr[19] = snaIFF2Bit
	}
	hdr[20] = cpu.R
	put(21, cpu.AF)
	put(23, Z80Word(cpu.SP))
	hdr[25] = cpu.IM
	if ports != nil {
		hdr[26] = ports.Border()
	}

	if _, err := w.Write(hdr[:]); err != nil {
		return &SnapshotError{Operation: "save", Details: "writing header", Err: err}
	}
	if _, err := w.Write(mem.Bytes()[SNA_RAM_START:]); err != nil {
		return &SnapshotError{Operation: "save", Details: "writing RAM", Err: err}
	}
	return nil
}
