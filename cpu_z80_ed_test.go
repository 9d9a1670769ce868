package main

import (
	"errors"
	"testing"
)

func TestZ80NEG(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0x44})
	rig.cpu.SetA(0x01)

	requireZ80Cycles(t, rig.step(t), 8)
	requireZ80EqualU8(t, "A", rig.cpu.A(), 0xFF)
	requireZ80EqualU8(t, "F", rig.cpu.F(), 0xBB)
}

func TestZ80SBCAndADCHL(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xED, 0x52, // SBC HL,DE
		0xED, 0x4A, // ADC HL,BC
	})
	rig.cpu.HL = 0x1000
	rig.cpu.DE = 0x0001

	requireZ80Cycles(t, rig.step(t), 15)
	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), 0x0FFF)
	requireZ80EqualU8(t, "F", rig.cpu.F(), z80FlagH|z80FlagX|z80FlagN)

	rig.cpu.HL = 0x7FFF
	rig.cpu.BC = 0x0000
	rig.cpu.SetF(z80FlagC)
	requireZ80Cycles(t, rig.step(t), 15)
	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), 0x8000)
	requireZ80EqualU8(t, "F", rig.cpu.F(), z80FlagS|z80FlagH|z80FlagPV)
}

func TestZ80LD16Memory(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xED, 0x43, 0x00, 0x50, // LD (0x5000),BC
		0xED, 0x7B, 0x00, 0x50, // LD SP,(0x5000)
	})
	rig.cpu.BC = 0xBEEF

	requireZ80Cycles(t, rig.step(t), 20)
	requireZ80EqualU8(t, "mem[0x5000]", rig.bus.mem[0x5000], 0xEF)
	requireZ80EqualU8(t, "mem[0x5001]", rig.bus.mem[0x5001], 0xBE)
	requireZ80Cycles(t, rig.step(t), 20)
	requireZ80EqualU16(t, "SP", rig.cpu.SP, 0xBEEF)
}

func TestZ80LDAIReflectsIFF2(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xED, 0x57, // LD A,I
		0xED, 0x57, // LD A,I
	})
	rig.cpu.I = 0x80
	rig.cpu.IFF2 = true
	rig.cpu.SetF(z80FlagC | z80FlagH | z80FlagN)

	requireZ80Cycles(t, rig.step(t), 9)
	requireZ80EqualU8(t, "A", rig.cpu.A(), 0x80)
	requireZ80EqualU8(t, "F", rig.cpu.F(), z80FlagS|z80FlagPV|z80FlagC)

	rig.cpu.IFF2 = false
	rig.step(t)
	if rig.cpu.F()&z80FlagPV != 0 {
		t.Fatalf("PV set with IFF2 clear")
	}
}

func TestZ80RLDAndRRD(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xED, 0x6F, // RLD
		0xED, 0x67, // RRD
	})
	rig.cpu.HL = 0x5000
	rig.cpu.SetA(0x7A)
	rig.bus.mem[0x5000] = 0x31

	requireZ80Cycles(t, rig.step(t), 18)
	requireZ80EqualU8(t, "A", rig.cpu.A(), 0x73)
	requireZ80EqualU8(t, "(HL)", rig.bus.mem[0x5000], 0x1A)
	requireZ80EqualU8(t, "F", rig.cpu.F(), z80FlagY)

	requireZ80Cycles(t, rig.step(t), 18)
	requireZ80EqualU8(t, "A", rig.cpu.A(), 0x7A)
	requireZ80EqualU8(t, "(HL)", rig.bus.mem[0x5000], 0x31)
}

func TestZ80INRegC(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xED, 0x78, // IN A,(C)
		0xED, 0x70, // IN F,(C)
	})
	rig.cpu.BC = 0x12FE
	rig.bus.io[0x12FE] = 0x00
	rig.cpu.SetA(0x55)
	rig.cpu.SetF(z80FlagC)

	requireZ80Cycles(t, rig.step(t), 12)
	requireZ80EqualU8(t, "A", rig.cpu.A(), 0x00)
	requireZ80EqualU8(t, "F", rig.cpu.F(), z80FlagZ|z80FlagPV|z80FlagC)

	rig.bus.io[0x12FE] = 0x80
	rig.step(t)
	requireZ80EqualU8(t, "A", rig.cpu.A(), 0x00)
	if rig.cpu.F()&z80FlagS == 0 {
		t.Fatalf("IN F,(C) did not set S")
	}
}

func TestZ80InterruptModes(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{
		0xED, 0x5E, // IM 2
		0xED, 0x56, // IM 1
		0xED, 0x46, // IM 0
	})
	for _, want := range []byte{2, 1, 0} {
		requireZ80Cycles(t, rig.step(t), 8)
		requireZ80EqualU8(t, "IM", rig.cpu.IM, want)
	}
}

func TestZ80UndefinedEDReportsDecodeFailure(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x1000, []byte{0xED, 0x00})

	cycles, err := rig.cpu.Step()
	if cycles != 0 {
		t.Fatalf("decode failure cost %d cycles, want 0", cycles)
	}
	var decodeErr *Z80DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Step error = %v, want *Z80DecodeError", err)
	}
	requireZ80EqualU16(t, "fault PC", decodeErr.PC, 0x1000)
	requireZ80EqualU8(t, "fault opcode", decodeErr.Opcode, 0x00)
	if len(decodeErr.Prefix) != 1 || decodeErr.Prefix[0] != 0xED {
		t.Fatalf("fault prefix = % X, want ED", decodeErr.Prefix)
	}
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x1002)
	if rig.cpu.Cycles != 0 {
		t.Fatalf("Cycles advanced on decode failure")
	}
}
