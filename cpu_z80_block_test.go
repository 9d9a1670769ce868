package main

import "testing"

func TestZ80LDI(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xA0}) // LDI
	rig.cpu.SetA(0x10)
	rig.cpu.HL = 0x4000
	rig.cpu.DE = 0x5000
	rig.cpu.BC = 0x0001
	rig.bus.mem[0x4000] = 0x22
	rig.cpu.SetF(z80FlagC)

	requireZ80Cycles(t, rig.step(t), 16)
	requireZ80EqualU8(t, "mem[0x5000]", rig.bus.mem[0x5000], 0x22)
	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), 0x4001)
	requireZ80EqualU16(t, "DE", uint16(rig.cpu.DE), 0x5001)
	requireZ80EqualU16(t, "BC", uint16(rig.cpu.BC), 0x0000)
	requireZ80EqualU8(t, "F", rig.cpu.F(), 0x21)
}

func TestZ80LDIRStopsWhenBCReachesZero(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB0}) // LDIR
	rig.cpu.HL = 0x4100
	rig.cpu.DE = 0x5100
	rig.cpu.BC = 0x0003
	copy(rig.bus.mem[0x4100:], []byte{0x11, 0x22, 0x33})

	requireZ80Cycles(t, rig.step(t), 21)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0000)
	requireZ80Cycles(t, rig.step(t), 21)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0000)
	requireZ80Cycles(t, rig.step(t), 16)

	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0002)
	requireZ80EqualU16(t, "BC", uint16(rig.cpu.BC), 0x0000)
	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), 0x4103)
	requireZ80EqualU16(t, "DE", uint16(rig.cpu.DE), 0x5103)
	for i, want := range []byte{0x11, 0x22, 0x33} {
		requireZ80EqualU8(t, "copied byte", rig.bus.mem[0x5100+i], want)
	}
	if rig.cpu.F()&z80FlagPV != 0 {
		t.Fatalf("PV set with BC=0")
	}
}

func TestZ80LDDR(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB8}) // LDDR
	rig.cpu.HL = 0x4101
	rig.cpu.DE = 0x5101
	rig.cpu.BC = 0x0002
	rig.bus.mem[0x4100] = 0xAA
	rig.bus.mem[0x4101] = 0xBB

	rig.step(t)
	rig.step(t)

	requireZ80EqualU8(t, "mem[0x5100]", rig.bus.mem[0x5100], 0xAA)
	requireZ80EqualU8(t, "mem[0x5101]", rig.bus.mem[0x5101], 0xBB)
	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), 0x40FF)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0002)
}

func TestZ80CPIRStopsOnMatch(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB1}) // CPIR
	rig.cpu.SetA(0x33)
	rig.cpu.HL = 0x2000
	rig.cpu.BC = 0x0003
	copy(rig.bus.mem[0x2000:], []byte{0x11, 0x33, 0x55})

	requireZ80Cycles(t, rig.step(t), 21)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0000)
	requireZ80Cycles(t, rig.step(t), 16)

	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0002)
	requireZ80EqualU16(t, "BC", uint16(rig.cpu.BC), 0x0001)
	requireZ80EqualU16(t, "HL", uint16(rig.cpu.HL), 0x2002)
	f := rig.cpu.F()
	if f&z80FlagZ == 0 || f&z80FlagPV == 0 || f&z80FlagN == 0 {
		t.Fatalf("F = %02X, want Z, PV and N set", f)
	}
}

func TestZ80OTIR(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB3}) // OTIR
	rig.cpu.HL = 0x2000
	rig.cpu.BC = 0x02FE
	rig.bus.mem[0x2000] = 0xAA
	rig.bus.mem[0x2001] = 0xBB

	requireZ80Cycles(t, rig.step(t), 21)
	requireZ80Cycles(t, rig.step(t), 16)

	requireZ80EqualU8(t, "io[0x01FE]", rig.bus.io[0x01FE], 0xAA)
	requireZ80EqualU8(t, "io[0x00FE]", rig.bus.io[0x00FE], 0xBB)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0002)
	if rig.cpu.F()&z80FlagZ == 0 {
		t.Fatalf("Z clear after B reached zero")
	}
}

func TestZ80INIR(t *testing.T) {
	rig := newCPUZ80TestRig()
	rig.resetAndLoad(0x0000, []byte{0xED, 0xB2}) // INIR
	rig.cpu.HL = 0x3000
	rig.cpu.BC = 0x02FE
	rig.bus.io[0x02FE] = 0x11
	rig.bus.io[0x01FE] = 0x22

	rig.step(t)
	rig.step(t)

	requireZ80EqualU8(t, "mem[0x3000]", rig.bus.mem[0x3000], 0x11)
	requireZ80EqualU8(t, "mem[0x3001]", rig.bus.mem[0x3001], 0x22)
	requireZ80EqualU16(t, "BC", uint16(rig.cpu.BC), 0x00FE)
	requireZ80EqualU16(t, "PC", rig.cpu.PC, 0x0002)
}
