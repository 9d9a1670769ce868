// debug_cpu_z80.go - Z80 register access by name for scripts and fault reports

package main

import (
	"fmt"
	"strings"
)

type RegisterInfo struct {
	Name     string
	BitWidth int
	Value    uint64
	Group    string
}

type DebugZ80 struct {
	cpu *CPU_Z80
}

func NewDebugZ80(cpu *CPU_Z80) *DebugZ80 {
	return &DebugZ80{cpu: cpu}
}

func (d *DebugZ80) GetRegisters() []RegisterInfo {
	c := d.cpu
	return []RegisterInfo{
		{Name: "AF", BitWidth: 16, Value: uint64(c.AF), Group: "general"},
		{Name: "BC", BitWidth: 16, Value: uint64(c.BC), Group: "general"},
		{Name: "DE", BitWidth: 16, Value: uint64(c.DE), Group: "general"},
		{Name: "HL", BitWidth: 16, Value: uint64(c.HL), Group: "general"},
		{Name: "AF'", BitWidth: 16, Value: uint64(c.AF2), Group: "shadow"},
		{Name: "BC'", BitWidth: 16, Value: uint64(c.BC2), Group: "shadow"},
		{Name: "DE'", BitWidth: 16, Value: uint64(c.DE2), Group: "shadow"},
		{Name: "HL'", BitWidth: 16, Value: uint64(c.HL2), Group: "shadow"},
		{Name: "IX", BitWidth: 16, Value: uint64(c.IX), Group: "index"},
		{Name: "IY", BitWidth: 16, Value: uint64(c.IY), Group: "index"},
		{Name: "SP", BitWidth: 16, Value: uint64(c.SP), Group: "general"},
		{Name: "PC", BitWidth: 16, Value: uint64(c.PC), Group: "general"},
		{Name: "I", BitWidth: 8, Value: uint64(c.I), Group: "status"},
		{Name: "R", BitWidth: 8, Value: uint64(c.R), Group: "status"},
		{Name: "IM", BitWidth: 8, Value: uint64(c.IM), Group: "status"},
	}
}

// word returns the register pair called name, or nil.
func (d *DebugZ80) word(name string) *Z80Word {
	c := d.cpu
	switch name {
	case "AF":
		return &c.AF
	case "BC":
		return &c.BC
	case "DE":
		return &c.DE
	case "HL":
		return &c.HL
	case "AF'":
		return &c.AF2
	case "BC'":
		return &c.BC2
	case "DE'":
		return &c.DE2
	case "HL'":
		return &c.HL2
	case "IX":
		return &c.IX
	case "IY":
		return &c.IY
	}
	return nil
}

// halfOf maps an 8-bit register name to its pair and whether it is the
// high byte.
var halfOf = map[string]struct {
	pair string
	hi   bool
}{
	"A": {"AF", true}, "F": {"AF", false},
	"B": {"BC", true}, "C": {"BC", false},
	"D": {"DE", true}, "E": {"DE", false},
	"H": {"HL", true}, "L": {"HL", false},
	"IXH": {"IX", true}, "IXL": {"IX", false},
	"IYH": {"IY", true}, "IYL": {"IY", false},
}

func (d *DebugZ80) GetRegister(name string) (uint64, bool) {
	c := d.cpu
	name = strings.ToUpper(name)
	if w := d.word(name); w != nil {
		return uint64(*w), true
	}
	if h, ok := halfOf[name]; ok {
		w := d.word(h.pair)
		if h.hi {
			return uint64(w.Hi()), true
		}
		return uint64(w.Lo()), true
	}
	switch name {
	case "SP":
		return uint64(c.SP), true
	case "PC":
		return uint64(c.PC), true
	case "I":
		return uint64(c.I), true
	case "R":
		return uint64(c.R), true
	case "IM":
		return uint64(c.IM), true
	case "IFF1":
		return boolToU64(c.IFF1), true
	case "IFF2":
		return boolToU64(c.IFF2), true
	}
	return 0, false
}

func (d *DebugZ80) SetRegister(name string, value uint64) bool {
	c := d.cpu
	name = strings.ToUpper(name)
	if w := d.word(name); w != nil {
		*w = Z80Word(value)
		return true
	}
	if h, ok := halfOf[name]; ok {
		w := d.word(h.pair)
		if h.hi {
			w.SetHi(byte(value))
		} else {
			w.SetLo(byte(value))
		}
		return true
	}
	switch name {
	case "SP":
		c.SP = uint16(value)
	case "PC":
		c.PC = uint16(value)
	case "I":
		c.I = byte(value)
	case "R":
		c.R = byte(value)
	case "IM":
		if value > 2 {
			return false
		}
		c.IM = byte(value)
	default:
		return false
	}
	return true
}

// String is a one-line register dump.
func (d *DebugZ80) String() string {
	c := d.cpu
	return fmt.Sprintf("AF=%04X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X SP=%04X PC=%04X I=%02X R=%02X IM%d IFF=%d%d",
		uint16(c.AF), uint16(c.BC), uint16(c.DE), uint16(c.HL), uint16(c.IX), uint16(c.IY),
		c.SP, c.PC, c.I, c.R, c.IM, boolToU64(c.IFF1), boolToU64(c.IFF2))
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
