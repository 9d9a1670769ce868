// debug_disasm_z80.go - Z80 disassembler for scripts and fault reports

package main

import (
	"fmt"
	"strings"
)

type DisassembledLine struct {
	Address  uint16
	HexBytes string
	Mnemonic string
	Size     int
}

func (l DisassembledLine) String() string {
	return fmt.Sprintf("%04X  %-11s  %s", l.Address, l.HexBytes, l.Mnemonic)
}

func disassembleZ80(read func(addr uint16) byte, addr uint16, count int) []DisassembledLine {
	var lines []DisassembledLine
	for range count {
		size, mnemonic := decodeZ80Instruction(read, addr)
		hexParts := make([]string, size)
		for j := range size {
			hexParts[j] = fmt.Sprintf("%02X", read(addr+uint16(j)))
		}
		lines = append(lines, DisassembledLine{
			Address:  addr,
			HexBytes: strings.Join(hexParts, " "),
			Mnemonic: mnemonic,
			Size:     size,
		})
		addr += uint16(size)
	}
	return lines
}

var z80Reg8 = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
var z80Reg16 = [4]string{"BC", "DE", "HL", "SP"}
var z80Reg16Push = [4]string{"BC", "DE", "HL", "AF"}
var z80Cond = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
var z80ALU = [8]string{"ADD A,", "ADC A,", "SUB", "SBC A,", "AND", "XOR", "OR", "CP"}
var z80CBOps = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}
var z80Accum = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
var z80IM = [8]string{"0", "0", "1", "2", "0", "0", "1", "2"}
var z80EDMisc = [8]string{"LD I, A", "LD R, A", "LD A, I", "LD A, R", "RRD", "RLD", "NOP", "NOP"}
var z80Block = [4][4]string{
	{"LDI", "CPI", "INI", "OUTI"},
	{"LDD", "CPD", "IND", "OUTD"},
	{"LDIR", "CPIR", "INIR", "OTIR"},
	{"LDDR", "CPDR", "INDR", "OTDR"},
}

// z80Decoder walks one instruction. idx is "HL" for unprefixed code or the
// index register selected by a DD/FD prefix.
type z80Decoder struct {
	read func(uint16) byte
	pc   uint16
	n    int
	idx  string
	disp int8
	dOK  bool
}

func (d *z80Decoder) fetch() byte {
	b := d.read(d.pc + uint16(d.n))
	d.n++
	return b
}

func (d *z80Decoder) word() uint16 {
	lo := d.fetch()
	return uint16(lo) | uint16(d.fetch())<<8
}

func (d *z80Decoder) rel() uint16 {
	e := int8(d.fetch())
	return d.pc + uint16(d.n) + uint16(e)
}

// mem renders (HL) or (IX+d); the displacement is fetched on first use.
func (d *z80Decoder) mem() string {
	if d.idx == "HL" {
		return "(HL)"
	}
	if !d.dOK {
		d.disp = int8(d.fetch())
		d.dOK = true
	}
	return fmt.Sprintf("(%s%+d)", d.idx, d.disp)
}

// r8 names register r. H and L become the index halves only when the same
// instruction does not also address memory.
func (d *z80Decoder) r8(r byte, hasMem bool) string {
	switch {
	case r == 6:
		return d.mem()
	case d.idx != "HL" && !hasMem && r == 4:
		return d.idx + "H"
	case d.idx != "HL" && !hasMem && r == 5:
		return d.idx + "L"
	}
	return z80Reg8[r]
}

func (d *z80Decoder) rp(p byte) string {
	if p == 2 {
		return d.idx
	}
	return z80Reg16[p]
}

func (d *z80Decoder) rp2(p byte) string {
	if p == 2 {
		return d.idx
	}
	return z80Reg16Push[p]
}

// decodeZ80Instruction returns the length and text of the instruction at pc.
func decodeZ80Instruction(read func(uint16) byte, pc uint16) (int, string) {
	d := &z80Decoder{read: read, pc: pc, idx: "HL"}
	op := d.fetch()
	switch op {
	case 0xDD, 0xFD:
		d.idx = "IX"
		if op == 0xFD {
			d.idx = "IY"
		}
		next := d.read(pc + 1)
		if next == 0xDD || next == 0xFD || next == 0xED {
			return 1, fmt.Sprintf("db $%02X", op)
		}
		op = d.fetch()
	case 0xED:
		return d.decodeED(d.fetch())
	}
	if op == 0xCB {
		return d.decodeCB()
	}
	return d.decodeBase(op)
}

func (d *z80Decoder) decodeBase(op byte) (int, string) {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1
	var s string

	switch x {
	case 0:
		switch z {
		case 0:
			switch y {
			case 0:
				s = "NOP"
			case 1:
				s = "EX AF, AF'"
			case 2:
				s = fmt.Sprintf("DJNZ $%04X", d.rel())
			case 3:
				s = fmt.Sprintf("JR $%04X", d.rel())
			default:
				s = fmt.Sprintf("JR %s, $%04X", z80Cond[y-4], d.rel())
			}
		case 1:
			if q == 0 {
				s = fmt.Sprintf("LD %s, $%04X", d.rp(p), d.word())
			} else {
				s = fmt.Sprintf("ADD %s, %s", d.idx, d.rp(p))
			}
		case 2:
			switch y {
			case 0:
				s = "LD (BC), A"
			case 1:
				s = "LD A, (BC)"
			case 2:
				s = "LD (DE), A"
			case 3:
				s = "LD A, (DE)"
			case 4:
				s = fmt.Sprintf("LD ($%04X), %s", d.word(), d.idx)
			case 5:
				s = fmt.Sprintf("LD %s, ($%04X)", d.idx, d.word())
			case 6:
				s = fmt.Sprintf("LD ($%04X), A", d.word())
			case 7:
				s = fmt.Sprintf("LD A, ($%04X)", d.word())
			}
		case 3:
			if q == 0 {
				s = "INC " + d.rp(p)
			} else {
				s = "DEC " + d.rp(p)
			}
		case 4:
			s = "INC " + d.r8(y, false)
		case 5:
			s = "DEC " + d.r8(y, false)
		case 6:
			dst := d.r8(y, false)
			s = fmt.Sprintf("LD %s, $%02X", dst, d.fetch())
		case 7:
			s = z80Accum[y]
		}
	case 1:
		if y == 6 && z == 6 {
			s = "HALT"
		} else {
			hasMem := y == 6 || z == 6
			s = fmt.Sprintf("LD %s, %s", d.r8(y, hasMem), d.r8(z, hasMem))
		}
	case 2:
		s = fmt.Sprintf("%s %s", z80ALU[y], d.r8(z, false))
	case 3:
		switch z {
		case 0:
			s = "RET " + z80Cond[y]
		case 1:
			if q == 0 {
				s = "POP " + d.rp2(p)
			} else {
				s = [4]string{"RET", "EXX", "JP (" + d.idx + ")", "LD SP, " + d.idx}[p]
			}
		case 2:
			s = fmt.Sprintf("JP %s, $%04X", z80Cond[y], d.word())
		case 3:
			switch y {
			case 0:
				s = fmt.Sprintf("JP $%04X", d.word())
			case 2:
				s = fmt.Sprintf("OUT ($%02X), A", d.fetch())
			case 3:
				s = fmt.Sprintf("IN A, ($%02X)", d.fetch())
			case 4:
				s = "EX (SP), " + d.idx
			case 5:
				s = "EX DE, HL"
			case 6:
				s = "DI"
			case 7:
				s = "EI"
			}
		case 4:
			s = fmt.Sprintf("CALL %s, $%04X", z80Cond[y], d.word())
		case 5:
			if q == 0 {
				s = "PUSH " + d.rp2(p)
			} else {
				s = fmt.Sprintf("CALL $%04X", d.word())
			}
		case 6:
			s = fmt.Sprintf("%s $%02X", z80ALU[y], d.fetch())
		case 7:
			s = fmt.Sprintf("RST $%02X", y*8)
		}
	}
	return d.n, s
}

func (d *z80Decoder) decodeCB() (int, string) {
	var op byte
	var target string
	if d.idx == "HL" {
		op = d.fetch()
		target = z80Reg8[op&7]
	} else {
		// DD CB d op: the displacement precedes the opcode.
		target = d.mem()
		op = d.fetch()
		if op&7 != 6 && op>>6 != 1 {
			target += ", " + z80Reg8[op&7]
		}
	}
	y := (op >> 3) & 7
	switch op >> 6 {
	case 0:
		return d.n, fmt.Sprintf("%s %s", z80CBOps[y], target)
	case 1:
		return d.n, fmt.Sprintf("BIT %d, %s", y, target)
	case 2:
		return d.n, fmt.Sprintf("RES %d, %s", y, target)
	}
	return d.n, fmt.Sprintf("SET %d, %s", y, target)
}

func (d *z80Decoder) decodeED(op byte) (int, string) {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	if x == 1 {
		switch z {
		case 0:
			if y == 6 {
				return d.n, "IN (C)"
			}
			return d.n, fmt.Sprintf("IN %s, (C)", z80Reg8[y])
		case 1:
			if y == 6 {
				return d.n, "OUT (C), 0"
			}
			return d.n, fmt.Sprintf("OUT (C), %s", z80Reg8[y])
		case 2:
			if q == 0 {
				return d.n, "SBC HL, " + z80Reg16[p]
			}
			return d.n, "ADC HL, " + z80Reg16[p]
		case 3:
			nn := d.word()
			if q == 0 {
				return d.n, fmt.Sprintf("LD ($%04X), %s", nn, z80Reg16[p])
			}
			return d.n, fmt.Sprintf("LD %s, ($%04X)", z80Reg16[p], nn)
		case 4:
			return d.n, "NEG"
		case 5:
			if y == 1 {
				return d.n, "RETI"
			}
			return d.n, "RETN"
		case 6:
			return d.n, "IM " + z80IM[y]
		case 7:
			return d.n, z80EDMisc[y]
		}
	}
	if x == 2 && z <= 3 && y >= 4 {
		return d.n, z80Block[y-4][z]
	}
	return d.n, fmt.Sprintf("db $ED, $%02X", op)
}
