package main

// Flag helpers. Every function here is pure: it takes the operands, the
// current flag byte and the mask of flags the instruction is allowed to
// touch, and returns the result with the merged flag byte.

const (
	z80FlagS  = 0x80
	z80FlagZ  = 0x40
	z80FlagY  = 0x20
	z80FlagH  = 0x10
	z80FlagX  = 0x08
	z80FlagPV = 0x04
	z80FlagN  = 0x02
	z80FlagC  = 0x01
)

const (
	z80MaskAll     byte = 0xFF
	z80MaskNoCarry byte = ^byte(z80FlagC)                                       // INC/DEC r
	z80MaskAdd16   byte = z80FlagH | z80FlagN | z80FlagC | z80FlagX | z80FlagY  // ADD HL,rr
	z80MaskRotA    byte = z80FlagH | z80FlagN | z80FlagC | z80FlagX | z80FlagY  // RLCA, RRA...
	z80MaskXY      byte = z80FlagX | z80FlagY
)

// z80SZP holds sign, zero, parity and the undocumented X/Y copies for every
// byte value.
var z80SZP [256]byte

func init() {
	for i := range z80SZP {
		v := byte(i)
		f := v & (z80FlagS | z80FlagX | z80FlagY)
		if v == 0 {
			f |= z80FlagZ
		}
		if parity8(v) {
			f |= z80FlagPV
		}
		z80SZP[i] = f
	}
}

// parity8 reports even parity: true when the number of set bits is even.
func parity8(v byte) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 == 0
}

func mergeFlags(old, computed, mask byte) byte {
	return old&^mask | computed&mask
}

// szxy is z80SZP without the parity bit.
func szxy(v byte) byte {
	return z80SZP[v] &^ z80FlagPV
}

// add8 computes a + b + carry. The carry-in is a parameter so ADC produces
// exact half-carry and overflow in one pass.
func add8(a, b, carry, f, mask byte) (byte, byte) {
	sum := uint16(a) + uint16(b) + uint16(carry&1)
	r := byte(sum)
	flags := szxy(r)
	if (a^b^r)&0x10 != 0 {
		flags |= z80FlagH
	}
	if (a^r)&(b^r)&0x80 != 0 {
		flags |= z80FlagPV
	}
	if sum > 0xFF {
		flags |= z80FlagC
	}
	return r, mergeFlags(f, flags, mask)
}

// sub8 computes a - b - carry.
func sub8(a, b, carry, f, mask byte) (byte, byte) {
	diff := int(a) - int(b) - int(carry&1)
	r := byte(diff)
	flags := szxy(r) | z80FlagN
	if (a^b^r)&0x10 != 0 {
		flags |= z80FlagH
	}
	if (a^b)&(a^r)&0x80 != 0 {
		flags |= z80FlagPV
	}
	if diff < 0 {
		flags |= z80FlagC
	}
	return r, mergeFlags(f, flags, mask)
}

// cp8 is a subtraction that only keeps the flags. X and Y come from the
// operand rather than the result.
func cp8(a, b, f byte) byte {
	_, flags := sub8(a, b, 0, f, z80MaskAll)
	return flags&^z80MaskXY | b&z80MaskXY
}

func and8(a, b, f, mask byte) (byte, byte) {
	r := a & b
	return r, mergeFlags(f, z80SZP[r]|z80FlagH, mask)
}

func or8(a, b, f, mask byte) (byte, byte) {
	r := a | b
	return r, mergeFlags(f, z80SZP[r], mask)
}

func xor8(a, b, f, mask byte) (byte, byte) {
	r := a ^ b
	return r, mergeFlags(f, z80SZP[r], mask)
}

func inc8(v, f byte) (byte, byte) {
	return add8(v, 1, 0, f, z80MaskNoCarry)
}

func dec8(v, f byte) (byte, byte) {
	return sub8(v, 1, 0, f, z80MaskNoCarry)
}

// add16 is ADD HL,rr: H from bit 11, C from bit 15, X/Y from the high byte.
func add16(a, b uint16, f, mask byte) (uint16, byte) {
	sum := uint32(a) + uint32(b)
	r := uint16(sum)
	flags := byte(r>>8) & z80MaskXY
	if (a^b^r)&0x1000 != 0 {
		flags |= z80FlagH
	}
	if sum > 0xFFFF {
		flags |= z80FlagC
	}
	return r, mergeFlags(f, flags, mask)
}

func adc16(a, b uint16, carry, f byte) (uint16, byte) {
	sum := uint32(a) + uint32(b) + uint32(carry&1)
	r := uint16(sum)
	flags := byte(r>>8) & (z80FlagS | z80MaskXY)
	if r == 0 {
		flags |= z80FlagZ
	}
	if (a^b^r)&0x1000 != 0 {
		flags |= z80FlagH
	}
	if (a^r)&(b^r)&0x8000 != 0 {
		flags |= z80FlagPV
	}
	if sum > 0xFFFF {
		flags |= z80FlagC
	}
	return r, mergeFlags(f, flags, z80MaskAll)
}

func sbc16(a, b uint16, carry, f byte) (uint16, byte) {
	diff := int(a) - int(b) - int(carry&1)
	r := uint16(diff)
	flags := byte(r>>8)&(z80FlagS|z80MaskXY) | z80FlagN
	if r == 0 {
		flags |= z80FlagZ
	}
	if (a^b^r)&0x1000 != 0 {
		flags |= z80FlagH
	}
	if (a^b)&(a^r)&0x8000 != 0 {
		flags |= z80FlagPV
	}
	if diff < 0 {
		flags |= z80FlagC
	}
	return r, mergeFlags(f, flags, z80MaskAll)
}

// shift8 moves v one bit left or right. The bit shifted out becomes the
// carry and in is the bit fed into the vacated position. All CB rotate and
// shift forms reduce to a choice of direction and input bit.
func shift8(v byte, left bool, in byte, f, mask byte) (byte, byte) {
	var r, out byte
	if left {
		out = v >> 7
		r = v<<1 | in&1
	} else {
		out = v & 1
		r = v>>1 | (in&1)<<7
	}
	return r, mergeFlags(f, z80SZP[r]|out, mask)
}

type z80ShiftKind byte

const (
	z80RLC z80ShiftKind = iota
	z80RRC
	z80RL
	z80RR
	z80SLA
	z80SRA
	z80SLL
	z80SRL
)

// shiftOp applies one of the eight CB shift group operations.
func shiftOp(kind z80ShiftKind, v, f, mask byte) (byte, byte) {
	switch kind {
	case z80RLC:
		return shift8(v, true, v>>7, f, mask)
	case z80RRC:
		return shift8(v, false, v, f, mask)
	case z80RL:
		return shift8(v, true, f&z80FlagC, f, mask)
	case z80RR:
		return shift8(v, false, f&z80FlagC, f, mask)
	case z80SLA:
		return shift8(v, true, 0, f, mask)
	case z80SRA:
		return shift8(v, false, v>>7, f, mask)
	case z80SLL:
		return shift8(v, true, 1, f, mask)
	default:
		return shift8(v, false, 0, f, mask)
	}
}

// z80DAARow is one line of the Zilog DAA table: the state before the
// instruction selects a correction that is added to A and the carry after.
type z80DAARow struct {
	n, c         bool
	hiMin, hiMax byte
	h            bool
	loMin, loMax byte
	add          byte
	carry        bool
}

var z80DAATable = [...]z80DAARow{
	{false, false, 0x0, 0x9, false, 0x0, 0x9, 0x00, false},
	{false, false, 0x0, 0x8, false, 0xA, 0xF, 0x06, false},
	{false, false, 0x0, 0x9, true, 0x0, 0x3, 0x06, false},
	{false, false, 0xA, 0xF, false, 0x0, 0x9, 0x60, true},
	{false, false, 0x9, 0xF, false, 0xA, 0xF, 0x66, true},
	{false, false, 0xA, 0xF, true, 0x0, 0x3, 0x66, true},
	{false, true, 0x0, 0x2, false, 0x0, 0x9, 0x60, true},
	{false, true, 0x0, 0x2, false, 0xA, 0xF, 0x66, true},
	{false, true, 0x0, 0x3, true, 0x0, 0x3, 0x66, true},
	{true, false, 0x0, 0x9, false, 0x0, 0x9, 0x00, false},
	{true, false, 0x0, 0x8, true, 0x6, 0xF, 0xFA, false},
	{true, true, 0x7, 0xF, false, 0x0, 0x9, 0xA0, true},
	{true, true, 0x6, 0xF, true, 0x6, 0xF, 0x9A, true},
}

func lookupDAA(a, f byte) (add byte, carry, ok bool) {
	n := f&z80FlagN != 0
	c := f&z80FlagC != 0
	h := f&z80FlagH != 0
	hi, lo := a>>4, a&0x0F
	for _, row := range z80DAATable {
		if row.n == n && row.c == c && row.h == h &&
			hi >= row.hiMin && hi <= row.hiMax &&
			lo >= row.loMin && lo <= row.loMax {
			return row.add, row.carry, true
		}
	}
	return 0, false, false
}

// daaGeneral is the correction rule the table was derived from. It covers
// flag combinations that BCD arithmetic never produces.
func daaGeneral(a, f byte) (add byte, carry bool) {
	var adj byte
	carry = f&z80FlagC != 0
	if f&z80FlagH != 0 || a&0x0F > 9 {
		adj |= 0x06
	}
	if carry || a > 0x99 {
		adj |= 0x60
		carry = true
	}
	if f&z80FlagN != 0 {
		return -adj, carry
	}
	return adj, carry
}

func daa(a, f byte) (byte, byte) {
	add, carry, ok := lookupDAA(a, f)
	if !ok {
		add, carry = daaGeneral(a, f)
	}
	r := a + add
	flags := z80SZP[r] | f&z80FlagN
	if f&z80FlagN != 0 {
		if f&z80FlagH != 0 && a&0x0F < 6 {
			flags |= z80FlagH
		}
	} else if a&0x0F > 9 {
		flags |= z80FlagH
	}
	if carry {
		flags |= z80FlagC
	}
	return r, flags
}
