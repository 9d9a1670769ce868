package main

// Z80Word is a register pair. The high and low halves are views computed
// from the 16-bit value, so writing either half changes the pair.
type Z80Word uint16

func (w Z80Word) Hi() byte { return byte(w >> 8) }
func (w Z80Word) Lo() byte { return byte(w) }

func (w *Z80Word) SetHi(v byte) { *w = Z80Word(uint16(*w)&0x00FF | uint16(v)<<8) }
func (w *Z80Word) SetLo(v byte) { *w = Z80Word(uint16(*w)&0xFF00 | uint16(v)) }

// Z80Registers is the programmer-visible register set plus WZ, the internal
// address latch that leaks into the undocumented flag bits.
type Z80Registers struct {
	AF, BC, DE, HL     Z80Word
	AF2, BC2, DE2, HL2 Z80Word
	IX, IY             Z80Word

	SP uint16
	PC uint16
	WZ uint16

	I byte
	R byte
}

func (r *Z80Registers) A() byte     { return r.AF.Hi() }
func (r *Z80Registers) F() byte     { return r.AF.Lo() }
func (r *Z80Registers) SetA(v byte) { r.AF.SetHi(v) }
func (r *Z80Registers) SetF(v byte) { r.AF.SetLo(v) }

func (r *Z80Registers) flag(mask byte) bool {
	return r.AF.Lo()&mask != 0
}

func (r *Z80Registers) carry() byte {
	return r.AF.Lo() & z80FlagC
}

// ExAF swaps AF with its shadow.
func (r *Z80Registers) ExAF() {
	r.AF, r.AF2 = r.AF2, r.AF
}

// Exx swaps BC, DE and HL with their shadows.
func (r *Z80Registers) Exx() {
	r.BC, r.BC2 = r.BC2, r.BC
	r.DE, r.DE2 = r.DE2, r.DE
	r.HL, r.HL2 = r.HL2, r.HL
}

func (r *Z80Registers) ExDEHL() {
	r.DE, r.HL = r.HL, r.DE
}

// incrementR advances the low seven bits of R and keeps bit 7.
func (r *Z80Registers) incrementR() {
	r.R = r.R&0x80 | (r.R+1)&0x7F
}

// pair returns the register selected by the rp field of an opcode:
// 0=BC 1=DE 2=HL 3=SP. HL reads the active index register under a prefix.
func (c *CPU_Z80) pair(code byte) uint16 {
	switch code & 3 {
	case 0:
		return uint16(c.BC)
	case 1:
		return uint16(c.DE)
	case 2:
		return uint16(*c.hlSlot())
	default:
		return c.SP
	}
}

func (c *CPU_Z80) setPair(code byte, v uint16) {
	switch code & 3 {
	case 0:
		c.BC = Z80Word(v)
	case 1:
		c.DE = Z80Word(v)
	case 2:
		*c.hlSlot() = Z80Word(v)
	default:
		c.SP = v
	}
}

// stackPair is the rp2 encoding used by PUSH and POP: 0=BC 1=DE 2=HL 3=AF.
func (c *CPU_Z80) stackPair(code byte) uint16 {
	if code&3 == 3 {
		return uint16(c.AF)
	}
	return c.pair(code)
}

func (c *CPU_Z80) setStackPair(code byte, v uint16) {
	if code&3 == 3 {
		c.AF = Z80Word(v)
		return
	}
	c.setPair(code, v)
}

// hlSlot is HL, or IX/IY while a DD/FD prefix is active.
func (c *CPU_Z80) hlSlot() *Z80Word {
	switch c.prefix {
	case z80PrefixDD:
		return &c.IX
	case z80PrefixFD:
		return &c.IY
	default:
		return &c.HL
	}
}

// reg8 reads the register selected by a three bit field. Code 6 is the byte
// at (HL); mem reports it so the caller can charge the memory cycles. Codes
// 4 and 5 follow the active prefix (IXH/IXL, IYH/IYL).
func (c *CPU_Z80) reg8(code byte) (v byte, mem bool) {
	switch code & 7 {
	case 0:
		return c.BC.Hi(), false
	case 1:
		return c.BC.Lo(), false
	case 2:
		return c.DE.Hi(), false
	case 3:
		return c.DE.Lo(), false
	case 4:
		return c.hlSlot().Hi(), false
	case 5:
		return c.hlSlot().Lo(), false
	case 6:
		return c.read(uint16(c.HL)), true
	default:
		return c.A(), false
	}
}

func (c *CPU_Z80) setReg8(code byte, v byte) (mem bool) {
	switch code & 7 {
	case 0:
		c.BC.SetHi(v)
	case 1:
		c.BC.SetLo(v)
	case 2:
		c.DE.SetHi(v)
	case 3:
		c.DE.SetLo(v)
	case 4:
		c.hlSlot().SetHi(v)
	case 5:
		c.hlSlot().SetLo(v)
	case 6:
		c.write(uint16(c.HL), v)
		return true
	default:
		c.SetA(v)
	}
	return false
}

// plainReg8 and setPlainReg8 ignore the prefix. They serve instructions
// such as LD H,(IX+d) where the memory operand already consumed it.
func (c *CPU_Z80) plainReg8(code byte) byte {
	saved := c.prefix
	c.prefix = z80PrefixNone
	v, _ := c.reg8(code)
	c.prefix = saved
	return v
}

func (c *CPU_Z80) setPlainReg8(code byte, v byte) {
	saved := c.prefix
	c.prefix = z80PrefixNone
	c.setReg8(code, v)
	c.prefix = saved
}
