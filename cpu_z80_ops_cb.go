package main

// CB-prefixed rotates, shifts and bit operations, plus the DD CB / FD CB
// indexed forms that share their decoding.

func (c *CPU_Z80) initCBOps() {
	for i := range c.cbOps {
		op := byte(i)
		x, y, z := op>>6, (op>>3)&7, op&7
		switch x {
		case 0:
			c.cbOps[i] = func(c *CPU_Z80) { c.opShiftReg(z80ShiftKind(y), z) }
		case 1:
			c.cbOps[i] = func(c *CPU_Z80) { c.opBITReg(y, z) }
		case 2:
			c.cbOps[i] = func(c *CPU_Z80) { c.opSetResReg(y, z, false) }
		default:
			c.cbOps[i] = func(c *CPU_Z80) { c.opSetResReg(y, z, true) }
		}
	}
}

func (c *CPU_Z80) opShiftReg(kind z80ShiftKind, code byte) {
	v, mem := c.reg8(code)
	r, f := shiftOp(kind, v, c.F(), z80MaskAll)
	c.setReg8(code, r)
	c.SetF(f)
	if mem {
		c.tick(15)
		return
	}
	c.tick(8)
}

// bitFlags computes BIT b: Z and PV report a clear bit, S is set only for
// bit 7 when set, H is set, C is kept. xy supplies the undocumented bits.
func bitFlags(bit, v, f, xy byte) byte {
	tested := v & (1 << bit)
	computed := z80FlagH | xy&z80MaskXY
	if tested == 0 {
		computed |= z80FlagZ | z80FlagPV
	}
	computed |= tested & z80FlagS
	return mergeFlags(f, computed, ^byte(z80FlagC))
}

func (c *CPU_Z80) opBITReg(bit, code byte) {
	v, mem := c.reg8(code)
	if mem {
		c.SetF(bitFlags(bit, v, c.F(), byte(c.WZ>>8)))
		c.tick(12)
		return
	}
	c.SetF(bitFlags(bit, v, c.F(), v))
	c.tick(8)
}

func (c *CPU_Z80) opSetResReg(bit, code byte, set bool) {
	v, mem := c.reg8(code)
	if set {
		v |= 1 << bit
	} else {
		v &^= 1 << bit
	}
	c.setReg8(code, v)
	if mem {
		c.tick(15)
		return
	}
	c.tick(8)
}

// opIndexedCB executes DD CB d op / FD CB d op. The displacement comes
// before the final opcode byte, which is read without an M1 cycle. Forms
// with a register field other than 6 also copy the result into that
// register.
func (c *CPU_Z80) opIndexedCB() {
	addr := c.indexAddr()
	op := c.fetchByte()
	x, y, z := op>>6, (op>>3)&7, op&7
	v := c.read(addr)

	var r byte
	switch x {
	case 0:
		var f byte
		r, f = shiftOp(z80ShiftKind(y), v, c.F(), z80MaskAll)
		c.SetF(f)
	case 1:
		c.SetF(bitFlags(y, v, c.F(), byte(addr>>8)))
		c.tick(20)
		return
	case 2:
		r = v &^ (1 << y)
	default:
		r = v | 1<<y
	}
	c.write(addr, r)
	if z != 6 {
		c.setPlainReg8(z, r)
	}
	c.tick(23)
}
