package main

// Unprefixed opcode table. Opcodes are decoded by the usual octal fields:
// x = bits 7-6, y = bits 5-3, z = bits 2-0, p = y>>1, q = y&1.

func (c *CPU_Z80) initBaseOps() {
	for i := range c.baseOps {
		c.baseOps[i] = baseOp(byte(i))
	}
}

func baseOp(op byte) z80Op {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	switch x {
	case 0:
		switch z {
		case 0:
			switch y {
			case 0:
				return (*CPU_Z80).opNOP
			case 1:
				return func(c *CPU_Z80) { c.ExAF(); c.tick(4) }
			case 2:
				return (*CPU_Z80).opDJNZ
			case 3:
				return func(c *CPU_Z80) { c.jumpRelative(true) }
			default:
				return func(c *CPU_Z80) { c.jumpRelative(c.condition(y - 4)) }
			}
		case 1:
			if q == 0 {
				return func(c *CPU_Z80) { c.setPair(p, c.fetchWord()); c.tick(10) }
			}
			return func(c *CPU_Z80) { c.opADDHL(p) }
		case 2:
			return loadIndirect(p, q)
		case 3:
			if q == 0 {
				return func(c *CPU_Z80) { c.setPair(p, c.pair(p)+1); c.tick(6) }
			}
			return func(c *CPU_Z80) { c.setPair(p, c.pair(p)-1); c.tick(6) }
		case 4:
			return func(c *CPU_Z80) { c.opIncDec(y, true) }
		case 5:
			return func(c *CPU_Z80) { c.opIncDec(y, false) }
		case 6:
			return func(c *CPU_Z80) {
				if c.setReg8(y, c.fetchByte()) {
					c.tick(10)
					return
				}
				c.tick(7)
			}
		default:
			return accumulatorOp(y)
		}
	case 1:
		if op == 0x76 {
			return (*CPU_Z80).opHALT
		}
		return func(c *CPU_Z80) { c.opLDRegReg(y, z) }
	case 2:
		return func(c *CPU_Z80) { c.opALUReg(y, z) }
	}

	switch z {
	case 0:
		return func(c *CPU_Z80) { c.opRETCond(y) }
	case 1:
		if q == 0 {
			return func(c *CPU_Z80) { c.setStackPair(p, c.pop()); c.tick(10) }
		}
		switch p {
		case 0:
			return func(c *CPU_Z80) { c.PC = c.pop(); c.WZ = c.PC; c.tick(10) }
		case 1:
			return func(c *CPU_Z80) { c.Exx(); c.tick(4) }
		case 2:
			return func(c *CPU_Z80) { c.PC = uint16(*c.hlSlot()); c.tick(4) }
		default:
			return func(c *CPU_Z80) { c.SP = uint16(*c.hlSlot()); c.tick(6) }
		}
	case 2:
		return func(c *CPU_Z80) {
			addr := c.fetchWord()
			c.WZ = addr
			if c.condition(y) {
				c.PC = addr
			}
			c.tick(10)
		}
	case 3:
		switch y {
		case 0:
			return func(c *CPU_Z80) { c.PC = c.fetchWord(); c.WZ = c.PC; c.tick(10) }
		case 1:
			return (*CPU_Z80).opCBPrefix
		case 2:
			return (*CPU_Z80).opOUTNA
		case 3:
			return (*CPU_Z80).opINAN
		case 4:
			return (*CPU_Z80).opEXSPHL
		case 5:
			return func(c *CPU_Z80) { c.ExDEHL(); c.tick(4) }
		case 6:
			return func(c *CPU_Z80) { c.IFF1, c.IFF2 = false, false; c.tick(4) }
		default:
			return (*CPU_Z80).opEI
		}
	case 4:
		return func(c *CPU_Z80) { c.opCALLCond(c.condition(y)) }
	case 5:
		if q == 0 {
			return func(c *CPU_Z80) { c.push(c.stackPair(p)); c.tick(11) }
		}
		switch p {
		case 0:
			return func(c *CPU_Z80) { c.opCALLCond(true) }
		case 1:
			return func(c *CPU_Z80) { c.opIndexPrefix(z80PrefixDD) }
		case 2:
			return (*CPU_Z80).opEDPrefix
		default:
			return func(c *CPU_Z80) { c.opIndexPrefix(z80PrefixFD) }
		}
	case 6:
		return func(c *CPU_Z80) { c.alu(y, c.fetchByte()); c.tick(7) }
	default:
		target := uint16(y) * 8
		return func(c *CPU_Z80) {
			c.push(c.PC)
			c.PC = target
			c.WZ = target
			c.tick(11)
		}
	}
}

func (c *CPU_Z80) opNOP() {
	c.tick(4)
}

// opHALT leaves PC on the next instruction; Step keeps executing NOPs in
// place until an interrupt arrives.
func (c *CPU_Z80) opHALT() {
	c.Halted = true
	c.tick(4)
}

func (c *CPU_Z80) opEI() {
	c.IFF1 = true
	c.IFF2 = true
	c.eiShadow = true
	c.tick(4)
}

func (c *CPU_Z80) opLDRegReg(dst, src byte) {
	v, srcMem := c.reg8(src)
	dstMem := c.setReg8(dst, v)
	if srcMem || dstMem {
		c.tick(7)
		return
	}
	c.tick(4)
}

// alu applies ADD ADC SUB SBC AND XOR OR CP, selected by the y field.
func (c *CPU_Z80) alu(op byte, v byte) {
	a, f := c.A(), c.F()
	switch op & 7 {
	case 0:
		a, f = add8(a, v, 0, f, z80MaskAll)
	case 1:
		a, f = add8(a, v, f&z80FlagC, f, z80MaskAll)
	case 2:
		a, f = sub8(a, v, 0, f, z80MaskAll)
	case 3:
		a, f = sub8(a, v, f&z80FlagC, f, z80MaskAll)
	case 4:
		a, f = and8(a, v, f, z80MaskAll)
	case 5:
		a, f = xor8(a, v, f, z80MaskAll)
	case 6:
		a, f = or8(a, v, f, z80MaskAll)
	default:
		f = cp8(a, v, f)
	}
	c.SetA(a)
	c.SetF(f)
}

func (c *CPU_Z80) opALUReg(op, src byte) {
	v, mem := c.reg8(src)
	c.alu(op, v)
	if mem {
		c.tick(7)
		return
	}
	c.tick(4)
}

func (c *CPU_Z80) opIncDec(code byte, inc bool) {
	v, mem := c.reg8(code)
	var r, f byte
	if inc {
		r, f = inc8(v, c.F())
	} else {
		r, f = dec8(v, c.F())
	}
	c.setReg8(code, r)
	c.SetF(f)
	if mem {
		c.tick(11)
		return
	}
	c.tick(4)
}

func (c *CPU_Z80) opADDHL(p byte) {
	hl := c.hlSlot()
	c.WZ = uint16(*hl) + 1
	r, f := add16(uint16(*hl), c.pair(p), c.F(), z80MaskAdd16)
	*hl = Z80Word(r)
	c.SetF(f)
	c.tick(11)
}

// loadIndirect covers the x=0 z=2 group: LD (BC)/(DE)/(nn) with A or HL.
func loadIndirect(p, q byte) z80Op {
	switch p<<1 | q {
	case 0:
		return func(c *CPU_Z80) { c.write(uint16(c.BC), c.A()); c.tick(7) }
	case 1:
		return func(c *CPU_Z80) { c.SetA(c.read(uint16(c.BC))); c.WZ = uint16(c.BC) + 1; c.tick(7) }
	case 2:
		return func(c *CPU_Z80) { c.write(uint16(c.DE), c.A()); c.tick(7) }
	case 3:
		return func(c *CPU_Z80) { c.SetA(c.read(uint16(c.DE))); c.WZ = uint16(c.DE) + 1; c.tick(7) }
	case 4:
		return func(c *CPU_Z80) {
			addr := c.fetchWord()
			c.write16(addr, uint16(*c.hlSlot()))
			c.WZ = addr + 1
			c.tick(16)
		}
	case 5:
		return func(c *CPU_Z80) {
			addr := c.fetchWord()
			*c.hlSlot() = Z80Word(c.read16(addr))
			c.WZ = addr + 1
			c.tick(16)
		}
	case 6:
		return func(c *CPU_Z80) {
			addr := c.fetchWord()
			c.write(addr, c.A())
			c.WZ = uint16(c.A())<<8 | (addr+1)&0xFF
			c.tick(13)
		}
	default:
		return func(c *CPU_Z80) {
			addr := c.fetchWord()
			c.SetA(c.read(addr))
			c.WZ = addr + 1
			c.tick(13)
		}
	}
}

// accumulatorOp covers RLCA RRCA RLA RRA DAA CPL SCF CCF.
func accumulatorOp(y byte) z80Op {
	if y < 4 {
		kind := [4]z80ShiftKind{z80RLC, z80RRC, z80RL, z80RR}[y]
		return func(c *CPU_Z80) {
			r, f := shiftOp(kind, c.A(), c.F(), z80MaskRotA)
			c.SetA(r)
			c.SetF(f)
			c.tick(4)
		}
	}
	switch y {
	case 4:
		return func(c *CPU_Z80) {
			r, f := daa(c.A(), c.F())
			c.SetA(r)
			c.SetF(f)
			c.tick(4)
		}
	case 5:
		return func(c *CPU_Z80) {
			a := ^c.A()
			c.SetA(a)
			c.SetF(mergeFlags(c.F(), z80FlagH|z80FlagN|a&z80MaskXY, z80FlagH|z80FlagN|z80MaskXY))
			c.tick(4)
		}
	case 6:
		return func(c *CPU_Z80) {
			c.SetF(mergeFlags(c.F(), z80FlagC|c.A()&z80MaskXY, z80FlagH|z80FlagN|z80FlagC|z80MaskXY))
			c.tick(4)
		}
	default:
		return func(c *CPU_Z80) {
			f := c.F()
			computed := c.A() & z80MaskXY
			if f&z80FlagC != 0 {
				computed |= z80FlagH
			} else {
				computed |= z80FlagC
			}
			c.SetF(mergeFlags(f, computed, z80FlagH|z80FlagN|z80FlagC|z80MaskXY))
			c.tick(4)
		}
	}
}

func (c *CPU_Z80) opDJNZ() {
	d := int8(c.fetchByte())
	b := c.BC.Hi() - 1
	c.BC.SetHi(b)
	if b != 0 {
		c.PC += uint16(int16(d))
		c.WZ = c.PC
		c.tick(13)
		return
	}
	c.tick(8)
}

func (c *CPU_Z80) jumpRelative(taken bool) {
	d := int8(c.fetchByte())
	if taken {
		c.PC += uint16(int16(d))
		c.WZ = c.PC
		c.tick(12)
		return
	}
	c.tick(7)
}

func (c *CPU_Z80) opRETCond(cc byte) {
	if c.condition(cc) {
		c.PC = c.pop()
		c.WZ = c.PC
		c.tick(11)
		return
	}
	c.tick(5)
}

func (c *CPU_Z80) opCALLCond(taken bool) {
	addr := c.fetchWord()
	c.WZ = addr
	if taken {
		c.push(c.PC)
		c.PC = addr
		c.tick(17)
		return
	}
	c.tick(10)
}

func (c *CPU_Z80) opEXSPHL() {
	hl := c.hlSlot()
	v := c.read16(c.SP)
	c.write16(c.SP, uint16(*hl))
	*hl = Z80Word(v)
	c.WZ = v
	c.tick(19)
}

func (c *CPU_Z80) opOUTNA() {
	n := c.fetchByte()
	port := uint16(c.A())<<8 | uint16(n)
	c.bus.Out(port, c.A())
	c.WZ = uint16(c.A())<<8 | uint16(n+1)
	c.tick(11)
}

func (c *CPU_Z80) opINAN() {
	n := c.fetchByte()
	port := uint16(c.A())<<8 | uint16(n)
	c.SetA(c.bus.In(port))
	c.WZ = port + 1
	c.tick(11)
}

func (c *CPU_Z80) opCBPrefix() {
	op := c.fetchOpcode()
	c.cbOps[op](c)
}

func (c *CPU_Z80) opEDPrefix() {
	c.prefix = z80PrefixNone
	op := c.fetchOpcode()
	c.edOps[op](c)
}

func (c *CPU_Z80) opIndexPrefix(prefix byte) {
	c.prefix = prefix
	op := c.fetchOpcode()
	c.idxOps[op](c)
}
