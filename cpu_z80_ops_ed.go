package main

// ED-prefixed instructions. Codes outside the defined set are reported as
// decode failures rather than executed as the hardware's eight-cycle NOPs.

func (c *CPU_Z80) initEDOps() {
	for i := range c.edOps {
		op := byte(i)
		c.edOps[i] = func(c *CPU_Z80) { c.fail(op, 0xED) }
	}

	for i := 0x40; i < 0x80; i++ {
		op := byte(i)
		y, z := (op>>3)&7, op&7
		p, q := y>>1, y&1
		switch z {
		case 0:
			c.edOps[i] = func(c *CPU_Z80) { c.opINRegC(y) }
		case 1:
			c.edOps[i] = func(c *CPU_Z80) { c.opOUTCReg(y) }
		case 2:
			if q == 0 {
				c.edOps[i] = func(c *CPU_Z80) { c.opSBCHL(p) }
			} else {
				c.edOps[i] = func(c *CPU_Z80) { c.opADCHL(p) }
			}
		case 3:
			if q == 0 {
				c.edOps[i] = func(c *CPU_Z80) {
					addr := c.fetchWord()
					c.write16(addr, c.pair(p))
					c.WZ = addr + 1
					c.tick(20)
				}
			} else {
				c.edOps[i] = func(c *CPU_Z80) {
					addr := c.fetchWord()
					c.setPair(p, c.read16(addr))
					c.WZ = addr + 1
					c.tick(20)
				}
			}
		case 4:
			c.edOps[i] = (*CPU_Z80).opNEG
		case 5:
			if y == 1 {
				c.edOps[i] = (*CPU_Z80).opRETI
			} else {
				c.edOps[i] = (*CPU_Z80).opRETN
			}
		case 6:
			mode := [8]byte{0, 0, 1, 2, 0, 0, 1, 2}[y]
			c.edOps[i] = func(c *CPU_Z80) { c.IM = mode; c.tick(8) }
		default:
			switch y {
			case 0:
				c.edOps[i] = func(c *CPU_Z80) { c.I = c.A(); c.tick(9) }
			case 1:
				c.edOps[i] = func(c *CPU_Z80) { c.R = c.A(); c.tick(9) }
			case 2:
				c.edOps[i] = func(c *CPU_Z80) { c.opLDAIR(c.I) }
			case 3:
				c.edOps[i] = func(c *CPU_Z80) { c.opLDAIR(c.R) }
			case 4:
				c.edOps[i] = (*CPU_Z80).opRRD
			case 5:
				c.edOps[i] = (*CPU_Z80).opRLD
			}
		}
	}

	c.edOps[0xA0] = func(c *CPU_Z80) { c.opLDBlock(1, false) }
	c.edOps[0xA8] = func(c *CPU_Z80) { c.opLDBlock(-1, false) }
	c.edOps[0xB0] = func(c *CPU_Z80) { c.opLDBlock(1, true) }
	c.edOps[0xB8] = func(c *CPU_Z80) { c.opLDBlock(-1, true) }
	c.edOps[0xA1] = func(c *CPU_Z80) { c.opCPBlock(1, false) }
	c.edOps[0xA9] = func(c *CPU_Z80) { c.opCPBlock(-1, false) }
	c.edOps[0xB1] = func(c *CPU_Z80) { c.opCPBlock(1, true) }
	c.edOps[0xB9] = func(c *CPU_Z80) { c.opCPBlock(-1, true) }
	c.edOps[0xA2] = func(c *CPU_Z80) { c.opINBlock(1, false) }
	c.edOps[0xAA] = func(c *CPU_Z80) { c.opINBlock(-1, false) }
	c.edOps[0xB2] = func(c *CPU_Z80) { c.opINBlock(1, true) }
	c.edOps[0xBA] = func(c *CPU_Z80) { c.opINBlock(-1, true) }
	c.edOps[0xA3] = func(c *CPU_Z80) { c.opOUTBlock(1, false) }
	c.edOps[0xAB] = func(c *CPU_Z80) { c.opOUTBlock(-1, false) }
	c.edOps[0xB3] = func(c *CPU_Z80) { c.opOUTBlock(1, true) }
	c.edOps[0xBB] = func(c *CPU_Z80) { c.opOUTBlock(-1, true) }
}

// opINRegC is IN r,(C). Code 6 only sets the flags.
func (c *CPU_Z80) opINRegC(code byte) {
	v := c.bus.In(uint16(c.BC))
	c.WZ = uint16(c.BC) + 1
	if code != 6 {
		c.setReg8(code, v)
	}
	c.SetF(mergeFlags(c.F(), z80SZP[v], ^byte(z80FlagC)))
	c.tick(12)
}

// opOUTCReg is OUT (C),r. Code 6 writes zero.
func (c *CPU_Z80) opOUTCReg(code byte) {
	var v byte
	if code != 6 {
		v, _ = c.reg8(code)
	}
	c.bus.Out(uint16(c.BC), v)
	c.WZ = uint16(c.BC) + 1
	c.tick(12)
}

func (c *CPU_Z80) opSBCHL(p byte) {
	hl := uint16(c.HL)
	c.WZ = hl + 1
	r, f := sbc16(hl, c.pair(p), c.carry(), c.F())
	c.HL = Z80Word(r)
	c.SetF(f)
	c.tick(15)
}

func (c *CPU_Z80) opADCHL(p byte) {
	hl := uint16(c.HL)
	c.WZ = hl + 1
	r, f := adc16(hl, c.pair(p), c.carry(), c.F())
	c.HL = Z80Word(r)
	c.SetF(f)
	c.tick(15)
}

func (c *CPU_Z80) opNEG() {
	r, f := sub8(0, c.A(), 0, c.F(), z80MaskAll)
	c.SetA(r)
	c.SetF(f)
	c.tick(8)
}

func (c *CPU_Z80) opRETN() {
	c.IFF1 = c.IFF2
	c.PC = c.pop()
	c.WZ = c.PC
	c.tick(14)
}

func (c *CPU_Z80) opRETI() {
	c.PC = c.pop()
	c.WZ = c.PC
	c.tick(14)
}

// opLDAIR is LD A,I and LD A,R: PV takes IFF2, H and N clear, C kept.
func (c *CPU_Z80) opLDAIR(v byte) {
	c.SetA(v)
	f := szxy(v)
	if c.IFF2 {
		f |= z80FlagPV
	}
	c.SetF(mergeFlags(c.F(), f, ^byte(z80FlagC)))
	c.tick(9)
}

func (c *CPU_Z80) opRRD() {
	addr := uint16(c.HL)
	v := c.read(addr)
	a := c.A()
	c.write(addr, a<<4|v>>4)
	a = a&0xF0 | v&0x0F
	c.SetA(a)
	c.SetF(mergeFlags(c.F(), z80SZP[a], ^byte(z80FlagC)))
	c.WZ = addr + 1
	c.tick(18)
}

func (c *CPU_Z80) opRLD() {
	addr := uint16(c.HL)
	v := c.read(addr)
	a := c.A()
	c.write(addr, v<<4|a&0x0F)
	a = a&0xF0 | v>>4
	c.SetA(a)
	c.SetF(mergeFlags(c.F(), z80SZP[a], ^byte(z80FlagC)))
	c.WZ = addr + 1
	c.tick(18)
}

// repeatBlock rewinds PC onto the ED prefix so the instruction runs again,
// charging the extra five cycles of a repeating iteration.
func (c *CPU_Z80) repeatBlock() {
	c.PC -= 2
	c.WZ = c.PC + 1
	c.tick(5)
}

func (c *CPU_Z80) opLDBlock(dir int, repeat bool) {
	v := c.read(uint16(c.HL))
	c.write(uint16(c.DE), v)
	c.HL += Z80Word(dir)
	c.DE += Z80Word(dir)
	c.BC--

	n := v + c.A()
	f := c.F() & (z80FlagS | z80FlagZ | z80FlagC)
	f |= n & z80FlagX
	if n&0x02 != 0 {
		f |= z80FlagY
	}
	if c.BC != 0 {
		f |= z80FlagPV
	}
	c.SetF(f)
	c.tick(16)
	if repeat && c.BC != 0 {
		c.repeatBlock()
	}
}

func (c *CPU_Z80) opCPBlock(dir int, repeat bool) {
	v := c.read(uint16(c.HL))
	r, sf := sub8(c.A(), v, 0, c.F(), z80MaskAll)
	c.HL += Z80Word(dir)
	c.BC--
	c.WZ += uint16(dir)

	f := sf&(z80FlagS|z80FlagZ|z80FlagH) | z80FlagN | c.F()&z80FlagC
	n := r
	if sf&z80FlagH != 0 {
		n--
	}
	f |= n & z80FlagX
	if n&0x02 != 0 {
		f |= z80FlagY
	}
	if c.BC != 0 {
		f |= z80FlagPV
	}
	c.SetF(f)
	c.tick(16)
	if repeat && c.BC != 0 && f&z80FlagZ == 0 {
		c.repeatBlock()
	}
}

// blockIOFlags is shared by INI/IND/OUTI/OUTD. k is the byte transferred
// plus the companion register the hardware adds internally.
func (c *CPU_Z80) blockIOFlags(v byte, k uint16) {
	b := c.BC.Hi()
	f := szxy(b)
	if v&0x80 != 0 {
		f |= z80FlagN
	}
	if k > 0xFF {
		f |= z80FlagH | z80FlagC
	}
	if parity8(byte(k)&7 ^ b) {
		f |= z80FlagPV
	}
	c.SetF(f)
}

func (c *CPU_Z80) opINBlock(dir int, repeat bool) {
	v := c.bus.In(uint16(c.BC))
	c.write(uint16(c.HL), v)
	c.WZ = uint16(c.BC) + uint16(dir)
	c.BC.SetHi(c.BC.Hi() - 1)
	c.HL += Z80Word(dir)
	c.blockIOFlags(v, uint16(v)+uint16(c.BC.Lo()+byte(dir)))
	c.tick(16)
	if repeat && c.BC.Hi() != 0 {
		c.repeatBlock()
	}
}

func (c *CPU_Z80) opOUTBlock(dir int, repeat bool) {
	v := c.read(uint16(c.HL))
	c.BC.SetHi(c.BC.Hi() - 1)
	c.bus.Out(uint16(c.BC), v)
	c.WZ = uint16(c.BC) + uint16(dir)
	c.HL += Z80Word(dir)
	c.blockIOFlags(v, uint16(v)+uint16(c.HL.Lo()))
	c.tick(16)
	if repeat && c.BC.Hi() != 0 {
		c.repeatBlock()
	}
}
