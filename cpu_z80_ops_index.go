package main

// DD and FD prefixed instructions. Opcodes that touch HL, H or L run the
// base operation with the prefix still active, so HL resolves to IX/IY and
// H/L to the index halves. Opcodes with an (HL) operand get their own
// (IX+d) forms. Every other opcode falls through to the base table with
// the prefix dropped, costing the extra four cycles of the prefix fetch.

func (c *CPU_Z80) initIndexOps() {
	for i := range c.idxOps {
		op := byte(i)
		switch {
		case usesIndexedMemory(op):
			c.idxOps[i] = indexedMemoryOp(op)
		case usesHL(op):
			c.idxOps[i] = func(c *CPU_Z80) {
				c.tick(4)
				c.baseOps[op](c)
			}
		default:
			c.idxOps[i] = func(c *CPU_Z80) {
				c.prefix = z80PrefixNone
				c.tick(4)
				c.baseOps[op](c)
			}
		}
	}
	c.idxOps[0xCB] = (*CPU_Z80).opIndexedCB
}

// usesHL reports opcodes whose base form reads or writes HL, H or L
// without going through memory at (HL).
func usesHL(op byte) bool {
	x, y, z := op>>6, (op>>3)&7, op&7
	switch x {
	case 0:
		switch z {
		case 1, 3:
			// LD/INC/DEC HL and every ADD HL,rr
			return y>>1 == 2 || (z == 1 && y&1 == 1)
		case 2:
			return op == 0x22 || op == 0x2A
		case 4, 5, 6:
			return y == 4 || y == 5
		}
	case 1:
		return y == 4 || y == 5 || z == 4 || z == 5
	case 2:
		return z == 4 || z == 5
	default:
		switch op {
		case 0xE1, 0xE3, 0xE5, 0xE9, 0xF9:
			return true
		}
	}
	return false
}

// usesIndexedMemory reports opcodes with an (HL) operand, which become
// (IX+d) under the prefix. HALT is not one of them.
func usesIndexedMemory(op byte) bool {
	x, y, z := op>>6, (op>>3)&7, op&7
	switch x {
	case 0:
		return (z == 4 || z == 5 || z == 6) && y == 6
	case 1:
		return op != 0x76 && (y == 6 || z == 6)
	case 2:
		return z == 6
	}
	return false
}

func indexedMemoryOp(op byte) z80Op {
	x, y, z := op>>6, (op>>3)&7, op&7
	switch x {
	case 0:
		switch z {
		case 4:
			return func(c *CPU_Z80) { c.opIncDecIndexed(true) }
		case 5:
			return func(c *CPU_Z80) { c.opIncDecIndexed(false) }
		default:
			return func(c *CPU_Z80) {
				addr := c.indexAddr()
				c.write(addr, c.fetchByte())
				c.tick(19)
			}
		}
	case 1:
		if z == 6 {
			return func(c *CPU_Z80) {
				addr := c.indexAddr()
				c.setPlainReg8(y, c.read(addr))
				c.tick(19)
			}
		}
		return func(c *CPU_Z80) {
			addr := c.indexAddr()
			c.write(addr, c.plainReg8(z))
			c.tick(19)
		}
	default:
		return func(c *CPU_Z80) {
			addr := c.indexAddr()
			c.alu(y, c.read(addr))
			c.tick(19)
		}
	}
}

func (c *CPU_Z80) opIncDecIndexed(inc bool) {
	addr := c.indexAddr()
	v := c.read(addr)
	var r, f byte
	if inc {
		r, f = inc8(v, c.F())
	} else {
		r, f = dec8(v, c.F())
	}
	c.write(addr, r)
	c.SetF(f)
	c.tick(23)
}
