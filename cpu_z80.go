package main

import (
	"fmt"
	"strings"
)

// Z80Bus is everything the CPU sees of the machine around it.
type Z80Bus interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	In(port uint16) byte
	Out(port uint16, value byte)
}

type z80Op func(c *CPU_Z80)

const (
	z80PrefixNone byte = iota
	z80PrefixDD
	z80PrefixFD
)

// Z80DecodeError reports an opcode the interpreter has no operation for.
// Step returns it with zero cycles; PC is left just past the bytes fetched.
type Z80DecodeError struct {
	PC     uint16 // address of the first byte of the instruction
	Prefix []byte
	Opcode byte
}

func (e *Z80DecodeError) Error() string {
	var sb strings.Builder
	for _, p := range e.Prefix {
		fmt.Fprintf(&sb, "%02X ", p)
	}
	return fmt.Sprintf("z80: undefined opcode %s%02X at %04X", sb.String(), e.Opcode, e.PC)
}

type CPU_Z80 struct {
	Z80Registers

	IM   byte
	IFF1 bool
	IFF2 bool

	Halted bool
	Cycles uint64

	nmiPending bool
	irqPending bool
	irqData    byte
	eiShadow   bool

	bus Z80Bus

	baseOps [256]z80Op
	cbOps   [256]z80Op
	edOps   [256]z80Op
	idxOps  [256]z80Op // shared by DD and FD, prefix selects IX or IY

	prefix     byte
	instrPC    uint16
	stepCycles int
	fault      *Z80DecodeError
}

func NewCPU_Z80(bus Z80Bus) *CPU_Z80 {
	cpu := &CPU_Z80{bus: bus}
	cpu.initBaseOps()
	cpu.initCBOps()
	cpu.initEDOps()
	cpu.initIndexOps()
	cpu.Reset()
	return cpu
}

// Reset puts the CPU in its power-on state: AF and SP at 0xFFFF, PC, I and
// R at zero, interrupts disabled in mode 0.
func (c *CPU_Z80) Reset() {
	c.Z80Registers = Z80Registers{}
	c.AF = 0xFFFF
	c.SP = 0xFFFF
	c.IM = 0
	c.IFF1 = false
	c.IFF2 = false
	c.Halted = false
	c.Cycles = 0
	c.nmiPending = false
	c.irqPending = false
	c.irqData = 0xFF
	c.eiShadow = false
	c.prefix = z80PrefixNone
	c.fault = nil
}

// RequestNMI latches a non-maskable interrupt for the next step.
func (c *CPU_Z80) RequestNMI() {
	c.nmiPending = true
}

// RequestInterrupt raises the maskable interrupt with the byte the
// interrupting device places on the data bus. The request is consumed by
// the next step: serviced when IFF1 is set, dropped otherwise.
func (c *CPU_Z80) RequestInterrupt(data byte) {
	c.irqPending = true
	c.irqData = data
}

func (c *CPU_Z80) InterruptPending() bool {
	return c.irqPending
}

// Step executes one instruction, or acknowledges one interrupt, and returns
// the t-states it took. An undefined opcode yields a *Z80DecodeError and
// zero cycles.
func (c *CPU_Z80) Step() (int, error) {
	c.stepCycles = 0
	c.fault = nil
	c.prefix = z80PrefixNone

	shadow := c.eiShadow
	c.eiShadow = false

	switch {
	case c.nmiPending:
		c.nmiPending = false
		c.serviceNMI()
		return c.finish()
	case c.irqPending && !shadow:
		c.irqPending = false
		if c.IFF1 {
			c.serviceIRQ()
			return c.finish()
		}
	}

	if c.Halted {
		c.incrementR()
		c.tick(4)
		return c.finish()
	}

	c.instrPC = c.PC
	op := c.fetchOpcode()
	c.baseOps[op](c)
	return c.finish()
}

func (c *CPU_Z80) finish() (int, error) {
	c.prefix = z80PrefixNone
	if c.fault != nil {
		return 0, c.fault
	}
	c.Cycles += uint64(c.stepCycles)
	return c.stepCycles, nil
}

func (c *CPU_Z80) serviceNMI() {
	c.Halted = false
	c.IFF2 = c.IFF1
	c.IFF1 = false
	c.incrementR()
	c.push(c.PC)
	c.PC = 0x0066
	c.WZ = c.PC
	c.tick(11)
}

func (c *CPU_Z80) serviceIRQ() {
	c.Halted = false
	c.IFF1 = false
	c.IFF2 = false
	c.incrementR()

	switch c.IM {
	case 0:
		// The device's byte is executed as if fetched; on this machine the
		// bus floats to 0xFF, which is RST 38h.
		c.instrPC = c.PC
		c.tick(2)
		c.baseOps[c.irqData](c)
	case 1:
		c.push(c.PC)
		c.PC = 0x0038
		c.WZ = c.PC
		c.tick(13)
	default:
		c.incrementR()
		c.push(c.PC)
		vector := uint16(c.I)<<8 | uint16(c.irqData)
		c.PC = c.read16(vector)
		c.WZ = c.PC
		c.tick(19)
	}
}

func (c *CPU_Z80) tick(cycles int) {
	c.stepCycles += cycles
}

// fail records a decode failure. prefixes are the bytes fetched before op.
func (c *CPU_Z80) fail(op byte, prefixes ...byte) {
	c.fault = &Z80DecodeError{PC: c.instrPC, Prefix: prefixes, Opcode: op}
}

func (c *CPU_Z80) fetchOpcode() byte {
	op := c.bus.Read(c.PC)
	c.PC++
	c.incrementR()
	return op
}

func (c *CPU_Z80) fetchByte() byte {
	v := c.bus.Read(c.PC)
	c.PC++
	return v
}

func (c *CPU_Z80) fetchWord() uint16 {
	lo := c.fetchByte()
	hi := c.fetchByte()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU_Z80) read(addr uint16) byte {
	return c.bus.Read(addr)
}

func (c *CPU_Z80) write(addr uint16, v byte) {
	c.bus.Write(addr, v)
}

func (c *CPU_Z80) read16(addr uint16) uint16 {
	return uint16(c.bus.Read(addr)) | uint16(c.bus.Read(addr+1))<<8
}

func (c *CPU_Z80) write16(addr uint16, v uint16) {
	c.bus.Write(addr, byte(v))
	c.bus.Write(addr+1, byte(v>>8))
}

func (c *CPU_Z80) push(v uint16) {
	c.SP--
	c.bus.Write(c.SP, byte(v>>8))
	c.SP--
	c.bus.Write(c.SP, byte(v))
}

func (c *CPU_Z80) pop() uint16 {
	lo := c.bus.Read(c.SP)
	c.SP++
	hi := c.bus.Read(c.SP)
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// condition evaluates the cc field: NZ Z NC C PO PE P M.
func (c *CPU_Z80) condition(cc byte) bool {
	f := c.F()
	switch cc & 7 {
	case 0:
		return f&z80FlagZ == 0
	case 1:
		return f&z80FlagZ != 0
	case 2:
		return f&z80FlagC == 0
	case 3:
		return f&z80FlagC != 0
	case 4:
		return f&z80FlagPV == 0
	case 5:
		return f&z80FlagPV != 0
	case 6:
		return f&z80FlagS == 0
	default:
		return f&z80FlagS != 0
	}
}

// indexAddr fetches the displacement of an (IX+d)/(IY+d) operand.
func (c *CPU_Z80) indexAddr() uint16 {
	d := int8(c.fetchByte())
	addr := uint16(*c.hlSlot()) + uint16(int16(d))
	c.WZ = addr
	return addr
}
