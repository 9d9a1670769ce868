// memory_bus.go - Flat 64KB memory for the Spectrum Engine

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

/*
memory_bus.go - Memory Bus for the Spectrum Engine

The Z80 sees one flat 64KB address space shared by code, data and the ULA's
display file. There is no paging and no write protection: the ROM image is
simply loaded into the low addresses and can be overwritten like any other
byte, which is what the original machine this engine grew from did too.

Core Features:

    65536 bytes held in a fixed array, addressed modulo 65536.
    Little-endian 16-bit helpers that wrap at the top of memory.
    ROM and body loaders that tolerate short reads.

Concurrency:

    Memory is owned by the scheduler goroutine. Peripherals that run on other
    goroutines never touch it; they see frames the ULA has already rendered.
*/

package main

import (
	"errors"
	"io"
)

const SPECTRUM_MEMORY_SIZE = 0x10000

type SpectrumMemory struct {
	/*
		SpectrumMemory is the whole address space of the machine.
	*/

	data [SPECTRUM_MEMORY_SIZE]byte
}

func NewSpectrumMemory() *SpectrumMemory {
	return &SpectrumMemory{}
}

func (m *SpectrumMemory) Read(addr uint16) byte {
	return m.data[addr]
}

func (m *SpectrumMemory) Write(addr uint16, value byte) {
	m.data[addr] = value
}

func (m *SpectrumMemory) Read16(addr uint16) uint16 {
	return uint16(m.data[addr]) | uint16(m.data[addr+1])<<8
}

func (m *SpectrumMemory) Write16(addr uint16, value uint16) {
	m.data[addr] = byte(value)
	m.data[addr+1] = byte(value >> 8)
}

// Bytes exposes the backing array for bulk readers such as the ULA.
func (m *SpectrumMemory) Bytes() []byte {
	return m.data[:]
}

// Load copies data starting at addr, wrapping at the top of memory.
func (m *SpectrumMemory) Load(addr uint16, data []byte) {
	for i, b := range data {
		m.data[addr+uint16(i)] = b
	}
}

func (m *SpectrumMemory) Reset() {
	/*
		Reset clears every byte, ROM included. Callers reload the ROM.
	*/

	m.data = [SPECTRUM_MEMORY_SIZE]byte{}
}

// LoadFrom fills memory from r starting at addr and returns how many bytes
// arrived. A short read is not an error: the bytes past the end of the input
// keep whatever they held before.
func (m *SpectrumMemory) LoadFrom(r io.Reader, addr uint16, limit int) (int, error) {
	if limit <= 0 || limit > SPECTRUM_MEMORY_SIZE {
		limit = SPECTRUM_MEMORY_SIZE
	}
	buf := make([]byte, limit)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return n, err
	}
	m.Load(addr, buf[:n])
	return n, nil
}

// LoadROM copies a raw ROM dump to address 0.
func (m *SpectrumMemory) LoadROM(r io.Reader) (int, error) {
	return m.LoadFrom(r, 0, SPECTRUM_MEMORY_SIZE)
}
