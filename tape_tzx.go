// tape_tzx.go - TZX container decoding, encoding and block extraction

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"strings"
)

const (
	tzxSignature    = "ZXTape!\x1A"
	tzxHeaderSize   = 10
	tzxVersionMajor = 1
	tzxVersionMinor = 20
)

var archiveInfoNames = map[byte]string{
	0x00: "Title", 0x01: "Publisher", 0x02: "Author", 0x03: "Year",
	0x04: "Language", 0x05: "Type", 0x06: "Price", 0x07: "Loader",
	0x08: "Origin", 0xFF: "Comment",
}

// tzxReader walks a byte slice and records whether it ran out.
type tzxReader struct {
	data  []byte
	pos   int
	short bool
}

func (r *tzxReader) need(n int) bool {
	if n < 0 || r.pos+n > len(r.data) {
		r.short = true
		return false
	}
	return true
}

func (r *tzxReader) u8() int {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return int(v)
}

func (r *tzxReader) u16() int {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return int(v)
}

func (r *tzxReader) u24() int {
	if !r.need(3) {
		return 0
	}
	v := int(r.data[r.pos]) | int(r.data[r.pos+1])<<8 | int(r.data[r.pos+2])<<16
	r.pos += 3
	return v
}

func (r *tzxReader) u32() int {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return int(v)
}

func (r *tzxReader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return v
}

// DecodeTZX decodes blocks from data starting at offset. Offset 0 means the
// file header has not been read yet. It returns the decoded blocks and the
// offset to resume from: a block cut short by the end of data is left for
// the next call, so a file that is still being written can be decoded
// incrementally. An unknown block id stops decoding with a *TapeError
// wrapping ErrUnknownTapeBlock; the blocks before it are still returned.
func DecodeTZX(data []byte, offset int) ([]*TapeBlock, int, error) {
	if offset == 0 {
		if len(data) < tzxHeaderSize {
			return nil, 0, nil
		}
		if string(data[:8]) != tzxSignature {
			return nil, 0, &TapeError{Operation: "decode", Offset: 0, Details: "missing ZXTape! signature"}
		}
		if data[8] != tzxVersionMajor {
			return nil, 0, &TapeError{Operation: "decode", Offset: 8,
				Details: fmt.Sprintf("unsupported TZX version %d.%02d", data[8], data[9])}
		}
		offset = tzxHeaderSize
	}

	var blocks []*TapeBlock
	for offset < len(data) {
		r := &tzxReader{data: data, pos: offset}
		b, err := decodeTZXBlock(r)
		if err != nil {
			return blocks, offset, err
		}
		if r.short {
			break
		}
		b.Raw = data[offset:r.pos:r.pos]
		blocks = append(blocks, b)
		offset = r.pos
	}
	return blocks, offset, nil
}

// LoadTZX decodes a complete TZX image. Trailing bytes that do not form a
// whole block are reported as ErrTruncatedBlock.
func LoadTZX(data []byte) ([]*TapeBlock, error) {
	blocks, off, err := DecodeTZX(data, 0)
	if err != nil {
		return blocks, err
	}
	if off < len(data) || len(data) < tzxHeaderSize {
		return blocks, &TapeError{Operation: "load", Offset: off, Details: "incomplete block at end of file", Err: ErrTruncatedBlock}
	}
	return blocks, nil
}

func decodeTZXBlock(r *tzxReader) (*TapeBlock, error) {
	start := r.pos
	id := byte(r.u8())
	b := &TapeBlock{ID: id}

	switch id {
	case TZXStandardSpeed:
		b.PauseMs = r.u16()
		b.Data = r.bytes(r.u16())
		b.PilotPulse, b.Sync1, b.Sync2 = TapePilotPulse, TapeSync1Pulse, TapeSync2Pulse
		b.ZeroPulse, b.OnePulse = TapeZeroPulse, TapeOnePulse
		b.UsedBits = 8
		b.PilotCount = TapePilotDataCount
		if b.IsHeader() {
			b.PilotCount = TapePilotHeaderCount
		}

	case TZXTurboSpeed:
		b.PilotPulse = r.u16()
		b.Sync1 = r.u16()
		b.Sync2 = r.u16()
		b.ZeroPulse = r.u16()
		b.OnePulse = r.u16()
		b.PilotCount = r.u16()
		b.UsedBits = r.u8()
		b.PauseMs = r.u16()
		b.Data = r.bytes(r.u24())

	case TZXPureTone:
		b.PilotPulse = r.u16()
		b.PilotCount = r.u16()

	case TZXPulseSequence:
		n := r.u8()
		for range n {
			b.Pulses = append(b.Pulses, uint32(r.u16()))
		}

	case TZXPureData:
		b.ZeroPulse = r.u16()
		b.OnePulse = r.u16()
		b.UsedBits = r.u8()
		b.PauseMs = r.u16()
		b.Data = r.bytes(r.u24())

	case TZXDirectRecording:
		b.SampleCycles = r.u16()
		b.PauseMs = r.u16()
		b.UsedBits = r.u8()
		b.Data = r.bytes(r.u24())

	case TZXGeneralizedData:
		n := r.u32()
		body := r.bytes(n)
		if r.short {
			return b, nil
		}
		if err := decodeGeneralizedData(b, body); err != nil {
			return nil, &TapeError{Operation: "decode", Offset: start, Details: "generalized data block", Err: err}
		}

	case TZXPause:
		b.PauseMs = r.u16()
		b.Stop = b.PauseMs == 0

	case TZXTextDescription:
		b.Description = string(r.bytes(r.u8()))

	case TZXArchiveInfo:
		body := r.bytes(r.u16())
		if !r.short {
			b.Description = decodeArchiveInfo(body)
		}

	case TZXHardwareInfo:
		n := r.u8()
		r.bytes(n * 3)
		b.Description = fmt.Sprintf("%d hardware entries", n)

	case TZXCustomInfo:
		ident := r.bytes(10)
		r.bytes(r.u32())
		b.Description = strings.TrimRight(string(ident), " \x00")

	case TZXGlue:
		r.bytes(9)

	default:
		return nil, &TapeError{
			Operation: "decode",
			Offset:    start,
			Details:   fmt.Sprintf("block id 0x%02X", id),
			Err:       ErrUnknownTapeBlock,
		}
	}
	return b, nil
}

func decodeArchiveInfo(body []byte) string {
	r := &tzxReader{data: body}
	n := r.u8()
	var parts []string
	for range n {
		kind := byte(r.u8())
		text := string(r.bytes(r.u8()))
		if r.short {
			break
		}
		name, ok := archiveInfoNames[kind]
		if !ok {
			name = fmt.Sprintf("%02X", kind)
		}
		parts = append(parts, name+": "+text)
	}
	return strings.Join(parts, "; ")
}

type tzxSymbol struct {
	flags  tapeLevel
	pulses []uint32
}

func readSymbols(r *tzxReader, count, maxPulses int) []tzxSymbol {
	syms := make([]tzxSymbol, count)
	for i := range syms {
		syms[i].flags = tapeLevel(r.u8() & 3)
		for range maxPulses {
			if p := r.u16(); p > 0 {
				syms[i].pulses = append(syms[i].pulses, uint32(p))
			}
		}
	}
	return syms
}

func emitSymbol(b *TapeBlock, s tzxSymbol) {
	for i, p := range s.pulses {
		lvl := levelToggle
		if i == 0 {
			lvl = s.flags
		}
		b.Pulses = append(b.Pulses, p)
		b.Levels = append(b.Levels, lvl)
	}
}

// decodeGeneralizedData expands a 0x19 block's symbol tables into an
// explicit pulse list with per-pulse level policy.
func decodeGeneralizedData(b *TapeBlock, body []byte) error {
	r := &tzxReader{data: body}
	b.PauseMs = r.u16()
	totp := r.u32()
	npp := r.u8()
	asp := r.u8()
	if asp == 0 {
		asp = 256
	}
	totd := r.u32()
	npd := r.u8()
	asd := r.u8()
	if asd == 0 {
		asd = 256
	}

	if totp > 0 {
		syms := readSymbols(r, asp, npp)
		for range totp {
			sym := r.u8()
			rep := r.u16()
			if r.short {
				return ErrTruncatedBlock
			}
			if sym >= len(syms) {
				return fmt.Errorf("pilot symbol %d out of range", sym)
			}
			for range rep {
				emitSymbol(b, syms[sym])
			}
		}
	}
	if totd > 0 {
		syms := readSymbols(r, asd, npd)
		nb := bits.Len(uint(asd - 1))
		stream := r.bytes((nb*totd + 7) / 8)
		if r.short {
			return ErrTruncatedBlock
		}
		bit := 0
		for range totd {
			sym := 0
			for range nb {
				sym <<= 1
				if stream[bit>>3]&(0x80>>(bit&7)) != 0 {
					sym |= 1
				}
				bit++
			}
			if sym >= len(syms) {
				return fmt.Errorf("data symbol %d out of range", sym)
			}
			emitSymbol(b, syms[sym])
		}
	}
	if r.short {
		return ErrTruncatedBlock
	}
	return nil
}

// encodeStandardBlock renders data as a TZX 0x10 block.
func encodeStandardBlock(data []byte, pauseMs int) []byte {
	out := make([]byte, 5, 5+len(data))
	out[0] = TZXStandardSpeed
	binary.LittleEndian.PutUint16(out[1:], uint16(pauseMs))
	binary.LittleEndian.PutUint16(out[3:], uint16(len(data)))
	return append(out, data...)
}

func tzxHeader() []byte {
	return append([]byte(tzxSignature), tzxVersionMajor, tzxVersionMinor)
}

// EncodeTZX writes a TZX image holding the given blocks.
func EncodeTZX(w io.Writer, blocks []*TapeBlock) error {
	var buf bytes.Buffer
	buf.Write(tzxHeader())
	for i, b := range blocks {
		if len(b.Raw) == 0 {
			return &TapeError{Operation: "encode", Offset: buf.Len(), Details: fmt.Sprintf("block %d has no TZX form", i)}
		}
		buf.Write(b.Raw)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ExtractTZXBlock writes a one-block TZX image of blocks[index] to w.
func ExtractTZXBlock(w io.Writer, blocks []*TapeBlock, index int) error {
	if index < 0 || index >= len(blocks) {
		return &TapeError{Operation: "extract", Details: fmt.Sprintf("block %d of %d", index, len(blocks))}
	}
	return EncodeTZX(w, blocks[index:index+1])
}
