// tape_tap.go - TAP container: length-prefixed standard-speed blocks

package main

import (
	"bytes"
	"encoding/binary"
	"io"
)

// DecodeTAP decodes blocks from a TAP image starting at offset, with the
// same resume semantics as DecodeTZX. TAP has no header and no block ids.
func DecodeTAP(data []byte, offset int) ([]*TapeBlock, int) {
	var blocks []*TapeBlock
	for offset+2 <= len(data) {
		n := int(binary.LittleEndian.Uint16(data[offset:]))
		if offset+2+n > len(data) {
			break
		}
		payload := data[offset+2 : offset+2+n : offset+2+n]
		blocks = append(blocks, NewStandardBlock(payload, TapeStandardPauseMs))
		offset += 2 + n
	}
	return blocks, offset
}

// LoadTAP decodes a complete TAP image.
func LoadTAP(data []byte) ([]*TapeBlock, error) {
	blocks, off := DecodeTAP(data, 0)
	if off < len(data) {
		return blocks, &TapeError{Operation: "load", Offset: off, Details: "incomplete TAP block", Err: ErrTruncatedBlock}
	}
	return blocks, nil
}

// EncodeTAP writes blocks carrying a data payload as TAP records. Blocks
// with no data (tones, pauses, information) have no TAP form and are
// skipped.
func EncodeTAP(w io.Writer, blocks []*TapeBlock) error {
	var buf bytes.Buffer
	var hdr [2]byte
	for _, b := range blocks {
		if len(b.Data) == 0 {
			continue
		}
		binary.LittleEndian.PutUint16(hdr[:], uint16(len(b.Data)))
		buf.Write(hdr[:])
		buf.Write(b.Data)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// tapChecksum is the XOR of flag, payload and checksum bytes; a good block
// sums to zero.
func tapChecksum(data []byte) byte {
	var x byte
	for _, b := range data {
		x ^= b
	}
	return x
}
