// tape_pcm.go - Tape images from WAV/MP3 recordings and WAV output

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

const (
	// Fraction of the peak amplitude a sample must cross to flip the
	// detected level. Keeps noise around zero from producing edges.
	pcmHysteresis = 0.15

	pcmOutputRate  = 44100
	pcmOutputDepth = 16
	pcmOutputPeak  = 24000
)

// pcmData is mono sample data, taken from the left channel of stereo
// sources.
type pcmData struct {
	sampleRate int
	data       []float32
}

func readPCM(r io.ReadSeeker, name string) (pcmData, error) {
	p := pcmData{}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		dec := wav.NewDecoder(r)
		if dec == nil || !dec.IsValidFile() {
			return p, errors.New("wav: not a valid wav file")
		}
		buf, err := dec.FullPCMBuffer()
		if err != nil {
			return p, fmt.Errorf("wav: %w", err)
		}
		floatBuf := buf.AsFloat32Buffer()
		chans := int(dec.NumChans)
		if chans < 1 {
			chans = 1
		}
		p.data = make([]float32, 0, len(floatBuf.Data)/chans)
		for i := 0; i < len(floatBuf.Data); i += chans {
			p.data = append(p.data, floatBuf.Data[i])
		}
		p.sampleRate = int(dec.SampleRate)

	case ".mp3":
		dec, err := mp3.NewDecoder(r)
		if err != nil {
			return p, fmt.Errorf("mp3: %w", err)
		}
		// go-mp3 always produces 16-bit little endian stereo
		chunk := make([]byte, 4096)
		for {
			n, err := dec.Read(chunk)
			for i := 0; i+3 < n; i += 4 {
				p.data = append(p.data, float32(int16(binary.LittleEndian.Uint16(chunk[i:]))))
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return p, fmt.Errorf("mp3: %w", err)
			}
		}
		p.sampleRate = dec.SampleRate()

	default:
		return p, fmt.Errorf("unsupported recording format %q", filepath.Ext(name))
	}

	if p.sampleRate <= 0 {
		return p, errors.New("recording has no sample rate")
	}
	return p, nil
}

// levels converts samples to a 1-bit signal with hysteresis around zero.
func (p pcmData) levels() []bool {
	var peak float64
	for _, s := range p.data {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	out := make([]bool, len(p.data))
	if peak == 0 {
		return out
	}
	th := float32(peak * pcmHysteresis)
	high := false
	for i, s := range p.data {
		if high && s < -th {
			high = false
		} else if !high && s > th {
			high = true
		}
		out[i] = high
	}
	return out
}

// DecodePCM loads a WAV or MP3 recording of a tape as a direct recording
// block, one bit per sample.
func DecodePCM(r io.ReadSeeker, name string, clockHz int) (*TapeBlock, error) {
	p, err := readPCM(r, name)
	if err != nil {
		return nil, &TapeError{Operation: "decode", Details: name, Err: err}
	}
	lv := p.levels()
	if len(lv) == 0 {
		return nil, &TapeError{Operation: "decode", Details: name + ": no samples"}
	}

	b := &TapeBlock{
		ID:           TZXDirectRecording,
		SampleCycles: int(math.Round(float64(clockHz) / float64(p.sampleRate))),
		Data:         make([]byte, (len(lv)+7)/8),
		UsedBits:     (len(lv)-1)%8 + 1,
		Description:  filepath.Base(name),
	}
	if b.SampleCycles < 1 {
		b.SampleCycles = 1
	}
	for i, high := range lv {
		if high {
			b.Data[i>>3] |= 0x80 >> (i & 7)
		}
	}
	b.Raw = encodeDirectRecording(b)
	return b, nil
}

func encodeDirectRecording(b *TapeBlock) []byte {
	out := make([]byte, 9, 9+len(b.Data))
	out[0] = TZXDirectRecording
	binary.LittleEndian.PutUint16(out[1:], uint16(b.SampleCycles))
	binary.LittleEndian.PutUint16(out[3:], uint16(b.PauseMs))
	out[5] = byte(b.UsedBits)
	n := len(b.Data)
	out[6], out[7], out[8] = byte(n), byte(n>>8), byte(n>>16)
	return append(out, b.Data...)
}

// EncodeWAV renders the blocks' pulse streams as a 16-bit mono WAV.
func EncodeWAV(w io.WriteSeeker, blocks []*TapeBlock, clockHz int) error {
	enc := wav.NewEncoder(w, pcmOutputRate, pcmOutputDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: pcmOutputRate},
		SourceBitDepth: pcmOutputDepth,
	}

	// Cycle position of the next sample, kept as an integer fraction.
	var cycle, next uint64
	var rem uint64
	high := false
	emit := func(until uint64) error {
		for next < until {
			v := -pcmOutputPeak
			if high {
				v = pcmOutputPeak
			}
			buf.Data = append(buf.Data, v)
			step := uint64(clockHz) + rem
			next += step / pcmOutputRate
			rem = step % pcmOutputRate
			if len(buf.Data) >= 4096 {
				if err := enc.Write(buf); err != nil {
					return err
				}
				buf.Data = buf.Data[:0]
			}
		}
		return nil
	}

	perMs := tapeCyclesPerMs(clockHz)
	for _, b := range blocks {
		for p := range b.PulseStream(perMs) {
			if p.stop {
				break
			}
			high = applyLevel(high, p.level)
			cycle += uint64(p.cycles)
			if err := emit(cycle); err != nil {
				return err
			}
		}
	}
	if len(buf.Data) > 0 {
		if err := enc.Write(buf); err != nil {
			return err
		}
	}
	return enc.Close()
}

func applyLevel(high bool, l tapeLevel) bool {
	switch l {
	case levelKeep:
		return high
	case levelLow:
		return false
	case levelHigh:
		return true
	default:
		return !high
	}
}
