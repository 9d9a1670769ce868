// video_ula.go - ZX Spectrum ULA raster line renderer

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
video_ula.go - ZX Spectrum ULA Raster

The ULA draws the picture one raster line at a time from the scheduler's
video task, reading VRAM and the border colour as they are at that moment.
Border stripes from tape loaders and mid-frame attribute changes therefore
show up on the lines where the program made them.

Memory Layout:
- Bitmap: 6144 bytes at 0x4000-0x57FF (non-linear Y addressing)
- Attributes: 768 bytes at 0x5800-0x5AFF (32x24 cells, linear)

Signal Flow:
1. Video task calls RenderLine for each of the 312 raster lines
2. Visible lines are written into the back buffer
3. EndFrame swaps the back buffer into the shared slot and hands it to the sink
4. Readers collect the newest frame with GetFrame
*/

package main

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// FrameSink receives each completed 320x256 RGBA frame. It is called on the
// scheduler goroutine and must copy the pixels before returning.
type FrameSink interface {
	UpdateFrame(buffer []byte) error
}

// ULAEngine renders raster lines from Spectrum memory.
type ULAEngine struct {
	mem   *SpectrumMemory
	ports *ULAPorts

	// Flash state for FLASH attribute
	flashState   bool
	flashCounter int

	// Pre-computed row start addresses for the non-linear ZX Spectrum addressing
	rowStartAddr [ULA_DISPLAY_HEIGHT]uint16

	// Pre-built uint32 color lookup: [0..7] = normal, [8..15] = bright
	colorU32 [16]uint32

	// Triple-buffered frame output for lock-free GetFrame()
	frameBufs  [3][]byte
	writeIdx   int
	sharedIdx  atomic.Int32
	readingIdx int
	readMu     sync.Mutex
	fresh      atomic.Bool // shared slot holds a frame newer than readingIdx

	frames atomic.Uint64

	sinkMu sync.Mutex
	sink   FrameSink
}

func NewULAEngine(mem *SpectrumMemory, ports *ULAPorts) *ULAEngine {
	ula := &ULAEngine{
		mem:   mem,
		ports: ports,
	}

	for i := range 8 {
		c := ULAColorNormal[i]
		ula.colorU32[i] = uint32(c[0]) | uint32(c[1])<<8 | uint32(c[2])<<16 | 0xFF000000
		c = ULAColorBright[i]
		ula.colorU32[8+i] = uint32(c[0]) | uint32(c[1])<<8 | uint32(c[2])<<16 | 0xFF000000
	}

	for y := range ULA_DISPLAY_HEIGHT {
		ula.rowStartAddr[y] = GetBitmapAddress(y, 0)
	}

	bufSize := ULA_FRAME_WIDTH * ULA_FRAME_HEIGHT * 4
	for i := range ula.frameBufs {
		ula.frameBufs[i] = make([]byte, bufSize)
	}
	ula.writeIdx = 0
	ula.sharedIdx.Store(1)
	ula.readingIdx = 2

	return ula
}

// SetSink attaches the display that receives published frames.
func (u *ULAEngine) SetSink(s FrameSink) {
	u.sinkMu.Lock()
	u.sink = s
	u.sinkMu.Unlock()
}

// GetBitmapAddress calculates the VRAM offset for a pixel coordinate.
// Address = ((y & 0xC0) << 5) + ((y & 0x07) << 8) + ((y & 0x38) << 2) + (x >> 3)
func GetBitmapAddress(y, x int) uint16 {
	highY := (y & 0xC0) << 5 // Top 2 bits of Y * 32
	lowY := (y & 0x07) << 8  // Bottom 3 bits of Y * 256
	midY := (y & 0x38) << 2  // Middle 3 bits of Y * 4
	return uint16(highY + lowY + midY + x>>3)
}

// GetAttributeAddress returns the VRAM offset of a cell's attribute byte.
func GetAttributeAddress(cellY, cellX int) uint16 {
	return uint16(ULA_ATTR_OFFSET + cellY*ULA_CELLS_X + cellX)
}

// ParseAttribute extracts INK, PAPER, BRIGHT, and FLASH from an attribute byte.
func ParseAttribute(attr uint8) (ink, paper uint8, bright, flash bool) {
	ink = attr & 0x07
	paper = (attr >> 3) & 0x07
	bright = (attr & 0x40) != 0
	flash = (attr & 0x80) != 0
	return
}

func (u *ULAEngine) fillBorder(row []byte, c uint32) {
	for i := 0; i < len(row); i += 4 {
		*(*uint32)(unsafe.Pointer(&row[i])) = c
	}
}

// RenderLine draws raster line 0-311. Lines outside the visible band are
// ignored.
func (u *ULAEngine) RenderLine(line int) {
	frameY := line - ULA_FIRST_VISIBLE_LINE
	if frameY < 0 || frameY >= ULA_FRAME_HEIGHT {
		return
	}
	rowBytes := ULA_FRAME_WIDTH * 4
	buf := u.frameBufs[u.writeIdx]
	row := buf[frameY*rowBytes : (frameY+1)*rowBytes]

	var border byte
	if u.ports != nil {
		border = u.ports.Border()
	}
	borderU32 := u.colorU32[border&0x07]

	screenY := line - ULA_FIRST_DISPLAY_LINE
	if screenY < 0 || screenY >= ULA_DISPLAY_HEIGHT || u.mem == nil {
		u.fillBorder(row, borderU32)
		return
	}
	u.fillBorder(row[:ULA_BORDER_LEFT*4], borderU32)
	u.fillBorder(row[(ULA_BORDER_LEFT+ULA_DISPLAY_WIDTH)*4:], borderU32)

	vram := u.mem.Bytes()[ULA_VRAM_BASE : ULA_VRAM_BASE+ULA_VRAM_SIZE]
	rowAddr := u.rowStartAddr[screenY]
	attrRowBase := GetAttributeAddress(screenY>>3, 0)

	for cellX := range ULA_CELLS_X {
		bitmapByte := vram[rowAddr+uint16(cellX)]
		ink, paper, bright, flash := ParseAttribute(vram[attrRowBase+uint16(cellX)])

		fg, bg := ink, paper
		if flash && u.flashState {
			fg, bg = bg, fg
		}
		var brightOff uint8
		if bright {
			brightOff = 8
		}
		fgU32 := u.colorU32[brightOff+fg]
		bgU32 := u.colorU32[brightOff+bg]

		pixelBase := (ULA_BORDER_LEFT + cellX*8) * 4
		for bit := 7; bit >= 0; bit-- {
			px := pixelBase + (7-bit)*4
			if (bitmapByte>>bit)&1 != 0 {
				*(*uint32)(unsafe.Pointer(&row[px])) = fgU32
			} else {
				*(*uint32)(unsafe.Pointer(&row[px])) = bgU32
			}
		}
	}
}

// EndFrame publishes the back buffer, advances the flash timer and hands
// the frame to the sink.
func (u *ULAEngine) EndFrame() {
	frame := u.frameBufs[u.writeIdx]
	u.sinkMu.Lock()
	sink := u.sink
	u.sinkMu.Unlock()
	if sink != nil {
		_ = sink.UpdateFrame(frame)
	}
	u.writeIdx = int(u.sharedIdx.Swap(int32(u.writeIdx)))
	u.fresh.Store(true)
	u.frames.Add(1)

	u.flashCounter++
	if u.flashCounter >= ULA_FLASH_FRAMES {
		u.flashCounter = 0
		u.flashState = !u.flashState
	}
}

// RenderFrame draws every line and publishes the result. Used when the
// picture is needed outside the raster task, such as after a snapshot load.
func (u *ULAEngine) RenderFrame() []byte {
	for line := range ULA_LINES_PER_FRAME {
		u.RenderLine(line)
	}
	u.EndFrame()
	return u.GetFrame()
}

// GetFrame returns the newest published frame via lock-free triple-buffer
// swap. Callers must not keep the slice past their next GetFrame call.
func (u *ULAEngine) GetFrame() []byte {
	u.readMu.Lock()
	defer u.readMu.Unlock()
	if u.fresh.Swap(false) {
		u.readingIdx = int(u.sharedIdx.Swap(int32(u.readingIdx)))
	}
	return u.frameBufs[u.readingIdx]
}

// FrameCount is the number of frames published since construction.
func (u *ULAEngine) FrameCount() uint64 {
	return u.frames.Load()
}

func (u *ULAEngine) GetDimensions() (w, h int) {
	return ULA_FRAME_WIDTH, ULA_FRAME_HEIGHT
}

func (u *ULAEngine) Reset() {
	u.flashState = false
	u.flashCounter = 0
}
