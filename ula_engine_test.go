// ula_engine_test.go - ZX Spectrum ULA raster test suite

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

package main

import (
	"testing"
)

type captureSink struct {
	frames int
	last   []byte
}

func (c *captureSink) UpdateFrame(buf []byte) error {
	c.frames++
	c.last = append(c.last[:0], buf...)
	return nil
}

func newTestULA() (*ULAEngine, *SpectrumMemory, *ULAPorts) {
	mem := NewSpectrumMemory()
	ports := NewULAPorts(NewKeyboardMatrix(), nil)
	return NewULAEngine(mem, ports), mem, ports
}

func framePixel(frame []byte, x, y int) (r, g, b, a uint8) {
	off := (y*ULA_FRAME_WIDTH + x) * 4
	return frame[off], frame[off+1], frame[off+2], frame[off+3]
}

// TestULA_DefaultState tests default state after construction
func TestULA_DefaultState(t *testing.T) {
	ula, _, _ := newTestULA()

	if ula.flashState {
		t.Error("Expected flashState to be false initially")
	}
	if ula.flashCounter != 0 {
		t.Errorf("Expected flashCounter=0, got %d", ula.flashCounter)
	}
	if w, h := ula.GetDimensions(); w != 320 || h != 256 {
		t.Errorf("Expected 320x256, got %dx%d", w, h)
	}
}

// TestULA_BitmapAddress_Formula tests the non-linear screen addressing
func TestULA_BitmapAddress_Formula(t *testing.T) {
	testCases := []struct {
		y, x         int
		expectedAddr uint16
	}{
		{0, 0, 0x0000},     // Top-left
		{0, 8, 0x0001},     // Second byte, first row
		{1, 0, 0x0100},     // y=1 shifts by 256
		{8, 0, 0x0020},     // y=8 shifts by 32
		{64, 0, 0x0800},    // y=64 shifts by 2048
		{191, 248, 0x17FF}, // Bottom-right
	}

	for _, tc := range testCases {
		addr := GetBitmapAddress(tc.y, tc.x)
		if addr != tc.expectedAddr {
			t.Errorf("GetBitmapAddress(%d, %d) = 0x%04X, expected 0x%04X",
				tc.y, tc.x, addr, tc.expectedAddr)
		}
	}
}

// TestULA_AttributeAddress tests linear attribute addressing
func TestULA_AttributeAddress(t *testing.T) {
	testCases := []struct {
		y, x         int
		expectedAddr uint16
	}{
		{0, 0, 0x1800},
		{0, 31, 0x181F},
		{1, 0, 0x1820},
		{23, 31, 0x1AFF},
	}

	for _, tc := range testCases {
		addr := GetAttributeAddress(tc.y, tc.x)
		if addr != tc.expectedAddr {
			t.Errorf("GetAttributeAddress(%d, %d) = 0x%04X, expected 0x%04X",
				tc.y, tc.x, addr, tc.expectedAddr)
		}
	}
}

// TestULA_AttributeParsing tests INK/PAPER/BRIGHT/FLASH extraction
func TestULA_AttributeParsing(t *testing.T) {
	testCases := []struct {
		attr          uint8
		ink, paper    uint8
		bright, flash bool
	}{
		{0x00, 0, 0, false, false},
		{0x07, 7, 0, false, false},
		{0x38, 0, 7, false, false},
		{0x47, 7, 0, true, false},
		{0x87, 7, 0, false, true},
		{0xFF, 7, 7, true, true},
	}

	for _, tc := range testCases {
		ink, paper, bright, flash := ParseAttribute(tc.attr)
		if ink != tc.ink || paper != tc.paper || bright != tc.bright || flash != tc.flash {
			t.Errorf("ParseAttribute(0x%02X) = %d %d %v %v, expected %d %d %v %v",
				tc.attr, ink, paper, bright, flash, tc.ink, tc.paper, tc.bright, tc.flash)
		}
	}
}

// TestULA_Render_Border tests border fill from the port 0xFE colour
func TestULA_Render_Border(t *testing.T) {
	ula, _, ports := newTestULA()
	ports.Out(0xFE, 1)

	frame := ula.RenderFrame()

	r, g, b, a := framePixel(frame, 0, 0)
	if r != 0 || g != 0 || b != 205 || a != 255 {
		t.Errorf("Border pixel at (0,0): got RGBA(%d,%d,%d,%d), expected (0,0,205,255)", r, g, b, a)
	}
	r, g, b, _ = framePixel(frame, 319, 100)
	if r != 0 || g != 0 || b != 205 {
		t.Errorf("Right border pixel: got RGB(%d,%d,%d)", r, g, b)
	}
}

// TestULA_Render_BorderPerLine tests that a border change between lines
// shows up as a stripe
func TestULA_Render_BorderPerLine(t *testing.T) {
	ula, _, ports := newTestULA()

	for line := range ULA_LINES_PER_FRAME {
		if line == ULA_FIRST_VISIBLE_LINE+10 {
			ports.Out(0xFE, 2)
		}
		ula.RenderLine(line)
	}
	ula.EndFrame()
	frame := ula.GetFrame()

	if r, _, _, _ := framePixel(frame, 0, 9); r != 0 {
		t.Errorf("Line 9 should be black border, red=%d", r)
	}
	if r, _, _, _ := framePixel(frame, 0, 10); r != 205 {
		t.Errorf("Line 10 should be red border, red=%d", r)
	}
}

// TestULA_Render_SinglePixel tests bitmap + attribute rendering
func TestULA_Render_SinglePixel(t *testing.T) {
	ula, mem, _ := newTestULA()

	mem.Write(ULA_VRAM_BASE, 0x80)
	// FBPPPIII = 0_1_000_111: bright white ink on black paper
	mem.Write(ULA_VRAM_BASE+ULA_ATTR_OFFSET, 0x47)

	frame := ula.RenderFrame()

	r, g, b, _ := framePixel(frame, ULA_BORDER_LEFT, ULA_BORDER_TOP)
	if r != 255 || g != 255 || b != 255 {
		t.Errorf("Ink pixel: got RGB(%d,%d,%d), expected (255,255,255)", r, g, b)
	}
	r, g, b, _ = framePixel(frame, ULA_BORDER_LEFT+1, ULA_BORDER_TOP)
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("Paper pixel: got RGB(%d,%d,%d), expected (0,0,0)", r, g, b)
	}
}

// TestULA_Render_ThirdRow tests the interleaved addressing reaches the
// right raster line
func TestULA_Render_ThirdRow(t *testing.T) {
	ula, mem, _ := newTestULA()

	// Pixel row 9 lives at 0x4120 (char row 1, scan line 1)
	mem.Write(0x4120, 0xFF)
	mem.Write(0x5820, 0x38) // black ink on white paper

	frame := ula.RenderFrame()
	if r, _, _, _ := framePixel(frame, ULA_BORDER_LEFT, ULA_BORDER_TOP+9); r != 0 {
		t.Errorf("Row 9 ink should be black, red=%d", r)
	}
	if r, _, _, _ := framePixel(frame, ULA_BORDER_LEFT, ULA_BORDER_TOP+8); r != 205 {
		t.Errorf("Row 8 should be white paper, red=%d", r)
	}
}

// TestULA_Render_Flash tests INK/PAPER swap during flash
func TestULA_Render_Flash(t *testing.T) {
	ula, mem, _ := newTestULA()

	mem.Write(ULA_VRAM_BASE, 0x80)
	// FBPPPIII = 1_0_000_111: flashing white ink on black paper
	mem.Write(ULA_VRAM_BASE+ULA_ATTR_OFFSET, 0x87)

	ula.flashState = false
	frame1 := ula.RenderFrame()
	r1, g1, b1, _ := framePixel(frame1, ULA_BORDER_LEFT, ULA_BORDER_TOP)
	if r1 != 205 || g1 != 205 || b1 != 205 {
		t.Errorf("Flash off ink: got RGB(%d,%d,%d), expected (205,205,205)", r1, g1, b1)
	}

	ula.flashState = true
	ula.flashCounter = 0
	frame2 := ula.RenderFrame()
	r2, g2, b2, _ := framePixel(frame2, ULA_BORDER_LEFT, ULA_BORDER_TOP)
	if r2 != 0 || g2 != 0 || b2 != 0 {
		t.Errorf("Flash on ink->paper: got RGB(%d,%d,%d), expected (0,0,0)", r2, g2, b2)
	}
}

// TestULA_FlashTiming tests 16 frames = toggle
func TestULA_FlashTiming(t *testing.T) {
	ula, _, _ := newTestULA()

	for i := 0; i < ULA_FLASH_FRAMES-1; i++ {
		ula.EndFrame()
	}
	if ula.flashState {
		t.Error("flashState should still be false after 15 frames")
	}
	ula.EndFrame()
	if !ula.flashState {
		t.Error("flashState should be true after 16 frames")
	}
	for i := 0; i < ULA_FLASH_FRAMES; i++ {
		ula.EndFrame()
	}
	if ula.flashState {
		t.Error("flashState should be false after 32 frames")
	}
}

// TestULA_GetFrame tests the triple buffer hand-off
func TestULA_GetFrame(t *testing.T) {
	ula, _, ports := newTestULA()

	ports.Out(0xFE, 4)
	first := ula.RenderFrame()
	if len(first) != ULA_FRAME_WIDTH*ULA_FRAME_HEIGHT*4 {
		t.Fatalf("Frame size %d", len(first))
	}
	if _, g, _, _ := framePixel(first, 0, 0); g != 205 {
		t.Fatalf("Expected green border, green=%d", g)
	}

	// No new frame: the reader keeps its buffer.
	again := ula.GetFrame()
	if &again[0] != &first[0] {
		t.Error("GetFrame without a new frame returned a different buffer")
	}
	if ula.FrameCount() != 1 {
		t.Errorf("FrameCount = %d, expected 1", ula.FrameCount())
	}
}

// TestULA_Sink tests frames reach the attached sink
func TestULA_Sink(t *testing.T) {
	ula, _, ports := newTestULA()
	sink := &captureSink{}
	ula.SetSink(sink)

	ports.Out(0xFE, 6)
	ula.RenderFrame()
	ula.RenderFrame()

	if sink.frames != 2 {
		t.Fatalf("sink got %d frames, expected 2", sink.frames)
	}
	if r, g, _, _ := framePixel(sink.last, 5, 5); r != 205 || g != 205 {
		t.Errorf("sink frame border RGB(%d,%d,_), expected yellow", r, g)
	}
}
