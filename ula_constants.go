// ula_constants.go - ZX Spectrum ULA memory layout, raster timing and palette

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
ula_constants.go - ZX Spectrum ULA Constants

Display Specifications:
  - Resolution: 256x192 pixels (32x24 character cells of 8x8 pixels)
  - Border: 32 pixels on each side, 320x256 total frame
  - Colors: 15 unique colors (8 base + 8 bright, but black can't brighten)
  - VRAM: 6144 bytes bitmap + 768 bytes attributes at 0x4000

Raster Timing (48K machine at 3.5MHz):
  - 224 T-states per line, 312 lines per frame (69888 T-states, ~50.08Hz)
  - Maskable interrupt raised at the start of line 0
  - Lines 32-287 are visible: 32 border, 192 display (64-255), 32 border
  - Frame published after line 311

Attribute Byte Format:
  Bit 7: FLASH (swap INK/PAPER, toggles every 16 frames)
  Bit 6: BRIGHT (intensify both INK and PAPER)
  Bits 5-3: PAPER (background color, 0-7)
  Bits 2-0: INK (foreground color, 0-7)
*/

package main

// =============================================================================
// ULA VRAM Layout
// =============================================================================

const (
	// VRAM base address (authentic ZX Spectrum location)
	ULA_VRAM_BASE = 0x4000

	// Bitmap section: 6144 bytes (256x192 / 8)
	ULA_BITMAP_SIZE = 6144

	// Attribute section offset from VRAM base
	ULA_ATTR_OFFSET = 0x1800

	// Attribute section: 768 bytes (32x24 cells)
	ULA_ATTR_SIZE = 768

	ULA_VRAM_SIZE = ULA_BITMAP_SIZE + ULA_ATTR_SIZE // 6912 bytes
)

// =============================================================================
// ULA Display Dimensions
// =============================================================================

const (
	ULA_DISPLAY_WIDTH  = 256
	ULA_DISPLAY_HEIGHT = 192

	ULA_CELL_WIDTH  = 8
	ULA_CELL_HEIGHT = 8
	ULA_CELLS_X     = 32 // 256 / 8
	ULA_CELLS_Y     = 24 // 192 / 8

	ULA_BORDER_LEFT   = 32
	ULA_BORDER_RIGHT  = 32
	ULA_BORDER_TOP    = 32
	ULA_BORDER_BOTTOM = 32

	ULA_FRAME_WIDTH  = ULA_DISPLAY_WIDTH + ULA_BORDER_LEFT + ULA_BORDER_RIGHT  // 320
	ULA_FRAME_HEIGHT = ULA_DISPLAY_HEIGHT + ULA_BORDER_TOP + ULA_BORDER_BOTTOM // 256
)

// =============================================================================
// ULA Raster Timing
// =============================================================================

const (
	ULA_CYCLES_PER_LINE  = 224
	ULA_LINES_PER_FRAME  = 312
	ULA_CYCLES_PER_FRAME = ULA_CYCLES_PER_LINE * ULA_LINES_PER_FRAME // 69888

	// First raster line shown in the frame (top border starts here)
	ULA_FIRST_VISIBLE_LINE = 32

	// First raster line of the 256x192 display area
	ULA_FIRST_DISPLAY_LINE = ULA_FIRST_VISIBLE_LINE + ULA_BORDER_TOP // 64

	// Line whose completion publishes the frame
	ULA_LAST_LINE = ULA_LINES_PER_FRAME - 1

	// Flash toggle interval in frames
	ULA_FLASH_FRAMES = 16

	// Standard 48K clock
	SPECTRUM_CLOCK_HZ = 3_500_000
)

// =============================================================================
// Z80 Port Mapping
// =============================================================================

const (
	// Writing to port 0xFE: bits 0-2 = border color, bit 3 = MIC, bit 4 = EAR
	Z80_ULA_PORT = 0xFE
)

// =============================================================================
// Color Palette
// =============================================================================

// Normal colors (RGB values when BRIGHT bit is 0)
var ULAColorNormal = [8][3]uint8{
	{0, 0, 0},       // 0: Black
	{0, 0, 205},     // 1: Blue
	{205, 0, 0},     // 2: Red
	{205, 0, 205},   // 3: Magenta
	{0, 205, 0},     // 4: Green
	{0, 205, 205},   // 5: Cyan
	{205, 205, 0},   // 6: Yellow
	{205, 205, 205}, // 7: White
}

// Bright colors (RGB values when BRIGHT bit is 1)
var ULAColorBright = [8][3]uint8{
	{0, 0, 0},       // 0: Black (same, can't brighten)
	{0, 0, 255},     // 1: Bright Blue
	{255, 0, 0},     // 2: Bright Red
	{255, 0, 255},   // 3: Bright Magenta
	{0, 255, 0},     // 4: Bright Green
	{0, 255, 255},   // 5: Bright Cyan
	{255, 255, 0},   // 6: Bright Yellow
	{255, 255, 255}, // 7: Bright White
}
