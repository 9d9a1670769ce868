// ula_keyboard.go - ZX Spectrum keyboard matrix

package main

import (
	"strings"
	"sync"
	"sync/atomic"
)

// SpectrumKey identifies one switch of the 8x5 matrix: row in bits 3-5,
// column in bits 0-2.
type SpectrumKey uint8

func spectrumKey(row, col int) SpectrumKey { return SpectrumKey(row<<3 | col) }

func (k SpectrumKey) Row() int { return int(k>>3) & 7 }
func (k SpectrumKey) Col() int { return int(k) & 7 }

// Rows in half-row address order: row 0 answers when address bit 8 is low,
// row 7 when bit 15 is low.
var (
	KeyCaps  = spectrumKey(0, 0)
	KeySym   = spectrumKey(7, 1)
	KeyEnter = spectrumKey(6, 0)
	KeySpace = spectrumKey(7, 0)
)

var keyboardLayout = [8]string{
	"\x00ZXCV",
	"ASDFG",
	"QWERT",
	"12345",
	"09876",
	"POIUY",
	"\rLKJH",
	" \x00MNB",
}

var spectrumKeyNames = buildKeyNames()

func buildKeyNames() map[string]SpectrumKey {
	names := map[string]SpectrumKey{
		"CAPS":   KeyCaps,
		"SHIFT":  KeyCaps,
		"SYM":    KeySym,
		"SYMBOL": KeySym,
		"ENTER":  KeyEnter,
		"SPACE":  KeySpace,
	}
	for row, keys := range keyboardLayout {
		for col := 0; col < len(keys); col++ {
			if c := keys[col]; c > ' ' {
				names[string(c)] = spectrumKey(row, col)
			}
		}
	}
	return names
}

// LookupKey resolves a key name ("A", "7", "ENTER", "CAPS", "SYM", "SPACE")
// case-insensitively.
func LookupKey(name string) (SpectrumKey, bool) {
	k, ok := spectrumKeyNames[strings.ToUpper(strings.TrimSpace(name))]
	return k, ok
}

// KeyboardMatrix holds which keys are down. Hosts press and release from
// their own goroutines while the CPU reads rows through port 0xFE.
type KeyboardMatrix struct {
	rows [8]atomic.Uint32 // bit set = key down
}

func NewKeyboardMatrix() *KeyboardMatrix {
	return &KeyboardMatrix{}
}

func (m *KeyboardMatrix) Press(k SpectrumKey) {
	r := &m.rows[k.Row()]
	for {
		old := r.Load()
		if r.CompareAndSwap(old, old|1<<k.Col()) {
			return
		}
	}
}

func (m *KeyboardMatrix) Release(k SpectrumKey) {
	r := &m.rows[k.Row()]
	for {
		old := r.Load()
		if r.CompareAndSwap(old, old&^(1<<k.Col())) {
			return
		}
	}
}

func (m *KeyboardMatrix) Set(k SpectrumKey, down bool) {
	if down {
		m.Press(k)
	} else {
		m.Release(k)
	}
}

func (m *KeyboardMatrix) ReleaseAll() {
	for i := range m.rows {
		m.rows[i].Store(0)
	}
}

func (m *KeyboardMatrix) Pressed(k SpectrumKey) bool {
	return m.rows[k.Row()].Load()&(1<<k.Col()) != 0
}

// Read returns the five active-low column bits for every row whose select
// bit in high is clear, ANDed together. No row selected reads 0x1F.
func (m *KeyboardMatrix) Read(high byte) byte {
	v := byte(0x1F)
	for row := 0; row < 8; row++ {
		if high&(1<<row) == 0 {
			v &^= byte(m.rows[row].Load()) & 0x1F
		}
	}
	return v
}

// keyChord is the set of keys held down to produce one character.
type keyChord []SpectrumKey

// chordForRune maps printable ASCII to the key presses that produce it in
// K/L mode. Characters with no single-chord equivalent return nil.
func chordForRune(r rune) keyChord {
	switch {
	case r == '\n' || r == '\r':
		return keyChord{KeyEnter}
	case r == ' ':
		return keyChord{KeySpace}
	case r >= 'a' && r <= 'z':
		k, _ := LookupKey(string(r))
		return keyChord{k}
	case r >= 'A' && r <= 'Z':
		k, _ := LookupKey(string(r))
		return keyChord{KeyCaps, k}
	case r >= '0' && r <= '9':
		k, _ := LookupKey(string(r))
		return keyChord{k}
	case r == '\b' || r == 0x7F:
		k, _ := LookupKey("0")
		return keyChord{KeyCaps, k}
	}
	if name, ok := symbolShiftKeys[r]; ok {
		k, _ := LookupKey(name)
		return keyChord{KeySym, k}
	}
	return nil
}

var symbolShiftKeys = map[rune]string{
	'!': "1", '@': "2", '#': "3", '$': "4", '%': "5",
	'&': "6", '\'': "7", '(': "8", ')': "9", '_': "0",
	'<': "R", '>': "T", ';': "O", '"': "P", '^': "H",
	'-': "J", '+': "K", '=': "L", ':': "Z", '?': "C",
	'/': "V", '*': "B", ',': "N", '.': "M",
}

// Hold times in frames; the ROM scans the keyboard once per frame interrupt
// and needs a released frame between repeats of the same key.
const (
	keyTypeHoldFrames    = 3
	keyTypeReleaseFrames = 2
)

// KeyTyper turns queued text into timed press and release steps. Feed it
// from any goroutine; Tick is called once per frame on the scheduler thread.
type KeyTyper struct {
	mu      sync.Mutex
	queue   []keyChord
	matrix  *KeyboardMatrix
	current keyChord
	frames  int
	held    bool
}

func NewKeyTyper(m *KeyboardMatrix) *KeyTyper {
	return &KeyTyper{matrix: m}
}

// Type queues text. Characters without a key mapping are skipped.
func (t *KeyTyper) Type(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range text {
		if c := chordForRune(r); c != nil {
			t.queue = append(t.queue, c)
		}
	}
}

// Pending is the number of characters not yet typed, including the one in
// progress.
func (t *KeyTyper) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.queue)
	if t.current != nil {
		n++
	}
	return n
}

func (t *KeyTyper) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = nil
	if t.current != nil && t.held {
		for _, k := range t.current {
			t.matrix.Release(k)
		}
	}
	t.current = nil
}

// Tick advances the typing state machine by one frame.
func (t *KeyTyper) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		if len(t.queue) == 0 {
			return
		}
		t.current = t.queue[0]
		t.queue = t.queue[1:]
		for _, k := range t.current {
			t.matrix.Press(k)
		}
		t.held = true
		t.frames = 0
	}

	t.frames++
	if t.held && t.frames >= keyTypeHoldFrames {
		for _, k := range t.current {
			t.matrix.Release(k)
		}
		t.held = false
		t.frames = 0
		return
	}
	if !t.held && t.frames >= keyTypeReleaseFrames {
		t.current = nil
	}
}
