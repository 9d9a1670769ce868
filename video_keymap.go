// video_keymap.go - Host keyboard to Spectrum matrix translation

package main

// hostKeyChords maps host key names, as the window backend spells them, to
// the matrix keys held while the host key is down.
var hostKeyChords = map[string]keyChord{
	"Enter":        {KeyEnter},
	"NumpadEnter":  {KeyEnter},
	"Space":        {KeySpace},
	"ShiftLeft":    {KeyCaps},
	"ShiftRight":   {KeySym},
	"ControlLeft":  {KeySym},
	"ControlRight": {KeySym},
	"Escape":       {KeyCaps, KeySpace}, // BREAK
	"Tab":          {KeyCaps, KeySym},   // extended mode
	"Backspace":    {KeyCaps, mustKey("0")},
	"ArrowLeft":    {KeyCaps, mustKey("5")},
	"ArrowDown":    {KeyCaps, mustKey("6")},
	"ArrowUp":      {KeyCaps, mustKey("7")},
	"ArrowRight":   {KeyCaps, mustKey("8")},
	"Comma":        {KeySym, mustKey("N")},
	"Period":       {KeySym, mustKey("M")},
	"Minus":        {KeySym, mustKey("J")},
	"Equal":        {KeySym, mustKey("L")},
	"Semicolon":    {KeySym, mustKey("O")},
	"Quote":        {KeySym, mustKey("7")},
	"Slash":        {KeySym, mustKey("V")},
}

func init() {
	for c := 'A'; c <= 'Z'; c++ {
		hostKeyChords[string(c)] = keyChord{mustKey(string(c))}
	}
	for c := '0'; c <= '9'; c++ {
		k := mustKey(string(c))
		hostKeyChords["Digit"+string(c)] = keyChord{k}
		hostKeyChords["Numpad"+string(c)] = keyChord{k}
	}
}

func mustKey(name string) SpectrumKey {
	k, ok := LookupKey(name)
	if !ok {
		panic("keyboard layout has no key " + name)
	}
	return k
}

// hostKeyboard presses matrix keys for host keys, counting holders so that
// Shift+Up released in either order leaves CAPS down until both are up.
type hostKeyboard struct {
	matrix *KeyboardMatrix
	held   map[SpectrumKey]int
	down   map[string]keyChord
}

func newHostKeyboard(m *KeyboardMatrix) *hostKeyboard {
	return &hostKeyboard{
		matrix: m,
		held:   make(map[SpectrumKey]int),
		down:   make(map[string]keyChord),
	}
}

// press reports whether name is a mapped key.
func (h *hostKeyboard) press(name string) bool {
	chord, ok := hostKeyChords[name]
	if !ok {
		return false
	}
	if _, already := h.down[name]; already {
		return true
	}
	h.down[name] = chord
	for _, k := range chord {
		h.held[k]++
		if h.held[k] == 1 {
			h.matrix.Press(k)
		}
	}
	return true
}

func (h *hostKeyboard) release(name string) {
	chord, ok := h.down[name]
	if !ok {
		return
	}
	delete(h.down, name)
	for _, k := range chord {
		h.held[k]--
		if h.held[k] <= 0 {
			delete(h.held, k)
			h.matrix.Release(k)
		}
	}
}

func (h *hostKeyboard) releaseAll() {
	for name := range h.down {
		h.release(name)
	}
}

// normalizePasteText turns CRLF and lone CR line endings into LF.
func normalizePasteText(raw []byte) []byte {
	norm := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\r' {
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
			norm = append(norm, '\n')
			continue
		}
		norm = append(norm, raw[i])
	}
	return norm
}

func capPasteText(raw []byte, max int) []byte {
	if len(raw) <= max {
		return raw
	}
	return raw[:max]
}
