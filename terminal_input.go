package main

// TerminalSink is the part of the machine a terminal host drives.
type TerminalSink interface {
	TypeText(s string)
	Stop()
}

const (
	termCtrlC = 0x03
	termCtrlD = 0x04
	termEsc   = 0x1B
	termDEL   = 0x7F
)

// terminalDecoder turns raw-mode stdin bytes into text for the key typer.
// Escape sequences (arrow keys and the like) are swallowed.
type terminalDecoder struct {
	inEscape bool
}

// feed translates p and hands the result to sink. It returns false once the
// user asked to quit with Ctrl-C or Ctrl-D.
func (d *terminalDecoder) feed(sink TerminalSink, p []byte) bool {
	out := make([]byte, 0, len(p))
	defer func() {
		if len(out) > 0 {
			sink.TypeText(string(out))
		}
	}()
	for _, b := range p {
		if d.inEscape {
			// CSI sequences end with a byte in 0x40-0x7E other than '['.
			if b >= 0x40 && b <= 0x7E && b != '[' {
				d.inEscape = false
			}
			continue
		}
		switch {
		case b == termCtrlC || b == termCtrlD:
			sink.Stop()
			return false
		case b == termEsc:
			d.inEscape = true
		case b == '\r' || b == '\n':
			// Raw mode sends CR for Enter.
			out = append(out, '\n')
		case b == termDEL || b == '\b':
			out = append(out, '\b')
		case b >= ' ' && b < termDEL:
			out = append(out, b)
		}
	}
	return true
}
