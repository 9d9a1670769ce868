// video_interface.go - Display backends and the controls they drive

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

import "fmt"

// VideoError provides detailed error context for video operations
type VideoError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *VideoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("video %s failed: %s", e.Operation, e.Details)
}

func (e *VideoError) Unwrap() error {
	return e.Err
}

// DisplayConfig contains hardware-independent configuration
type DisplayConfig struct {
	Width      int
	Height     int
	Scale      int // Integer scaling factor for output
	Fullscreen bool
	Title      string
}

const (
	minDisplayScale = 1
	maxDisplayScale = 8
)

func clampScale(s int) int {
	return min(max(s, minDisplayScale), maxDisplayScale)
}

// VideoOutput defines the minimal interface that backends must implement.
// It is also the ULA's FrameSink: UpdateFrame is called on the scheduler
// goroutine once per frame and must copy the pixels.
type VideoOutput interface {
	// Lifecycle management
	Start() error
	Stop() error
	Close() error
	IsStarted() bool

	SetDisplayConfig(config DisplayConfig) error
	GetDisplayConfig() DisplayConfig
	UpdateFrame(buffer []byte) error // Takes raw RGBA pixels only

	GetFrameCount() uint64

	// Done is closed when the backend has shut down, for example because
	// its window was closed.
	Done() <-chan struct{}
}

// MachineControl is what a front end may do to a running machine. Every
// method is safe to call from the front end's own goroutine.
type MachineControl interface {
	Keyboard() *KeyboardMatrix
	TypeText(s string)
	Reset() error
	NMI() error
	SetPaused(p bool)
	Paused() bool
	SetTurbo(on bool) error
	PlayTape()
	StopTape()
	Status() MachineStatus
	Stop()
}

var _ MachineControl = (*Spectrum)(nil)

// NewVideoOutput picks the window backend, or the frame counter used for
// headless runs.
func NewVideoOutput(headless bool, m MachineControl) (VideoOutput, error) {
	if headless {
		return NewHeadlessVideoOutput(), nil
	}
	out, err := NewEbitenOutput(m)
	if err != nil {
		return nil, &VideoError{
			Operation: "backend creation",
			Details:   "window backend unavailable",
			Err:       err,
		}
	}
	return out, nil
}
