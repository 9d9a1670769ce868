//go:build !headless

// video_backend_ebiten.go - Ebiten window, host keyboard and status bar

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
	"fmt"
	"image/color"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

const maxPasteBytes = 4096

type EbitenOutput struct {
	m MachineControl

	running     atomic.Bool
	window      *ebiten.Image
	width       int
	height      int
	fullscreen  bool
	scale       int
	title       string
	windowedW   int
	windowedH   int
	frameBuffer []byte
	bufferMutex sync.RWMutex
	frameCount  atomic.Uint64
	readyOnce   sync.Once
	ready       chan struct{}
	done        chan struct{}

	keys        *hostKeyboard
	pressedBuf  []ebiten.Key
	releasedBuf []ebiten.Key

	clipboardOnce sync.Once
	clipboardOK   bool
	showStatusBar bool
	status        runtimeStatusStore

	resetInProgress atomic.Bool
}

func NewEbitenOutput(m MachineControl) (VideoOutput, error) {
	eo := &EbitenOutput{
		m:             m,
		width:         ULA_FRAME_WIDTH,
		height:        ULA_FRAME_HEIGHT,
		scale:         2,
		title:         "Spectrum Engine",
		frameBuffer:   make([]byte, ULA_FRAME_WIDTH*ULA_FRAME_HEIGHT*4),
		ready:         make(chan struct{}),
		done:          make(chan struct{}),
		keys:          newHostKeyboard(m.Keyboard()),
		showStatusBar: true,
	}
	eo.windowedW = eo.width * eo.scale
	eo.windowedH = eo.height * eo.scale
	return eo, nil
}

func (eo *EbitenOutput) Start() error {
	if eo.running.Swap(true) {
		return nil
	}
	ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
	ebiten.SetWindowTitle(eo.title)
	ebiten.SetWindowResizable(true)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	if eo.fullscreen {
		ebiten.SetFullscreen(true)
	}

	go func() {
		defer func() {
			eo.running.Store(false)
			eo.readyOnce.Do(func() { close(eo.ready) })
			close(eo.done)
		}()
		if err := ebiten.RunGame(eo); err != nil {
			fmt.Fprintf(os.Stderr, "video: %v\n", err)
		}
	}()

	// Wait for first Draw call to ensure Ebiten is ready
	<-eo.ready
	return nil
}

func (eo *EbitenOutput) Stop() error {
	eo.running.Store(false)
	return nil
}

func (eo *EbitenOutput) Close() error {
	return eo.Stop()
}

func (eo *EbitenOutput) Done() <-chan struct{} {
	return eo.done
}

// UpdateFrame copies a finished frame. Called on the scheduler goroutine.
func (eo *EbitenOutput) UpdateFrame(data []byte) error {
	eo.bufferMutex.Lock()
	copy(eo.frameBuffer, data)
	eo.bufferMutex.Unlock()
	return nil
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	eo.bufferMutex.Lock()
	defer eo.bufferMutex.Unlock()

	if config.Width > 0 {
		eo.width = config.Width
	}
	if config.Height > 0 {
		eo.height = config.Height
	}
	if config.Title != "" {
		eo.title = config.Title
		ebiten.SetWindowTitle(eo.title)
	}
	eo.scale = clampScale(config.Scale)
	if newSize := eo.width * eo.height * 4; len(eo.frameBuffer) != newSize {
		eo.frameBuffer = make([]byte, newSize)
	}

	eo.windowedW = eo.width * eo.scale
	eo.windowedH = eo.height * eo.scale
	eo.fullscreen = config.Fullscreen
	ebiten.SetFullscreen(eo.fullscreen)
	if !eo.fullscreen {
		ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
	}
	if eo.window != nil {
		eo.window.Deallocate()
		eo.window = nil
	}
	return nil
}

func (eo *EbitenOutput) GetDisplayConfig() DisplayConfig {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return DisplayConfig{
		Width:      eo.width,
		Height:     eo.height,
		Scale:      eo.scale,
		Fullscreen: eo.fullscreen,
		Title:      eo.title,
	}
}

func (eo *EbitenOutput) GetFrameCount() uint64 {
	return eo.frameCount.Load()
}

func (eo *EbitenOutput) IsStarted() bool {
	return eo.running.Load()
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() {
		eo.keys.releaseAll()
		eo.m.Stop()
		return ebiten.Termination
	}
	if !eo.running.Load() {
		return ebiten.Termination
	}
	if !ebiten.IsFocused() {
		eo.keys.releaseAll()
		return nil
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		if eo.m.Status().TapePlaying {
			eo.m.StopTape()
		} else {
			eo.m.PlayTape()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF6) {
		eo.m.SetPaused(!eo.m.Paused())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF7) {
		eo.background("nmi", eo.m.NMI)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF8) {
		turbo := !eo.m.Status().Turbo
		eo.background("turbo", func() error { return eo.m.SetTurbo(turbo) })
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF10) {
		if eo.resetInProgress.CompareAndSwap(false, true) {
			go func() {
				defer eo.resetInProgress.Store(false)
				if err := eo.m.Reset(); err != nil {
					fmt.Fprintf(os.Stderr, "video: reset: %v\n", err)
				}
			}()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		eo.bufferMutex.Lock()
		eo.fullscreen = !eo.fullscreen
		ebiten.SetFullscreen(eo.fullscreen)
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
		}
		eo.bufferMutex.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		eo.bufferMutex.Lock()
		eo.showStatusBar = !eo.showStatusBar
		eo.bufferMutex.Unlock()
	}
	eo.handleKeyboardInput()
	return nil
}

// background runs a machine call that waits on the scheduler off the
// game loop.
func (eo *EbitenOutput) background(what string, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			fmt.Fprintf(os.Stderr, "video: %s: %v\n", what, err)
		}
	}()
}

func (eo *EbitenOutput) handleKeyboardInput() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)

	// Clipboard paste: Ctrl+Shift+V
	pasted := false
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		eo.handleClipboardPaste()
		pasted = true
	}

	eo.pressedBuf = inpututil.AppendJustPressedKeys(eo.pressedBuf[:0])
	for _, k := range eo.pressedBuf {
		if pasted && k == ebiten.KeyV {
			continue
		}
		eo.keys.press(k.String())
	}
	eo.releasedBuf = inpututil.AppendJustReleasedKeys(eo.releasedBuf[:0])
	for _, k := range eo.releasedBuf {
		eo.keys.release(k.String())
	}
}

func (eo *EbitenOutput) handleClipboardPaste() {
	eo.clipboardOnce.Do(func() {
		eo.clipboardOK = clipboard.Init() == nil
	})
	if !eo.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return
	}
	data = normalizePasteText(data)
	data = capPasteText(data, maxPasteBytes)
	eo.m.TypeText(string(data))
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	eo.bufferMutex.Lock()
	if eo.window == nil {
		eo.window = ebiten.NewImage(eo.width, eo.height)
	}
	eo.window.WritePixels(eo.frameBuffer)
	showStatusBar := eo.showStatusBar
	eo.bufferMutex.Unlock()
	screen.DrawImage(eo.window, nil)
	if showStatusBar {
		eo.drawRuntimeStatusBar(screen)
	}

	eo.frameCount.Add(1)
	eo.readyOnce.Do(func() { close(eo.ready) })
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	return eo.width, eo.height
}

type statusToken struct {
	name    string
	enabled bool
}

func drawStatusLine(screen *ebiten.Image, x, baselineY int, label string, tokens []statusToken) {
	face := basicfont.Face7x13
	labelColor := color.RGBA{190, 190, 190, 255}
	offColor := color.RGBA{120, 120, 120, 255}
	onColor := color.RGBA{0, 220, 90, 255}

	text.Draw(screen, label, face, x, baselineY, labelColor)
	cursorX := x + text.BoundString(face, label).Dx() + 6

	for _, token := range tokens {
		c := offColor
		if token.enabled {
			c = onColor
		}
		text.Draw(screen, token.name, face, cursorX, baselineY, c)
		cursorX += text.BoundString(face, token.name).Dx() + 8
	}
}

func (eo *EbitenOutput) drawRuntimeStatusBar(screen *ebiten.Image) {
	s := eo.m.Status()
	fps, speed := eo.status.sample(s, time.Now())

	barHeight := 44
	if barHeight >= eo.height {
		return
	}
	y := eo.height - barHeight
	ebitenutil.DrawRect(screen, 0, float64(y), float64(eo.width), float64(barHeight), color.RGBA{0, 0, 0, 180})

	drawStatusLine(screen, 6, y+13, "Z80 ", []statusToken{
		{name: fmt.Sprintf("%3.0f%%", speed*100), enabled: s.Running && !s.Paused},
		{name: fmt.Sprintf("%4.1f fps", fps), enabled: s.Running && !s.Paused},
		{name: "PAUSE", enabled: s.Paused},
		{name: "TURBO", enabled: s.Turbo},
		{name: "FAULT", enabled: s.Fault != nil},
	})
	drawStatusLine(screen, 6, y+26, "TAPE", []statusToken{
		{name: s.TapeState(), enabled: s.TapePlaying},
		{name: fmt.Sprintf("MIC %d", s.MICEdges), enabled: s.MICEdges > 0},
	})

	legendColor := color.RGBA{160, 160, 160, 255}
	legend := "F5 Tape F6 Pause F7 NMI F8 Turbo F10 Reset"
	legendW := text.BoundString(basicfont.Face7x13, legend).Dx()
	legendX := max(eo.width-legendW-6, 6)
	text.Draw(screen, legend, basicfont.Face7x13, legendX, y+39, legendColor)
}
