package main

import "sync/atomic"

// HeadlessVideoOutput counts frames and keeps the newest one, for runs
// without a window and for tests.
type HeadlessVideoOutput struct {
	started    atomic.Bool
	config     DisplayConfig
	frameCount atomic.Uint64
	last       atomic.Pointer[[]byte]
	done       chan struct{}
}

func NewHeadlessVideoOutput() *HeadlessVideoOutput {
	return &HeadlessVideoOutput{
		config: DisplayConfig{Width: ULA_FRAME_WIDTH, Height: ULA_FRAME_HEIGHT, Scale: 1},
		done:   make(chan struct{}),
	}
}

func (h *HeadlessVideoOutput) Start() error {
	h.started.Store(true)
	return nil
}

func (h *HeadlessVideoOutput) Stop() error {
	h.started.Store(false)
	return nil
}

func (h *HeadlessVideoOutput) Close() error {
	h.started.Store(false)
	return nil
}

func (h *HeadlessVideoOutput) IsStarted() bool {
	return h.started.Load()
}

func (h *HeadlessVideoOutput) SetDisplayConfig(config DisplayConfig) error {
	config.Scale = clampScale(config.Scale)
	h.config = config
	return nil
}

func (h *HeadlessVideoOutput) GetDisplayConfig() DisplayConfig {
	return h.config
}

func (h *HeadlessVideoOutput) UpdateFrame(buffer []byte) error {
	frame := append([]byte(nil), buffer...)
	h.last.Store(&frame)
	h.frameCount.Add(1)
	return nil
}

// LastFrame returns a copy of the newest frame, or nil before the first.
func (h *HeadlessVideoOutput) LastFrame() []byte {
	if p := h.last.Load(); p != nil {
		return *p
	}
	return nil
}

func (h *HeadlessVideoOutput) GetFrameCount() uint64 {
	return h.frameCount.Load()
}

// Done never closes: a headless display ends only with the machine.
func (h *HeadlessVideoOutput) Done() <-chan struct{} {
	return h.done
}
