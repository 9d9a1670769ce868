package main

import "testing"

func TestHeadlessOutput_SetDisplayConfig_StoresFullscreen(t *testing.T) {
	out := NewHeadlessVideoOutput()
	cfg := DisplayConfig{
		Width:      320,
		Height:     256,
		Scale:      2,
		Fullscreen: true,
	}
	if err := out.SetDisplayConfig(cfg); err != nil {
		t.Fatalf("SetDisplayConfig returned error: %v", err)
	}
	got := out.GetDisplayConfig()
	if got.Scale != 2 || !got.Fullscreen {
		t.Fatalf("expected Scale=2, Fullscreen=true; got Scale=%d, Fullscreen=%v", got.Scale, got.Fullscreen)
	}
}

func TestHeadlessOutput_ClampsScale(t *testing.T) {
	out := NewHeadlessVideoOutput()
	_ = out.SetDisplayConfig(DisplayConfig{Scale: 99})
	if got := out.GetDisplayConfig().Scale; got != maxDisplayScale {
		t.Fatalf("scale = %d, want %d", got, maxDisplayScale)
	}
	_ = out.SetDisplayConfig(DisplayConfig{Scale: 0})
	if got := out.GetDisplayConfig().Scale; got != minDisplayScale {
		t.Fatalf("scale = %d, want %d", got, minDisplayScale)
	}
}

func TestHeadlessOutputReceivesFrames(t *testing.T) {
	m := newTestSpectrum(t, []byte{0x3E, 0x01, 0xD3, 0xFE, 0x76}, nil)
	out := NewHeadlessVideoOutput()
	m.ULA().SetSink(out)

	stepUntil(t, m, 2*ULA_CYCLES_PER_FRAME)

	if got := out.GetFrameCount(); got != 2 {
		t.Fatalf("frames = %d, want 2", got)
	}
	frame := out.LastFrame()
	if len(frame) != ULA_FRAME_WIDTH*ULA_FRAME_HEIGHT*4 {
		t.Fatalf("frame size = %d", len(frame))
	}
	// Top-left pixel is border, set to blue.
	blue := ULAColorNormal[1]
	if frame[0] != blue[0] || frame[1] != blue[1] || frame[2] != blue[2] {
		t.Fatalf("border pixel = %v, want %v", frame[:3], blue)
	}
}
