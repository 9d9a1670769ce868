package main

import (
	"testing"
	"time"
)

func TestRuntimeStatusRates(t *testing.T) {
	var r runtimeStatusStore
	t0 := time.Unix(1000, 0)
	if fps, speed := r.sample(MachineStatus{ClockHz: 3_500_000}, t0); fps != 0 || speed != 0 {
		t.Fatalf("first sample gave fps=%v speed=%v", fps, speed)
	}
	// Inside the window the previous rates are kept.
	if fps, _ := r.sample(MachineStatus{Frames: 5, ClockHz: 3_500_000}, t0.Add(100*time.Millisecond)); fps != 0 {
		t.Fatalf("fps = %v before the window elapsed", fps)
	}
	s := MachineStatus{Frames: 50, Cycles: 3_500_000, ClockHz: 3_500_000}
	fps, speed := r.sample(s, t0.Add(time.Second))
	if fps != 50 {
		t.Fatalf("fps = %v, want 50", fps)
	}
	if speed != 1 {
		t.Fatalf("speed = %v, want 1", speed)
	}
}

func TestMachineStatusTapeState(t *testing.T) {
	tests := []struct {
		s    MachineStatus
		want string
	}{
		{MachineStatus{}, "no tape"},
		{MachineStatus{TapePlaying: true, TapeBlock: 0, TapeBlocks: 3}, "PLAY 1/3"},
		{MachineStatus{TapeBlock: 1, TapeBlocks: 3}, "STOP 2/3"},
		{MachineStatus{TapeBlock: 3, TapeBlocks: 3}, "END"},
	}
	for _, tt := range tests {
		if got := tt.s.TapeState(); got != tt.want {
			t.Errorf("TapeState(%+v) = %q, want %q", tt.s, got, tt.want)
		}
	}
}
