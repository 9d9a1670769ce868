//go:build !headless

package main

import "testing"

func TestEbitenOutputImplementsVideoOutput(t *testing.T) {
	eo := &EbitenOutput{}
	if _, ok := any(eo).(VideoOutput); !ok {
		t.Fatal("expected EbitenOutput to implement VideoOutput")
	}
	if _, ok := any(eo).(FrameSink); !ok {
		t.Fatal("expected EbitenOutput to be a FrameSink")
	}
}
