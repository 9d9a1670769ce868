//go:build !headless

package main

import "testing"

// Read is exercised without a device: the context is only needed by
// SetupPlayer.
func TestOtoPlayerReadSkipsBacklog(t *testing.T) {
	b := NewBeeper(SPECTRUM_CLOCK_HZ, 1000, func() float32 { return 0 })
	for range 500 {
		b.Sample(0)
	}
	op := &OtoPlayer{sampleRate: 1000, maxBacklog: 100}
	var src SampleSource = b
	op.source.Store(&src)

	p := make([]byte, 4*10)
	n, err := op.Read(p)
	if err != nil || n != len(p) {
		t.Fatalf("Read = %d, %v", n, err)
	}
	if got := op.Skipped(); got != 400 {
		t.Fatalf("skipped %d samples, want 400", got)
	}
	if got := b.Buffered(); got != 90 {
		t.Fatalf("buffered = %d, want 90", got)
	}
}

func TestOtoPlayerSilentWithoutSource(t *testing.T) {
	op := &OtoPlayer{}
	p := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	n, _ := op.Read(p)
	if n != 8 {
		t.Fatalf("n = %d, want 8", n)
	}
	for i := range 8 {
		if p[i] != 0 {
			t.Fatalf("byte %d = %d, want silence", i, p[i])
		}
	}
}
