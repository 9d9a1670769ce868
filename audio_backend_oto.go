//go:build !headless

// audio_backend_oto.go - Beeper output through OTO v3

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
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

const (
	audioDeviceLatency = 40 * time.Millisecond
	// A ring fuller than this many milliseconds of sound (turbo mode, or a
	// stalled device) is skipped forward so the speaker stays in step with
	// the picture.
	audioMaxBacklogMs = 120
)

// SampleSource is the consumer side of a sample ring.
type SampleSource interface {
	ReadSampleFromRing() float32
	Buffered() int
}

type OtoPlayer struct {
	ctx        *oto.Context
	player     *oto.Player
	source     atomic.Pointer[SampleSource] // Atomic for lock-free Read()
	sampleBuf  []float32
	sampleRate int
	maxBacklog int
	skipped    atomic.Uint64
	started    bool
	mutex      sync.Mutex // Only for setup/control operations
}

func NewOtoPlayer(sampleRate int) (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   audioDeviceLatency,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	return &OtoPlayer{
		ctx:        ctx,
		sampleRate: sampleRate,
		maxBacklog: sampleRate * audioMaxBacklogMs / 1000,
	}, nil
}

func (op *OtoPlayer) SetupPlayer(src SampleSource) {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	op.source.Store(&src)
	op.player = op.ctx.NewPlayer(op)
	// Keep oto's own queue to one device period of float32 samples.
	op.player.SetBufferSize(int(int64(op.sampleRate) * 4 * int64(audioDeviceLatency) / int64(time.Second)))
	op.sampleBuf = make([]float32, 1024)
}

// Read is called by oto on its own goroutine.
func (op *OtoPlayer) Read(p []byte) (n int, err error) {
	numSamples := len(p) / 4
	if numSamples == 0 {
		return 0, nil
	}
	srcp := op.source.Load()
	if srcp == nil {
		clear(p[:numSamples*4])
		return numSamples * 4, nil
	}
	src := *srcp

	for extra := src.Buffered() - op.maxBacklog; extra > 0; extra-- {
		src.ReadSampleFromRing()
		op.skipped.Add(1)
	}

	if len(op.sampleBuf) < numSamples {
		op.sampleBuf = make([]float32, numSamples)
	}
	samples := op.sampleBuf[:numSamples]
	for i := range samples {
		samples[i] = src.ReadSampleFromRing()
	}

	n = copy(p, unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), numSamples*4))
	return n, nil
}

// Skipped counts samples discarded to bound latency.
func (op *OtoPlayer) Skipped() uint64 {
	return op.skipped.Load()
}

func (op *OtoPlayer) Start() {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if !op.started && op.player != nil {
		op.player.Play()
		op.started = true
	}
}

func (op *OtoPlayer) Stop() {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if op.started && op.player != nil {
		op.player.Pause()
		op.started = false
	}
}

func (op *OtoPlayer) Close() {
	op.Stop()
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if op.player != nil {
		op.player.Close()
		op.player = nil
	}
}

func (op *OtoPlayer) IsStarted() bool {
	op.mutex.Lock()
	defer op.mutex.Unlock()
	return op.started
}
