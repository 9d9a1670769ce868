package main

import (
	"fmt"
	"sync"
	"time"
)

// MachineStatus is a point-in-time view of the machine for status bars and
// scripts. Every field is read from atomics, so it is safe to build from
// any goroutine.
type MachineStatus struct {
	Cycles  uint64
	Frames  uint64
	ClockHz int
	Running bool
	Paused  bool
	Turbo   bool

	TapePlaying bool
	TapeBlock   int
	TapeBlocks  int
	TapeEdges   uint64
	MICEdges    uint64

	AudioDropped uint64
	Fault        error
}

func (s MachineStatus) TapeState() string {
	switch {
	case s.TapeBlocks == 0:
		return "no tape"
	case s.TapePlaying:
		return fmt.Sprintf("PLAY %d/%d", s.TapeBlock+1, s.TapeBlocks)
	case s.TapeBlock >= s.TapeBlocks:
		return "END"
	default:
		return fmt.Sprintf("STOP %d/%d", s.TapeBlock+1, s.TapeBlocks)
	}
}

// runtimeStatusStore turns successive MachineStatus samples into rates.
type runtimeStatusStore struct {
	mu sync.Mutex

	last   MachineStatus
	lastAt time.Time

	fps   float64
	speed float64 // emulated clock as a fraction of the nominal clock
}

// sample records s taken at now and returns the frame rate and relative
// speed measured since the previous sample.
func (r *runtimeStatusStore) sample(s MachineStatus, now time.Time) (fps, speed float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastAt.IsZero() {
		dt := now.Sub(r.lastAt).Seconds()
		if dt >= 0.5 && s.Frames >= r.last.Frames && s.Cycles >= r.last.Cycles {
			r.fps = float64(s.Frames-r.last.Frames) / dt
			if s.ClockHz > 0 {
				r.speed = float64(s.Cycles-r.last.Cycles) / dt / float64(s.ClockHz)
			}
		}
		if dt < 0.5 {
			return r.fps, r.speed
		}
	}
	r.last = s
	r.lastAt = now
	return r.fps, r.speed
}
