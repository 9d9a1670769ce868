package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now   time.Time
	slept time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.slept += d
	c.now = c.now.Add(d)
}

func recordTask(due uint64, kind TaskKind, log *[]uint64) Task {
	return Task{Due: due, Kind: kind, Action: TaskFunc(func(s *Scheduler, now uint64) {
		*log = append(*log, now)
	})}
}

func TestSchedulerRunsEarliestFirst(t *testing.T) {
	s := NewScheduler(3_500_000, false)
	var fired []uint64
	for _, due := range []uint64{100, 50, 75} {
		if err := s.Schedule(recordTask(due, TaskHost, &fired)); err != nil {
			t.Fatalf("schedule %d: %v", due, err)
		}
	}
	for s.Step() {
	}
	want := []uint64{50, 75, 100}
	if len(fired) != len(want) {
		t.Fatalf("fired %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired %v, want %v", fired, want)
		}
	}
	if s.Now() != 100 {
		t.Fatalf("now = %d, want 100", s.Now())
	}
}

func TestSchedulerEqualDueKeepsInsertionOrder(t *testing.T) {
	s := NewScheduler(1000, false)
	var kinds []TaskKind
	for _, k := range []TaskKind{TaskVideoLine, TaskAudioSample, TaskTapeEdge} {
		kind := k
		s.Schedule(Task{Due: 10, Kind: kind, Action: TaskFunc(func(*Scheduler, uint64) {
			kinds = append(kinds, kind)
		})})
	}
	for s.Step() {
	}
	if len(kinds) != 3 || kinds[0] != TaskVideoLine || kinds[1] != TaskAudioSample || kinds[2] != TaskTapeEdge {
		t.Fatalf("order = %v", kinds)
	}
}

func TestSchedulerCapacity(t *testing.T) {
	s := NewScheduler(1000, false)
	var fired []uint64
	for i := 0; i < schedulerCapacity; i++ {
		if err := s.Schedule(recordTask(uint64(i), TaskHost, &fired)); err != nil {
			t.Fatalf("schedule %d: %v", i, err)
		}
	}
	if err := s.Schedule(recordTask(99, TaskHost, &fired)); !errors.Is(err, ErrTimelineFull) {
		t.Fatalf("err = %v, want ErrTimelineFull", err)
	}
}

func TestSchedulerMailboxRejectsWhileOccupied(t *testing.T) {
	s := NewScheduler(1000, false)
	var fired []uint64
	if !s.Submit(recordTask(5, TaskHost, &fired)) {
		t.Fatalf("first submit rejected")
	}
	if s.Submit(recordTask(6, TaskHost, &fired)) {
		t.Fatalf("second submit accepted while mailbox occupied")
	}
	if !s.Step() {
		t.Fatalf("submitted task did not run")
	}
	if !s.Submit(recordTask(7, TaskHost, &fired)) {
		t.Fatalf("submit rejected after mailbox drained")
	}
	s.Step()
	if len(fired) != 2 || fired[0] != 5 || fired[1] != 7 {
		t.Fatalf("fired = %v", fired)
	}
}

func TestSchedulerMailboxHeldWhileFull(t *testing.T) {
	s := NewScheduler(1000, false)
	var fired []uint64
	for i := 0; i < schedulerCapacity; i++ {
		s.Schedule(recordTask(100, TaskHost, &fired))
	}
	s.Submit(recordTask(1, TaskHost, &fired))
	s.absorb()
	if s.Len() != schedulerCapacity || len(s.pending) != 1 {
		t.Fatalf("len = %d pending = %d", s.Len(), len(s.pending))
	}
}

func TestSchedulerRecurring(t *testing.T) {
	s := NewScheduler(1000, false)
	var seen []uint64
	s.Schedule(Task{Due: 0, Kind: TaskCPU, Action: Recurring(TaskCPU, func(now uint64) uint64 {
		seen = append(seen, now)
		if len(seen) == 4 {
			return 0
		}
		return 4
	})})
	for s.Step() {
	}
	want := []uint64{0, 4, 8, 12}
	if len(seen) != len(want) {
		t.Fatalf("seen %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen %v, want %v", seen, want)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("timeline not empty after zero cost")
	}
}

func TestSchedulerCancelKind(t *testing.T) {
	s := NewScheduler(1000, false)
	var fired []uint64
	s.Schedule(recordTask(1, TaskTapeEdge, &fired))
	s.Schedule(recordTask(2, TaskHost, &fired))
	s.Schedule(recordTask(3, TaskTapeEdge, &fired))
	s.Cancel(TaskTapeEdge)
	if s.Has(TaskTapeEdge) {
		t.Fatalf("tape tasks survived cancel")
	}
	for s.Step() {
	}
	if len(fired) != 1 || fired[0] != 2 {
		t.Fatalf("fired = %v", fired)
	}
}

func TestSchedulerRunStops(t *testing.T) {
	s := NewScheduler(1000, false)
	count := 0
	s.Schedule(Task{Kind: TaskCPU, Action: Recurring(TaskCPU, func(now uint64) uint64 {
		count++
		if count == 1000 {
			s.Stop()
		}
		return 1
	})})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if count != 1000 {
		t.Fatalf("count = %d", count)
	}
	if s.Running() {
		t.Fatalf("still running")
	}
}

func TestSchedulerRunHonoursContext(t *testing.T) {
	s := NewScheduler(1000, false)
	ctx, cancel := context.WithCancel(context.Background())
	s.Schedule(Task{Kind: TaskCPU, Action: Recurring(TaskCPU, func(now uint64) uint64 {
		if now == 50 {
			cancel()
		}
		return 1
	})})
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSchedulerPacesToClock(t *testing.T) {
	const hz = 3_500_000
	s := NewScheduler(hz, true)
	clock := &fakeClock{now: time.Unix(0, 0)}
	s.SetClock(clock)
	s.Schedule(Task{Kind: TaskCPU, Action: Recurring(TaskCPU, func(now uint64) uint64 {
		if now >= hz {
			s.Stop()
			return 0
		}
		return 4
	})})
	s.Run(context.Background())
	// One emulated second must take one wall second, give or take a quantum.
	if clock.slept < time.Second-2*schedulerPaceQuantum || clock.slept > time.Second {
		t.Fatalf("slept %v for one emulated second", clock.slept)
	}
}

func TestSchedulerTurboDoesNotSleep(t *testing.T) {
	s := NewScheduler(1000, false)
	clock := &fakeClock{now: time.Unix(0, 0)}
	s.SetClock(clock)
	s.Schedule(Task{Kind: TaskCPU, Action: Recurring(TaskCPU, func(now uint64) uint64 {
		if now >= 10000 {
			s.Stop()
			return 0
		}
		return 10
	})})
	s.Run(context.Background())
	if clock.slept != 0 {
		t.Fatalf("turbo slept %v", clock.slept)
	}
}

func TestSchedulerCycleTimeLargeValues(t *testing.T) {
	s := NewScheduler(3_500_000, true)
	got := s.cycleTime(3_500_000 * 86400 * 365)
	if got != 365*24*time.Hour {
		t.Fatalf("cycleTime = %v", got)
	}
}

func TestSchedulerSubmitFromGoroutine(t *testing.T) {
	s := NewScheduler(1000, false)
	done := make(chan uint64, 1)
	go func() {
		s.SubmitRetry(context.Background(), TaskHost, TaskFunc(func(s *Scheduler, now uint64) {
			done <- now
			s.Stop()
		}), time.Millisecond)
	}()
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	select {
	case <-done:
	default:
		t.Fatalf("submitted task did not run")
	}
}

func TestSchedulerTrySubmitReportsBusy(t *testing.T) {
	s := NewScheduler(1000, false)
	noop := TaskFunc(func(*Scheduler, uint64) {})
	if err := s.TrySubmit(TaskHost, noop); err != nil {
		t.Fatalf("first TrySubmit: %v", err)
	}
	if err := s.TrySubmit(TaskHost, noop); !errors.Is(err, ErrMailboxBusy) {
		t.Fatalf("err = %v, want ErrMailboxBusy", err)
	}
}
