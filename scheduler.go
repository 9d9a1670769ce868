package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// The scheduler is the machine's single timeline. Every piece of recurring
// work (a CPU instruction, a raster line, an audio sample, a tape edge) is a
// Task due at an absolute t-state. Run executes the earliest task, lets its
// action schedule the next occurrence, and holds the timeline back so that
// t-states elapse at the rate of the emulated clock.

const (
	schedulerCapacity = 8

	// Pacing is checked once per quantum of emulated time rather than per
	// task, so a CPU step does not cost a clock read.
	schedulerPaceQuantum = time.Millisecond

	schedulerIdleWait = 100 * time.Millisecond
)

var (
	ErrTimelineFull = errors.New("scheduler: timeline full")
	ErrMailboxBusy  = errors.New("scheduler: mailbox busy")
)

type TaskKind uint8

const (
	TaskCPU TaskKind = iota
	TaskVideoLine
	TaskAudioSample
	TaskTapeEdge
	TaskHost
)

func (k TaskKind) String() string {
	switch k {
	case TaskCPU:
		return "cpu"
	case TaskVideoLine:
		return "video"
	case TaskAudioSample:
		return "audio"
	case TaskTapeEdge:
		return "tape"
	case TaskHost:
		return "host"
	default:
		return fmt.Sprintf("task(%d)", uint8(k))
	}
}

// TaskAction is the work of a task. It runs on the scheduler goroutine with
// now equal to the task's due cycle, and schedules any follow-up itself.
type TaskAction interface {
	Fire(s *Scheduler, now uint64)
}

type TaskFunc func(s *Scheduler, now uint64)

func (f TaskFunc) Fire(s *Scheduler, now uint64) { f(s, now) }

type Task struct {
	Due    uint64
	Kind   TaskKind
	Action TaskAction
}

// CostFunc does one unit of recurring work and returns the t-states until
// the next unit. Zero ends the recurrence.
type CostFunc func(now uint64) uint64

type recurring struct {
	kind TaskKind
	fn   CostFunc
}

// Recurring wraps fn so that each firing re-enqueues itself at now+cost.
func Recurring(kind TaskKind, fn CostFunc) TaskAction {
	return &recurring{kind: kind, fn: fn}
}

func (r *recurring) Fire(s *Scheduler, now uint64) {
	cost := r.fn(now)
	if cost == 0 {
		return
	}
	if err := s.Schedule(Task{Due: now + cost, Kind: r.kind, Action: r}); err != nil {
		fmt.Fprintf(os.Stderr, "scheduler: dropping %s task: %v\n", r.kind, err)
	}
}

// Clock abstracts wall time so pacing can be tested without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

type Scheduler struct {
	tasks   []Task
	pending chan Task

	now     atomic.Uint64
	running atomic.Bool

	clockHz  uint64
	clock    Clock
	throttle bool
	idleWait time.Duration

	// pacing baseline: wall time and cycle when Run started
	startTime  time.Time
	startCycle uint64
	pacedCycle uint64
	quantum    uint64
}

// NewScheduler returns a scheduler for a CPU clocked at clockHz. With
// throttle false the timeline runs as fast as the host allows.
func NewScheduler(clockHz uint64, throttle bool) *Scheduler {
	if clockHz == 0 {
		clockHz = 1
	}
	quantum := clockHz * uint64(schedulerPaceQuantum) / uint64(time.Second)
	if quantum == 0 {
		quantum = 1
	}
	return &Scheduler{
		tasks:    make([]Task, 0, schedulerCapacity),
		pending:  make(chan Task, 1),
		clockHz:  clockHz,
		clock:    systemClock{},
		throttle: throttle,
		idleWait: schedulerIdleWait,
		quantum:  quantum,
	}
}

// SetClock replaces the wall clock. Call before Run.
func (s *Scheduler) SetClock(c Clock) {
	s.clock = c
}

// SetThrottle switches pacing. Call it from a task, or before Run.
func (s *Scheduler) SetThrottle(on bool) {
	s.throttle = on
	s.rebase()
}

// Now is the current cycle. It is safe to call from any goroutine.
func (s *Scheduler) Now() uint64 {
	return s.now.Load()
}

func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Stop asks Run to return after the action in progress completes.
func (s *Scheduler) Stop() {
	s.running.Store(false)
}

func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// Schedule inserts t keeping the timeline sorted by due cycle. Tasks due at
// the same cycle run in insertion order. Only the scheduler goroutine, or a
// caller that owns the scheduler before Run, may call it.
func (s *Scheduler) Schedule(t Task) error {
	if len(s.tasks) >= schedulerCapacity {
		return ErrTimelineFull
	}
	i := len(s.tasks)
	for i > 0 && s.tasks[i-1].Due > t.Due {
		i--
	}
	s.tasks = append(s.tasks, Task{})
	copy(s.tasks[i+1:], s.tasks[i:])
	s.tasks[i] = t
	return nil
}

// Cancel removes every task of the given kind.
func (s *Scheduler) Cancel(kind TaskKind) {
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.Kind != kind {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(s.tasks); i++ {
		s.tasks[i] = Task{}
	}
	s.tasks = kept
}

// Has reports whether a task of the given kind is waiting.
func (s *Scheduler) Has(kind TaskKind) bool {
	for _, t := range s.tasks {
		if t.Kind == kind {
			return true
		}
	}
	return false
}

// Submit hands a task to the scheduler from another goroutine. It returns
// false without blocking when an earlier submission has not been absorbed
// yet; the caller retries later.
func (s *Scheduler) Submit(t Task) bool {
	select {
	case s.pending <- t:
		return true
	default:
		return false
	}
}

// SubmitNow submits an action due at the current cycle.
func (s *Scheduler) SubmitNow(kind TaskKind, action TaskAction) bool {
	return s.Submit(Task{Due: s.Now(), Kind: kind, Action: action})
}

// TrySubmit is SubmitNow reporting a busy mailbox as ErrMailboxBusy.
func (s *Scheduler) TrySubmit(kind TaskKind, action TaskAction) error {
	if !s.SubmitNow(kind, action) {
		return ErrMailboxBusy
	}
	return nil
}

// SubmitRetry keeps submitting until the mailbox accepts the task or ctx
// ends, polling every interval.
func (s *Scheduler) SubmitRetry(ctx context.Context, kind TaskKind, action TaskAction, interval time.Duration) error {
	for {
		err := s.TrySubmit(kind, action)
		if !errors.Is(err, ErrMailboxBusy) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// absorb moves a submitted task onto the timeline. A full timeline leaves
// it in the mailbox, which keeps rejecting further submissions.
func (s *Scheduler) absorb() {
	if len(s.pending) == 0 || len(s.tasks) >= schedulerCapacity {
		return
	}
	select {
	case t := <-s.pending:
		s.Schedule(t)
	default:
	}
}

// runDue fires the earliest task if it is due at or before the current cycle.
func (s *Scheduler) runDue() bool {
	if len(s.tasks) == 0 {
		return false
	}
	t := s.tasks[0]
	now := s.now.Load()
	if t.Due > now {
		return false
	}
	copy(s.tasks, s.tasks[1:])
	s.tasks[len(s.tasks)-1] = Task{}
	s.tasks = s.tasks[:len(s.tasks)-1]
	t.Action.Fire(s, now)
	return true
}

func (s *Scheduler) advance() {
	if len(s.tasks) > 0 && s.tasks[0].Due > s.now.Load() {
		s.now.Store(s.tasks[0].Due)
	}
}

// Step runs exactly one task without pacing. It returns false when the
// timeline is empty.
func (s *Scheduler) Step() bool {
	s.absorb()
	s.advance()
	return s.runDue()
}

// cycleTime converts a cycle span to wall time without overflowing for
// long sessions.
func (s *Scheduler) cycleTime(cycles uint64) time.Duration {
	secs := cycles / s.clockHz
	rem := cycles % s.clockHz
	return time.Duration(secs)*time.Second + time.Duration(rem*uint64(time.Second)/s.clockHz)
}

func (s *Scheduler) pace(cycle uint64) {
	if !s.throttle || cycle-s.pacedCycle < s.quantum {
		return
	}
	s.pacedCycle = cycle
	target := s.startTime.Add(s.cycleTime(cycle - s.startCycle))
	if ahead := target.Sub(s.clock.Now()); ahead > 0 {
		s.clock.Sleep(ahead)
	}
}

// Run drives the timeline until Stop is called or ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	s.rebase()

	for s.running.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(s.tasks) == 0 {
			s.waitIdle(ctx)
			continue
		}
		s.advance()
		s.pace(s.now.Load())
		s.absorb()
		s.runDue()
	}
	return nil
}

// waitIdle blocks on the mailbox while nothing is scheduled.
func (s *Scheduler) waitIdle(ctx context.Context) {
	select {
	case t := <-s.pending:
		if err := s.Schedule(t); err != nil {
			fmt.Fprintf(os.Stderr, "scheduler: %v\n", err)
		}
	case <-ctx.Done():
	case <-time.After(s.idleWait):
	}
	s.rebase()
}

// rebase restarts pacing from the current cycle so idle time is not
// treated as a backlog to catch up on.
func (s *Scheduler) rebase() {
	s.startTime = s.clock.Now()
	s.startCycle = s.now.Load()
	s.pacedCycle = s.startCycle
}
