package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/repodesk/repodesk/internal/orchestrator"
)

const defaultBuffer = 64

// ErrClosed is returned by Submit once Close has been called.
var ErrClosed = errors.New("runner: closed")

// EventKind identifies the stage of a task an Event reports.
type EventKind string

const (
	EventStarted  EventKind = "started"
	EventProgress EventKind = "progress"
	EventCloned   EventKind = "cloned"
	EventFinished EventKind = "finished"
)

// Task is a unit of background work. Keys name the resources (working copy
// paths, the import directory) the task must hold exclusively while it runs.
type Task struct {
	Name string
	Keys []string
	Run  func(ctx context.Context, rep orchestrator.Reporter) orchestrator.Outcome
}

// Event is delivered on the runner channel. Seq increases by one per event of
// the same task, starting at zero for EventStarted.
type Event struct {
	TaskID  string
	Task    string
	Seq     int
	Kind    EventKind
	Message string
	Path    string
	Outcome orchestrator.Outcome
}

// Runner executes tasks in the background and funnels their progress into a
// single event channel. Tasks cannot be cancelled once submitted.
type Runner struct {
	events  chan Event
	locks   *PathLocks
	metrics *Metrics
	log     *slog.Logger

	group  errgroup.Group
	mu     sync.Mutex
	closed bool
	once   sync.Once
}

// Option customises a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for task lifecycle messages.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithMetrics records task counters on m.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithBuffer sets the capacity of the event channel.
func WithBuffer(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.events = make(chan Event, n)
		}
	}
}

// New returns a Runner ready to accept tasks.
func New(opts ...Option) *Runner {
	r := &Runner{
		events: make(chan Event, defaultBuffer),
		locks:  NewPathLocks(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events returns the channel every task reports on. It is closed by Close.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// Submit starts task in its own goroutine and returns its id immediately.
// Cancellation of ctx is not propagated to the task.
func (r *Runner) Submit(ctx context.Context, task Task) (string, error) {
	if task.Run == nil {
		return "", fmt.Errorf("task %q has no procedure", task.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}

	id := uuid.NewString()
	runCtx := context.WithoutCancel(ctx)

	if r.metrics != nil {
		r.metrics.submitted(task.Name)
	}

	r.group.Go(func() error {
		r.execute(runCtx, id, task)
		return nil
	})

	return id, nil
}

func (r *Runner) execute(ctx context.Context, id string, task Task) {
	rep := &taskReporter{runner: r, id: id, name: task.Name}

	unlock := r.locks.Lock(task.Keys)
	defer unlock()

	if r.metrics != nil {
		r.metrics.started()
	}
	if r.log != nil {
		r.log.Debug("task started", "task", task.Name, "task_id", id, "keys", task.Keys)
	}
	rep.emit(Event{Kind: EventStarted})

	out := runProtected(ctx, task, rep)

	if r.metrics != nil {
		r.metrics.finished(task.Name, out.Status)
	}
	if r.log != nil {
		if out.Succeeded() {
			r.log.Info("task finished", "task", task.Name, "task_id", id, "message", out.Message)
		} else {
			r.log.Warn("task failed", "task", task.Name, "task_id", id, "category", out.Category, "message", out.Message, "detail", out.Detail)
		}
	}
	rep.emit(Event{Kind: EventFinished, Message: out.Message, Path: out.Path, Outcome: out})
}

func runProtected(ctx context.Context, task Task, rep orchestrator.Reporter) (out orchestrator.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = orchestrator.Failure(orchestrator.CategoryInternal, fmt.Sprintf("task %s panicked", task.Name), fmt.Errorf("%v", p))
		}
	}()
	return task.Run(ctx, rep)
}

// Wait blocks until every submitted task has delivered its finished event.
func (r *Runner) Wait() {
	_ = r.group.Wait()
}

// Close rejects new tasks, waits for running ones and closes the event channel.
func (r *Runner) Close() {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		r.Wait()
		close(r.events)
	})
}

type taskReporter struct {
	runner *Runner
	id     string
	name   string

	mu  sync.Mutex
	seq int
}

func (t *taskReporter) Progress(message string) {
	t.emit(Event{Kind: EventProgress, Message: message})
}

func (t *taskReporter) Cloned(path string) {
	t.emit(Event{Kind: EventCloned, Path: path})
}

func (t *taskReporter) emit(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ev.TaskID = t.id
	ev.Task = t.name
	ev.Seq = t.seq
	t.seq++
	t.runner.events <- ev
}
