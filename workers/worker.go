// Package workers provides the uniform lifecycle for long-running workers
// (goroutine- or subprocess-backed) and the signal-aware Server that
// supervises them.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrMethodNotFound is returned when a worker is built without a required
// method, such as its main body.
var ErrMethodNotFound = errors.New("required worker method missing")

// EventType identifies a worker lifecycle event.
type EventType string

const (
	// EventStartup fires once before setup and the main body.
	EventStartup EventType = "startup"

	// EventError fires when the main body (or setup) returns an error.
	EventError EventType = "error"

	// EventShutdown fires once after teardown, even after an error.
	EventShutdown EventType = "shutdown"
)

// Event is one worker lifecycle notification.
type Event struct {
	Type EventType
	Err  error // set for EventError
}

// State is a worker's lifecycle state. Transitions are monotonic; a
// Stopped worker is not reusable.
type State int32

const (
	// StateCreated is the initial state.
	StateCreated State = iota
	// StateRunning means the backing task has started.
	StateRunning
	// StateStopping means the stop signal is raised but the body has not
	// finished.
	StateStopping
	// StateStopped is terminal.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// BodyFunc is a worker body. A cooperative body returns promptly once its
// context is cancelled (the context is cancelled when the stop signal is
// raised).
type BodyFunc func(ctx context.Context) error

// EventFunc observes worker lifecycle events.
type EventFunc func(event Event)

// Worker is one supervised long-running task. The zero value is not
// usable; construct with NewThread or NewProcess.
type Worker struct {
	name    string
	id      uuid.UUID
	scratch map[string]any

	stop StopSignal
	task BackingTask

	setup    BodyFunc
	main     BodyFunc
	teardown BodyFunc
	onEvent  EventFunc

	logger *slog.Logger
	state  atomic.Int32
}

// Option configures a Worker.
type Option func(*Worker)

// WithSetup sets the callback invoked inside the worker before main.
func WithSetup(fn BodyFunc) Option {
	return func(w *Worker) {
		w.setup = fn
	}
}

// WithTeardown sets the callback invoked inside the worker after main,
// always, even when main errored.
func WithTeardown(fn BodyFunc) Option {
	return func(w *Worker) {
		w.teardown = fn
	}
}

// WithEvents sets the lifecycle event observer.
func WithEvents(fn EventFunc) Option {
	return func(w *Worker) {
		w.onEvent = fn
	}
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(l *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = l
	}
}

// NewThread creates a goroutine-backed worker running main.
func NewThread(name string, main BodyFunc, opts ...Option) (*Worker, error) {
	return newWorker(name, main, newGoroutineTask(), NewStopSignal(), opts...)
}

func newWorker(name string, main BodyFunc, task BackingTask, stop StopSignal, opts ...Option) (*Worker, error) {
	if main == nil {
		return nil, fmt.Errorf("worker %q has no main; %w", name, ErrMethodNotFound)
	}

	w := &Worker{
		name:    name,
		id:      uuid.New(),
		scratch: make(map[string]any),
		stop:    stop,
		task:    task,
		main:    main,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("worker", name, "worker_id", w.id.String())
	return w, nil
}

// Name returns the worker name.
func (w *Worker) Name() string {
	return w.name
}

// ID returns the worker instance id.
func (w *Worker) ID() uuid.UUID {
	return w.id
}

// Context is the worker's opaque scratch namespace, shared between setup,
// main, teardown and the event observer. The worker alone touches it.
func (w *Worker) Context() map[string]any {
	return w.scratch
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// IsRunning reports whether the stop signal is unraised.
func (w *Worker) IsRunning() bool {
	return !w.stop.IsSet()
}

// StopSignal exposes the worker's stop signal.
func (w *Worker) StopSignal() StopSignal {
	return w.stop
}

// Start launches the backing task. Starting twice, or after a Stop issued
// while running, is an error. A Stop issued before the first Start does not
// block it: the body then starts with the stop signal already raised.
func (w *Worker) Start() error {
	if !w.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return fmt.Errorf("worker %q already started (state %s)", w.name, w.State())
	}
	w.logger.Debug("worker starting")
	w.task.Start(w.run)
	return nil
}

// Stop raises the stop signal. Non-blocking and idempotent; a cooperative
// main observing IsRunning (or its context) will exit.
func (w *Worker) Stop() {
	w.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
	w.stop.Set()
}

// Join waits up to timeout for the worker body to finish.
func (w *Worker) Join(timeout time.Duration) bool {
	return w.task.Join(timeout)
}

// emit delivers one lifecycle event; observer panics are contained so the
// worker always reaches teardown and shutdown.
func (w *Worker) emit(event Event) {
	if w.onEvent == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker event observer panicked", "event", event.Type, "panic", r)
		}
	}()
	w.onEvent(event)
}

// run is the worker body executed inside the backing task: startup event,
// setup, main, then always teardown and the shutdown event. Errors from
// setup or main surface as an error event; a cancellation is treated as a
// plain stop.
func (w *Worker) run() {
	defer w.state.Store(int32(StateStopped))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-w.stop.Done()
		cancel()
	}()

	w.emit(Event{Type: EventStartup})

	var bodyErr error
	if w.setup != nil {
		bodyErr = w.setup(ctx)
	}
	if bodyErr == nil {
		bodyErr = w.main(ctx)
	}
	if bodyErr != nil && !errors.Is(bodyErr, context.Canceled) {
		w.logger.Error("worker body failed", "error", bodyErr)
		w.emit(Event{Type: EventError, Err: bodyErr})
	}

	if w.teardown != nil {
		if err := w.teardown(ctx); err != nil {
			w.logger.Error("worker teardown failed", "error", err)
		}
	}

	w.stop.Set()
	w.emit(Event{Type: EventShutdown})
	w.logger.Debug("worker stopped")
}
