package workers

import "sync"

// StopSignal is the primitive a worker body observes to know it should
// exit. Implementations must be observable from the worker's execution
// context: in-process workers share memory, subprocess workers get an OS
// signal relayed by their supervisor goroutine.
type StopSignal interface {
	// Set raises the signal. Idempotent.
	Set()

	// IsSet reports whether the signal has been raised.
	IsSet() bool

	// Done returns a channel closed once the signal is raised.
	Done() <-chan struct{}
}

// stopSignal is the in-process StopSignal.
type stopSignal struct {
	once sync.Once
	ch   chan struct{}
}

// NewStopSignal creates an unraised in-process stop signal.
func NewStopSignal() StopSignal {
	return &stopSignal{ch: make(chan struct{})}
}

func (s *stopSignal) Set() {
	s.once.Do(func() {
		close(s.ch)
	})
}

func (s *stopSignal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

func (s *stopSignal) Done() <-chan struct{} {
	return s.ch
}
