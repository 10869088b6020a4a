package workers

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
)

// stopPollInterval is the coarse wake-up the server main loop uses so it
// can observe stop-flag updates made from signal handlers.
const stopPollInterval = 500 * time.Millisecond

// Server owns an ordered list of workers and translates OS signals into an
// orderly shutdown. Workers are added before Start; signal handlers only
// ever set the server's stop flag.
type Server struct {
	name    string
	workers []*Worker
	stop    StopSignal
	logger  *slog.Logger

	joinTimeout time.Duration
	stopOnce    sync.Once
	started     bool
	mu          sync.Mutex
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithJoinTimeout sets the total wall-clock budget RunForever grants
// JoinAll during shutdown. Default 30s.
func WithJoinTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.joinTimeout = d
	}
}

// NewServer creates a server with no workers.
func NewServer(name string, opts ...ServerOption) *Server {
	s := &Server{
		name:        name,
		stop:        NewStopSignal(),
		logger:      slog.Default(),
		joinTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("server", name)
	return s
}

// Add appends workers to the supervision list. Must be called before
// Start.
func (s *Server) Add(workers ...*Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, workers...)
}

// Workers returns the supervised workers in order.
func (s *Server) Workers() []*Worker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Worker, len(s.workers))
	copy(out, s.workers)
	return out
}

// Start starts every worker in order. The first failure stops the sweep.
func (s *Server) Start() error {
	s.mu.Lock()
	s.started = true
	workers := make([]*Worker, len(s.workers))
	copy(workers, s.workers)
	s.mu.Unlock()

	for _, w := range workers {
		if err := w.Start(); err != nil {
			return fmt.Errorf("start worker %q; %w", w.Name(), err)
		}
		s.logger.Info("worker started", "worker", w.Name())
	}
	return nil
}

// Stop raises the server stop flag and signals every worker to stop.
// Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("server stopping")
		s.stop.Set()
		for _, w := range s.Workers() {
			w.Stop()
		}
	})
}

// JoinAll joins each worker in order, spending the remaining share of the
// total wall-clock budget on each. A worker still alive after its slice is
// terminated when its backing task supports it.
func (s *Server) JoinAll(total time.Duration) {
	deadline := time.Now().Add(total)

	for _, w := range s.Workers() {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		if w.Join(remaining) {
			continue
		}

		s.logger.Warn("worker did not stop in time", "worker", w.Name())
		if term, ok := w.task.(Terminator); ok {
			if err := term.Terminate(); err != nil {
				s.logger.Error("worker termination failed", "worker", w.Name(), "error", err)
			}
		}
	}
}

// RunForever starts the workers, blocks until the stop flag is raised by a
// signal or by Stop, then shuts everything down within the join budget.
// Readiness and stop are reported to the service manager when one is
// listening.
func (s *Server) RunForever() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := s.Start(); err != nil {
		return err
	}
	if _, err := sd.SdNotify(false, sd.SdNotifyReady); err != nil {
		s.logger.Debug("sd_notify ready failed", "error", err)
	}

	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

	for !s.stop.IsSet() {
		select {
		case sig := <-sigCh:
			s.logger.Info("signal received", "signal", sig.String())
			s.stop.Set()
		case <-s.stop.Done():
		case <-ticker.C:
		}
	}

	if _, err := sd.SdNotify(false, sd.SdNotifyStopping); err != nil {
		s.logger.Debug("sd_notify stopping failed", "error", err)
	}

	s.Stop()
	s.JoinAll(s.joinTimeout)
	s.logger.Info("server stopped")
	return nil
}
