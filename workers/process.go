package workers

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"
)

// processTask backs a worker whose payload is a subprocess. The lifecycle
// body still runs in a supervising goroutine; Terminate kills the child.
type processTask struct {
	*goroutineTask
	cmd *exec.Cmd
}

// Terminate implements Terminator by killing the subprocess.
func (t *processTask) Terminate() error {
	if t.cmd.Process == nil {
		return nil
	}
	return t.cmd.Process.Kill()
}

// NewProcess creates a worker whose main body runs cmd to completion. The
// stop signal is relayed to the child as SIGTERM, the cross-process
// equivalent of the in-process signal; Terminate (used by the server for
// join laggards) kills it outright. Setup, teardown and lifecycle events
// run in the supervising process.
func NewProcess(name string, cmd *exec.Cmd, opts ...Option) (*Worker, error) {
	if cmd == nil {
		return nil, fmt.Errorf("worker %q has no command; %w", name, ErrMethodNotFound)
	}

	task := &processTask{goroutineTask: newGoroutineTask(), cmd: cmd}

	main := func(ctx context.Context) error {
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start %q; %w", cmd.Path, err)
		}

		waitCh := make(chan error, 1)
		go func() {
			waitCh <- cmd.Wait()
		}()

		select {
		case err := <-waitCh:
			if ctx.Err() != nil {
				// Stopped cooperatively; exit status is not an error.
				return nil
			}
			return err
		case <-ctx.Done():
			_ = cmd.Process.Signal(syscall.SIGTERM)
			<-waitCh
			return nil
		}
	}

	return newWorker(name, main, task, NewStopSignal(), opts...)
}
