// Package spoc is a pluggable application runtime: it discovers feature
// packages ("apps") declared by a project, loads a fixed set of named slot
// modules from each, resolves inter-slot dependencies, runs lifecycle
// callbacks in topological order at startup and in reverse at shutdown,
// and exposes the collected tagged components and plugin groups through a
// process-wide facade.
//
// A process normally builds the facade exactly once:
//
//	framework, err := spoc.Init(spoc.Options{
//		BaseDir: baseDir,
//		Schema: apps.Schema{
//			Slots:        []string{"models", "views"},
//			Dependencies: map[string][]string{"views": {"models"}},
//		},
//	})
//
// Later callers reach the same instance through spoc.Get.
package spoc

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrNotInitialized is returned by Get before Init has succeeded.
var ErrNotInitialized = errors.New("spoc framework not initialized")

var (
	instance atomic.Pointer[Framework]
	initMu   sync.Mutex
)

// Init builds the process-wide framework. The first successful call wins;
// later calls return the existing instance untouched. Construction is
// guarded by a mutex with a lock-free fast path for the already-built
// case.
func Init(opts Options) (*Framework, error) {
	if fw := instance.Load(); fw != nil {
		return fw, nil
	}

	initMu.Lock()
	defer initMu.Unlock()

	if fw := instance.Load(); fw != nil {
		return fw, nil
	}

	fw, err := New(opts)
	if err != nil {
		return nil, err
	}
	instance.Store(fw)
	return fw, nil
}

// Get returns the process-wide framework built by Init.
func Get() (*Framework, error) {
	fw := instance.Load()
	if fw == nil {
		return nil, ErrNotInitialized
	}
	return fw, nil
}

// Reset shuts the process-wide framework down and clears the instance so a
// fresh Init can run. Intended for tests.
func Reset() error {
	initMu.Lock()
	defer initMu.Unlock()

	fw := instance.Swap(nil)
	if fw == nil {
		return nil
	}
	return fw.Shutdown()
}
