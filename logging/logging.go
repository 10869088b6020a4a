// Package logging owns the runtime's logger lifecycle. A Manager starts in
// bootstrap mode (text to stderr) before any configuration is read, and
// upgrades in place to stderr-plus-rotated-JSON-file once the project
// config is known. Loggers obtained earlier stay valid across the upgrade,
// including loggers derived with extra attributes or groups: derivations
// are replayed against whichever base handler is current at record time.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotated log file used in full mode.
type FileOptions struct {
	// Path of the log file. Parent directories are created.
	Path string

	// MaxSizeMB rotates the file once it exceeds this size. Default 50.
	MaxSizeMB int

	// MaxBackups bounds the rotated files kept. Default 3.
	MaxBackups int
}

// Manager handles the bootstrap-to-full logger transition. It owns the
// base slog.Handler and swaps it atomically on Upgrade; every logger the
// manager hands out resolves the base lazily, so the swap reaches them
// all.
type Manager struct {
	base   atomic.Pointer[slog.Handler]
	logger *slog.Logger
	level  *slog.LevelVar
	file   *lumberjack.Logger
	mu     sync.Mutex
}

// NewManager creates a manager in bootstrap mode.
func NewManager() *Manager {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	m := &Manager{level: level}
	m.swap(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	m.logger = slog.New(&managedHandler{manager: m})
	return m
}

func (m *Manager) swap(h slog.Handler) {
	m.base.Store(&h)
}

func (m *Manager) current() slog.Handler {
	return *m.base.Load()
}

// Logger returns the process logger. Stable across Upgrade calls.
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

// Upgrade switches to full mode: text to stderr plus JSON to a rotated
// file, at the given level.
func (m *Manager) Upgrade(file FileOptions, level slog.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if file.Path == "" {
		return fmt.Errorf("log file path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(file.Path), 0755); err != nil {
		return fmt.Errorf("create log directory; %w", err)
	}

	if file.MaxSizeMB <= 0 {
		file.MaxSizeMB = 50
	}
	if file.MaxBackups <= 0 {
		file.MaxBackups = 3
	}

	if m.file != nil {
		_ = m.file.Close()
	}
	m.file = &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
	}

	m.level.Set(level)
	opts := &slog.HandlerOptions{Level: m.level}

	m.swap(slogmulti.Fanout(
		slog.NewTextHandler(os.Stderr, opts),
		slog.NewJSONHandler(m.file, opts),
	))
	return nil
}

// SetLevel changes the log level at runtime.
func (m *Manager) SetLevel(level slog.Level) {
	m.level.Set(level)
}

// Close releases the log file, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file != nil {
		err := m.file.Close()
		m.file = nil
		return err
	}
	return nil
}

// DefaultLevel is the level used when none is configured.
const DefaultLevel = slog.LevelInfo

// ParseLevel converts a configured level name ("debug", "info", "warn",
// "error"; case-insensitive) to its slog.Level. Unrecognised names yield
// DefaultLevel with ok false.
func ParseLevel(s string) (level slog.Level, ok bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return DefaultLevel, false
}

// derivation is one WithAttrs or WithGroup step applied to the base.
type derivation func(slog.Handler) slog.Handler

// managedHandler is the slog.Handler behind every logger a Manager hands
// out. It holds no handler itself: each call resolves the manager's
// current base and replays its recorded derivations, so attribute- and
// group-scoped loggers created in bootstrap mode pick up the full-mode
// handler the moment Upgrade swaps it in.
type managedHandler struct {
	manager     *Manager
	derivations []derivation
}

func (h *managedHandler) resolve() slog.Handler {
	out := h.manager.current()
	for _, d := range h.derivations {
		out = d(out)
	}
	return out
}

func (h *managedHandler) derive(d derivation) slog.Handler {
	derivations := make([]derivation, len(h.derivations)+1)
	copy(derivations, h.derivations)
	derivations[len(h.derivations)] = d
	return &managedHandler{manager: h.manager, derivations: derivations}
}

// Enabled reports whether the resolved handler handles the given level.
func (h *managedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.resolve().Enabled(ctx, level)
}

// Handle forwards the record to the resolved handler.
func (h *managedHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

// WithAttrs records an attribute derivation.
func (h *managedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(base slog.Handler) slog.Handler {
		return base.WithAttrs(attrs)
	})
}

// WithGroup records a group derivation.
func (h *managedHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(base slog.Handler) slog.Handler {
		return base.WithGroup(name)
	})
}
