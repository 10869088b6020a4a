// Package hooks stores per-module lifecycle callbacks, bound either to an
// exact module name or to a glob-like pattern, and resolves the callbacks
// that apply to a given module.
package hooks

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyPattern is returned when registering an empty pattern.
var ErrEmptyPattern = errors.New("hook pattern must not be empty")

// Func is a lifecycle callback. It receives the tagged component objects
// discovered in the module the hook fires for.
type Func func(objects []any) error

// Hook pairs the startup and shutdown callbacks attached to a module.
// Either side may be nil.
type Hook struct {
	Startup  Func
	Shutdown Func
}

// IsZero reports whether the hook carries no callbacks.
func (h Hook) IsZero() bool {
	return h.Startup == nil && h.Shutdown == nil
}

type patternBinding struct {
	pattern string
	re      *regexp.Regexp
	hook    Hook
}

// Registry holds exact-name and pattern hook bindings.
// A module name resolves to at most one exact binding; if none exists, every
// matching pattern applies, with later registrations overriding earlier ones
// per phase. Registry is not safe for concurrent use; the importer mutates
// it only during configuration.
type Registry struct {
	exact    map[string]Hook
	patterns []patternBinding
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{
		exact: make(map[string]Hook),
	}
}

// IsPattern reports whether key would be stored as a pattern binding.
func IsPattern(key string) bool {
	return strings.ContainsAny(key, "*?")
}

// compilePattern translates a glob-like pattern into an anchored regexp:
// `.` is literal, `*` matches any run of characters, `?` matches one.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// Register binds hook to key. A key containing `*` or `?` becomes a pattern
// binding; anything else is an exact binding. Registering the same key again
// overwrites the previous binding in place.
func (r *Registry) Register(key string, hook Hook) error {
	if key == "" {
		return ErrEmptyPattern
	}

	if !IsPattern(key) {
		r.exact[key] = hook
		return nil
	}

	re, err := compilePattern(key)
	if err != nil {
		return fmt.Errorf("invalid hook pattern %q; %w", key, err)
	}
	for i := range r.patterns {
		if r.patterns[i].pattern == key {
			r.patterns[i].hook = hook
			r.patterns[i].re = re
			return nil
		}
	}
	r.patterns = append(r.patterns, patternBinding{pattern: key, re: re, hook: hook})
	return nil
}

// Unregister removes the binding for key, exact or pattern.
func (r *Registry) Unregister(key string) {
	if !IsPattern(key) {
		delete(r.exact, key)
		return
	}
	for i := range r.patterns {
		if r.patterns[i].pattern == key {
			r.patterns = append(r.patterns[:i], r.patterns[i+1:]...)
			return
		}
	}
}

// Resolve returns the hook that applies to module. An exact binding wins
// outright. Otherwise all matching patterns are merged in insertion order,
// later matches overriding earlier ones for the same phase.
func (r *Registry) Resolve(module string) Hook {
	if h, ok := r.exact[module]; ok {
		return h
	}

	var merged Hook
	for _, pb := range r.patterns {
		if !pb.re.MatchString(module) {
			continue
		}
		if pb.hook.Startup != nil {
			merged.Startup = pb.hook.Startup
		}
		if pb.hook.Shutdown != nil {
			merged.Shutdown = pb.hook.Shutdown
		}
	}
	return merged
}
