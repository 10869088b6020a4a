package modules

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spocdev/spoc/components"
	"github.com/spocdev/spoc/depgraph"
	"github.com/spocdev/spoc/hooks"
)

// Mode controls how the importer reacts to code units it cannot locate.
type Mode string

const (
	// Strict makes missing code units an error.
	Strict Mode = "strict"
	// Loose downgrades missing code units to a logged skip.
	Loose Mode = "loose"
)

const (
	defaultInitSymbol     = "initialize"
	defaultTeardownSymbol = "teardown"
)

// ModuleInfo tracks one loaded slot module and its lifecycle state.
type ModuleInfo struct {
	Name           string
	Unit           Module
	Dependencies   []string
	InitSymbol     string
	TeardownSymbol string
	Initialized    bool

	discovered    []any
	recordedSlots bool
}

// symbol finds an exported lifecycle function by name. Exports of type
// func() error and func() are both accepted.
func (m *ModuleInfo) symbol(name string) (func() error, bool) {
	if name == "" {
		return nil, false
	}
	for _, exp := range m.Unit.Exports() {
		if exp.Name != name {
			continue
		}
		switch fn := exp.Value.(type) {
		case func() error:
			return fn, true
		case func():
			return func() error {
				fn()
				return nil
			}, true
		}
	}
	return nil, false
}

// HasInitialize reports whether the module exports its init symbol.
func (m *ModuleInfo) HasInitialize() bool {
	_, ok := m.symbol(m.InitSymbol)
	return ok
}

// HasTeardown reports whether the module exports its teardown symbol.
func (m *ModuleInfo) HasTeardown() bool {
	_, ok := m.symbol(m.TeardownSymbol)
	return ok
}

// Importer loads code units, caches them, wires their dependency graph and
// runs lifecycle hooks and init/teardown symbols in topological order.
//
// The importer is single-threaded cooperative: Load, Register, Startup,
// Shutdown and the cache maintenance calls must come from one goroutine at
// a time. After Startup the collected state is read-only.
type Importer struct {
	mode           Mode
	registry       *Registry
	hookRegistry   *hooks.Registry
	graph          *depgraph.Graph[string]
	cache          map[string]*ModuleInfo
	order          []string
	comps          map[string]map[string]any
	initSymbol     string
	teardownSymbol string
	beforeStartup  func() error
	afterShutdown  func() error
	logger         *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithMode sets strict or loose load behaviour.
func WithMode(mode Mode) Option {
	return func(i *Importer) {
		i.mode = mode
	}
}

// WithRegistry sets the host code-unit registry to resolve names against.
func WithRegistry(r *Registry) Option {
	return func(i *Importer) {
		i.registry = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Importer) {
		i.logger = l
	}
}

// WithLifecycleSymbols overrides the exported names looked up for module
// initialisation and teardown.
func WithLifecycleSymbols(initSymbol, teardownSymbol string) Option {
	return func(i *Importer) {
		i.initSymbol = initSymbol
		i.teardownSymbol = teardownSymbol
	}
}

// WithBeforeStartup sets a runtime-level hook invoked before any module
// initialisation.
func WithBeforeStartup(fn func() error) Option {
	return func(i *Importer) {
		i.beforeStartup = fn
	}
}

// WithAfterShutdown sets a runtime-level hook invoked after all module
// teardowns.
func WithAfterShutdown(fn func() error) Option {
	return func(i *Importer) {
		i.afterShutdown = fn
	}
}

// New creates an Importer. Defaults: strict mode, the process-wide Default
// registry, slog.Default().
func New(opts ...Option) *Importer {
	i := &Importer{
		mode:           Strict,
		registry:       Default,
		hookRegistry:   hooks.NewRegistry(),
		graph:          depgraph.New[string](),
		cache:          make(map[string]*ModuleInfo),
		comps:          make(map[string]map[string]any),
		initSymbol:     defaultInitSymbol,
		teardownSymbol: defaultTeardownSymbol,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Load resolves name against the host registry and caches it. A cached name
// returns its existing unit. In strict mode a missing unit is an error; in
// loose mode it returns nil and nothing is cached.
func (i *Importer) Load(name string) (Module, error) {
	if info, ok := i.cache[name]; ok {
		return info.Unit, nil
	}

	unit, ok := i.registry.Lookup(name)
	if !ok {
		if i.mode == Strict {
			return nil, fmt.Errorf("load %q; %w", name, ErrAppNotFound)
		}
		i.logger.Warn("skipping unknown module", "module", name)
		return nil, nil
	}

	i.cache[name] = &ModuleInfo{
		Name:           name,
		Unit:           unit,
		InitSymbol:     i.initSymbol,
		TeardownSymbol: i.teardownSymbol,
	}
	i.order = append(i.order, name)
	i.graph.AddNode(name)
	i.logger.Debug("module loaded", "module", name)
	return unit, nil
}

// Register loads name, loads each dependency, records the dependency list
// and adds a dep -> name edge for every dependency.
func (i *Importer) Register(name string, dependencies []string) error {
	unit, err := i.Load(name)
	if err != nil {
		return err
	}
	if unit == nil {
		// Loose-mode miss: the module is simply skipped.
		return nil
	}

	info := i.cache[name]
	info.Dependencies = append([]string(nil), dependencies...)

	for _, dep := range dependencies {
		if !i.Has(dep) {
			if _, err := i.Load(dep); err != nil {
				return err
			}
		}
		i.graph.AddEdge(dep, name)
	}
	return nil
}

// LoadFromURI resolves a dotted URI of the form "a.b.c.symbol": the module
// "a.b.c" is loaded and its exported symbol returned.
func (i *Importer) LoadFromURI(uri string) (any, error) {
	idx := strings.LastIndex(uri, ".")
	if idx <= 0 || idx == len(uri)-1 {
		return nil, fmt.Errorf("uri %q; %w", uri, ErrMalformedURI)
	}
	modulePath, symbol := uri[:idx], uri[idx+1:]

	unit, err := i.Load(modulePath)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, nil
	}

	for _, exp := range unit.Exports() {
		if exp.Name == symbol {
			return exp.Value, nil
		}
	}
	return nil, fmt.Errorf("module %q has no symbol %q; %w", modulePath, symbol, ErrSymbolNotFound)
}

// Has reports whether name is cached.
func (i *Importer) Has(name string) bool {
	_, ok := i.cache[name]
	return ok
}

// Get returns the cached unit for name.
func (i *Importer) Get(name string) (Module, error) {
	info, ok := i.cache[name]
	if !ok {
		return nil, fmt.Errorf("get %q; %w", name, ErrModuleNotCached)
	}
	return info.Unit, nil
}

// Info returns the cached ModuleInfo for name, or nil.
func (i *Importer) Info(name string) *ModuleInfo {
	return i.cache[name]
}

// Keys returns the cached module names in load order.
func (i *Importer) Keys() []string {
	out := make([]string, len(i.order))
	copy(out, i.order)
	return out
}

// Clear removes name from the cache. An initialised module is torn down
// first.
func (i *Importer) Clear(name string) error {
	info, ok := i.cache[name]
	if !ok {
		return nil
	}

	var err error
	if info.Initialized {
		if fn, ok := info.symbol(info.TeardownSymbol); ok {
			if terr := fn(); terr != nil {
				err = &LifecycleError{Phase: "shutdown", Module: name, Err: terr}
			} else {
				info.Initialized = false
			}
		}
	}

	delete(i.cache, name)
	for idx, n := range i.order {
		if n == name {
			i.order = append(i.order[:idx], i.order[idx+1:]...)
			break
		}
	}
	return err
}

// ClearAll clears every cached module.
func (i *Importer) ClearAll() error {
	var firstErr error
	for _, name := range i.Keys() {
		if err := i.Clear(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// UnloadAll shuts every module down, empties the cache and removes the
// cached names from the host registry.
func (i *Importer) UnloadAll() error {
	err := i.Shutdown()

	for _, name := range i.Keys() {
		i.registry.Remove(name)
	}
	i.cache = make(map[string]*ModuleInfo)
	i.order = nil
	i.graph = depgraph.New[string]()
	i.comps = make(map[string]map[string]any)
	return err
}

// RegisterHook binds startup/shutdown callbacks to an exact module name or
// a glob pattern.
func (i *Importer) RegisterHook(pattern string, hook hooks.Hook) error {
	return i.hookRegistry.Register(pattern, hook)
}

// Components returns the discovered components, keyed by slot name and then
// by "<app>.<export>".
func (i *Importer) Components() map[string]map[string]any {
	return i.comps
}

// discover enumerates the module's public exports and collects the tagged
// objects whose metadata type equals the module's slot name. Results are
// memoised per module; export order is preserved.
func (i *Importer) discover(info *ModuleInfo) []any {
	if info.recordedSlots {
		return info.discovered
	}
	info.recordedSlots = true

	pkg, slot := splitModuleName(info.Name)
	for _, exp := range info.Unit.Exports() {
		if strings.HasPrefix(exp.Name, "_") || strings.HasSuffix(exp.Name, "_") {
			continue
		}
		if !components.IsTagged(exp.Value) {
			continue
		}
		tagged, ok := exp.Value.(*components.Tagged)
		if ok {
			tagged.SetOrigin(info.Name, exp.Name)
		}

		var typeName string
		if carrier, ok := exp.Value.(components.Carrier); ok {
			typeName = carrier.ComponentTag().Type()
		}
		if typeName != slot {
			continue
		}

		info.discovered = append(info.discovered, exp.Value)
		if i.comps[slot] == nil {
			i.comps[slot] = make(map[string]any)
		}
		i.comps[slot][pkg+"."+exp.Name] = exp.Value
	}
	return info.discovered
}

// splitModuleName splits "auth.models" into ("auth", "models"). A name with
// no dot has an empty package part.
func splitModuleName(name string) (pkg, slot string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}

// Startup initialises all registered modules in dependency order: for each
// module the resolved startup hook runs first with the module's discovered
// components, then its init symbol. The first failure aborts; partial
// initialisation is not rolled back.
func (i *Importer) Startup() error {
	if i.beforeStartup != nil {
		if err := i.beforeStartup(); err != nil {
			return &LifecycleError{Phase: "startup", Err: err}
		}
	}

	order, err := i.graph.TopologicalSort()
	if err != nil {
		return err
	}
	i.logger.Debug("module startup order", "modules", order)

	for _, name := range order {
		info, ok := i.cache[name]
		if !ok {
			continue
		}

		hook := i.hookRegistry.Resolve(name)
		if !hook.IsZero() {
			objects := i.discover(info)
			if hook.Startup != nil {
				if err := hook.Startup(objects); err != nil {
					return &LifecycleError{Phase: "startup", Module: name, Err: err}
				}
			}
		}

		if fn, ok := info.symbol(info.InitSymbol); ok && !info.Initialized {
			if err := fn(); err != nil {
				return &LifecycleError{Phase: "startup", Module: name, Err: err}
			}
			info.Initialized = true
			i.logger.Debug("module initialized", "module", name)
		}
	}
	return nil
}

// Shutdown tears all modules down in reverse dependency order: for each
// module the teardown symbol runs first (if initialised), then the resolved
// shutdown hook. Errors are collected without aborting the sweep; the first
// one is returned after every module has been processed.
func (i *Importer) Shutdown() error {
	order, err := i.graph.Reversed().TopologicalSort()
	if err != nil {
		return err
	}

	var firstErr error
	keep := func(phaseErr error) {
		if firstErr == nil && phaseErr != nil {
			firstErr = phaseErr
		}
	}

	for _, name := range order {
		info, ok := i.cache[name]
		if !ok {
			continue
		}

		if info.Initialized {
			if fn, ok := info.symbol(info.TeardownSymbol); ok {
				if terr := fn(); terr != nil {
					i.logger.Error("module teardown failed", "module", name, "error", terr)
					keep(&LifecycleError{Phase: "shutdown", Module: name, Err: terr})
				} else {
					info.Initialized = false
					i.logger.Debug("module torn down", "module", name)
				}
			}
		}

		hook := i.hookRegistry.Resolve(name)
		if hook.Shutdown != nil {
			objects := i.discover(info)
			if herr := hook.Shutdown(objects); herr != nil {
				i.logger.Error("module shutdown hook failed", "module", name, "error", herr)
				keep(&LifecycleError{Phase: "shutdown", Module: name, Err: herr})
			}
		}
	}

	if i.afterShutdown != nil {
		keep(func() error {
			if err := i.afterShutdown(); err != nil {
				return &LifecycleError{Phase: "shutdown", Err: err}
			}
			return nil
		}())
	}
	return firstErr
}
