package modules

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spocdev/spoc/components"
	"github.com/spocdev/spoc/depgraph"
	"github.com/spocdev/spoc/hooks"
)

// lifecycleModule builds a Static module whose initialize/teardown record
// their invocations into calls.
func lifecycleModule(name string, calls *[]string) Static {
	return Static{
		{Name: "initialize", Value: func() error {
			*calls = append(*calls, "init:"+name)
			return nil
		}},
		{Name: "teardown", Value: func() error {
			*calls = append(*calls, "teardown:"+name)
			return nil
		}},
	}
}

func newTestImporter(t *testing.T, opts ...Option) (*Importer, *Registry) {
	t.Helper()
	reg := NewRegistry()
	opts = append([]Option{WithRegistry(reg)}, opts...)
	return New(opts...), reg
}

func TestLoad_StrictMissing(t *testing.T) {
	imp, _ := newTestImporter(t)
	_, err := imp.Load("ghost.models")
	if !errors.Is(err, ErrAppNotFound) {
		t.Fatalf("Load() error = %v, want ErrAppNotFound", err)
	}
}

func TestLoad_LooseMissingSkips(t *testing.T) {
	imp, _ := newTestImporter(t, WithMode(Loose))
	unit, err := imp.Load("ghost.models")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil in loose mode", err)
	}
	if unit != nil {
		t.Fatalf("Load() = %v, want nil", unit)
	}
	if imp.Has("ghost.models") {
		t.Error("loose-mode miss must not be cached")
	}
}

func TestLoad_CachedIsNoOp(t *testing.T) {
	var calls []string
	imp, reg := newTestImporter(t)
	reg.Provide("a.models", lifecycleModule("a", &calls))

	if _, err := imp.Load("a.models"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := imp.Load("a.models"); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if got := len(imp.Keys()); got != 1 {
		t.Errorf("len(Keys()) = %d, want 1", got)
	}
}

func TestGet_NotCached(t *testing.T) {
	imp, _ := newTestImporter(t)
	_, err := imp.Get("a.models")
	if !errors.Is(err, ErrModuleNotCached) {
		t.Fatalf("Get() error = %v, want ErrModuleNotCached", err)
	}
}

func TestStartupShutdown_Order(t *testing.T) {
	var calls []string
	imp, reg := newTestImporter(t)
	reg.Provide("a", lifecycleModule("a", &calls))
	reg.Provide("b", lifecycleModule("b", &calls))
	reg.Provide("c", lifecycleModule("c", &calls))

	// a -> b -> c
	if err := imp.Register("b", []string{"a"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := imp.Register("c", []string{"b"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := imp.Startup(); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	want := []string{"init:a", "init:b", "init:c"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Fatalf("startup calls = %v, want %v", calls, want)
	}

	calls = nil
	if err := imp.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	want = []string{"teardown:c", "teardown:b", "teardown:a"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Fatalf("shutdown calls = %v, want %v", calls, want)
	}
}

func TestStartup_CircularDependency(t *testing.T) {
	var calls []string
	imp, reg := newTestImporter(t)
	reg.Provide("m1", lifecycleModule("m1", &calls))
	reg.Provide("m2", lifecycleModule("m2", &calls))

	if err := imp.Register("m1", []string{"m2"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := imp.Register("m2", []string{"m1"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err := imp.Startup()
	var cycleErr *depgraph.CycleError[string]
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Startup() error = %v, want *depgraph.CycleError", err)
	}
	if len(cycleErr.Cycle) != 3 {
		t.Errorf("cycle = %v, want length 3", cycleErr.Cycle)
	}
	if len(calls) != 0 {
		t.Errorf("no module must initialize on a cyclic graph, got %v", calls)
	}
}

func TestStartup_FailureAbortsWithoutRollback(t *testing.T) {
	var calls []string
	imp, reg := newTestImporter(t)
	reg.Provide("a", lifecycleModule("a", &calls))
	reg.Provide("b", Static{
		{Name: "initialize", Value: func() error { return errors.New("boom") }},
	})
	reg.Provide("c", lifecycleModule("c", &calls))

	_ = imp.Register("b", []string{"a"})
	_ = imp.Register("c", []string{"b"})

	err := imp.Startup()
	var lcErr *LifecycleError
	if !errors.As(err, &lcErr) {
		t.Fatalf("Startup() error = %v, want *LifecycleError", err)
	}
	if lcErr.Module != "b" {
		t.Errorf("LifecycleError.Module = %q, want b", lcErr.Module)
	}

	// `initialized` is true exactly for the modules already processed.
	if !imp.Info("a").Initialized {
		t.Error("module a should remain initialized (no rollback)")
	}
	if imp.Info("b").Initialized {
		t.Error("module b must not be initialized after its failure")
	}
	if imp.Info("c").Initialized {
		t.Error("module c must never have initialized")
	}
}

func TestStartup_NeverReinitializes(t *testing.T) {
	var calls []string
	imp, reg := newTestImporter(t)
	reg.Provide("a", lifecycleModule("a", &calls))
	_ = imp.Register("a", nil)

	if err := imp.Startup(); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}
	if err := imp.Startup(); err != nil {
		t.Fatalf("second Startup() error = %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("initialize ran %d times, want 1 (calls=%v)", len(calls), calls)
	}
}

func TestShutdown_CollectsErrorsAndContinues(t *testing.T) {
	var calls []string
	imp, reg := newTestImporter(t)
	reg.Provide("a", lifecycleModule("a", &calls))
	reg.Provide("b", Static{
		{Name: "initialize", Value: func() error { return nil }},
		{Name: "teardown", Value: func() error { return errors.New("teardown-boom") }},
	})
	_ = imp.Register("b", []string{"a"})

	if err := imp.Startup(); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}

	err := imp.Shutdown()
	var lcErr *LifecycleError
	if !errors.As(err, &lcErr) {
		t.Fatalf("Shutdown() error = %v, want *LifecycleError", err)
	}
	if lcErr.Module != "b" {
		t.Errorf("LifecycleError.Module = %q, want b", lcErr.Module)
	}
	// a tore down even though b failed first in reverse order.
	if fmt.Sprint(calls) != fmt.Sprint([]string{"init:a", "teardown:a"}) {
		t.Errorf("calls = %v, want a torn down after b's failure", calls)
	}
}

func TestClear_TeardownExactlyOnce(t *testing.T) {
	teardowns := 0
	imp, reg := newTestImporter(t)
	reg.Provide("a", Static{
		{Name: "initialize", Value: func() error { return nil }},
		{Name: "teardown", Value: func() error { teardowns++; return nil }},
	})
	_ = imp.Register("a", nil)
	if err := imp.Startup(); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}

	if err := imp.Clear("a"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := imp.Clear("a"); err != nil {
		t.Fatalf("second Clear() error = %v", err)
	}
	if teardowns != 1 {
		t.Errorf("teardown ran %d times, want 1", teardowns)
	}
	if imp.Has("a") {
		t.Error("Has(a) = true after Clear")
	}
}

func TestUnloadAll_RemovesFromHostRegistry(t *testing.T) {
	var calls []string
	imp, reg := newTestImporter(t)
	reg.Provide("a.models", lifecycleModule("a", &calls))
	_ = imp.Register("a.models", nil)
	if err := imp.Startup(); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}

	if err := imp.UnloadAll(); err != nil {
		t.Fatalf("UnloadAll() error = %v", err)
	}
	if imp.Has("a.models") {
		t.Error("cache not emptied")
	}
	if _, ok := reg.Lookup("a.models"); ok {
		t.Error("host registry still holds a.models")
	}
}

func TestLoadFromURI(t *testing.T) {
	imp, reg := newTestImporter(t)
	middleware := func() error { return nil }
	reg.Provide("demo.extras", Static{
		{Name: "middleware", Value: middleware},
	})

	v, err := imp.LoadFromURI("demo.extras.middleware")
	if err != nil {
		t.Fatalf("LoadFromURI() error = %v", err)
	}
	if v == nil {
		t.Fatal("LoadFromURI() returned nil value")
	}

	if _, err := imp.LoadFromURI("nodots"); !errors.Is(err, ErrMalformedURI) {
		t.Errorf("LoadFromURI(nodots) error = %v, want ErrMalformedURI", err)
	}
	if _, err := imp.LoadFromURI("demo.extras.missing"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("LoadFromURI(missing symbol) error = %v, want ErrSymbolNotFound", err)
	}
}

func TestHookReceivesDiscoveredComponents(t *testing.T) {
	catalogue := components.NewCatalogue("models", "views")

	user := catalogue.MustRegister("models", struct{ Table string }{"users"}, nil)
	role := catalogue.MustRegister("models", struct{ Table string }{"roles"}, nil)
	view := catalogue.MustRegister("views", struct{ Page string }{"index"}, nil)

	imp, reg := newTestImporter(t)
	reg.Provide("auth.models", Static{
		{Name: "UserAccount", Value: user},
		{Name: "Role", Value: role},
		{Name: "IndexView", Value: view},     // wrong kind for this slot
		{Name: "_hidden", Value: user},       // leading underscore skipped
		{Name: "trailing_", Value: user},     // trailing underscore skipped
		{Name: "Plain", Value: struct{}{}},   // untagged
		{Name: "initialize", Value: func() error { return nil }},
	})
	_ = imp.Register("auth.models", nil)

	var seen []any
	err := imp.RegisterHook("*.models", hooks.Hook{
		Startup: func(objects []any) error {
			seen = append(seen, objects...)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("RegisterHook() error = %v", err)
	}

	if err := imp.Startup(); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("hook received %d objects, want 2 (got %v)", len(seen), seen)
	}

	comps := imp.Components()
	if len(comps["models"]) != 2 {
		t.Fatalf("components[models] = %v, want 2 entries", comps["models"])
	}
	if _, ok := comps["models"]["auth.UserAccount"]; !ok {
		t.Error(`missing key "auth.UserAccount" in discovered components`)
	}
	if _, ok := comps["models"]["auth.Role"]; !ok {
		t.Error(`missing key "auth.Role" in discovered components`)
	}

	rec, err := catalogue.Describe(user)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if rec.App != "auth" || rec.URI != "auth_user_account" {
		t.Errorf("record = %+v, want app=auth uri=auth_user_account", rec)
	}
}

func TestResolverScenario_TwoApps(t *testing.T) {
	// auth+demo with models/views, views depends on models; startup order
	// interleaves the independent model slots in insertion order.
	var calls []string
	imp, reg := newTestImporter(t)
	for _, app := range []string{"auth", "demo"} {
		reg.Provide(app+".models", lifecycleModule(app+".models", &calls))
		reg.Provide(app+".views", lifecycleModule(app+".views", &calls))
	}

	for _, app := range []string{"auth", "demo"} {
		if err := imp.Register(app+".models", nil); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if err := imp.Register(app+".views", []string{app + ".models"}); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	if err := imp.Startup(); err != nil {
		t.Fatalf("Startup() error = %v", err)
	}

	want := []string{
		"init:auth.models",
		"init:demo.models",
		"init:auth.views",
		"init:demo.views",
	}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Fatalf("startup calls = %v, want %v", calls, want)
	}
}
