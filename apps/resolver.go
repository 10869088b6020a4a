// Package apps expands the installed-app list for the active mode and
// registers every app/slot pair, with its dependencies and hooks, against
// the importer.
package apps

import (
	"fmt"

	"github.com/spocdev/spoc/hooks"
	"github.com/spocdev/spoc/modules"
)

// Mode names the application mode driving the app-list expansion.
type Mode string

const (
	// Production enables only the production app list.
	Production Mode = "production"
	// Staging enables the production and staging app lists.
	Staging Mode = "staging"
	// Development enables the production, staging and development lists.
	Development Mode = "development"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case Production, Staging, Development:
		return true
	}
	return false
}

// Schema declares the fixed slot modules every app may provide, the
// dependencies between slots, and the hooks bound to each slot.
type Schema struct {
	// Slots are the module names loaded from each app, in declaration
	// order (e.g. "models", "views", "commands").
	Slots []string

	// Dependencies maps a slot to the slots it depends on within the same
	// app.
	Dependencies map[string][]string

	// Hooks maps a slot to the lifecycle callbacks registered for every
	// "*.<slot>" module.
	Hooks map[string]hooks.Hook
}

// Resolver wires apps into an importer according to a schema.
type Resolver struct {
	schema   Schema
	importer *modules.Importer
}

// NewResolver creates a resolver for the given schema and importer.
func NewResolver(schema Schema, importer *modules.Importer) *Resolver {
	return &Resolver{schema: schema, importer: importer}
}

// ExpandApps merges the explicit app list with the mode-derived lists.
// Explicit apps come first; mode lists accumulate production, then staging,
// then development. The result keeps first occurrences and drops later
// duplicates.
func ExpandApps(mode Mode, appsByMode map[string][]string, explicit []string) []string {
	var merged []string
	merged = append(merged, explicit...)

	switch mode {
	case Production:
		merged = append(merged, appsByMode[string(Production)]...)
	case Staging:
		merged = append(merged, appsByMode[string(Production)]...)
		merged = append(merged, appsByMode[string(Staging)]...)
	case Development:
		merged = append(merged, appsByMode[string(Production)]...)
		merged = append(merged, appsByMode[string(Staging)]...)
		merged = append(merged, appsByMode[string(Development)]...)
	}

	seen := make(map[string]struct{}, len(merged))
	installed := make([]string, 0, len(merged))
	for _, app := range merged {
		if _, ok := seen[app]; ok {
			continue
		}
		seen[app] = struct{}{}
		installed = append(installed, app)
	}
	return installed
}

// Register registers every "<app>.<slot>" pair for the installed apps,
// carrying the schema's per-slot dependencies, then binds the schema's
// slot hooks as "*.<slot>" patterns.
func (r *Resolver) Register(installedApps []string) error {
	for _, app := range installedApps {
		for _, slot := range r.schema.Slots {
			name := fmt.Sprintf("%s.%s", app, slot)

			deps := r.schema.Dependencies[slot]
			qualified := make([]string, 0, len(deps))
			for _, dep := range deps {
				qualified = append(qualified, fmt.Sprintf("%s.%s", app, dep))
			}

			if err := r.importer.Register(name, qualified); err != nil {
				return fmt.Errorf("register %s; %w", name, err)
			}
		}
	}

	for _, slot := range r.schema.Slots {
		hook, ok := r.schema.Hooks[slot]
		if !ok || hook.IsZero() {
			continue
		}
		if err := r.importer.RegisterHook(fmt.Sprintf("*.%s", slot), hook); err != nil {
			return fmt.Errorf("register hook for slot %s; %w", slot, err)
		}
	}
	return nil
}
