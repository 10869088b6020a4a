// Package components declares component kinds, tags user objects with kind
// metadata, and validates and describes tagged objects.
//
// Go forbids stamping attributes onto arbitrary values, so tagging wraps the
// object in a *Tagged carrier (or the object may implement Carrier itself).
// An object is a component of kind K iff its tag metadata deep-equals the
// catalogue's metadata for K.
package components

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrKindNotDeclared is returned when registering against an unknown kind.
	ErrKindNotDeclared = errors.New("component kind not declared")

	// ErrKindDeclared is returned when re-declaring an existing kind.
	ErrKindDeclared = errors.New("component kind already declared")

	// ErrNotComponent is returned when describing an untagged object.
	ErrNotComponent = errors.New("object is not a tagged component")
)

// Tag holds the configuration and metadata attached to a component.
// Metadata always carries at least {"type": <kind>}.
type Tag struct {
	Config   map[string]any
	Metadata map[string]any
}

// Type returns the metadata type, or "" if absent.
func (t Tag) Type() string {
	if s, ok := t.Metadata["type"].(string); ok {
		return s
	}
	return ""
}

// Carrier is implemented by values that expose a component tag.
type Carrier interface {
	ComponentTag() Tag
}

// OriginCarrier is implemented by carriers that know their defining module
// path and declared identifier. Discovery fills it in for *Tagged exports;
// user types implementing Carrier directly may implement it as well so
// Describe can derive their app and URI.
type OriginCarrier interface {
	ComponentOrigin() (module, name string)
}

// Tagged wraps a user object together with its tag. Modules export *Tagged
// values; discovery unwraps Object when building records.
type Tagged struct {
	Object   any
	Internal Tag

	module string
	name   string
}

// ComponentTag implements Carrier.
func (t *Tagged) ComponentTag() Tag {
	return t.Internal
}

// ComponentOrigin implements OriginCarrier.
func (t *Tagged) ComponentOrigin() (module, name string) {
	return t.module, t.name
}

// SetOrigin records the defining module path and declared identifier.
// The first call wins; discovery uses it to fill in export origins.
func (t *Tagged) SetOrigin(module, name string) {
	if t.module == "" {
		t.module = module
	}
	if t.name == "" {
		t.name = name
	}
}

// Record describes one discovered component. Immutable once produced.
type Record struct {
	Type     string
	App      string
	Name     string
	URI      string
	Object   any
	Internal Tag
}

// lookupTag unwraps obj to its tag, following one level of Carrier.
func lookupTag(obj any) (Tag, bool) {
	if c, ok := obj.(Carrier); ok {
		return c.ComponentTag(), true
	}
	return Tag{}, false
}

// IsTagged reports whether obj carries a component tag of any kind.
func IsTagged(obj any) bool {
	_, ok := lookupTag(obj)
	return ok
}

// Catalogue is a registry of component kinds and their default metadata.
// Kinds are declared up front and immutable thereafter. The catalogue is
// mutated only during startup; reads afterwards need no synchronisation.
type Catalogue struct {
	kinds map[string]map[string]any
	order []string
}

// NewCatalogue creates a catalogue and declares the given kinds with empty
// default metadata.
func NewCatalogue(kinds ...string) *Catalogue {
	c := &Catalogue{
		kinds: make(map[string]map[string]any),
	}
	for _, k := range kinds {
		_ = c.Declare(k, nil)
	}
	return c
}

// Declare registers a kind. Kind names match case-insensitively and are
// stored lowercase. defaultMeta is merged over {"type": <kind>}; an explicit
// "type" entry in defaultMeta is overwritten.
func (c *Catalogue) Declare(kind string, defaultMeta map[string]any) error {
	name := strings.ToLower(kind)
	if name == "" {
		return fmt.Errorf("declare: kind must not be empty")
	}
	if _, ok := c.kinds[name]; ok {
		return fmt.Errorf("declare %q; %w", kind, ErrKindDeclared)
	}

	meta := make(map[string]any, len(defaultMeta)+1)
	for k, v := range defaultMeta {
		meta[k] = v
	}
	meta["type"] = name

	c.kinds[name] = meta
	c.order = append(c.order, name)
	return nil
}

// Kinds returns the declared kind names in declaration order.
func (c *Catalogue) Kinds() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Metadata returns a copy of the metadata for kind, or nil if undeclared.
func (c *Catalogue) Metadata(kind string) map[string]any {
	meta, ok := c.kinds[strings.ToLower(kind)]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// Register tags obj as a component of kind, attaching config and the kind's
// metadata, and returns the carrier to export from a slot module.
func (c *Catalogue) Register(kind string, obj any, config map[string]any) (*Tagged, error) {
	meta, ok := c.kinds[strings.ToLower(kind)]
	if !ok {
		return nil, fmt.Errorf("register %q; %w", kind, ErrKindNotDeclared)
	}
	if obj == nil {
		return nil, fmt.Errorf("register %q: cannot tag nil", kind)
	}
	if config == nil {
		config = map[string]any{}
	}
	return &Tagged{
		Object:   obj,
		Internal: Tag{Config: config, Metadata: meta},
	}, nil
}

// MustRegister is Register panicking on error, for package-level declarations.
func (c *Catalogue) MustRegister(kind string, obj any, config map[string]any) *Tagged {
	tagged, err := c.Register(kind, obj, config)
	if err != nil {
		panic(err)
	}
	return tagged
}

// Registrar returns a tagging closure for kind, the factory form of Register
// for call sites that tag several objects with the same config.
func (c *Catalogue) Registrar(kind string, config map[string]any) func(obj any) (*Tagged, error) {
	return func(obj any) (*Tagged, error) {
		return c.Register(kind, obj, config)
	}
}

// IsComponent reports whether obj is a component of kind: it must carry a
// tag whose metadata deep-equals the catalogue's metadata for the kind.
func (c *Catalogue) IsComponent(kind string, obj any) bool {
	meta, ok := c.kinds[strings.ToLower(kind)]
	if !ok {
		return false
	}
	tag, ok := lookupTag(obj)
	if !ok {
		return false
	}
	return reflect.DeepEqual(tag.Metadata, meta)
}

// Describe builds the Record for any tagged object. App is the first
// dotted segment of the defining module path, Name the declared
// identifier, and URI is "<app>_<snake(name)>". Carriers without an origin
// yield a record with empty App, Name and URI.
func (c *Catalogue) Describe(obj any) (Record, error) {
	carrier, ok := obj.(Carrier)
	if !ok {
		return Record{}, ErrNotComponent
	}
	tag := carrier.ComponentTag()

	var module, name string
	if origin, ok := obj.(OriginCarrier); ok {
		module, name = origin.ComponentOrigin()
	}
	app, _, _ := strings.Cut(module, ".")

	var uri string
	if name != "" {
		uri = fmt.Sprintf("%s_%s", app, CaseStyle(name, Snake))
	}

	object := obj
	if tagged, ok := obj.(*Tagged); ok {
		object = tagged.Object
	}

	return Record{
		Type:     tag.Type(),
		App:      app,
		Name:     name,
		URI:      uri,
		Object:   object,
		Internal: tag,
	}, nil
}
