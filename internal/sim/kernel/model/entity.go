// Package model holds the entity store: entities keyed by id, each carrying a
// set of typed components bound through a Schema.
package model

import (
	"encoding/gob"
	"fmt"
	"reflect"
	"sort"
)

// Kind names a component slot on an entity.
type Kind string

// Component is one typed bag of data attached to an entity. Implementations
// are usually pointers to plain structs; CloneComponent must return a deep
// copy that shares no mutable memory with the receiver.
type Component interface {
	Kind() Kind
	CloneComponent() Component
}

// Schema binds every component kind to exactly one concrete Go type. The set
// of kinds is closed once entities are built from it.
type Schema struct {
	bound map[Kind]reflect.Type
}

func NewSchema(prototypes ...Component) (*Schema, error) {
	s := &Schema{bound: map[Kind]reflect.Type{}}
	for _, p := range prototypes {
		if err := s.Register(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register binds prototype's kind to its dynamic type and makes the type
// known to gob under a stable name so snapshots can carry it.
func (s *Schema) Register(prototype Component) (err error) {
	if prototype == nil || reflect.ValueOf(prototype).Kind() == reflect.Ptr && reflect.ValueOf(prototype).IsNil() {
		return fmt.Errorf("nil component prototype")
	}
	k := prototype.Kind()
	if k == "" {
		return fmt.Errorf("component %T: empty kind", prototype)
	}
	if prev, ok := s.bound[k]; ok {
		return fmt.Errorf("component kind %q already bound to %s", k, prev)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("component kind %q: gob register: %v", k, r)
		}
	}()
	gob.RegisterName("rivet.component."+string(k), prototype)
	s.bound[k] = reflect.TypeOf(prototype)
	return nil
}

// Kinds returns every bound kind in sorted order.
func (s *Schema) Kinds() []Kind {
	out := make([]Kind, 0, len(s.bound))
	for k := range s.bound {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Schema) check(c Component) error {
	if c == nil {
		return fmt.Errorf("nil component")
	}
	want, ok := s.bound[c.Kind()]
	if !ok {
		return fmt.Errorf("unknown component kind %q", c.Kind())
	}
	if got := reflect.TypeOf(c); got != want {
		return fmt.Errorf("component kind %q: got %s want %s", c.Kind(), got, want)
	}
	return nil
}

// NewEntity validates and assembles an entity. Unknown kinds, kinds carried
// by the wrong Go type, nil and duplicate components are rejected.
func (s *Schema) NewEntity(id, typ string, comps ...Component) (*Entity, error) {
	if id == "" {
		return nil, fmt.Errorf("entity: empty id")
	}
	e := &Entity{ID: id, Type: typ, schema: s, comps: make(map[Kind]Component, len(comps))}
	for _, c := range comps {
		if err := s.check(c); err != nil {
			return nil, fmt.Errorf("entity %s: %w", id, err)
		}
		if _, dup := e.comps[c.Kind()]; dup {
			return nil, fmt.Errorf("entity %s: duplicate component %q", id, c.Kind())
		}
		e.comps[c.Kind()] = c
	}
	return e, nil
}

// Entity is a world object. Reducers mutate entities of the state they were
// handed; systems only ever see them through View.
type Entity struct {
	ID   string
	Type string

	schema *Schema
	comps  map[Kind]Component
}

func (e *Entity) Component(k Kind) (Component, bool) {
	c, ok := e.comps[k]
	return c, ok
}

func (e *Entity) Has(k Kind) bool {
	_, ok := e.comps[k]
	return ok
}

// Set attaches or replaces a component. The component must satisfy the
// schema the entity was built from.
func (e *Entity) Set(c Component) error {
	if e.schema != nil {
		if err := e.schema.check(c); err != nil {
			return fmt.Errorf("entity %s: %w", e.ID, err)
		}
	} else if c == nil {
		return fmt.Errorf("entity %s: nil component", e.ID)
	}
	if e.comps == nil {
		e.comps = map[Kind]Component{}
	}
	e.comps[c.Kind()] = c
	return nil
}

func (e *Entity) Remove(k Kind) {
	delete(e.comps, k)
}

// Kinds lists the attached component kinds in sorted order.
func (e *Entity) Kinds() []Kind {
	out := make([]Kind, 0, len(e.comps))
	for k := range e.comps {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Components returns the attached components ordered by kind. The values are
// the live components, not copies.
func (e *Entity) Components() []Component {
	kinds := e.Kinds()
	out := make([]Component, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, e.comps[k])
	}
	return out
}

func (e *Entity) Clone() *Entity {
	out := &Entity{ID: e.ID, Type: e.Type, schema: e.schema, comps: make(map[Kind]Component, len(e.comps))}
	for k, c := range e.comps {
		out.comps[k] = c.CloneComponent()
	}
	return out
}

// Get is the typed accessor for a component slot.
func Get[T Component](e *Entity, k Kind) (T, bool) {
	var zero T
	if e == nil {
		return zero, false
	}
	c, ok := e.comps[k]
	if !ok {
		return zero, false
	}
	t, ok := c.(T)
	return t, ok
}
