package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// Definition pairs an event type with the Go type of its payload.
// Informational events are logged but intentionally have no reducer.
type Definition struct {
	Type          Type
	Payload       any
	Informational bool
}

// Catalog is the closed set of event types a ruleset may emit.
type Catalog struct {
	defs map[Type]Definition
}

func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[Type]Definition, len(defs))}
	for _, d := range defs {
		if err := c.Register(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) Register(d Definition) error {
	if d.Type == "" {
		return fmt.Errorf("event definition: empty type")
	}
	if d.Payload == nil {
		return fmt.Errorf("event %s: nil payload prototype", d.Type)
	}
	if _, ok := c.defs[d.Type]; ok {
		return fmt.Errorf("event %s: already defined", d.Type)
	}
	c.defs[d.Type] = d
	return nil
}

func (c *Catalog) Lookup(t Type) (Definition, bool) {
	if c == nil {
		return Definition{}, false
	}
	d, ok := c.defs[t]
	return d, ok
}

func (c *Catalog) Types() []Type {
	if c == nil {
		return nil
	}
	out := make([]Type, 0, len(c.defs))
	for t := range c.defs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Check links the catalog to a reducer set: every reducer must handle a
// defined type and every non-informational type must have a reducer.
func (c *Catalog) Check(reducerTypes []Type) error {
	have := make(map[Type]bool, len(reducerTypes))
	var errs []error
	for _, t := range reducerTypes {
		have[t] = true
		if _, ok := c.Lookup(t); !ok {
			errs = append(errs, fmt.Errorf("reducer for undefined event type %s", t))
		}
	}
	for _, t := range c.Types() {
		if !c.defs[t].Informational && !have[t] {
			errs = append(errs, fmt.Errorf("event type %s has no reducer", t))
		}
	}
	return errors.Join(errs...)
}

// Matches reports whether ev carries a payload of the defined Go type,
// accepting either the value or a pointer to it.
func (c *Catalog) Matches(ev Event) bool {
	d, ok := c.Lookup(ev.Type)
	if !ok || ev.Payload == nil {
		return false
	}
	want := reflect.TypeOf(d.Payload)
	got := reflect.TypeOf(ev.Payload)
	if got == want {
		return true
	}
	if want.Kind() == reflect.Ptr && got == want.Elem() {
		return true
	}
	return got.Kind() == reflect.Ptr && got.Elem() == want
}

// Decode extracts a typed payload. Payloads read back from a log arrive as
// generic JSON values and are converted; anything else that is not a T or
// *T reports ok == false so reducers can leave state untouched.
func Decode[T any](ev Event) (T, bool) {
	var zero T
	switch p := ev.Payload.(type) {
	case T:
		return p, true
	case *T:
		if p == nil {
			return zero, false
		}
		return *p, true
	case map[string]any, json.RawMessage, []any:
		b, err := json.Marshal(p)
		if err != nil {
			return zero, false
		}
		var out T
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&out); err != nil {
			return zero, false
		}
		return out, true
	}
	return zero, false
}
