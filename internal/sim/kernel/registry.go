package kernel

import (
	"fmt"
	"sort"

	"rivet.ai/internal/sim/kernel/event"
	"rivet.ai/internal/sim/kernel/state"
)

// System proposes events for one tick. Run must only read through the
// Context; the state it sees is the pre-tick snapshot.
type System struct {
	ID       string
	Priority int
	Run      func(*Context)
}

// SystemRegistry holds systems in execution order: ascending priority, ties
// in registration order.
type SystemRegistry struct {
	systems []System
	ids     map[string]bool
}

func NewSystemRegistry(systems ...System) (*SystemRegistry, error) {
	r := &SystemRegistry{ids: map[string]bool{}}
	for _, s := range systems {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *SystemRegistry) Register(s System) error {
	if s.ID == "" {
		return fmt.Errorf("system: empty id")
	}
	if s.Run == nil {
		return fmt.Errorf("system %s: nil run func", s.ID)
	}
	if r.ids[s.ID] {
		return fmt.Errorf("system %s: already registered", s.ID)
	}
	r.ids[s.ID] = true
	r.systems = append(r.systems, s)
	sort.SliceStable(r.systems, func(i, j int) bool { return r.systems[i].Priority < r.systems[j].Priority })
	return nil
}

// Systems returns a copy of the execution order.
func (r *SystemRegistry) Systems() []System {
	if r == nil {
		return nil
	}
	return append([]System(nil), r.systems...)
}

func (r *SystemRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.systems)
}

// Reducer folds one finalized event into the working state. Reducers touch
// only the state they are handed, never raise, and treat payloads they cannot
// decode as no-ops.
type Reducer func(s *state.State, ev event.Event)

// ReducerRegistry maps each event type to exactly one reducer.
type ReducerRegistry struct {
	byType map[event.Type]Reducer
}

func NewReducerRegistry() *ReducerRegistry {
	return &ReducerRegistry{byType: map[event.Type]Reducer{}}
}

func (r *ReducerRegistry) Register(t event.Type, fn Reducer) error {
	if t == "" {
		return fmt.Errorf("reducer: empty event type")
	}
	if fn == nil {
		return fmt.Errorf("reducer %s: nil func", t)
	}
	if _, ok := r.byType[t]; ok {
		return fmt.Errorf("reducer %s: already registered", t)
	}
	r.byType[t] = fn
	return nil
}

func (r *ReducerRegistry) Get(t event.Type) (Reducer, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.byType[t]
	return fn, ok
}

// table copies the type to reducer map.
func (r *ReducerRegistry) table() map[event.Type]Reducer {
	out := map[event.Type]Reducer{}
	if r == nil {
		return out
	}
	for t, fn := range r.byType {
		out[t] = fn
	}
	return out
}

func (r *ReducerRegistry) Types() []event.Type {
	if r == nil {
		return nil
	}
	out := make([]event.Type, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
