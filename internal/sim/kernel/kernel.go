// Package kernel runs the deterministic tick loop: systems propose events
// against a read-only snapshot, the kernel finalizes them into a hash-chained
// batch and reducers fold the batch into the next snapshot.
package kernel

import (
	"fmt"

	"rivet.ai/internal/sim/kernel/event"
	"rivet.ai/internal/sim/kernel/hashchain"
	"rivet.ai/internal/sim/kernel/model"
	"rivet.ai/internal/sim/kernel/state"
)

const (
	OutcomeTimeout = "TIMEOUT"
	OutcomePending = "PENDING"
)

// Lifecycle supplies the domain parts of a tick. ResetTransient runs on the
// working copy before reducers; AdvanceTimers runs after the tick counter
// has moved.
type Lifecycle interface {
	ResetTransient(s *state.State)
	AdvanceTimers(s *state.State)
}

type nopLifecycle struct{}

func (nopLifecycle) ResetTransient(*state.State) {}
func (nopLifecycle) AdvanceTimers(*state.State)  {}

// Initial is what a Setup builds for tick 0.
type Initial struct {
	Entities []*model.Entity
	Domain   state.Domain
	Config   any
}

// Setup turns static configuration into an initial snapshot. Validate
// reports every problem it finds; Build may report more (unknown selection
// ids, for example).
type Setup interface {
	Validate() []ConfigError
	Build(selection []string) (Initial, []ConfigError)
}

type Options struct {
	Systems  *SystemRegistry
	Reducers *ReducerRegistry

	// Catalog, when set, must cover every reducer and every
	// non-informational event type must have one.
	Catalog *event.Catalog

	Lifecycle Lifecycle

	// TickBudget is used by Simulate when the caller passes maxTicks <= 0.
	TickBudget int
}

// Kernel is safe for concurrent use. New copies the system order and the
// reducer table, so registering on the registries afterwards does not reach
// the kernel.
type Kernel struct {
	systems   []System
	reducers  map[event.Type]Reducer
	catalog   *event.Catalog
	lifecycle Lifecycle
	budget    int
}

func New(opts Options) (*Kernel, error) {
	k := &Kernel{
		systems:   opts.Systems.Systems(),
		reducers:  opts.Reducers.table(),
		catalog:   opts.Catalog,
		lifecycle: opts.Lifecycle,
		budget:    opts.TickBudget,
	}
	if k.lifecycle == nil {
		k.lifecycle = nopLifecycle{}
	}
	if k.budget < 0 {
		return nil, fmt.Errorf("tick budget must be >= 0, got %d", k.budget)
	}
	if k.catalog != nil {
		if err := k.catalog.Check(opts.Reducers.Types()); err != nil {
			return nil, fmt.Errorf("event catalog: %w", err)
		}
	}
	return k, nil
}

func (k *Kernel) Catalog() *event.Catalog { return k.catalog }

// InitState validates setup and builds the tick-0 snapshot. The seed doubles
// as the world id. selection picks optional configured elements by id, in
// the given order.
func (k *Kernel) InitState(setup Setup, seed string, selection ...string) (*state.State, error) {
	if seed == "" {
		return nil, &ConfigValidationError{Errors: []ConfigError{{Field: "seed", Message: "must not be empty"}}}
	}
	if errs := setup.Validate(); len(errs) > 0 {
		return nil, &ConfigValidationError{Errors: errs}
	}
	start, errs := setup.Build(selection)
	errs = append(errs, checkEntities(start.Entities)...)
	if len(errs) > 0 {
		return nil, &ConfigValidationError{Errors: errs}
	}

	s := &state.State{
		Tick:          0,
		WorldID:       seed,
		Entities:      model.NewStore(start.Entities...),
		Domain:        start.Domain,
		Config:        start.Config,
		LastEventHash: hashchain.GenesisHash,
	}
	sh, err := hashchain.StateHash(s)
	if err != nil {
		return nil, fmt.Errorf("initial state hash: %w", err)
	}
	s.StateHash = sh
	return s, nil
}

func checkEntities(ents []*model.Entity) []ConfigError {
	var errs []ConfigError
	seen := make(map[string]int, len(ents))
	for i, e := range ents {
		field := fmt.Sprintf("entities[%d].id", i)
		switch {
		case e == nil:
			errs = append(errs, ConfigError{Field: fmt.Sprintf("entities[%d]", i), Message: "nil entity"})
		case e.ID == "":
			errs = append(errs, ConfigError{Field: field, Message: "must not be empty"})
		default:
			if j, dup := seen[e.ID]; dup {
				errs = append(errs, ConfigError{Field: field, Message: fmt.Sprintf("duplicate of entities[%d]", j), Value: e.ID})
				continue
			}
			seen[e.ID] = i
		}
	}
	return errs
}

// SimulateResult is the end of a Simulate call.
type SimulateResult struct {
	Final   *state.State
	Events  []event.Event
	Ticks   int
	Outcome string
}

// Simulate steps until the state carries a terminal result or maxTicks steps
// have run. maxTicks <= 0 falls back to the kernel's tick budget. Observers
// see every step in order.
func (k *Kernel) Simulate(s *state.State, maxTicks int, observers ...func(StepResult)) SimulateResult {
	if maxTicks <= 0 {
		maxTicks = k.budget
	}
	res := SimulateResult{Final: s, Events: []event.Event{}}
	for res.Ticks < maxTicks && !res.Final.Terminal() {
		step := k.Step(res.Final)
		for _, obs := range observers {
			obs(step)
		}
		res.Final = step.State
		res.Events = append(res.Events, step.Events...)
		res.Ticks++
	}
	switch {
	case res.Final.Terminal():
		res.Outcome = res.Final.Result
	case res.Ticks > 0:
		res.Outcome = OutcomeTimeout
	default:
		res.Outcome = OutcomePending
	}
	return res
}
