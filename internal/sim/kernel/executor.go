package kernel

import (
	"rivet.ai/internal/sim/kernel/event"
	"rivet.ai/internal/sim/kernel/hashchain"
	"rivet.ai/internal/sim/kernel/state"
)

// StepResult is one finalized tick.
type StepResult struct {
	// Tick is the index the events were proposed at; State.Tick is Tick+1.
	Tick      uint64
	State     *state.State
	Events    []event.Event
	BatchHash string
}

// Step runs one tick. The input state is never modified. Step has no error
// path: hashing failures are folded into the hashes (see FailedHash).
func (k *Kernel) Step(s *state.State) StepResult {
	events := k.propose(s)
	k.finalize(s.WorldID, events)

	next := s.Clone()
	next.StateHash = ""
	k.lifecycle.ResetTransient(next)

	for _, ev := range events {
		if fn, ok := k.reducers[ev.Type]; ok {
			fn(next, ev)
		}
	}

	next.Tick = s.Tick + 1
	k.lifecycle.AdvanceTimers(next)

	batch, err := hashchain.BatchHash(events)
	if err != nil {
		batch = hashchain.FailedHash(err)
	}
	next.LastEventHash = hashchain.NextLastEventHash(s.LastEventHash, batch)
	sh, err := hashchain.StateHash(next)
	if err != nil {
		sh = hashchain.FailedHash(err)
	}
	next.StateHash = sh

	return StepResult{Tick: s.Tick, State: next, Events: events, BatchHash: batch}
}

// propose runs every system in registry order against the pre-tick state.
func (k *Kernel) propose(s *state.State) []event.Event {
	bus := &proposalBus{}
	for _, sys := range k.systems {
		sys.Run(&Context{st: s, systemID: sys.ID, bus: bus})
	}
	if bus.events == nil {
		return []event.Event{}
	}
	return bus.events
}

// finalize assigns content-addressed ids once every proposal is in.
func (k *Kernel) finalize(worldID string, events []event.Event) {
	for i := range events {
		id, err := hashchain.EventID(worldID, events[i])
		if err != nil {
			id = hashchain.FailedHash(err)
		}
		events[i].ID = id
	}
}
