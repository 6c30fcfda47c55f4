// Package state is the world snapshot a tick reads from and produces.
package state

import "rivet.ai/internal/sim/kernel/model"

// Domain is the ruleset-owned part of the world: counters, flags, timers,
// numeric overlays. It must be JSON encodable (the state hash covers its
// canonical JSON) and CloneDomain must share no mutable memory with the
// receiver.
type Domain interface {
	CloneDomain() Domain
}

// State is one world snapshot. A tick never mutates the State it was given;
// it clones, applies reducers to the clone, and returns it.
type State struct {
	Tick     uint64
	WorldID  string
	Entities *model.Store
	Domain   Domain

	// Config is the immutable run configuration. Clones share it.
	Config any

	LastEventHash string
	StateHash     string

	// Result is the terminal outcome tag; empty while the run is live.
	Result string
}

func (s *State) Terminal() bool { return s != nil && s.Result != "" }

// Clone deep-copies everything a reducer can touch.
func (s *State) Clone() *State {
	out := &State{
		Tick:          s.Tick,
		WorldID:       s.WorldID,
		Entities:      s.Entities.Clone(),
		Config:        s.Config,
		LastEventHash: s.LastEventHash,
		StateHash:     s.StateHash,
		Result:        s.Result,
	}
	if s.Domain != nil {
		out.Domain = s.Domain.CloneDomain()
	}
	return out
}
