package kernel

import (
	"rivet.ai/internal/sim/kernel/event"
	"rivet.ai/internal/sim/kernel/model"
	"rivet.ai/internal/sim/kernel/rng"
	"rivet.ai/internal/sim/kernel/state"
)

// Context is the read-only view of the pre-tick state handed to a system,
// plus the proposal bus. A fresh Context is built for each system.
type Context struct {
	st       *state.State
	systemID string
	bus      *proposalBus
}

type proposalBus struct {
	events []event.Event
}

func (c *Context) Tick() uint64     { return c.st.Tick }
func (c *Context) WorldID() string  { return c.st.WorldID }
func (c *Context) SystemID() string { return c.systemID }

// Config is the immutable run configuration.
func (c *Context) Config() any { return c.st.Config }

// Domain returns a copy of the pre-tick domain state, so writes to it are
// lost like writes to a View's components.
func (c *Context) Domain() state.Domain {
	if c.st.Domain == nil {
		return nil
	}
	return c.st.Domain.CloneDomain()
}

// Result is the terminal tag of the pre-tick state, if any.
func (c *Context) Result() string { return c.st.Result }

// RNG returns the deterministic stream for (world, streamID, tick). Calling
// it twice with the same id restarts the same sequence.
func (c *Context) RNG(streamID string) *rng.RNG {
	return rng.New(c.st.WorldID, streamID, c.st.Tick)
}

func (c *Context) Entity(id string) (model.View, bool) {
	e, ok := c.st.Entities.Get(id)
	if !ok {
		return model.View{}, false
	}
	return model.ViewOf(e), true
}

// EntitiesByType returns views sorted by entity id.
func (c *Context) EntitiesByType(typ string) []model.View {
	ents := c.st.Entities.ByType(typ)
	out := make([]model.View, 0, len(ents))
	for _, e := range ents {
		out = append(out, model.ViewOf(e))
	}
	return out
}

func (c *Context) EntityIDs() []string { return c.st.Entities.IDs() }

// ProposeEvent queues a candidate event. Its ordinal is the number of
// proposals made before it this tick. An empty attribution credits the
// running system; a missing cause is derived from the attribution.
func (c *Context) ProposeEvent(typ event.Type, payload any, attr event.Attribution, cause ...event.Cause) {
	attr = attr.Normalized(c.systemID)
	var cs event.Cause
	if len(cause) > 0 && !cause[0].IsZero() {
		cs = cause[0].Normalized()
	} else {
		cs = event.CauseFrom(attr)
	}
	c.bus.events = append(c.bus.events, event.Event{
		Tick:        c.st.Tick,
		Ordinal:     len(c.bus.events),
		Type:        typ,
		Payload:     payload,
		Cause:       cs,
		Attribution: attr,
	})
}
