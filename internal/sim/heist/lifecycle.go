package heist

import (
	"rivet.ai/internal/sim/kernel/model"
	"rivet.ai/internal/sim/kernel/state"
)

type lifecycle struct{}

func (lifecycle) ResetTransient(s *state.State) {
	if d := domainOf(s); d != nil {
		d.Paused = false
		d.PauseReason = ""
	}
}

// AdvanceTimers raises heat by one while the heist is live, then counts
// down guard delays and rule cooldowns and lets noise fade.
func (lifecycle) AdvanceTimers(s *state.State) {
	d := domainOf(s)
	if d == nil {
		return
	}
	if s.Result == "" {
		d.Heat++
	}
	for _, e := range s.Entities.ByType(TypeGuard) {
		if g, ok := model.Get[*Guard](e, KindGuard); ok && g.Delay > 0 {
			g.Delay--
		}
	}
	for id, cd := range d.Cooldowns {
		if cd > 0 {
			d.Cooldowns[id] = cd - 1
		}
	}
	d.Noise.Decay()
}
