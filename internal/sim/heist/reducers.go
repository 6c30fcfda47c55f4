package heist

import (
	"rivet.ai/internal/sim/kernel"
	"rivet.ai/internal/sim/kernel/event"
	"rivet.ai/internal/sim/kernel/model"
	"rivet.ai/internal/sim/kernel/state"
)

func reducers() (*kernel.ReducerRegistry, error) {
	r := kernel.NewReducerRegistry()
	for t, fn := range map[event.Type]kernel.Reducer{
		EventCrewMoved:            reduceCrewMoved,
		EventGuardMoved:           reduceGuardMoved,
		EventObjectiveProgress:    reduceObjectiveProgress,
		EventCrewSpotted:          reduceCrewSpotted,
		EventRuleFired:            reduceRuleFired,
		EventHeatThresholdCrossed: reduceHeatThresholdCrossed,
		EventHeistWon:             reduceHeistWon,
		EventHeistLost:            reduceHeistLost,
	} {
		if err := r.Register(t, fn); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func setPosition(s *state.State, id string, at Vec) (*model.Entity, bool) {
	e, ok := s.Entities.Get(id)
	if !ok {
		return nil, false
	}
	p, ok := model.Get[*Position](e, KindPosition)
	if !ok {
		return e, false
	}
	p.At = at
	return e, true
}

func reduceCrewMoved(s *state.State, ev event.Event) {
	p, ok := event.Decode[CrewMoved](ev)
	if !ok {
		return
	}
	if _, ok := setPosition(s, p.CrewID, p.To); !ok {
		return
	}
	if d := domainOf(s); d != nil {
		d.Noise.Add(p.To, 2)
	}
}

func reduceGuardMoved(s *state.State, ev event.Event) {
	p, ok := event.Decode[GuardMoved](ev)
	if !ok {
		return
	}
	e, ok := setPosition(s, p.GuardID, p.To)
	if !ok {
		return
	}
	if g, ok := model.Get[*Guard](e, KindGuard); ok {
		g.Index = p.Index
		g.Delay = p.Delay
	}
}

func reduceObjectiveProgress(s *state.State, ev event.Event) {
	p, ok := event.Decode[ObjectiveProgress](ev)
	if !ok || p.Amount <= 0 {
		return
	}
	e, ok := s.Entities.Get(p.ObjectiveID)
	if !ok {
		return
	}
	o, ok := model.Get[*Objective](e, KindObjective)
	if !ok || o.Done {
		return
	}
	o.Progress += p.Amount
	if o.Progress >= o.Work {
		o.Progress = o.Work
		o.Done = true
	}
}

func reduceCrewSpotted(s *state.State, ev event.Event) {
	if _, ok := event.Decode[CrewSpotted](ev); !ok {
		return
	}
	d := domainOf(s)
	cfg := configOf(s.Config)
	if d == nil || cfg == nil {
		return
	}
	d.Spotted++
	d.Heat += cfg.Pack.SpotHeat
}

func reduceRuleFired(s *state.State, ev event.Event) {
	p, ok := event.Decode[RuleFired](ev)
	if !ok {
		return
	}
	d := domainOf(s)
	cfg := configOf(s.Config)
	if d == nil || cfg == nil {
		return
	}
	r, ok := cfg.rule(p.RuleID)
	if !ok {
		return
	}
	if d.Cooldowns == nil {
		d.Cooldowns = map[string]int{}
	}
	d.Cooldowns[r.ID] = r.Cooldown
	d.Heat += p.Noise
}

func reduceHeatThresholdCrossed(s *state.State, ev event.Event) {
	p, ok := event.Decode[HeatThresholdCrossed](ev)
	if !ok {
		return
	}
	d := domainOf(s)
	if d == nil || p.NewLevel <= d.HeatLevel {
		return
	}
	d.HeatLevel = p.NewLevel
	d.Paused = true
	d.PauseReason = "heat_threshold"
}

func reduceHeistWon(s *state.State, ev event.Event) {
	if _, ok := event.Decode[HeistWon](ev); !ok || s.Result != "" {
		return
	}
	s.Result = ResultWon
}

func reduceHeistLost(s *state.State, ev event.Event) {
	p, ok := event.Decode[HeistLost](ev)
	if !ok || s.Result != "" {
		return
	}
	s.Result = ResultLost
	if d := domainOf(s); d != nil {
		d.LossReason = p.Reason
	}
}
