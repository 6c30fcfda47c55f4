package heist

import (
	"rivet.ai/internal/sim/kernel"
	"rivet.ai/internal/sim/kernel/event"
	"rivet.ai/internal/sim/kernel/model"
)

func systems() []kernel.System {
	return []kernel.System{
		{ID: "heist.crew", Priority: 20, Run: crewSystem},
		{ID: "heist.guards", Priority: 25, Run: guardSystem},
		{ID: "heist.vision", Priority: 30, Run: visionSystem},
		{ID: "heist.rules", Priority: 40, Run: rulesSystem},
		{ID: "heist.heat_threshold", Priority: 95, Run: heatThresholdSystem},
		{ID: "heist.outcome", Priority: 100, Run: outcomeSystem},
	}
}

func ctxDomain(ctx *kernel.Context) *Domain {
	d, _ := ctx.Domain().(*Domain)
	return d
}

func positionOf(v model.View) (Vec, bool) {
	p, ok := model.ViewAs[*Position](v, KindPosition)
	if !ok {
		return Vec{}, false
	}
	return p.At, true
}

// stepToward moves up to speed cells, x axis first.
func stepToward(from, to Vec, speed int) Vec {
	out := from
	for i := 0; i < speed && out != to; i++ {
		switch {
		case out[0] < to[0]:
			out[0]++
		case out[0] > to[0]:
			out[0]--
		case out[1] < to[1]:
			out[1]++
		case out[1] > to[1]:
			out[1]--
		}
	}
	return out
}

// crewSystem walks every crew member to its objective and works it once
// there.
func crewSystem(ctx *kernel.Context) {
	if ctx.Result() != "" {
		return
	}
	for _, c := range ctx.EntitiesByType(TypeCrew) {
		crew, ok := model.ViewAs[*Crew](c, KindCrew)
		if !ok {
			continue
		}
		pos, ok := positionOf(c)
		if !ok {
			continue
		}
		objView, ok := ctx.Entity(crew.Objective)
		if !ok {
			continue
		}
		obj, ok := model.ViewAs[*Objective](objView, KindObjective)
		if !ok || obj.Done {
			continue
		}
		target, ok := positionOf(objView)
		if !ok {
			continue
		}
		if pos == target {
			ctx.ProposeEvent(EventObjectiveProgress, ObjectiveProgress{ObjectiveID: objView.ID(), CrewID: c.ID(), Amount: 1},
				event.ByActor(c.ID(), objView.ID()))
			continue
		}
		ctx.ProposeEvent(EventCrewMoved, CrewMoved{CrewID: c.ID(), From: pos, To: stepToward(pos, target, crew.Speed)},
			event.ByActor(c.ID()))
	}
}

// guardSystem advances guards whose patrol delay has run out. The next delay
// gets a deterministic jitter of zero or one tick.
func guardSystem(ctx *kernel.Context) {
	rng := ctx.RNG("guard_movement")
	for _, g := range ctx.EntitiesByType(TypeGuard) {
		guard, ok := model.ViewAs[*Guard](g, KindGuard)
		if !ok || len(guard.Route) == 0 || guard.Delay > 0 {
			continue
		}
		next := (guard.Index + 1) % len(guard.Route)
		ctx.ProposeEvent(EventGuardMoved, GuardMoved{
			GuardID: g.ID(),
			Index:   next,
			To:      guard.Route[next],
			Delay:   guard.PatrolDelay + rng.Intn(2),
		}, event.ByActor(g.ID()))
	}
}

// visionSystem reports every crew member within a guard's sight radius.
func visionSystem(ctx *kernel.Context) {
	if ctx.Result() != "" {
		return
	}
	crew := ctx.EntitiesByType(TypeCrew)
	for _, g := range ctx.EntitiesByType(TypeGuard) {
		guard, ok := model.ViewAs[*Guard](g, KindGuard)
		if !ok {
			continue
		}
		gp, ok := positionOf(g)
		if !ok {
			continue
		}
		for _, c := range crew {
			cp, ok := positionOf(c)
			if !ok {
				continue
			}
			if d := manhattan(gp, cp); d <= guard.Sight {
				ctx.ProposeEvent(EventCrewSpotted, CrewSpotted{GuardID: g.ID(), CrewID: c.ID(), Distance: d},
					event.ByActor(g.ID(), c.ID()))
			}
		}
	}
}

// rulesSystem fires selected rules whose heat trigger is met and whose
// cooldown has expired, in selection order.
func rulesSystem(ctx *kernel.Context) {
	cfg := configOf(ctx.Config())
	d := ctxDomain(ctx)
	if cfg == nil || d == nil || ctx.Result() != "" {
		return
	}
	for _, r := range cfg.Rules {
		if d.Heat < r.TriggerHeat || d.Cooldowns[r.ID] > 0 {
			continue
		}
		ctx.ProposeEvent(EventRuleFired, RuleFired{RuleID: r.ID, Noise: r.Noise}, event.ByRule(r.ID))
	}
}

// heatLevel counts the thresholds heat has reached.
func heatLevel(heat int, thresholds []int) int {
	n := 0
	for _, t := range thresholds {
		if heat >= t {
			n++
		}
	}
	return n
}

// heatThresholdSystem runs before the end-of-tick heat increment, so it
// looks at heat+1 to catch the crossing that tick will cause. Each level
// fires once.
func heatThresholdSystem(ctx *kernel.Context) {
	cfg := configOf(ctx.Config())
	d := ctxDomain(ctx)
	if cfg == nil || d == nil || ctx.Result() != "" {
		return
	}
	next := d.Heat + 1
	lvl := heatLevel(next, cfg.Pack.HeatThresholds)
	if lvl <= d.HeatLevel {
		return
	}
	ctx.ProposeEvent(EventHeatThresholdCrossed, HeatThresholdCrossed{
		PreviousLevel: d.HeatLevel,
		NewLevel:      lvl,
		Heat:          next,
		Threshold:     cfg.Pack.HeatThresholds[lvl-1],
	}, event.BySystem("heist.heat_threshold"), event.Cause{Kind: event.CauseWorld, ID: "heat"})
}

// outcomeSystem runs last and decides win or loss on the pre-tick state.
func outcomeSystem(ctx *kernel.Context) {
	cfg := configOf(ctx.Config())
	d := ctxDomain(ctx)
	if cfg == nil || d == nil || ctx.Result() != "" {
		return
	}
	if d.Heat >= cfg.Pack.MaxHeat {
		ctx.ProposeEvent(EventHeistLost, HeistLost{Reason: LossTimeout, FinalHeat: d.Heat, TotalTicks: ctx.Tick()}, event.Attribution{})
		return
	}
	if cfg.Pack.CatchLimit > 0 && d.Spotted >= cfg.Pack.CatchLimit {
		ctx.ProposeEvent(EventHeistLost, HeistLost{Reason: LossCaught, FinalHeat: d.Heat, TotalTicks: ctx.Tick()}, event.Attribution{})
		return
	}
	objectives := ctx.EntitiesByType(TypeObjective)
	if len(objectives) == 0 {
		return
	}
	for _, o := range objectives {
		obj, ok := model.ViewAs[*Objective](o, KindObjective)
		if !ok || !obj.Done {
			return
		}
	}
	ctx.ProposeEvent(EventHeistWon, HeistWon{FinalHeat: d.Heat, TotalTicks: ctx.Tick()}, event.Attribution{})
}
