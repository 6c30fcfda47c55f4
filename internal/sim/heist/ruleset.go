package heist

import (
	"fmt"

	"rivet.ai/internal/sim/kernel"
	"rivet.ai/internal/sim/kernel/model"
)

// NewKernel wires the heist systems, reducers, event catalog and lifecycle.
func NewKernel(tickBudget int) (*kernel.Kernel, error) {
	sys, err := kernel.NewSystemRegistry(systems()...)
	if err != nil {
		return nil, err
	}
	red, err := reducers()
	if err != nil {
		return nil, err
	}
	cat, err := Catalog()
	if err != nil {
		return nil, err
	}
	return kernel.New(kernel.Options{
		Systems:    sys,
		Reducers:   red,
		Catalog:    cat,
		Lifecycle:  lifecycle{},
		TickBudget: tickBudget,
	})
}

// Setup adapts a Pack to kernel.InitState. Selection picks rules by id, in
// the given order; an empty selection keeps every rule in pack order.
type Setup struct {
	Pack *Pack
}

func (s Setup) Validate() []kernel.ConfigError {
	if s.Pack == nil {
		return []kernel.ConfigError{{Field: "pack", Message: "missing"}}
	}
	return s.Pack.Validate()
}

func (s Setup) Build(selection []string) (kernel.Initial, []kernel.ConfigError) {
	p := s.Pack
	rules, errs := selectRules(p.Rules, selection)
	if len(errs) > 0 {
		return kernel.Initial{}, errs
	}
	schema, err := NewSchema()
	if err != nil {
		return kernel.Initial{}, []kernel.ConfigError{{Field: "schema", Message: err.Error()}}
	}

	var ents []*model.Entity
	var buildErrs []kernel.ConfigError
	add := func(field string, e *model.Entity, err error) {
		if err != nil {
			buildErrs = append(buildErrs, kernel.ConfigError{Field: field, Message: err.Error()})
			return
		}
		ents = append(ents, e)
	}
	for i, o := range p.Objectives {
		e, err := schema.NewEntity(o.ID, TypeObjective, &Position{At: o.Pos}, &Objective{Work: o.Work})
		add(fmt.Sprintf("objectives[%d]", i), e, err)
	}
	for i, c := range p.Crew {
		e, err := schema.NewEntity(c.ID, TypeCrew, &Position{At: c.Pos}, &Crew{Speed: c.Speed, Objective: c.Objective})
		add(fmt.Sprintf("crew[%d]", i), e, err)
	}
	for i, g := range p.Guards {
		e, err := schema.NewEntity(g.ID, TypeGuard,
			&Position{At: g.Route[0]},
			&Guard{Route: append([]Vec(nil), g.Route...), Delay: g.PatrolDelay, PatrolDelay: g.PatrolDelay, Sight: g.Sight})
		add(fmt.Sprintf("guards[%d]", i), e, err)
	}
	if len(buildErrs) > 0 {
		return kernel.Initial{}, buildErrs
	}

	cooldowns := make(map[string]int, len(rules))
	for _, r := range rules {
		cooldowns[r.ID] = 0
	}
	return kernel.Initial{
		Entities: ents,
		Domain:   &Domain{Cooldowns: cooldowns, Noise: NewOverlay(p.Grid.Width, p.Grid.Height)},
		Config:   &Config{Pack: *p, Rules: rules},
	}, nil
}

func selectRules(all []RuleDef, selection []string) ([]RuleDef, []kernel.ConfigError) {
	if len(selection) == 0 {
		return append([]RuleDef(nil), all...), nil
	}
	byID := make(map[string]RuleDef, len(all))
	for _, r := range all {
		byID[r.ID] = r
	}
	var (
		out  []RuleDef
		errs []kernel.ConfigError
		seen = map[string]bool{}
	)
	for i, id := range selection {
		field := fmt.Sprintf("selection[%d]", i)
		r, ok := byID[id]
		switch {
		case !ok:
			errs = append(errs, kernel.ConfigError{Field: field, Message: "unknown rule id", Value: id})
		case seen[id]:
			errs = append(errs, kernel.ConfigError{Field: field, Message: "rule selected twice", Value: id})
		default:
			seen[id] = true
			out = append(out, r)
		}
	}
	return out, errs
}
